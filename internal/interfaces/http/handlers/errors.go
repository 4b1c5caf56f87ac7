package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/bivex/storekit-manager/internal/domain/errors"
	"github.com/bivex/storekit-manager/internal/infrastructure/logging"
	"github.com/bivex/storekit-manager/internal/interfaces/http/response"
)

// writeError maps a domain error to an HTTP error response
func writeError(c *gin.Context, err error) {
	var platformErr *domainErrors.PlatformError

	switch {
	case domainErrors.IsValidation(err):
		response.BadRequest(c, err.Error())
	case errors.Is(err, domainErrors.ErrProductNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, domainErrors.ErrRestoreInProgress):
		response.Conflict(c, err.Error())
	case errors.Is(err, domainErrors.ErrPlatformTimeout), errors.Is(err, context.DeadlineExceeded):
		response.GatewayTimeout(c, err.Error())
	case errors.Is(err, domainErrors.ErrManagerClosed), errors.Is(err, domainErrors.ErrPlatformUnavailable):
		response.ServiceUnavailable(c, err.Error())
	case errors.As(err, &platformErr):
		response.ErrorWithCode(c, http.StatusBadGateway, "PLATFORM_ERROR", err.Error(), string(platformErr.Code))
	default:
		logging.GetLogger(c).Error("request failed", zap.Error(err))
		response.InternalError(c, "internal error")
	}
}
