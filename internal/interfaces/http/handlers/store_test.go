package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/application/command"
	"github.com/bivex/storekit-manager/internal/application/query"
	"github.com/bivex/storekit-manager/internal/domain/service"
	"github.com/bivex/storekit-manager/internal/infrastructure/cache"
	"github.com/bivex/storekit-manager/internal/infrastructure/dispatch"
	"github.com/bivex/storekit-manager/internal/infrastructure/platform/sandbox"
	"github.com/bivex/storekit-manager/internal/interfaces/http/handlers"
)

type envelope struct {
	Data  map[string]interface{} `json:"data"`
	Error string                 `json:"error"`
}

func newRouter(t *testing.T) (*gin.Engine, *sandbox.Platform) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	products, err := sandbox.ParseCatalog("com.app.pro:9.99:USD", "en-US")
	require.NoError(t, err)
	platform := sandbox.New(products, zap.NewNop())

	queue := dispatch.NewSerialQueue(zap.NewNop())
	t.Cleanup(queue.Close)

	manager := service.NewPurchaseManager(platform, queue, cache.NewCatalogCache(time.Minute, zap.NewNop()), zap.NewNop())
	require.NoError(t, manager.Start(context.Background()))

	h := handlers.NewStoreHandler(
		command.NewQueryProductsCommand(manager, time.Second),
		command.NewPurchaseCommand(manager),
		command.NewRestoreCommand(manager),
		query.NewGetStatusQuery(manager),
	)

	router := gin.New()
	router.GET("/health", handlers.Health)
	h.RegisterRoutes(router.Group("/v1"))
	return router, platform
}

func do(t *testing.T, router http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

// status is safe to call from assert.Eventually conditions
func status(router http.Handler) map[string]interface{} {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return env.Data
}

func TestStoreHandler(t *testing.T) {
	t.Run("health", func(t *testing.T) {
		router, _ := newRouter(t)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("products are partitioned", func(t *testing.T) {
		router, _ := newRouter(t)

		code, env := do(t, router, http.MethodGet, "/v1/products?ids=com.app.pro,%20com.app.missing", "")
		require.Equal(t, http.StatusOK, code)

		products := env.Data["products"].([]interface{})
		require.Len(t, products, 1)
		assert.Equal(t, "com.app.pro", products[0].(map[string]interface{})["identifier"])
		assert.Equal(t, []interface{}{"com.app.missing"}, env.Data["invalid_identifiers"])
	})

	t.Run("empty product set is a bad request", func(t *testing.T) {
		router, _ := newRouter(t)

		code, env := do(t, router, http.MethodGet, "/v1/products", "")
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "INVALID_REQUEST", env.Error)
	})

	t.Run("payment for an unqueried product is not found", func(t *testing.T) {
		router, _ := newRouter(t)

		code, _ := do(t, router, http.MethodPost, "/v1/payments", `{"product_id":"com.app.pro"}`)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("payment without product is a bad request", func(t *testing.T) {
		router, _ := newRouter(t)

		code, _ := do(t, router, http.MethodPost, "/v1/payments", `{}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("payment after catalog query is accepted and finished", func(t *testing.T) {
		router, platform := newRouter(t)
		code, _ := do(t, router, http.MethodGet, "/v1/products?ids=com.app.pro", "")
		require.Equal(t, http.StatusOK, code)

		code, env := do(t, router, http.MethodPost, "/v1/payments", `{"product_id":"com.app.pro"}`)
		require.Equal(t, http.StatusAccepted, code)
		assert.Equal(t, "submitted", env.Data["status"])

		assert.Eventually(t, func() bool { return len(platform.Finished()) == 1 }, time.Second, 5*time.Millisecond)
		assert.Eventually(t, func() bool {
			return status(router)["finished_transactions"] == float64(1)
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("restore is accepted and reported in status", func(t *testing.T) {
		router, _ := newRouter(t)

		code, env := do(t, router, http.MethodPost, "/v1/restore", "")
		require.Equal(t, http.StatusAccepted, code)
		assert.Equal(t, "started", env.Data["status"])

		assert.Eventually(t, func() bool {
			last, ok := status(router)["last_restore"].(map[string]interface{})
			return ok && last["outcome"] == "succeeded"
		}, time.Second, 5*time.Millisecond)
	})
}
