package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// JWTClaims represents the JWT claims structure
type JWTClaims struct {
	ClientID string `json:"sub"`
	JTI      string `json:"jti"` // JWT ID for revocation
	jwt.RegisteredClaims
}

// Blocklist reports revoked token IDs
type Blocklist interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// RedisBlocklist stores revoked token IDs in Redis with expiry
type RedisBlocklist struct {
	client *redis.Client
	prefix string
}

// NewRedisBlocklist creates a Redis-backed blocklist
func NewRedisBlocklist(client *redis.Client) *RedisBlocklist {
	return &RedisBlocklist{client: client, prefix: "jwt:blocked:"}
}

// IsRevoked returns true if jti was revoked
func (b *RedisBlocklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := b.client.Get(ctx, b.prefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Revoke adds jti to the blocklist until ttl elapses
func (b *RedisBlocklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return b.client.Set(ctx, b.prefix+jti, "1", ttl).Err()
}

// JWTMiddleware handles JWT validation and revocation checking
type JWTMiddleware struct {
	secret    []byte
	issuer    string
	blocklist Blocklist
	logger    *zap.Logger
}

// NewJWTMiddleware creates a new JWT middleware
func NewJWTMiddleware(secret, issuer string, blocklist Blocklist, logger *zap.Logger) *JWTMiddleware {
	return &JWTMiddleware{
		secret:    []byte(secret),
		issuer:    issuer,
		blocklist: blocklist,
		logger:    logger,
	}
}

// Authenticate validates the JWT token and sets client context
func (j *JWTMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Missing authorization header"})
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Invalid authorization header format"})
			return
		}

		claims, err := j.ParseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Invalid token"})
			return
		}

		revoked, err := j.blocklist.IsRevoked(c.Request.Context(), claims.JTI)
		if err != nil {
			j.logger.Error("failed to check token blocklist", zap.Error(err))
			// Fail closed
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "SERVICE_UNAVAILABLE", "message": "Token validation unavailable"})
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "TOKEN_REVOKED", "message": "Token has been revoked"})
			return
		}

		c.Set("client_id", claims.ClientID)
		c.Set("jti", claims.JTI)
		c.Next()
	}
}

// GenerateAccessToken creates a signed token for a client. Returns the token and its ID.
func (j *JWTMiddleware) GenerateAccessToken(clientID string, ttl time.Duration) (string, string, error) {
	jti := uuid.New().String()
	now := time.Now()

	claims := &JWTClaims{
		ClientID: clientID,
		JTI:      jti,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    j.issuer,
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", "", err
	}
	return tokenString, jti, nil
}

// ParseToken parses a token string and returns the claims without checking the blocklist
func (j *JWTMiddleware) ParseToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	}, jwt.WithIssuer(j.issuer))
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RevokeToken adds a token to the blocklist
func (j *JWTMiddleware) RevokeToken(ctx context.Context, jti string, remainingTTL time.Duration) error {
	return j.blocklist.Revoke(ctx, jti, remainingTTL)
}

// ClientID returns the authenticated client ID from the Gin context
func ClientID(c *gin.Context) string {
	return c.GetString("client_id")
}
