package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"io.winapps.meicho/internal/metrics"
)

const bearerPrefix = "Bearer "

// TokenVerifier checks a Firebase ID token. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthConfig struct {
	Verifier TokenVerifier
	// Cache holds token hash to uid for CacheTTL. Nil disables caching.
	Cache    redis.Cmdable
	CacheTTL time.Duration
	Logger   *zap.SugaredLogger
}

func tokenCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth_token:" + hex.EncodeToString(sum[:])
}

// AuthMiddleware verifies the bearer token and sets the caller's uid in the context.
func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must start with 'Bearer '"})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
			return
		}

		ctx := c.Request.Context()
		key := tokenCacheKey(token)

		if cfg.Cache != nil {
			uid, err := cfg.Cache.Get(ctx, key).Result()
			switch {
			case err == nil && uid != "":
				metrics.RecordAuthCache(true)
				c.Set("uid", uid)
				c.Next()
				return
			case err != nil && !errors.Is(err, redis.Nil):
				logger.Warnw("auth token cache read failed", "request_id", c.GetString("request_id"), "error", err)
			}
			metrics.RecordAuthCache(false)
		}

		idToken, err := cfg.Verifier.VerifyIDToken(ctx, token)
		if err != nil || idToken.UID == "" {
			logger.Infow("id token rejected", "request_id", c.GetString("request_id"), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		if cfg.Cache != nil {
			ttl := cfg.CacheTTL
			if exp := time.Until(time.Unix(idToken.Expires, 0)); idToken.Expires > 0 && exp < ttl {
				ttl = exp
			}
			if ttl > 0 {
				if err := cfg.Cache.Set(ctx, key, idToken.UID, ttl).Err(); err != nil {
					logger.Warnw("auth token cache write failed", "request_id", c.GetString("request_id"), "error", err)
				}
			}
		}

		c.Set("uid", idToken.UID)
		c.Next()
	}
}
