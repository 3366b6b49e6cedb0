package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/levisbarua/pesaflow-1/internal/constants"
	"github.com/levisbarua/pesaflow-1/internal/service"
	"go.uber.org/zap"
)

const (
	HeaderUserID = "X-User-ID"
	userIDKey    = "uid"
)

var (
	ErrMissingIdentity = errors.New("missing user identity")
	ErrInvalidToken    = errors.New("invalid bearer token")
)

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Identity resolves the calling user. With a secret configured only HS256 bearer
// tokens are accepted; without one the X-User-ID header is trusted.
func Identity(cfg AuthConfig, logger *zap.Logger) fiber.Handler {
	if cfg.JWTSecret == "" {
		logger.Warn("No JWT secret configured, trusting " + HeaderUserID + " header")
	}

	secret := []byte(cfg.JWTSecret)

	return func(c *fiber.Ctx) error {
		var (
			userID string
			err    error
		)

		if len(secret) == 0 {
			userID = strings.Clone(strings.TrimSpace(c.Get(HeaderUserID)))
		} else {
			userID, err = userFromBearer(c.Get(fiber.HeaderAuthorization), secret)
		}

		if err == nil && userID == "" {
			err = ErrMissingIdentity
		}

		if err != nil {
			logger.Debug("Request rejected without identity", zap.String("path", c.Path()), zap.Error(err))
			return service.NewServiceError(constants.ErrCodeUnauthorized, err)
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// UserID returns the identity stored by Identity, or "" outside of it.
func UserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(userIDKey).(string)
	return userID
}

func userFromBearer(header string, secret []byte) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", ErrMissingIdentity
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}

	if uid, ok := claims[userIDKey].(string); ok && uid != "" {
		return uid, nil
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}

	return sub, nil
}
