package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	goIAM "github.com/MrEthical07/goIAM"
)

const identityKey = "iam_identity"

// IdentityFrom returns the identity attached by the auth gate.
func IdentityFrom(c *gin.Context) (*goIAM.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*goIAM.Identity)
	return id, ok && id != nil
}

// RequireAuth rejects the request with 401 unless it carries a valid bearer
// token.
func RequireAuth(engine *goIAM.Engine, log zerolog.Logger) gin.HandlerFunc {
	return authenticate(engine, log, false)
}

// OptionalAuth attaches the identity of a valid bearer token and otherwise
// lets the request continue anonymously.
func OptionalAuth(engine *goIAM.Engine, log zerolog.Logger) gin.HandlerFunc {
	return authenticate(engine, log, true)
}

func authenticate(engine *goIAM.Engine, log zerolog.Logger, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if engine == nil {
			abort(c, http.StatusUnauthorized, goIAM.ErrUnauthenticated, "No autenticado")
			return
		}
		if engine.DevBypass() {
			log.Warn().
				Str("path", c.Request.URL.Path).
				Msg("auth bypass active: request served with development identity")
			attach(c, goIAM.DevIdentity())
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			if optional {
				c.Next()
				return
			}
			abort(c, http.StatusUnauthorized, goIAM.ErrUnauthenticated, "No autenticado")
			return
		}

		id, err := engine.Authenticate(c.Request.Context(), token)
		if err != nil {
			if optional {
				c.Next()
				return
			}
			if errors.Is(err, goIAM.ErrEngineNotReady) {
				abort(c, http.StatusInternalServerError, err, "Servicio no disponible")
				return
			}
			abort(c, http.StatusUnauthorized, goIAM.ErrInvalidToken, "Token inválido")
			return
		}

		attach(c, id)
		c.Next()
	}
}

func attach(c *gin.Context, id *goIAM.Identity) {
	c.Set(identityKey, id)
	c.Request = c.Request.WithContext(goIAM.WithActor(c.Request.Context(), id.Email))
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func abort(c *gin.Context, status int, err error, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"ok":    false,
		"code":  goIAM.ErrorCode(err),
		"error": message,
	})
}
