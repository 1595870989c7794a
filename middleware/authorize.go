package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	goIAM "github.com/MrEthical07/goIAM"
)

// RequirePermission allows the request when the attached identity holds any
// of anyOf, as a permission or as a role. It must run after an auth gate.
func RequirePermission(engine *goIAM.Engine, anyOf ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		if err := engine.Authorize(id, anyOf...); err != nil {
			if id == nil {
				abort(c, http.StatusUnauthorized, err, "No autenticado")
				return
			}
			abort(c, http.StatusForbidden, err, "Acceso denegado")
			return
		}
		c.Next()
	}
}
