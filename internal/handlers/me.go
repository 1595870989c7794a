package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MrEthical07/goIAM/middleware"
)

// Me returns the caller view, or the visitor view without a token.
func (h HandlerSet) Me(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	sess, err := h.engine.Session(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{
		"ok":           true,
		"user":         sess.User,
		"roles":        sess.Roles,
		"permissions":  sess.Permissions,
		"visitor":      sess.Visitor,
		"isSuperAdmin": sess.IsSuperAdmin,
	}
	if !sess.Visitor {
		body["email"] = sess.Email
	}
	c.JSON(http.StatusOK, body)
}

func (h HandlerSet) Navigation(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"items": h.engine.Navigation(id),
	})
}
