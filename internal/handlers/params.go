package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	goIAM "github.com/MrEthical07/goIAM"
)

func (h HandlerSet) ListParameters(c *gin.Context) {
	items, err := h.engine.ListParameters(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "items": items})
}

func (h HandlerSet) GetParameter(c *gin.Context) {
	p, err := h.engine.GetParameter(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "parameter": p})
}

func (h HandlerSet) PutParameter(c *gin.Context) {
	var req goIAM.ParameterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "value es requerido")
		return
	}

	p, err := h.engine.PutParameter(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "parameter": p})
}

func (h HandlerSet) DeleteParameter(c *gin.Context) {
	if err := h.engine.DeleteParameter(c.Request.Context(), c.Param("key")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
