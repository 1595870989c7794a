package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	goIAM "github.com/MrEthical07/goIAM"
)

type setPasswordRequest struct {
	Password string `json:"password"`
}

// queryInt returns the integer query value or def when absent or malformed.
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	limit := queryInt(c, "limit", 0)
	skip := queryInt(c, "skip", 0)

	users, total, err := h.engine.ListUsers(c.Request.Context(), c.Query("q"), limit, skip)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"items": users,
		"total": total,
	})
}

func (h HandlerSet) GetUser(c *gin.Context) {
	user, err := h.engine.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

// CreateUser answers 201 even when the welcome email fails; the failure is
// reported in emailError.
func (h HandlerSet) CreateUser(c *gin.Context) {
	var req goIAM.CreateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "cuerpo inválido")
		return
	}

	res, err := h.engine.CreateUser(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{
		"ok":        true,
		"user":      res.User,
		"emailSent": res.EmailSent,
	}
	if res.EmailError != "" {
		body["emailError"] = res.EmailError
	}
	if req.Password == "" {
		body["tempPassword"] = res.TempPassword
	}
	c.JSON(http.StatusCreated, body)
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	var req goIAM.UserPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "cuerpo inválido")
		return
	}

	user, err := h.engine.UpdateUser(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

func (h HandlerSet) EnableUser(c *gin.Context)  { h.setActive(c, true) }
func (h HandlerSet) DisableUser(c *gin.Context) { h.setActive(c, false) }

func (h HandlerSet) setActive(c *gin.Context, active bool) {
	user, err := h.engine.SetUserActive(c.Request.Context(), c.Param("id"), active)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

// SetUserPassword accepts an empty body, in which case a password is
// generated and returned once.
func (h HandlerSet) SetUserPassword(c *gin.Context) {
	var req setPasswordRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "cuerpo inválido")
			return
		}
	}

	pw, err := h.engine.SetUserPassword(c.Request.Context(), c.Param("id"), req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{"ok": true, "mustChangePassword": true}
	if req.Password == "" {
		body["tempPassword"] = pw
	}
	c.JSON(http.StatusOK, body)
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	if err := h.engine.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
