package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/MrEthical07/goIAM/middleware"
)

// logoutCookies are cleared on logout. They cover the names used by the
// local issuer and by the hosted identity provider the service migrated
// from.
var logoutCookies = []string{"access_token", "id_token", "refresh_token", "token", "jwt", "connect.sid"}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type changePasswordRequest struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type evaluateRequest struct {
	Password string `json:"password"`
}

func loginResponse(res *goIAM.LoginResult) gin.H {
	return gin.H{
		"ok":          true,
		"token":       res.Token,
		"expiresAt":   res.ExpiresAt.UTC(),
		"user":        res.User,
		"roles":       res.Roles,
		"permissions": res.Permissions,
	}
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "email y password son requeridos")
		return
	}

	res, err := h.engine.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse(res))
}

func (h HandlerSet) RequestPasswordCode(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "email es requerido")
		return
	}

	status, err := h.engine.RequestPasswordCode(c.Request.Context(), req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                true,
		"expiresAt":         status.ExpiresAt.UTC(),
		"attemptsRemaining": status.AttemptsRemaining,
	})
}

func (h HandlerSet) VerifyPasswordCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "email y code son requeridos")
		return
	}

	status, err := h.engine.VerifyPasswordCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"expiresAt": status.ExpiresAt.UTC(),
	})
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "email y newPassword son requeridos")
		return
	}

	res, err := h.engine.ChangePassword(c.Request.Context(), req.Email, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse(res))
}

func (h HandlerSet) CheckEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "email es requerido")
		return
	}

	st, err := h.engine.CheckEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                 true,
		"exists":             st.Exists,
		"active":             st.Active,
		"mustChangePassword": st.MustChangePassword,
	})
}

// Logout is stateless: tokens stay valid until expiry. It clears the
// browser cookies and records the event.
func (h HandlerSet) Logout(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	h.engine.Logout(c.Request.Context(), id)

	for _, name := range logoutCookies {
		c.SetCookie(name, "", -1, "/", "", false, true)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h HandlerSet) SessionMe(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	sess, err := h.engine.Session(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"user":         sess.User,
		"roles":        sess.Roles,
		"permissions":  sess.Permissions,
		"tokenPayload": sess.TokenPayload,
	})
}

func (h HandlerSet) PasswordPolicy(c *gin.Context) {
	view := h.engine.PasswordPolicy(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"policy": view.Policy,
		"rules":  view.Rules,
	})
}

func (h HandlerSet) EvaluatePassword(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "password es requerido")
		return
	}

	res := h.engine.EvaluatePassword(c.Request.Context(), req.Password)
	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"valid": res.Valid,
		"rules": res.Rules,
	})
}
