package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/MrEthical07/goIAM/middleware"
	"github.com/MrEthical07/goIAM/permission"
)

// APIPrefix is the mount point of every IAM endpoint.
const APIPrefix = "/api/iam/v1"

// Options carries the optional collaborators of a HandlerSet.
type Options struct {
	Environment string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

type HandlerSet struct {
	log    zerolog.Logger
	engine *goIAM.Engine
	opts   Options
}

func NewHandlerSet(log zerolog.Logger, engine *goIAM.Engine, opts Options) HandlerSet {
	return HandlerSet{
		log:    log,
		engine: engine,
		opts:   opts,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	if h.opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.opts.Metrics))
	}

	requireAuth := middleware.RequireAuth(h.engine, h.log)
	optionalAuth := middleware.OptionalAuth(h.engine, h.log)
	require := func(anyOf ...string) gin.HandlerFunc {
		return middleware.RequirePermission(h.engine, anyOf...)
	}

	v1 := router.Group(APIPrefix)
	{
		auth := v1.Group("/auth")
		auth.POST("/login", h.Login)
		auth.POST("/password-code/request", h.RequestPasswordCode)
		auth.POST("/password-code/verify", h.VerifyPasswordCode)
		auth.POST("/change-password", h.ChangePassword)
		auth.POST("/check-email", h.CheckEmail)
		auth.POST("/logout", optionalAuth, h.Logout)
		auth.GET("/session/me", requireAuth, h.SessionMe)
		auth.GET("/password-policy", h.PasswordPolicy)
		auth.POST("/password-policy/evaluate", h.EvaluatePassword)

		me := v1.Group("/me")
		me.Use(optionalAuth)
		me.GET("", h.Me)
		me.GET("/navigation", h.Navigation)
	}

	users := v1.Group("/users")
	users.Use(requireAuth, require(permission.UsersManage))
	{
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUser)
		users.PATCH("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
		users.POST("/:id/enable", h.EnableUser)
		users.POST("/:id/disable", h.DisableUser)
		users.POST("/:id/password", h.SetUserPassword)
	}

	roles := v1.Group("/roles")
	roles.Use(requireAuth)
	{
		roles.GET("", require(permission.RolesManage, permission.UsersManage), h.ListRoles)
		roles.POST("", require(permission.RolesManage), h.CreateRole)
		roles.PATCH("/:id", require(permission.RolesManage), h.UpdateRole)
		roles.DELETE("/:id", require(permission.RolesManage), h.DeleteRole)
		roles.GET("/:id/permissions", require(permission.RolesManage), h.RolePermissions)
		roles.PUT("/:id/permissions", require(permission.RolesManage), h.SetRolePermissions)
	}

	perms := v1.Group("/permissions")
	perms.Use(requireAuth, require(permission.RolesManage))
	{
		perms.GET("", h.ListPermissions)
		perms.POST("", h.CreatePermission)
		perms.POST("/sync", h.SyncPermissions)
		perms.PATCH("/:id", h.UpdatePermission)
		perms.DELETE("/:id", h.DeletePermission)
	}

	params := v1.Group("/system-parameters")
	params.Use(requireAuth, require(permission.ParamsManage))
	{
		params.GET("", h.ListParameters)
		params.GET("/:key", h.GetParameter)
		params.PUT("/:key", h.PutParameter)
		params.DELETE("/:key", h.DeleteParameter)
	}

	audit := v1.Group("/audit")
	audit.Use(requireAuth)
	{
		audit.GET("", require(permission.AuditRead, permission.RolesManage), h.ListAudit)
		audit.POST("", h.RecordAudit)
		audit.DELETE("/cleanup", require(permission.RolesManage), h.CleanupAudit)
	}
}
