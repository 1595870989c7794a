package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	goIAM "github.com/MrEthical07/goIAM"
)

type rolePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

type syncPermissionsRequest struct {
	Permissions []goIAM.PermissionInput `json:"permissions"`
}

/* ==== ROLES ==== */

func (h HandlerSet) ListRoles(c *gin.Context) {
	roles, err := h.engine.ListRoles(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "items": roles})
}

func (h HandlerSet) CreateRole(c *gin.Context) {
	var req goIAM.RoleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "cuerpo inválido")
		return
	}

	role, err := h.engine.CreateRole(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "role": role})
}

func (h HandlerSet) UpdateRole(c *gin.Context) {
	var req goIAM.RoleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "cuerpo inválido")
		return
	}

	role, err := h.engine.UpdateRole(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "role": role})
}

func (h HandlerSet) DeleteRole(c *gin.Context) {
	if err := h.engine.DeleteRole(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h HandlerSet) RolePermissions(c *gin.Context) {
	perms, err := h.engine.RolePermissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "permissions": perms})
}

func (h HandlerSet) SetRolePermissions(c *gin.Context) {
	var req rolePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "permissions es requerido")
		return
	}

	role, err := h.engine.SetRolePermissions(c.Request.Context(), c.Param("id"), req.Permissions)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "role": role})
}

/* ==== PERMISSIONS ==== */

func (h HandlerSet) ListPermissions(c *gin.Context) {
	perms, err := h.engine.ListPermissions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "items": perms})
}

func (h HandlerSet) CreatePermission(c *gin.Context) {
	var req goIAM.PermissionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "cuerpo inválido")
		return
	}

	perm, err := h.engine.CreatePermission(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "permission": perm})
}

func (h HandlerSet) UpdatePermission(c *gin.Context) {
	var req goIAM.PermissionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "cuerpo inválido")
		return
	}

	perm, err := h.engine.UpdatePermission(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "permission": perm})
}

func (h HandlerSet) DeletePermission(c *gin.Context) {
	if err := h.engine.DeletePermission(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h HandlerSet) SyncPermissions(c *gin.Context) {
	var req syncPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "permissions es requerido")
		return
	}

	n, err := h.engine.SyncPermissions(c.Request.Context(), req.Permissions)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": n})
}
