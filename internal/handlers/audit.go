package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	goIAM "github.com/MrEthical07/goIAM"
)

const dateLayout = "2006-01-02"

var errBadDate = errors.New("fecha inválida, use YYYY-MM-DD o RFC3339")

// parseBound reads a date filter. A bare date expands to the start of the
// day, or to its last nanosecond when endOfDay is set. Both are UTC.
func parseBound(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseInLocation(dateLayout, raw, time.UTC); err == nil {
		if endOfDay {
			return d.Add(24*time.Hour - time.Nanosecond), nil
		}
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errBadDate
	}
	return t.UTC(), nil
}

func (h HandlerSet) ListAudit(c *gin.Context) {
	from, err := parseBound(c.Query("from"), false)
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}
	to, err := parseBound(c.Query("to"), true)
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	entries, total, err := h.engine.ListAudit(c.Request.Context(), goIAM.AuditQuery{
		Action: c.Query("action"),
		Actor:  c.Query("actor"),
		From:   from,
		To:     to,
		Limit:  queryInt(c, "limit", 0),
		Skip:   queryInt(c, "skip", 0),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"items": entries,
		"total": total,
	})
}

func (h HandlerSet) RecordAudit(c *gin.Context) {
	var req goIAM.AuditRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "action es requerido")
		return
	}

	if err := h.engine.RecordAudit(c.Request.Context(), req); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

// CleanupAudit deletes entries older than ?before=. Without it the
// configured retention applies.
func (h HandlerSet) CleanupAudit(c *gin.Context) {
	before, err := parseBound(c.Query("before"), false)
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	n, err := h.engine.CleanupAudit(c.Request.Context(), before)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": n})
}
