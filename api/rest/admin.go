package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/chunxia/legion/audit"
	"github.com/chunxia/legion/game/board"
	"github.com/chunxia/legion/game/character"
	"github.com/chunxia/legion/game/roster"
	mw "github.com/chunxia/legion/middleware"
	"github.com/chunxia/legion/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by the AdminAuth middleware.
type AdminHandler struct {
	classes *board.ClassStore
	svc     *character.Service
	syncer  *roster.Syncer
	sched   *scheduler.Scheduler
	audit   *audit.Service
	logger  *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	classes *board.ClassStore,
	svc *character.Service,
	syncer *roster.Syncer,
	sched *scheduler.Scheduler,
	auditSvc *audit.Service,
	logger *zap.Logger,
) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{classes: classes, svc: svc, syncer: syncer, sched: sched, audit: auditSvc, logger: logger}
}

func (h *AdminHandler) record(c *gin.Context, e audit.AuditEntry) {
	e.TraceID = mw.GetTraceID(c)
	e.IP = c.ClientIP()
	h.audit.Log(e)
}

// ReloadClasses re-reads the class to board mapping file.
// POST /api/admin/classes/reload
func (h *AdminHandler) ReloadClasses(c *gin.Context) {
	start := time.Now()
	err := h.classes.Reload()
	cfg := h.classes.Config()
	entry := audit.AuditEntry{
		Action:     audit.ActionClassReload,
		Request:    gin.H{"by": mw.GetAdminSubject(c)},
		Response:   gin.H{"version": cfg.Version, "classes": len(cfg.Classes)},
		DurationMs: int(time.Since(start).Milliseconds()),
	}
	if err != nil {
		entry.Error = err.Error()
		h.record(c, entry)
		h.logger.Warn("class mapping reload failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "职业配置加载失败: "+err.Error())
		return
	}
	h.record(c, entry)
	ok(c, gin.H{"version": cfg.Version, "lastUpdated": cfg.LastUpdated, "classes": len(cfg.Classes)})
}

// Sync starts a roster sync in the background.
// POST /api/admin/sync
func (h *AdminHandler) Sync(c *gin.Context) {
	err := h.sched.RunNow(roster.TaskName)
	switch {
	case errors.Is(err, scheduler.ErrUnknownTask):
		fail(c, http.StatusServiceUnavailable, "roster sync disabled")
		return
	case errors.Is(err, scheduler.ErrTaskRunning):
		fail(c, http.StatusConflict, "sync already running")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	h.record(c, audit.AuditEntry{Action: audit.ActionManualSync, Request: gin.H{"by": mw.GetAdminSubject(c)}})
	c.JSON(http.StatusAccepted, envelope{Success: true, Data: gin.H{"task": roster.TaskName}})
}

// Scheduler lists ticker tasks and how they last ran.
// GET /api/admin/scheduler
func (h *AdminHandler) Scheduler(c *gin.Context) {
	ok(c, gin.H{"tasks": h.sched.Status()})
}

type memberView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	CharacterID string `json:"characterId"`
	ServerID    int    `json:"serverId"`
	Problem     string `json:"problem,omitempty"`
}

// Members lists roster members with their configuration problems.
// GET /api/admin/members
func (h *AdminHandler) Members(c *gin.Context) {
	members, err := h.syncer.Members(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "db error")
		return
	}
	out := make([]memberView, len(members))
	for i := range members {
		m := &members[i]
		out[i] = memberView{ID: m.ID, Name: m.Name, Role: m.Role, CharacterID: m.CharacterID, ServerID: m.ServerID, Problem: m.CharacterError()}
	}
	ok(c, gin.H{"members": out})
}

// AuditLogs returns recent audit rows.
// GET /api/admin/audit?action=member_sync&limit=50
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := h.audit.Recent(c.Request.Context(), c.Query("action"), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "db error")
		return
	}
	ok(c, gin.H{"logs": logs})
}

// RefreshCharacter drops a character's cached stages and compare reports.
// POST /api/admin/character/refresh?characterId=&serverId=
func (h *AdminHandler) RefreshCharacter(c *gin.Context) {
	id, server, valid := characterQuery(c, "characterId", "serverId")
	if !valid {
		return
	}
	entry := audit.AuditEntry{Action: audit.ActionCacheRefresh, CharacterID: id, ServerID: server}
	if err := h.svc.Invalidate(c.Request.Context(), id, server); err != nil {
		entry.Error = err.Error()
		h.record(c, entry)
		fail(c, http.StatusInternalServerError, "cache error")
		return
	}
	h.record(c, entry)
	ok(c, gin.H{"characterId": id, "serverId": server})
}
