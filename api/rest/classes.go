package rest

import (
	"net/http"
	"strconv"

	"github.com/chunxia/legion/game/board"
	"github.com/gin-gonic/gin"
)

// ClassHandler exposes the class to board mapping.
type ClassHandler struct {
	classes *board.ClassStore
}

// NewClassHandler creates a ClassHandler.
func NewClassHandler(classes *board.ClassStore) *ClassHandler {
	return &ClassHandler{classes: classes}
}

// List handles GET /api/classes.
func (h *ClassHandler) List(c *gin.Context) {
	ok(c, h.classes.Config())
}

// Boards handles GET /api/classes/:name/boards. name may be the class id or
// any of its names.
func (h *ClassHandler) Boards(c *gin.Context) {
	name := c.Param("name")
	m, found := h.classes.ByName(name)
	if !found {
		if id, err := strconv.Atoi(name); err == nil {
			m, found = h.classes.ByClassID(id)
		}
	}
	if !found {
		fail(c, http.StatusNotFound, "未知职业: "+name)
		return
	}
	ok(c, gin.H{"classId": m.ClassID, "className": m.ClassName, "boardIds": m.BoardIDs})
}
