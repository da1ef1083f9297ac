package rest

import (
	"net/http"
	"strconv"

	"github.com/chunxia/legion/game/character"
	"github.com/chunxia/legion/game/power"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CharacterHandler serves character data loaded through the character service.
type CharacterHandler struct {
	svc    *character.Service
	logger *zap.Logger
}

// NewCharacterHandler creates a CharacterHandler.
func NewCharacterHandler(svc *character.Service, logger *zap.Logger) *CharacterHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CharacterHandler{svc: svc, logger: logger}
}

// Info handles GET /api/character/info?characterId=&serverId=.
func (h *CharacterHandler) Info(c *gin.Context) {
	id, server, valid := characterQuery(c, "characterId", "serverId")
	if !valid {
		return
	}
	b, err := h.svc.Basic(c.Request.Context(), id, server)
	if err != nil {
		upstreamFail(c, h.logger, err)
		return
	}
	ok(c, b.Info)
}

// Equipment handles GET /api/character/equipment?characterId=&serverId=.
func (h *CharacterHandler) Equipment(c *gin.Context) {
	id, server, valid := characterQuery(c, "characterId", "serverId")
	if !valid {
		return
	}
	b, err := h.svc.Basic(c.Request.Context(), id, server)
	if err != nil {
		upstreamFail(c, h.logger, err)
		return
	}
	ok(c, b.Equipment)
}

// Daevanion handles GET /api/character/daevanion?characterId=&serverId=&boardId=.
func (h *CharacterHandler) Daevanion(c *gin.Context) {
	id, server, valid := characterQuery(c, "characterId", "serverId")
	if !valid {
		return
	}
	boardID, err := strconv.Atoi(c.Query("boardId"))
	if err != nil || boardID <= 0 {
		fail(c, http.StatusBadRequest, "缺少参数 boardId")
		return
	}
	b, err := h.svc.Daevanion(c.Request.Context(), id, server, boardID)
	if err != nil {
		upstreamFail(c, h.logger, err)
		return
	}
	ok(c, b)
}

// Complete handles GET /api/character/complete?characterId=&serverId=.
func (h *CharacterHandler) Complete(c *gin.Context) {
	id, server, valid := characterQuery(c, "characterId", "serverId")
	if !valid {
		return
	}
	out, err := h.svc.Complete(c.Request.Context(), id, server)
	if err != nil {
		upstreamFail(c, h.logger, err)
		return
	}
	ok(c, out)
}

type attackPowerResponse struct {
	power.Breakdown
	Disclaimer string `json:"disclaimer"`
}

// AttackPower handles GET /api/character/attack-power?characterId=&serverId=.
func (h *CharacterHandler) AttackPower(c *gin.Context) {
	id, server, valid := characterQuery(c, "characterId", "serverId")
	if !valid {
		return
	}
	b, err := h.svc.AttackPower(c.Request.Context(), id, server)
	if err != nil {
		upstreamFail(c, h.logger, err)
		return
	}
	ok(c, attackPowerResponse{Breakdown: b, Disclaimer: power.Disclaimer})
}

// Compare handles GET /api/character/compare?characterId=&serverId=&targetId=&targetServerId=[&stage=basic].
// stage=basic answers before the target's attack power is known.
func (h *CharacterHandler) Compare(c *gin.Context) {
	id, server, valid := characterQuery(c, "characterId", "serverId")
	if !valid {
		return
	}
	targetID, targetServer, valid := characterQuery(c, "targetId", "targetServerId")
	if !valid {
		return
	}

	load := h.svc.Compare
	if c.Query("stage") == character.StageBasic {
		load = h.svc.CompareBasic
	}
	report, err := load(c.Request.Context(), id, server, targetID, targetServer)
	if err != nil {
		upstreamFail(c, h.logger, err)
		return
	}
	ok(c, report)
}
