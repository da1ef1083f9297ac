package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chunxia/legion/api/rest"
	"github.com/chunxia/legion/audit"
	"github.com/chunxia/legion/cache"
	"github.com/chunxia/legion/config"
	"github.com/chunxia/legion/game/board"
	"github.com/chunxia/legion/game/character"
	"github.com/chunxia/legion/game/effect"
	"github.com/chunxia/legion/game/power"
	"github.com/chunxia/legion/game/roster"
	mw "github.com/chunxia/legion/middleware"
	"github.com/chunxia/legion/scheduler"
	"github.com/chunxia/legion/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testAdminKey  = "admin-secret"
	testJWTSecret = "test-jwt-secret-32bytes-padded!!"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type env struct {
	up          *testutil.FakeUpstream
	db          *gorm.DB
	cache       cache.Cache
	classes     *board.ClassStore
	classesPath string
	svc         *character.Service
	syncer      *roster.Syncer
	sched       *scheduler.Scheduler
	audit       *audit.Service
	router      *gin.Engine
}

func writeClasses(t *testing.T, path string, cfg board.ClassConfig) {
	t.Helper()
	b, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		up:    testutil.NewFakeUpstream(t),
		db:    testutil.SetupTestDB(t),
		cache: testutil.SetupTestCache(t),
	}
	e.classesPath = filepath.Join(t.TempDir(), "class_board_mapping.json")
	writeClasses(t, e.classesPath, testutil.SampleClasses())
	e.classes = board.NewClassStore(e.classesPath, nil)

	api := e.up.Client()
	resolver := board.NewResolver(e.classes, api, 0, nil)
	calc := power.NewCalculator(power.DefaultRules(), effect.LastWrite)
	e.svc = character.NewService(api, resolver, calc, e.cache, character.Config{}, nil)

	e.audit = audit.New(e.db, nil)
	t.Cleanup(func() { e.audit.Stop(context.Background()) })
	e.syncer = roster.NewSyncer(e.db, e.cache, e.svc, e.audit, roster.Config{}, nil)
	e.sched = scheduler.New(nil)
	t.Cleanup(e.sched.Stop)

	e.router = e.routes()
	return e
}

func (e *env) routes() *gin.Engine {
	sec := config.SecurityConfig{JWTSecret: testJWTSecret}
	charH := rest.NewCharacterHandler(e.svc, nil)
	classH := rest.NewClassHandler(e.classes)
	rankH := rest.NewRankingHandler(e.syncer, nil)
	authH := rest.NewAuthHandler(testAdminKey, e.cache, sec, nil)
	adminH := rest.NewAdminHandler(e.classes, e.svc, e.syncer, e.sched, e.audit, nil)

	r := gin.New()
	r.Use(mw.TraceID())
	api := r.Group("/api")
	api.GET("/character/info", charH.Info)
	api.GET("/character/equipment", charH.Equipment)
	api.GET("/character/daevanion", charH.Daevanion)
	api.GET("/character/complete", charH.Complete)
	api.GET("/character/attack-power", charH.AttackPower)
	api.GET("/character/compare", charH.Compare)
	api.GET("/classes", classH.List)
	api.GET("/classes/:name/boards", classH.Boards)
	api.GET("/ranking/power", rankH.Power)
	api.POST("/admin/login", authH.Login)

	adminG := api.Group("/admin")
	adminG.Use(mw.AdminAuth(mw.AdminAuthConfig{AdminKey: testAdminKey, JWTSecret: testJWTSecret}, e.cache))
	adminG.POST("/logout", authH.Logout)
	adminG.POST("/classes/reload", adminH.ReloadClasses)
	adminG.POST("/sync", adminH.Sync)
	adminG.GET("/scheduler", adminH.Scheduler)
	adminG.GET("/members", adminH.Members)
	adminG.GET("/audit", adminH.AuditLogs)
	adminG.POST("/character/refresh", adminH.RefreshCharacter)
	return r
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (e *env) do(t *testing.T, method, path string, headers map[string]string, body string) (int, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (e *env) get(t *testing.T, path string) (int, apiResponse) {
	return e.do(t, http.MethodGet, path, nil, "")
}

func admin() map[string]string { return map[string]string{mw.AdminKeyHeader: testAdminKey} }

func decode(t *testing.T, raw json.RawMessage, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, out))
}
