package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apirest "github.com/chunxia/legion/api/rest"
	"github.com/chunxia/legion/aion"
	"github.com/chunxia/legion/audit"
	"github.com/chunxia/legion/cache"
	"github.com/chunxia/legion/config"
	dbadapter "github.com/chunxia/legion/db"
	"github.com/chunxia/legion/game/board"
	"github.com/chunxia/legion/game/character"
	"github.com/chunxia/legion/game/effect"
	"github.com/chunxia/legion/game/power"
	"github.com/chunxia/legion/game/roster"
	mw "github.com/chunxia/legion/middleware"
	"github.com/chunxia/legion/model"
	"github.com/chunxia/legion/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// initialSyncDelay gives the server time to come up before the first roster sync.
const initialSyncDelay = 10 * time.Second

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}
	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = uuid.New().String() + uuid.New().String()
		logger.Warn("security.jwt_secret is not set; admin sessions will not survive a restart")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache ----
	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Upstream + core ----
	api := aion.NewClient(aion.Config{
		BaseURL:        cfg.Upstream.BaseURL,
		Lang:           cfg.Upstream.Lang,
		Timeout:        cfg.Upstream.Timeout,
		RateLimitRPS:   cfg.Upstream.RateLimitRPS,
		RateLimitBurst: cfg.Upstream.RateLimitBurst,
	}, logger)

	policy, err := effect.ParsePolicy(cfg.Daevanion.FlagPolicy)
	if err != nil {
		log.Fatalf("daevanion: %v", err)
	}
	classes := board.NewClassStore(cfg.Daevanion.ClassMappingPath, logger)
	resolver := board.NewResolver(classes, api, cfg.Daevanion.Concurrency, logger)
	calc := power.NewCalculator(power.Rules{
		EquipmentAttack:        cfg.Power.EquipmentAttack,
		EquipmentAttackPercent: cfg.Power.EquipmentAttackPercent,
		DaevanionFlat:          cfg.Power.DaevanionFlat,
		Destruction:            cfg.Power.Destruction,
		Strength:               cfg.Power.Strength,
		SecondaryPercent:       cfg.Power.SecondaryPercent,
	}, policy)
	charSvc := character.NewService(api, resolver, calc, c, character.Config{
		CharacterTTL: cfg.Cache.CharacterTTL,
		CompareTTL:   cfg.Cache.CompareTTL,
	}, logger)

	// ---- Roster ----
	syncer := roster.NewSyncer(db, c, charSvc, auditSvc, roster.Config{MemberDelay: cfg.Roster.MemberDelay}, logger)
	members := make([]model.Member, 0, len(cfg.Roster.Members))
	for _, m := range cfg.Roster.Members {
		members = append(members, model.Member{ID: m.ID, Name: m.Name, Role: m.Role, CharacterID: m.CharacterID, ServerID: m.ServerID})
	}
	if err := syncer.Seed(context.Background(), members); err != nil {
		log.Fatalf("roster seed: %v", err)
	}
	for i := range members {
		if msg := members[i].CharacterError(); msg != "" {
			logger.Warn("roster member not syncable", zap.String("member_id", members[i].ID), zap.String("reason", msg))
		}
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	if cfg.Roster.Enabled && cfg.Roster.SyncInterval > 0 {
		sched.AddTicker(roster.TaskName, cfg.Roster.SyncInterval, syncer.Task)
		sched.AddDelay("roster_initial_sync", initialSyncDelay, func(context.Context) error {
			return sched.RunNow(roster.TaskName)
		})
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	charH := apirest.NewCharacterHandler(charSvc, logger)
	classH := apirest.NewClassHandler(classes)
	rankH := apirest.NewRankingHandler(syncer, logger)
	authH := apirest.NewAuthHandler(cfg.Server.AdminKey, c, cfg.Security, logger)
	adminH := apirest.NewAdminHandler(classes, charSvc, syncer, sched, auditSvc, logger)

	apiG := r.Group("/api")
	{
		charG := apiG.Group("/character")
		charG.GET("/info", charH.Info)
		charG.GET("/equipment", charH.Equipment)
		charG.GET("/daevanion", charH.Daevanion)
		charG.GET("/complete", charH.Complete)
		charG.GET("/attack-power", charH.AttackPower)
		charG.GET("/compare", charH.Compare)

		apiG.GET("/classes", classH.List)
		apiG.GET("/classes/:name/boards", classH.Boards)

		apiG.GET("/ranking/power", rankH.Power)

		apiG.POST("/admin/login", mw.IPWhitelist(cfg.Security.AdminAllowIPs), authH.Login)

		adminG := apiG.Group("/admin")
		adminG.Use(mw.IPWhitelist(cfg.Security.AdminAllowIPs))
		adminG.Use(mw.AdminAuth(mw.AdminAuthConfig{AdminKey: cfg.Server.AdminKey, JWTSecret: cfg.Security.JWTSecret}, c))
		adminG.POST("/logout", authH.Logout)
		adminG.POST("/classes/reload", adminH.ReloadClasses)
		adminG.POST("/sync", adminH.Sync)
		adminG.GET("/scheduler", adminH.Scheduler)
		adminG.GET("/members", adminH.Members)
		adminG.GET("/audit", adminH.AuditLogs)
		adminG.POST("/character/refresh", adminH.RefreshCharacter)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		logger.Info("Server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}
