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

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/rpg2kbattle/api/rest"
	"github.com/kasuganosora/rpg2kbattle/api/sse"
	"github.com/kasuganosora/rpg2kbattle/api/ws"
	"github.com/kasuganosora/rpg2kbattle/asset"
	"github.com/kasuganosora/rpg2kbattle/cache"
	"github.com/kasuganosora/rpg2kbattle/config"
	dbadapter "github.com/kasuganosora/rpg2kbattle/db"
	"github.com/kasuganosora/rpg2kbattle/game/session"
	"github.com/kasuganosora/rpg2kbattle/journal"
	mw "github.com/kasuganosora/rpg2kbattle/middleware"
	"github.com/kasuganosora/rpg2kbattle/model"
	"github.com/kasuganosora/rpg2kbattle/plugin/hook"
	"github.com/kasuganosora/rpg2kbattle/plugin/script"
	"github.com/kasuganosora/rpg2kbattle/resource"
	"github.com/kasuganosora/rpg2kbattle/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Default()
	if len(os.Args) > 1 {
		loaded, err := config.Load(os.Args[1])
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Game database ----
	res := resource.NewLoader(cfg.Data.DataPath)
	if err := res.Load(); err != nil {
		log.Fatalf("resources: %v", err)
	}
	logger.Info("Game database loaded",
		zap.String("path", cfg.Data.DataPath),
		zap.Int("troops", len(res.Troops)),
		zap.Int("enemies", len(res.Enemies)))

	assets := asset.NewResolver(asset.Config{
		GameDir:  cfg.Data.GameDir,
		RTPPaths: cfg.Data.RTPPaths,
		Cache:    c,
		CacheTTL: cfg.Data.AssetCacheTTL,
		Logger:   logger,
	})

	// ---- Scheduler / hooks ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	hooks := hook.NewHookCenter()
	jr := journal.New(db, journal.Config{Logger: logger})
	defer jr.Stop(context.Background())
	jr.Register(hooks)

	if cfg.Script.Dir != "" {
		scripts, err := script.LoadDir(cfg.Script.Dir)
		if err != nil {
			log.Fatalf("scripts: %v", err)
		}
		pool := script.NewVMPool(cfg.Script.VMPoolSize, cfg.Script.Timeout, logger)
		script.NewRunner(pool, scripts, logger).Register(hooks)
	}

	// ---- Battle sessions ----
	opts := session.OptionsFromConfig(cfg.Battle)
	sessions := session.NewManager(session.ManagerConfig{
		Data:      res,
		Scheduler: sched,
		PubSub:    pubsub,
		Assets:    assets,
		Hooks:     hooks,
		Options:   opts,
		Logger:    logger,
	})
	defer sessions.StopAll()

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": len(sessions.IDs())})
	})

	api := r.Group("/api")
	api.Use(mw.RateLimit(ctx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))
	battleH := apirest.NewBattleHandler(apirest.BattleHandlerConfig{
		Data:     res,
		Sessions: sessions,
		Journal:  jr,
		Hooks:    hooks,
		Options:  opts,
		Logger:   logger,
	})
	battleH.Register(api)

	sseH := sse.NewHandler(pubsub, sessions, logger)
	api.GET("/sessions/:id/events", sseH.ServeBattle)

	wsH := ws.NewHandler(ws.HandlerConfig{
		Sessions: sessions,
		PubSub:   pubsub,
		Security: cfg.Security,
		Logger:   logger,
	})
	api.GET("/sessions/:id/ws", wsH.ServeBattle)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("Server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	logger.Info("Server stopped")
}
