package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/victorivanov/parley/internal/api"
	"github.com/victorivanov/parley/internal/auth"
	"github.com/victorivanov/parley/internal/config"
	"github.com/victorivanov/parley/internal/database"
	"github.com/victorivanov/parley/internal/gateway"
	redisclient "github.com/victorivanov/parley/internal/redis"
	"github.com/victorivanov/parley/internal/service"
	"github.com/victorivanov/parley/internal/snowflake"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// --- Infrastructure ---

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	rdb, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	sf, err := snowflake.NewGenerator(1, 1)
	if err != nil {
		log.Fatalf("snowflake: %v", err)
	}
	tokenSvc := auth.NewTokenService(cfg.JWTSecret, cfg.AccessExpiry)

	// --- Repositories ---

	users := database.NewUserRepository(pool)
	servers := database.NewServerRepository(pool)
	channels := database.NewChannelRepository(pool)
	roles := database.NewRoleRepository(pool)
	members := database.NewMemberRepository(pool)

	// --- Gateway ---

	presence := gateway.NewPresenceService(rdb, members)
	gwManager := gateway.NewManager(tokenSvc, users, presence)
	synchronizer := gateway.NewSynchronizer(gwManager, members, roles, channels)
	gwManager.SetSynchronizer(synchronizer)
	defer synchronizer.Close()

	// --- Services ---

	perms := service.NewPermissionService(servers, members, roles, channels)
	hierarchy := service.NewHierarchyGuard(servers, members, roles)
	serverSvc := service.NewServerService(servers, roles, members, channels, sf, gwManager, synchronizer)
	channelSvc := service.NewChannelService(channels, members, roles, sf, perms, gwManager, synchronizer)
	roleSvc := service.NewRoleService(roles, members, sf, perms, hierarchy, gwManager, synchronizer)
	memberSvc := service.NewMemberService(servers, members, perms, hierarchy, gwManager, synchronizer)

	// --- Handlers ---

	deps := &api.Dependencies{
		Servers:      api.NewServerHandler(serverSvc),
		Channels:     api.NewChannelHandler(channelSvc),
		Members:      api.NewMemberHandler(memberSvc),
		Roles:        api.NewRoleHandler(roleSvc),
		Gateway:      gwManager,
		TokenService: tokenSvc,
		Redis:        rdb,
	}

	// --- Echo ---

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.SetupRouter(e, deps)

	// --- Start ---

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("parley starting on %s", cfg.ServerAddr)
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("shutting down...")
	if err := e.Shutdown(context.Background()); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
