package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/parley/internal/auth"
	"github.com/victorivanov/parley/internal/gateway"
	"github.com/victorivanov/parley/internal/redis"
)

// Dependencies holds all handler instances and middleware for route wiring.
type Dependencies struct {
	Servers  *ServerHandler
	Channels *ChannelHandler
	Members  *MemberHandler
	Roles    *RoleHandler
	Gateway  *gateway.Manager

	TokenService *auth.TokenService
	Redis        *redis.Client
}

// SetupRouter registers all API routes on the Echo instance.
func SetupRouter(e *echo.Echo, deps *Dependencies) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// WebSocket gateway
	e.GET("/gateway", deps.Gateway.HandleWebSocket)

	v1 := e.Group("/api/v1")

	// All routes require JWT auth + general rate limit
	authMw := deps.TokenService.Middleware()
	protected := v1.Group("", authMw,
		RateLimitMiddleware(deps.Redis, 50, time.Minute),
	)

	// Servers
	protected.POST("/servers", deps.Servers.CreateServer)
	protected.GET("/servers/:id", deps.Servers.GetServer)
	protected.DELETE("/servers/:id", deps.Servers.DeleteServer)
	protected.GET("/users/@me/servers", deps.Servers.ListMyServers)

	// Channels
	protected.POST("/servers/:id/channels", deps.Channels.CreateChannel)
	protected.GET("/servers/:id/channels", deps.Channels.ListChannels)
	protected.POST("/servers/:id/categories", deps.Channels.CreateCategory)
	protected.GET("/servers/:id/categories", deps.Channels.ListCategories)
	protected.GET("/channels/:id", deps.Channels.GetChannel)
	protected.PATCH("/channels/:id", deps.Channels.UpdateChannel)
	protected.DELETE("/channels/:id", deps.Channels.DeleteChannel)

	// Channel permission overrides — replaces the full override list
	protected.PUT("/channels/:id/permissions", deps.Channels.ApplyOverrides)

	// Direct messages
	protected.POST("/users/@me/channels", deps.Channels.CreateDM)
	protected.GET("/users/@me/channels", deps.Channels.ListDMs)

	// Members
	protected.PUT("/servers/:id/members/@me", deps.Members.Join)
	protected.DELETE("/servers/:id/members/@me", deps.Members.Leave)
	protected.GET("/servers/:id/members", deps.Members.List)
	protected.PATCH("/servers/:id/members/:user_id", deps.Members.UpdateNickname)
	protected.DELETE("/servers/:id/members/:user_id", deps.Members.Kick)

	// Roles
	protected.POST("/servers/:id/roles", deps.Roles.CreateRole)
	protected.GET("/servers/:id/roles", deps.Roles.ListRoles)
	protected.PATCH("/servers/:id/roles/:role_id", deps.Roles.UpdateRole)
	protected.DELETE("/servers/:id/roles/:role_id", deps.Roles.DeleteRole)
	protected.PUT("/servers/:id/members/:user_id/roles/:role_id", deps.Roles.AssignRole)
	protected.DELETE("/servers/:id/members/:user_id/roles/:role_id", deps.Roles.RevokeRole)
}
