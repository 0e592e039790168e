package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coderoom/coderoom/internal/adapters/signal"
	"github.com/coderoom/coderoom/internal/app"
	"github.com/coderoom/coderoom/internal/config"
)

// ClientTokenMiddleware mints a stable per-browser token. It doubles as
// the connection identity on the realtime channel, which is what lets a
// page reload reconnect inside its disconnect grace window.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("CodeRoomSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	chatLimit := signal.NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow)
	ctrl := signal.NewController(orch, cfg.ReadLimit, chatLimit)
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	auth := NewAuthHandler([]byte(cfg.JWTSecret))
	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)
	api.GET("/auth/me", auth.Me)

	compile := NewCompileHandler(cfg)
	api.POST("/compile", compile.Handle)

	api.GET("/status", func(c *gin.Context) {
		rooms, conns := orch.Registry.Stats()
		c.JSON(200, gin.H{"rooms": rooms, "connections": conns})
	})

	return r
}
