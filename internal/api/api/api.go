package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"wedsite/cmd/middleware"
	"wedsite/internal/auth"
	"wedsite/internal/dto"
	"wedsite/internal/metrics"
	"wedsite/internal/service"
)

type Routers struct {
	Service     service.Service
	Guard       *auth.AdminGuard
	BasePath    string
	BodyLimit   int64
	CORSOrigins []string
	Debug       bool
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(gin.CustomRecovery(recoverJSON))
	app.Use(middleware.RequestID())
	app.Use(middleware.LoggingMiddleware())
	app.Use(metrics.GinMiddleware())
	app.Use(corsMiddleware(r.CORSOrigins))

	app.GET("/metrics", gin.WrapH(metrics.Handler()))
	if r.Debug {
		pprof.RouteRegister(&app.RouterGroup, "debug/pprof")
	}

	apiGroup := app.Group(basePath(r.BasePath))
	apiGroup.Use(middleware.BodyLimit(r.BodyLimit))

	apiGroup.GET("/health", r.Service.Health)

	apiGroup.POST("/rsvp", r.Service.SubmitRSVP)
	apiGroup.GET("/rsvps", r.Guard.Middleware(), r.Service.ListRSVPs)
	apiGroup.GET("/rsvp-stats", r.Service.RSVPStats)

	apiGroup.POST("/photos", r.Service.SubmitPhoto)
	apiGroup.GET("/photos", r.Service.ListPhotos)
	apiGroup.POST("/photos/:id/like", r.Service.LikePhoto)

	apiGroup.GET("/guestbook", r.Service.ListWishes)
	apiGroup.GET("/guestbook/featured", r.Service.FeaturedWishes)
	apiGroup.POST("/guestbook", r.Service.SubmitWish)

	apiGroup.POST("/contact", r.Service.SendContact)

	admin := apiGroup.Group("/admin", r.Guard.Middleware())
	admin.GET("/stats", r.Service.AdminSnapshot)
	admin.POST("/photos/:id/approve", r.Service.ApprovePhoto)
	admin.POST("/photos/:id/unapprove", r.Service.UnapprovePhoto)
	admin.DELETE("/photos/:id", r.Service.DeletePhoto)
	admin.POST("/guestbook/:id/feature", r.Service.ToggleWishFeatured)
	admin.DELETE("/guestbook/:id", r.Service.DeleteWish)

	app.NoRoute(func(c *ginext.Context) {
		dto.NotFoundError(c, dto.RouteNotFound)
	})

	return app
}

func recoverJSON(c *ginext.Context, recovered any) {
	zlog.Logger.Error().
		Interface("panic", recovered).
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Str("path", c.Request.URL.Path).
		Msg("handler panicked")
	dto.InternalServerError(c, "")
}

func basePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	cfg.ExposeHeaders = []string{middleware.RequestIDHeader}
	return cors.New(cfg)
}
