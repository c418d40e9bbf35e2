package main

import (
	"fad-monitoring-backend/internal/config"
	"fad-monitoring-backend/internal/handler"
	"fad-monitoring-backend/internal/logger"
	"fad-monitoring-backend/internal/metrics"
	"fad-monitoring-backend/internal/middleware"
	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/service"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type routerDeps struct {
	log         logrus.FieldLogger
	authn       *middleware.Authenticator
	limits      *rateLimits
	auth        *service.AuthService
	users       *service.UserService
	areas       *service.AreaService
	photos      *service.PhotoService
	fads        *service.FadService
	vendors     *service.VendorService
	programInfo *service.ProgramInfoService
	changeLogs  *service.ChangeLogService
}

func newRouter(cfg *config.Config, d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(d.log), metrics.Middleware(), middleware.CORS(cfg.CORS.AllowedOrigins))

	uploadBody := int64(cfg.Upload.MaxFiles)*cfg.Upload.MaxFileSize + 1<<20

	authHandler := handler.NewAuthHandler(d.auth, handler.CookieConfig{
		Path:   "/api",
		Secure: cfg.Server.Production(),
		MaxAge: int(cfg.JWT.RefreshTokenExpiry.Seconds()),
	})
	userHandler := handler.NewUserHandler(d.users)
	areaHandler := handler.NewAreaHandler(d.areas)
	photoHandler := handler.NewPhotoHandler(d.photos, uploadBody)
	fadHandler := handler.NewFadHandler(d.fads, d.vendors)
	infoHandler := handler.NewProgramInfoHandler(d.programInfo, cfg.Upload.MaxFileSize+1<<20)
	changeLogHandler := handler.NewChangeLogHandler(d.changeLogs)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{
			"status":  "healthy",
			"service": "fad-monitoring-backend",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.Static(cfg.Upload.PublicPath, cfg.Upload.Dir)

	api := r.Group("/api", d.limits.general)

	// Auth routes (public)
	api.POST("/login", d.limits.auth, authHandler.Login)
	api.POST("/register", d.limits.auth, d.authn.OptionalAuth(), authHandler.Register)
	api.POST("/refresh", middleware.RequireTrustedOrigin(cfg.CORS.AllowedOrigins, authHandler.ClearRefreshCookie), authHandler.Refresh)
	api.POST("/logout", authHandler.Logout)
	api.GET("/me", d.authn.RequireAuth(), authHandler.Me)

	// FAD reads are public
	api.GET("/fad", fadHandler.ListFads)
	api.GET("/fad/:id", fadHandler.GetFad)

	authed := api.Group("", d.authn.RequireAuth())
	admin := authed.Group("", middleware.RequireRole(models.RoleAdmin))

	photos := authed.Group("/photos")
	{
		photos.GET("", photoHandler.ListPhotos)
		photos.POST("", d.limits.upload, photoHandler.Upload)
		photos.GET("/:id", photoHandler.GetPhoto)
		photos.PATCH("/:id", photoHandler.UpdatePhoto)
		photos.DELETE("/:id", photoHandler.DeletePhoto)
	}

	groups := authed.Group("/comparison-groups")
	{
		groups.GET("", photoHandler.ListGroups)
		groups.POST("", photoHandler.CreateGroup)
		groups.GET("/:id", photoHandler.GetGroup)
		groups.PUT("/:id", photoHandler.UpdateGroup)
		groups.DELETE("/:id", photoHandler.DeleteGroup)
	}

	areas := authed.Group("/areas")
	{
		areas.GET("", areaHandler.GetAllAreas)
		areas.POST("", areaHandler.CreateArea)
		areas.PUT("/:id", middleware.RequireRole(models.RoleAdmin), areaHandler.UpdateArea)
		areas.DELETE("/:id", middleware.RequireRole(models.RoleAdmin), areaHandler.DeleteArea)
	}

	authed.GET("/program-info", infoHandler.ListImages)
	info := admin.Group("/program-info")
	{
		info.POST("", d.limits.upload, infoHandler.Upload)
		info.PUT("/order", infoHandler.Reorder)
		info.PUT("/:id", infoHandler.UpdateImage)
		info.DELETE("/:id", infoHandler.DeleteImage)
	}

	fad := admin.Group("/fad")
	{
		fad.POST("", fadHandler.CreateFad)
		fad.PUT("/:id", fadHandler.UpdateFad)
		fad.DELETE("/:id", fadHandler.DeleteFad)
	}

	authed.GET("/vendors", fadHandler.ListVendors)
	vendors := admin.Group("/vendors")
	{
		vendors.POST("", fadHandler.CreateVendor)
		vendors.PUT("/:id", fadHandler.UpdateVendor)
		vendors.DELETE("/:id", fadHandler.DeleteVendor)
	}

	users := admin.Group("/users")
	{
		users.GET("", userHandler.ListUsers)
		users.GET("/:id", userHandler.GetUser)
		users.PATCH("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", userHandler.DeleteUser)
	}

	changeLogs := admin.Group("/changelog")
	{
		changeLogs.GET("", changeLogHandler.ListChangeLogs)
		changeLogs.GET("/stats", changeLogHandler.Stats)
	}

	return r
}
