package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shorturls/pkg/shorturls/apikeys"
	"github.com/mikepea/shorturls/pkg/shorturls/auth"
	"github.com/mikepea/shorturls/pkg/shorturls/links"
	"github.com/mikepea/shorturls/pkg/shorturls/middleware"
	"github.com/mikepea/shorturls/pkg/shorturls/qrcode"
	"github.com/mikepea/shorturls/pkg/shorturls/redirect"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mikepea/shorturls/api/swagger"
)

// NewRouter builds the gin engine with every route registered.
func NewRouter(app *App) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	redirectHandler := redirect.NewHandler(app.Links)

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"service": "shorturls",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(app.DB, app.Tokens)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Resolve (public)
		redirectHandler.RegisterAPIRoutes(api)

		// API keys routes (JWT only - need to be logged in to manage keys)
		apiKeysHandler := apikeys.NewHandler(app.DB)
		apiKeysHandler.RegisterRoutes(api.Group("", auth.AuthMiddleware(app.Tokens)))

		// Link routes (JWT or API key; all but creation need an admin)
		combined := api.Group("", apikeys.CombinedAuthMiddleware(app.DB, app.Tokens))
		links.NewHandler(app.Links, app.Config.BaseURL).RegisterRoutes(combined)
		qrcode.NewHandler(app.Links, app.Config.BaseURL).RegisterRoutes(combined)
	}

	// Redirect routes (public, must be registered LAST to avoid conflicts)
	redirectHandler.RegisterRoutes(r)

	return r
}
