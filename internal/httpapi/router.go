package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orangecountyai/clem/internal/config"
	"github.com/orangecountyai/clem/internal/httpapi/handlers"
	"github.com/orangecountyai/clem/internal/httpapi/middleware"
	"github.com/orangecountyai/clem/internal/store"
	"github.com/orangecountyai/clem/internal/store/redisstore"
)

func NewRouter(repo *store.Repo, cache *redisstore.Store, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "route not found", "data": nil})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"code": 40500, "message": "method not allowed", "data": nil})
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(repo, cache, cfg)

	r.GET("/ping", h.Ping)
	r.POST("/login", h.Login)

	r.GET("/karma/top", h.TopKarma)
	r.GET("/karma/:user_id", h.GetKarma)
	r.GET("/channels/:channel_id", h.GetChannelConfig)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.PUT("/channels/:channel_id", h.SetChannelConfig)

	return r
}
