package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orangecountyai/clem/internal/config"
	"github.com/orangecountyai/clem/internal/store"
	"github.com/orangecountyai/clem/internal/store/redisstore"
)

type Handler struct {
	Repo  *store.Repo
	Cache *redisstore.Store
	Cfg   config.Config
}

func NewHandler(repo *store.Repo, cache *redisstore.Store, cfg config.Config) *Handler {
	return &Handler{Repo: repo, Cache: cache, Cfg: cfg}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "ok",
		"data":    data,
	})
}

func fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
		"data":    nil,
	})
}

func (h *Handler) Ping(c *gin.Context) {
	ok(c, gin.H{"pong": true})
}
