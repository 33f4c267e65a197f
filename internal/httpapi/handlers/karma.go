package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handler) TopKarma(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.Repo.TopKarma(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, 50002, "failed to list karma")
		return
	}
	ok(c, gin.H{"entries": entries})
}

func (h *Handler) GetKarma(c *gin.Context) {
	userID := c.Param("user_id")

	total, err := h.Repo.GetKarma(c.Request.Context(), userID)
	if err != nil {
		fail(c, http.StatusInternalServerError, 50002, "failed to read karma")
		return
	}
	ok(c, gin.H{"user_id": userID, "karma": total})
}
