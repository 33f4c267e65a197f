package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orangecountyai/clem/internal/store"
)

func (h *Handler) GetChannelConfig(c *gin.Context) {
	channelID := c.Param("channel_id")

	cfg, err := h.Repo.GetChannelConfig(c.Request.Context(), channelID)
	if err != nil {
		fail(c, http.StatusInternalServerError, 50003, "failed to read channel config")
		return
	}
	ok(c, cfg)
}

type setChannelReq struct {
	Disabled  *bool `json:"disabled"`
	Verbosity *int  `json:"verbosity"`
}

// SetChannelConfig updates the disabled flag and/or verbosity. A verbosity
// outside 1..3 is rejected and the stored config stays as it was.
func (h *Handler) SetChannelConfig(c *gin.Context) {
	channelID := c.Param("channel_id")

	var req setChannelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Disabled == nil && req.Verbosity == nil {
		fail(c, http.StatusBadRequest, 10002, "nothing to update")
		return
	}

	ctx := c.Request.Context()

	if req.Verbosity != nil {
		v := store.Verbosity(*req.Verbosity)
		if _, err := h.Repo.SetChannelVerbosity(ctx, channelID, v); err != nil {
			if errors.Is(err, store.ErrInvalidVerbosity) {
				fail(c, http.StatusBadRequest, 10003, err.Error())
				return
			}
			fail(c, http.StatusInternalServerError, 50003, "failed to update channel config")
			return
		}
	}

	if req.Disabled != nil {
		cur, err := h.Repo.GetChannelConfig(ctx, channelID)
		if err != nil {
			fail(c, http.StatusInternalServerError, 50003, "failed to read channel config")
			return
		}
		if cur.Disabled != *req.Disabled {
			if _, err := h.Repo.ToggleChannelDisabled(ctx, channelID); err != nil {
				fail(c, http.StatusInternalServerError, 50003, "failed to update channel config")
				return
			}
		}
	}

	h.Cache.InvalidateChannel(ctx, channelID)

	cfg, err := h.Repo.GetChannelConfig(ctx, channelID)
	if err != nil {
		fail(c, http.StatusInternalServerError, 50003, "failed to read channel config")
		return
	}
	ok(c, cfg)
}
