package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docify-community/internal/core"
	"github.com/vovakirdan/docify-community/internal/proto"
)

// HistoryHandlers serves the community message history.
type HistoryHandlers struct {
	messages     *core.MessageStore
	defaultLimit int
	log          *zerolog.Logger
}

// NewHistoryHandlers creates a new history handlers instance.
func NewHistoryHandlers(messages *core.MessageStore, defaultLimit int, logger *zerolog.Logger) *HistoryHandlers {
	if defaultLimit <= 0 || defaultLimit > core.MaxHistoryLimit {
		defaultLimit = core.DefaultHistoryLimit
	}
	return &HistoryHandlers{
		messages:     messages,
		defaultLimit: defaultLimit,
		log:          logger,
	}
}

// HistoryQuery is the optional query string of the history endpoint.
type HistoryQuery struct {
	Limit *int `form:"limit" binding:"omitempty,min=1,max=50"`
}

// GetHistory returns the most recent messages, oldest first.
// GET /community/history
func (h *HistoryHandlers) GetHistory(c *gin.Context) {
	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.log.Debug().Err(err).Msg("invalid history query")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be an integer between 1 and 50"})
		return
	}
	limit := h.defaultLimit
	if q.Limit != nil {
		limit = *q.Limit
	}

	messages, err := h.messages.Recent(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Int("limit", limit).Msg("failed to load history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]proto.MessagePayload, 0, len(messages))
	for i := range messages {
		out = append(out, messagePayload(&messages[i]))
	}
	c.JSON(http.StatusOK, out)
}
