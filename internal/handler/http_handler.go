package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tomfuertes/murmur/internal/service"
	"github.com/tomfuertes/murmur/pkg/log"
	"github.com/tomfuertes/murmur/pkg/response"
)

const (
	defaultPromptLimit = 20
	maxPromptLimit     = 50
)

// HTTPHandler serves the read-only REST surface.
type HTTPHandler struct {
	query service.RoomQueryService
}

func NewHTTPHandler(query service.RoomQueryService) *HTTPHandler {
	return &HTTPHandler{
		query: query,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/room", h.GetRoom)
		api.GET("/room/prompts", h.GetPrompts)
	}

	r.GET("/health", h.HealthCheck)
}

// GetRoom returns the room summary: live state, listener count, and the
// recent prompt history.
func (h *HTTPHandler) GetRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	summary, err := h.query.GetSummary(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to load room summary")
		response.InternalError(c, "failed to load room")
		return
	}

	response.Success(c, summary)
}

// GetPrompts returns the most recent accepted prompts.
func (h *HTTPHandler) GetPrompts(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	limit := defaultPromptLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsedLimit
		if limit > maxPromptLimit {
			limit = maxPromptLimit
		}
	}

	result, err := h.query.GetRecentPrompts(ctx, limit)
	if err != nil {
		l.Error().Err(err).Msg("failed to get prompts")
		response.InternalError(c, "failed to get prompts")
		return
	}

	response.Success(c, result)
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
