package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tomfuertes/murmur/internal/config"
	"github.com/tomfuertes/murmur/internal/domain"
	"github.com/tomfuertes/murmur/internal/hub"
	"github.com/tomfuertes/murmur/internal/room"
	"github.com/tomfuertes/murmur/internal/sanitize"
	"github.com/tomfuertes/murmur/internal/verify"
	"github.com/tomfuertes/murmur/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades listeners onto the room's websocket surface.
type WSHandler struct {
	coordinator *room.Coordinator
	wsCfg       config.WebSocketConfig
}

func NewWSHandler(coordinator *room.Coordinator, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		coordinator: coordinator,
		wsCfg:       wsCfg,
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), c.ClientIP(), conn, h.wsCfg)

	if err := h.coordinator.Connect(c.Request.Context(), client); err != nil {
		if errors.Is(err, room.ErrRoomFull) {
			client.Refuse(websocket.CloseTryAgainLater, "room at capacity")
		} else {
			client.Refuse(websocket.CloseInternalServerErr, "cannot join room")
		}
		return
	}

	go client.WritePump()
	go client.ReadPump(h.handleMessage, h.coordinator.Disconnect)
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid message format"))
		return
	}

	switch base.Type {
	case domain.MsgTypeSubmitPrompt:
		var msg domain.SubmitPromptMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid submit_prompt message"))
			return
		}
		h.handleSubmit(client, msg)

	case domain.MsgTypePing:
		client.SendMessage(map[string]string{"type": domain.MsgTypePong})

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "unknown message type"))
	}
}

func (h *WSHandler) handleSubmit(client *hub.Client, msg domain.SubmitPromptMessage) {
	rec, err := h.coordinator.SubmitPrompt(context.Background(), room.Submission{
		Text:     msg.Text,
		Author:   msg.Author,
		Token:    msg.Token,
		SourceIP: client.SourceIP,
	})
	if err != nil {
		client.SendMessage(errorFor(err))
		return
	}

	client.SendMessage(&domain.PromptAcceptedMessage{
		Type:     domain.MsgTypePromptAccepted,
		PromptID: rec.ID,
	})
}

// errorFor maps submission errors onto wire error codes. Internal
// detail never reaches the listener.
func errorFor(err error) *domain.ErrorMessage {
	var rle *room.RateLimitError
	switch {
	case errors.As(err, &rle):
		secs := int(math.Ceil(rle.RetryAfter.Seconds()))
		return domain.NewErrorMessage(domain.ErrCodeRateLimited,
			fmt.Sprintf("too many prompts, retry in %ds", secs))
	case errors.Is(err, sanitize.ErrInvalidPrompt), errors.Is(err, sanitize.ErrDenylisted):
		return domain.NewErrorMessage(domain.ErrCodeInvalidPrompt, "prompt is empty or not allowed")
	case errors.Is(err, verify.ErrVerifyFailed):
		return domain.NewErrorMessage(domain.ErrCodeVerifyFailed, "verification failed")
	default:
		return domain.NewErrorMessage(domain.ErrCodeInternalError, "something went wrong")
	}
}
