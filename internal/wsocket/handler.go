package wsocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	apperrors "launchpad_go_backend/internal/errors"
	"launchpad_go_backend/internal/models"
	"launchpad_go_backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeTimeout = 10 * time.Second

type ChatSender interface {
	SendMessage(ctx context.Context, userID string, req services.SendMessageRequest) (*services.SendMessageResponse, error)
}

type Subscriber interface {
	Subscribe(topic string) <-chan interface{}
	Unsubscribe(topic string, ch <-chan interface{})
}

type Handler struct {
	chat     ChatSender
	events   Subscriber
	upgrader websocket.Upgrader
}

type Message struct {
	Type           string          `json:"type"`
	Content        string          `json:"content,omitempty"`
	ConversationID string          `json:"conversationId,omitempty"`
	Model          string          `json:"model,omitempty"`
	Usage          *services.Usage `json:"usage,omitempty"`
	Data           interface{}     `json:"data,omitempty"`
}

func NewHandler(chat ChatSender, events Subscriber, upgrader websocket.Upgrader) *Handler {
	return &Handler{
		chat:     chat,
		events:   events,
		upgrader: upgrader,
	}
}

// conn serialises writes; gorilla allows one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request, user *models.User) {
	log := zerolog.Ctx(r.Context())
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer ws.Close()
	c := &conn{ws: ws}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	topic := services.ConversationTopic(user.ID)
	updates := h.events.Subscribe(topic)
	defer h.events.Unsubscribe(topic, updates)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-updates:
				if !ok {
					return
				}
				if err := c.writeJSON(Message{Type: services.ConversationUpdateEvent, Data: msg}); err != nil {
					log.Debug().Err(err).Msg("Error sending conversation update")
					return
				}
			}
		}
	}()

	log.Debug().Msg("WebSocket connection opened")
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("WebSocket closed unexpectedly")
			}
			return
		}

		if err := h.handleFrame(ctx, c, user, raw); err != nil {
			log.Debug().Err(err).Msg("WebSocket write failed, closing connection")
			return
		}
	}
}

// handleFrame answers one client frame; the returned error is from writing the reply.
func (h *Handler) handleFrame(ctx context.Context, c *conn, user *models.User, raw []byte) error {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return c.writeJSON(Message{Type: "error", Content: "Invalid message format"})
	}

	switch msg.Type {
	case "message":
		return c.writeJSON(h.handleChatMessage(ctx, user, msg))
	case "ping":
		return c.writeJSON(Message{Type: "pong"})
	default:
		return c.writeJSON(Message{Type: "error", Content: "Unknown message type: " + msg.Type})
	}
}

func (h *Handler) handleChatMessage(ctx context.Context, user *models.User, msg Message) Message {
	res, err := h.chat.SendMessage(ctx, user.ID, services.SendMessageRequest{
		Message:        msg.Content,
		ConversationID: msg.ConversationID,
		Model:          msg.Model,
	})
	if err != nil {
		customErr := apperrors.FromService(err)
		if customErr.Internal != nil {
			zerolog.Ctx(ctx).Error().Err(customErr.Internal).Str("type", string(customErr.Type)).Msg("WebSocket chat failed")
		}
		return Message{Type: "error", Content: customErr.Message, ConversationID: msg.ConversationID}
	}

	return Message{
		Type:           "ai",
		Content:        res.Message,
		ConversationID: res.ConversationID,
		Model:          res.Model,
		Usage:          &res.Usage,
	}
}
