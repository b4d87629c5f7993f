package wsocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"launchpad_go_backend/internal/models"
	"launchpad_go_backend/internal/services"
	"launchpad_go_backend/internal/utils/broker"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatSender struct {
	mock.Mock
}

func (m *MockChatSender) SendMessage(ctx context.Context, userID string, req services.SendMessageRequest) (*services.SendMessageResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SendMessageResponse), args.Error(1)
}

func dial(t *testing.T, chat ChatSender, b *broker.Broker) *websocket.Conn {
	t.Helper()
	h := NewHandler(chat, b, websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleWebSocket(w, r, &models.User{ID: "user-1"})
	}))
	t.Cleanup(server.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	return ws
}

func TestHandleWebSocket_ChatRoundTripAndUpdates(t *testing.T) {
	chat := new(MockChatSender)
	b := broker.NewBroker()
	chat.On("SendMessage", mock.Anything, "user-1", services.SendMessageRequest{Message: "hi", Model: "gpt-4o-mini"}).
		Return(&services.SendMessageResponse{
			Message:        "hello there",
			ConversationID: "c-1",
			Model:          "gpt-4o-mini",
			Usage:          services.Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5, Cost: 0.0000017},
		}, nil).Once()

	ws := dial(t, chat, b)

	require.NoError(t, ws.WriteJSON(Message{Type: "message", Content: "hi", Model: "gpt-4o-mini"}))
	var reply Message
	require.NoError(t, ws.ReadJSON(&reply))
	assert.Equal(t, "ai", reply.Type)
	assert.Equal(t, "hello there", reply.Content)
	assert.Equal(t, "c-1", reply.ConversationID)
	require.NotNil(t, reply.Usage)
	assert.Equal(t, 5, reply.Usage.TotalTokens)

	b.Publish(services.ConversationTopic("user-1"), map[string]string{"conversationId": "c-1"})
	var update Message
	require.NoError(t, ws.ReadJSON(&update))
	assert.Equal(t, services.ConversationUpdateEvent, update.Type)
	assert.Equal(t, map[string]interface{}{"conversationId": "c-1"}, update.Data)

	chat.AssertExpectations(t)
}

func TestHandleWebSocket_ErrorsUseTaxonomyText(t *testing.T) {
	chat := new(MockChatSender)
	chat.On("SendMessage", mock.Anything, "user-1", mock.Anything).
		Return(nil, &services.ProviderError{Provider: services.ProviderAnthropic, Message: "secret upstream detail"}).Once()
	chat.On("SendMessage", mock.Anything, "user-1", mock.Anything).
		Return(nil, services.ErrConversationNotFound).Once()

	ws := dial(t, chat, broker.NewBroker())

	require.NoError(t, ws.WriteJSON(Message{Type: "message", Content: "hi"}))
	var reply Message
	require.NoError(t, ws.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "An unexpected error occurred", reply.Content)

	require.NoError(t, ws.WriteJSON(Message{Type: "message", Content: "hi", ConversationID: "c-404"}))
	require.NoError(t, ws.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "Conversation not found", reply.Content)

	require.NoError(t, ws.WriteJSON(Message{Type: "shout"}))
	require.NoError(t, ws.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
}

func TestHandleFrame_ReportsWriteFailure(t *testing.T) {
	chat := new(MockChatSender)
	h := NewHandler(chat, broker.NewBroker(), websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }})

	errs := make(chan error, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			errs <- err
			return
		}
		ws.Close()
		errs <- h.handleFrame(context.Background(), &conn{ws: ws}, &models.User{ID: "user-1"}, []byte(`{"type":"ping"}`))
	}))
	defer server.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not finish")
	}
	chat.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}
