package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentme-app/internal/app/commands"
	"rentme-app/internal/app/dto"
	swaphandlers "rentme-app/internal/app/handlers/swaps"
	"rentme-app/internal/app/messaging"
	"rentme-app/internal/app/middleware"
	"rentme-app/internal/app/queries"
	"rentme-app/internal/app/session"
	swapstore "rentme-app/internal/app/swaps"
	"rentme-app/internal/domain/catalog"
	"rentme-app/internal/domain/chat"
	"rentme-app/internal/domain/swap"
	"rentme-app/internal/domain/user"
	"rentme-app/internal/infra/obs"
	"rentme-app/internal/infra/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopTransport struct{}

func (nopTransport) Emit(context.Context, string, any) error { return nil }
func (nopTransport) Close() error                            { return nil }

type stubConnector struct {
	mu       sync.Mutex
	handlers []messaging.Handler
}

func (s *stubConnector) Connect(_ context.Context, _ string, h messaging.Handler) (messaging.Transport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
	return nopTransport{}, nil
}

func (s *stubConnector) last() messaging.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[len(s.handlers)-1]
}

type bridge struct {
	router    *gin.Engine
	connector *stubConnector
}

func newBridge(t *testing.T, swapOpts ...swapstore.Option) bridge {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv := memory.NewKV()

	sessions, err := session.NewStore(kv, logger)
	require.NoError(t, err)
	swapsStore, err := swapstore.NewStore(kv, logger, swapOpts...)
	require.NoError(t, err)
	connector := &stubConnector{}
	chats, err := messaging.NewStore(kv, connector, logger)
	require.NoError(t, err)

	cmdBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	swaphandlers.Register(cmdBus, queryBus, swapsStore)

	router := NewRouter(obs.Middleware{Logger: logger}, obs.HealthHandlers{}, Handlers{
		Session: SessionHandler{Store: sessions},
		Swaps: SwapHandler{
			Commands: middleware.ChainCommands(cmdBus, middleware.Validation()),
			Queries:  middleware.ChainQueries(queryBus, middleware.QueryValidation()),
			Logger:   logger,
		},
		Chats:    ChatHandler{Store: chats, Logger: logger},
		Realtime: RealtimeHandler{Messaging: chats, Session: sessions, Logger: logger},
	})
	return bridge{router: router, connector: connector}
}

func (b bridge) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var (
	ana = user.User{ID: "u-ana", Name: "Ana", Email: "ana@example.com", UserType: user.TypeBoth}
	leo = user.User{ID: "u-leo", Name: "Leo", Email: "leo@example.com", UserType: user.TypeOwner}
)

func item(id string, owner user.User, price float64) catalog.Product {
	return catalog.Product{ID: catalog.ProductID(id), Title: id, Owner: owner, Price: price, Available: true}
}

func TestHealth(t *testing.T) {
	b := newBridge(t)
	assert.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/livez", nil).Code)
	assert.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/readyz", nil).Code)
}

func TestSessionFlow(t *testing.T) {
	b := newBridge(t)

	state := decode[session.State](t, b.do(t, http.MethodGet, "/api/v1/session", nil))
	assert.False(t, state.IsAuthenticated)

	name := "Ana Lopez"
	w := b.do(t, http.MethodPatch, "/api/v1/session/user", user.Patch{Name: &name})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = b.do(t, http.MethodPost, "/api/v1/session/login", dto.LoginRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = b.do(t, http.MethodPost, "/api/v1/session/login", dto.LoginRequest{User: ana})
	require.Equal(t, http.StatusOK, w.Code)
	state = decode[session.State](t, w)
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, ana.ID, state.User.ID)

	w = b.do(t, http.MethodPatch, "/api/v1/session/user", user.Patch{Name: &name})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.UpdateUserResponse](t, w)
	assert.True(t, resp.Applied)
	assert.Equal(t, name, resp.User.Name)

	state = decode[session.State](t, b.do(t, http.MethodPost, "/api/v1/session/onboarding", nil))
	assert.True(t, state.HasCompletedOnboarding)

	state = decode[session.State](t, b.do(t, http.MethodPost, "/api/v1/session/logout", nil))
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
}

func TestSwapLifecycle(t *testing.T) {
	b := newBridge(t)

	w := b.do(t, http.MethodPost, "/api/v1/swaps", dto.CreateSwapRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = b.do(t, http.MethodPost, "/api/v1/swaps", dto.CreateSwapRequest{
		RequestedProduct: item("camera", leo, 40),
		OfferedProduct:   item("guitar", ana, 25),
		Requester:        ana,
		Message:          "weekend swap?",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[swap.Request](t, w)
	assert.Equal(t, swap.StatusPending, created.Status)
	assert.Equal(t, leo.ID, created.Owner.ID)

	w = b.do(t, http.MethodPost, "/api/v1/swaps/"+created.ID+"/accept", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, swap.StatusAccepted, decode[swap.Request](t, w).Status)

	assert.Equal(t, http.StatusNotFound, b.do(t, http.MethodGet, "/api/v1/swaps/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, b.do(t, http.MethodPost, "/api/v1/swaps/nope/cancel", nil).Code)

	list := decode[dto.SwapList](t, b.do(t, http.MethodGet, "/api/v1/swaps?user_id=u-leo&status=accepted", nil))
	require.Len(t, list.Items, 1)
	assert.Equal(t, created.ID, list.Items[0].ID)

	assert.Equal(t, http.StatusBadRequest, b.do(t, http.MethodGet, "/api/v1/swaps?status=lost", nil).Code)

	stats := decode[swapstore.Stats](t, b.do(t, http.MethodGet, "/api/v1/swaps/stats/u-ana", nil))
	assert.Equal(t, swapstore.Stats{TotalSwaps: 1}, stats)
}

func TestStrictTransitionConflict(t *testing.T) {
	b := newBridge(t, swapstore.WithStrictTransitions())
	w := b.do(t, http.MethodPost, "/api/v1/swaps", dto.CreateSwapRequest{
		RequestedProduct: item("camera", leo, 40),
		OfferedProduct:   item("guitar", ana, 25),
		Requester:        ana,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[swap.Request](t, w).ID

	require.Equal(t, http.StatusOK, b.do(t, http.MethodPost, "/api/v1/swaps/"+id+"/cancel", nil).Code)
	assert.Equal(t, http.StatusConflict, b.do(t, http.MethodPost, "/api/v1/swaps/"+id+"/accept", nil).Code)
}

func TestSwappableItems(t *testing.T) {
	b := newBridge(t)
	for _, p := range []catalog.Product{item("bike", ana, 15), item("drone", ana, 90), item("grill", leo, 10)} {
		require.Equal(t, http.StatusCreated, b.do(t, http.MethodPost, "/api/v1/swaps/items", p).Code)
	}

	list := decode[dto.ProductList](t, b.do(t, http.MethodGet, "/api/v1/swaps/items?user_id=u-ana&max_price=50", nil))
	require.Len(t, list.Items, 1)
	assert.Equal(t, catalog.ProductID("bike"), list.Items[0].ID)

	assert.Equal(t, http.StatusBadRequest, b.do(t, http.MethodGet, "/api/v1/swaps/items?user_id=u-ana&max_price=cheap", nil).Code)
	assert.Equal(t, http.StatusBadRequest, b.do(t, http.MethodGet, "/api/v1/swaps/items", nil).Code)

	assert.Equal(t, http.StatusNoContent, b.do(t, http.MethodDelete, "/api/v1/swaps/items/bike", nil).Code)
	assert.Equal(t, http.StatusNotFound, b.do(t, http.MethodDelete, "/api/v1/swaps/items/bike", nil).Code)
}

func TestChatsAndRealtime(t *testing.T) {
	b := newBridge(t)

	assert.Equal(t, http.StatusBadRequest, b.do(t, http.MethodPost, "/api/v1/chats", dto.CreateChatRequest{}).Code)

	w := b.do(t, http.MethodPost, "/api/v1/chats", dto.CreateChatRequest{Participants: []user.User{ana, leo}})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[chat.Chat](t, w)
	path := "/api/v1/chats/" + created.ID

	w = b.do(t, http.MethodPost, path+"/messages", chat.TextDraft("hi", chat.SenderUser))
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[dto.SendMessageResponse](t, w).Sent)

	assert.Equal(t, http.StatusBadRequest, b.do(t, http.MethodPost, "/api/v1/realtime/connect", nil).Code)

	require.Equal(t, http.StatusOK, b.do(t, http.MethodPost, "/api/v1/session/login", dto.LoginRequest{User: ana}).Code)
	w = b.do(t, http.MethodPost, "/api/v1/realtime/connect", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, string(messaging.StateConnecting), decode[dto.RealtimeStatus](t, w).State)

	handler := b.connector.last()
	handler.OnConnect()
	handler.OnUserOnline("u-leo")
	status := decode[dto.RealtimeStatus](t, b.do(t, http.MethodGet, "/api/v1/realtime/status", nil))
	assert.True(t, status.Connected)
	assert.Equal(t, []string{"u-leo"}, status.OnlineUsers)

	assert.Equal(t, http.StatusBadRequest, b.do(t, http.MethodPost, path+"/messages", chat.Draft{Type: chat.TypeText}).Code)
	assert.Equal(t, http.StatusNotFound, b.do(t, http.MethodPost, "/api/v1/chats/nope/messages", chat.SystemDraft("x")).Code)

	w = b.do(t, http.MethodPost, path+"/messages", chat.TextDraft("hi again", chat.SenderUser))
	require.Equal(t, http.StatusAccepted, w.Code)
	sent := decode[dto.SendMessageResponse](t, w)
	require.True(t, sent.Sent)
	require.NotNil(t, sent.Message)

	got := decode[chat.Chat](t, b.do(t, http.MethodGet, path, nil))
	require.Len(t, got.Messages, 1)
	assert.Equal(t, sent.Message.ID, got.Messages[0].ID)

	handler.OnMessageReceived(chat.InboundMessage{
		ChatID:  created.ID,
		Message: chat.NewMessage("m-remote", chat.TextDraft("yo", chat.SenderOther), got.UpdatedAt),
	})
	list := decode[dto.ChatList](t, b.do(t, http.MethodGet, "/api/v1/chats", nil))
	assert.Equal(t, 1, list.TotalUnread)

	assert.Equal(t, http.StatusNotFound, b.do(t, http.MethodPost, "/api/v1/chats/nope/read", nil).Code)
	w = b.do(t, http.MethodPut, "/api/v1/chats/active", dto.SetActiveChatRequest{ChatID: created.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[chat.Chat](t, w).UnreadCount)
	assert.Equal(t, http.StatusNoContent, b.do(t, http.MethodPut, "/api/v1/chats/active", dto.SetActiveChatRequest{}).Code)
	assert.Equal(t, http.StatusNotFound, b.do(t, http.MethodPut, "/api/v1/chats/active", dto.SetActiveChatRequest{ChatID: "nope"}).Code)

	assert.Equal(t, http.StatusNoContent, b.do(t, http.MethodPost, "/api/v1/realtime/disconnect", nil).Code)
	status = decode[dto.RealtimeStatus](t, b.do(t, http.MethodGet, "/api/v1/realtime/status", nil))
	assert.False(t, status.Connected)
	assert.Empty(t, status.OnlineUsers)
}
