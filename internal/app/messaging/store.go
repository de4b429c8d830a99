package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentme-app/internal/app/persist"
	"rentme-app/internal/domain/catalog"
	"rentme-app/internal/domain/chat"
	"rentme-app/internal/domain/swap"
	"rentme-app/internal/domain/user"
)

// StorageKey is the key the chat snapshot is mirrored under.
const StorageKey = "chat-storage"

var ErrUserIDRequired = errors.New("messaging: user id is required")

// State is the persisted chat snapshot. Connection, active chat and presence are
// session-scoped and never persisted.
type State struct {
	Chats []chat.Chat `json:"chats"`
}

// Store keeps chat threads, mirrors outbound messages to the real-time channel
// and applies inbound events.
type Store struct {
	mu        sync.RWMutex
	chats     []chat.Chat
	persister *persist.Persister[State]
	logger    *slog.Logger
	connector Connector
	now       func() time.Time
	newID     func() string

	transport    Transport
	connUserID   string
	generation   uint64
	connState    ConnectionState
	activeChatID string
	activeChat   *chat.Chat
	online       map[string]struct{}

	persistOpts []persist.Option
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithPersistOptions configures the snapshot schema version and migration hook.
func WithPersistOptions(opts ...persist.Option) Option {
	return func(s *Store) { s.persistOpts = append(s.persistOpts, opts...) }
}

func NewStore(storage persist.Storage, connector Connector, logger *slog.Logger, opts ...Option) (*Store, error) {
	if connector == nil {
		return nil, errors.New("messaging: connector is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		logger:    logger.With("store", "messaging"),
		connector: connector,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     newMessageID,
		connState: StateDisconnected,
		online:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	p, err := persist.New[State](storage, StorageKey, s.persistOpts...)
	if err != nil {
		return nil, err
	}
	s.persister = p
	return s, nil
}

func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Store) Hydrate(ctx context.Context) error {
	state, ok, err := s.persister.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	s.chats = state.Chats
	s.mu.Unlock()
	return nil
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Chats: s.cloneChatsLocked()}
}

// InitializeSocket opens the real-time connection for userID. Calling it again for
// the same user while a connection exists does nothing; a different user replaces
// the existing connection.
func (s *Store) InitializeSocket(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserIDRequired
	}
	s.mu.Lock()
	if s.transport != nil && s.connUserID == userID {
		s.mu.Unlock()
		s.logger.Debug("socket already initialized", "user_id", userID)
		return nil
	}
	previous := s.transport
	s.generation++
	gen := s.generation
	s.transport = nil
	s.connUserID = userID
	s.connState = StateConnecting
	s.online = make(map[string]struct{})
	s.mu.Unlock()

	if previous != nil {
		if err := previous.Close(); err != nil {
			s.logger.Warn("close previous socket failed", "error", err)
		}
	}

	t, err := s.connector.Connect(ctx, userID, &connHandler{store: s, gen: gen})
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// superseded while dialing
		if t != nil {
			_ = t.Close()
		}
		return nil
	}
	if err != nil {
		s.connState = StateDisconnected
		s.connUserID = ""
		s.logger.Error("socket initialization failed", "user_id", userID, "error", err)
		return err
	}
	s.transport = t
	s.logger.Info("socket initialized", "user_id", userID)
	return nil
}

// DisconnectSocket closes the connection if there is one.
func (s *Store) DisconnectSocket() {
	s.mu.Lock()
	t := s.transport
	s.transport = nil
	s.connUserID = ""
	s.generation++
	s.connState = StateDisconnected
	s.online = make(map[string]struct{})
	s.mu.Unlock()
	if t == nil {
		return
	}
	if err := t.Close(); err != nil {
		s.logger.Warn("socket close failed", "error", err)
	}
	s.logger.Info("socket disconnected")
}

func (s *Store) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connState == StateConnected
}

func (s *Store) ConnectionState() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connState
}

// SendMessage stamps the draft, emits it and appends it to the chat without waiting
// for any acknowledgement. Without an initialized socket nothing happens and ok is false.
// A failed emit is logged; the local append stays.
func (s *Store) SendMessage(ctx context.Context, chatID string, draft chat.Draft) (msg chat.Message, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transport == nil {
		s.logger.Warn("send without socket ignored", "chat_id", chatID)
		return chat.Message{}, false
	}
	msg = chat.NewMessage(s.newID(), draft, s.now())
	if err := s.transport.Emit(ctx, EventMessageSend, SendPayload{ChatID: chatID, Message: msg}); err != nil {
		s.logger.Warn("emit message failed", "chat_id", chatID, "message_id", msg.ID, "error", err)
	}
	if c := s.findLocked(chatID); c != nil {
		c.Append(msg.Clone(), false)
		s.persistLocked(ctx)
	}
	return msg, true
}

// CreateChat adds an empty thread locally and announces it on the channel without
// waiting for the remote side.
func (s *Store) CreateChat(ctx context.Context, participants []user.User, product *catalog.Product, swapRequest *swap.Request) chat.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := chat.New(chat.CreateParams{
		ID:           s.newID(),
		Participants: participants,
		Product:      product,
		SwapRequest:  swapRequest,
		CreatedAt:    s.now(),
	})
	s.chats = append(s.chats, c)
	s.persistLocked(ctx)
	if s.transport != nil {
		if err := s.transport.Emit(ctx, EventChatCreate, c); err != nil {
			s.logger.Warn("emit chat create failed", "chat_id", c.ID, "error", err)
		}
	}
	return c.Clone()
}

// MarkAsRead zeroes the chat's unread counter and sends a read receipt.
func (s *Store) MarkAsRead(ctx context.Context, chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markReadLocked(ctx, chatID)
}

func (s *Store) markReadLocked(ctx context.Context, chatID string) {
	if c := s.findLocked(chatID); c != nil {
		c.MarkRead()
	}
	s.persistLocked(ctx)
	if s.transport != nil {
		if err := s.transport.Emit(ctx, EventChatMarkRead, MarkReadPayload{ChatID: chatID}); err != nil {
			s.logger.Warn("emit mark read failed", "chat_id", chatID, "error", err)
		}
	}
}

// SetActiveChat records the chat being viewed and marks it read. Nil clears it.
func (s *Store) SetActiveChat(ctx context.Context, c *chat.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil {
		s.activeChatID = ""
		s.activeChat = nil
		return
	}
	cp := c.Clone()
	s.activeChatID = c.ID
	s.activeChat = &cp
	s.markReadLocked(ctx, c.ID)
}

// ActiveChat returns the chat being viewed, refreshed from the thread list when known.
func (s *Store) ActiveChat() (chat.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeChat == nil {
		return chat.Chat{}, false
	}
	for _, c := range s.chats {
		if c.ID == s.activeChatID {
			return c.Clone(), true
		}
	}
	return s.activeChat.Clone(), true
}

func (s *Store) Chats() []chat.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneChatsLocked()
}

func (s *Store) Chat(id string) (chat.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chats {
		if c.ID == id {
			return c.Clone(), true
		}
	}
	return chat.Chat{}, false
}

// Search lists chats whose participant names or product title contain query,
// most recently updated first.
func (s *Store) Search(query string) []chat.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.Chat, 0, len(s.chats))
	for _, c := range s.chats {
		if c.Matches(query) {
			out = append(out, c.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

func (s *Store) TotalUnread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, c := range s.chats {
		total += c.UnreadCount
	}
	return total
}

func (s *Store) IsOnline(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.online[userID]
	return ok
}

func (s *Store) OnlineUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.online))
	for id := range s.online {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Store) receiveMessage(gen uint64, in chat.InboundMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	c := s.findLocked(in.ChatID)
	if c == nil {
		s.logger.Debug("message for unknown chat ignored", "chat_id", in.ChatID, "message_id", in.ID)
		return
	}
	active := s.activeChatID == in.ChatID
	c.Append(in.Message.Clone(), !active)
	if active {
		c.MarkRead()
	}
	s.persistLocked(context.Background())
}

// receiveChat registers a remotely created chat. An existing chat with the same id wins.
func (s *Store) receiveChat(gen uint64, c chat.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	if s.findLocked(c.ID) != nil {
		s.logger.Debug("chat already known, remote creation ignored", "chat_id", c.ID)
		return
	}
	if c.Messages == nil {
		c.Messages = []chat.Message{}
	}
	s.chats = append(s.chats, c.Clone())
	s.persistLocked(context.Background())
}

func (s *Store) setConnState(gen uint64, state ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.connState = state
	if state == StateDisconnected {
		s.online = make(map[string]struct{})
	}
	s.logger.Info("socket state changed", "state", state, "user_id", s.connUserID)
}

func (s *Store) setPresence(gen uint64, userID string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	if online {
		s.online[userID] = struct{}{}
	} else {
		delete(s.online, userID)
	}
	s.logger.Debug("presence changed", "user_id", userID, "online", online)
}

func (s *Store) findLocked(id string) *chat.Chat {
	for i := range s.chats {
		if s.chats[i].ID == id {
			return &s.chats[i]
		}
	}
	return nil
}

func (s *Store) cloneChatsLocked() []chat.Chat {
	if s.chats == nil {
		return nil
	}
	out := make([]chat.Chat, len(s.chats))
	for i, c := range s.chats {
		out[i] = c.Clone()
	}
	return out
}

func (s *Store) persistLocked(ctx context.Context) {
	if err := s.persister.Save(ctx, State{Chats: s.chats}); err != nil {
		s.logger.Error("persist chats failed", "error", err)
	}
}

// connHandler binds transport callbacks to the connection generation that created
// them, so a replaced connection cannot touch the store.
type connHandler struct {
	store *Store
	gen   uint64
}

func (h *connHandler) OnConnect()    { h.store.setConnState(h.gen, StateConnected) }
func (h *connHandler) OnDisconnect() { h.store.setConnState(h.gen, StateDisconnected) }

func (h *connHandler) OnMessageReceived(msg chat.InboundMessage) {
	h.store.receiveMessage(h.gen, msg)
}

func (h *connHandler) OnChatCreated(c chat.Chat) { h.store.receiveChat(h.gen, c) }

func (h *connHandler) OnUserOnline(userID string)  { h.store.setPresence(h.gen, userID, true) }
func (h *connHandler) OnUserOffline(userID string) { h.store.setPresence(h.gen, userID, false) }
