package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"messenger-client/internal/api"
	"messenger-client/internal/models"
	"messenger-client/internal/observability"
	"messenger-client/internal/presence"
	"messenger-client/internal/reconcile"
	"messenger-client/internal/store"
	"messenger-client/internal/telemetry"
	"messenger-client/internal/transport"
)

var (
	// ErrNotLoggedIn is returned by operations that need an active session.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrNoActiveChat is returned when no chat is selected.
	ErrNoActiveChat = errors.New("no active chat")
)

// Live is the supervised connection surface the coordinator drives.
type Live interface {
	Start()
	Stop()
	Send(models.OutboundEvent)
}

// LiveFactory builds the supervised live connection for a session once its
// token is known.
type LiveFactory func(sessionID string) Live

// Coordinator owns the top-level client lifecycle: the active user identity,
// the active chat selection, and the wiring between the history source, the
// live connection, the reconciler and the presence tracker. It is the single
// interface the view layer consumes.
type Coordinator struct {
	history     api.HistorySource
	rec         *reconcile.Reconciler
	presence    *presence.Tracker
	store       store.SessionStore
	emitter     *telemetry.SyncEmitter
	liveFactory LiveFactory

	mu           sync.Mutex
	session      *models.Session
	live         Live
	chats        []models.Chat
	users        []models.User
	activeChatID string
	fetchChatID  string
	fetchSeq     int
	buffered     []models.Message
	connState    transport.State

	onMessages  func(chatID string, msgs []models.Message)
	onTyping    func(typing []string)
	onConnState func(transport.State)
	onChats     func(chats []models.Chat)
}

// NewCoordinator wires the collaborators together. The store and emitter may
// be nil; persistence and telemetry are then skipped.
func NewCoordinator(history api.HistorySource, rec *reconcile.Reconciler, tracker *presence.Tracker, sessions store.SessionStore, emitter *telemetry.SyncEmitter) *Coordinator {
	return &Coordinator{
		history:   history,
		rec:       rec,
		presence:  tracker,
		store:     sessions,
		emitter:   emitter,
		connState: transport.StateClosed,
	}
}

// SetLiveFactory installs the factory used to build the live connection
// after login. Must be called before Login or RestoreSession.
func (c *Coordinator) SetLiveFactory(factory LiveFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liveFactory = factory
}

// OnMessages subscribes to reconciled sequence updates per chat.
func (c *Coordinator) OnMessages(fn func(chatID string, msgs []models.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessages = fn
}

// OnTyping subscribes to typing-set changes.
func (c *Coordinator) OnTyping(fn func(typing []string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTyping = fn
}

// OnConnState subscribes to connection-state changes.
func (c *Coordinator) OnConnState(fn func(transport.State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnState = fn
}

// OnChats subscribes to chat-list changes.
func (c *Coordinator) OnChats(fn func(chats []models.Chat)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChats = fn
}

// Login authenticates, persists the session and starts the live connection.
// It either fully succeeds or leaves no session behind.
func (c *Coordinator) Login(ctx context.Context, username, password string) (models.Session, error) {
	sess, err := c.history.Login(ctx, username, password)
	if err != nil {
		return models.Session{}, err
	}

	c.adoptSession(ctx, sess)
	c.emitter.Emit(ctx, "login", "user "+sess.User.Username+" logged in", sess.SessionID)

	if err := c.RefreshChats(ctx); err != nil {
		log.Printf("chat list load failed: %v", err)
	}
	if err := c.RefreshUsers(ctx); err != nil {
		log.Printf("user directory load failed: %v", err)
	}
	return sess, nil
}

// Register creates an account. The caller logs in separately afterwards.
func (c *Coordinator) Register(ctx context.Context, username, email, password string) error {
	return c.history.Register(ctx, username, email, password)
}

// RestoreSession silently resumes a persisted session. The cached chat list
// is served immediately and refreshed from the server in the background of
// the same call.
func (c *Coordinator) RestoreSession(ctx context.Context) (models.Session, error) {
	if c.store == nil {
		return models.Session{}, store.ErrNoSession
	}
	sess, err := c.store.LoadSession(ctx)
	if err != nil {
		return models.Session{}, err
	}

	if cached, err := c.store.LoadChats(ctx); err == nil && len(cached) > 0 {
		c.mu.Lock()
		c.chats = cached
		c.mu.Unlock()
	}

	c.adoptSession(ctx, sess)
	c.emitter.Emit(ctx, "restore", "session restored for "+sess.User.Username, sess.SessionID)

	if err := c.RefreshChats(ctx); err != nil {
		log.Printf("chat list refresh failed: %v", err)
	}
	if err := c.RefreshUsers(ctx); err != nil {
		log.Printf("user directory refresh failed: %v", err)
	}
	return sess, nil
}

func (c *Coordinator) adoptSession(ctx context.Context, sess models.Session) {
	c.mu.Lock()
	c.session = &sess
	factory := c.liveFactory
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveSession(ctx, sess); err != nil {
			log.Printf("session persist failed: %v", err)
		}
	}

	if factory != nil {
		live := factory(sess.SessionID)
		c.mu.Lock()
		c.live = live
		c.mu.Unlock()
		live.Start()
	}
}

// RefreshChats reloads the chat list from the server.
func (c *Coordinator) RefreshChats(ctx context.Context) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	username := c.session.User.Username
	c.mu.Unlock()

	chats, err := c.history.ListChats(ctx, username)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.chats = chats
	notify := c.onChats
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveChats(ctx, chats); err != nil {
			log.Printf("chat cache write failed: %v", err)
		}
	}
	if notify != nil {
		notify(chats)
	}
	return nil
}

// RefreshUsers reloads the user directory and feeds the statuses it carries
// into the presence tracker.
func (c *Coordinator) RefreshUsers(ctx context.Context) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	c.mu.Unlock()

	users, err := c.history.ListUsers(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.users = users
	c.mu.Unlock()

	for _, u := range users {
		c.presence.ObserveStatus(u.Username, u.Status)
	}
	return nil
}

// SelectChat makes the chat active: it announces the join on the live
// connection and fetches the history baseline into the reconciler. Live
// events arriving while the fetch is in flight are buffered and replayed in
// arrival order once the baseline lands. A response that resolves after the
// selection moved on is discarded. Selecting the same chat twice re-fetches,
// which is acceptable staleness-tolerant behavior.
func (c *Coordinator) SelectChat(ctx context.Context, chatID string) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	username := c.session.User.Username
	c.activeChatID = chatID
	c.fetchSeq++
	seq := c.fetchSeq
	c.fetchChatID = chatID
	c.buffered = nil
	live := c.live
	c.mu.Unlock()

	if live != nil {
		live.Send(models.OutboundEvent{
			Type:     models.EventUserJoin,
			Username: username,
			ChatID:   chatID,
		})
	}

	msgs, err := c.history.GetMessages(ctx, chatID)

	c.mu.Lock()
	if seq != c.fetchSeq {
		c.mu.Unlock()
		observability.IncReconcileAnomaly("stale_history")
		return nil
	}
	if err != nil {
		c.fetchChatID = ""
		c.buffered = nil
		c.mu.Unlock()
		return err
	}
	notify := c.onMessages
	c.mu.Unlock()

	// Keep buffering while the baseline is installed: clearing the fetch
	// marker before LoadHistory completes would let a concurrent live event
	// apply to the old sequence and be wiped by the replace. The marker is
	// only cleared once a drain pass finds the buffer empty.
	c.rec.LoadHistory(chatID, msgs)
	for {
		c.mu.Lock()
		if seq != c.fetchSeq {
			c.mu.Unlock()
			observability.IncReconcileAnomaly("stale_history")
			return nil
		}
		buffered := c.buffered
		c.buffered = nil
		if len(buffered) == 0 {
			c.fetchChatID = ""
			c.mu.Unlock()
			break
		}
		c.mu.Unlock()

		for _, msg := range buffered {
			c.rec.ApplyLive(msg)
		}
	}

	if notify != nil {
		notify(chatID, c.rec.SequenceFor(chatID))
	}
	return nil
}

// SendMessage records the message optimistically, fires it over the live
// connection best-effort, and posts it on the durable path. The durable
// error, if any, is the returned one; a dropped live send is silent.
func (c *Coordinator) SendMessage(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	if c.activeChatID == "" {
		c.mu.Unlock()
		return ErrNoActiveChat
	}
	username := c.session.User.Username
	chatID := c.activeChatID
	live := c.live
	notify := c.onMessages
	c.mu.Unlock()

	nonce := uuid.NewString()
	c.rec.RecordPending(chatID, username, text, nonce)
	if notify != nil {
		notify(chatID, c.rec.SequenceFor(chatID))
	}

	if live != nil {
		live.Send(models.OutboundEvent{
			Type:           models.EventSendMessage,
			SenderUsername: username,
			ChatID:         chatID,
			MessageType:    models.MessageText,
			Text:           text,
		})
	}

	_, err := c.history.SendMessage(ctx, chatID, api.SendMessageRequest{
		SenderUsername: username,
		Type:           models.MessageText,
		Text:           text,
	})
	return err
}

// SetTyping announces a typing start or stop for the active chat.
func (c *Coordinator) SetTyping(isTyping bool) {
	c.mu.Lock()
	if c.session == nil || c.activeChatID == "" {
		c.mu.Unlock()
		return
	}
	username := c.session.User.Username
	chatID := c.activeChatID
	live := c.live
	c.mu.Unlock()

	if live == nil {
		return
	}
	kind := models.EventTyping
	if !isTyping {
		kind = models.EventStopTyping
	}
	live.Send(models.OutboundEvent{Type: kind, Username: username, ChatID: chatID})
}

// CreateChat creates a private or group chat, appends it to the local list
// and selects it.
func (c *Coordinator) CreateChat(ctx context.Context, chatType string, participants []string, name string) (models.Chat, error) {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return models.Chat{}, ErrNotLoggedIn
	}
	c.mu.Unlock()

	chat, err := c.history.CreateChat(ctx, api.CreateChatRequest{
		Type:         chatType,
		Participants: participants,
		Name:         name,
	})
	if err != nil {
		return models.Chat{}, err
	}

	c.mu.Lock()
	c.chats = append(c.chats, chat)
	chats := make([]models.Chat, len(c.chats))
	copy(chats, c.chats)
	notify := c.onChats
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveChats(ctx, chats); err != nil {
			log.Printf("chat cache write failed: %v", err)
		}
	}
	if notify != nil {
		notify(chats)
	}

	if err := c.SelectChat(ctx, chat.ID); err != nil {
		log.Printf("open created chat %s failed: %v", chat.ID, err)
	}
	return chat, nil
}

// Logout announces the disconnect, closes the live connection and clears
// the session.
func (c *Coordinator) Logout(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	live := c.live
	c.session = nil
	c.live = nil
	c.activeChatID = ""
	c.fetchChatID = ""
	c.fetchSeq++
	c.buffered = nil
	c.chats = nil
	c.users = nil
	c.mu.Unlock()

	if sess == nil {
		return ErrNotLoggedIn
	}

	if live != nil {
		live.Send(models.OutboundEvent{
			Type:     models.EventUserDisconnect,
			Username: sess.User.Username,
		})
		live.Stop()
	}
	if c.store != nil {
		if err := c.store.ClearSession(ctx); err != nil {
			log.Printf("session clear failed: %v", err)
		}
	}
	c.emitter.Emit(ctx, "logout", "user "+sess.User.Username+" logged out", sess.SessionID)
	return nil
}

// Shutdown announces the disconnect and stops the live connection without
// clearing the persisted session, so the next run can resume silently.
func (c *Coordinator) Shutdown(ctx context.Context) {
	c.mu.Lock()
	sess := c.session
	live := c.live
	c.session = nil
	c.live = nil
	c.mu.Unlock()

	if sess == nil {
		return
	}
	if live != nil {
		live.Send(models.OutboundEvent{
			Type:     models.EventUserDisconnect,
			Username: sess.User.Username,
		})
		live.Stop()
	}
	c.emitter.Emit(ctx, "shutdown", "client shutting down", sess.SessionID)
}

// HandleEvent consumes one inbound live event. Wired as the supervisor's
// event handler.
func (c *Coordinator) HandleEvent(ev models.InboundEvent) {
	switch ev.Type {
	case models.EventNewMessage:
		msg, err := ev.DecodeMessage()
		if err != nil {
			log.Printf("bad new_message payload: %v", err)
			return
		}
		c.handleNewMessage(msg)
	case models.EventUserJoined:
		data, err := ev.DecodeUserJoined()
		if err != nil {
			log.Printf("bad user_joined payload: %v", err)
			return
		}
		status := data.Status
		if status == "" {
			status = "online"
		}
		c.presence.ObserveStatus(data.Username, status)
	case models.EventUserTyping:
		data, err := ev.DecodeUserTyping()
		if err != nil {
			log.Printf("bad user_typing payload: %v", err)
			return
		}
		c.handleTyping(data)
	default:
		log.Printf("ignoring unknown event type %q", ev.Type)
	}
}

func (c *Coordinator) handleNewMessage(msg models.Message) {
	// Any event referencing a user refreshes its last-known presence.
	c.presence.ObserveStatus(msg.SenderUsername, "online")

	c.mu.Lock()
	if msg.ChatID != c.activeChatID {
		// No baseline for inactive chats; history is re-fetched on open.
		c.mu.Unlock()
		return
	}
	if c.fetchChatID == c.activeChatID && c.fetchChatID != "" {
		c.buffered = append(c.buffered, msg)
		c.mu.Unlock()
		return
	}
	notify := c.onMessages
	c.mu.Unlock()

	c.rec.ApplyLive(msg)
	if notify != nil {
		notify(msg.ChatID, c.rec.SequenceFor(msg.ChatID))
	}
}

func (c *Coordinator) handleTyping(data models.UserTypingData) {
	c.mu.Lock()
	self := ""
	if c.session != nil {
		self = c.session.User.Username
	}
	notify := c.onTyping
	c.mu.Unlock()

	if data.Username == self {
		return
	}
	c.presence.SetTyping(data.Username, data.IsTyping)
	c.presence.ObserveStatus(data.Username, "online")
	if notify != nil {
		notify(c.presence.Typing())
	}
}

// HandleConnState consumes a connection-state transition. Wired as the
// supervisor's state handler.
func (c *Coordinator) HandleConnState(st transport.State) {
	c.mu.Lock()
	c.connState = st
	notify := c.onConnState
	sessID := ""
	if c.session != nil {
		sessID = c.session.SessionID
	}
	c.mu.Unlock()

	if st == transport.StateReconnecting {
		c.emitter.Emit(context.Background(), "reconnect", "live connection lost, retrying", sessID)
	}
	if notify != nil {
		notify(st)
	}
}

// ActiveJoin reports the join the supervisor must replay after a reconnect.
func (c *Coordinator) ActiveJoin() (username, chatID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.activeChatID == "" {
		return "", "", false
	}
	return c.session.User.Username, c.activeChatID, true
}

// Session returns the active session, if any.
func (c *Coordinator) Session() (models.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return models.Session{}, false
	}
	return *c.session, true
}

// Chats returns a snapshot of the chat list in fetch order.
func (c *Coordinator) Chats() []models.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Chat, len(c.chats))
	copy(out, c.chats)
	return out
}

// Users returns a snapshot of the user directory.
func (c *Coordinator) Users() []models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.User, len(c.users))
	copy(out, c.users)
	return out
}

// ActiveChatID returns the currently selected chat id, or "".
func (c *Coordinator) ActiveChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeChatID
}

// ConnState returns the last observed connection state.
func (c *Coordinator) ConnState() transport.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connState
}

// Sequence returns the reconciled message sequence for a chat.
func (c *Coordinator) Sequence(chatID string) []models.Message {
	return c.rec.SequenceFor(chatID)
}

// Typing returns the usernames currently marked as typing.
func (c *Coordinator) Typing() []string {
	return c.presence.Typing()
}
