package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/uq/sdk"
)

// Manager keeps the ordered, duplicate-free message list of one open conversation.
// It merges history pages, messages sent through it and pushed inserts.
// All methods are safe for concurrent use.
type Manager struct {
	backend    Backend
	pageSize   int
	chime      Chime
	onChange   func(State)
	now        func() time.Time
	newLocalId func() string

	mu sync.Mutex
	// gen increments on every Open and Close; work started under an older gen is discarded
	gen         uint64
	sess        sdk.Session
	partnerId   string
	items       []Item
	cursor      Cursor
	hasMore     bool
	loadingMore bool
	sub         Subscription
	subCtx      context.Context
	cancel      context.CancelFunc
}

// NewManager creates a Manager with no conversation open
func NewManager(backend Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:    backend,
		pageSize:   DefaultPageSize,
		now:        time.Now,
		newLocalId: defaultLocalId,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open switches to the conversation with partnerId.
// The previous push channel is released before the new one is subscribed, then the
// newest page is loaded. On a failed load the conversation stays open with only the
// items sent or pushed meanwhile.
func (m *Manager) Open(ctx context.Context, sess sdk.Session, partnerId string) error {
	if !sess.Valid() {
		return ErrNoSession
	}
	if partnerId == "" {
		return ErrNoConversation
	}

	m.mu.Lock()
	oldSub, oldCancel := m.sub, m.cancel
	m.gen++
	gen := m.gen
	m.reset()
	m.sess = sess
	m.partnerId = partnerId
	m.subCtx, m.cancel = context.WithCancel(context.Background())
	subCtx := m.subCtx
	state := m.snapshot()
	m.mu.Unlock()

	m.release(ctx, oldSub, oldCancel)
	m.emit(state)

	sub, err := m.backend.Subscribe(subCtx, sess, func(event *sdk.MessageEvent) {
		go m.handlePush(gen, event)
	})
	if err != nil {
		log.CtxWarn(ctx, "feed subscribe failed: partner_id=%s, error=%v", partnerId, err)
		m.closeGen(ctx, gen)
		return fmt.Errorf("subscribe: %w", err)
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		_ = sub.Unsubscribe()
		return ErrSuperseded
	}
	m.sub = sub
	m.mu.Unlock()

	page, err := m.backend.FetchMessages(ctx, sess, &sdk.ListMessagesRequest{
		PartnerId: partnerId,
		Limit:     m.pageSize + 1,
	})

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		// keep what was sent or pushed while loading
		state = m.snapshot()
		m.mu.Unlock()
		log.CtxWarn(ctx, "feed initial load failed: partner_id=%s, error=%v", partnerId, err)
		m.emit(state)
		return fmt.Errorf("load messages: %w", err)
	}

	page, m.hasMore = m.trimPage(page)
	known := make(map[string]struct{}, len(page))
	loaded := confirmedPage(page, known)
	if len(loaded) > 0 {
		m.cursor = cursorOf(loaded[0].Message)
	}

	// items that arrived while the page was loading are newer than it
	for _, it := range m.items {
		if id := it.Id(); id != "" {
			if _, ok := known[id]; ok {
				continue
			}
		}
		loaded = insertFromTail(loaded, it)
	}
	m.items = loaded
	state = m.snapshot()
	m.mu.Unlock()

	log.CtxDebug(ctx, "feed opened: partner_id=%s, loaded=%d, has_more=%v", partnerId, len(page), state.HasMore)
	m.emit(state)
	return nil
}

// LoadMore prepends the next older page.
// It does nothing when no older messages are known or a load is already in flight.
func (m *Manager) LoadMore(ctx context.Context) error {
	m.mu.Lock()
	if m.partnerId == "" {
		m.mu.Unlock()
		return ErrNoConversation
	}
	if !m.hasMore || m.loadingMore {
		m.mu.Unlock()
		return nil
	}
	m.loadingMore = true
	gen, sess, partnerId, cursor := m.gen, m.sess, m.partnerId, m.cursor
	state := m.snapshot()
	m.mu.Unlock()
	m.emit(state)

	page, err := m.backend.FetchMessages(ctx, sess, &sdk.ListMessagesRequest{
		PartnerId: partnerId,
		Before:    cursor.CreatedAt,
		BeforeId:  cursor.Id,
		Limit:     m.pageSize + 1,
	})

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return ErrSuperseded
	}
	m.loadingMore = false
	if err != nil {
		state = m.snapshot()
		m.mu.Unlock()
		log.CtxWarn(ctx, "feed load more failed: partner_id=%s, before=%d, error=%v", partnerId, cursor.CreatedAt, err)
		m.emit(state)
		return fmt.Errorf("load more messages: %w", err)
	}

	page, m.hasMore = m.trimPage(page)
	if len(page) > 0 {
		m.cursor = cursorOf(page[len(page)-1])
	}
	older := confirmedPage(page, m.knownIds())
	m.items = mergeOlder(older, m.items)
	state = m.snapshot()
	m.mu.Unlock()

	m.emit(state)
	return nil
}

// Send appends text as a pending item and submits it.
// The returned local id names the item for Retry and Discard. On failure the item is
// kept as failed and the error is returned.
func (m *Manager) Send(ctx context.Context, text string) (string, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return "", ErrEmptyContent
	}

	m.mu.Lock()
	if m.partnerId == "" {
		m.mu.Unlock()
		return "", ErrNoConversation
	}
	if !m.sess.Valid() {
		m.mu.Unlock()
		return "", ErrNoSession
	}
	localId := m.newLocalId()
	msg := &sdk.MessageInfo{
		ClientMsgId: localId,
		SenderId:    m.sess.UserId,
		RecipientId: m.partnerId,
		Content:     content,
		CreatedAt:   m.now().UnixMilli(),
	}
	m.items = insertFromTail(m.items, Item{State: StatePending, LocalId: localId, Message: msg})
	gen, sess := m.gen, m.sess
	state := m.snapshot()
	m.mu.Unlock()
	m.emit(state)

	return localId, m.deliver(ctx, gen, sess, localId, msg)
}

// Retry resubmits a failed item with its original local id
func (m *Manager) Retry(ctx context.Context, localId string) error {
	m.mu.Lock()
	i := m.indexOfLocal(localId)
	if i < 0 || m.items[i].State != StateFailed {
		m.mu.Unlock()
		return ErrItemNotFound
	}
	m.items[i].State = StatePending
	m.items[i].Err = nil
	msg := m.items[i].Message
	gen, sess := m.gen, m.sess
	state := m.snapshot()
	m.mu.Unlock()
	m.emit(state)

	return m.deliver(ctx, gen, sess, localId, msg)
}

// Discard removes a failed item
func (m *Manager) Discard(localId string) error {
	m.mu.Lock()
	i := m.indexOfLocal(localId)
	if i < 0 || m.items[i].State != StateFailed {
		m.mu.Unlock()
		return ErrItemNotFound
	}
	m.items = removeAt(m.items, i)
	state := m.snapshot()
	m.mu.Unlock()
	m.emit(state)
	return nil
}

// deliver creates msg on the backend and reconciles the pending item named localId
func (m *Manager) deliver(ctx context.Context, gen uint64, sess sdk.Session, localId string, msg *sdk.MessageInfo) error {
	saved, err := m.backend.CreateMessage(ctx, sess, &sdk.SendMessageRequest{
		ClientMsgId: localId,
		RecipientId: msg.RecipientId,
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt,
	})

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}
		return nil
	}

	i := m.indexOfLocal(localId)
	if err != nil {
		if i >= 0 && m.items[i].State == StatePending {
			m.items[i].State = StateFailed
			m.items[i].Err = err
		}
		state := m.snapshot()
		m.mu.Unlock()
		log.CtxWarn(ctx, "feed send failed: local_id=%s, partner_id=%s, error=%v", localId, msg.RecipientId, err)
		m.emit(state)
		return fmt.Errorf("send message: %w", err)
	}

	// the push echo may already have confirmed it
	if i >= 0 && m.items[i].State != StateConfirmed {
		m.items = removeAt(m.items, i)
	}
	if m.indexOfId(saved.Id) < 0 {
		m.items = insertFromTail(m.items, Item{State: StateConfirmed, LocalId: localId, Message: saved})
	}
	state := m.snapshot()
	m.mu.Unlock()

	m.emit(state)
	return nil
}

// handlePush fetches the full row of an inserted message and adds it to the tail.
// Events from another conversation or an older generation are ignored.
func (m *Manager) handlePush(gen uint64, event *sdk.MessageEvent) {
	m.mu.Lock()
	if !m.acceptsEvent(gen, event) {
		m.mu.Unlock()
		log.Debug("feed push ignored: id=%s, sender_id=%s", event.Id, event.SenderId)
		return
	}
	ctx, sess := m.subCtx, m.sess
	m.mu.Unlock()

	msg, err := m.backend.GetMessage(ctx, sess, event.Id)
	if err != nil {
		log.Warn("feed push fetch failed: id=%s, error=%v", event.Id, err)
		return
	}

	m.mu.Lock()
	if !m.acceptsEvent(gen, event) {
		m.mu.Unlock()
		return
	}
	item := Item{State: StateConfirmed, LocalId: msg.ClientMsgId, Message: msg}
	if i := m.indexOfPendingEcho(msg); i >= 0 {
		m.items = removeAt(m.items, i)
	}
	m.items = insertFromTail(m.items, item)
	fromPartner := msg.SenderId == m.partnerId
	state := m.snapshot()
	m.mu.Unlock()

	m.emit(state)
	if fromPartner {
		m.playChime()
	}
}

// acceptsEvent requires the lock
func (m *Manager) acceptsEvent(gen uint64, event *sdk.MessageEvent) bool {
	if event == nil || gen != m.gen || m.partnerId == "" {
		return false
	}
	me := m.sess.UserId
	inbound := event.SenderId == m.partnerId && event.RecipientId == me
	echo := event.SenderId == me && event.RecipientId == m.partnerId
	if !inbound && !echo {
		return false
	}
	return m.indexOfId(event.Id) < 0
}

func (m *Manager) playChime() {
	if m.chime == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warn("message chime panicked: %v", r)
			}
		}()
		m.chime.PlayMessageChime()
	}()
}

// Close releases the push channel and forgets the conversation
func (m *Manager) Close() error {
	m.mu.Lock()
	sub, cancel := m.sub, m.cancel
	m.gen++
	m.reset()
	state := m.snapshot()
	m.mu.Unlock()

	err := m.release(context.Background(), sub, cancel)
	m.emit(state)
	return err
}

// closeGen closes the conversation if gen is still the active one
func (m *Manager) closeGen(ctx context.Context, gen uint64) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	sub, cancel := m.sub, m.cancel
	m.gen++
	m.reset()
	state := m.snapshot()
	m.mu.Unlock()

	_ = m.release(ctx, sub, cancel)
	m.emit(state)
}

// State returns a snapshot of the open conversation
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Manager) release(ctx context.Context, sub Subscription, cancel context.CancelFunc) error {
	if cancel != nil {
		cancel()
	}
	if sub == nil {
		return nil
	}
	if err := sub.Unsubscribe(); err != nil {
		log.CtxWarn(ctx, "feed unsubscribe failed: %v", err)
		return err
	}
	return nil
}

// reset requires the lock
func (m *Manager) reset() {
	m.sess = sdk.Session{}
	m.partnerId = ""
	m.items = nil
	m.cursor = Cursor{}
	m.hasMore = false
	m.loadingMore = false
	m.sub = nil
	m.subCtx = nil
	m.cancel = nil
}

// trimPage splits the overflow row off a page fetched with pageSize+1
func (m *Manager) trimPage(page []*sdk.MessageInfo) ([]*sdk.MessageInfo, bool) {
	if len(page) > m.pageSize {
		return page[:m.pageSize], true
	}
	return page, false
}

func (m *Manager) knownIds() map[string]struct{} {
	known := make(map[string]struct{}, len(m.items))
	for _, it := range m.items {
		if id := it.Id(); id != "" {
			known[id] = struct{}{}
		}
	}
	return known
}

func (m *Manager) indexOfId(id string) int {
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].Id() == id {
			return i
		}
	}
	return -1
}

func (m *Manager) indexOfLocal(localId string) int {
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].LocalId == localId {
			return i
		}
	}
	return -1
}

// indexOfPendingEcho finds the pending item that msg confirms
func (m *Manager) indexOfPendingEcho(msg *sdk.MessageInfo) int {
	if msg.ClientMsgId == "" || msg.SenderId != m.sess.UserId {
		return -1
	}
	i := m.indexOfLocal(msg.ClientMsgId)
	if i < 0 || m.items[i].State == StateConfirmed {
		return -1
	}
	return i
}

// snapshot requires the lock
func (m *Manager) snapshot() State {
	items := make([]Item, len(m.items))
	copy(items, m.items)
	return State{
		PartnerId:     m.partnerId,
		Items:         items,
		Cursor:        m.cursor,
		HasMore:       m.hasMore,
		IsLoadingMore: m.loadingMore,
	}
}

func (m *Manager) emit(state State) {
	if m.onChange != nil {
		m.onChange(state)
	}
}
