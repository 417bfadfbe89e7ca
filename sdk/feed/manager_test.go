package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeoliero/uq/sdk"
)

const (
	alice = "alice"
	bob   = "bob"
	carol = "carol"
)

var aliceSession = sdk.Session{UserId: alice, Token: "alice-token"}

func msgId(n int) string {
	return fmt.Sprintf("%020d", n)
}

type fakeSub struct {
	onInsert     func(*sdk.MessageEvent)
	unsubscribed atomic.Bool
}

func (s *fakeSub) Unsubscribe() error {
	s.unsubscribed.Store(true)
	return nil
}

type fakeBackend struct {
	mu       sync.Mutex
	messages []*sdk.MessageInfo
	nextId   int

	fetchCalls  atomic.Int32
	createCalls atomic.Int32
	getCalls    atomic.Int32
	fetchGate   chan struct{}
	getGate     chan struct{}
	fetchErr    error
	createErr   error
	getErr      error
	subErr      error
	pages       [][]*sdk.MessageInfo
	beforeReply func()
	subs        []*fakeSub
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{nextId: 1000}
}

// seed stores n messages between alice and partner at t = 1000, 2000, ... alternating direction
func (f *fakeBackend) seed(partner string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 1; i <= n; i++ {
		sender, recipient := partner, alice
		if i%2 == 0 {
			sender, recipient = alice, partner
		}
		f.messages = append(f.messages, &sdk.MessageInfo{
			Id:          msgId(i),
			SenderId:    sender,
			RecipientId: recipient,
			Content:     fmt.Sprintf("m%d", i),
			CreatedAt:   int64(i) * 1000,
		})
	}
}

func (f *fakeBackend) add(m *sdk.MessageInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, m)
}

func (f *fakeBackend) FetchMessages(_ context.Context, sess sdk.Session, req *sdk.ListMessagesRequest) ([]*sdk.MessageInfo, error) {
	f.mu.Lock()
	var page []*sdk.MessageInfo
	if len(f.pages) > 0 {
		page, f.pages = f.pages[0], f.pages[1:]
	} else {
		for _, m := range f.messages {
			if !(m.SenderId == sess.UserId && m.RecipientId == req.PartnerId) &&
				!(m.SenderId == req.PartnerId && m.RecipientId == sess.UserId) {
				continue
			}
			if req.Before > 0 && !(m.CreatedAt < req.Before || (m.CreatedAt == req.Before && m.Id < req.BeforeId)) {
				continue
			}
			page = append(page, m)
		}
		sort.Slice(page, func(i, j int) bool {
			if page[i].CreatedAt != page[j].CreatedAt {
				return page[i].CreatedAt > page[j].CreatedAt
			}
			return page[i].Id > page[j].Id
		})
		if len(page) > req.Limit {
			page = page[:req.Limit]
		}
	}
	gate, err := f.fetchGate, f.fetchErr
	f.mu.Unlock()

	f.fetchCalls.Add(1)
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (f *fakeBackend) CreateMessage(_ context.Context, sess sdk.Session, req *sdk.SendMessageRequest) (*sdk.MessageInfo, error) {
	f.createCalls.Add(1)

	f.mu.Lock()
	if f.createErr != nil {
		err := f.createErr
		f.mu.Unlock()
		return nil, err
	}
	f.nextId++
	m := &sdk.MessageInfo{
		Id:          msgId(f.nextId),
		ClientMsgId: req.ClientMsgId,
		SenderId:    sess.UserId,
		RecipientId: req.RecipientId,
		Content:     req.Content,
		CreatedAt:   req.CreatedAt,
		Sender:      &sdk.UserInfo{Id: sess.UserId, Username: sess.UserId},
	}
	f.messages = append(f.messages, m)
	hook := f.beforeReply
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return m, nil
}

func (f *fakeBackend) GetMessage(_ context.Context, _ sdk.Session, id string) (*sdk.MessageInfo, error) {
	f.mu.Lock()
	gate := f.getGate
	f.mu.Unlock()
	f.getCalls.Add(1)
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, m := range f.messages {
		if m.Id == id {
			return m, nil
		}
	}
	return nil, sdk.ErrMessageNotFound
}

func (f *fakeBackend) Subscribe(_ context.Context, _ sdk.Session, onInsert func(*sdk.MessageEvent)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	s := &fakeSub{onInsert: onInsert}
	f.subs = append(f.subs, s)
	return s, nil
}

func (f *fakeBackend) lastSub() *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

func eventOf(m *sdk.MessageInfo) *sdk.MessageEvent {
	return &sdk.MessageEvent{Id: m.Id, SenderId: m.SenderId, RecipientId: m.RecipientId, CreatedAt: m.CreatedAt}
}

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Id())
	}
	return out
}

func assertOrderedAndUnique(t *testing.T, items []Item) {
	t.Helper()
	seen := make(map[string]bool)
	for i, it := range items {
		if i > 0 {
			assert.LessOrEqual(t, items[i-1].Message.CreatedAt, it.Message.CreatedAt, "items %d and %d out of order", i-1, i)
		}
		if id := it.Id(); id != "" {
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	}
}

func idRange(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, msgId(i))
	}
	return out
}

func openBob(t *testing.T, f *fakeBackend, opts ...Option) *Manager {
	t.Helper()
	m := NewManager(f, opts...)
	require.NoError(t, m.Open(context.Background(), aliceSession, bob))
	return m
}

func TestPagination(t *testing.T) {
	f := newFakeBackend()
	f.seed(bob, 120)
	m := openBob(t, f)
	ctx := context.Background()

	st := m.State()
	assert.Equal(t, idRange(71, 120), ids(st.Items))
	assert.True(t, st.HasMore)
	assert.Equal(t, Cursor{CreatedAt: 71000, Id: msgId(71)}, st.Cursor)
	assertOrderedAndUnique(t, st.Items)

	require.NoError(t, m.LoadMore(ctx))
	st = m.State()
	assert.Equal(t, idRange(21, 120), ids(st.Items))
	assert.True(t, st.HasMore)
	assert.Equal(t, int64(21000), st.Cursor.CreatedAt)
	assert.False(t, st.IsLoadingMore)

	require.NoError(t, m.LoadMore(ctx))
	st = m.State()
	assert.Equal(t, idRange(1, 120), ids(st.Items))
	assert.False(t, st.HasMore)
	assert.Equal(t, int64(1000), st.Cursor.CreatedAt)
	assertOrderedAndUnique(t, st.Items)

	// nothing older is known
	require.NoError(t, m.LoadMore(ctx))
	assert.Equal(t, int32(3), f.fetchCalls.Load())
}

func TestPaginationSharedTimestampAtBoundary(t *testing.T) {
	f := newFakeBackend()
	for i := 1; i <= 4; i++ {
		f.add(&sdk.MessageInfo{Id: msgId(i), SenderId: bob, RecipientId: alice, CreatedAt: 5000})
	}
	m := openBob(t, f, WithPageSize(2))

	assert.Equal(t, idRange(3, 4), ids(m.State().Items))
	require.NoError(t, m.LoadMore(context.Background()))
	assert.Equal(t, idRange(1, 4), ids(m.State().Items))
	assert.False(t, m.State().HasMore)
}

func TestOpenSmallConversation(t *testing.T) {
	f := newFakeBackend()
	f.seed(bob, 3)
	m := openBob(t, f)

	st := m.State()
	assert.Equal(t, bob, st.PartnerId)
	assert.Equal(t, idRange(1, 3), ids(st.Items))
	assert.False(t, st.HasMore)
}

func TestOpenFailureLeavesEmptyFeed(t *testing.T) {
	f := newFakeBackend()
	f.seed(bob, 10)
	m := openBob(t, f)
	require.Len(t, m.State().Items, 10)

	f.fetchErr = errors.New("backend down")
	err := m.Open(context.Background(), aliceSession, carol)
	require.Error(t, err)
	assert.ErrorIs(t, err, f.fetchErr)

	st := m.State()
	assert.Equal(t, carol, st.PartnerId)
	assert.Empty(t, st.Items)
}

func TestOpenFailureKeepsSendInFlight(t *testing.T) {
	f := newFakeBackend()
	f.fetchErr = errors.New("backend down")
	fetchGate := make(chan struct{})
	f.fetchGate = fetchGate
	createGate := make(chan struct{})
	f.beforeReply = func() { <-createGate }
	m := NewManager(f)

	opened := make(chan error, 1)
	go func() { opened <- m.Open(context.Background(), aliceSession, bob) }()
	require.Eventually(t, func() bool {
		return f.fetchCalls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	sent := make(chan error, 1)
	go func() {
		_, err := m.Send(context.Background(), "still there?")
		sent <- err
	}()
	require.Eventually(t, func() bool {
		return f.createCalls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	close(fetchGate)
	require.Error(t, <-opened)
	items := m.State().Items
	require.Len(t, items, 1)
	assert.Equal(t, StatePending, items[0].State)

	close(createGate)
	require.NoError(t, <-sent)
	items = m.State().Items
	require.Len(t, items, 1)
	assert.Equal(t, StateConfirmed, items[0].State)
	assert.Equal(t, "still there?", items[0].Message.Content)
}

func TestOpenSubscribeFailure(t *testing.T) {
	f := newFakeBackend()
	f.subErr = errors.New("dial refused")
	m := NewManager(f)

	err := m.Open(context.Background(), aliceSession, bob)
	assert.ErrorIs(t, err, f.subErr)
	assert.Empty(t, m.State().PartnerId)
	assert.Equal(t, int32(0), f.fetchCalls.Load())
}

func TestPreconditions(t *testing.T) {
	f := newFakeBackend()
	m := NewManager(f)
	ctx := context.Background()

	assert.ErrorIs(t, m.Open(ctx, sdk.Session{UserId: alice}, bob), ErrNoSession)
	assert.ErrorIs(t, m.Open(ctx, aliceSession, ""), ErrNoConversation)
	assert.ErrorIs(t, m.LoadMore(ctx), ErrNoConversation)

	_, err := m.Send(ctx, "hello")
	assert.ErrorIs(t, err, ErrNoConversation)

	require.NoError(t, m.Open(ctx, aliceSession, bob))
	_, err = m.Send(ctx, "   \n")
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Empty(t, m.State().Items)
	assert.Equal(t, int32(0), f.createCalls.Load())

	assert.ErrorIs(t, m.Retry(ctx, "nope"), ErrItemNotFound)
	assert.ErrorIs(t, m.Discard("nope"), ErrItemNotFound)
}

func TestDedupAcrossOverlappingPages(t *testing.T) {
	f := newFakeBackend()
	mk := func(n int) *sdk.MessageInfo {
		return &sdk.MessageInfo{Id: msgId(n), SenderId: bob, RecipientId: alice, CreatedAt: int64(n) * 1000}
	}
	f.pages = [][]*sdk.MessageInfo{
		{mk(5), mk(4), mk(3), mk(2)},
		{mk(3), mk(2), mk(1)},
	}
	f.add(mk(5))
	m := openBob(t, f, WithPageSize(3))
	assert.Equal(t, idRange(3, 5), ids(m.State().Items))

	require.NoError(t, m.LoadMore(context.Background()))
	st := m.State()
	assert.Equal(t, idRange(1, 5), ids(st.Items))
	assertOrderedAndUnique(t, st.Items)

	// a push for a loaded message changes nothing
	m.handlePush(m.gen, eventOf(mk(5)))
	assert.Equal(t, idRange(1, 5), ids(m.State().Items))
}

func TestOptimisticSend(t *testing.T) {
	f := newFakeBackend()
	f.seed(bob, 2)

	var mu sync.Mutex
	var states []State
	m := openBob(t, f,
		WithClock(func() time.Time { return time.UnixMilli(9000) }),
		WithLocalIdGenerator(func() string { return "local-1" }),
		WithOnChange(func(s State) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, s)
		}),
	)

	localId, err := m.Send(context.Background(), "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "local-1", localId)

	mu.Lock()
	var sawPending bool
	for _, s := range states {
		for _, it := range s.Items {
			if it.State == StatePending && it.LocalId == "local-1" {
				sawPending = true
				assert.Equal(t, "hello", it.Message.Content)
				assert.Empty(t, it.Id())
			}
		}
	}
	mu.Unlock()
	assert.True(t, sawPending)

	st := m.State()
	require.Len(t, st.Items, 3)
	last := st.Items[2]
	assert.Equal(t, StateConfirmed, last.State)
	assert.Equal(t, msgId(1001), last.Id())
	assert.Equal(t, "local-1", last.LocalId)
	assert.Equal(t, int64(9000), last.Message.CreatedAt)
	assert.Equal(t, 1, countContent(st.Items, "hello"))
}

func TestSendEchoArrivesFirst(t *testing.T) {
	f := newFakeBackend()
	m := openBob(t, f, WithLocalIdGenerator(func() string { return "local-echo" }))

	f.beforeReply = func() {
		m.handlePush(m.gen, &sdk.MessageEvent{Id: msgId(1001), SenderId: alice, RecipientId: bob, CreatedAt: 1})
	}
	_, err := m.Send(context.Background(), "hello")
	require.NoError(t, err)

	st := m.State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, StateConfirmed, st.Items[0].State)
	assert.Equal(t, msgId(1001), st.Items[0].Id())
	assert.Equal(t, 1, countContent(st.Items, "hello"))
}

func TestSendFailureRetryAndDiscard(t *testing.T) {
	f := newFakeBackend()
	n := 0
	m := openBob(t, f, WithLocalIdGenerator(func() string {
		n++
		return fmt.Sprintf("local-%d", n)
	}))
	ctx := context.Background()

	f.createErr = errors.New("timeout")
	localId, err := m.Send(ctx, "first")
	require.Error(t, err)
	assert.ErrorIs(t, err, f.createErr)

	st := m.State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, StateFailed, st.Items[0].State)
	assert.Equal(t, localId, st.Items[0].LocalId)
	assert.ErrorIs(t, st.Items[0].Err, f.createErr)

	second, err := m.Send(ctx, "second")
	require.Error(t, err)
	require.NoError(t, m.Discard(second))
	assert.Len(t, m.State().Items, 1)

	f.createErr = nil
	require.NoError(t, m.Retry(ctx, localId))
	st = m.State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, StateConfirmed, st.Items[0].State)
	assert.Equal(t, "first", st.Items[0].Message.Content)
	assert.Nil(t, st.Items[0].Err)

	assert.ErrorIs(t, m.Retry(ctx, localId), ErrItemNotFound)
}

func TestPushFilter(t *testing.T) {
	f := newFakeBackend()
	f.seed(bob, 3)
	m := openBob(t, f)
	before := ids(m.State().Items)

	fromCarol := &sdk.MessageInfo{Id: msgId(500), SenderId: carol, RecipientId: alice, CreatedAt: 99000}
	f.add(fromCarol)
	m.handlePush(m.gen, eventOf(fromCarol))
	assert.Equal(t, before, ids(m.State().Items))

	toCarol := &sdk.MessageInfo{Id: msgId(501), SenderId: alice, RecipientId: carol, CreatedAt: 99000}
	f.add(toCarol)
	m.handlePush(m.gen, eventOf(toCarol))
	assert.Equal(t, before, ids(m.State().Items))
}

func TestPushAppendsAndChimes(t *testing.T) {
	f := newFakeBackend()
	f.seed(bob, 3)
	chimed := make(chan struct{}, 4)
	m := openBob(t, f, WithChime(ChimeFunc(func() { chimed <- struct{}{} })))

	fromBob := &sdk.MessageInfo{Id: msgId(4), SenderId: bob, RecipientId: alice, CreatedAt: 4000, Sender: &sdk.UserInfo{Username: "bob"}}
	f.add(fromBob)
	f.lastSub().onInsert(eventOf(fromBob))

	assert.Eventually(t, func() bool {
		return len(m.State().Items) == 4
	}, time.Second, 5*time.Millisecond)

	last := m.State().Items[3]
	assert.Equal(t, msgId(4), last.Id())
	assert.Equal(t, "bob", last.Message.Sender.Username)

	select {
	case <-chimed:
	case <-time.After(time.Second):
		t.Fatal("chime not played")
	}

	// own echo from another device lands without a chime
	mine := &sdk.MessageInfo{Id: msgId(5), SenderId: alice, RecipientId: bob, CreatedAt: 5000}
	f.add(mine)
	m.handlePush(m.gen, eventOf(mine))
	assert.Equal(t, idRange(1, 5), ids(m.State().Items))
	select {
	case <-chimed:
		t.Fatal("chime played for own message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChimePanicIsRecovered(t *testing.T) {
	f := newFakeBackend()
	m := openBob(t, f, WithChime(ChimeFunc(func() { panic("no audio device") })))

	fromBob := &sdk.MessageInfo{Id: msgId(1), SenderId: bob, RecipientId: alice, CreatedAt: 1000}
	f.add(fromBob)
	m.handlePush(m.gen, eventOf(fromBob))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{msgId(1)}, ids(m.State().Items))
}

func TestPushOutOfOrderKeepsOrder(t *testing.T) {
	f := newFakeBackend()
	m := openBob(t, f)

	newer := &sdk.MessageInfo{Id: msgId(2), SenderId: bob, RecipientId: alice, CreatedAt: 2000}
	older := &sdk.MessageInfo{Id: msgId(1), SenderId: bob, RecipientId: alice, CreatedAt: 1000}
	f.add(newer)
	f.add(older)
	m.handlePush(m.gen, eventOf(newer))
	m.handlePush(m.gen, eventOf(older))

	st := m.State()
	assert.Equal(t, idRange(1, 2), ids(st.Items))
	assertOrderedAndUnique(t, st.Items)
}

func TestLoadMoreAfterBackdatedPush(t *testing.T) {
	f := newFakeBackend()
	f.seed(bob, 4)
	m := openBob(t, f, WithPageSize(2))
	require.Equal(t, idRange(3, 4), ids(m.State().Items))

	// client clocks may lag, the server keeps stamps a few minutes old
	late := &sdk.MessageInfo{Id: msgId(5), SenderId: bob, RecipientId: alice, CreatedAt: 1500}
	f.add(late)
	m.handlePush(m.gen, eventOf(late))
	require.Equal(t, []string{msgId(5), msgId(3), msgId(4)}, ids(m.State().Items))

	ctx := context.Background()
	require.NoError(t, m.LoadMore(ctx))
	st := m.State()
	assert.Equal(t, []string{msgId(5), msgId(2), msgId(3), msgId(4)}, ids(st.Items))
	assertOrderedAndUnique(t, st.Items)

	require.NoError(t, m.LoadMore(ctx))
	st = m.State()
	assert.Equal(t, []string{msgId(1), msgId(5), msgId(2), msgId(3), msgId(4)}, ids(st.Items))
	assert.False(t, st.HasMore)
	assertOrderedAndUnique(t, st.Items)
}

func TestMergeOlderTies(t *testing.T) {
	at := func(id string, ts int64, state ItemState) Item {
		return Item{State: state, Message: &sdk.MessageInfo{Id: id, CreatedAt: ts}}
	}
	items := []Item{at(msgId(3), 5000, StateConfirmed), at("", 5000, StatePending), at(msgId(9), 6000, StateConfirmed)}
	older := []Item{at(msgId(1), 4000, StateConfirmed), at(msgId(2), 5000, StateConfirmed), at(msgId(4), 5000, StateConfirmed)}

	merged := mergeOlder(older, items)
	var got []string
	for _, it := range merged {
		got = append(got, it.Message.Id)
	}
	assert.Equal(t, []string{msgId(1), msgId(2), msgId(3), msgId(4), "", msgId(9)}, got)
}

func TestPushFetchFailure(t *testing.T) {
	f := newFakeBackend()
	f.seed(bob, 2)
	chimed := make(chan struct{}, 2)
	m := openBob(t, f, WithChime(ChimeFunc(func() { chimed <- struct{}{} })))

	fresh := &sdk.MessageInfo{Id: msgId(3), SenderId: bob, RecipientId: alice, CreatedAt: 3000}
	f.add(fresh)
	f.mu.Lock()
	f.getErr = errors.New("timeout")
	f.mu.Unlock()

	m.handlePush(m.gen, eventOf(fresh))
	assert.Equal(t, idRange(1, 2), ids(m.State().Items))
	select {
	case <-chimed:
		t.Fatal("chime played for a message that was not shown")
	case <-time.After(50 * time.Millisecond):
	}

	// a redelivered event is not blocked by the earlier failure
	f.mu.Lock()
	f.getErr = nil
	f.mu.Unlock()
	m.handlePush(m.gen, eventOf(fresh))
	assert.Equal(t, idRange(1, 3), ids(m.State().Items))
	select {
	case <-chimed:
	case <-time.After(time.Second):
		t.Fatal("chime not played")
	}
}

func TestLoadMoreGuard(t *testing.T) {
	f := newFakeBackend()
	f.seed(bob, 120)
	m := openBob(t, f)
	ctx := context.Background()

	gate := make(chan struct{})
	f.mu.Lock()
	f.fetchGate = gate
	f.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- m.LoadMore(ctx) }()

	require.Eventually(t, func() bool {
		return f.fetchCalls.Load() == 2
	}, time.Second, 5*time.Millisecond)
	assert.True(t, m.State().IsLoadingMore)

	require.NoError(t, m.LoadMore(ctx))
	require.NoError(t, m.LoadMore(ctx))
	assert.Equal(t, int32(2), f.fetchCalls.Load())

	close(gate)
	require.NoError(t, <-done)

	st := m.State()
	assert.Equal(t, idRange(21, 120), ids(st.Items))
	assert.False(t, st.IsLoadingMore)
}

func TestPushDuringLoadMore(t *testing.T) {
	f := newFakeBackend()
	f.seed(bob, 120)
	m := openBob(t, f)

	gate := make(chan struct{})
	f.mu.Lock()
	f.fetchGate = gate
	f.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- m.LoadMore(context.Background()) }()
	require.Eventually(t, func() bool {
		return m.State().IsLoadingMore
	}, time.Second, 5*time.Millisecond)

	fresh := &sdk.MessageInfo{Id: msgId(121), SenderId: bob, RecipientId: alice, CreatedAt: 121000}
	f.add(fresh)
	m.handlePush(m.gen, eventOf(fresh))

	close(gate)
	require.NoError(t, <-done)

	st := m.State()
	assert.Equal(t, idRange(21, 121), ids(st.Items))
	assertOrderedAndUnique(t, st.Items)
}

func TestPushDuringOpenIsKept(t *testing.T) {
	f := newFakeBackend()
	f.seed(bob, 60)
	gate := make(chan struct{})
	f.fetchGate = gate
	m := NewManager(f)

	done := make(chan error, 1)
	go func() { done <- m.Open(context.Background(), aliceSession, bob) }()
	require.Eventually(t, func() bool {
		return f.fetchCalls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	fresh := &sdk.MessageInfo{Id: msgId(61), SenderId: bob, RecipientId: alice, CreatedAt: 61000}
	f.add(fresh)
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()
	m.handlePush(gen, eventOf(fresh))

	close(gate)
	require.NoError(t, <-done)

	st := m.State()
	assert.Equal(t, idRange(11, 61), ids(st.Items))
	assert.Equal(t, int64(11000), st.Cursor.CreatedAt)
	assert.True(t, st.HasMore)
}

func TestSwitchIsolation(t *testing.T) {
	f := newFakeBackend()
	f.seed(bob, 3)
	m := openBob(t, f)
	oldGen := m.gen
	oldSub := f.lastSub()

	require.NoError(t, m.Open(context.Background(), aliceSession, carol))
	assert.True(t, oldSub.unsubscribed.Load())
	assert.Equal(t, carol, m.State().PartnerId)
	assert.Empty(t, m.State().Items)

	late := &sdk.MessageInfo{Id: msgId(4), SenderId: bob, RecipientId: alice, CreatedAt: 4000}
	f.add(late)
	m.handlePush(oldGen, eventOf(late))
	assert.Empty(t, m.State().Items)

	// an old-generation event that happens to match the new partner is dropped too
	fromCarol := &sdk.MessageInfo{Id: msgId(5), SenderId: carol, RecipientId: alice, CreatedAt: 5000}
	f.add(fromCarol)
	m.handlePush(oldGen, eventOf(fromCarol))
	assert.Empty(t, m.State().Items)
}

func TestSwitchDuringPushFetch(t *testing.T) {
	f := newFakeBackend()
	m := openBob(t, f)
	gen := m.gen

	fromBob := &sdk.MessageInfo{Id: msgId(1), SenderId: bob, RecipientId: alice, CreatedAt: 1000}
	f.add(fromBob)
	gate := make(chan struct{})
	f.mu.Lock()
	f.getGate = gate
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.handlePush(gen, eventOf(fromBob))
		close(done)
	}()
	require.Eventually(t, func() bool {
		return f.getCalls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Open(context.Background(), aliceSession, carol))
	close(gate)
	<-done

	assert.Empty(t, m.State().Items)
}

func TestClose(t *testing.T) {
	f := newFakeBackend()
	f.seed(bob, 3)
	m := openBob(t, f)
	gen := m.gen
	sub := f.lastSub()

	require.NoError(t, m.Close())
	assert.True(t, sub.unsubscribed.Load())
	st := m.State()
	assert.Empty(t, st.PartnerId)
	assert.Empty(t, st.Items)

	late := &sdk.MessageInfo{Id: msgId(4), SenderId: bob, RecipientId: alice, CreatedAt: 4000}
	f.add(late)
	m.handlePush(gen, eventOf(late))
	assert.Empty(t, m.State().Items)
	assert.NoError(t, m.Close())
}

func TestItemStateString(t *testing.T) {
	assert.Equal(t, "confirmed", StateConfirmed.String())
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", ItemState(9).String())
}

func countContent(items []Item, content string) int {
	n := 0
	for _, it := range items {
		if it.Message != nil && it.Message.Content == content {
			n++
		}
	}
	return n
}
