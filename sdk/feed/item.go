package feed

import "github.com/mbeoliero/uq/sdk"

// ItemState tags how far a feed item got towards the backend
type ItemState int

const (
	// StateConfirmed items are stored by the backend and carry its id
	StateConfirmed ItemState = iota
	// StatePending items were sent and await confirmation
	StatePending
	// StateFailed items could not be sent, see Item.Err
	StateFailed
)

func (s ItemState) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StatePending:
		return "pending"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Item is one row of the feed.
// LocalId is set for messages sent through the manager and survives confirmation.
type Item struct {
	State   ItemState
	LocalId string
	Err     error
	Message *sdk.MessageInfo
}

// Id returns the backend id, empty until confirmed
func (i Item) Id() string {
	if i.State != StateConfirmed || i.Message == nil {
		return ""
	}
	return i.Message.Id
}

func (i Item) createdAt() int64 {
	if i.Message == nil {
		return 0
	}
	return i.Message.CreatedAt
}

// Cursor is the position of the oldest loaded message.
// The next page holds messages strictly before it, ties on CreatedAt broken by Id.
type Cursor struct {
	CreatedAt int64
	Id        string
}

func cursorOf(m *sdk.MessageInfo) Cursor {
	return Cursor{CreatedAt: m.CreatedAt, Id: m.Id}
}

// State is a snapshot of the open conversation
type State struct {
	PartnerId     string
	Items         []Item
	Cursor        Cursor
	HasMore       bool
	IsLoadingMore bool
}

// insertFromTail places it after every item not newer than it, scanning from the tail.
// Newest arrivals land at the end without touching the head.
func insertFromTail(items []Item, it Item) []Item {
	i := len(items)
	for i > 0 && items[i-1].createdAt() > it.createdAt() {
		i--
	}
	items = append(items, Item{})
	copy(items[i+1:], items[i:])
	items[i] = it
	return items
}

// mergeOlder merges an ascending page of older messages into the head of items.
// Items sent or pushed with a backdated time may already sit below the page, so each
// page item is placed before the first item that sorts after it.
func mergeOlder(older, items []Item) []Item {
	out := make([]Item, 0, len(older)+len(items))
	i := 0
	for _, it := range items {
		for i < len(older) && !sortsAfter(older[i], it) {
			out = append(out, older[i])
			i++
		}
		out = append(out, it)
	}
	return append(out, older[i:]...)
}

// sortsAfter orders by (CreatedAt, Id); items without an id sort last among equal times
func sortsAfter(a, b Item) bool {
	if a.createdAt() != b.createdAt() {
		return a.createdAt() > b.createdAt()
	}
	aid, bid := a.Id(), b.Id()
	if aid == "" || bid == "" {
		return aid == "" && bid != ""
	}
	return aid > bid
}

func removeAt(items []Item, i int) []Item {
	return append(items[:i], items[i+1:]...)
}

// confirmedPage turns a newest-first page into ascending confirmed items, skipping known ids
func confirmedPage(page []*sdk.MessageInfo, known map[string]struct{}) []Item {
	out := make([]Item, 0, len(page))
	for i := len(page) - 1; i >= 0; i-- {
		m := page[i]
		if m == nil {
			continue
		}
		if _, ok := known[m.Id]; ok {
			continue
		}
		known[m.Id] = struct{}{}
		out = append(out, Item{State: StateConfirmed, LocalId: m.ClientMsgId, Message: m})
	}
	return out
}
