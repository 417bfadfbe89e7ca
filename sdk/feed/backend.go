package feed

import (
	"context"

	"github.com/mbeoliero/uq/sdk"
)

// Backend is the message store the manager reads from and writes to.
// Every call carries the session it acts for.
type Backend interface {
	// FetchMessages returns up to req.Limit messages with req.PartnerId, newest first,
	// strictly older than the (Before, BeforeId) cursor when one is set.
	FetchMessages(ctx context.Context, sess sdk.Session, req *sdk.ListMessagesRequest) ([]*sdk.MessageInfo, error)
	// CreateMessage persists a message and returns it with its id and sender profile.
	CreateMessage(ctx context.Context, sess sdk.Session, req *sdk.SendMessageRequest) (*sdk.MessageInfo, error)
	GetMessage(ctx context.Context, sess sdk.Session, id string) (*sdk.MessageInfo, error)
	// Subscribe delivers partial rows of messages inserted for the session user until
	// the subscription is released or ctx is done.
	Subscribe(ctx context.Context, sess sdk.Session, onInsert func(*sdk.MessageEvent)) (Subscription, error)
}

// Subscription is a live push channel
type Subscription interface {
	Unsubscribe() error
}

// Chime is notified when a message from the partner arrives by push
type Chime interface {
	PlayMessageChime()
}

// ChimeFunc adapts a function to Chime
type ChimeFunc func()

// PlayMessageChime calls f
func (f ChimeFunc) PlayMessageChime() {
	f()
}

type clientBackend struct {
	client *sdk.Client
}

// FromClient returns a Backend served by the UQ API
func FromClient(c *sdk.Client) Backend {
	return &clientBackend{client: c}
}

func (b *clientBackend) FetchMessages(ctx context.Context, sess sdk.Session, req *sdk.ListMessagesRequest) ([]*sdk.MessageInfo, error) {
	return b.client.ListMessages(sdk.WithSession(ctx, &sess), req)
}

func (b *clientBackend) CreateMessage(ctx context.Context, sess sdk.Session, req *sdk.SendMessageRequest) (*sdk.MessageInfo, error) {
	return b.client.SendMessage(sdk.WithSession(ctx, &sess), req)
}

func (b *clientBackend) GetMessage(ctx context.Context, sess sdk.Session, id string) (*sdk.MessageInfo, error) {
	return b.client.GetMessage(sdk.WithSession(ctx, &sess), id)
}

func (b *clientBackend) Subscribe(ctx context.Context, sess sdk.Session, onInsert func(*sdk.MessageEvent)) (Subscription, error) {
	sub, err := b.client.Subscribe(sdk.WithSession(ctx, &sess), onInsert)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
