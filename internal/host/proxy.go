package host

import (
	"context"

	"github.com/flared/icq-bridge/internal/biz/domain"
)

// Proxy implements Host by running every call on the host queue,
// so the host object is only ever touched from the queue goroutine.
// It holds a handle, not the object: a removed host fails with ErrGone.
type Proxy struct {
	queue    *Queue
	registry *Registry[Host]
	handle   Handle
}

// NewProxy creates a proxy for the host behind handle
func NewProxy(queue *Queue, registry *Registry[Host], handle Handle) *Proxy {
	return &Proxy{queue: queue, registry: registry, handle: handle}
}

// Handle returns the proxied handle
func (p *Proxy) Handle() Handle { return p.handle }

func (p *Proxy) exec(ctx context.Context, fn func(Host) error) error {
	return p.queue.Do(ctx, func() error {
		h, ok := p.registry.Resolve(p.handle)
		if !ok {
			return ErrGone
		}
		return fn(h)
	})
}

func (p *Proxy) RequestInput(ctx context.Context, req InputRequest) (string, bool, error) {
	type answer struct {
		value string
		ok    bool
	}
	a, err := Call(ctx, p.queue, func() (answer, error) {
		h, ok := p.registry.Resolve(p.handle)
		if !ok {
			return answer{}, ErrGone
		}
		v, ok, err := h.RequestInput(ctx, req)
		return answer{value: v, ok: ok}, err
	})
	return a.value, a.ok, err
}

// IsDisconnected reports a gone host or a stopped queue as disconnected
func (p *Proxy) IsDisconnected(ctx context.Context) bool {
	disconnected, err := Call(ctx, p.queue, func() (bool, error) {
		h, ok := p.registry.Resolve(p.handle)
		if !ok {
			return true, ErrGone
		}
		return h.IsDisconnected(ctx), nil
	})
	return err != nil || disconnected
}

func (p *Proxy) PersistCredentials(ctx context.Context, creds domain.Credentials) error {
	return p.exec(ctx, func(h Host) error { return h.PersistCredentials(ctx, creds) })
}

func (p *Proxy) LoadCredentials(ctx context.Context) (domain.Credentials, bool, error) {
	type loaded struct {
		creds domain.Credentials
		ok    bool
	}
	l, err := Call(ctx, p.queue, func() (loaded, error) {
		h, ok := p.registry.Resolve(p.handle)
		if !ok {
			return loaded{}, ErrGone
		}
		creds, ok, err := h.LoadCredentials(ctx)
		return loaded{creds: creds, ok: ok}, err
	})
	return l.creds, l.ok, err
}

func (p *Proxy) SetState(ctx context.Context, state ConnectionState) error {
	return p.exec(ctx, func(h Host) error { return h.SetState(ctx, state) })
}

func (p *Proxy) ReportAuthFailure(ctx context.Context, message string) error {
	return p.exec(ctx, func(h Host) error { return h.ReportAuthFailure(ctx, message) })
}

func (p *Proxy) ChatJoined(ctx context.Context, chat domain.PartialChat) error {
	return p.exec(ctx, func(h Host) error { return h.ChatJoined(ctx, chat) })
}

func (p *Proxy) ConversationJoined(ctx context.Context, chat domain.PartialChat) error {
	return p.exec(ctx, func(h Host) error { return h.ConversationJoined(ctx, chat) })
}

func (p *Proxy) LoadChatInfo(ctx context.Context, info *domain.ChatInfo, roster domain.Roster) error {
	return p.exec(ctx, func(h Host) error { return h.LoadChatInfo(ctx, info, roster) })
}

func (p *Proxy) DeliverMessage(ctx context.Context, msg domain.Message) error {
	return p.exec(ctx, func(h Host) error { return h.DeliverMessage(ctx, msg) })
}

func (p *Proxy) Notify(ctx context.Context, chatName, message string) error {
	return p.exec(ctx, func(h Host) error { return h.Notify(ctx, chatName, message) })
}

var _ Host = (*Proxy)(nil)
