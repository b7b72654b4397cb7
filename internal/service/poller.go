package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/biz/repo"
	"github.com/flared/icq-bridge/internal/host"
	"github.com/flared/icq-bridge/internal/logging"
)

// EventHandler consumes the events of one poll
type EventHandler interface {
	HandleBatch(ctx context.Context, events []domain.Event)
}

// PollerConfig holds the poller delays
type PollerConfig struct {
	RetryDelay        time.Duration // after a failed poll
	DisconnectedDelay time.Duration // while the host reports disconnected
}

// EventPoller long-polls the event stream of one session
type EventPoller struct {
	icqRepo repo.ICQRepo
	slot    *domain.SessionSlot
	account host.Account
	handler EventHandler
	flusher logging.Flusher
	logger  *slog.Logger
	cfg     PollerConfig

	wg sync.WaitGroup
}

// NewEventPoller creates a new event poller
func NewEventPoller(
	icqRepo repo.ICQRepo,
	slot *domain.SessionSlot,
	account host.Account,
	handler EventHandler,
	flusher logging.Flusher,
	logger *slog.Logger,
	cfg PollerConfig,
) *EventPoller {
	if flusher == nil {
		flusher = logging.Nop{}
	}
	return &EventPoller{
		icqRepo: icqRepo,
		slot:    slot,
		account: account,
		handler: handler,
		flusher: flusher,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start starts polling in the background.
// The loop only stops once the session slot is closed; ctx is passed to every request.
func (p *EventPoller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.loop(ctx)
	p.logger.Info("poller started")
}

// Wait blocks until the loop has exited
func (p *EventPoller) Wait() {
	p.wg.Wait()
}

func (p *EventPoller) loop(ctx context.Context) {
	defer p.wg.Done()
	defer p.logger.Info("poller stopped")

	for {
		if p.slot.Closed() {
			return
		}

		if p.account.IsDisconnected(ctx) {
			p.sleep(p.cfg.DisconnectedDelay)
			continue
		}

		if err := p.poll(ctx); err != nil {
			p.logger.Error("poll failed", "error", err, "retry_in", p.cfg.RetryDelay)
			p.flush(ctx)
			p.sleep(p.cfg.RetryDelay)
		}
	}
}

// poll runs one long poll and hands the batch to the handler
func (p *EventPoller) poll(ctx context.Context) error {
	session, err := p.slot.Session()
	if err != nil {
		return err
	}

	batch, err := p.icqRepo.FetchEvents(ctx, session.FetchBaseURL)
	if err != nil {
		return err
	}

	// The cursor is single use, so rotate it before running handlers
	if batch.NextCursor != "" {
		if err := p.slot.SetCursor(batch.NextCursor); err != nil {
			return err
		}
	} else {
		p.logger.Warn("poll returned no cursor, keeping the current one")
	}

	if len(batch.Events) > 0 {
		p.logger.Debug("poll", "events", len(batch.Events))
		p.handler.HandleBatch(ctx, batch.Events)
	}
	p.flush(ctx)
	return nil
}

func (p *EventPoller) flush(ctx context.Context) {
	if err := p.flusher.Flush(ctx); err != nil {
		p.logger.Warn("failed to flush logs", "error", err)
	}
}

// sleep waits for d, waking early when the slot is closed
func (p *EventPoller) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-p.slot.Done():
	}
}
