package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flared/icq-bridge/internal/biz"
	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/biz/repo"
	"github.com/flared/icq-bridge/internal/biz/usecase"
	"github.com/flared/icq-bridge/internal/conf"
	"github.com/flared/icq-bridge/internal/host"
	"github.com/flared/icq-bridge/internal/logging"
	"github.com/flared/icq-bridge/internal/service"
)

// hostQueueSize is the number of host calls that may wait on the host goroutine
const hostQueueSize = 128

// ICQServer wires one account: host proxy, session, poller and dispatcher
type ICQServer struct {
	cfg     *conf.Config
	icqRepo repo.ICQRepo
	flusher logging.Flusher
	logger  *slog.Logger

	queue    *host.Queue
	registry *host.Registry[host.Host]
	proxy    *host.Proxy
	slot     *domain.SessionSlot

	usecases   biz.Usecases
	dispatcher *service.Dispatcher
	poller     *service.EventPoller
}

// NewICQServer creates a new ICQ server for the host
func NewICQServer(
	cfg *conf.Config,
	icqRepo repo.ICQRepo,
	h host.Host,
	flusher logging.Flusher,
	logger *slog.Logger,
) *ICQServer {
	if flusher == nil {
		flusher = logging.Nop{}
	}

	queue := host.NewQueue(hostQueueSize)
	registry := host.NewRegistry[host.Host]()
	proxy := host.NewProxy(queue, registry, registry.Register(h))
	slot := domain.NewSessionSlot()
	table := usecase.NewConversationTable()

	prompts := cfg.Prompts
	if prompts == nil {
		prompts = conf.DefaultPromptsConfig()
	}
	sms := prompts.SMSCode

	s := &ICQServer{
		cfg:      cfg,
		icqRepo:  icqRepo,
		flusher:  flusher,
		logger:   logger,
		queue:    queue,
		registry: registry,
		proxy:    proxy,
		slot:     slot,
	}

	s.usecases = biz.Usecases{
		Session: usecase.NewSessionUsecase(icqRepo, cfg.ICQ.Phone, host.InputRequest{
			Title:      sms.Title,
			Primary:    sms.Primary,
			Secondary:  sms.Secondary,
			OKText:     sms.OK,
			CancelText: sms.Cancel,
		}, slot, logging.Component(logger, "session")),
		Reconciler:    usecase.NewReconcilerUsecase(icqRepo, slot, proxy, table, logging.Component(logger, "reconciler")),
		Conversations: table,
	}

	s.dispatcher = service.NewDispatcher(icqRepo, slot, proxy, s.usecases.Reconciler, table, flusher,
		logging.Component(logger, "dispatcher"))
	s.usecases.Reconciler.SetChatInfoFetcher(s.dispatcher.RequestChatInfo)

	s.poller = service.NewEventPoller(icqRepo, slot, proxy, s.usecases.Reconciler, flusher,
		logging.Component(logger, "poller"), service.PollerConfig{
			RetryDelay:        cfg.Poll.RetryDelay,
			DisconnectedDelay: cfg.Poll.DisconnectedDelay,
		})

	return s
}

// Login starts the host queue and logs the account in
func (s *ICQServer) Login(ctx context.Context) (*domain.Session, error) {
	// The host goroutine outlives ctx; Stop tears it down
	s.queue.Start(context.WithoutCancel(ctx))
	return s.usecases.Session.Login(ctx, s.proxy, s.proxy)
}

// Start logs in, then starts the dispatcher and the poller
func (s *ICQServer) Start(ctx context.Context) error {
	session, err := s.Login(ctx)
	if err != nil {
		s.flush(ctx)
		return err
	}
	s.logger.Info("icq server started", "aim_id", session.AimID)

	// An in-flight poll runs to completion; only closing the slot stops the loop
	bg := context.WithoutCancel(ctx)
	s.dispatcher.Start(bg)
	s.poller.Start(bg)
	s.flush(ctx)
	return nil
}

// Dispatcher returns the command dispatcher
func (s *ICQServer) Dispatcher() *service.Dispatcher {
	return s.dispatcher
}

// Usecases returns the usecases of the account
func (s *ICQServer) Usecases() biz.Usecases {
	return s.usecases
}

// Stop closes the session and waits for the loops, at most until ctx is done
func (s *ICQServer) Stop(ctx context.Context) error {
	s.usecases.Session.Logout()
	s.dispatcher.Stop()

	done := make(chan struct{})
	go func() {
		s.poller.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("wait for poller: %w", ctx.Err())
	}

	s.registry.Remove(s.proxy.Handle())
	s.queue.Stop()
	s.usecases.Conversations.Reset()
	s.logger.Info("icq server stopped")
	s.flush(ctx)
	return err
}

func (s *ICQServer) flush(ctx context.Context) {
	if err := s.flusher.Flush(ctx); err != nil {
		s.logger.Warn("failed to flush logs", "error", err)
	}
}

// StopTimeout bounds how long Stop waits for an in-flight poll
func StopTimeout(cfg *conf.Config) time.Duration {
	return cfg.Poll.Timeout + 5*time.Second
}
