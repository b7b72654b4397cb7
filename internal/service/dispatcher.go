package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/biz/repo"
	"github.com/flared/icq-bridge/internal/biz/usecase"
	"github.com/flared/icq-bridge/internal/host"
	"github.com/flared/icq-bridge/internal/logging"
)

// DefaultHistoryPageSize is the page size used when a command gives none
const DefaultHistoryPageSize = 20

var (
	// ErrHistoryRequested means the page start was already requested
	ErrHistoryRequested = errors.New("history page already requested")

	// ErrDispatcherStopped means the dispatcher no longer accepts commands
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)

// CommandKind is the intent of a user command
type CommandKind int

const (
	CommandJoinChat CommandKind = iota + 1
	CommandSendMessage
	CommandGetChatInfo
	CommandFetchHistory
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoinChat:
		return "join_chat"
	case CommandSendMessage:
		return "send_message"
	case CommandGetChatInfo:
		return "get_chat_info"
	case CommandFetchHistory:
		return "fetch_history"
	}
	return "unknown"
}

// Command is a user intent issued through the host
type Command struct {
	Kind      CommandKind
	Target    string // stamp or link for joins, stable name otherwise
	Text      string
	FromMsgID string
	Count     int
}

// Dispatcher runs user commands against the live session
type Dispatcher struct {
	icqRepo    repo.ICQRepo
	slot       *domain.SessionSlot
	presenter  host.Presenter
	reconciler *usecase.ReconcilerUsecase
	table      *usecase.ConversationTable
	flusher    logging.Flusher
	logger     *slog.Logger

	commands chan Command
	mu       sync.Mutex
	stopped  bool
	loopWG   sync.WaitGroup
	wg       sync.WaitGroup
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(
	icqRepo repo.ICQRepo,
	slot *domain.SessionSlot,
	presenter host.Presenter,
	reconciler *usecase.ReconcilerUsecase,
	table *usecase.ConversationTable,
	flusher logging.Flusher,
	logger *slog.Logger,
) *Dispatcher {
	if flusher == nil {
		flusher = logging.Nop{}
	}
	return &Dispatcher{
		icqRepo:    icqRepo,
		slot:       slot,
		presenter:  presenter,
		reconciler: reconciler,
		table:      table,
		flusher:    flusher,
		logger:     logger,
		commands:   make(chan Command, 64),
	}
}

// Start starts consuming submitted commands.
// Every command runs in its own goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	d.loopWG.Add(1)
	go func() {
		defer d.loopWG.Done()
		for cmd := range d.commands {
			d.spawn(ctx, cmd)
		}
	}()
}

// Stop stops accepting commands and waits for the running ones
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.commands)
	}
	d.mu.Unlock()
	d.loopWG.Wait()
	d.wg.Wait()
}

// Submit enqueues a command, blocking only while the queue is full
func (d *Dispatcher) Submit(ctx context.Context, cmd Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	select {
	case d.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestChatInfo fetches a chat descriptor in the background.
// At most one fetch per chat runs at a time, and failures are only logged.
func (d *Dispatcher) RequestChatInfo(ctx context.Context, stableName string) {
	if !d.table.ClaimChatInfoFetch(stableName) {
		d.logger.Debug("chat info fetch already in flight", "chat", stableName)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		d.table.ReleaseChatInfoFetch(stableName)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.flush(ctx)
		defer d.table.ReleaseChatInfoFetch(stableName)
		if _, err := d.GetChatInfo(ctx, stableName); err != nil {
			d.logger.Warn("background chat info fetch failed", "chat", stableName, "error", err)
		}
	}()
}

func (d *Dispatcher) spawn(ctx context.Context, cmd Command) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx, cmd)
	}()
}

// run executes a user command and reports failures to the host
func (d *Dispatcher) run(ctx context.Context, cmd Command) {
	defer d.flush(ctx)

	if err := d.Execute(ctx, cmd); err != nil {
		d.logger.Error("command failed", "command", cmd.Kind, "target", cmd.Target, "error", err)
		chat := cmd.Target
		if cmd.Kind == CommandJoinChat {
			chat = ""
		}
		if nerr := d.presenter.Notify(ctx, chat, failureMessage(cmd, err)); nerr != nil {
			d.logger.Warn("failed to notify", "error", nerr)
		}
	}
}

// Execute runs a command synchronously
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) error {
	var err error
	switch cmd.Kind {
	case CommandJoinChat:
		_, err = d.JoinChat(ctx, cmd.Target)
	case CommandSendMessage:
		_, err = d.SendMessage(ctx, cmd.Target, cmd.Text)
	case CommandGetChatInfo:
		_, err = d.GetChatInfo(ctx, cmd.Target)
	case CommandFetchHistory:
		_, err = d.FetchHistory(ctx, cmd.Target, cmd.FromMsgID, cmd.Count)
	default:
		err = fmt.Errorf("unknown command %d", cmd.Kind)
	}
	return err
}

func failureMessage(cmd Command, err error) string {
	switch cmd.Kind {
	case CommandJoinChat:
		return fmt.Sprintf("Failed to join chat %s: %v", cmd.Target, err)
	case CommandSendMessage:
		return fmt.Sprintf("Failed to send message: %v", err)
	case CommandGetChatInfo:
		return fmt.Sprintf("Failed to get chat info: %v", err)
	case CommandFetchHistory:
		return fmt.Sprintf("Failed to fetch history: %v", err)
	}
	return err.Error()
}

// JoinChat joins a chat by stamp or shareable link and opens its conversation
func (d *Dispatcher) JoinChat(ctx context.Context, stampOrLink string) (*domain.ChatInfo, error) {
	session, err := d.slot.Session()
	if err != nil {
		return nil, err
	}
	stamp := domain.NormalizeStamp(stampOrLink)
	if stamp == "" {
		return nil, fmt.Errorf("empty chat stamp")
	}

	if err := d.icqRepo.JoinChat(ctx, session, stamp); err != nil {
		return nil, fmt.Errorf("join chat: %w", err)
	}

	info, err := d.icqRepo.GetChatInfoByStamp(ctx, session, stamp)
	if err != nil {
		return nil, fmt.Errorf("get chat info: %w", err)
	}

	chat := info.Partial()
	if err := d.presenter.ChatJoined(ctx, chat); err != nil {
		return nil, fmt.Errorf("chat joined: %w", err)
	}
	d.table.Open(info.StableName)
	if err := d.presenter.ConversationJoined(ctx, chat); err != nil {
		return nil, fmt.Errorf("conversation joined: %w", err)
	}
	if err := d.reconciler.LoadChatInfo(ctx, info); err != nil {
		return nil, err
	}

	d.logger.Info("joined chat", "stamp", stamp, "chat", info.StableName)
	return info, nil
}

// SendMessage sends a text message; the echo arrives through the event stream
func (d *Dispatcher) SendMessage(ctx context.Context, to, text string) (*domain.SentMessage, error) {
	session, err := d.slot.Session()
	if err != nil {
		return nil, err
	}
	sent, err := d.icqRepo.SendMessage(ctx, session, to, text)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	d.logger.Debug("message sent", "to", to, "msg_id", sent.MsgID, "state", sent.State)
	return sent, nil
}

// GetChatInfo fetches and loads the full descriptor of a chat
func (d *Dispatcher) GetChatInfo(ctx context.Context, stableName string) (*domain.ChatInfo, error) {
	session, err := d.slot.Session()
	if err != nil {
		return nil, err
	}
	info, err := d.icqRepo.GetChatInfo(ctx, session, stableName)
	if err != nil {
		return nil, fmt.Errorf("get chat info: %w", err)
	}
	if err := d.reconciler.LoadChatInfo(ctx, info); err != nil {
		return nil, err
	}
	return info, nil
}

// FetchHistory fetches the page of messages older than fromMsgID.
// An empty fromMsgID starts from the history cursor of the conversation.
func (d *Dispatcher) FetchHistory(ctx context.Context, stableName, fromMsgID string, count int) (*domain.HistoryPage, error) {
	session, err := d.slot.Session()
	if err != nil {
		return nil, err
	}
	if !d.table.Has(stableName) {
		return nil, fmt.Errorf("conversation %s: %w", stableName, domain.ErrNotFound)
	}
	if fromMsgID == "" {
		cursor, _ := d.table.Cursor(stableName)
		if cursor.IsZero() {
			return nil, fmt.Errorf("no messages in %s yet: %w", stableName, domain.ErrNotFound)
		}
		fromMsgID = cursor.OldestMsgID
	}
	if count <= 0 {
		count = DefaultHistoryPageSize
	}

	if !d.table.ClaimHistoryPage(stableName, fromMsgID) {
		return nil, ErrHistoryRequested
	}

	// Negative counts walk back from fromMsgID
	page, err := d.icqRepo.GetHistory(ctx, session, stableName, fromMsgID, -count)
	if err != nil {
		d.table.ReleaseHistoryPage(stableName, fromMsgID)
		return nil, fmt.Errorf("get history: %w", err)
	}
	if err := d.reconciler.HandleHistoryPage(ctx, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (d *Dispatcher) flush(ctx context.Context) {
	if err := d.flusher.Flush(ctx); err != nil {
		d.logger.Warn("failed to flush logs", "error", err)
	}
}
