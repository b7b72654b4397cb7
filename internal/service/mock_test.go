package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/host"
)

// Mock implementations

type fetchResult struct {
	batch *domain.EventBatch
	err   error
}

type mockICQRepo struct {
	mu sync.Mutex

	slot    *domain.SessionSlot
	fetches []fetchResult
	cursors []string

	joined        []string
	chatInfo      *domain.ChatInfo
	chatInfoErr   error
	chatInfoGate  chan struct{} // when set, GetChatInfo waits for it to close
	chatInfoCalls atomic.Int32
	sent          []string
	history       *domain.HistoryPage
	historyErr    error
	historyArgs   []historyCall
}

type historyCall struct {
	stableName string
	fromMsgID  string
	count      int
}

// FetchEvents replays the scripted results, then closes the slot
func (m *mockICQRepo) FetchEvents(ctx context.Context, cursor string) (*domain.EventBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors = append(m.cursors, cursor)
	if len(m.fetches) == 0 {
		m.slot.Close()
		return nil, errors.New("script exhausted")
	}
	next := m.fetches[0]
	m.fetches = m.fetches[1:]
	return next.batch, next.err
}

func (m *mockICQRepo) seenCursors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cursors...)
}

func (m *mockICQRepo) SendCode(ctx context.Context, phone string) (string, error) {
	return "", nil
}

func (m *mockICQRepo) LoginWithPhone(ctx context.Context, phone, transID, code string) (domain.Credentials, error) {
	return domain.Credentials{}, nil
}

func (m *mockICQRepo) StartSession(ctx context.Context, creds domain.Credentials, deviceID string) (*domain.Session, error) {
	return &domain.Session{}, nil
}

func (m *mockICQRepo) GetChatInfo(ctx context.Context, session domain.Session, stableName string) (*domain.ChatInfo, error) {
	m.chatInfoCalls.Add(1)
	if m.chatInfoGate != nil {
		<-m.chatInfoGate
	}
	if m.chatInfoErr != nil {
		return nil, m.chatInfoErr
	}
	info := *m.chatInfo
	return &info, nil
}

func (m *mockICQRepo) GetChatInfoByStamp(ctx context.Context, session domain.Session, stamp string) (*domain.ChatInfo, error) {
	return m.GetChatInfo(ctx, session, stamp)
}

func (m *mockICQRepo) JoinChat(ctx context.Context, session domain.Session, stamp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joined = append(m.joined, stamp)
	return nil
}

func (m *mockICQRepo) SendMessage(ctx context.Context, session domain.Session, to, text string) (*domain.SentMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+":"+text)
	return &domain.SentMessage{MsgID: "1", State: "sent"}, nil
}

func (m *mockICQRepo) FileInfo(ctx context.Context, session domain.Session, fileID string) (*domain.FileInfo, error) {
	return nil, errors.New("not found")
}

func (m *mockICQRepo) GetHistory(ctx context.Context, session domain.Session, stableName, fromMsgID string, count int) (*domain.HistoryPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyArgs = append(m.historyArgs, historyCall{stableName, fromMsgID, count})
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return m.history, nil
}

type mockHost struct {
	mu sync.Mutex

	disconnected atomic.Int32 // number of polls to report disconnected
	checks       atomic.Int32

	joined        []domain.PartialChat
	conversations []domain.PartialChat
	infos         []*domain.ChatInfo
	messages      []domain.Message
	notices       []string
}

func (m *mockHost) RequestInput(ctx context.Context, req host.InputRequest) (string, bool, error) {
	return "", false, nil
}

func (m *mockHost) IsDisconnected(ctx context.Context) bool {
	m.checks.Add(1)
	return m.disconnected.Add(-1) >= 0
}

func (m *mockHost) PersistCredentials(ctx context.Context, creds domain.Credentials) error {
	return nil
}

func (m *mockHost) LoadCredentials(ctx context.Context) (domain.Credentials, bool, error) {
	return domain.Credentials{}, false, nil
}

func (m *mockHost) SetState(ctx context.Context, state host.ConnectionState) error { return nil }

func (m *mockHost) ReportAuthFailure(ctx context.Context, message string) error { return nil }

func (m *mockHost) ChatJoined(ctx context.Context, chat domain.PartialChat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joined = append(m.joined, chat)
	return nil
}

func (m *mockHost) ConversationJoined(ctx context.Context, chat domain.PartialChat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = append(m.conversations, chat)
	return nil
}

func (m *mockHost) LoadChatInfo(ctx context.Context, info *domain.ChatInfo, roster domain.Roster) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, info)
	return nil
}

func (m *mockHost) DeliverMessage(ctx context.Context, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockHost) Notify(ctx context.Context, chatName, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, message)
	return nil
}

func (m *mockHost) noticeList() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.notices...)
}

type recordingHandler struct {
	mu     sync.Mutex
	events []domain.Event
}

func (h *recordingHandler) HandleBatch(ctx context.Context, events []domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, events...)
}

type countingFlusher struct {
	n atomic.Int32
}

func (f *countingFlusher) Flush(context.Context) error {
	f.n.Add(1)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
