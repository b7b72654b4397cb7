package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/host"
)

// Mock implementations

type mockICQRepo struct {
	mu sync.Mutex

	transID    string
	creds      domain.Credentials
	session    *domain.Session
	sendErr    error
	loginErr   error
	startErr   error
	files      map[string]*domain.FileInfo
	fileCalls  map[string]int
	gotCode    string
	gotTransID string
	deviceIDs  []string
}

func (m *mockICQRepo) SendCode(ctx context.Context, phone string) (string, error) {
	return m.transID, m.sendErr
}

func (m *mockICQRepo) LoginWithPhone(ctx context.Context, phone, transID, code string) (domain.Credentials, error) {
	m.gotTransID = transID
	m.gotCode = code
	return m.creds, m.loginErr
}

func (m *mockICQRepo) StartSession(ctx context.Context, creds domain.Credentials, deviceID string) (*domain.Session, error) {
	m.deviceIDs = append(m.deviceIDs, deviceID)
	if m.startErr != nil {
		return nil, m.startErr
	}
	s := *m.session
	s.Credentials = creds
	return &s, nil
}

func (m *mockICQRepo) FetchEvents(ctx context.Context, cursor string) (*domain.EventBatch, error) {
	return &domain.EventBatch{NextCursor: cursor}, nil
}

func (m *mockICQRepo) GetChatInfo(ctx context.Context, session domain.Session, stableName string) (*domain.ChatInfo, error) {
	return nil, errors.New("not implemented")
}

func (m *mockICQRepo) GetChatInfoByStamp(ctx context.Context, session domain.Session, stamp string) (*domain.ChatInfo, error) {
	return nil, errors.New("not implemented")
}

func (m *mockICQRepo) JoinChat(ctx context.Context, session domain.Session, stamp string) error {
	return nil
}

func (m *mockICQRepo) SendMessage(ctx context.Context, session domain.Session, to, text string) (*domain.SentMessage, error) {
	return &domain.SentMessage{}, nil
}

func (m *mockICQRepo) FileInfo(ctx context.Context, session domain.Session, fileID string) (*domain.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fileCalls == nil {
		m.fileCalls = make(map[string]int)
	}
	m.fileCalls[fileID]++
	if f, ok := m.files[fileID]; ok {
		return f, nil
	}
	return nil, errors.New("file not found")
}

func (m *mockICQRepo) GetHistory(ctx context.Context, session domain.Session, stableName, fromMsgID string, count int) (*domain.HistoryPage, error) {
	return &domain.HistoryPage{StableName: stableName}, nil
}

type mockHost struct {
	mu sync.Mutex

	stored      *domain.Credentials
	persisted   []domain.Credentials
	code        string
	codeOK      bool
	prompts     []host.InputRequest
	states      []host.ConnectionState
	authFailure string

	joined        []domain.PartialChat
	conversations []domain.PartialChat
	infos         []*domain.ChatInfo
	rosters       []domain.Roster
	messages      []domain.Message
	notices       []string
}

func (m *mockHost) RequestInput(ctx context.Context, req host.InputRequest) (string, bool, error) {
	m.prompts = append(m.prompts, req)
	return m.code, m.codeOK, nil
}

func (m *mockHost) IsDisconnected(ctx context.Context) bool { return false }

func (m *mockHost) PersistCredentials(ctx context.Context, creds domain.Credentials) error {
	m.persisted = append(m.persisted, creds)
	return nil
}

func (m *mockHost) LoadCredentials(ctx context.Context) (domain.Credentials, bool, error) {
	if m.stored == nil {
		return domain.Credentials{}, false, nil
	}
	return *m.stored, true, nil
}

func (m *mockHost) SetState(ctx context.Context, state host.ConnectionState) error {
	m.states = append(m.states, state)
	return nil
}

func (m *mockHost) ReportAuthFailure(ctx context.Context, message string) error {
	m.authFailure = message
	return nil
}

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
	m.rosters = append(m.rosters, roster)
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

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
