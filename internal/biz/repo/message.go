package repo

import (
	"context"

	"github.com/flared/icq-bridge/internal/biz/domain"
)

// ICQRepo is the remote service repository interface
// Responsible for all calls to the ICQ web API; it never retries
type ICQRepo interface {
	// SendCode sends a verification code by SMS, returns the transaction id
	SendCode(ctx context.Context, phone string) (string, error)

	// LoginWithPhone exchanges the verification code for registration credentials
	LoginWithPhone(ctx context.Context, phone, transID, code string) (domain.Credentials, error)

	// StartSession exchanges credentials for a short-lived session
	StartSession(ctx context.Context, creds domain.Credentials, deviceID string) (*domain.Session, error)

	// FetchEvents long-polls the given cursor
	FetchEvents(ctx context.Context, cursor string) (*domain.EventBatch, error)

	// GetChatInfo gets the full chat descriptor by stable name
	GetChatInfo(ctx context.Context, session domain.Session, stableName string) (*domain.ChatInfo, error)

	// GetChatInfoByStamp gets the full chat descriptor by shareable stamp
	GetChatInfoByStamp(ctx context.Context, session domain.Session, stamp string) (*domain.ChatInfo, error)

	// JoinChat joins a chat by shareable stamp
	JoinChat(ctx context.Context, session domain.Session, stamp string) error

	// SendMessage sends a text message
	SendMessage(ctx context.Context, session domain.Session, to, text string) (*domain.SentMessage, error)

	// FileInfo gets metadata of a shared file
	FileInfo(ctx context.Context, session domain.Session, fileID string) (*domain.FileInfo, error)

	// GetHistory gets a page of history, starting at fromMsgID and going back count messages
	GetHistory(ctx context.Context, session domain.Session, stableName, fromMsgID string, count int) (*domain.HistoryPage, error)
}
