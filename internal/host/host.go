// Package host defines what the core needs from the chat application that
// presents conversations to the user, and the plumbing to reach it safely.
package host

import (
	"context"

	"github.com/flared/icq-bridge/internal/biz/domain"
)

// ConnectionState is the state shown on the host connection
type ConnectionState int

const (
	StateConnecting ConnectionState = iota + 1
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "unknown"
}

// InputRequest is a request for a line of user input
type InputRequest struct {
	Title      string
	Primary    string
	Secondary  string
	Default    string
	Multiline  bool
	Masked     bool
	Hint       string
	OKText     string
	CancelText string
	Who        string
}

// Account is the host account
type Account interface {
	// RequestInput asks the user for input; ok is false if none was given.
	// It may block until the user answers.
	RequestInput(ctx context.Context, req InputRequest) (value string, ok bool, err error)

	IsDisconnected(ctx context.Context) bool

	PersistCredentials(ctx context.Context, creds domain.Credentials) error

	// LoadCredentials returns ok false when nothing was persisted
	LoadCredentials(ctx context.Context) (creds domain.Credentials, ok bool, err error)
}

// Connection is the host connection of an account
type Connection interface {
	SetState(ctx context.Context, state ConnectionState) error
	ReportAuthFailure(ctx context.Context, message string) error
}

// Presenter shows chats and messages
type Presenter interface {
	// ChatJoined creates or updates the local chat entry
	ChatJoined(ctx context.Context, chat domain.PartialChat) error

	// ConversationJoined opens the conversation window of a chat
	ConversationJoined(ctx context.Context, chat domain.PartialChat) error

	// LoadChatInfo replaces the shown chat details and member roster
	LoadChatInfo(ctx context.Context, info *domain.ChatInfo, roster domain.Roster) error

	DeliverMessage(ctx context.Context, msg domain.Message) error

	// Notify shows a diagnostic to the user, chatName may be empty
	Notify(ctx context.Context, chatName, message string) error
}

// Host is everything the core calls on the host side
type Host interface {
	Account
	Connection
	Presenter
}
