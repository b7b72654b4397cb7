// Package mcp exposes the account commands as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/flared/icq-bridge/internal/biz/domain"
)

// Commands is the part of the dispatcher the tools call
type Commands interface {
	JoinChat(ctx context.Context, stampOrLink string) (*domain.ChatInfo, error)
	SendMessage(ctx context.Context, to, text string) (*domain.SentMessage, error)
	GetChatInfo(ctx context.Context, stableName string) (*domain.ChatInfo, error)
	FetchHistory(ctx context.Context, stableName, fromMsgID string, count int) (*domain.HistoryPage, error)
}

// ChatLister lists the locally known chats
type ChatLister interface {
	Chats(ctx context.Context) ([]domain.ChatEntry, error)
}

// Server is the MCP tool server of one account
type Server struct {
	server   *mcpsdk.Server
	commands Commands
	chats    ChatLister
	logger   *slog.Logger
}

// NewServer creates a new MCP server
func NewServer(version string, commands Commands, chats ChatLister, logger *slog.Logger) *Server {
	s := &Server{
		server:   mcpsdk.NewServer(&mcpsdk.Implementation{Name: "icq-bridge", Version: version}, nil),
		commands: commands,
		chats:    chats,
		logger:   logger,
	}
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx is done
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcpsdk.StdioTransport{})
}

// Connect serves a single session over the transport
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "icq_join_chat",
		Description: "Join a group chat by its stamp or its https://icq.im/ link.",
	}, s.handleJoinChat)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "icq_send_message",
		Description: "Send a text message to a contact or a group chat.",
	}, s.handleSendMessage)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "icq_get_chat_info",
		Description: "Get the title, description and members of a group chat.",
	}, s.handleGetChatInfo)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "icq_fetch_history",
		Description: "Fetch older messages of a conversation. Without from_msg_id it continues from the oldest message seen.",
	}, s.handleFetchHistory)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "icq_list_chats",
		Description: "List the chats known to the bridge.",
	}, s.handleListChats)
}

// ChatInput selects a chat
type ChatInput struct {
	Chat string `json:"chat" jsonschema:"stable name of the chat, e.g. 681234@chat.agent"`
}

// JoinChatInput is the input for icq_join_chat
type JoinChatInput struct {
	Link string `json:"link" jsonschema:"chat stamp or https://icq.im/ link"`
}

// SendMessageInput is the input for icq_send_message
type SendMessageInput struct {
	To   string `json:"to,omitempty" jsonschema:"stable name of the contact or chat"`
	Text string `json:"text,omitempty" jsonschema:"message text"`
}

// FetchHistoryInput is the input for icq_fetch_history
type FetchHistoryInput struct {
	Chat      string `json:"chat" jsonschema:"stable name of the chat"`
	FromMsgID string `json:"from_msg_id,omitempty" jsonschema:"message id to page back from"`
	Count     int    `json:"count,omitempty" jsonschema:"number of messages, default 20"`
}

// MemberOutput is a chat member
type MemberOutput struct {
	StableName string `json:"stable_name"`
	Name       string `json:"name"`
	Role       string `json:"role"`
}

// ChatInfoOutput is a chat descriptor
type ChatInfoOutput struct {
	StableName string         `json:"stable_name"`
	Stamp      string         `json:"stamp,omitempty"`
	Title      string         `json:"title"`
	About      string         `json:"about,omitempty"`
	Members    []MemberOutput `json:"members"`
}

// SendMessageOutput is the output for icq_send_message
type SendMessageOutput struct {
	MsgID string `json:"msg_id"`
	State string `json:"state,omitempty"`
}

// MessageOutput is a history message
type MessageOutput struct {
	ID       string `json:"id"`
	Sender   string `json:"sender,omitempty"`
	Text     string `json:"text"`
	Time     string `json:"time"`
	Outgoing bool   `json:"outgoing,omitempty"`
}

// HistoryOutput is the output for icq_fetch_history
type HistoryOutput struct {
	Chat     string          `json:"chat"`
	Messages []MessageOutput `json:"messages"`
}

// ChatEntryOutput is a known chat
type ChatEntryOutput struct {
	StableName string `json:"stable_name"`
	Alias      string `json:"alias"`
	Group      string `json:"group,omitempty"`
}

// ListChatsOutput is the output for icq_list_chats
type ListChatsOutput struct {
	Chats []ChatEntryOutput `json:"chats"`
}

func (s *Server) handleJoinChat(ctx context.Context, req *mcpsdk.CallToolRequest, input JoinChatInput) (*mcpsdk.CallToolResult, ChatInfoOutput, error) {
	if input.Link == "" {
		return nil, ChatInfoOutput{}, fmt.Errorf("link is required")
	}
	info, err := s.commands.JoinChat(ctx, input.Link)
	if err != nil {
		s.logger.Error("join chat failed", "link", input.Link, "error", err)
		return nil, ChatInfoOutput{}, err
	}
	return nil, chatInfoOutput(info), nil
}

func (s *Server) handleSendMessage(ctx context.Context, req *mcpsdk.CallToolRequest, input SendMessageInput) (*mcpsdk.CallToolResult, SendMessageOutput, error) {
	if input.To == "" || input.Text == "" {
		return nil, SendMessageOutput{}, fmt.Errorf("to and text are required")
	}
	sent, err := s.commands.SendMessage(ctx, input.To, input.Text)
	if err != nil {
		s.logger.Error("send message failed", "to", input.To, "error", err)
		return nil, SendMessageOutput{}, err
	}
	return nil, SendMessageOutput{MsgID: sent.MsgID, State: sent.State}, nil
}

func (s *Server) handleGetChatInfo(ctx context.Context, req *mcpsdk.CallToolRequest, input ChatInput) (*mcpsdk.CallToolResult, ChatInfoOutput, error) {
	if input.Chat == "" {
		return nil, ChatInfoOutput{}, fmt.Errorf("chat is required")
	}
	info, err := s.commands.GetChatInfo(ctx, input.Chat)
	if err != nil {
		return nil, ChatInfoOutput{}, err
	}
	return nil, chatInfoOutput(info), nil
}

func (s *Server) handleFetchHistory(ctx context.Context, req *mcpsdk.CallToolRequest, input FetchHistoryInput) (*mcpsdk.CallToolResult, HistoryOutput, error) {
	if input.Chat == "" {
		return nil, HistoryOutput{}, fmt.Errorf("chat is required")
	}
	page, err := s.commands.FetchHistory(ctx, input.Chat, input.FromMsgID, input.Count)
	if err != nil {
		return nil, HistoryOutput{}, err
	}

	out := HistoryOutput{Chat: page.StableName, Messages: make([]MessageOutput, 0, len(page.Messages))}
	for _, m := range page.Messages {
		out.Messages = append(out.Messages, MessageOutput{
			ID:       m.MsgID,
			Sender:   m.Sender,
			Text:     m.Text,
			Time:     m.Time.UTC().Format(time.RFC3339),
			Outgoing: m.Outgoing,
		})
	}
	return nil, out, nil
}

func (s *Server) handleListChats(ctx context.Context, req *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, ListChatsOutput, error) {
	entries, err := s.chats.Chats(ctx)
	if err != nil {
		return nil, ListChatsOutput{}, err
	}
	out := ListChatsOutput{Chats: make([]ChatEntryOutput, 0, len(entries))}
	for _, e := range entries {
		out.Chats = append(out.Chats, ChatEntryOutput{StableName: e.StableName, Alias: e.Alias, Group: e.Group})
	}
	return nil, out, nil
}

func chatInfoOutput(info *domain.ChatInfo) ChatInfoOutput {
	out := ChatInfoOutput{
		StableName: info.StableName,
		Stamp:      info.Stamp,
		Title:      info.Title,
		About:      info.About,
		Members:    make([]MemberOutput, 0, len(info.Members)),
	}
	for _, m := range info.Members {
		out.Members = append(out.Members, MemberOutput{
			StableName: m.StableName,
			Name:       m.DisplayName(),
			Role:       string(m.Role),
		})
	}
	return out
}
