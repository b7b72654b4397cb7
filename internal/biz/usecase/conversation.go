package usecase

import (
	"sync"
	"time"

	"github.com/flared/icq-bridge/internal/biz/domain"
)

// seenTTL is how long a delivered message id is remembered
const seenTTL = 5 * time.Minute

// conversationState is the core-side record of one chat
type conversationState struct {
	info        *domain.ChatInfo
	cursor      domain.HistoryCursor
	lastMessage time.Time
	pages       map[string]struct{} // requested history page starts
	fetching    bool                // a background chat info fetch is in flight
}

// ConversationTable holds per-chat state keyed by stable name.
// A chat has at most one record; host conversation handles never carry core state.
type ConversationTable struct {
	mu      sync.Mutex
	chats   map[string]*conversationState
	ownName string

	seenMu sync.Mutex
	seen   map[string]time.Time
	now    func() time.Time
}

// NewConversationTable creates an empty table
func NewConversationTable() *ConversationTable {
	return &ConversationTable{
		chats: make(map[string]*conversationState),
		seen:  make(map[string]time.Time),
		now:   time.Now,
	}
}

// get returns the record, creating it when absent. Callers hold mu.
func (t *ConversationTable) get(stableName string) *conversationState {
	c, ok := t.chats[stableName]
	if !ok {
		c = &conversationState{pages: make(map[string]struct{})}
		t.chats[stableName] = c
	}
	return c
}

// Open makes sure a record exists, it returns true if it was created
func (t *ConversationTable) Open(stableName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.chats[stableName]
	if !ok {
		t.get(stableName)
	}
	return !ok
}

// Has reports whether a record exists
func (t *ConversationTable) Has(stableName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.chats[stableName]
	return ok
}

// Len returns the number of records
func (t *ConversationTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.chats)
}

// AttachChatInfo replaces the cached descriptor of the chat
func (t *ConversationTable) AttachChatInfo(info *domain.ChatInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.get(info.StableName).info = info
}

// ChatInfo returns the cached descriptor
func (t *ConversationTable) ChatInfo(stableName string) (*domain.ChatInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.chats[stableName]
	if !ok || c.info == nil {
		return nil, false
	}
	return c.info, true
}

// IsChatInfoStale reports whether the incoming versions call for a new fetch.
// A chat without a cached descriptor is always stale.
func (t *ConversationTable) IsChatInfoStale(stableName string, incoming domain.ChatVersion) bool {
	info, ok := t.ChatInfo(stableName)
	if !ok {
		return true
	}
	return info.NeedsUpdate(incoming)
}

// ObserveMessageTime records the time of a message.
// It returns true if the message is newer than anything seen before in the chat.
func (t *ConversationTable) ObserveMessageTime(stableName string, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.get(stableName)
	if !at.After(c.lastMessage) {
		return false
	}
	c.lastMessage = at
	return true
}

// LastMessageTime returns the time of the newest message seen
func (t *ConversationTable) LastMessageTime(stableName string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.chats[stableName]; ok {
		return c.lastMessage
	}
	return time.Time{}
}

// AdvanceCursor moves the history cursor back to the message if it is older
func (t *ConversationTable) AdvanceCursor(stableName, msgID string, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(stableName).cursor.Advance(msgID, at)
}

// Cursor returns the history cursor
func (t *ConversationTable) Cursor(stableName string) (domain.HistoryCursor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.chats[stableName]
	if !ok {
		return domain.HistoryCursor{}, false
	}
	return c.cursor, true
}

// ClaimHistoryPage marks a page start as requested.
// It returns false if the page was already requested.
func (t *ConversationTable) ClaimHistoryPage(stableName, fromMsgID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.get(stableName)
	if _, ok := c.pages[fromMsgID]; ok {
		return false
	}
	c.pages[fromMsgID] = struct{}{}
	return true
}

// ReleaseHistoryPage forgets a page start so it can be requested again
func (t *ConversationTable) ReleaseHistoryPage(stableName, fromMsgID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.chats[stableName]; ok {
		delete(c.pages, fromMsgID)
	}
}

// ClaimChatInfoFetch marks a background chat info fetch as in flight.
// It returns false if one is already running for the chat.
func (t *ConversationTable) ClaimChatInfoFetch(stableName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.get(stableName)
	if c.fetching {
		return false
	}
	c.fetching = true
	return true
}

// ReleaseChatInfoFetch clears the in-flight mark of the chat
func (t *ConversationTable) ReleaseChatInfoFetch(stableName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.chats[stableName]; ok {
		c.fetching = false
	}
}

// SetOwnDisplayName records the display name of the logged in user
func (t *ConversationTable) SetOwnDisplayName(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ownName = name
}

// OwnDisplayName returns the display name of the logged in user
func (t *ConversationTable) OwnDisplayName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ownName
}

// MarkSeen remembers a delivered message.
// It returns false if the message was already delivered recently.
func (t *ConversationTable) MarkSeen(stableName, msgID string) bool {
	key := stableName + "/" + msgID
	now := t.now()

	t.seenMu.Lock()
	defer t.seenMu.Unlock()
	if at, ok := t.seen[key]; ok && now.Sub(at) < seenTTL {
		return false
	}
	t.seen[key] = now

	cutoff := now.Add(-seenTTL)
	for id, at := range t.seen {
		if at.Before(cutoff) {
			delete(t.seen, id)
		}
	}
	return true
}

// Reset drops every record
func (t *ConversationTable) Reset() {
	t.mu.Lock()
	t.chats = make(map[string]*conversationState)
	t.ownName = ""
	t.mu.Unlock()

	t.seenMu.Lock()
	t.seen = make(map[string]time.Time)
	t.seenMu.Unlock()
}
