package domain

import (
	"encoding/json"
	"time"
)

// EventType is the tag of an incoming event
type EventType string

const (
	EventTypeChatState     EventType = "histDlgState"
	EventTypeBuddyList     EventType = "buddylist"
	EventTypePermitDeny    EventType = "permitDeny"
	EventTypeMyInfo        EventType = "myInfo"
	EventTypePresence      EventType = "presence"
	EventTypeGalleryNotify EventType = "galleryNotify"
	EventTypeUnknown       EventType = "unknown"
)

// Event is one entry of a poll batch
type Event interface {
	Type() EventType
}

// Person is a participant listed in a chat-state event
type Person struct {
	StableName string
	Friendly   string
	FirstName  string
	LastName   string
}

// DisplayName returns the friendly name, falling back to the stable name
func (p *Person) DisplayName() string {
	if p.Friendly != "" {
		return p.Friendly
	}
	return p.StableName
}

// IncomingMessage is a message as received in a chat-state event or history page
type IncomingMessage struct {
	MsgID    string
	Time     time.Time
	Text     string
	Sender   string // Message-level sender, set in group chats
	Outgoing bool
}

// ChatStateEvent reports new state of one dialog: participants, messages, versions
type ChatStateEvent struct {
	SeqNum      int64
	StableName  string
	Starting    bool
	LastMsgID   string
	UnreadCount int
	Persons     []Person
	Messages    []IncomingMessage
	Version     *ChatVersion // nil for direct dialogs
}

func (*ChatStateEvent) Type() EventType { return EventTypeChatState }

// FindPerson finds a participant by stable name
func (e *ChatStateEvent) FindPerson(stableName string) *Person {
	for i := range e.Persons {
		if e.Persons[i].StableName == stableName {
			return &e.Persons[i]
		}
	}
	return nil
}

// Buddy kinds reported in buddy lists
const (
	BuddyTypeChat = "chat"
	BuddyTypeICQ  = "icq"
)

// Buddy is one buddy list entry
type Buddy struct {
	ID       string
	Friendly string
	Type     string
}

// BuddyGroup is a buddy list folder
type BuddyGroup struct {
	ID      int
	Name    string
	Buddies []Buddy
}

// BuddyListEvent is a snapshot of the server-side buddy list
type BuddyListEvent struct {
	SeqNum int64
	Groups []BuddyGroup
}

func (*BuddyListEvent) Type() EventType { return EventTypeBuddyList }

// MyInfoEvent is a snapshot of the logged in user
type MyInfoEvent struct {
	SeqNum    int64
	AimID     string
	DisplayID string
	Friendly  string
	State     string
	UserType  string
}

func (*MyInfoEvent) Type() EventType { return EventTypeMyInfo }

// PresenceEvent is a snapshot of a contact presence
type PresenceEvent struct {
	SeqNum    int64
	AimID     string
	Friendly  string
	State     string
	UserType  string
	StatusMsg string
	LastSeen  time.Time
}

func (*PresenceEvent) Type() EventType { return EventTypePresence }

// PermitDenyEvent is a snapshot of the allow/block lists
type PermitDenyEvent struct {
	SeqNum  int64
	Allows  []string
	Blocks  []string
	Ignores []string
}

func (*PermitDenyEvent) Type() EventType { return EventTypePermitDeny }

// GalleryNotifyEvent reports a change in a chat media gallery
type GalleryNotifyEvent struct {
	SeqNum int64
	Raw    json.RawMessage
}

func (*GalleryNotifyEvent) Type() EventType { return EventTypeGalleryNotify }

// UnknownEvent preserves an event that could not be decoded
type UnknownEvent struct {
	Tag    string
	Raw    json.RawMessage
	Reason string
}

func (*UnknownEvent) Type() EventType { return EventTypeUnknown }

// EventBatch is the result of one long poll
type EventBatch struct {
	NextCursor string
	Events     []Event
}

// HistoryPage is one page of chat history
type HistoryPage struct {
	StableName string
	Persons    []Person
	Messages   []IncomingMessage
}
