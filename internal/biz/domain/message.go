package domain

import (
	"strings"
	"time"
)

// Message is a message ready to be shown by the host
type Message struct {
	ID            string
	ChatName      string // Stable name of the conversation
	Author        string
	AuthorDisplay string
	Text          string // HTML, already escaped and enriched
	Time          time.Time
	Outgoing      bool
}

// SentMessage is the service acknowledgement of a sent message
type SentMessage struct {
	MsgID     string
	HistMsgID int64
	Time      time.Time
	State     string
}

// FileInfo describes a file shared through the files service
type FileInfo struct {
	ID      string
	Name    string
	Size    uint64
	MIME    string
	Link    string
	MD5     string
	Preview string
}

// MIMESubtype returns the part after the slash, or the whole type
func (f *FileInfo) MIMESubtype() string {
	if _, subtype, ok := strings.Cut(f.MIME, "/"); ok {
		return subtype
	}
	return f.MIME
}
