package domain

import "time"

// HistoryCursor tracks the oldest known message of a conversation.
// It only ever moves backward.
type HistoryCursor struct {
	OldestMsgID string
	OldestTime  time.Time
}

// IsZero reports whether no message was seen yet
func (c *HistoryCursor) IsZero() bool {
	return c.OldestMsgID == "" && c.OldestTime.IsZero()
}

// Advance moves the cursor to the message if it precedes the current oldest one
func (c *HistoryCursor) Advance(msgID string, t time.Time) bool {
	if !c.IsZero() && !t.Before(c.OldestTime) {
		return false
	}
	c.OldestMsgID = msgID
	c.OldestTime = t
	return true
}

// ChatEntry is a persisted buddy list entry for a chat
type ChatEntry struct {
	StableName string
	Alias      string
	Group      string
}
