package domain

import (
	"strconv"
	"strings"
)

const groupChatSuffix = "@chat.agent"

// PartialChat carries only the display essentials of a chat
type PartialChat struct {
	StableName string
	Title      string
	Group      string // Buddy list folder, empty if none
}

// ChatVersion is the pair of versions the service reports for a chat
type ChatVersion struct {
	MembersVersion string
	InfoVersion    string
}

// ChatInfo is the full chat descriptor obtained by an explicit fetch.
// A new fetch replaces it entirely.
type ChatInfo struct {
	Stamp          string
	Group          string
	StableName     string
	Title          string
	About          string
	MembersVersion string
	InfoVersion    string
	Members        []ChatMember
}

// Partial returns the display essentials
func (c *ChatInfo) Partial() PartialChat {
	return PartialChat{
		StableName: c.StableName,
		Title:      c.Title,
		Group:      c.Group,
	}
}

// NeedsUpdate reports whether either incoming version is greater than the cached one
func (c *ChatInfo) NeedsUpdate(incoming ChatVersion) bool {
	return CompareVersion(c.MembersVersion, incoming.MembersVersion) < 0 ||
		CompareVersion(c.InfoVersion, incoming.InfoVersion) < 0
}

// FindMember finds a member by stable name
func (c *ChatInfo) FindMember(stableName string) *ChatMember {
	for i := range c.Members {
		if c.Members[i].StableName == stableName {
			return &c.Members[i]
		}
	}
	return nil
}

// CompareVersion compares two version strings.
// Numeric strings compare by value, anything else lexicographically.
func CompareVersion(a, b string) int {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// IsGroupChat reports whether the stable name designates a group chat
func IsGroupChat(stableName string) bool {
	return strings.HasSuffix(stableName, groupChatSuffix)
}

// NormalizeStamp turns a shareable link (https://icq.im/XXXX) into its stamp
func NormalizeStamp(stampOrLink string) string {
	if !strings.Contains(stampOrLink, "icq.im/") {
		return stampOrLink
	}
	return stampOrLink[strings.LastIndex(stampOrLink, "/")+1:]
}
