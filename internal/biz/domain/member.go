package domain

import "time"

// MemberRole is the role string the service reports for a chat member
type MemberRole string

const (
	RoleAdmin    MemberRole = "admin"
	RoleReadOnly MemberRole = "readonly"
	RoleMember   MemberRole = "member"
)

// MemberFlag is the presentation flag of a roster entry
type MemberFlag int

const (
	FlagNone MemberFlag = iota
	FlagVoice
	FlagOperator
)

func (f MemberFlag) String() string {
	switch f {
	case FlagOperator:
		return "op"
	case FlagVoice:
		return "voice"
	default:
		return "none"
	}
}

// Flag maps the role to its presentation flag
func (r MemberRole) Flag() MemberFlag {
	switch r {
	case RoleAdmin:
		return FlagOperator
	case RoleReadOnly:
		return FlagNone
	default:
		return FlagVoice
	}
}

// ChatMember is a member of a chat, part of a full chat descriptor
type ChatMember struct {
	StableName   string
	FriendlyName string
	Role         MemberRole
	LastSeen     time.Time // zero if unknown
	FirstName    string
	LastName     string
}

// DisplayName returns the friendliest available name
func (m *ChatMember) DisplayName() string {
	if m.FriendlyName != "" {
		return m.FriendlyName
	}
	switch {
	case m.FirstName != "" && m.LastName != "":
		return m.FirstName + " " + m.LastName
	case m.FirstName != "":
		return m.FirstName
	}
	return m.StableName
}

// RosterEntry is a member as shown in a conversation
type RosterEntry struct {
	StableName string
	Alias      string
	Flag       MemberFlag
}

// Roster is rebuilt from scratch on every chat info load
type Roster []RosterEntry

// BuildRoster maps members to roster entries
func BuildRoster(members []ChatMember) Roster {
	roster := make(Roster, 0, len(members))
	for _, m := range members {
		roster = append(roster, RosterEntry{
			StableName: m.StableName,
			Alias:      m.DisplayName(),
			Flag:       m.Role.Flag(),
		})
	}
	return roster
}
