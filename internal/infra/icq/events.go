package icq

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Event tags
const (
	TypeHistDlgState  = "histDlgState"
	TypeBuddyList     = "buddylist"
	TypePermitDeny    = "permitDeny"
	TypeMyInfo        = "myInfo"
	TypePresence      = "presence"
	TypeGalleryNotify = "galleryNotify"
)

// Event is a decoded event. Payload is one of the *HistDlgState, *BuddyList,
// *PermitDeny, *MyInfo, *Presence, *GalleryNotify types.
type Event struct {
	SeqNum  int64
	Type    string
	Payload any
}

// Try holds either a decoded value or the raw JSON that failed to decode
type Try[T any] struct {
	Value   T
	OK      bool
	Raw     json.RawMessage
	Problem error // why decoding failed, nil when OK
}

// EventList decodes each event independently, a bad one never fails the list
type EventList []Try[Event]

func (l *EventList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(EventList, 0, len(raws))
	for _, raw := range raws {
		out = append(out, DecodeEvent(raw))
	}
	*l = out
	return nil
}

// DecodeEvent decodes one event, falling back to the raw JSON on any problem
func DecodeEvent(raw json.RawMessage) Try[Event] {
	unknown := func(err error) Try[Event] {
		return Try[Event]{Raw: raw, Problem: err}
	}

	if !gjson.ValidBytes(raw) {
		return unknown(fmt.Errorf("invalid json"))
	}
	tag := gjson.GetBytes(raw, "type")
	if !tag.Exists() {
		return unknown(fmt.Errorf("missing type tag"))
	}
	data := gjson.GetBytes(raw, "eventData")
	if !data.Exists() {
		return unknown(fmt.Errorf("missing eventData for %q", tag.String()))
	}

	var payload any
	switch tag.String() {
	case TypeHistDlgState:
		payload = &HistDlgState{}
	case TypeBuddyList:
		payload = &BuddyList{}
	case TypePermitDeny:
		payload = &PermitDeny{}
	case TypeMyInfo:
		payload = &MyInfo{}
	case TypePresence:
		payload = &Presence{}
	case TypeGalleryNotify:
		payload = &GalleryNotify{Raw: json.RawMessage(data.Raw)}
	default:
		return unknown(fmt.Errorf("unknown event type %q", tag.String()))
	}

	if _, gallery := payload.(*GalleryNotify); !gallery {
		if err := json.Unmarshal([]byte(data.Raw), payload); err != nil {
			return unknown(fmt.Errorf("decode %s: %w", tag.String(), err))
		}
	}

	return Try[Event]{
		OK:  true,
		Raw: raw,
		Value: Event{
			SeqNum:  gjson.GetBytes(raw, "seqNum").Int(),
			Type:    tag.String(),
			Payload: payload,
		},
	}
}

// Person is a participant of a dialog
type Person struct {
	SN        string `json:"sn"`
	Friendly  string `json:"friendly"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// HistMessage is a message of a dialog state or history page
type HistMessage struct {
	MsgID     FlexString `json:"msgId"`
	Time      int64      `json:"time"`
	Text      string     `json:"text"`
	MediaType string     `json:"mediaType"`
	Outgoing  bool       `json:"outgoing"`
	Chat      *struct {
		Sender string `json:"sender"`
		Name   string `json:"name"`
	} `json:"chat"`
}

// HistDlgState is the dialog state change payload
type HistDlgState struct {
	SN              string        `json:"sn"`
	Starting        bool          `json:"starting"`
	LastMsgID       FlexString    `json:"lastMsgId"`
	LastReadMention FlexString    `json:"lastReadMention"`
	PatchVersion    FlexString    `json:"patchVersion"`
	UnreadCnt       int           `json:"unreadCnt"`
	Persons         []Person      `json:"persons"`
	Messages        []HistMessage `json:"messages"`
	MChatState      *struct {
		MembersVersion FlexString `json:"membersVersion"`
		InfoVersion    FlexString `json:"infoVersion"`
	} `json:"mchatState"`
}

// BuddyList is the buddy list snapshot payload
type BuddyList struct {
	Groups []struct {
		Name    string `json:"name"`
		ID      int    `json:"id"`
		Buddies []struct {
			AimID    string `json:"aimId"`
			Friendly string `json:"friendly"`
			UserType string `json:"userType"`
		} `json:"buddies"`
	} `json:"groups"`
}

// PermitDeny is the allow/block lists snapshot payload
type PermitDeny struct {
	Allows  []string `json:"allows"`
	Blocks  []string `json:"blocks"`
	Ignores []string `json:"ignores"`
}

// MyInfo is the own user snapshot payload
type MyInfo struct {
	AimID               string     `json:"aimId"`
	DisplayID           string     `json:"displayId"`
	Friendly            string     `json:"friendly"`
	State               string     `json:"state"`
	UserType            string     `json:"userType"`
	AttachedPhoneNumber string     `json:"attachedPhoneNumber"`
	GlobalFlags         FlexString `json:"globalFlags"`
}

// Presence is the contact presence payload
type Presence struct {
	AimID        string `json:"aimId"`
	DisplayID    string `json:"displayId"`
	Friendly     string `json:"friendly"`
	State        string `json:"state"`
	UserType     string `json:"userType"`
	StatusTime   int64  `json:"statusTime"`
	StatusMsg    string `json:"statusMsg"`
	AutoAddition string `json:"autoAddition"`
	LastSeen     int64  `json:"lastseen"`
}

// GalleryNotify is kept raw, nothing consumes its fields yet
type GalleryNotify struct {
	Raw json.RawMessage
}
