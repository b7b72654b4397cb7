package icq

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Empty is the success payload of calls that return no data
type Empty struct{}

// FlexString decodes a JSON string or number into a string.
// The service is inconsistent about quoting ids and versions.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*s = ""
		return nil
	case data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*s = FlexString(n.String())
		return nil
	}
	return fmt.Errorf("cannot decode %s into a string", data)
}

func (s FlexString) String() string { return string(s) }

// Envelopes

type rapiRequest[T any] struct {
	AimSID string `json:"aimsid,omitempty"`
	ReqID  string `json:"reqId"`
	Params T      `json:"params"`
}

type rapiResponse[T any] struct {
	Results T `json:"results"`
}

type resultResponse[T any] struct {
	Result T `json:"result"`
}

type webResponse[T any] struct {
	Response webData[T] `json:"response"`
}

type webData[T any] struct {
	StatusCode int    `json:"statusCode"`
	StatusText string `json:"statusText"`
	Data       T      `json:"data"`
}

// Registration

type sendCodeParams struct {
	Phone       string `json:"phone"`
	Language    string `json:"language"`
	Route       string `json:"route"`
	DevID       string `json:"devId"`
	Application string `json:"application"`
}

// SendCodeResult is the reply of a verification code request
type SendCodeResult struct {
	CodeLength int    `json:"codeLength"`
	SessionID  string `json:"sessionId"` // Transaction id of the SMS exchange
}

// LoginResult carries the long-lived registration credentials
type LoginResult struct {
	Token struct {
		A string `json:"a"`
	} `json:"token"`
	HostTime   uint32 `json:"hostTime"`
	SessionKey string `json:"sessionKey"`
}

// StartSessionResult describes a freshly started session
type StartSessionResult struct {
	AimSID string `json:"aimsid"`
	MyInfo struct {
		AimID    string `json:"aimId"`
		Friendly string `json:"friendly"`
	} `json:"myInfo"`
	FetchBaseURL string `json:"fetchBaseURL"`
}

// FetchEventsResult is one long-poll batch
type FetchEventsResult struct {
	PollTime        FlexString `json:"pollTime"`
	TS              FlexString `json:"ts"`
	FetchBaseURL    string     `json:"fetchBaseURL"`
	FetchTimeout    int        `json:"fetchTimeout"`
	TimeToNextFetch int        `json:"timeToNextFetch"`
	Events          EventList  `json:"events"`
}

// Chats

type chatInfoParams struct {
	SN          string `json:"sn,omitempty"`
	Stamp       string `json:"stamp,omitempty"`
	MemberLimit int    `json:"memberLimit"`
}

type stampParams struct {
	Stamp string `json:"stamp"`
}

// ChatInfoResult is a full chat descriptor as reported by the service
type ChatInfoResult struct {
	SN             string       `json:"sn"`
	Stamp          string       `json:"stamp"`
	Name           string       `json:"name"`
	About          string       `json:"about"`
	MembersVersion FlexString   `json:"membersVersion"`
	InfoVersion    FlexString   `json:"infoVersion"`
	Members        []ChatMember `json:"members"`
}

// ChatMember is one member of a chat info reply
type ChatMember struct {
	SN        string `json:"sn"`
	Role      string `json:"role"`
	Friendly  string `json:"friendly"`
	UserState struct {
		LastSeen int64 `json:"lastseen"`
	} `json:"userState"`
	Anketa struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"anketa"`
}

// Messages

// SendIMResult acknowledges a sent message
type SendIMResult struct {
	MsgID           FlexString `json:"msgId"`
	HistMsgID       int64      `json:"histMsgId"`
	BeforeHistMsgID int64      `json:"beforeHistMsgId"`
	TS              int64      `json:"ts"`
	State           string     `json:"state"`
}

// FileInfoResult describes a shared file
type FileInfoResult struct {
	Info struct {
		FileSize uint64 `json:"file_size"`
		FileName string `json:"file_name"`
		MD5      string `json:"md5"`
		DLink    string `json:"dlink"`
		MIME     string `json:"mime"`
	} `json:"info"`
	Previews map[string]string `json:"previews"`
}

type historyParams struct {
	SN           string `json:"sn"`
	FromMsgID    string `json:"fromMsgId"`
	Count        int    `json:"count"`
	PatchVersion string `json:"patchVersion"`
}

// HistoryResult is one page of history
type HistoryResult struct {
	LastMsgID    FlexString    `json:"lastMsgId"`
	PatchVersion FlexString    `json:"patchVersion"`
	Persons      []Person      `json:"persons"`
	Messages     []HistMessage `json:"messages"`
}
