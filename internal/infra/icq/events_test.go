package icq

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_HistDlgState(t *testing.T) {
	raw := json.RawMessage(`{"type":"histDlgState","seqNum":12,"eventData":{
		"sn":"681@chat.agent","starting":true,"lastMsgId":"6800000000000000002","patchVersion":"1","unreadCnt":2,
		"persons":[{"sn":"1","friendly":"Ann"}],
		"messages":[
			{"msgId":"6800000000000000001","time":1600000000,"text":"hi","chat":{"sender":"1","name":"Go"}},
			{"msgId":6800000000000000002,"time":1600000005,"text":"yo","outgoing":true}
		],
		"mchatState":{"membersVersion":"4","infoVersion":5}
	}}`)

	got := DecodeEvent(raw)
	require.True(t, got.OK, "problem: %v", got.Problem)
	assert.Equal(t, int64(12), got.Value.SeqNum)
	assert.Equal(t, TypeHistDlgState, got.Value.Type)

	state, ok := got.Value.Payload.(*HistDlgState)
	require.True(t, ok)
	assert.Equal(t, "681@chat.agent", state.SN)
	assert.True(t, state.Starting)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, FlexString("6800000000000000001"), state.Messages[0].MsgID)
	assert.Equal(t, FlexString("6800000000000000002"), state.Messages[1].MsgID)
	assert.Equal(t, "1", state.Messages[0].Chat.Sender)
	assert.Nil(t, state.Messages[1].Chat)
	assert.True(t, state.Messages[1].Outgoing)
	require.NotNil(t, state.MChatState)
	assert.Equal(t, FlexString("5"), state.MChatState.InfoVersion)
}

func TestDecodeEvent_BuddyList(t *testing.T) {
	raw := json.RawMessage(`{"type":"buddylist","seqNum":1,"eventData":{"groups":[
		{"name":"General","id":1,"buddies":[{"aimId":"681@chat.agent","friendly":"Go","userType":"chat"},{"aimId":"200","userType":"icq"}]}
	]}}`)

	got := DecodeEvent(raw)
	require.True(t, got.OK)
	list := got.Value.Payload.(*BuddyList)
	require.Len(t, list.Groups, 1)
	assert.Equal(t, "General", list.Groups[0].Name)
	assert.Len(t, list.Groups[0].Buddies, 2)
	assert.Equal(t, "chat", list.Groups[0].Buddies[0].UserType)
}

func TestDecodeEvent_ObservationPoints(t *testing.T) {
	cases := map[string]string{
		TypePermitDeny:    `{"type":"permitDeny","eventData":{"allows":["1"],"blocks":[],"ignores":["2"]}}`,
		TypeMyInfo:        `{"type":"myInfo","eventData":{"aimId":"100","displayId":"100","friendly":"Me","state":"online","userType":"icq","globalFlags":32}}`,
		TypePresence:      `{"type":"presence","eventData":{"aimId":"200","state":"offline","statusTime":17090335,"lastseen":1111111111}}`,
		TypeGalleryNotify: `{"type":"galleryNotify","eventData":{"anything":{"goes":true}}}`,
	}

	for tag, payload := range cases {
		t.Run(tag, func(t *testing.T) {
			got := DecodeEvent(json.RawMessage(payload))
			require.True(t, got.OK, "problem: %v", got.Problem)
			assert.Equal(t, tag, got.Value.Type)
		})
	}
}

func TestDecodeEvent_Unknown(t *testing.T) {
	cases := map[string]string{
		"unknown tag":   `{"type":"typing","seqNum":3,"eventData":{"aimId":"1"}}`,
		"missing tag":   `{"seqNum":3,"eventData":{}}`,
		"missing data":  `{"type":"myInfo"}`,
		"wrong shape":   `{"type":"histDlgState","eventData":{"sn":12,"messages":"nope"}}`,
		"not an object": `42`,
		"invalid json":  `{"type":`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			got := DecodeEvent(json.RawMessage(payload))
			assert.False(t, got.OK)
			assert.Error(t, got.Problem)
			assert.Equal(t, payload, string(got.Raw))
		})
	}
}

func TestEventList_UnknownDoesNotAbortBatch(t *testing.T) {
	var list EventList
	err := json.Unmarshal([]byte(`[
		{"type":"galleryNotify","eventData":{}},
		{"type":"brandNew","eventData":{"v":[1,2,3]}},
		{"type":"myInfo","eventData":{"aimId":"100"}}
	]`), &list)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.True(t, list[0].OK)
	assert.False(t, list[1].OK)
	assert.JSONEq(t, `{"type":"brandNew","eventData":{"v":[1,2,3]}}`, string(list[1].Raw))
	assert.True(t, list[2].OK)
	assert.Equal(t, "100", list[2].Value.Payload.(*MyInfo).AimID)
}

func TestEventList_NotAnArray(t *testing.T) {
	var list EventList
	assert.Error(t, json.Unmarshal([]byte(`{"type":"myInfo"}`), &list))
}

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x","b":123,"c":null}`), &v))
	assert.Equal(t, FlexString("x"), v.A)
	assert.Equal(t, FlexString("123"), v.B)
	assert.Equal(t, FlexString(""), v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}
