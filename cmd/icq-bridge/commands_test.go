package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flared/icq-bridge/internal/service"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line   string
		action lineAction
		cmd    service.Command
	}{
		{"", actionNone, service.Command{}},
		{"/join https://icq.im/AbCd", actionCommand, service.Command{Kind: service.CommandJoinChat, Target: "https://icq.im/AbCd"}},
		{"/msg 200 hello there", actionCommand, service.Command{Kind: service.CommandSendMessage, Target: "200", Text: "hello there"}},
		{"/info 681@chat.agent", actionCommand, service.Command{Kind: service.CommandGetChatInfo, Target: "681@chat.agent"}},
		{"/history 200", actionCommand, service.Command{Kind: service.CommandFetchHistory, Target: "200"}},
		{"/history 200 50", actionCommand, service.Command{Kind: service.CommandFetchHistory, Target: "200", Count: 50}},
		{"/away", actionAway, service.Command{}},
		{"/back", actionBack, service.Command{}},
		{"  /quit  ", actionQuit, service.Command{}},
		{"/help", actionHelp, service.Command{}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			action, cmd, err := parseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.cmd, cmd)
		})
	}
}

func TestParseLine_Usage(t *testing.T) {
	for _, line := range []string{"hello", "/join", "/msg 200", "/info", "/history", "/history 200 x", "/history 200 -1", "/nope"} {
		_, _, err := parseLine(line)
		assert.ErrorIs(t, err, errUsage, line)
	}
}
