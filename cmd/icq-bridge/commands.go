package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/flared/icq-bridge/internal/service"
)

// lineAction is what a console line asks for besides a dispatcher command
type lineAction int

const (
	actionNone lineAction = iota
	actionCommand
	actionAway
	actionBack
	actionQuit
	actionHelp
)

var errUsage = errors.New("usage")

const helpText = `commands:
  /join <stamp|link>        join a group chat
  /msg <to> <text>          send a message
  /info <chat>              refresh chat info
  /history <chat> [count]   load older messages
  /away, /back              toggle the disconnected flag
  /quit                     log out and exit
`

// parseLine turns a console line into an action and, for actionCommand, a command
func parseLine(line string) (lineAction, service.Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return actionNone, service.Command{}, nil
	}
	if !strings.HasPrefix(line, "/") {
		return actionNone, service.Command{}, fmt.Errorf("%w: commands start with /, try /help", errUsage)
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "join":
		if rest == "" {
			return actionNone, service.Command{}, fmt.Errorf("%w: /join <stamp|link>", errUsage)
		}
		return actionCommand, service.Command{Kind: service.CommandJoinChat, Target: rest}, nil

	case "msg":
		to, text, _ := strings.Cut(rest, " ")
		text = strings.TrimSpace(text)
		if to == "" || text == "" {
			return actionNone, service.Command{}, fmt.Errorf("%w: /msg <to> <text>", errUsage)
		}
		return actionCommand, service.Command{Kind: service.CommandSendMessage, Target: to, Text: text}, nil

	case "info":
		if rest == "" {
			return actionNone, service.Command{}, fmt.Errorf("%w: /info <chat>", errUsage)
		}
		return actionCommand, service.Command{Kind: service.CommandGetChatInfo, Target: rest}, nil

	case "history":
		fields := strings.Fields(rest)
		if len(fields) == 0 || len(fields) > 2 {
			return actionNone, service.Command{}, fmt.Errorf("%w: /history <chat> [count]", errUsage)
		}
		cmd := service.Command{Kind: service.CommandFetchHistory, Target: fields[0]}
		if len(fields) == 2 {
			count, err := strconv.Atoi(fields[1])
			if err != nil || count <= 0 {
				return actionNone, service.Command{}, fmt.Errorf("%w: count must be a positive number", errUsage)
			}
			cmd.Count = count
		}
		return actionCommand, cmd, nil

	case "away":
		return actionAway, service.Command{}, nil
	case "back":
		return actionBack, service.Command{}, nil
	case "quit", "exit":
		return actionQuit, service.Command{}, nil
	case "help":
		return actionHelp, service.Command{}, nil
	}
	return actionNone, service.Command{}, fmt.Errorf("%w: unknown command /%s, try /help", errUsage, name)
}
