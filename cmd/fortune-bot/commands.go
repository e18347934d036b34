package main

import (
	"strconv"
	"strings"
)

type commandKind int

const (
	cmdHelp commandKind = iota
	cmdStart
	cmdFlip
	cmdStatus
	cmdResult
	cmdClose
	cmdLanguage
	cmdSettings
	cmdCredits
	cmdHistory
	cmdUnknown
)

type command struct {
	kind commandKind
	// slot is 1-based as typed; 0 means missing or not a number
	slot  int
	arg   string
	limit int
}

var rootKeywords = map[string]struct{}{
	"운세":      {},
	"fortune": {},
	"运势":      {},
}

var subcommands = map[string]commandKind{
	"help": cmdHelp, "도움말": cmdHelp, "帮助": cmdHelp,
	"start": cmdStart, "new": cmdStart, "시작": cmdStart, "开始": cmdStart,
	"flip": cmdFlip, "reveal": cmdFlip, "open": cmdFlip, "뒤집기": cmdFlip, "翻": cmdFlip,
	"status": cmdStatus, "현황": cmdStatus, "状态": cmdStatus,
	"result": cmdResult, "results": cmdResult, "결과": cmdResult, "结果": cmdResult,
	"close": cmdClose, "dismiss": cmdClose, "닫기": cmdClose, "关闭": cmdClose,
	"lang": cmdLanguage, "language": cmdLanguage, "언어": cmdLanguage, "语言": cmdLanguage,
	"setting": cmdSettings, "settings": cmdSettings, "설정": cmdSettings, "设置": cmdSettings,
	"credit": cmdCredits, "credits": cmdCredits, "정보": cmdCredits, "关于": cmdCredits,
	"history": cmdHistory, "기록": cmdHistory, "记录": cmdHistory,
}

// parseCommand reads the text after the bot prefix. ok is false when the
// message is not addressed to the fortune game.
func parseCommand(raw string) (command, bool) {
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return command{}, false
	}
	if _, ok := rootKeywords[strings.ToLower(parts[0])]; !ok {
		return command{}, false
	}
	args := parts[1:]
	if len(args) == 0 {
		return command{kind: cmdHelp}, true
	}

	head := strings.ToLower(args[0])
	if n, err := strconv.Atoi(head); err == nil {
		return command{kind: cmdFlip, slot: n}, true
	}
	kind, ok := subcommands[head]
	if !ok {
		return command{kind: cmdUnknown, arg: head}, true
	}

	cmd := command{kind: kind}
	if len(args) > 1 {
		cmd.arg = strings.ToLower(args[1])
	}
	switch kind {
	case cmdFlip:
		if n, err := strconv.Atoi(cmd.arg); err == nil {
			cmd.slot = n
		}
	case cmdHistory:
		if n, err := strconv.Atoi(cmd.arg); err == nil && n > 0 {
			cmd.limit = n
		}
	}
	return cmd, true
}
