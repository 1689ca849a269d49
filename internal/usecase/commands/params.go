package commands

import (
	"io"
	"strconv"
	"strings"

	"github.com/valyala/fasttemplate"

	"chatgate/internal/domain"
)

const (
	paramStart = "$("
	paramEnd   = ")"
)

// Params carries the values a custom response can reference.
type Params struct {
	Event   *domain.CommandEvent
	BotName string
}

// ExpandParams replaces $(user), $(sender), $(args), $(1)..$(n), $(channel),
// $(bot) and $(command) inside template. Unknown tokens are kept verbatim.
func ExpandParams(template string, p Params) (string, error) {
	if !strings.Contains(template, paramStart) {
		return template, nil
	}

	return fasttemplate.ExecuteFuncStringWithErr(template, paramStart, paramEnd, func(w io.Writer, tag string) (int, error) {
		if value, ok := p.lookup(strings.TrimSpace(tag)); ok {
			return w.Write([]byte(value))
		}
		return w.Write([]byte(paramStart + tag + paramEnd))
	})
}

func (p Params) lookup(tag string) (string, bool) {
	ev := p.Event
	if ev == nil {
		ev = &domain.CommandEvent{}
	}

	switch strings.ToLower(tag) {
	case "user", "sender":
		return ev.Sender, true
	case "args":
		return ev.ArgString(), true
	case "channel":
		return strings.TrimPrefix(ev.Message.ChannelID, "#"), true
	case "bot":
		return p.BotName, true
	case "command":
		return ev.Command, true
	}

	if n, err := strconv.Atoi(tag); err == nil && n > 0 {
		if n <= len(ev.Args) {
			return ev.Args[n-1], true
		}
		return "", true
	}
	return "", false
}
