package delivery

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Kind tells whether a delivery failure will go away by itself.
type Kind int

const (
	Transient Kind = iota
	Permanent
)

func (k Kind) String() string {
	if k == Permanent {
		return "permanent"
	}
	return "transient"
}

// Error is returned by Deliver.
type Error struct {
	Kind   Kind
	ChatID int64
	Op     string // probe, send
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s chat %d: %s: %v", e.Op, e.ChatID, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsPermanent reports whether err is a permanent delivery failure.
func IsPermanent(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == Permanent
}

// errUnreachable is used when the probe finds the bot outside the chat.
var errUnreachable = errors.New("bot is not a member of the chat")

// Descriptions Telegram uses when the chat is gone for good.
var permanentMarkers = []string{
	"chat not found",
	"bot was kicked",
	"bot was blocked by the user",
	"user is deactivated",
	"bot is not a member",
	"have no rights to send",
	"group chat was upgraded",
}

// Classify maps a Telegram API error to a Kind.
func Classify(err error) Kind {
	if err == nil {
		return Transient
	}
	if errors.Is(err, errUnreachable) {
		return Permanent
	}

	desc := err.Error()
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusForbidden {
			return Permanent
		}
		desc = apiErr.Message
	}

	desc = strings.ToLower(desc)
	for _, m := range permanentMarkers {
		if strings.Contains(desc, m) {
			return Permanent
		}
	}
	return Transient
}
