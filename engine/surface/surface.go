// Package surface is the conversation channel operators use to drive the
// wizard. Views are platform-agnostic; adapters render them.
package surface

import (
	"context"
	"unicode/utf8"
)

// MaxTextRunes is the longest message text a surface accepts.
const MaxTextRunes = 4096

// Choice is one selectable button.
type Choice struct {
	Label string
	Data  string
}

// View is a message body with rows of choices.
type View struct {
	Text    string
	Choices [][]Choice
}

// MessageRef addresses a message previously sent.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Surface sends, edits and deletes operator-facing messages.
type Surface interface {
	Send(ctx context.Context, chatID int64, view View) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, view View) error
	Delete(ctx context.Context, ref MessageRef) error
}

// CallbackAnswerer is implemented by surfaces that acknowledge button presses.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Truncate keeps the tail of text so that it fits in MaxTextRunes.
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxTextRunes {
		return text
	}
	runes := []rune(text)
	return "…" + string(runes[len(runes)-(MaxTextRunes-1):])
}
