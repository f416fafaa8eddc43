package surface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/groupops/pkg/config"
)

type recorded struct {
	path string
	body map[string]any
}

func newTestTelegram(t *testing.T, reply func(path string) (int, string)) (*Telegram, *[]recorded) {
	t.Helper()
	calls := &[]recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*calls = append(*calls, recorded{path: r.URL.Path, body: body})
		status, payload := reply(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	tg, err := NewTelegram(&config.TelegramConfig{
		Token:          config.SensitiveString("123:abc"),
		BaseURL:        srv.URL,
		RequestsPerSec: 1000,
		Timeout:        5 * time.Second,
	})
	require.NoError(t, err)
	return tg, calls
}

func TestTelegram_Send(t *testing.T) {
	t.Run("Should send text with an inline keyboard", func(t *testing.T) {
		tg, calls := newTestTelegram(t, func(string) (int, string) {
			return http.StatusOK, `{"ok":true,"result":{"message_id":77}}`
		})
		ref, err := tg.Send(context.Background(), 5, View{
			Text:    "hello",
			Choices: [][]Choice{{{Label: "Next", Data: "pg:select_groups:1"}}},
		})
		require.NoError(t, err)
		assert.Equal(t, MessageRef{ChatID: 5, MessageID: 77}, ref)
		require.Len(t, *calls, 1)
		call := (*calls)[0]
		assert.Equal(t, "/bot123:abc/sendMessage", call.path)
		assert.Equal(t, float64(5), call.body["chat_id"])
		assert.Equal(t, "hello", call.body["text"])
		markup, ok := call.body["reply_markup"].(map[string]any)
		require.True(t, ok)
		rows := markup["inline_keyboard"].([]any)
		button := rows[0].([]any)[0].(map[string]any)
		assert.Equal(t, "Next", button["text"])
		assert.Equal(t, "pg:select_groups:1", button["callback_data"])
	})

	t.Run("Should omit the keyboard when there are no choices", func(t *testing.T) {
		tg, calls := newTestTelegram(t, func(string) (int, string) {
			return http.StatusOK, `{"ok":true,"result":{"message_id":1}}`
		})
		_, err := tg.Send(context.Background(), 5, View{Text: "plain"})
		require.NoError(t, err)
		_, has := (*calls)[0].body["reply_markup"]
		assert.False(t, has)
	})

	t.Run("Should surface api errors", func(t *testing.T) {
		tg, _ := newTestTelegram(t, func(string) (int, string) {
			return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`
		})
		_, err := tg.Send(context.Background(), 5, View{Text: "x"})
		var terr *TelegramError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "sendMessage", terr.Method)
		assert.Contains(t, terr.Description, "chat not found")
	})
}

func TestTelegram_Edit(t *testing.T) {
	t.Run("Should ignore not modified errors", func(t *testing.T) {
		tg, calls := newTestTelegram(t, func(string) (int, string) {
			return http.StatusBadRequest, `{"ok":false,"description":"Bad Request: message is not modified"}`
		})
		err := tg.Edit(context.Background(), MessageRef{ChatID: 5, MessageID: 9}, View{Text: "same"})
		require.NoError(t, err)
		assert.Equal(t, "/bot123:abc/editMessageText", (*calls)[0].path)
		assert.Equal(t, float64(9), (*calls)[0].body["message_id"])
	})
}

func TestTelegram_DeleteAndAnswer(t *testing.T) {
	t.Run("Should call deleteMessage and answerCallbackQuery", func(t *testing.T) {
		tg, calls := newTestTelegram(t, func(string) (int, string) {
			return http.StatusOK, `{"ok":true,"result":true}`
		})
		require.NoError(t, tg.Delete(context.Background(), MessageRef{ChatID: 5, MessageID: 9}))
		require.NoError(t, tg.AnswerCallback(context.Background(), "cb-1", "expired"))
		require.Len(t, *calls, 2)
		assert.Equal(t, "/bot123:abc/deleteMessage", (*calls)[0].path)
		assert.Equal(t, "/bot123:abc/answerCallbackQuery", (*calls)[1].path)
		assert.Equal(t, "cb-1", (*calls)[1].body["callback_query_id"])
	})
}

func TestTruncate(t *testing.T) {
	t.Run("Should keep short text and the tail of long text", func(t *testing.T) {
		assert.Equal(t, "short", Truncate("short"))
		long := strings.Repeat("a", MaxTextRunes) + "TAIL"
		out := Truncate(long)
		assert.Equal(t, MaxTextRunes, utf8.RuneCountInString(out))
		assert.True(t, strings.HasSuffix(out, "TAIL"))
		assert.True(t, strings.HasPrefix(out, "…"))
	})
}

func TestUpdate_OperatorID(t *testing.T) {
	t.Run("Should prefer the callback sender", func(t *testing.T) {
		u := Update{CallbackQuery: &CallbackQuery{From: User{ID: 7}}}
		id, ok := u.OperatorID()
		assert.True(t, ok)
		assert.Equal(t, int64(7), id)
		_, ok = (&Update{}).OperatorID()
		assert.False(t, ok)
	})
}
