package surface

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/compozy/groupops/pkg/config"
	"github.com/compozy/groupops/pkg/logger"
)

const notModified = "message is not modified"

// TelegramError is a failed bot API call.
type TelegramError struct {
	Method      string
	Code        int
	Description string
}

func (e *TelegramError) Error() string {
	return fmt.Sprintf("telegram %s failed (%d): %s", e.Method, e.Code, e.Description)
}

// Telegram renders views through the Telegram bot API.
type Telegram struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// NewTelegram creates a bot API client throttled to cfg.RequestsPerSec.
func NewTelegram(cfg *config.TelegramConfig) (*Telegram, error) {
	if cfg == nil {
		return nil, errors.New("telegram configuration is required")
	}
	token := cfg.Token.Value()
	if token == "" {
		return nil, errors.New("telegram token is required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/") + "/bot" + token
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 25
	}
	burst := max(int(rps), 1)
	return &Telegram{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

func markup(view View) *replyMarkup {
	if len(view.Choices) == 0 {
		return nil
	}
	rows := make([][]inlineButton, 0, len(view.Choices))
	for _, row := range view.Choices {
		buttons := make([]inlineButton, 0, len(row))
		for _, c := range row {
			buttons = append(buttons, inlineButton{Text: c.Label, CallbackData: c.Data})
		}
		rows = append(rows, buttons)
	}
	return &replyMarkup{InlineKeyboard: rows}
}

func (t *Telegram) Send(ctx context.Context, chatID int64, view View) (MessageRef, error) {
	body := map[string]any{
		"chat_id": chatID,
		"text":    Truncate(view.Text),
	}
	if m := markup(view); m != nil {
		body["reply_markup"] = m
	}
	res, err := t.call(ctx, "sendMessage", body)
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: chatID, MessageID: int(res.Get("message_id").Int())}, nil
}

func (t *Telegram) Edit(ctx context.Context, ref MessageRef, view View) error {
	body := map[string]any{
		"chat_id":    ref.ChatID,
		"message_id": ref.MessageID,
		"text":       Truncate(view.Text),
	}
	if m := markup(view); m != nil {
		body["reply_markup"] = m
	}
	_, err := t.call(ctx, "editMessageText", body)
	var terr *TelegramError
	if errors.As(err, &terr) && strings.Contains(terr.Description, notModified) {
		return nil
	}
	return err
}

func (t *Telegram) Delete(ctx context.Context, ref MessageRef) error {
	_, err := t.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    ref.ChatID,
		"message_id": ref.MessageID,
	})
	return err
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	body := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		body["text"] = text
	}
	_, err := t.call(ctx, "answerCallbackQuery", body)
	return err
}

func (t *Telegram) call(ctx context.Context, method string, body any) (gjson.Result, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, fmt.Errorf("telegram %s: %w", method, err)
	}
	resp, err := t.client.R().SetContext(ctx).SetBody(body).Post("/" + method)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("telegram %s: %w", method, err)
	}
	payload := gjson.ParseBytes(resp.Body())
	if resp.IsError() || !payload.Get("ok").Bool() {
		terr := &TelegramError{
			Method:      method,
			Code:        resp.StatusCode(),
			Description: payload.Get("description").String(),
		}
		logger.FromContext(ctx).Debug("Telegram call failed", "method", method, "error", terr)
		return gjson.Result{}, terr
	}
	return payload.Get("result"), nil
}
