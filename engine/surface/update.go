package surface

// Update is an incoming Telegram update. Only the fields the wizard reads
// are modeled.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type Message struct {
	MessageID int    `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// OperatorID returns the id of the user who produced the update.
func (u *Update) OperatorID() (int64, bool) {
	switch {
	case u.CallbackQuery != nil:
		return u.CallbackQuery.From.ID, true
	case u.Message != nil && u.Message.From != nil:
		return u.Message.From.ID, true
	}
	return 0, false
}
