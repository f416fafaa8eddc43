// Package session serializes operator updates and routes them to the wizard.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/compozy/groupops/engine/surface"
	"github.com/compozy/groupops/engine/wizard"
	"github.com/compozy/groupops/pkg/logger"
)

const notAuthorized = "⛔ You are not allowed to use this bot."

var menuCommands = map[string]bool{
	"/start": true,
	"/menu":  true,
	"/admin": true,
}

// Handler is the wizard surface the manager routes to.
type Handler interface {
	ShowMenu(ctx context.Context, op wizard.Operator) error
	HandleAction(ctx context.Context, op wizard.Operator, ref surface.MessageRef, data string) error
	HandleText(ctx context.Context, op wizard.Operator, msg surface.MessageRef, text string) (bool, error)
}

// Manager handles every update of one operator under that operator's mutex.
type Manager struct {
	handler Handler
	surface surface.Surface
	allowed map[int64]struct{}

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewManager builds a manager. An empty allowlist admits every operator.
func NewManager(handler Handler, surf surface.Surface, allowed []int64) *Manager {
	m := &Manager{
		handler: handler,
		surface: surf,
		allowed: make(map[int64]struct{}, len(allowed)),
		locks:   make(map[int64]*sync.Mutex),
	}
	for _, id := range allowed {
		m.allowed[id] = struct{}{}
	}
	return m
}

func (m *Manager) lockFor(operatorID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[operatorID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[operatorID] = l
	}
	return l
}

func (m *Manager) authorized(operatorID int64) bool {
	if len(m.allowed) == 0 {
		return true
	}
	_, ok := m.allowed[operatorID]
	return ok
}

// HandleUpdate processes one incoming update.
func (m *Manager) HandleUpdate(ctx context.Context, u *surface.Update) error {
	operatorID, ok := u.OperatorID()
	if !ok {
		return nil
	}
	log := logger.FromContext(ctx).With("operator_id", operatorID, "update_id", u.UpdateID)
	ctx = logger.ContextWithLogger(ctx, log)

	l := m.lockFor(operatorID)
	l.Lock()
	defer l.Unlock()

	if u.CallbackQuery != nil {
		return m.handleCallback(ctx, operatorID, u.CallbackQuery)
	}
	return m.handleMessage(ctx, operatorID, u.Message)
}

func (m *Manager) handleCallback(ctx context.Context, operatorID int64, q *surface.CallbackQuery) error {
	log := logger.FromContext(ctx)
	op := wizard.Operator{ID: operatorID, ChatID: operatorID}
	var ref surface.MessageRef
	if q.Message != nil {
		op.ChatID = q.Message.Chat.ID
		ref = surface.MessageRef{ChatID: q.Message.Chat.ID, MessageID: q.Message.MessageID}
	}
	if !m.authorized(operatorID) {
		log.Warn("Rejected callback from unknown operator")
		m.answer(ctx, q.ID, notAuthorized)
		return nil
	}
	err := m.handler.HandleAction(ctx, op, ref, q.Data)
	notice := wizard.Notice(err)
	m.answer(ctx, q.ID, notice)
	if notice != "" {
		log.Debug("Action rejected", "data", q.Data, "reason", err)
		return nil
	}
	return err
}

func (m *Manager) handleMessage(ctx context.Context, operatorID int64, msg *surface.Message) error {
	log := logger.FromContext(ctx)
	op := wizard.Operator{ID: operatorID, ChatID: msg.Chat.ID}
	if !m.authorized(operatorID) {
		log.Warn("Rejected message from unknown operator")
		_, err := m.surface.Send(ctx, op.ChatID, surface.View{Text: notAuthorized})
		return err
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}
	if menuCommands[strings.Fields(text)[0]] {
		return m.handler.ShowMenu(ctx, op)
	}
	ref := surface.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID}
	handled, err := m.handler.HandleText(ctx, op, ref, msg.Text)
	if notice := wizard.Notice(err); notice != "" {
		_, sendErr := m.surface.Send(ctx, op.ChatID, surface.View{Text: notice})
		return sendErr
	}
	if err != nil {
		return err
	}
	if !handled {
		log.Debug("Ignoring text outside a waiting step")
	}
	return nil
}

func (m *Manager) answer(ctx context.Context, callbackID, text string) {
	answerer, ok := m.surface.(surface.CallbackAnswerer)
	if !ok {
		return
	}
	if err := answerer.AnswerCallback(ctx, callbackID, text); err != nil {
		logger.FromContext(ctx).Warn("Failed to answer callback", "error", err)
	}
}
