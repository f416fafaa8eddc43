// Package wizard drives the multi-step selection flows operators use to
// build batch jobs, and launches the batch once confirmed.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/compozy/groupops/engine/batch"
	"github.com/compozy/groupops/engine/flow"
	"github.com/compozy/groupops/engine/infra/cache"
	"github.com/compozy/groupops/engine/phone"
	"github.com/compozy/groupops/engine/remote"
	"github.com/compozy/groupops/engine/surface"
	"github.com/compozy/groupops/pkg/logger"
)

var (
	// ErrStaleAction is returned when an action does not match the current flow.
	ErrStaleAction    = errors.New("action does not match the current flow")
	ErrBatchRunning   = errors.New("a batch is already running")
	ErrEmptySelection = errors.New("no group selected")
)

const DefaultPageSize = 8

// Notice returns the short text shown to the operator for a handler error,
// or an empty string when the error has no operator-facing notice.
func Notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStaleAction):
		return "⌛ This menu has expired."
	case errors.Is(err, ErrBatchRunning):
		return "⏳ A batch is running. Wait for it to finish."
	case errors.Is(err, ErrEmptySelection):
		return "Select at least one group first."
	case errors.Is(err, ErrUnknownAction):
		return "Unknown action."
	}
	return ""
}

// Operator identifies who drives the wizard and where it is rendered.
type Operator struct {
	ID     int64
	ChatID int64
}

// Session is the remote session name of the operator.
func (o Operator) Session() string {
	return strconv.FormatInt(o.ID, 10)
}

// Runner executes a finalized job.
type Runner interface {
	Run(ctx context.Context, job batch.Job, progress batch.ProgressFunc) (*batch.Result, error)
}

type Wizard struct {
	store    flow.Store
	client   remote.Client
	surface  surface.Surface
	runner   Runner
	locks    cache.JobLock
	pageSize int
	launch   func(func())
}

type Option func(*Wizard)

// WithPageSize sets how many entries a list page shows.
func WithPageSize(n int) Option {
	return func(w *Wizard) {
		if n > 0 {
			w.pageSize = n
		}
	}
}

// WithLauncher replaces the goroutine that runs confirmed batches.
func WithLauncher(launch func(func())) Option {
	return func(w *Wizard) {
		w.launch = launch
	}
}

func New(
	store flow.Store,
	client remote.Client,
	surf surface.Surface,
	runner Runner,
	locks cache.JobLock,
	opts ...Option,
) *Wizard {
	w := &Wizard{
		store:    store,
		client:   client,
		surface:  surf,
		runner:   runner,
		locks:    locks,
		pageSize: DefaultPageSize,
		launch:   func(fn func()) { go fn() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ShowMenu sends a fresh admin menu.
func (w *Wizard) ShowMenu(ctx context.Context, op Operator) error {
	_, err := w.surface.Send(ctx, op.ChatID, menuView(""))
	return err
}

// request is the input of one routed action.
type request struct {
	op     Operator
	ref    surface.MessageRef
	action Action
	state  *flow.State
}

type route struct {
	// guard reports whether the action fits the current state; nil state
	// means the operator has no active flow.
	guard  func(s *flow.State, a Action) bool
	handle func(w *Wizard, ctx context.Context, req *request) error
}

func noGuard(*flow.State, Action) bool { return true }

func atStep(steps ...flow.Step) func(*flow.State, Action) bool {
	return func(s *flow.State, _ Action) bool {
		if s == nil {
			return false
		}
		for _, step := range steps {
			if s.Step == step {
				return true
			}
		}
		return false
	}
}

var routes = map[ActionKind]route{
	ActionMenu:            {guard: noGuard, handle: (*Wizard).handleMenu},
	ActionStartAddPromote: {guard: noGuard, handle: (*Wizard).handleStart},
	ActionStartDemoteAll:  {guard: noGuard, handle: (*Wizard).handleStart},
	ActionToggleGroup: {
		guard:  atStep(flow.StepSelectGroups, flow.StepSelectGroupsInBase),
		handle: (*Wizard).handleToggleGroup,
	},
	ActionToggleBase: {
		guard: func(s *flow.State, a Action) bool {
			return s != nil && s.Kind == flow.KindDemoteAll && s.Step == flow.StepSelectBaseNames
		},
		handle: (*Wizard).handleToggleBase,
	},
	ActionSelectPage: {
		guard: func(s *flow.State, a Action) bool {
			return s != nil && s.Step == a.Step && s.Kind.Lists(a.Step)
		},
		handle: (*Wizard).handleSelectPage,
	},
	ActionSearch: {
		guard:  atStep(flow.StepSelectGroups, flow.StepSelectBaseNames),
		handle: (*Wizard).handleSearch,
	},
	ActionResetSearch: {
		guard: atStep(
			flow.StepSelectGroups, flow.StepWaitingSearchQuery,
			flow.StepSelectBaseNames, flow.StepWaitingDemoteSearchQuery,
			flow.StepSelectGroupsInBase,
		),
		handle: (*Wizard).handleResetSearch,
	},
	ActionBack: {
		guard: func(s *flow.State, _ Action) bool {
			return s != nil && s.Kind == flow.KindDemoteAll && s.Step == flow.StepSelectGroupsInBase
		},
		handle: (*Wizard).handleBack,
	},
	ActionFinishSelection: {
		guard:  atStep(flow.StepSelectGroups, flow.StepSelectGroupsInBase),
		handle: (*Wizard).handleFinish,
	},
	ActionConfirm: {guard: atStep(flow.StepConfirm), handle: (*Wizard).handleConfirm},
	ActionCancel:  {guard: noGuard, handle: (*Wizard).handleCancel},
}

// HandleAction routes callback data pressed on the message at ref.
func (w *Wizard) HandleAction(ctx context.Context, op Operator, ref surface.MessageRef, data string) error {
	action, err := ParseAction(data)
	if err != nil {
		return err
	}
	r, ok := routes[action.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action.Kind)
	}
	state, _ := w.store.Get(op.ID)
	if state != nil && state.IsExecuting() && action.Kind != ActionMenu {
		return ErrBatchRunning
	}
	if !r.guard(state, action) {
		logger.FromContext(ctx).Debug("Stale wizard action", "operator_id", op.ID, "action", action.Kind)
		return ErrStaleAction
	}
	return r.handle(w, ctx, &request{op: op, ref: ref, action: action, state: state})
}

// HandleText consumes free text when the operator's flow waits for it.
// It reports false when the text is not meant for the wizard.
func (w *Wizard) HandleText(ctx context.Context, op Operator, msg surface.MessageRef, text string) (bool, error) {
	state, ok := w.store.Get(op.ID)
	if !ok {
		return false, nil
	}
	switch state.Step {
	case flow.StepWaitingSearchQuery, flow.StepWaitingDemoteSearchQuery:
		w.deleteQuietly(ctx, msg)
		if err := state.SetSearch(strings.TrimSpace(text)); err != nil {
			return true, err
		}
		return true, w.render(ctx, state, listView(state, w.pageSize))
	case flow.StepWaitingAdminNumbers:
		w.deleteQuietly(ctx, msg)
		return true, w.handleNumbers(ctx, op, state, text)
	}
	return false, nil
}

func (w *Wizard) handleNumbers(ctx context.Context, op Operator, state *flow.State, text string) error {
	numbers, err := phone.Parse(text)
	var verr *phone.ValidationError
	switch {
	case errors.As(err, &verr):
		_, sendErr := w.surface.Send(ctx, op.ChatID, numbersPromptView(state, verr.Messages()))
		return sendErr
	case err != nil:
		return err
	case len(numbers) == 0:
		_, sendErr := w.surface.Send(ctx, op.ChatID, numbersPromptView(state, []string{"no numbers found"}))
		return sendErr
	}
	if err := state.Transition(flow.StepConfirm); err != nil {
		return err
	}
	state.AdminNumbers = numbers
	return w.render(ctx, state, confirmView(state))
}

func (w *Wizard) handleMenu(ctx context.Context, req *request) error {
	return w.show(ctx, req.op, req.ref, menuView(""))
}

func (w *Wizard) handleStart(ctx context.Context, req *request) error {
	log := logger.FromContext(ctx).With("operator_id", req.op.ID)
	w.store.Clear(req.op.ID)
	ref, err := w.showRef(ctx, req.op, req.ref, loadingView())
	if err != nil {
		return err
	}
	groups, err := w.client.ListGroups(ctx, req.op.Session())
	if err != nil {
		log.Error("Failed to list groups", "error", err)
		return w.surface.Edit(ctx, ref, errorView("Could not load groups: "+err.Error()))
	}
	if len(groups) == 0 {
		return w.surface.Edit(ctx, ref, errorView("No groups found for this account."))
	}
	var state *flow.State
	if req.action.Kind == ActionStartDemoteAll {
		state = flow.NewDemoteAll(groups)
	} else {
		state = flow.NewAddPromote(groups)
	}
	state.ChatID = ref.ChatID
	state.MessageID = ref.MessageID
	w.store.Put(req.op.ID, state)
	log.Info("Wizard started", "kind", state.Kind, "groups", len(groups))
	return w.render(ctx, state, listView(state, w.pageSize))
}

func (w *Wizard) handleToggleGroup(ctx context.Context, req *request) error {
	if _, err := req.state.ToggleGroup(req.action.GroupID); err != nil {
		if errors.Is(err, flow.ErrUnknownGroup) {
			return fmt.Errorf("%w: %w", ErrStaleAction, err)
		}
		return err
	}
	return w.renderAt(ctx, req, listView(req.state, w.pageSize))
}

func (w *Wizard) handleToggleBase(ctx context.Context, req *request) error {
	name, ok := resolveBase(req.action, req.state.OriginalGrouped)
	if !ok {
		return ErrStaleAction
	}
	if err := req.state.SelectBase(name); err != nil {
		return err
	}
	return w.renderAt(ctx, req, listView(req.state, w.pageSize))
}

func (w *Wizard) handleSelectPage(ctx context.Context, req *request) error {
	req.state.CurrentPage = req.action.Page
	return w.renderAt(ctx, req, listView(req.state, w.pageSize))
}

func (w *Wizard) handleSearch(ctx context.Context, req *request) error {
	target := flow.StepWaitingSearchQuery
	if req.state.Kind == flow.KindDemoteAll {
		target = flow.StepWaitingDemoteSearchQuery
	}
	if err := req.state.Transition(target); err != nil {
		return err
	}
	return w.renderAt(ctx, req, searchPromptView(req.state))
}

func (w *Wizard) handleResetSearch(ctx context.Context, req *request) error {
	req.state.ResetSearch()
	return w.renderAt(ctx, req, listView(req.state, w.pageSize))
}

func (w *Wizard) handleBack(ctx context.Context, req *request) error {
	if err := req.state.BackToBases(); err != nil {
		return err
	}
	return w.renderAt(ctx, req, listView(req.state, w.pageSize))
}

func (w *Wizard) handleFinish(ctx context.Context, req *request) error {
	s := req.state
	if s.Selected.Len() == 0 {
		return ErrEmptySelection
	}
	if s.Kind == flow.KindDemoteAll {
		if err := s.Transition(flow.StepConfirm); err != nil {
			return err
		}
		return w.renderAt(ctx, req, confirmView(s))
	}
	if err := s.Transition(flow.StepWaitingAdminNumbers); err != nil {
		return err
	}
	return w.renderAt(ctx, req, numbersPromptView(s, nil))
}

func (w *Wizard) handleCancel(ctx context.Context, req *request) error {
	w.store.Clear(req.op.ID)
	return w.show(ctx, req.op, req.ref, menuView("✅ Cancelled."))
}

func (w *Wizard) handleConfirm(ctx context.Context, req *request) error {
	s := req.state
	log := logger.FromContext(ctx).With("operator_id", req.op.ID)
	lock, err := w.locks.Acquire(ctx, req.op.ID)
	if errors.Is(err, cache.ErrJobRunning) {
		return ErrBatchRunning
	}
	if err != nil {
		return fmt.Errorf("acquire job lock: %w", err)
	}
	if err := s.Transition(flow.StepExecuting); err != nil {
		w.release(ctx, lock)
		return err
	}
	job := batch.NewJob(s.Kind, req.op.Session(), s.SelectedGroups(), append([]string(nil), s.AdminNumbers...))
	ref := req.ref
	if err := w.surface.Edit(ctx, ref, startingView(job.Kind)); err != nil {
		log.Warn("Failed to render batch start", "error", err)
	}
	log.Info("Batch confirmed", "job_id", job.ID, "kind", job.Kind, "groups", len(job.Groups))

	runCtx := context.WithoutCancel(ctx)
	w.launch(func() {
		w.runJob(runCtx, req.op, ref, job, lock)
	})
	return nil
}

func (w *Wizard) runJob(ctx context.Context, op Operator, ref surface.MessageRef, job batch.Job, lock cache.Lock) {
	log := logger.FromContext(ctx).With("operator_id", op.ID, "job_id", job.ID)
	defer w.release(ctx, lock)
	defer w.store.Clear(op.ID)

	progress := func(ctx context.Context, p batch.Progress) error {
		return w.surface.Edit(ctx, ref, progressView(p))
	}
	res, err := w.runner.Run(ctx, job, progress)
	if err != nil {
		log.Error("Batch stopped", "error", err)
	}
	final := resultView(job.Kind, res, err)
	if editErr := w.surface.Edit(ctx, ref, final); editErr != nil {
		log.Warn("Failed to edit final result, sending new message", "error", editErr)
		if _, sendErr := w.surface.Send(ctx, op.ChatID, final); sendErr != nil {
			log.Error("Failed to deliver batch result", "error", sendErr)
		}
	}
}

func (w *Wizard) release(ctx context.Context, lock cache.Lock) {
	if err := lock.Release(ctx); err != nil {
		logger.FromContext(ctx).Warn("Failed to release job lock", "error", err)
	}
}

// show edits the message at ref, or sends a new one when there is none.
func (w *Wizard) show(ctx context.Context, op Operator, ref surface.MessageRef, view surface.View) error {
	_, err := w.showRef(ctx, op, ref, view)
	return err
}

func (w *Wizard) showRef(
	ctx context.Context,
	op Operator,
	ref surface.MessageRef,
	view surface.View,
) (surface.MessageRef, error) {
	if ref.MessageID == 0 {
		return w.surface.Send(ctx, op.ChatID, view)
	}
	return ref, w.surface.Edit(ctx, ref, view)
}

// renderAt edits the pressed message and makes it the one tracked by state.
func (w *Wizard) renderAt(ctx context.Context, req *request, view surface.View) error {
	req.state.ChatID = req.ref.ChatID
	req.state.MessageID = req.ref.MessageID
	return w.surface.Edit(ctx, req.ref, view)
}

// render edits the message tracked by state.
func (w *Wizard) render(ctx context.Context, s *flow.State, view surface.View) error {
	return w.surface.Edit(ctx, surface.MessageRef{ChatID: s.ChatID, MessageID: s.MessageID}, view)
}

func (w *Wizard) deleteQuietly(ctx context.Context, ref surface.MessageRef) {
	if err := w.surface.Delete(ctx, ref); err != nil {
		logger.FromContext(ctx).Debug("Failed to delete operator message", "error", err)
	}
}
