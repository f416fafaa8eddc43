package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/compozy/groupops/engine/batch"
	"github.com/compozy/groupops/engine/group"
	"github.com/compozy/groupops/engine/surface"
)

// fakeSurface records every rendered view.
type fakeSurface struct {
	mu      sync.Mutex
	nextID  int
	sent    []surface.View
	edits   []surface.View
	deleted []surface.MessageRef
	editErr error
}

func (f *fakeSurface) Send(_ context.Context, chatID int64, view surface.View) (surface.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, view)
	return surface.MessageRef{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeSurface) Edit(_ context.Context, _ surface.MessageRef, view surface.View) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, view)
	return nil
}

func (f *fakeSurface) Delete(_ context.Context, ref surface.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeSurface) lastEdit() surface.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return surface.View{}
	}
	return f.edits[len(f.edits)-1]
}

func (f *fakeSurface) lastSent() surface.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return surface.View{}
	}
	return f.sent[len(f.sent)-1]
}

// fakeClient serves a fixed group list and scripted participant calls.
type fakeClient struct {
	mu        sync.Mutex
	groups    []group.Group
	listErr   error
	admins    map[string][]group.Admin
	promote   func(groupID, target string) error
	demotedIn map[string]int
	promoted  int
}

func (f *fakeClient) ListGroups(context.Context, string) ([]group.Group, error) {
	return f.groups, f.listErr
}

func (f *fakeClient) IsMember(context.Context, string, string, string) (bool, error) {
	return true, nil
}

func (f *fakeClient) AddMember(context.Context, string, string, string) error {
	return nil
}

func (f *fakeClient) Promote(_ context.Context, _ string, groupID, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.promoted++
	if f.promote != nil {
		return f.promote(groupID, target)
	}
	return nil
}

func (f *fakeClient) Demote(_ context.Context, _ string, groupID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.demotedIn == nil {
		f.demotedIn = map[string]int{}
	}
	f.demotedIn[groupID]++
	return nil
}

func (f *fakeClient) ListAdmins(_ context.Context, _ string, groupID string) ([]group.Admin, error) {
	return f.admins[groupID], nil
}

// mockRunner is a Runner driven by testify expectations.
type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, job batch.Job, progress batch.ProgressFunc) (*batch.Result, error) {
	args := m.Called(ctx, job, progress)
	res, _ := args.Get(0).(*batch.Result)
	return res, args.Error(1)
}

func noSleep(context.Context, time.Duration) {}

func syncLaunch(fn func()) { fn() }
