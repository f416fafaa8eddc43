package batch

import (
	"context"
	"sync"
	"time"

	"github.com/compozy/groupops/engine/group"
)

type call struct {
	op     string
	group  string
	target string
}

// fakeRemote scripts remote responses per operation.
type fakeRemote struct {
	mu         sync.Mutex
	calls      []call
	groups     []group.Group
	member     func(groupID, target string, n int) (bool, error)
	add        func(groupID, target string) error
	promote    func(groupID, target string, n int) error
	demote     func(groupID, target string) error
	admins     map[string][]group.Admin
	adminsErr  map[string]error
	memberHits map[string]int
	promoHits  map[string]int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		admins:     map[string][]group.Admin{},
		adminsErr:  map[string]error{},
		memberHits: map[string]int{},
		promoHits:  map[string]int{},
	}
}

func (f *fakeRemote) record(op, groupID, target string) {
	f.calls = append(f.calls, call{op: op, group: groupID, target: target})
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func (f *fakeRemote) countIn(op, groupID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.op == op && c.group == groupID {
			n++
		}
	}
	return n
}

func (f *fakeRemote) ListGroups(_ context.Context, _ string) ([]group.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list_groups", "", "")
	return f.groups, nil
}

func (f *fakeRemote) IsMember(_ context.Context, _ string, groupID, target string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("is_member", groupID, target)
	key := groupID + "/" + target
	f.memberHits[key]++
	if f.member == nil {
		return true, nil
	}
	return f.member(groupID, target, f.memberHits[key])
}

func (f *fakeRemote) AddMember(_ context.Context, _ string, groupID, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("add", groupID, target)
	if f.add == nil {
		return nil
	}
	return f.add(groupID, target)
}

func (f *fakeRemote) Promote(_ context.Context, _ string, groupID, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("promote", groupID, target)
	key := groupID + "/" + target
	f.promoHits[key]++
	if f.promote == nil {
		return nil
	}
	return f.promote(groupID, target, f.promoHits[key])
}

func (f *fakeRemote) Demote(_ context.Context, _ string, groupID, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("demote", groupID, target)
	if f.demote == nil {
		return nil
	}
	return f.demote(groupID, target)
}

func (f *fakeRemote) ListAdmins(_ context.Context, _ string, groupID string) ([]group.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list_admins", groupID, "")
	if err := f.adminsErr[groupID]; err != nil {
		return nil, err
	}
	return f.admins[groupID], nil
}

// fakeSleeper records requested waits without blocking.
type fakeSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *fakeSleeper) sleep(_ context.Context, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
}

func (s *fakeSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.waits))
	copy(out, s.waits)
	return out
}

// testPacing uses distinct small units so waits are identifiable.
func testPacing() Pacing {
	return Pacing{
		SettleDelay:         15 * time.Second,
		VisibilityDelay:     10 * time.Second,
		MaxVisibilityChecks: 5,
		PromoteAttempts:     5,
		PromoteBackoffStep:  5 * time.Second,
		InterOpDelay:        time.Second,
		AddPromoteCooldown:  30 * time.Second,
		DemoteTargetDelay:   2 * time.Second,
		DemoteGroupDelay:    3 * time.Second,
		DemoteCooldown:      7 * time.Second,
	}
}
