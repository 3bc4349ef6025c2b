package autoread

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-notify-sync/internal/domain"
	"github.com/go-notify-sync/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeLocalStore struct {
	mu     sync.Mutex
	marked []string
}

func (s *fakeLocalStore) MarkAsRead(id string, broadcast bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if broadcast {
		panic("auto-read must never broadcast")
	}
	s.marked = append(s.marked, id)
}

func (s *fakeLocalStore) markedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.marked...)
}

type fakeRemote struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (r *fakeRemote) MarkNotificationRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, id)
	if r.fail {
		return errors.New("network down")
	}
	return nil
}

func (r *fakeRemote) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *fakeRemote) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

// --- helpers ---

func authedFn() func() session.AuthState {
	return func() session.AuthState {
		return session.AuthState{
			IsAuthenticated: true,
			User:            session.User{ID: "u1", TenantID: "t1"},
		}
	}
}

func signedOutFn() func() session.AuthState {
	return func() session.AuthState { return session.AuthState{} }
}

func taskNotification(id, entityID string, read bool) domain.Notification {
	entityType := "task"
	return domain.Notification{
		ID:         id,
		TenantID:   "t1",
		UserID:     "u1",
		Module:     domain.ModuleTasks,
		EntityType: &entityType,
		EntityID:   &entityID,
		IsRead:     read,
	}
}

const testDelay = 10 * time.Millisecond

func TestFiresAfterDwellAndMarksMatches(t *testing.T) {
	local := &fakeLocalStore{}
	remote := &fakeRemote{}
	list := []domain.Notification{
		taskNotification("n1", "task1", false),
		taskNotification("n2", "task1", true),  // already read
		taskNotification("n3", "task2", false), // different entity
	}
	e := NewEngine(authedFn(), func() []domain.Notification { return list }, local, remote, Options{Delay: testDelay})
	defer e.Close()

	e.Activate(domain.ModuleTasks, "task", "task1")

	require.Eventually(t, func() bool { return remote.callCount() == 1 },
		time.Second, 2*time.Millisecond)
	assert.Equal(t, []string{"n1"}, local.markedIDs())
}

func TestDeactivateBeforeDwellCancels(t *testing.T) {
	local := &fakeLocalStore{}
	remote := &fakeRemote{}
	list := []domain.Notification{taskNotification("n1", "task1", false)}
	e := NewEngine(authedFn(), func() []domain.Notification { return list }, local, remote, Options{Delay: testDelay})
	defer e.Close()

	e.Activate(domain.ModuleTasks, "task", "task1")
	e.Deactivate()

	time.Sleep(5 * testDelay)
	assert.Zero(t, remote.callCount(), "cancelled dwell must have no side effect")
	assert.Empty(t, local.markedIDs())
}

func TestEntityChangeBeforeDwellCancelsOldTimer(t *testing.T) {
	local := &fakeLocalStore{}
	remote := &fakeRemote{}
	list := []domain.Notification{taskNotification("n1", "task1", false)}
	e := NewEngine(authedFn(), func() []domain.Notification { return list }, local, remote, Options{Delay: testDelay})
	defer e.Close()

	e.Activate(domain.ModuleTasks, "task", "task1")
	e.Activate(domain.ModuleTasks, "task", "task2")

	time.Sleep(5 * testDelay)
	// Only the task2 dwell fired, and nothing references task2.
	assert.Zero(t, remote.callCount(), "stale timer must not mark the old entity's notifications")
}

func TestDedupAcrossActivationCycles(t *testing.T) {
	local := &fakeLocalStore{}
	remote := &fakeRemote{}
	// The ambient list stays stale: the notification still reads as unread on
	// the second activation cycle.
	list := []domain.Notification{taskNotification("n1", "task1", false)}
	e := NewEngine(authedFn(), func() []domain.Notification { return list }, local, remote, Options{Delay: testDelay})
	defer e.Close()

	e.Activate(domain.ModuleTasks, "task", "task1")
	require.Eventually(t, func() bool { return remote.callCount() == 1 },
		time.Second, 2*time.Millisecond)

	e.Activate(domain.ModuleTasks, "task", "task1")
	time.Sleep(5 * testDelay)

	assert.Equal(t, 1, remote.callCount(), "same entity view must submit each notification at most once")
}

func TestRemoteFailureAllowsRetryOnNextActivation(t *testing.T) {
	local := &fakeLocalStore{}
	remote := &fakeRemote{fail: true}
	list := []domain.Notification{taskNotification("n1", "task1", false)}
	e := NewEngine(authedFn(), func() []domain.Notification { return list }, local, remote, Options{Delay: testDelay})
	defer e.Close()

	e.Activate(domain.ModuleTasks, "task", "task1")
	require.Eventually(t, func() bool { return remote.callCount() == 1 },
		time.Second, 2*time.Millisecond)
	// Local optimistic state is never reverted, even on failure.
	assert.Equal(t, []string{"n1"}, local.markedIDs())

	remote.setFail(false)
	e.Activate(domain.ModuleTasks, "task", "task1")
	require.Eventually(t, func() bool { return remote.callCount() == 2 },
		time.Second, 2*time.Millisecond)
}

func TestMaxAttemptsBoundsRetries(t *testing.T) {
	local := &fakeLocalStore{}
	remote := &fakeRemote{fail: true}
	list := []domain.Notification{taskNotification("n1", "task1", false)}
	e := NewEngine(authedFn(), func() []domain.Notification { return list }, local, remote,
		Options{Delay: testDelay, MaxAttempts: 1})
	defer e.Close()

	e.Activate(domain.ModuleTasks, "task", "task1")
	require.Eventually(t, func() bool { return remote.callCount() == 1 },
		time.Second, 2*time.Millisecond)

	e.Activate(domain.ModuleTasks, "task", "task1")
	time.Sleep(5 * testDelay)
	assert.Equal(t, 1, remote.callCount())
}

func TestEntityChangeResetsProcessedSet(t *testing.T) {
	local := &fakeLocalStore{}
	remote := &fakeRemote{}
	list := []domain.Notification{taskNotification("n1", "task1", false)}
	e := NewEngine(authedFn(), func() []domain.Notification { return list }, local, remote, Options{Delay: testDelay})
	defer e.Close()

	e.Activate(domain.ModuleTasks, "task", "task1")
	require.Eventually(t, func() bool { return remote.callCount() == 1 },
		time.Second, 2*time.Millisecond)

	// Viewing another entity and returning starts a fresh viewing session.
	e.Activate(domain.ModuleTasks, "task", "task2")
	e.Activate(domain.ModuleTasks, "task", "task1")
	require.Eventually(t, func() bool { return remote.callCount() == 2 },
		time.Second, 2*time.Millisecond)
}

func TestSignedOutEngineDoesNoWork(t *testing.T) {
	local := &fakeLocalStore{}
	remote := &fakeRemote{}
	list := []domain.Notification{taskNotification("n1", "task1", false)}
	e := NewEngine(signedOutFn(), func() []domain.Notification { return list }, local, remote, Options{Delay: testDelay})

	e.Activate(domain.ModuleTasks, "task", "task1")
	time.Sleep(5 * testDelay)

	assert.Zero(t, remote.callCount())
	assert.Empty(t, local.markedIDs())
	e.Close()
	e.Close() // safe to close twice
}

func TestActivateAfterCloseIsNoOp(t *testing.T) {
	remote := &fakeRemote{}
	e := NewEngine(authedFn(), func() []domain.Notification { return nil }, &fakeLocalStore{}, remote, Options{Delay: testDelay})
	e.Close()

	e.Activate(domain.ModuleTasks, "task", "task1")
	time.Sleep(3 * testDelay)
	assert.Zero(t, remote.callCount())
}
