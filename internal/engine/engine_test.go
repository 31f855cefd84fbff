package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clouddesk/tenantctl/internal/driver"
	"github.com/clouddesk/tenantctl/internal/driver/memory"
	"github.com/clouddesk/tenantctl/internal/intent"
	"github.com/clouddesk/tenantctl/internal/model"
)

// spyDriver scripts driver behavior and records every call.
type spyDriver struct {
	mu sync.Mutex

	existsResults []bool
	existsErr     error
	createHandle  driver.Handle
	createErr     error
	removeErr     error
	memberErr     error

	existsCalls int
	createCalls int
	removeCalls int
	members     []string
}

func (s *spyDriver) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existsCalls++
	if s.existsErr != nil {
		return false, s.existsErr
	}
	if len(s.existsResults) == 0 {
		return false, nil
	}
	result := s.existsResults[0]
	if len(s.existsResults) > 1 {
		s.existsResults = s.existsResults[1:]
	}
	return result, nil
}

func (s *spyDriver) Create(ctx context.Context, in intent.Intent) (driver.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return driver.Handle{}, s.createErr
	}
	return s.createHandle, nil
}

func (s *spyDriver) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeCalls++
	return s.removeErr
}

func (s *spyDriver) AddMember(ctx context.Context, handle driver.Handle, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberErr != nil {
		return s.memberErr
	}
	s.members = append(s.members, member)
	return nil
}

func newEngine(t *testing.T, set *driver.Set, opts Options) *Engine {
	t.Helper()
	opts.Drivers = set
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func singleDriverSet(t *testing.T, resourceType intent.ResourceType, d driver.Driver) *driver.Set {
	t.Helper()
	set := driver.NewSet()
	require.NoError(t, set.Register(resourceType, d))
	return set
}

func TestPresentAndExistingNeverCreates(t *testing.T) {
	t.Parallel()

	spy := &spyDriver{existsResults: []bool{true}}
	e := newEngine(t, singleDriverSet(t, intent.TypeSecurity, spy), Options{})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{Type: intent.TypeSecurity, Key: "Admins", DesiredState: intent.StatePresent},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusAlreadyExists, res.Outcomes[0].Status)
	require.Equal(t, 0, spy.createCalls)
}

func TestAbsentAndMissingNeverRemoves(t *testing.T) {
	t.Parallel()

	spy := &spyDriver{existsResults: []bool{false}}
	e := newEngine(t, singleDriverSet(t, intent.TypeSecurity, spy), Options{})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{Type: intent.TypeSecurity, Key: "Admins", DesiredState: intent.StateAbsent},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusNotFound, res.Outcomes[0].Status)
	require.Equal(t, 0, spy.removeCalls)
}

func TestCreateWithVerification(t *testing.T) {
	t.Parallel()

	// Absent before create, visible on the second verification attempt.
	spy := &spyDriver{
		existsResults: []bool{false, false, true},
		createHandle:  driver.Handle{ID: "g-1", Key: "Sales"},
	}
	e := newEngine(t, singleDriverSet(t, intent.TypeGroup365, spy),
		Options{Poll: PollPolicy{MaxAttempts: 5, Delay: time.Millisecond}})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{Type: intent.TypeGroup365, Key: "Sales", DesiredState: intent.StatePresent},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusCreated, res.Outcomes[0].Status)
	require.Equal(t, 1, spy.createCalls)
	require.Equal(t, 3, spy.existsCalls)
}

func TestVerificationExhaustionIsFailed(t *testing.T) {
	t.Parallel()

	spy := &spyDriver{existsResults: []bool{false}}
	e := newEngine(t, singleDriverSet(t, intent.TypeTeam, spy),
		Options{Poll: PollPolicy{MaxAttempts: 3, Delay: time.Millisecond}})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{Type: intent.TypeTeam, Key: "Support", DesiredState: intent.StatePresent},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusFailed, res.Outcomes[0].Status)
	require.Equal(t, "not verified after 3 attempts", res.Outcomes[0].Detail)
}

func TestDuplicateCreateReclassifiedAsAlreadyExists(t *testing.T) {
	t.Parallel()

	spy := &spyDriver{
		existsResults: []bool{false},
		createErr:     driver.NewError(driver.KindDuplicate, "create", "Sales", errors.New("409")),
	}
	e := newEngine(t, singleDriverSet(t, intent.TypeGroup365, spy), Options{})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{Type: intent.TypeGroup365, Key: "Sales", DesiredState: intent.StatePresent},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusAlreadyExists, res.Outcomes[0].Status)
}

func TestSecurityGroupSkipsVerification(t *testing.T) {
	t.Parallel()

	spy := &spyDriver{existsResults: []bool{false}}
	e := newEngine(t, singleDriverSet(t, intent.TypeSecurity, spy),
		Options{Poll: PollPolicy{MaxAttempts: 5, Delay: time.Millisecond}})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{Type: intent.TypeSecurity, Key: "Admins", DesiredState: intent.StatePresent},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusCreated, res.Outcomes[0].Status)
	require.Equal(t, 1, spy.existsCalls)
}

func TestFailureIsolation(t *testing.T) {
	t.Parallel()

	good := &spyDriver{existsResults: []bool{false}}
	bad := &spyDriver{existsErr: errors.New("connection reset")}

	set := driver.NewSet()
	require.NoError(t, set.Register(intent.TypeSecurity, good))
	require.NoError(t, set.Register(intent.TypeUser, bad))
	e := newEngine(t, set, Options{})

	intents := []intent.Intent{
		{Type: intent.TypeSecurity, Key: "a", DesiredState: intent.StatePresent},
		{Type: intent.TypeUser, Key: "b", DesiredState: intent.StatePresent},
		{Type: intent.TypeSecurity, Key: "c", DesiredState: intent.StatePresent},
	}

	res, err := e.Reconcile(context.Background(), intents)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 3)
	require.Equal(t, model.StatusCreated, res.Outcomes[0].Status)
	require.Equal(t, model.StatusFailed, res.Outcomes[1].Status)
	require.Equal(t, model.StatusCreated, res.Outcomes[2].Status)
	require.Equal(t, 1, res.FailedCount())
}

func TestMissingDriverIsFailedOutcome(t *testing.T) {
	t.Parallel()

	e := newEngine(t, driver.NewSet(), Options{})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{Type: intent.TypeDistribution, Key: "announce@contoso.com", DesiredState: intent.StatePresent},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusFailed, res.Outcomes[0].Status)
	require.Contains(t, res.Outcomes[0].Detail, "no driver registered")
}

func TestRemoveExisting(t *testing.T) {
	t.Parallel()

	spy := &spyDriver{existsResults: []bool{true}}
	e := newEngine(t, singleDriverSet(t, intent.TypeSite, spy), Options{})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{Type: intent.TypeSite, Key: "Projects", DesiredState: intent.StateAbsent},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusRemoved, res.Outcomes[0].Status)
	require.Equal(t, 1, spy.removeCalls)
}

func TestRemoveRacedByExternalActor(t *testing.T) {
	t.Parallel()

	spy := &spyDriver{
		existsResults: []bool{true},
		removeErr:     driver.NewError(driver.KindNotFound, "remove", "Projects", errors.New("404")),
	}
	e := newEngine(t, singleDriverSet(t, intent.TypeSite, spy), Options{})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{Type: intent.TypeSite, Key: "Projects", DesiredState: intent.StateAbsent},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusNotFound, res.Outcomes[0].Status)
}

func TestDryRunNeverMutates(t *testing.T) {
	t.Parallel()

	spy := &spyDriver{existsResults: []bool{false, true}}
	e := newEngine(t, singleDriverSet(t, intent.TypeGroup365, spy), Options{DryRun: true})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{Type: intent.TypeGroup365, Key: "Sales", DesiredState: intent.StatePresent},
		{Type: intent.TypeGroup365, Key: "Legacy", DesiredState: intent.StateAbsent},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusWouldCreate, res.Outcomes[0].Status)
	require.Equal(t, model.StatusWouldRemove, res.Outcomes[1].Status)
	require.Equal(t, 0, spy.createCalls)
	require.Equal(t, 0, spy.removeCalls)
}

func TestMembersAddedAfterCreate(t *testing.T) {
	t.Parallel()

	spy := &spyDriver{existsResults: []bool{false}, createHandle: driver.Handle{ID: "u-1", Key: "Admins"}}
	e := newEngine(t, singleDriverSet(t, intent.TypeSecurity, spy), Options{})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{
			Type:         intent.TypeSecurity,
			Key:          "Admins",
			DesiredState: intent.StatePresent,
			Members:      []string{"jdoe@contoso.com", "asmith@contoso.com"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusCreated, res.Outcomes[0].Status)
	require.Equal(t, []string{"jdoe@contoso.com", "asmith@contoso.com"}, spy.members)
}

func TestMemberFailureDowngradesToFailed(t *testing.T) {
	t.Parallel()

	spy := &spyDriver{
		existsResults: []bool{false},
		memberErr:     driver.NewError(driver.KindNotFound, "add_member", "ghost", errors.New("404")),
	}
	e := newEngine(t, singleDriverSet(t, intent.TypeSecurity, spy), Options{})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{Type: intent.TypeSecurity, Key: "Admins", DesiredState: intent.StatePresent, Members: []string{"ghost"}},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusFailed, res.Outcomes[0].Status)
	require.Contains(t, res.Outcomes[0].Detail, "ghost")
}

func TestIdempotentSecondRun(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	set := driver.NewSet()
	require.NoError(t, store.RegisterAll(set))
	e := newEngine(t, set, Options{Poll: PollPolicy{MaxAttempts: 3, Delay: time.Millisecond}})

	intents := []intent.Intent{
		{Type: intent.TypeGroup365, Key: "Sales", DesiredState: intent.StatePresent},
	}

	first, err := e.Reconcile(context.Background(), intents)
	require.NoError(t, err)
	require.Equal(t, model.StatusCreated, first.Outcomes[0].Status)

	second, err := e.Reconcile(context.Background(), intents)
	require.NoError(t, err)
	require.Equal(t, model.StatusAlreadyExists, second.Outcomes[0].Status)
}

func TestDuplicateKeysInOneBatch(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	set := driver.NewSet()
	require.NoError(t, store.RegisterAll(set))
	e := newEngine(t, set, Options{Poll: PollPolicy{MaxAttempts: 3, Delay: time.Millisecond}})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{Type: intent.TypeGroup365, Key: "Sales", DesiredState: intent.StatePresent},
		{Type: intent.TypeGroup365, Key: "Sales", DesiredState: intent.StatePresent},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusCreated, res.Outcomes[0].Status)
	require.Equal(t, model.StatusAlreadyExists, res.Outcomes[1].Status)
}

func TestEventuallyConsistentBackendConverges(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.SetVisibilityLag(2)
	set := driver.NewSet()
	require.NoError(t, store.RegisterAll(set))
	e := newEngine(t, set, Options{Poll: PollPolicy{MaxAttempts: 5, Delay: time.Millisecond}})

	res, err := e.Reconcile(context.Background(), []intent.Intent{
		{Type: intent.TypeTeam, Key: "Support", DesiredState: intent.StatePresent},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusCreated, res.Outcomes[0].Status)
}

func TestCancellationMarksRemainingIntents(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	spy := &spyDriver{}
	e := newEngine(t, singleDriverSet(t, intent.TypeUser, spy), Options{})

	res, err := e.Reconcile(ctx, []intent.Intent{
		{Type: intent.TypeUser, Key: "a@contoso.com", DesiredState: intent.StatePresent},
		{Type: intent.TypeUser, Key: "b@contoso.com", DesiredState: intent.StatePresent},
	})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)
	for _, o := range res.Outcomes {
		require.Equal(t, model.StatusCancelled, o.Status)
	}
	require.Equal(t, 0, spy.existsCalls)
}

func TestParallelRunPreservesOrderAndIsolation(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	set := driver.NewSet()
	require.NoError(t, store.RegisterAll(set))
	e := newEngine(t, set, Options{Parallel: 4, Poll: PollPolicy{MaxAttempts: 2, Delay: time.Millisecond}})

	var intents []intent.Intent
	for i := 0; i < 16; i++ {
		intents = append(intents, intent.Intent{
			Type:         intent.TypeUser,
			Key:          fmt.Sprintf("user%02d@contoso.com", i),
			DesiredState: intent.StatePresent,
		})
	}
	// One poisoned intent in the middle: no driver is registered for its type.
	intents[7].Type = "mailbox"

	res, err := e.Reconcile(context.Background(), intents)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 16)
	for i, o := range res.Outcomes {
		require.Equal(t, intents[i].Key, o.Key)
		if i == 7 {
			require.Equal(t, model.StatusFailed, o.Status)
			continue
		}
		require.Equal(t, model.StatusCreated, o.Status)
	}
}

func TestNewRejectsNilDrivers(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	require.Error(t, err)
}

func TestReconcileRejectsNilContext(t *testing.T) {
	t.Parallel()

	e := newEngine(t, driver.NewSet(), Options{})
	_, err := e.Reconcile(nil, nil) //nolint:staticcheck
	require.Error(t, err)
}
