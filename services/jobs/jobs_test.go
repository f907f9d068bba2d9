package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/services/backend"
	"debt_flow_app_go/services/backend/backendtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	opsEmail    = "ops@debtflow.test"
	opsPassword = "s3cret-pass"
)

func newBackend(t *testing.T, now time.Time) *backendtest.Server {
	t.Helper()
	srv := backendtest.NewServer()
	t.Cleanup(srv.Close)

	srv.AddAccount(opsEmail, opsPassword, models.User{ID: "svc", Name: "Scheduler", Role: models.RoleFedex})
	srv.Cases = []models.Case{
		{ID: "CS-1", CaseID: "CS-1", CustomerName: "Acme", InvoiceAmount: 500, Status: models.CaseStatusPending,
			CreatedAt: models.Timestamp{Time: now.Add(-30 * time.Hour)}},
		{ID: "CS-2", CaseID: "CS-2", CustomerName: "Globex", InvoiceAmount: 900, Status: models.CaseStatusPending,
			CreatedAt: models.Timestamp{Time: now.Add(-2 * time.Hour)}},
		{ID: "CS-3", CaseID: "CS-3", CustomerName: "Initech", InvoiceAmount: 300, Status: models.CaseStatusResolved,
			RecoveredAmount: 300, CreatedAt: models.Timestamp{Time: now.Add(-90 * time.Hour)}},
	}
	srv.Agencies = []models.Agency{
		{ID: "a1", Name: "Alpha Recovery", PerformanceScore: 0.72, Capacity: 10, CurrentCapacity: 3},
		{ID: "a2", Name: "Beta Collections", PerformanceScore: 0.91, Capacity: 10, CurrentCapacity: 4},
	}
	srv.Stats = models.DashboardStats{TotalCases: 3, ActiveCases: 2, ResolvedCases: 1, TotalDebt: 1700, RecoveredAmount: 300}
	return srv
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, email *services.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type recordingHub struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (h *recordingHub) Broadcast(msg []byte) {
	h.mu.Lock()
	h.msgs = append(h.msgs, msg)
	h.mu.Unlock()
}

func (h *recordingHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

func TestServiceAccountLogsInOnce(t *testing.T) {
	srv := newBackend(t, time.Now())
	account := NewServiceAccount(srv.Client(), opsEmail, opsPassword)

	for i := 0; i < 3; i++ {
		err := account.Do(context.Background(), func(api *backend.API) error {
			_, err := api.Auth.Me(context.Background())
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, srv.LoginCount())
}

func TestServiceAccountRenewsRejectedToken(t *testing.T) {
	srv := newBackend(t, time.Now())
	account := NewServiceAccount(srv.Client(), opsEmail, opsPassword)

	me := func(api *backend.API) error {
		_, err := api.Auth.Me(context.Background())
		return err
	}
	require.NoError(t, account.Do(context.Background(), me))

	srv.RevokeTokens()
	require.NoError(t, account.Do(context.Background(), me))
	assert.Equal(t, 2, srv.LoginCount())
}

func TestServiceAccountErrors(t *testing.T) {
	srv := newBackend(t, time.Now())

	t.Run("not configured", func(t *testing.T) {
		account := NewServiceAccount(srv.Client(), "", "")
		assert.False(t, account.Configured())
		err := account.Do(context.Background(), func(*backend.API) error { return nil })
		assert.ErrorIs(t, err, ErrNoServiceAccount)
	})

	t.Run("bad password", func(t *testing.T) {
		account := NewServiceAccount(srv.Client(), opsEmail, "wrong")
		called := false
		err := account.Do(context.Background(), func(*backend.API) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, backend.ErrUnauthorized)
		assert.False(t, called)
	})
}

func TestAutoAssignSweepAssignsOverdueCases(t *testing.T) {
	now := time.Now()
	srv := newBackend(t, now)

	cache := services.NewDashboardCache(nil, time.Minute)
	cache.Store(context.Background(), &services.DashboardSnapshot{Seq: cache.Begin(), FetchedAt: now})

	mailer := &mockMailer{}
	sent := make(chan *services.Email, 1)
	mailer.On("Send", mock.Anything, mock.AnythingOfType("*services.Email")).
		Run(func(args mock.Arguments) { sent <- args.Get(1).(*services.Email) }).
		Return(nil)

	sweep := &AutoAssignSweep{
		Account:   NewServiceAccount(srv.Client(), opsEmail, opsPassword),
		Threshold: 24,
		Mailer:    mailer,
		OpsEmail:  "ops@example.com",
		AppURL:    "https://debtflow.example",
		Cache:     cache,
		Log:       zap.NewNop(),
		Now:       func() time.Time { return now },
	}

	outcome, err := sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Selected)
	require.Len(t, outcome.Assigned, 1)
	assert.Equal(t, services.Assignment{CaseID: "CS-1", AgencyID: "a2", AgencyName: "Beta Collections"}, outcome.Assigned[0])

	cs, ok := srv.CaseByID("CS-1")
	require.True(t, ok)
	assert.Equal(t, models.CaseStatusAssigned, cs.Status)
	assert.Equal(t, "Beta Collections", cs.AgencyName())

	untouched, _ := srv.CaseByID("CS-2")
	assert.Equal(t, models.CaseStatusPending, untouched.Status, "cases under the threshold wait")

	_, cached := cache.Get(context.Background())
	assert.False(t, cached, "assignments invalidate the dashboard snapshot")

	select {
	case email := <-sent:
		assert.Equal(t, []string{"ops@example.com"}, email.To)
		assert.Equal(t, "Auto-assignment: 1 of 1 cases assigned", email.Subject)
	case <-time.After(2 * time.Second):
		t.Fatal("summary email was not sent")
	}
}

func TestAutoAssignSweepNothingReady(t *testing.T) {
	now := time.Now()
	srv := newBackend(t, now)
	srv.Cases = srv.Cases[1:]

	mailer := &mockMailer{}
	sweep := &AutoAssignSweep{
		Account:   NewServiceAccount(srv.Client(), opsEmail, opsPassword),
		Threshold: 24,
		Mailer:    mailer,
		OpsEmail:  "ops@example.com",
		Log:       zap.NewNop(),
		Now:       func() time.Time { return now },
	}

	outcome, err := sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, outcome.Selected)
	assert.False(t, srv.Seen("PUT /cases/CS-2/assign"))
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestAutoAssignSweepKeepsGoingAfterFailure(t *testing.T) {
	now := time.Now()
	srv := newBackend(t, now)
	srv.Cases = append(srv.Cases, models.Case{
		ID: "CS-4", CaseID: "CS-4", CustomerName: "Umbrella", InvoiceAmount: 100,
		Status: models.CaseStatusPending, CreatedAt: models.Timestamp{Time: now.Add(-50 * time.Hour)},
	})
	srv.FailAssign["CS-4"] = true

	sweep := &AutoAssignSweep{
		Account:   NewServiceAccount(srv.Client(), opsEmail, opsPassword),
		Threshold: 24,
		Log:       zap.NewNop(),
		Now:       func() time.Time { return now },
	}

	outcome, err := sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Selected)
	assert.Len(t, outcome.Assigned, 1)
	require.Len(t, outcome.Failed, 1)
	assert.Equal(t, "CS-4", outcome.Failed[0].CaseID)
	assert.ErrorIs(t, outcome.Err(), backend.ErrUnavailable)
}

func TestDashboardRefresherStoresAndBroadcasts(t *testing.T) {
	srv := newBackend(t, time.Now())
	cache := services.NewDashboardCache(nil, time.Minute)
	hub := &recordingHub{}

	r := &DashboardRefresher{
		Account: NewServiceAccount(srv.Client(), opsEmail, opsPassword),
		Cache:   cache,
		Hub:     hub,
		Log:     zap.NewNop(),
	}
	require.NoError(t, r.Refresh(context.Background()))

	snap, ok := cache.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, 3, snap.Stats.TotalCases)
	assert.Len(t, snap.Agencies, 2)
	assert.Len(t, snap.PendingCases, 2)
	assert.Equal(t, 1, hub.count())
	assert.Equal(t, DashboardRefreshedEvent, hub.msgs[0])
}

func TestDashboardRefresherDropsStaleSnapshot(t *testing.T) {
	srv := newBackend(t, time.Now())
	cache := services.NewDashboardCache(nil, time.Minute)
	hub := &recordingHub{}

	r := &DashboardRefresher{
		Account: NewServiceAccount(srv.Client(), opsEmail, opsPassword),
		Cache:   cache,
		Hub:     hub,
		Log:     zap.NewNop(),
	}

	// a fetch that began before the refresh must not overwrite it
	older := cache.Begin()
	require.NoError(t, r.Refresh(context.Background()))
	assert.False(t, cache.Store(context.Background(), &services.DashboardSnapshot{Seq: older, FetchedAt: time.Now()}))

	snap, ok := cache.Get(context.Background())
	require.True(t, ok)
	assert.NotNil(t, snap.Stats)
	assert.Equal(t, 1, hub.count())
}

func TestDashboardRefresherRunStopsOnCancel(t *testing.T) {
	srv := newBackend(t, time.Now())
	hub := &recordingHub{}
	r := &DashboardRefresher{
		Account:  NewServiceAccount(srv.Client(), opsEmail, opsPassword),
		Cache:    services.NewDashboardCache(nil, time.Minute),
		Hub:      hub,
		Interval: 20 * time.Millisecond,
		Log:      zap.NewNop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return hub.count() >= 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop after cancel")
	}

	stopped := hub.count()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, stopped, hub.count(), "no refresh after teardown")
}

type fakeCleaner struct {
	calls int
}

func (f *fakeCleaner) Cleanup(ctx context.Context) (int64, error) {
	f.calls++
	return 0, nil
}

func TestNewScheduler(t *testing.T) {
	srv := newBackend(t, time.Now())

	t.Run("registers configured jobs", func(t *testing.T) {
		s, err := NewScheduler(SchedulerConfig{
			AutoAssignSpec: "*/15 * * * *",
			AutoAssign:     &AutoAssignSweep{Account: NewServiceAccount(srv.Client(), opsEmail, opsPassword)},
			Sessions:       &fakeCleaner{},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, s.Entries())
	})

	t.Run("skips auto-assign without credentials", func(t *testing.T) {
		s, err := NewScheduler(SchedulerConfig{
			AutoAssignSpec: "*/15 * * * *",
			AutoAssign:     &AutoAssignSweep{Account: NewServiceAccount(srv.Client(), "", "")},
			Sessions:       &fakeCleaner{},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, s.Entries())
	})

	t.Run("rejects a bad spec", func(t *testing.T) {
		_, err := NewScheduler(SchedulerConfig{
			AutoAssignSpec: "every tuesday",
			AutoAssign:     &AutoAssignSweep{Account: NewServiceAccount(srv.Client(), opsEmail, opsPassword)},
		})
		assert.Error(t, err)
	})

	t.Run("start and stop", func(t *testing.T) {
		s, err := NewScheduler(SchedulerConfig{Sessions: &fakeCleaner{}})
		require.NoError(t, err)
		s.Start()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})
}
