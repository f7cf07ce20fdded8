package application_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnecrea/hidropanel/internal/application"
	"github.com/cnecrea/hidropanel/internal/domain/model"
	"github.com/cnecrea/hidropanel/internal/domain/port/driven"
)

// --- Mock implementations ---

// mockUtilityClient implements driven.UtilityClient with overridable behavior
// per call. Each login issues a distinct session token ("t1", "t2", ...), so
// tests can key expiry behavior off the token in use.
type mockUtilityClient struct {
	mu         sync.Mutex
	loginCalls int

	accounts             []model.Account
	accountsAfterRelogin []model.Account

	loginFn   func(call int) (*driven.LoginResult, error)
	billFn    func(session model.Session, account model.Account) (*model.Bill, error)
	historyFn func(session model.Session, account model.Account) (*model.BillHistory, error)
}

func newMockClient() *mockUtilityClient {
	return &mockUtilityClient{
		accounts: []model.Account{
			{AccountNumber: "A1", UtilityAccountNumber: "U1", Address: "Str. Morii 1"},
		},
	}
}

func (m *mockUtilityClient) LoginCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loginCalls
}

func (m *mockUtilityClient) Login(_ context.Context, _ model.Seed) (*driven.LoginResult, error) {
	m.mu.Lock()
	m.loginCalls++
	call := m.loginCalls
	fn := m.loginFn
	m.mu.Unlock()

	if fn != nil {
		return fn(call)
	}

	accounts := m.accounts
	if call > 1 && m.accountsAfterRelogin != nil {
		accounts = m.accountsAfterRelogin
	}
	return &driven.LoginResult{
		Session:  model.Session{UserID: "42", Token: fmt.Sprintf("t%d", call)},
		Accounts: accounts,
	}, nil
}

func (m *mockUtilityClient) FetchAccounts(_ context.Context, _ model.Session) ([]model.Account, error) {
	return m.accounts, nil
}

func (m *mockUtilityClient) FetchBill(_ context.Context, session model.Session, account model.Account) (*model.Bill, error) {
	if m.billFn != nil {
		return m.billFn(session, account)
	}
	return &model.Bill{Amount: 100}, nil
}

func (m *mockUtilityClient) FetchBillHistory(_ context.Context, session model.Session, account model.Account, _, _ time.Time) (*model.BillHistory, error) {
	if m.historyFn != nil {
		return m.historyFn(session, account)
	}
	return &model.BillHistory{}, nil
}

func (m *mockUtilityClient) FetchMeterDetails(_ context.Context, _ model.Session, _ model.Account) (*model.MeterDetails, error) {
	return &model.MeterDetails{}, nil
}

func (m *mockUtilityClient) FetchMeterReading(_ context.Context, _ model.Session, _ model.Account) (*model.MeterReading, error) {
	return &model.MeterReading{MeterNumber: "M-100", Value: 1234}, nil
}

func (m *mockUtilityClient) FetchReadingWindow(_ context.Context, _ model.Session, _ model.Account) (*model.ReadingWindow, error) {
	return &model.ReadingWindow{}, nil
}

func (m *mockUtilityClient) FetchUsageHistory(_ context.Context, _ model.Session, _ model.Account) (*model.UsageHistory, error) {
	return &model.UsageHistory{}, nil
}

// mockConsumer records delivered cycle outcomes and signals each one.
type mockConsumer struct {
	mu       sync.Mutex
	results  []*model.RefreshResult
	failures []model.FailureKind
	notify   chan struct{}
}

func newMockConsumer() *mockConsumer {
	return &mockConsumer{notify: make(chan struct{}, 16)}
}

func (c *mockConsumer) OnCycleComplete(result *model.RefreshResult) {
	c.mu.Lock()
	c.results = append(c.results, result)
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *mockConsumer) OnCycleFailed(kind model.FailureKind, _ error) {
	c.mu.Lock()
	c.failures = append(c.failures, kind)
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *mockConsumer) lastResult() *model.RefreshResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.results) == 0 {
		return nil
	}
	return c.results[len(c.results)-1]
}

// --- Harness ---

// runOneCycle starts the service, waits for the immediate first cycle to be
// delivered to the consumer, and shuts the service down.
func runOneCycle(t *testing.T, client driven.UtilityClient, consumer *mockConsumer) {
	t.Helper()

	seeds := application.NewSeedProvider(model.Seed{Username: "ion", Password: "secret"})
	sessions := application.NewSessionManager(client, seeds)
	svc := application.NewRefreshService(client, sessions, consumer, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	select {
	case <-consumer.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for refresh cycle")
	}

	cancel()
	<-done
}

func expiredErr() error {
	return fmt.Errorf("get bill: %w", driven.ErrSessionExpired)
}

// --- Tests ---

func TestRefreshCycleHappyPath(t *testing.T) {
	client := newMockClient()
	client.accounts = []model.Account{
		{AccountNumber: "A1", UtilityAccountNumber: "U1"},
		{AccountNumber: "A2", UtilityAccountNumber: "U2"},
	}
	consumer := newMockConsumer()

	runOneCycle(t, client, consumer)

	result := consumer.lastResult()
	require.NotNil(t, result)
	assert.NotEmpty(t, result.CycleID)
	assert.Len(t, result.Accounts, 2)
	require.Len(t, result.Snapshots, 2)
	for _, uan := range []string{"U1", "U2"} {
		snap := result.Snapshot(uan)
		require.NotNil(t, snap, uan)
		assert.Equal(t, 6, snap.SucceededCount(), uan)
		assert.Empty(t, snap.Errors, uan)
	}
	assert.Equal(t, 1, client.LoginCalls())
}

func TestExpiredSessionIsRetriedAfterSingleRelogin(t *testing.T) {
	client := newMockClient()
	client.billFn = func(session model.Session, _ model.Account) (*model.Bill, error) {
		if session.Token == "t1" {
			return nil, expiredErr()
		}
		return &model.Bill{Amount: 100}, nil
	}
	consumer := newMockConsumer()

	runOneCycle(t, client, consumer)

	result := consumer.lastResult()
	require.NotNil(t, result)
	snap := result.Snapshot("U1")
	require.NotNil(t, snap)
	assert.NotNil(t, snap.Bill)
	assert.Empty(t, snap.Errors)
	// Initial login plus exactly one re-login.
	assert.Equal(t, 2, client.LoginCalls())
}

func TestRetryExpiringAgainIsHardFailure(t *testing.T) {
	client := newMockClient()
	client.billFn = func(_ model.Session, _ model.Account) (*model.Bill, error) {
		return nil, expiredErr()
	}
	consumer := newMockConsumer()

	runOneCycle(t, client, consumer)

	result := consumer.lastResult()
	require.NotNil(t, result)
	snap := result.Snapshot("U1")
	require.NotNil(t, snap)
	assert.Nil(t, snap.Bill)
	assert.Contains(t, snap.Errors, model.ResourceBill)
	// The remaining resources still complete under the fresh session.
	assert.Equal(t, 5, snap.SucceededCount())
	// Never a third login within the cycle.
	assert.Equal(t, 2, client.LoginCalls())
}

func TestVanishedAccountIsRevokedWhileSiblingProceeds(t *testing.T) {
	client := newMockClient()
	client.accounts = []model.Account{
		{AccountNumber: "A1", UtilityAccountNumber: "U1"},
		{AccountNumber: "A2", UtilityAccountNumber: "U2"},
	}
	// After the forced re-login, U1 is no longer visible.
	client.accountsAfterRelogin = []model.Account{
		{AccountNumber: "A2", UtilityAccountNumber: "U2"},
	}
	client.billFn = func(session model.Session, _ model.Account) (*model.Bill, error) {
		if session.Token == "t1" {
			return nil, expiredErr()
		}
		return &model.Bill{Amount: 100}, nil
	}
	consumer := newMockConsumer()

	runOneCycle(t, client, consumer)

	result := consumer.lastResult()
	require.NotNil(t, result)

	revoked := result.Snapshot("U1")
	require.NotNil(t, revoked)
	assert.Equal(t, model.FailureAccessRevoked, revoked.Failure)
	assert.Zero(t, revoked.SucceededCount())

	sibling := result.Snapshot("U2")
	require.NotNil(t, sibling)
	assert.Equal(t, 6, sibling.SucceededCount())

	// One shared re-login despite both accounts observing the expiry.
	assert.Equal(t, 2, client.LoginCalls())
}

func TestLoginFailureFailsWholeCycle(t *testing.T) {
	client := newMockClient()
	client.loginFn = func(_ int) (*driven.LoginResult, error) {
		return nil, &driven.AuthenticationError{Reason: "invalid credentials"}
	}
	consumer := newMockConsumer()

	runOneCycle(t, client, consumer)

	assert.Nil(t, consumer.lastResult())
	require.Len(t, consumer.failures, 1)
	assert.Equal(t, model.FailureAuthentication, consumer.failures[0])
}

func TestCycleWithZeroFetchedResourcesFails(t *testing.T) {
	client := newMockClient()
	transportDown := &driven.TransportError{Endpoint: "/Service/Billing/GetBill", Err: fmt.Errorf("connection refused")}
	consumer := newMockConsumer()

	// A zero-success cycle needs every resource call down, so wrap the mock.
	runOneCycle(t, &failingClient{inner: client, err: transportDown}, consumer)

	assert.Nil(t, consumer.lastResult())
	require.Len(t, consumer.failures, 1)
	assert.Equal(t, model.FailureTransport, consumer.failures[0])
}

// failingClient delegates Login but fails every resource fetch.
type failingClient struct {
	inner *mockUtilityClient
	err   error
}

func (f *failingClient) Login(ctx context.Context, seed model.Seed) (*driven.LoginResult, error) {
	return f.inner.Login(ctx, seed)
}

func (f *failingClient) FetchAccounts(ctx context.Context, session model.Session) ([]model.Account, error) {
	return f.inner.FetchAccounts(ctx, session)
}

func (f *failingClient) FetchBill(context.Context, model.Session, model.Account) (*model.Bill, error) {
	return nil, f.err
}

func (f *failingClient) FetchBillHistory(context.Context, model.Session, model.Account, time.Time, time.Time) (*model.BillHistory, error) {
	return nil, f.err
}

func (f *failingClient) FetchMeterDetails(context.Context, model.Session, model.Account) (*model.MeterDetails, error) {
	return nil, f.err
}

func (f *failingClient) FetchMeterReading(context.Context, model.Session, model.Account) (*model.MeterReading, error) {
	return nil, f.err
}

func (f *failingClient) FetchReadingWindow(context.Context, model.Session, model.Account) (*model.ReadingWindow, error) {
	return nil, f.err
}

func (f *failingClient) FetchUsageHistory(context.Context, model.Session, model.Account) (*model.UsageHistory, error) {
	return nil, f.err
}

func TestTriggerNowRunsExtraCycle(t *testing.T) {
	client := newMockClient()
	consumer := newMockConsumer()

	seeds := application.NewSeedProvider(model.Seed{Username: "ion", Password: "secret"})
	sessions := application.NewSessionManager(client, seeds)
	svc := application.NewRefreshService(client, sessions, consumer, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	// Initial cycle.
	select {
	case <-consumer.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for initial cycle")
	}

	require.NoError(t, svc.TriggerNow(ctx))
	<-consumer.notify

	cancel()
	<-done

	consumer.mu.Lock()
	defer consumer.mu.Unlock()
	assert.Len(t, consumer.results, 2)
	// The session survives across cycles: still a single login.
	assert.Equal(t, 1, client.LoginCalls())
}
