// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cnecrea/hidropanel/internal/domain/model"
	"github.com/cnecrea/hidropanel/internal/domain/port/driven"
)

// historyRange is how far back the bill history query reaches.
const historyRange = 2 * 365 * 24 * time.Hour

// RefreshService orchestrates periodic refresh cycles: one login-backed
// session per cycle, parallel per-account fetches, a single shared
// re-authentication on session expiry, and atomic publication of the result.
type RefreshService struct {
	client   driven.UtilityClient
	sessions *SessionManager
	consumer driven.SnapshotConsumer
	interval time.Duration
	now      func() time.Time

	refreshCh chan chan error
}

// NewRefreshService creates a RefreshService with all required dependencies.
func NewRefreshService(
	client driven.UtilityClient,
	sessions *SessionManager,
	consumer driven.SnapshotConsumer,
	interval time.Duration,
) *RefreshService {
	return &RefreshService{
		client:    client,
		sessions:  sessions,
		consumer:  consumer,
		interval:  interval,
		now:       time.Now,
		refreshCh: make(chan chan error),
	}
}

// Start begins the refresh loop. It runs an immediate cycle, then cycles on
// the configured interval. It also listens for manual refresh requests, which
// are serialized with timed cycles so cycles never overlap. Start blocks
// until the context is canceled.
func (s *RefreshService) Start(ctx context.Context) {
	if err := s.runCycle(ctx); err != nil {
		slog.Error("initial refresh failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresh service stopped")
			return
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				slog.Error("refresh cycle failed", "error", err)
			}
		case done := <-s.refreshCh:
			done <- s.runCycle(ctx)
		}
	}
}

// TriggerNow requests a manual refresh cycle, bypassing the interval. It
// blocks until the cycle completes or the context is canceled.
func (s *RefreshService) TriggerNow(ctx context.Context) error {
	done := make(chan error, 1)

	select {
	case s.refreshCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cycleState carries the per-cycle re-authentication guard. The first fetcher
// that sees an expiry performs the re-login; every later expiry in the same
// cycle reuses its outcome, so the authenticator runs at most twice per cycle.
type cycleState struct {
	session model.Session

	once     sync.Once
	fresh    model.Session
	accounts []model.Account
	err      error
}

// reauth returns the cycle's shared re-login result, performing it on first use.
func (c *cycleState) reauth(ctx context.Context, sessions *SessionManager) (model.Session, []model.Account, error) {
	c.once.Do(func() {
		slog.Warn("session expired mid-cycle, re-authenticating")
		c.fresh, c.accounts, c.err = sessions.ForceRelogin(ctx, c.session)
	})
	return c.fresh, c.accounts, c.err
}

// runCycle executes one full refresh cycle.
func (s *RefreshService) runCycle(ctx context.Context) error {
	start := s.now()

	session, accounts, err := s.sessions.Ensure(ctx)
	if err != nil {
		s.consumer.OnCycleFailed(driven.FailureKindOf(err), err)
		return fmt.Errorf("ensure session: %w", err)
	}

	cycle := &cycleState{session: session}
	snapshots := make([]*model.AccountSnapshot, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		snapshots[i] = &model.AccountSnapshot{Account: account}
		snap := snapshots[i]
		g.Go(func() error {
			// Account failures are isolated in the snapshot, never
			// propagated: one broken account must not cancel its siblings.
			s.fetchAccount(gctx, cycle, snap)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		// Shutdown mid-cycle: publish nothing partial.
		s.consumer.OnCycleFailed(model.FailureTransport, ctx.Err())
		return ctx.Err()
	}

	result := &model.RefreshResult{
		CycleID:   uuid.NewString(),
		FetchedAt: start,
		Accounts:  accounts,
		Snapshots: make(map[string]*model.AccountSnapshot, len(accounts)),
	}
	var succeeded int
	for i, account := range accounts {
		result.Snapshots[account.UtilityAccountNumber] = snapshots[i]
		succeeded += snapshots[i].SucceededCount()
	}

	if len(accounts) > 0 && succeeded == 0 {
		err := fmt.Errorf("cycle fetched no resources for any of %d accounts", len(accounts))
		s.consumer.OnCycleFailed(worstFailure(snapshots), err)
		return err
	}

	s.consumer.OnCycleComplete(result)
	slog.Info("refresh cycle complete",
		"cycle_id", result.CycleID,
		"accounts", len(accounts),
		"resources", succeeded,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// fetchAccount fetches every resource of one account sequentially, retrying
// each call at most once after the cycle's shared re-authentication.
func (s *RefreshService) fetchAccount(ctx context.Context, cycle *cycleState, snap *model.AccountSnapshot) {
	account := snap.Account
	session := cycle.session

	from := s.now().Add(-historyRange)
	to := s.now()

	fetches := []struct {
		kind model.ResourceKind
		call func(model.Session) error
	}{
		{model.ResourceBill, func(sess model.Session) error {
			bill, err := s.client.FetchBill(ctx, sess, account)
			if err == nil {
				snap.Bill = bill
			}
			return err
		}},
		{model.ResourceBillHistory, func(sess model.Session) error {
			history, err := s.client.FetchBillHistory(ctx, sess, account, from, to)
			if err == nil {
				snap.BillHistory = history
			}
			return err
		}},
		{model.ResourceMeterDetails, func(sess model.Session) error {
			details, err := s.client.FetchMeterDetails(ctx, sess, account)
			if err == nil {
				snap.MeterDetails = details
			}
			return err
		}},
		{model.ResourceMeterReading, func(sess model.Session) error {
			reading, err := s.client.FetchMeterReading(ctx, sess, account)
			if err == nil {
				snap.MeterReading = reading
			}
			return err
		}},
		{model.ResourceReadingWindow, func(sess model.Session) error {
			window, err := s.client.FetchReadingWindow(ctx, sess, account)
			if err == nil {
				snap.ReadingWindow = window
			}
			return err
		}},
		{model.ResourceUsageHistory, func(sess model.Session) error {
			usage, err := s.client.FetchUsageHistory(ctx, sess, account)
			if err == nil {
				snap.UsageHistory = usage
			}
			return err
		}},
	}

	for _, f := range fetches {
		if ctx.Err() != nil {
			return
		}

		err := f.call(session)
		if errors.Is(err, driven.ErrSessionExpired) {
			fresh, freshAccounts, reauthErr := cycle.reauth(ctx, s.sessions)
			if reauthErr != nil {
				snap.RecordError(f.kind, driven.FailureKindOf(reauthErr), reauthErr)
				// No session to continue with; the account is done.
				return
			}
			if !model.ContainsAccount(freshAccounts, account.UtilityAccountNumber) {
				revoked := &driven.AccessRevokedError{UtilityAccountNumber: account.UtilityAccountNumber}
				snap.RecordError(f.kind, model.FailureAccessRevoked, revoked)
				slog.Warn("account no longer visible after re-login",
					"utility_account_number", account.UtilityAccountNumber,
				)
				return
			}

			session = fresh
			err = f.call(session)
			if errors.Is(err, driven.ErrSessionExpired) {
				// A second rejection right after re-login is a hard failure
				// for this resource; no further re-login this cycle.
				snap.RecordError(f.kind, model.FailureSessionExpired, err)
				slog.Error("resource call expired again after re-login",
					"utility_account_number", account.UtilityAccountNumber,
					"resource", string(f.kind),
				)
				continue
			}
		}

		if err != nil {
			snap.RecordError(f.kind, driven.FailureKindOf(err), err)
			slog.Error("resource fetch failed",
				"utility_account_number", account.UtilityAccountNumber,
				"resource", string(f.kind),
				"error", err,
			)
		}
	}
}

// worstFailure picks a representative failure kind for a fully failed cycle.
func worstFailure(snapshots []*model.AccountSnapshot) model.FailureKind {
	kind := model.FailureTransport
	for _, snap := range snapshots {
		if snap.Failure != model.FailureNone {
			kind = snap.Failure
			break
		}
	}
	return kind
}
