package incident

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo"
)

// ErrUnavailable means the boundary could not give an authoritative answer.
// Callers fall back to degraded mode.
var ErrUnavailable = errors.New("consistency boundary unavailable")

// Commit is one probe outcome to fold into a monitor's state.
type Commit struct {
	Monitor       *domain.Monitor
	Result        domain.Result
	IsMaintenance bool
	Now           time.Time
}

// Outcome is the authoritative decision for a Commit. IncidentID is set
// whenever an incident is open after the commit or was just resolved.
type Outcome struct {
	IncidentID string
	Opened     bool
	Resolved   bool
	State      domain.MonitorState
}

// Boundary serializes state changes per monitor.
type Boundary interface {
	Commit(ctx context.Context, c Commit) (Outcome, error)
}

// Sequencer runs one owner goroutine per team:monitor key. The owner exists
// while a request for it is queued or being applied.
type Sequencer struct {
	store repo.TransitionStore
	log   *zap.Logger

	mu     sync.Mutex
	owners map[string]*owner
}

type owner struct {
	reqs    chan request
	pending int
}

type request struct {
	ctx   context.Context
	c     Commit
	reply chan reply
}

type reply struct {
	out Outcome
	err error
}

func NewSequencer(store repo.TransitionStore, log *zap.Logger) *Sequencer {
	return &Sequencer{store: store, log: log, owners: make(map[string]*owner)}
}

func (s *Sequencer) Commit(ctx context.Context, c Commit) (Outcome, error) {
	if c.Monitor == nil {
		return Outcome{}, errors.New("commit without monitor")
	}
	if c.Now.IsZero() {
		c.Now = time.Now().UTC()
	}
	key := c.Monitor.Key().String()
	o := s.acquire(key)

	// Once the owner has the request it releases it after apply, so a
	// caller giving up early never retires an owner that is still working.
	req := request{ctx: ctx, c: c, reply: make(chan reply, 1)}
	select {
	case o.reqs <- req:
	case <-ctx.Done():
		s.release(key, o)
		return Outcome{}, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.out, r.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Owners is the number of live per-key owners.
func (s *Sequencer) Owners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.owners)
}

func (s *Sequencer) acquire(key string) *owner {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.owners[key]
	if !ok {
		o = &owner{reqs: make(chan request)}
		s.owners[key] = o
		go s.loop(key, o)
	}
	o.pending++
	return o
}

func (s *Sequencer) release(key string, o *owner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.pending--
	if o.pending == 0 {
		delete(s.owners, key)
		close(o.reqs)
	}
}

func (s *Sequencer) loop(key string, o *owner) {
	for req := range o.reqs {
		out, err := s.apply(req.ctx, key, req.c)
		req.reply <- reply{out: out, err: err}
		s.release(key, o)
	}
}

// apply re-reads state and the open incident inside one transaction and
// re-derives the transition from them.
func (s *Sequencer) apply(ctx context.Context, key string, c Commit) (Outcome, error) {
	m := c.Monitor
	var out Outcome
	err := s.store.WithinTx(ctx, m.Key(), func(tx repo.StateTx) error {
		prev, err := tx.GetState(ctx)
		if err != nil {
			return fmt.Errorf("get state: %w", err)
		}
		st := domain.MonitorState{MonitorID: m.ID, Team: m.Team}
		if prev != nil {
			st = *prev
		}
		open, err := tx.OpenIncident(ctx)
		if err != nil {
			return fmt.Errorf("open incident: %w", err)
		}
		if open == nil && st.IncidentOpen {
			// a degraded run opened and alerted without writing the row
			if open, err = s.reconcile(ctx, tx, key, m, &st, c.Now); err != nil {
				return err
			}
		}

		tr := ComputeTransition(c.Result.Status, st.ConsecutiveFailures, open != nil, m.FailureThreshold, c.IsMaintenance)
		applyResult(&st, c, tr.NextFailures)

		switch {
		case tr.ShouldOpen:
			inc := domain.NewIncident(m, c.Result.Reason, c.Now)
			if err := tx.CreateIncident(ctx, inc); err != nil {
				return fmt.Errorf("create incident: %w", err)
			}
			out.IncidentID, out.Opened = inc.ID, true
			st.IncidentOpen = true
		case tr.ShouldResolve:
			open.Resolve(c.Now)
			if err := tx.ResolveIncident(ctx, open); err != nil {
				return fmt.Errorf("resolve incident: %w", err)
			}
			out.IncidentID, out.Resolved = open.ID, true
			st.IncidentOpen = false
		default:
			st.IncidentOpen = open != nil
			if open != nil {
				out.IncidentID = open.ID
			}
		}

		if err := tx.SaveState(ctx, &st); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
		out.State = st
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	if out.Opened || out.Resolved {
		s.log.Info("incident_transition",
			zap.String("key", key),
			zap.String("incident_id", out.IncidentID),
			zap.Bool("opened", out.Opened),
			zap.Bool("resolved", out.Resolved),
		)
	}
	return out, nil
}

// reconcile writes the incident a degraded run announced but could not
// store. Its down alert is already out, so it is not reported as opened.
func (s *Sequencer) reconcile(ctx context.Context, tx repo.StateTx, key string, m *domain.Monitor, st *domain.MonitorState, now time.Time) (*domain.Incident, error) {
	started := now
	if !st.LastCheckedAt.IsZero() && st.LastCheckedAt.Before(now) {
		started = st.LastCheckedAt
	}
	inc := domain.NewIncident(m, st.LastError, started)
	if err := tx.CreateIncident(ctx, inc); err != nil {
		return nil, fmt.Errorf("reconcile incident: %w", err)
	}
	s.log.Info("incident_reconciled", zap.String("key", key), zap.String("incident_id", inc.ID))
	return inc, nil
}

// applyResult copies the probe outcome onto st. The incident flag is left to
// the caller.
func applyResult(st *domain.MonitorState, c Commit, failures int) {
	st.LastCheckedAt = c.Now
	st.LastStatus = c.Result.Status
	st.LastLatencyMS = c.Result.LatencyMS
	st.ConsecutiveFailures = failures
	st.UpdatedAt = c.Now
	if c.Result.Status == domain.StatusUp {
		st.LastError = ""
	} else {
		st.LastError = c.Result.Reason
	}
}

// ApplyLocal computes the next state from the last saved row alone. It is
// what a run persists in degraded mode. The incident flag follows the
// transition so a long outage alerts once; the next boundary commit
// reconciles it with the incident table.
func ApplyLocal(prev *domain.MonitorState, c Commit) (domain.MonitorState, Transition) {
	st := domain.MonitorState{MonitorID: c.Monitor.ID, Team: c.Monitor.Team}
	if prev != nil {
		st = *prev
	}
	tr := ComputeTransition(c.Result.Status, st.ConsecutiveFailures, st.IncidentOpen, c.Monitor.FailureThreshold, c.IsMaintenance)
	applyResult(&st, c, tr.NextFailures)
	switch {
	case tr.ShouldOpen:
		st.IncidentOpen = true
	case tr.ShouldResolve:
		st.IncidentOpen = false
	}
	return st, tr
}
