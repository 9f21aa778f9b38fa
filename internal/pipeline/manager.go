package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/teams"
)

// ErrRunNotFound is returned when no run matches the id.
var ErrRunNotFound = errors.New("run not found")

type pending struct {
	startedAt time.Time
	input     teams.Input
	cancel    context.CancelFunc
}

// Retention limits for terminal runs held in memory. The Postgres
// archive keeps full history; the in-process copy only serves recent
// lookups and late event-replay subscribers.
const (
	maxDoneRuns    = 256
	eventRetention = 5 * time.Minute
)

// Manager starts runs asynchronously and serves their state. In-flight
// runs expose only a thin running snapshot; the full document appears
// once the run is terminal, after which it never changes. Terminal
// documents are evicted oldest-first past maxDoneRuns, and a run's
// event history is released once its retention window passes.
type Manager struct {
	runner    *Runner
	logger    *zap.Logger
	maxDone   int
	retention time.Duration

	mu       sync.RWMutex
	inflight map[uuid.UUID]*pending
	done     map[uuid.UUID]*Run
	order    []uuid.UUID
}

// NewManager wires a run manager.
func NewManager(runner *Runner, logger *zap.Logger) *Manager {
	return &Manager{
		runner:    runner,
		logger:    logger,
		maxDone:   maxDoneRuns,
		retention: eventRetention,
		inflight:  make(map[uuid.UUID]*pending),
		done:      make(map[uuid.UUID]*Run),
	}
}

// Start launches a run in the background and returns its id
// immediately. The error covers only pre-flight credential resolution,
// surfaced synchronously so the caller learns about a missing key now,
// not from a failed run later.
func (m *Manager) Start(input teams.Input) (uuid.UUID, error) {
	if _, err := m.runner.resolver.Resolve(m.runner.profileName); err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.inflight[id] = &pending{startedAt: time.Now().UTC(), input: input, cancel: cancel}
	m.mu.Unlock()

	go func() {
		defer cancel()
		run, err := m.runner.executeAs(ctx, id, input)
		if err != nil {
			m.logger.Error("Run aborted",
				zap.String("run_id", id.String()),
				zap.Error(err),
			)
			run = newRun(input, "")
			run.ID = id
			run.finish(StateFailed)
			run.Report = "# Analysis Failed\n\n" + err.Error() + "\n"
		}

		m.mu.Lock()
		delete(m.inflight, id)
		m.done[id] = run
		m.order = append(m.order, id)
		var evicted []uuid.UUID
		for len(m.order) > m.maxDone {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.done, oldest)
			evicted = append(evicted, oldest)
		}
		m.mu.Unlock()

		if bus := m.runner.bus; bus != nil {
			for _, old := range evicted {
				bus.Forget(old.String())
			}
			time.AfterFunc(m.retention, func() { bus.Forget(id.String()) })
		}
	}()
	return id, nil
}

// Get returns the run document. A running run yields a snapshot with
// only id, state, input, and start time populated.
func (m *Manager) Get(id uuid.UUID) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if run, ok := m.done[id]; ok {
		return run, nil
	}
	if p, ok := m.inflight[id]; ok {
		return &Run{
			ID:        id,
			State:     StateRunning,
			Input:     p.input,
			StartedAt: p.startedAt,
		}, nil
	}
	return nil, ErrRunNotFound
}

// Cancel requests cancellation of an in-flight run. Remaining agent
// invocations are skipped and the run terminates without synthesis.
func (m *Manager) Cancel(id uuid.UUID) error {
	m.mu.RLock()
	p, ok := m.inflight[id]
	m.mu.RUnlock()
	if !ok {
		return ErrRunNotFound
	}
	p.cancel()
	return nil
}

// Snapshot lists every known run id with its state, newest unspecified
// order.
func (m *Manager) Snapshot() map[uuid.UUID]State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[uuid.UUID]State, len(m.inflight)+len(m.done))
	for id := range m.inflight {
		out[id] = StateRunning
	}
	for id, run := range m.done {
		out[id] = run.State
	}
	return out
}
