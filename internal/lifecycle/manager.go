package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"dockhand/internal/engine"
	"dockhand/internal/project"
)

// StatusCache persists the last classified phase per project so listings
// survive restarts without touching the engine.
type StatusCache interface {
	PutPhase(name string, phase project.Phase, at time.Time) error
}

// Publisher receives phase transitions for fan-out to watchers.
type Publisher interface {
	Publish(change StatusChange)
}

// Manager drives projects between declared and observed state. One manager
// serves all projects; per-project operations are serialized.
type Manager struct {
	engine    engine.Engine
	cache     StatusCache
	publisher Publisher
	clock     engine.Clock
	log       *slog.Logger

	mu       sync.Mutex
	inflight map[string]bool
	phases   map[string]project.Phase
}

// Option configures a Manager.
type Option func(*Manager)

// WithStatusCache persists phase transitions through the given cache.
func WithStatusCache(cache StatusCache) Option {
	return func(m *Manager) { m.cache = cache }
}

// WithPublisher publishes phase transitions to the given broker.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithClock overrides the wall clock, for tests.
func WithClock(clock engine.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// NewManager builds a Manager on top of the given engine.
func NewManager(eng engine.Engine, log *slog.Logger, opts ...Option) *Manager {
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{
		engine:   eng,
		clock:    engine.RealClock{},
		log:      log,
		inflight: make(map[string]bool),
		phases:   make(map[string]project.Phase),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Phase returns the last classified phase for the named project.
// Projects never observed report project.PhaseUnknown.
func (m *Manager) Phase(name string) project.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phases[name]
}

// Running reports whether the named project is in a phase that should block
// destructive operations such as deletion.
func (m *Manager) Running(name string) bool {
	switch m.Phase(name) {
	case project.PhaseStarting, project.PhaseRunning, project.PhaseStopping, project.PhaseDegraded:
		return true
	default:
		return false
	}
}

// Up plans and applies a start of the whole project. It is shorthand for
// BuildPlan + Apply.
func (m *Manager) Up(ctx context.Context, p project.Project, events chan<- ProgressEvent) error {
	plan, err := BuildPlan(p, ActionUp)
	if err != nil {
		return err
	}
	return m.Apply(ctx, p, plan, events)
}

// Down plans and applies a stop of the whole project.
func (m *Manager) Down(ctx context.Context, p project.Project, events chan<- ProgressEvent) error {
	plan, err := BuildPlan(p, ActionDown)
	if err != nil {
		return err
	}
	return m.Apply(ctx, p, plan, events)
}

// Apply executes a plan tier by tier, fail-fast: the first failing service
// aborts the remainder, already-completed services are left as they are, and
// the project phase moves to Error. Progress is reported on events when the
// channel keeps up; a slow consumer never blocks the operation.
//
// Concurrent applies against the same project are rejected with
// project.ErrOperationInProgress. Distinct projects proceed independently.
func (m *Manager) Apply(ctx context.Context, p project.Project, plan Plan, events chan<- ProgressEvent) error {
	if plan.Project != p.Name {
		return fmt.Errorf("apply: plan is for project %q, got %q", plan.Project, p.Name)
	}
	if !m.acquire(p.Name) {
		return fmt.Errorf("%w: project %s", project.ErrOperationInProgress, p.Name)
	}
	defer m.release(p.Name)

	switch plan.Action {
	case ActionDown:
		m.setPhase(p.Name, project.PhaseStopping)
	default:
		m.setPhase(p.Name, project.PhaseStarting)
	}
	m.emit(events, ProgressEvent{Kind: EventPlanStarted, Project: p.Name, At: m.clock.Now()})

	var err error
	switch plan.Action {
	case ActionDown:
		err = m.applyDown(ctx, p, plan, events)
	default:
		err = m.applyUp(ctx, p, plan, events)
	}
	if err != nil {
		m.setPhase(p.Name, project.PhaseError)
		m.emit(events, ProgressEvent{Kind: EventPlanFailed, Project: p.Name, Err: err, At: m.clock.Now()})
		return err
	}

	if plan.Action == ActionDown {
		m.setPhase(p.Name, project.PhaseStopped)
	} else {
		m.setPhase(p.Name, project.PhaseRunning)
	}
	m.emit(events, ProgressEvent{Kind: EventPlanCompleted, Project: p.Name, At: m.clock.Now()})
	return nil
}

func (m *Manager) applyUp(ctx context.Context, p project.Project, plan Plan, events chan<- ProgressEvent) error {
	observed, err := m.engine.List(ctx, p.Name)
	if err != nil {
		return &OperationError{Project: p.Name, Op: "list", Cause: err}
	}
	states := make(map[string]engine.ContainerState, len(observed))
	for _, st := range observed {
		states[st.Service] = st
	}

	var succeeded []string
	for _, tier := range plan.Tiers {
		for _, name := range tier {
			svc, ok := p.Service(name)
			if !ok {
				return &OperationError{Project: p.Name, Service: name, Op: "start", Succeeded: succeeded,
					Cause: fmt.Errorf("service not declared")}
			}
			if err := m.upService(ctx, p, svc, states); err != nil {
				m.log.Warn("service start failed", "project", p.Name, "service", name, "error", err)
				failure := &OperationError{Project: p.Name, Service: name, Op: "start",
					Succeeded: append([]string(nil), succeeded...), Cause: err}
				m.emit(events, ProgressEvent{Kind: EventServiceFailed, Project: p.Name, Service: name, Err: err, At: m.clock.Now()})
				return failure
			}
			succeeded = append(succeeded, name)
			m.log.Info("service started", "project", p.Name, "service", name)
			m.emit(events, ProgressEvent{Kind: EventServiceStarted, Project: p.Name, Service: name, At: m.clock.Now()})
		}
	}
	return nil
}

// upService brings a single service to running: a container already running
// is left alone, anything else is recreated from the current declaration.
func (m *Manager) upService(ctx context.Context, p project.Project, svc project.Service, states map[string]engine.ContainerState) error {
	name := engine.ContainerName(p.Name, svc.Name)
	if st, ok := states[svc.Name]; ok {
		if st.Status == engine.StatusRunning {
			return nil
		}
		// Remove the stale container so the new one picks up the current
		// declaration rather than whatever it was created with.
		if err := m.engine.ContainerRemove(ctx, name, true); err != nil {
			return err
		}
	}
	if err := m.engine.ContainerCreate(ctx, createConfig(p, svc)); err != nil {
		return err
	}
	return m.engine.ContainerStart(ctx, name)
}

func (m *Manager) applyDown(ctx context.Context, p project.Project, plan Plan, events chan<- ProgressEvent) error {
	observed, err := m.engine.List(ctx, p.Name)
	if err != nil {
		return &OperationError{Project: p.Name, Op: "list", Cause: err}
	}
	states := make(map[string]engine.ContainerState, len(observed))
	for _, st := range observed {
		states[st.Service] = st
	}

	var succeeded []string
	for _, tier := range plan.Tiers {
		for _, name := range tier {
			if _, ok := states[name]; !ok {
				// Nothing to tear down; count it so the failure report
				// reflects actual progress.
				succeeded = append(succeeded, name)
				continue
			}
			if err := m.downService(ctx, engine.ContainerName(p.Name, name)); err != nil {
				m.log.Warn("service stop failed", "project", p.Name, "service", name, "error", err)
				failure := &OperationError{Project: p.Name, Service: name, Op: "stop",
					Succeeded: append([]string(nil), succeeded...), Cause: err}
				m.emit(events, ProgressEvent{Kind: EventServiceFailed, Project: p.Name, Service: name, Err: err, At: m.clock.Now()})
				return failure
			}
			succeeded = append(succeeded, name)
			m.log.Info("service stopped", "project", p.Name, "service", name)
			m.emit(events, ProgressEvent{Kind: EventServiceStopped, Project: p.Name, Service: name, At: m.clock.Now()})
		}
	}
	return nil
}

func (m *Manager) downService(ctx context.Context, name string) error {
	if err := m.engine.ContainerStop(ctx, name); err != nil {
		return err
	}
	return m.engine.ContainerRemove(ctx, name, false)
}

// Refresh queries the engine for the project's containers, classifies the
// phase, and records the observation.
func (m *Manager) Refresh(ctx context.Context, p project.Project) (Snapshot, error) {
	observed, err := m.engine.List(ctx, p.Name)
	if err != nil {
		return Snapshot{}, err
	}

	states := make(map[string]engine.ContainerState, len(observed))
	for _, st := range observed {
		states[st.Service] = st
	}

	snap := Snapshot{Project: p.Name, ObservedAt: m.clock.Now()}
	for _, name := range p.ServiceNames() {
		st, ok := states[name]
		if !ok {
			st = engine.ContainerState{Service: name, Status: engine.StatusStopped}
		}
		snap.Services = append(snap.Services, ServiceStatus{Service: name, State: st, Present: ok})
	}
	snap.Phase = classify(p.ServiceNames(), states)

	// An in-flight apply owns the phase until it settles; observing mid-plan
	// would flap between transitional and classified states.
	if !m.isInflight(p.Name) {
		m.setPhase(p.Name, snap.Phase)
	}
	return snap, nil
}

// classify folds per-service observations into one project phase: Running
// when every declared service runs, Degraded when only some do, Stopped when
// none do but containers exist, Unknown when nothing was ever created.
func classify(declared []string, states map[string]engine.ContainerState) project.Phase {
	if len(declared) == 0 || len(states) == 0 {
		return project.PhaseUnknown
	}
	running := 0
	for _, name := range declared {
		if st, ok := states[name]; ok && st.Status == engine.StatusRunning {
			running++
		}
	}
	switch {
	case running == len(declared):
		return project.PhaseRunning
	case running > 0:
		return project.PhaseDegraded
	default:
		return project.PhaseStopped
	}
}

// Drift compares declared services against observed containers without
// changing anything.
func (m *Manager) Drift(ctx context.Context, p project.Project) ([]Drift, error) {
	observed, err := m.engine.List(ctx, p.Name)
	if err != nil {
		return nil, err
	}
	states := make(map[string]engine.ContainerState, len(observed))
	for _, st := range observed {
		states[st.Service] = st
	}

	var drifts []Drift
	for _, name := range p.ServiceNames() {
		st, ok := states[name]
		switch {
		case !ok:
			drifts = append(drifts, Drift{Service: name, Kind: DriftMissing, Detail: "no container"})
		case st.Status != engine.StatusRunning:
			drifts = append(drifts, Drift{Service: name, Kind: DriftStopped,
				Detail: fmt.Sprintf("container %s is %s", st.ID, st.Status)})
		}
		delete(states, name)
	}

	extra := make([]string, 0, len(states))
	for name := range states {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		drifts = append(drifts, Drift{Service: name, Kind: DriftUnexpected,
			Detail: fmt.Sprintf("container %s is not declared", states[name].ID)})
	}
	return drifts, nil
}

// Reset acknowledges a failed operation, moving the project from Error back
// to Stopped. Any other phase is left untouched.
func (m *Manager) Reset(name string) bool {
	m.mu.Lock()
	if m.phases[name] != project.PhaseError {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()
	m.setPhase(name, project.PhaseStopped)
	return true
}

func (m *Manager) acquire(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight[name] {
		return false
	}
	m.inflight[name] = true
	return true
}

func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, name)
}

func (m *Manager) isInflight(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight[name]
}

func (m *Manager) setPhase(name string, phase project.Phase) {
	m.mu.Lock()
	prev, known := m.phases[name]
	m.phases[name] = phase
	m.mu.Unlock()
	if known && prev == phase {
		return
	}

	at := m.clock.Now()
	if m.cache != nil {
		if err := m.cache.PutPhase(name, phase, at); err != nil {
			m.log.Warn("status cache write failed", "project", name, "error", err)
		}
	}
	if m.publisher != nil {
		m.publisher.Publish(StatusChange{Project: name, Phase: phase, At: at})
	}
}

// emit delivers an event without ever blocking the apply loop.
func (m *Manager) emit(events chan<- ProgressEvent, ev ProgressEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}

// createConfig translates one declared service into an engine create request.
func createConfig(p project.Project, svc project.Service) engine.CreateConfig {
	policy := svc.RestartPolicy
	if policy == "" {
		policy = project.DefaultRestartPolicy
	}
	env := make([]string, 0, len(svc.Environment))
	for k, v := range svc.Environment {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)

	hosts := make([]string, 0, len(p.ExtraHosts))
	for _, h := range p.ExtraHosts {
		hosts = append(hosts, h.Host+":"+h.IP)
	}

	return engine.CreateConfig{
		Name:          engine.ContainerName(p.Name, svc.Name),
		Project:       p.Name,
		Service:       svc.Name,
		Image:         svc.Image,
		Env:           env,
		Ports:         append([]project.PortMapping(nil), svc.Ports...),
		Mounts:        append([]project.VolumeMount(nil), svc.Volumes...),
		ExtraHosts:    hosts,
		RestartPolicy: policy,
	}
}
