package autopilot

import (
	"errors"
	"sync"
)

// ErrNoAgents is returned by Manager.Start when no agent could be started.
var ErrNoAgents = errors.New("no autopilot agent could be started")

// Manager runs a set of agents, typically one per asset, side by side.
type Manager struct {
	started sync.Once
	stopped sync.Once

	agents []*Agent

	mu      sync.Mutex
	running []*Agent
}

// NewManager creates a manager for the given agents.
func NewManager(agents ...*Agent) *Manager {
	return &Manager{
		agents: agents,
	}
}

// Start starts every agent. An agent failing to start is logged and does
// not keep the others from running. Start only fails if none of the agents
// could be started.
func (m *Manager) Start() error {
	var err error
	m.started.Do(func() {
		err = m.start()
	})
	return err
}

func (m *Manager) start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.agents {
		if err := a.Start(); err != nil {
			log.Errorf("Agent(%v): unable to start: %v", a.cfg.Name,
				err)
			continue
		}

		m.running = append(m.running, a)
	}

	if len(m.agents) > 0 && len(m.running) == 0 {
		return ErrNoAgents
	}

	log.Infof("Started %d of %d autopilot agents", len(m.running),
		len(m.agents))

	return nil
}

// Stop stops all running agents.
func (m *Manager) Stop() error {
	m.stopped.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		var wg sync.WaitGroup
		for _, a := range m.running {
			wg.Add(1)
			go func(a *Agent) {
				defer wg.Done()
				_ = a.Stop()
			}(a)
		}
		wg.Wait()

		m.running = nil
	})

	return nil
}

// NumRunning returns the number of agents that were started successfully.
func (m *Manager) NumRunning() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.running)
}
