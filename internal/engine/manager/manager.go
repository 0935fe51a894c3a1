package manager

import (
	"log/slog"
	"sync"

	"Go2NetTop/internal/config"
	"Go2NetTop/internal/engine/protocol"
	"Go2NetTop/internal/model"
)

// Manager dissects captured frames on a pool of workers and hands each
// result to every registered sink.
type Manager struct {
	sinks []model.Sink

	packetChannel chan *model.Frame
	numWorkers    int
	workerWg      sync.WaitGroup
	stopOnce      sync.Once
}

// NewManager creates a Manager. Worker and channel sizes below one are
// raised to one.
func NewManager(cfg config.EngineConfig, sinks ...model.Sink) *Manager {
	return &Manager{
		sinks:         sinks,
		packetChannel: make(chan *model.Frame, max(cfg.SizeOfPacketChannel, 1)),
		numWorkers:    max(cfg.NumWorkers, 1),
	}
}

// Start launches the workers.
func (m *Manager) Start() {
	m.workerWg.Add(m.numWorkers)
	for i := 0; i < m.numWorkers; i++ {
		go m.worker()
	}
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	slog.Info("Manager started", "workers", m.numWorkers, "sinks", names)
}

// InputChannel is where capture sources deliver frames. Senders must be
// done before Stop is called.
func (m *Manager) InputChannel() chan<- *model.Frame {
	return m.packetChannel
}

// Stop closes the input and waits for the buffered frames to be processed.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		slog.Debug("Manager stopping")
		close(m.packetChannel)
		m.workerWg.Wait()
		slog.Info("Manager stopped")
	})
}

func (m *Manager) worker() {
	defer m.workerWg.Done()
	for frame := range m.packetChannel {
		last := protocol.Dissect(frame)
		for _, sink := range m.sinks {
			sink.HandlePacket(frame, last)
		}
	}
}
