package monitor

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JournalSizer is satisfied by the care journal store.
type JournalSizer interface {
	Size() (int, error)
}

// Monitor periodically probes the directories and journal backing the service.
type Monitor struct {
	dataDir    string
	uploadsDir string
	journal    JournalSizer

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// New builds a monitor. journal may be nil when journaling is disabled.
func New(dataDir, uploadsDir string, journal JournalSizer, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		dataDir:    dataDir,
		uploadsDir: uploadsDir,
		journal:    journal,
		interval:   interval,
		stopCh:     make(chan struct{}),
		logger:     logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsHealthy() bool {
	return m.GetStatus().Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs every probe once and publishes the result.
func (m *Monitor) Refresh() Status {
	journalOK, journalSize := m.checkJournal()
	status := Status{
		DataDir:     m.checkDir("data", m.dataDir),
		Uploads:     m.checkDir("uploads", m.uploadsDir),
		Journal:     journalOK,
		JournalSize: journalSize,
		LastCheck:   time.Now(),
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	return status
}

func (m *Monitor) checkDir(name, path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		m.logger.Warn("storage directory check failed", zap.String("dir", name), zap.String("path", path), zap.Error(err))
		return false
	}
	if !info.IsDir() {
		m.logger.Warn("storage path is not a directory", zap.String("dir", name), zap.String("path", path))
		return false
	}
	return true
}

func (m *Monitor) checkJournal() (bool, int) {
	if m.journal == nil {
		return false, 0
	}
	size, err := m.journal.Size()
	if err != nil {
		m.logger.Warn("journal size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
