// Package health tracks service health for the /health endpoint.
//
// The monitor records the outcome of the last verdict save and the last
// export. A failed save marks the service "degraded" until the next
// successful one, since unsaved verdicts are at risk.
package health

import (
	"sync"
	"time"
)

const timeFormat = "2006-01-02 15:04:05"

// Status is returned by the /health endpoint.
type Status struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	ActiveSessions   int    `json:"active_sessions"`
	LastSaveTime     string `json:"last_save_time"`
	LastSaveStatus   string `json:"last_save_status"`
	LastExportTime   string `json:"last_export_time"`
	LastExportStatus string `json:"last_export_status"`
}

type event struct {
	at     time.Time
	status string
}

func (e event) time() string {
	if e.at.IsZero() {
		return ""
	}
	return e.at.Format(timeFormat)
}

// Monitor tracks application health.
//
// Thread-safety:
//   - All fields are protected by RWMutex
//   - Safe for concurrent updates from request handlers
type Monitor struct {
	mu         sync.RWMutex
	startTime  time.Time
	lastSave   event
	lastExport event
	saveFailed bool
}

// NewMonitor creates a monitor started now.
func NewMonitor() *Monitor {
	return &Monitor{
		startTime:  time.Now(),
		lastSave:   event{status: "not started"},
		lastExport: event{status: "not started"},
	}
}

func outcome(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "success"
}

// RecordSave stores the outcome of a verdict save.
func (m *Monitor) RecordSave(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSave = event{at: time.Now(), status: outcome(err)}
	m.saveFailed = err != nil
}

// RecordExport stores the outcome of an export.
func (m *Monitor) RecordExport(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastExport = event{at: time.Now(), status: outcome(err)}
}

// GetStatus returns the current health status.
func (m *Monitor) GetStatus(activeSessions int) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	overall := "healthy"
	if m.saveFailed {
		overall = "degraded"
	}

	return Status{
		Status:           overall,
		Uptime:           time.Since(m.startTime).Round(time.Second).String(),
		ActiveSessions:   activeSessions,
		LastSaveTime:     m.lastSave.time(),
		LastSaveStatus:   m.lastSave.status,
		LastExportTime:   m.lastExport.time(),
		LastExportStatus: m.lastExport.status,
	}
}
