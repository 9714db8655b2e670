package health

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonitorInitialStatus(t *testing.T) {
	status := NewMonitor().GetStatus(0)

	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "not started", status.LastSaveStatus)
	assert.Empty(t, status.LastSaveTime)
	assert.Equal(t, "not started", status.LastExportStatus)
}

func TestMonitorSaveFailureDegrades(t *testing.T) {
	m := NewMonitor()

	m.RecordSave(errors.New("disk full"))
	status := m.GetStatus(2)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "error: disk full", status.LastSaveStatus)
	assert.NotEmpty(t, status.LastSaveTime)
	assert.Equal(t, 2, status.ActiveSessions)

	m.RecordSave(nil)
	assert.Equal(t, "healthy", m.GetStatus(2).Status)
}

func TestMonitorExport(t *testing.T) {
	m := NewMonitor()
	m.RecordExport(nil)

	status := m.GetStatus(1)
	assert.Equal(t, "success", status.LastExportStatus)
	assert.Equal(t, "healthy", status.Status)
}
