package infra

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessManager_CurrentProcess(t *testing.T) {
	pm := NewProcessManager()

	pid := pm.GetCurrentPID()
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, pm.IsRunning(pid))

	name, err := pm.Name(pid)
	require.NoError(t, err)
	assert.NotEmpty(t, name)

	pids, err := pm.FindByName(name)
	require.NoError(t, err)
	assert.Contains(t, pids, pid)
}

func TestProcessManager_MissingProcess(t *testing.T) {
	pm := NewProcessManager()
	assert.False(t, pm.IsRunning(999999))

	pids, err := pm.FindByName("definitely-not-a-real-process-name")
	require.NoError(t, err)
	assert.Empty(t, pids)
}
