package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_HasFLStudio(t *testing.T) {
	r := NewRegistry()

	p, err := r.Get("flstudio")
	require.NoError(t, err)
	assert.Equal(t, "FL Studio", p.Name())
	assert.Equal(t, []string{"flstudio"}, r.List())
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistryWithProfiles()

	_, err := r.Get("ableton")
	assert.Error(t, err)
	assert.Empty(t, r.GetAll())
}

func TestFLStudioProfile_Constants(t *testing.T) {
	p := NewFLStudioProfile()

	assert.Equal(t, []string{"FL64", "FL64 (Scaled)"}, p.ProcessNames())
	assert.Equal(t, "TFruityLoopsMainForm", p.MainWindowClass())
	assert.Equal(t, " - FL Studio", p.TitleMarker())
	assert.Equal(t, uintptr(0x140000), p.PathRegionSize())
	assert.Equal(t, uintptr(0x8000000), p.InitialScanAnchor())
}
