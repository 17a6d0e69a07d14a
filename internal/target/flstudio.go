package target

// FLStudioProfile implements Profile for 64-bit FL Studio.
type FLStudioProfile struct{}

// NewFLStudioProfile creates the FL Studio profile.
func NewFLStudioProfile() *FLStudioProfile {
	return &FLStudioProfile{}
}

func (p *FLStudioProfile) ID() string {
	return "flstudio"
}

func (p *FLStudioProfile) Name() string {
	return "FL Studio"
}

// ProcessNames returns the FL Studio executables.
// "FL64 (Scaled)" is the DPI-scaled launcher variant.
func (p *FLStudioProfile) ProcessNames() []string {
	return []string{
		"FL64",
		"FL64 (Scaled)",
	}
}

func (p *FLStudioProfile) MainWindowClass() string {
	return "TFruityLoopsMainForm"
}

func (p *FLStudioProfile) TitleMarker() string {
	return " - FL Studio"
}

func (p *FLStudioProfile) UntitledNames() []string {
	return []string{"Untitled"}
}

// PathRegionSize is the private read/write allocation FL uses for its
// string table; the project path almost always lives in one of these.
func (p *FLStudioProfile) PathRegionSize() uintptr {
	return 0x140000
}

func (p *FLStudioProfile) InitialScanAnchor() uintptr {
	return 0x8000000
}

func (p *FLStudioProfile) PluginName() string {
	return "flstudio"
}

var _ Profile = (*FLStudioProfile)(nil)
