package renderer

import (
	"github.com/alpha-og/treefrog/internal/config"
)

// State is the externally consumable renderer state.
type State string

const (
	StateRunning      State = "running"
	StateStopped      State = "stopped"
	StateError        State = "error"
	StateNotInstalled State = "not-installed"
	StateBuilding     State = "building"
)

// Status is a point-in-time snapshot of the renderer, created fresh on
// every status request.
type Status struct {
	State   State       `json:"state"`
	Mode    config.Mode `json:"mode"`
	Message string      `json:"message"`
	Port    int         `json:"port"`
	Logs    string      `json:"logs"`
}
