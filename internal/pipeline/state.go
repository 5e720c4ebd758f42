package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidParameter is returned when a command payload violates its
// contract. The state is left untouched and no status broadcast is sent.
var ErrInvalidParameter = errors.New("invalid parameter")

// StateSnapshot is a value copy of the processing state. The capture loop
// takes one per iteration, so a command arriving mid-frame affects the next
// frame, never the current one partially.
type StateSnapshot struct {
	DetectionEnabled     bool
	SensitivityThreshold float64
	CalibrationEpoch     uint64
}

// State is the shared processing configuration. All mutation goes through
// the setters below, which serialize writes under a single mutex; readers
// get whole-struct snapshots and can never observe a partial update.
//
// The state is injected into the capture loop and the command processor at
// construction time. There is no package-level instance.
type State struct {
	mu sync.Mutex
	s  StateSnapshot
}

// NewState returns a State with detection enabled and mid-range sensitivity.
func NewState() *State {
	return &State{
		s: StateSnapshot{
			DetectionEnabled:     true,
			SensitivityThreshold: 0.5,
		},
	}
}

// Snapshot returns a copy of the current state.
func (st *State) Snapshot() StateSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

// SetDetectionEnabled flips the detection switch. Redundant calls are
// harmless; there is no toggling side effect.
func (st *State) SetDetectionEnabled(enabled bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.DetectionEnabled = enabled
}

// SetSensitivity updates the detection sensitivity. Values outside [0,1]
// are rejected, not clamped.
func (st *State) SetSensitivity(threshold float64) error {
	// Written this way so NaN fails the check too.
	if !(threshold >= 0 && threshold <= 1) {
		return fmt.Errorf("%w: sensitivity %v outside [0,1]", ErrInvalidParameter, threshold)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.SensitivityThreshold = threshold
	return nil
}

// ResetCalibration advances the calibration epoch and returns the new value.
// What "calibration" means beyond the counter belongs to the detector.
func (st *State) ResetCalibration() uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.CalibrationEpoch++
	return st.s.CalibrationEpoch
}
