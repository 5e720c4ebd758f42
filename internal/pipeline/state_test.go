package pipeline

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateDefaults(t *testing.T) {
	st := NewState()
	snap := st.Snapshot()

	assert.True(t, snap.DetectionEnabled)
	assert.Equal(t, 0.5, snap.SensitivityThreshold)
	assert.Equal(t, uint64(0), snap.CalibrationEpoch)
}

func TestSetSensitivityBounds(t *testing.T) {
	st := NewState()

	require.NoError(t, st.SetSensitivity(0))
	require.NoError(t, st.SetSensitivity(1))
	require.NoError(t, st.SetSensitivity(0.75))
	assert.Equal(t, 0.75, st.Snapshot().SensitivityThreshold)

	err := st.SetSensitivity(1.01)
	require.ErrorIs(t, err, ErrInvalidParameter)
	err = st.SetSensitivity(-0.1)
	require.ErrorIs(t, err, ErrInvalidParameter)
	err = st.SetSensitivity(math.NaN())
	require.ErrorIs(t, err, ErrInvalidParameter)

	// A rejected write leaves the state untouched.
	assert.Equal(t, 0.75, st.Snapshot().SensitivityThreshold)
}

func TestResetCalibrationMonotonic(t *testing.T) {
	st := NewState()

	assert.Equal(t, uint64(1), st.ResetCalibration())
	assert.Equal(t, uint64(2), st.ResetCalibration())
	assert.Equal(t, uint64(2), st.Snapshot().CalibrationEpoch)
}

func TestToggleDetectionIdempotent(t *testing.T) {
	st := NewState()

	st.SetDetectionEnabled(false)
	st.SetDetectionEnabled(false)
	assert.False(t, st.Snapshot().DetectionEnabled)

	st.SetDetectionEnabled(true)
	assert.True(t, st.Snapshot().DetectionEnabled)
}

// Snapshots taken under concurrent writes must never mix fields from two
// different updates.
func TestSnapshotNeverPartial(t *testing.T) {
	st := NewState()

	// Establish the invariant before any concurrent writes: the constructor
	// default (true, 0.5) is not a pair the writer below ever produces.
	st.SetDetectionEnabled(true)
	require.NoError(t, st.SetSensitivity(1))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			// Writers keep the pair (enabled, threshold) consistent:
			// enabled <=> threshold == 1.
			if i%2 == 0 {
				st.mu.Lock()
				st.s.DetectionEnabled = true
				st.s.SensitivityThreshold = 1
				st.mu.Unlock()
			} else {
				st.mu.Lock()
				st.s.DetectionEnabled = false
				st.s.SensitivityThreshold = 0
				st.mu.Unlock()
			}
		}
	}()

	for i := 0; i < 10000; i++ {
		snap := st.Snapshot()
		if snap.DetectionEnabled {
			require.Equal(t, 1.0, snap.SensitivityThreshold, "observed a torn state")
		} else {
			require.Equal(t, 0.0, snap.SensitivityThreshold, "observed a torn state")
		}
	}
	close(stop)
	wg.Wait()
}
