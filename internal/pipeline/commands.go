package pipeline

import (
	"encoding/json"
	"fmt"
	"log"
)

// CommandKind enumerates the client-originated commands. The dispatch
// table below is keyed on these and is the single place a new command
// gets registered.
type CommandKind string

const (
	CmdToggleDetection  CommandKind = "toggle_detection"
	CmdSetSensitivity   CommandKind = "set_sensitivity"
	CmdCaptureSnapshot  CommandKind = "capture_snapshot"
	CmdResetCalibration CommandKind = "reset_calibration"
)

// StatusUpdate is the state broadcast emitted after an applied command.
// Nil fields are omitted from the wire message, matching the partial
// status updates clients expect.
type StatusUpdate struct {
	DetectionEnabled *bool
	Sensitivity      *float64
	CalibrationEpoch *uint64
	Message          string
}

// StatusSink fans a status update out to every subscribed client.
type StatusSink interface {
	BroadcastStatus(StatusUpdate)
}

// SnapshotRequester marks the next published frame for retention.
type SnapshotRequester interface {
	RequestSnapshot()
}

// Commands validates and applies client commands against the shared state,
// then broadcasts the resulting status. All writes are serialized by the
// state's own lock; a rejected command touches nothing and broadcasts
// nothing.
type Commands struct {
	state    *State
	status   StatusSink
	snaps    SnapshotRequester
	handlers map[CommandKind]func(json.RawMessage) error
}

// NewCommands builds the processor and its dispatch table.
func NewCommands(state *State, status StatusSink, snaps SnapshotRequester) *Commands {
	c := &Commands{
		state:  state,
		status: status,
		snaps:  snaps,
	}
	c.handlers = map[CommandKind]func(json.RawMessage) error{
		CmdToggleDetection:  c.handleToggleDetection,
		CmdSetSensitivity:   c.handleSetSensitivity,
		CmdCaptureSnapshot:  c.handleCaptureSnapshot,
		CmdResetCalibration: c.handleResetCalibration,
	}
	return c
}

// Dispatch routes a raw command payload to its handler. Unknown kinds are
// rejected as invalid.
func (c *Commands) Dispatch(kind CommandKind, payload json.RawMessage) error {
	handler, ok := c.handlers[kind]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrInvalidParameter, kind)
	}
	return handler(payload)
}

func (c *Commands) handleToggleDetection(payload json.RawMessage) error {
	var p struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	c.ToggleDetection(p.Enabled)
	return nil
}

func (c *Commands) handleSetSensitivity(payload json.RawMessage) error {
	var p struct {
		Threshold float64 `json:"threshold"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return c.SetSensitivity(p.Threshold)
}

func (c *Commands) handleCaptureSnapshot(json.RawMessage) error {
	c.CaptureSnapshot()
	return nil
}

func (c *Commands) handleResetCalibration(json.RawMessage) error {
	c.ResetCalibration()
	return nil
}

// ToggleDetection sets the detection switch and broadcasts the new state.
// Always succeeds; redundant calls re-broadcast without side effects.
func (c *Commands) ToggleDetection(enabled bool) {
	c.state.SetDetectionEnabled(enabled)
	log.Printf("[Commands] Detection enabled: %v", enabled)
	c.status.BroadcastStatus(StatusUpdate{DetectionEnabled: &enabled})
}

// SetSensitivity updates the threshold, rejecting values outside [0,1]
// without touching the state or broadcasting.
func (c *Commands) SetSensitivity(threshold float64) error {
	if err := c.state.SetSensitivity(threshold); err != nil {
		return err
	}
	log.Printf("[Commands] Sensitivity set to %.2f", threshold)
	c.status.BroadcastStatus(StatusUpdate{Sensitivity: &threshold})
	return nil
}

// CaptureSnapshot requests retention of the next published frame. It does
// not wait for that frame.
func (c *Commands) CaptureSnapshot() {
	if c.snaps != nil {
		c.snaps.RequestSnapshot()
	}
	log.Printf("[Commands] Snapshot requested")
	c.status.BroadcastStatus(StatusUpdate{Message: "snapshot requested"})
}

// ResetCalibration advances the calibration epoch and broadcasts it.
func (c *Commands) ResetCalibration() {
	epoch := c.state.ResetCalibration()
	log.Printf("[Commands] Calibration reset (epoch %d)", epoch)
	c.status.BroadcastStatus(StatusUpdate{CalibrationEpoch: &epoch})
}
