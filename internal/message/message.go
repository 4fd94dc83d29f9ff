// Package message defines the typed events and commands exchanged over the
// pub/sub bus, together with their JSON wire codec. Events flow outbound on
// the hardware:out channel; commands flow inbound on hardware:in. Both are
// closed variant sets: every value crossing the bus boundary is one of the
// types below, and decoding anything else is an error handled at the edge.
package message

import (
	"encoding/json"
	"fmt"
)

// Event is an outbound message produced by the parser, a worker, or command
// dispatch. Implementations are immutable values; the eventType method keeps
// the set closed to this package.
type Event interface {
	// Format renders the event for the session log and display.
	Format() string

	eventType() string
}

// Lap is a timing record correlating a racer, a sensor, and an elapsed race
// time in seconds.
type Lap struct {
	RacerID  uint32  `json:"racer_id"`
	SensorID uint32  `json:"sensor_id"`
	RaceTime float64 `json:"race_time"`
}

// Heartbeat is a periodic liveness signal from the hardware or simulator.
type Heartbeat struct{}

// Status carries an operational notice, including recoverable error
// diagnostics such as malformed protocol lines.
type Status struct {
	Message string `json:"message"`
}

// Error carries an unexpected failure description.
type Error struct {
	Message string `json:"message"`
}

// Debug carries low-severity diagnostic text.
type Debug struct {
	Message string `json:"message"`
}

// Raw forwards an unrecognized sensor line verbatim.
type Raw struct {
	Line string `json:"line"`
}

func (Lap) eventType() string       { return "lap" }
func (Heartbeat) eventType() string { return "heartbeat" }
func (Status) eventType() string    { return "status" }
func (Error) eventType() string     { return "error" }
func (Debug) eventType() string     { return "debug" }
func (Raw) eventType() string       { return "raw" }

func (e Lap) Format() string {
	return fmt.Sprintf("[LAP] Racer %d - Sensor %d - Time: %.3fs", e.RacerID, e.SensorID, e.RaceTime)
}
func (Heartbeat) Format() string { return "[HEARTBEAT] ♥" }
func (e Status) Format() string  { return "[STATUS] " + e.Message }
func (e Error) Format() string   { return "[ERROR] " + e.Message }
func (e Debug) Format() string   { return "[DEBUG] " + e.Message }
func (e Raw) Format() string     { return "[RAW] " + e.Line }

// eventEnvelope is the tagged wire shape shared by all event variants. Unset
// optional fields are omitted so that heartbeat serializes as {"type":"heartbeat"}.
type eventEnvelope struct {
	Type     string   `json:"type"`
	RacerID  *uint32  `json:"racer_id,omitempty"`
	SensorID *uint32  `json:"sensor_id,omitempty"`
	RaceTime *float64 `json:"race_time,omitempty"`
	Message  *string  `json:"message,omitempty"`
	Line     *string  `json:"line,omitempty"`
}

// MarshalEvent serializes an event into its tagged JSON wire form.
func MarshalEvent(e Event) ([]byte, error) {
	env := eventEnvelope{Type: e.eventType()}
	switch v := e.(type) {
	case Lap:
		env.RacerID = &v.RacerID
		env.SensorID = &v.SensorID
		env.RaceTime = &v.RaceTime
	case Heartbeat:
	case Status:
		env.Message = &v.Message
	case Error:
		env.Message = &v.Message
	case Debug:
		env.Message = &v.Message
	case Raw:
		env.Line = &v.Line
	default:
		return nil, fmt.Errorf("unknown event type %T", e)
	}
	return json.Marshal(env)
}

// UnmarshalEvent decodes a tagged JSON payload back into its event variant.
func UnmarshalEvent(data []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed event payload: %w", err)
	}
	switch env.Type {
	case "lap":
		return Lap{
			RacerID:  deref(env.RacerID, 0),
			SensorID: deref(env.SensorID, 0),
			RaceTime: deref(env.RaceTime, 0),
		}, nil
	case "heartbeat":
		return Heartbeat{}, nil
	case "status":
		return Status{Message: deref(env.Message, "")}, nil
	case "error":
		return Error{Message: deref(env.Message, "")}, nil
	case "debug":
		return Debug{Message: deref(env.Message, "")}, nil
	case "raw":
		return Raw{Line: deref(env.Line, "")}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
