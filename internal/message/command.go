package message

import (
	"encoding/json"
	"fmt"
)

// Command is an inbound instruction received on the command channel. The set
// is closed; unrecognized command strings surface as UnknownCommandError at
// the decode boundary so the subscriber can log and ignore them.
type Command interface {
	commandName() string
}

// StartRace begins a race session. In hardware mode it retransmits the vendor
// reset frames to the timing hardware.
type StartRace struct{}

// StopRace ends the current race session.
type StopRace struct{}

// SimulateLap injects a synthetic lap event. Fields omitted on the wire take
// the documented defaults: racer 1, sensor 1, race time 0.
type SimulateLap struct {
	RacerID  uint32
	SensorID uint32
	RaceTime float64
}

func (StartRace) commandName() string   { return "start_race" }
func (StopRace) commandName() string    { return "stop_race" }
func (SimulateLap) commandName() string { return "simulate_lap" }

// UnknownCommandError reports a well-formed command payload naming a command
// this bridge does not implement.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Name)
}

// commandEnvelope is the inbound wire shape:
// {"type":"command","command":"simulate_lap","racer_id":2,...}.
type commandEnvelope struct {
	Type     string   `json:"type"`
	Command  string   `json:"command"`
	RacerID  *uint32  `json:"racer_id,omitempty"`
	SensorID *uint32  `json:"sensor_id,omitempty"`
	RaceTime *float64 `json:"race_time,omitempty"`
}

// MarshalCommand serializes a command into its tagged JSON wire form.
func MarshalCommand(c Command) ([]byte, error) {
	env := commandEnvelope{Type: "command", Command: c.commandName()}
	if lap, ok := c.(SimulateLap); ok {
		env.RacerID = &lap.RacerID
		env.SensorID = &lap.SensorID
		env.RaceTime = &lap.RaceTime
	}
	return json.Marshal(env)
}

// UnmarshalCommand decodes an inbound payload. Malformed JSON and payloads
// that are not type "command" return an error; a recognized envelope with an
// unknown command string returns *UnknownCommandError.
func UnmarshalCommand(data []byte) (Command, error) {
	var env commandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed command payload: %w", err)
	}
	if env.Type != "command" {
		return nil, fmt.Errorf("unexpected inbound message type %q", env.Type)
	}
	switch env.Command {
	case "start_race":
		return StartRace{}, nil
	case "stop_race":
		return StopRace{}, nil
	case "simulate_lap":
		return SimulateLap{
			RacerID:  deref(env.RacerID, 1),
			SensorID: deref(env.SensorID, 1),
			RaceTime: deref(env.RaceTime, 0),
		}, nil
	default:
		return nil, &UnknownCommandError{Name: env.Command}
	}
}
