// Package protocol implements the line framing used by the race-timing
// hardware: CR/LF-terminated sentences whose first byte is SOH (0x01)
// followed by a marker byte selecting the sentence type.
package protocol

import (
	"strconv"
	"strings"

	"github.com/trackside-data/lapbridge/internal/message"
)

const (
	// SOH prefixes every framed sentence from the device.
	SOH = "\x01"

	heartbeatMarker = SOH + "#"
	lapMarker       = SOH + "@"
	newMsgMarker    = SOH + "$"

	// heartbeatSignature is the fixed token the device embeds in its
	// liveness sentences.
	heartbeatSignature = "xC249"
)

// ParseLine converts one sensor sentence into an event. The line must already
// be stripped of its CR/LF terminator. Empty lines produce (nil, false).
// Malformed lap and new-sentence records degrade to Status diagnostics rather
// than errors; anything unrecognized is forwarded verbatim as Raw.
func ParseLine(line string) (message.Event, bool) {
	switch {
	case strings.HasPrefix(line, heartbeatMarker) && strings.Contains(line, heartbeatSignature):
		return message.Heartbeat{}, true

	case strings.HasPrefix(line, lapMarker):
		return parseLapLine(line), true

	case strings.HasPrefix(line, newMsgMarker):
		// Field layout beyond the count is undocumented; forward intact.
		if parts := strings.Split(line, "\t"); len(parts) >= 5 {
			return message.Raw{Line: line}, true
		}
		return message.Status{Message: "Malformed new_msg line: " + line}, true

	case line != "":
		return message.Raw{Line: line}, true

	default:
		return nil, false
	}
}

// parseLapLine decodes a lap sentence: tab-separated, sensor id at field 1,
// racer id at field 3, race time in seconds at field 4.
func parseLapLine(line string) message.Event {
	parts := strings.Split(line, "\t")
	if len(parts) < 6 {
		return message.Status{Message: "Malformed lap line: " + line}
	}

	sensorID, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return message.Status{Message: "Malformed lap line: " + line}
	}
	racerID, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil {
		return message.Status{Message: "Malformed lap line: " + line}
	}
	raceTime, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return message.Status{Message: "Malformed lap line: " + line}
	}

	return message.Lap{
		RacerID:  uint32(racerID),
		SensorID: uint32(sensorID),
		RaceTime: raceTime,
	}
}
