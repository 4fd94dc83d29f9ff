package protocol

import "time"

// WakeSequence is written once after the port opens to rouse the hardware
// before the reset frames are sent.
var WakeSequence = []byte("\r\n")

// WakeSettle is how long the hardware needs after the wake sequence before it
// accepts further frames.
const WakeSettle = 100 * time.Millisecond

// ResetFrames are the vendor initialization frames, transmitted verbatim and
// in order at connection open and again on start_race. Their per-field
// semantics are undocumented; do not reinterpret or reorder them.
var ResetFrames = [][]byte{
	{0x01, 0x3f, 0x2c, 0x32, 0x33, 0x32, 0x2c, 0x30, 0x2c, 0x31, 0x34, 0x2c, 0x30, 0x2c, 0x31, 0x2c, 0x0d, 0x0a},
	{0x01, 0x3f, 0x2c, 0x32, 0x33, 0x32, 0x2c, 0x30, 0x2c, 0x32, 0x34, 0x2c, 0x30, 0x2c, 0x0d, 0x0a},
	{0x01, 0x3f, 0x2c, 0x32, 0x33, 0x32, 0x2c, 0x30, 0x2c, 0x39, 0x2c, 0x30, 0x2c, 0x0d, 0x0a},
	{0x01, 0x3f, 0x2c, 0x32, 0x33, 0x32, 0x2c, 0x30, 0x2c, 0x31, 0x34, 0x2c, 0x31, 0x2c, 0x30, 0x0d, 0x0a},
}
