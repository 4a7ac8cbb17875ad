package govee

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// Sensor payload format (big-endian, offsets into the manufacturer data):
//
//	[0]     unused
//	[1:4]   packed temperature/humidity, uint24
//	[4]     battery, tenths of a percent
//	[5:11]  device address
const PayloadMinLen = 11

var ErrPayloadTooShort = errors.New("govee: payload too short")

// Fields are the values carried by one payload.
type Fields struct {
	Temperature float64
	Humidity    float64
	Battery     float64
	MAC         string
}

// Decode parses a sensor payload. Payloads shorter than PayloadMinLen
// return ErrPayloadTooShort; anything longer always decodes.
func Decode(data []byte) (Fields, error) {
	if len(data) < PayloadMinLen {
		return Fields{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooShort, len(data))
	}
	raw := packed(data)
	return Fields{
		Temperature: float64(raw) / 10_000.0,
		Humidity:    humidity(raw),
		Battery:     float64(data[4]) / 10.0,
		MAC:         macOf(data),
	}, nil
}

// packed reads the 3-byte value holding temperature in its upper digits
// and humidity in its lowest three.
func packed(data []byte) uint32 {
	return uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
}

// humidity is temperature*10000 mod 1000 / 10, taken on the integer so
// the two fields always come from the same value.
func humidity(raw uint32) float64 {
	return float64(raw%1_000) / 10.0
}

// macOf hex-encodes bytes 5..11. The caller guarantees the length.
func macOf(data []byte) string {
	return hex.EncodeToString(data[5:11])
}
