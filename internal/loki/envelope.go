package loki

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"thermoscan/internal/govee"
)

// PushRequest is the body of a Loki push: one or more labelled streams of
// [timestamp, line] pairs.
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// Entry is the log line shipped for a reading. The reading's timestamp
// travels as the line timestamp, not in the line.
type Entry struct {
	ID          string `json:"id"`
	Temperature Float  `json:"temperature"`
	Battery     Float  `json:"battery"`
	Humidity    Float  `json:"humidity"`
	MAC         string `json:"mac"`
}

// Float marshals like a float literal, always with a fractional part
// (10 is written 10.0), which keeps the field typed as a float for
// LogQL's json parser.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	s := strconv.FormatFloat(float64(f), 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return []byte(s), nil
}

func NewEntry(r govee.Reading) Entry {
	return Entry{
		ID:          r.ID,
		Temperature: Float(r.Temperature),
		Battery:     Float(r.Battery),
		Humidity:    Float(r.Humidity),
		MAC:         r.MAC,
	}
}

// NewPushRequest wraps r in a single-stream push labelled key=value.
func NewPushRequest(key, value string, r govee.Reading) (PushRequest, error) {
	line, err := json.Marshal(NewEntry(r))
	if err != nil {
		return PushRequest{}, fmt.Errorf("marshal entry: %w", err)
	}
	return PushRequest{
		Streams: []Stream{{
			Stream: map[string]string{key: value},
			Values: [][2]string{{LineTimestamp(r.Timestamp), string(line)}},
		}},
	}, nil
}

// LineTimestamp renders unix seconds as the nanosecond string Loki expects.
func LineTimestamp(sec int64) string {
	return strconv.FormatInt(sec*1_000_000_000, 10)
}
