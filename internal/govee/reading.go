package govee

import "time"

// Reading is one decoded sensor broadcast. Timestamp is the wall-clock
// second it was decoded at, not something the sensor sent.
type Reading struct {
	ID          string
	Temperature float64
	Humidity    float64
	Battery     float64
	MAC         string
	Timestamp   int64
}

// Clock returns the current time in unix seconds.
type Clock func() int64

// MonotonicClock anchors on the wall time at creation and advances with the
// monotonic clock, so a wall-clock step back never makes readings go back
// in time.
func MonotonicClock() Clock {
	start := time.Now()
	return func() int64 {
		return start.Add(time.Since(start)).Unix()
	}
}

// Builder turns accepted payloads into timestamped Readings.
type Builder struct {
	now Clock
}

// NewBuilder returns a Builder stamping readings with now, or with
// MonotonicClock when now is nil.
func NewBuilder(now Clock) Builder {
	if now == nil {
		now = MonotonicClock()
	}
	return Builder{now: now}
}

// Build decodes data and stamps the result with the builder's clock.
func (b Builder) Build(id string, data []byte) (Reading, error) {
	f, err := Decode(data)
	if err != nil {
		return Reading{}, err
	}
	return Reading{
		ID:          id,
		Temperature: f.Temperature,
		Humidity:    f.Humidity,
		Battery:     f.Battery,
		MAC:         f.MAC,
		Timestamp:   b.now(),
	}, nil
}
