package govee

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermoscan/internal/ble"
)

// sample is a full payload: packed value 0x0A64FF, battery 100, address 64 00 00 00 00 00.
var sample = []byte{0, 10, 100, 255, 100, 100, 0, 0, 0, 0, 0, 0, 0}

// vendorElement hex-encodes to VendorMagic at bytes 5..11.
var vendorElement = []byte{0, 0, 0, 0, 0, 0x45, 0x4c, 0x4c, 0x49, 0x5f, 0x52}

func TestDecode(t *testing.T) {
	f, err := Decode(sample)
	require.NoError(t, err)

	assert.Equal(t, 68.1215, f.Temperature)
	assert.Equal(t, 21.5, f.Humidity)
	assert.Equal(t, 10.0, f.Battery)
	assert.Equal(t, "640000000000", f.MAC)
}

func TestDecode_MACIgnoresSurroundingBytes(t *testing.T) {
	data := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 100, 100, 0, 0, 0, 0, 0xff, 0xff}

	f, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "646400000000", f.MAC)
}

func TestDecode_MACLowercase(t *testing.T) {
	data := []byte{0, 0, 0, 0, 0, 0xA4, 0xC1, 0x38, 0xDE, 0xAD, 0xBE}

	f, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "a4c138deadbe", f.MAC)
	assert.Len(t, f.MAC, 12)
}

func TestDecode_HumidityFollowsTemperature(t *testing.T) {
	tests := []struct {
		name     string
		packed   [3]byte
		wantTemp float64
		wantHum  float64
	}{
		// 0x035B9C = 220060: 22.0C, 6.0%
		{name: "low humidity", packed: [3]byte{0x03, 0x5B, 0x9C}, wantTemp: 22.006, wantHum: 6.0},
		// 0x03A0DB = 237787: 23.7C, 78.7%
		{name: "high humidity", packed: [3]byte{0x03, 0xA0, 0xDB}, wantTemp: 23.7787, wantHum: 78.7},
		{name: "zero", packed: [3]byte{0, 0, 0}, wantTemp: 0, wantHum: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, PayloadMinLen)
			copy(data[1:4], tt.packed[:])

			f, err := Decode(data)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantTemp, f.Temperature, 1e-9)
			assert.InDelta(t, tt.wantHum, f.Humidity, 1e-9)
		})
	}
}

func TestDecode_Battery(t *testing.T) {
	data := make([]byte, PayloadMinLen)
	for _, b := range []byte{0, 1, 57, 100, 255} {
		data[4] = b
		f, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, float64(b)/10.0, f.Battery)
	}
}

func TestDecode_TooShort(t *testing.T) {
	for n := 0; n < PayloadMinLen; n++ {
		_, err := Decode(make([]byte, n))
		assert.ErrorIs(t, err, ErrPayloadTooShort, "len %d", n)
	}
}

func TestDecode_Pure(t *testing.T) {
	a, err := Decode(sample)
	require.NoError(t, err)
	b, err := Decode(sample)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func advert(md ...ble.ManufacturerData) ble.ManufacturerDataAdvertisement {
	return ble.ManufacturerDataAdvertisement{ID: "A4:C1:38:64:64:00", ManufacturerData: md}
}

func TestFilter_Inspect(t *testing.T) {
	shortVendor := []byte{0, 0, 0, 0, 0, 0x45, 0x4c}
	wrongMagic := append([]byte(nil), vendorElement...)
	wrongMagic[10] = 0x53

	tests := []struct {
		name string
		ev   ble.Event
		want Outcome
	}{
		{name: "device discovered", ev: ble.DeviceDiscovered{ID: "x"}, want: WrongVariant},
		{name: "scan started", ev: ble.ScanStarted{Adapter: "hci0"}, want: WrongVariant},
		{name: "scan stopped", ev: ble.ScanStopped{Adapter: "hci0"}, want: WrongVariant},
		{name: "nil event", ev: nil, want: WrongVariant},
		{name: "empty mapping", ev: advert(), want: NoManufacturerData},
		{
			name: "vendor key missing",
			ev:   advert(ble.ManufacturerData{CompanyID: 0x0001, Data: sample}),
			want: VendorKeyMissing,
		},
		{
			name: "magic mismatch",
			ev: advert(
				ble.ManufacturerData{CompanyID: 0x0001, Data: sample},
				ble.ManufacturerData{CompanyID: VendorCompanyID, Data: wrongMagic},
			),
			want: MagicMismatch,
		},
		{
			name: "vendor element too short to hold magic",
			ev: advert(
				ble.ManufacturerData{CompanyID: 0x0001, Data: sample},
				ble.ManufacturerData{CompanyID: VendorCompanyID, Data: shortVendor},
			),
			want: MagicMismatch,
		},
		{
			name: "first payload too short",
			ev: advert(
				ble.ManufacturerData{CompanyID: 0x0001, Data: sample[:10]},
				ble.ManufacturerData{CompanyID: VendorCompanyID, Data: vendorElement},
			),
			want: PayloadTooShort,
		},
		{
			name: "accepted",
			ev: advert(
				ble.ManufacturerData{CompanyID: 0x0001, Data: sample},
				ble.ManufacturerData{CompanyID: VendorCompanyID, Data: vendorElement},
			),
			want: Accepted,
		},
	}

	f := NewFilter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, got := f.Inspect(tt.ev)
			assert.Equal(t, tt.want, got, "outcome %s", got)
			if got != Accepted {
				assert.Equal(t, Candidate{}, c)
			}
		})
	}
}

func TestFilter_FirstElementIsThePayload(t *testing.T) {
	ev := advert(
		ble.ManufacturerData{CompanyID: 0x0001, Data: sample},
		ble.ManufacturerData{CompanyID: VendorCompanyID, Data: vendorElement},
	)

	c, outcome := NewFilter().Inspect(ev)
	require.Equal(t, Accepted, outcome)
	assert.Equal(t, "A4:C1:38:64:64:00", c.ID)
	assert.Equal(t, sample, c.Payload)
}

func TestFilter_VendorElementFirst(t *testing.T) {
	// When the vendor element is also the first one it is both the payload
	// and the proof of origin.
	ev := advert(ble.ManufacturerData{CompanyID: VendorCompanyID, Data: vendorElement})

	c, outcome := NewFilter().Inspect(ev)
	require.Equal(t, Accepted, outcome)
	assert.Equal(t, vendorElement, c.Payload)
}

func TestOutcome_String(t *testing.T) {
	seen := map[string]bool{}
	for _, o := range Outcomes {
		s := o.String()
		assert.NotEqual(t, "unknown", s)
		assert.False(t, seen[s], "duplicate label %s", s)
		seen[s] = true
	}
	assert.Equal(t, "unknown", Outcome(99).String())
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(func() int64 { return 1_700_000_000 })

	r, err := b.Build("1234", sample)
	require.NoError(t, err)
	assert.Equal(t, Reading{
		ID:          "1234",
		Temperature: 68.1215,
		Humidity:    21.5,
		Battery:     10.0,
		MAC:         "640000000000",
		Timestamp:   1_700_000_000,
	}, r)
}

func TestBuilder_BuildTooShort(t *testing.T) {
	_, err := NewBuilder(nil).Build("1234", sample[:4])
	assert.ErrorIs(t, err, ErrPayloadTooShort)
}

func TestBuilder_OnlyTimestampVaries(t *testing.T) {
	b := NewBuilder(nil)

	first, err := b.Build("1234", sample)
	require.NoError(t, err)
	prev := first.Timestamp
	for i := 0; i < 100; i++ {
		r, err := b.Build("1234", sample)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.Timestamp, prev)
		prev = r.Timestamp

		r.Timestamp = first.Timestamp
		assert.Equal(t, first, r)
	}
}

func TestMonotonicClock_TracksWallClock(t *testing.T) {
	// Anchoring must not drift from real time at the second granularity.
	got := MonotonicClock()()
	assert.InDelta(t, float64(time.Now().Unix()), float64(got), 1)
}
