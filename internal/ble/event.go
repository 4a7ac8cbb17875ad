package ble

import "errors"

// ErrNoAdapter is returned when the Bluetooth adapter cannot be enabled.
// Nothing useful can run without one.
var ErrNoAdapter = errors.New("ble: no usable adapter")

// Event is one item of the advertisement stream. The set of variants is
// closed: only types in this package implement it.
type Event interface {
	event()
}

// ManufacturerData is one manufacturer-specific element of an advertisement.
type ManufacturerData struct {
	CompanyID uint16
	Data      []byte
}

// ManufacturerDataAdvertisement is an advertisement carrying at least one
// manufacturer data element. Elements keep the order the radio reported
// them in.
type ManufacturerDataAdvertisement struct {
	ID               string
	RSSI             int16
	LocalName        string
	ManufacturerData []ManufacturerData
}

// DeviceDiscovered is an advertisement with no manufacturer data.
type DeviceDiscovered struct {
	ID        string
	RSSI      int16
	LocalName string
}

type ScanStarted struct {
	Adapter string
}

type ScanStopped struct {
	Adapter string
	Err     error
}

func (ManufacturerDataAdvertisement) event() {}
func (DeviceDiscovered) event()              {}
func (ScanStarted) event()                   {}
func (ScanStopped) event()                   {}

// Lookup returns the data of the first element with the given company id.
func (a ManufacturerDataAdvertisement) Lookup(companyID uint16) ([]byte, bool) {
	for _, md := range a.ManufacturerData {
		if md.CompanyID == companyID {
			return md.Data, true
		}
	}
	return nil, false
}
