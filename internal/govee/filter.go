package govee

import (
	"thermoscan/internal/ble"
)

const (
	// VendorCompanyID is the manufacturer data key (0xEC88) every Govee
	// thermometer broadcast carries next to its reading.
	VendorCompanyID uint16 = 60552

	// VendorMagic is what bytes 5..11 of the VendorCompanyID element
	// hex-encode to. The bytes sit where a reading keeps its MAC, which is
	// why the same extraction is used, but the value is a constant
	// ("ELLI_R") identifying the vendor, not an address.
	VendorMagic = "454c4c495f52"
)

// Outcome says why Inspect accepted or rejected an event.
type Outcome int

const (
	Accepted Outcome = iota
	WrongVariant
	NoManufacturerData
	VendorKeyMissing
	MagicMismatch
	PayloadTooShort
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case WrongVariant:
		return "wrong_variant"
	case NoManufacturerData:
		return "no_manufacturer_data"
	case VendorKeyMissing:
		return "vendor_key_missing"
	case MagicMismatch:
		return "magic_mismatch"
	case PayloadTooShort:
		return "payload_too_short"
	default:
		return "unknown"
	}
}

// Outcomes lists every Outcome, in declaration order.
var Outcomes = []Outcome{Accepted, WrongVariant, NoManufacturerData, VendorKeyMissing, MagicMismatch, PayloadTooShort}

// Candidate is an accepted broadcast: the device that sent it and the
// payload to decode.
type Candidate struct {
	ID      string
	Payload []byte
}

// Filter picks Govee sensor broadcasts out of the advertisement stream.
type Filter struct {
	CompanyID uint16
	Magic     string
}

// NewFilter returns a Filter for Govee thermometer broadcasts.
func NewFilter() Filter {
	return Filter{CompanyID: VendorCompanyID, Magic: VendorMagic}
}

// Inspect returns the candidate carried by ev, or the reason there is none.
// The payload is the first manufacturer data element; the vendor element
// only vouches for it.
func (f Filter) Inspect(ev ble.Event) (Candidate, Outcome) {
	adv, ok := ev.(ble.ManufacturerDataAdvertisement)
	if !ok {
		return Candidate{}, WrongVariant
	}

	if len(adv.ManufacturerData) == 0 {
		return Candidate{}, NoManufacturerData
	}
	payload := adv.ManufacturerData[0].Data

	vendor, ok := adv.Lookup(f.CompanyID)
	if !ok {
		return Candidate{}, VendorKeyMissing
	}
	if len(vendor) < PayloadMinLen || macOf(vendor) != f.Magic {
		return Candidate{}, MagicMismatch
	}

	if len(payload) < PayloadMinLen {
		return Candidate{}, PayloadTooShort
	}
	return Candidate{ID: adv.ID, Payload: payload}, Accepted
}
