package relay

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"thermoscan/internal/ble"
)

// Message is one advertisement republished by a remote scanner.
type Message struct {
	ID               string        `json:"id"`
	RSSI             int16         `json:"rssi"`
	Name             string        `json:"name,omitempty"`
	ManufacturerData []Manufacturer `json:"manufacturer_data"`
}

type Manufacturer struct {
	CompanyID uint16 `json:"company_id"`
	Data      string `json:"data"` // hex
}

// ParseMessage decodes a relay payload into an advertisement event. A
// message with no manufacturer data becomes a DeviceDiscovered.
func ParseMessage(payload []byte) (ble.Event, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("id is required")
	}

	if len(m.ManufacturerData) == 0 {
		return ble.DeviceDiscovered{ID: m.ID, RSSI: m.RSSI, LocalName: m.Name}, nil
	}

	md := make([]ble.ManufacturerData, 0, len(m.ManufacturerData))
	for i, e := range m.ManufacturerData {
		data, err := hex.DecodeString(e.Data)
		if err != nil {
			return nil, fmt.Errorf("manufacturer_data[%d]: %w", i, err)
		}
		md = append(md, ble.ManufacturerData{CompanyID: e.CompanyID, Data: data})
	}
	return ble.ManufacturerDataAdvertisement{
		ID:               m.ID,
		RSSI:             m.RSSI,
		LocalName:        m.Name,
		ManufacturerData: md,
	}, nil
}
