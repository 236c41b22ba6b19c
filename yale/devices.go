package yale

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Vendor device types.
const (
	DeviceTypeDoorLock    = "device_type.door_lock"
	DeviceTypeDoorContact = "device_type.door_contact"
)

// Device is one entry of the panel's device status list.
type Device struct {
	Name string
	Type string
	Area string
	// Zone is the device number within its area.
	Zone string
	// Address is the device SID.
	Address string
	// Status is the raw vendor status, e.g. device_status.lock.
	Status string
	// LockStatus is the hex bitfield reported by lock gateways, empty otherwise.
	LockStatus string
	// ConfigData is the encoded lock configuration, empty for other devices.
	ConfigData string
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Device) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name       string     `json:"name"`
		Type       string     `json:"type"`
		Area       flexString `json:"area"`
		Zone       flexString `json:"no"`
		Address    flexString `json:"address"`
		Status     string     `json:"status1"`
		LockStatus string     `json:"minigw_lock_status"`
		ConfigData string     `json:"minigw_configuration_data"`
	}

	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*d = Device{
		Name:       raw.Name,
		Type:       raw.Type,
		Area:       string(raw.Area),
		Zone:       string(raw.Zone),
		Address:    string(raw.Address),
		Status:     raw.Status,
		LockStatus: raw.LockStatus,
		ConfigData: raw.ConfigData,
	}

	return nil
}

// ContactState is the position of a door contact sensor.
type ContactState int

// Door contact positions.
const (
	ContactUnknown ContactState = iota
	ContactClosed
	ContactOpen
)

// String returns a human-readable name of the contact state.
func (s ContactState) String() string {
	switch s {
	case ContactClosed:
		return "closed"
	case ContactOpen:
		return "open"
	default:
		return "unknown"
	}
}

// contactStateOf derives the contact position from the raw device status.
func contactStateOf(d Device) ContactState {
	switch {
	case strings.Contains(d.Status, "device_status.dc_close"):
		return ContactClosed
	case strings.Contains(d.Status, "device_status.dc_open"):
		return ContactOpen
	default:
		return ContactUnknown
	}
}

// fetchDevices reads the current device status list.
func (c *Client) fetchDevices(ctx context.Context) ([]Device, error) {
	resp, err := c.call(ctx, http.MethodGet, endpointDeviceStatus, nil)
	if err != nil {
		return nil, err
	}

	var devices []Device
	if err := resp.decodeData(&devices); err != nil {
		return nil, err
	}

	return devices, nil
}
