package yale

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/oshokin/yale-alarm/internal/logger"
)

// Lock endpoints.
var (
	endpointDeviceControl = endpoint{path: "/api/panel/device_control/"}
	endpointUnlock        = endpoint{path: "/api/minigw/unlock/"}
	endpointLockConfig    = endpoint{path: "/api/minigw/lock/config/"}
	endpointDeviceUpdate  = endpoint{path: "/api/panel/device/"}
)

// Bits of the lock gateway status field.
const (
	lockBitLocked = 0x01
	lockBitClosed = 0x10
)

// Indexes of lock configuration entries, as used by the vendor app.
const (
	configIndexVolume   = "01"
	configIndexAutoLock = "02"

	autoLockOn  = "FF"
	autoLockOff = "00"
)

// LockState is the position of a door lock.
type LockState int

// Lock positions.
const (
	LockStateUnknown LockState = iota
	// LockStateClosed means the door is shut and bolted.
	LockStateClosed
	// LockStateOpen means the door is shut and unbolted.
	LockStateOpen
	// LockStateDoorOpen means the door itself is ajar.
	LockStateDoorOpen
)

// String returns a human-readable name of the lock state.
func (s LockState) String() string {
	switch s {
	case LockStateClosed:
		return "closed"
	case LockStateOpen:
		return "open"
	case LockStateDoorOpen:
		return "door_open"
	default:
		return "unknown"
	}
}

// lockStateOf derives the lock position from a device entry. The gateway
// bitfield wins over the textual status when present.
func lockStateOf(d Device) LockState {
	if d.LockStatus != "" {
		bits, err := strconv.ParseUint(d.LockStatus, 16, 32)
		if err != nil {
			return LockStateUnknown
		}

		closed := bits&lockBitClosed != 0
		locked := bits&lockBitLocked != 0

		switch {
		case closed && locked:
			return LockStateClosed
		case closed:
			return LockStateOpen
		default:
			return LockStateDoorOpen
		}
	}

	switch {
	case strings.Contains(d.Status, "device_status.lock"):
		return LockStateClosed
	case strings.Contains(d.Status, "device_status.unlock"):
		return LockStateOpen
	default:
		return LockStateUnknown
	}
}

// Volume is the loudness of the lock's keypad.
type Volume string

// Lock volumes.
const (
	VolumeHigh Volume = "03"
	VolumeLow  Volume = "02"
	VolumeOff  Volume = "01"
)

// ParseVolume maps high, low or off to a Volume.
func ParseVolume(name string) (Volume, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "high":
		return VolumeHigh, nil
	case "low":
		return VolumeLow, nil
	case "off":
		return VolumeOff, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVolume, name)
	}
}

// String returns a human-readable name of the volume.
func (v Volume) String() string {
	switch v {
	case VolumeHigh:
		return "high"
	case VolumeLow:
		return "low"
	case VolumeOff:
		return "off"
	default:
		return string(v)
	}
}

// lockConfigLength is the length of the encoded configuration.
const lockConfigLength = 32

// LockConfig is the decoded lock configuration string.
type LockConfig struct {
	Volume      string
	AutoLock    string
	Language    string
	ArmHoldTime string
}

// ParseLockConfig decodes the vendor configuration string. Missing
// positions decode as empty fields.
func ParseLockConfig(data string) LockConfig {
	return LockConfig{
		Volume:      substr(data, 0, 2),
		AutoLock:    substr(data, 2, 4),
		Language:    substr(data, 8, 10),
		ArmHoldTime: substr(data, 30, 32),
	}
}

// AutoLockEnabled reports whether the lock re-bolts by itself.
func (c LockConfig) AutoLockEnabled() bool {
	return strings.EqualFold(c.AutoLock, autoLockOn)
}

// Encode returns the 32-character form, zero padded.
func (c LockConfig) Encode() string {
	buf := []byte(strings.Repeat("0", lockConfigLength))
	copy(buf[0:2], c.Volume)
	copy(buf[2:4], c.AutoLock)
	copy(buf[8:10], c.Language)
	copy(buf[30:32], c.ArmHoldTime)

	return string(buf)
}

// String implements fmt.Stringer.
func (c LockConfig) String() string {
	return fmt.Sprintf("volume: %s, autolock: %s, language: %s, armHoldTime: %s",
		c.Volume, c.AutoLock, c.Language, c.ArmHoldTime)
}

func substr(s string, from, to int) string {
	if from >= len(s) {
		return ""
	}

	return s[from:min(to, len(s))]
}

// LockService exposes door lock operations.
type LockService struct {
	client *Client
}

// Lock is a door lock as listed by the panel. Its fields are a snapshot
// taken when the lock was listed; State re-queries the server.
type Lock struct {
	Name       string
	Area       string
	Zone       string
	SID        string
	DeviceType string
	// Observed is the lock position when the lock was listed.
	Observed LockState
	Config   LockConfig

	service *LockService
}

// All returns a sequence over the account's locks. Every iteration fetches
// the current device list; a failed fetch yields a single error.
func (s *LockService) All(ctx context.Context) iter.Seq2[*Lock, error] {
	return func(yield func(*Lock, error) bool) {
		devices, err := s.client.fetchDevices(ctx)
		if err != nil {
			yield(nil, err)

			return
		}

		for _, d := range devices {
			if d.Type != DeviceTypeDoorLock {
				continue
			}

			if !yield(s.newLock(d), nil) {
				return
			}
		}
	}
}

// List returns the account's locks.
func (s *LockService) List(ctx context.Context) ([]*Lock, error) {
	var locks []*Lock

	for lock, err := range s.All(ctx) {
		if err != nil {
			return nil, err
		}

		locks = append(locks, lock)
	}

	return locks, nil
}

// Get returns the lock called name, or a *NotFoundError.
func (s *LockService) Get(ctx context.Context, name string) (*Lock, error) {
	if name == "" {
		return nil, ErrEmptyLockName
	}

	for lock, err := range s.All(ctx) {
		if err != nil {
			return nil, err
		}

		if lock.Name == name {
			return lock, nil
		}
	}

	return nil, &NotFoundError{Kind: "lock", Name: name}
}

func (s *LockService) newLock(d Device) *Lock {
	return &Lock{
		Name:       d.Name,
		Area:       d.Area,
		Zone:       d.Zone,
		SID:        d.Address,
		DeviceType: d.Type,
		Observed:   lockStateOf(d),
		Config:     ParseLockConfig(d.ConfigData),
		service:    s,
	}
}

// String implements fmt.Stringer.
func (l *Lock) String() string {
	return fmt.Sprintf("%s [%s]", l.Name, l.Observed)
}

// State re-reads the lock position from the server.
func (l *Lock) State(ctx context.Context) (LockState, error) {
	current, err := l.service.Get(ctx, l.Name)
	if err != nil {
		return LockStateUnknown, err
	}

	return current.Observed, nil
}

// Open unbolts the lock. The pin is always sent; locks that require one reject an empty or wrong
// pin with a *ServerError.
func (l *Lock) Open(ctx context.Context, pin string) error {
	form := url.Values{}
	form.Set("area", l.Area)
	form.Set("zone", l.Zone)
	form.Set("pincode", pin)

	if err := l.post(ctx, endpointUnlock, form); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Lock opened", "lock", l.Name)

	return nil
}

// Close bolts the lock.
func (l *Lock) Close(ctx context.Context) error {
	form := url.Values{}
	form.Set("area", l.Area)
	form.Set("zone", l.Zone)
	form.Set("device_sid", l.SID)
	form.Set("device_type", l.DeviceType)
	form.Set("request_value", "1")

	if err := l.post(ctx, endpointDeviceControl, form); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Lock closed", "lock", l.Name)

	return nil
}

// SetVolume changes the keypad volume.
func (l *Lock) SetVolume(ctx context.Context, volume Volume) error {
	switch volume {
	case VolumeHigh, VolumeLow, VolumeOff:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVolume, string(volume))
	}

	if err := l.configure(ctx, configIndexVolume, string(volume)); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Lock volume changed", "lock", l.Name, "volume", volume.String())

	return nil
}

// SetAutoLock switches automatic re-bolting on or off.
func (l *Lock) SetAutoLock(ctx context.Context, enabled bool) error {
	value := autoLockOff
	if enabled {
		value = autoLockOn
	}

	if err := l.configure(ctx, configIndexAutoLock, value); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Lock autolock changed", "lock", l.Name, "enabled", enabled)

	return nil
}

// configure writes one configuration entry and then commits the device
// update, the same sequence the vendor app uses.
func (l *Lock) configure(ctx context.Context, index, value string) error {
	form := url.Values{}
	form.Set("area", l.Area)
	form.Set("zone", l.Zone)
	form.Set("val", value)
	form.Set("idx", index)

	if err := l.post(ctx, endpointLockConfig, form); err != nil {
		return err
	}

	resp, err := l.service.client.call(ctx, http.MethodPut, endpointDeviceUpdate, nil)
	if err != nil {
		return err
	}

	return resp.expectSuccess()
}

func (l *Lock) post(ctx context.Context, ep endpoint, form url.Values) error {
	resp, err := l.service.client.call(ctx, http.MethodPost, ep, form)
	if err != nil {
		return err
	}

	return resp.expectSuccess()
}
