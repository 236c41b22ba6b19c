package yale

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/oshokin/yale-alarm/internal/logger"
)

// Panel endpoints.
var (
	endpointMode         = endpoint{path: "/api/panel/mode/"}
	endpointDeviceStatus = endpoint{path: "/api/panel/device_status/"}
	endpointHealth       = endpoint{path: "/api/panel/status/"}
	endpointCycle        = endpoint{path: "/api/panel/cycle/"}
	endpointOnline       = endpoint{path: "/api/panel/online/"}
	endpointHistory      = endpoint{path: "/api/event/report/?page_num=1&set_utc=1"}
	endpointAuthCheck    = endpoint{path: "/api/auth/check/"}
	endpointPanelInfo    = endpoint{path: "/api/panel/info/"}
	endpointPanic        = endpoint{path: "/api/panel/panic", hostRelative: true}
)

// healthNormal is the value of a healthy panel indicator.
const healthNormal = "main.normal"

// PanelService exposes alarm panel operations.
type PanelService struct {
	client *Client
}

// modeEntry is one area of the panel mode list.
type modeEntry struct {
	Area flexString `json:"area"`
	Mode string     `json:"mode"`
}

// Health is the panel's trouble indicator report.
type Health struct {
	ACFail  string `json:"acfail"`
	Battery string `json:"battery"`
	Tamper  string `json:"tamper"`
	Jam     string `json:"jam"`
}

// OK reports whether mains power, battery, tamper and jamming are all normal.
func (h *Health) OK() bool {
	return h.ACFail == healthNormal &&
		h.Battery == healthNormal &&
		h.Tamper == healthNormal &&
		h.Jam == healthNormal
}

// Status returns the arming mode of the client's area. When the panel does
// not list that area the first listed area is used.
func (s *PanelService) Status(ctx context.Context) (AlarmState, error) {
	resp, err := s.client.call(ctx, http.MethodGet, endpointMode, nil)
	if err != nil {
		return StateUnknown, err
	}

	var entries []modeEntry
	if err := resp.decodeData(&entries); err != nil {
		return StateUnknown, err
	}

	if len(entries) == 0 {
		return StateUnknown, resp.serverError("panel reports no areas")
	}

	entry := entries[0]

	area := itoa(s.client.areaID)
	for _, e := range entries {
		if string(e.Area) == area {
			entry = e

			break
		}
	}

	return ParseMode(entry.Mode), nil
}

// IsArmed reports whether the panel is armed fully or partially.
func (s *PanelService) IsArmed(ctx context.Context) (bool, error) {
	state, err := s.Status(ctx)
	if err != nil {
		return false, err
	}

	return state.IsArmed(), nil
}

// SetState switches the panel to state. StateUnknown is rejected locally.
func (s *PanelService) SetState(ctx context.Context, state AlarmState) error {
	mode, ok := state.mode()
	if !ok {
		return ErrUnknownState
	}

	form := url.Values{}
	form.Set("area", itoa(s.client.areaID))
	form.Set("mode", mode)

	resp, err := s.client.call(ctx, http.MethodPost, endpointMode, form)
	if err != nil {
		return err
	}

	if err := resp.expectSuccess(); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Panel mode changed", "area", s.client.areaID, "state", state.String())

	return nil
}

// ArmFull arms every zone (away mode).
func (s *PanelService) ArmFull(ctx context.Context) error {
	return s.SetState(ctx, StateArmedFull)
}

// ArmPartial arms the perimeter (home mode).
func (s *PanelService) ArmPartial(ctx context.Context) error {
	return s.SetState(ctx, StateArmedPartial)
}

// Disarm disarms the panel.
func (s *PanelService) Disarm(ctx context.Context) error {
	return s.SetState(ctx, StateDisarmed)
}

// TriggerPanic sounds the alarm. The endpoint may answer with an empty
// body; a result code, when present, must report success.
func (s *PanelService) TriggerPanic(ctx context.Context) error {
	resp, err := s.client.call(ctx, http.MethodPost, endpointPanic, url.Values{})
	if err != nil {
		return err
	}

	if err := resp.rejectFailure(); err != nil {
		return err
	}

	logger.Warn(ctx, "Panic triggered")

	return nil
}

// Devices returns every device known to the panel.
func (s *PanelService) Devices(ctx context.Context) ([]Device, error) {
	return s.client.fetchDevices(ctx)
}

// DoorContacts returns the position of every door contact keyed by name.
func (s *PanelService) DoorContacts(ctx context.Context) (map[string]ContactState, error) {
	devices, err := s.client.fetchDevices(ctx)
	if err != nil {
		return nil, err
	}

	contacts := make(map[string]ContactState)

	for _, d := range devices {
		if d.Type == DeviceTypeDoorContact {
			contacts[d.Name] = contactStateOf(d)
		}
	}

	return contacts, nil
}

// Health returns the panel trouble indicators.
func (s *PanelService) Health(ctx context.Context) (*Health, error) {
	resp, err := s.client.call(ctx, http.MethodGet, endpointHealth, nil)
	if err != nil {
		return nil, err
	}

	var health Health
	if err := resp.decodeData(&health); err != nil {
		return nil, err
	}

	if health == (Health{}) {
		return nil, resp.serverError("health report carries no indicators")
	}

	return &health, nil
}

// Online returns the raw connectivity report of the panel.
func (s *PanelService) Online(ctx context.Context) (json.RawMessage, error) {
	return s.report(ctx, endpointOnline)
}

// History returns the first page of the raw event log, timestamps in UTC.
func (s *PanelService) History(ctx context.Context) (json.RawMessage, error) {
	return s.report(ctx, endpointHistory)
}

// PanelInfo returns the raw panel description.
func (s *PanelService) PanelInfo(ctx context.Context) (json.RawMessage, error) {
	return s.report(ctx, endpointPanelInfo)
}

// Cycle returns the raw panel cycle report.
func (s *PanelService) Cycle(ctx context.Context) (json.RawMessage, error) {
	return s.report(ctx, endpointCycle)
}

// AuthCheck returns the raw account authorisation report.
func (s *PanelService) AuthCheck(ctx context.Context) (json.RawMessage, error) {
	return s.report(ctx, endpointAuthCheck)
}

// report fetches an endpoint whose data member has no fixed schema.
func (s *PanelService) report(ctx context.Context, ep endpoint) (json.RawMessage, error) {
	resp, err := s.client.call(ctx, http.MethodGet, ep, nil)
	if err != nil {
		return nil, err
	}

	var data json.RawMessage
	if err := resp.decodeData(&data); err != nil {
		return nil, err
	}

	return data, nil
}
