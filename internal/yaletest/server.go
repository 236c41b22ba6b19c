// Package yaletest provides an in-process fake of the Yale Smart Living API
// for tests of the client library and the CLI services.
package yaletest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Default account accepted by the fake.
const (
	Username = "user@example.com"
	Password = "secret"
	PIN      = "123456"
)

const (
	codeSuccess = "000"
	codeFailure = "999"
)

// Device is a device entry served by the device status endpoint.
type Device struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Area       string `json:"area"`
	No         string `json:"no"`
	Address    string `json:"address"`
	Status1    string `json:"status1"`
	LockStatus string `json:"minigw_lock_status"`
	ConfigData string `json:"minigw_configuration_data"`
}

// DefaultDevices returns two locks and a door contact.
func DefaultDevices() []Device {
	return []Device{
		{
			Name:       "front door",
			Type:       "device_type.door_lock",
			Area:       "1",
			No:         "1",
			Address:    "RF:00aa11",
			Status1:    "device_status.lock",
			ConfigData: "03FF0000010000000000000000000005",
		},
		{
			Name:       "back door",
			Type:       "device_type.door_lock",
			Area:       "1",
			No:         "2",
			Address:    "RF:00aa12",
			Status1:    "device_status.unlock",
			LockStatus: "10",
			ConfigData: "0200000001",
		},
		{
			Name:    "hall window",
			Type:    "device_type.door_contact",
			Area:    "1",
			No:      "3",
			Address: "RF:00aa13",
			Status1: "device_status.dc_open",
		},
	}
}

// Server is a fake Yale API. All exported methods are safe for concurrent use.
type Server struct {
	srv *httptest.Server

	mu sync.Mutex
	// mode is the panel mode wire value.
	mode    string
	devices []Device
	// expiresIn is the token lifetime announced to clients, in seconds.
	expiresIn int
	// servicesURL is announced by the services endpoint.
	servicesURL string
	// rejectNext makes the next n authenticated requests fail with 401.
	rejectNext int
	// rejectRefresh refuses refresh grants.
	rejectRefresh bool
	// failures maps a request path to a status code returned once.
	failures map[string]int
	// tokenSeq numbers issued tokens.
	tokenSeq     int
	accessToken  string
	refreshToken string
	grants       map[string]int
	requests     map[string]int
	forms        map[string]map[string]string
}

// New starts a fake server closed at test cleanup.
func New(tb testing.TB) *Server {
	tb.Helper()

	s := &Server{
		mode:      "disarm",
		devices:   DefaultDevices(),
		expiresIn: 3600,
		failures:  make(map[string]int),
		grants:    make(map[string]int),
		requests:  make(map[string]int),
		forms:     make(map[string]map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /yapi/o/token/{$}", s.handleToken)
	mux.HandleFunc("GET /yapi/services/{$}", s.authorized(s.handleServices))
	mux.HandleFunc("GET /yapi/api/panel/mode/{$}", s.authorized(s.handleGetMode))
	mux.HandleFunc("POST /yapi/api/panel/mode/{$}", s.authorized(s.handleSetMode))
	mux.HandleFunc("GET /yapi/api/panel/device_status/{$}", s.authorized(s.handleDevices))
	mux.HandleFunc("GET /yapi/api/panel/status/{$}", s.authorized(s.handleHealth))
	mux.HandleFunc("GET /yapi/api/panel/online/{$}", s.authorized(s.data(map[string]any{"online": true})))
	mux.HandleFunc("GET /yapi/api/panel/cycle/{$}", s.authorized(s.data(map[string]any{"cycle": 1})))
	mux.HandleFunc("GET /yapi/api/panel/info/{$}", s.authorized(s.data(map[string]any{"model": "SR-3200i"})))
	mux.HandleFunc("GET /yapi/api/auth/check/{$}", s.authorized(s.data(map[string]any{"ok": true})))
	mux.HandleFunc("GET /yapi/api/event/report/{$}", s.authorized(s.handleHistory))
	mux.HandleFunc("POST /api/panel/panic", s.authorized(s.handlePanic))
	mux.HandleFunc("POST /yapi/api/minigw/unlock/{$}", s.authorized(s.handleUnlock))
	mux.HandleFunc("POST /yapi/api/panel/device_control/{$}", s.authorized(s.handleDeviceControl))
	mux.HandleFunc("POST /yapi/api/minigw/lock/config/{$}", s.authorized(s.handleOK))
	mux.HandleFunc("PUT /yapi/api/panel/device/{$}", s.authorized(s.handleOK))

	s.srv = httptest.NewServer(mux)
	tb.Cleanup(s.srv.Close)

	return s
}

// URL returns the API root of the fake, ending in /yapi.
func (s *Server) URL() string {
	return s.srv.URL + "/yapi"
}

// SetMode sets the panel mode wire value.
func (s *Server) SetMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
}

// Mode returns the panel mode wire value.
func (s *Server) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mode
}

// SetDevices replaces the device list.
func (s *Server) SetDevices(devices []Device) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.devices = devices
}

// SetTokenLifetime sets the announced token lifetime in seconds.
func (s *Server) SetTokenLifetime(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expiresIn = seconds
}

// SetServicesURL sets the API root announced by the services endpoint.
func (s *Server) SetServicesURL(u string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.servicesURL = u
}

// RejectNext makes the next n authenticated requests fail with 401.
func (s *Server) RejectNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejectNext = n
}

// RejectRefresh makes refresh grants fail.
func (s *Server) RejectRefresh(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejectRefresh = reject
}

// FailOnce makes the next request to path answer with status.
func (s *Server) FailOnce(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[path] = status
}

// Grants returns how many token requests used grant type.
func (s *Server) Grants(grant string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.grants[grant]
}

// Requests returns how many authenticated requests hit path, rejected ones included.
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requests[path]
}

// LastForm returns the form of the latest request to path.
func (s *Server) LastForm(path string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.forms[path]
}

// AccessToken returns the currently valid access token.
func (s *Server) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.accessToken
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_client"})

		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	grant := r.PostForm.Get("grant_type")
	s.grants[grant]++

	switch grant {
	case "password":
		if r.PostForm.Get("username") != Username || r.PostForm.Get("password") != Password {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":             "invalid_grant",
				"error_description": "Invalid credentials given.",
			})

			return
		}
	case "refresh_token":
		if s.rejectRefresh || r.PostForm.Get("refresh_token") != s.refreshToken {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})

			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unsupported_grant_type"})

		return
	}

	s.tokenSeq++
	s.accessToken = fmt.Sprintf("access-%d", s.tokenSeq)
	s.refreshToken = fmt.Sprintf("refresh-%d", s.tokenSeq)

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  s.accessToken,
		"refresh_token": s.refreshToken,
		"expires_in":    s.expiresIn,
		"token_type":    "Bearer",
	})
}

// authorized checks the bearer token, records the request and applies
// injected failures before calling next.
func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()

		s.mu.Lock()
		s.requests[r.URL.Path]++

		form := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}

		s.forms[r.URL.Path] = form

		rejected := s.rejectNext > 0 || r.Header.Get("Authorization") != "Bearer "+s.accessToken
		if s.rejectNext > 0 {
			s.rejectNext--
		}

		status, failing := s.failures[r.URL.Path]
		if failing {
			delete(s.failures, r.URL.Path)
		}
		s.mu.Unlock()

		switch {
		case rejected:
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid token."})
		case failing:
			writeJSON(w, status, map[string]any{"detail": http.StatusText(status)})
		default:
			next(w, r)
		}
	}
}

func (s *Server) handleServices(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"yapi": s.servicesURL})
}

func (s *Server) handleGetMode(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeResult(w, codeSuccess, "OK!", []map[string]any{{"area": "1", "mode": s.mode}})
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	mode := r.PostForm.Get("mode")

	switch mode {
	case "arm", "home", "disarm":
	default:
		writeResult(w, codeFailure, "invalid mode", nil)

		return
	}

	s.SetMode(mode)
	writeResult(w, codeSuccess, "OK!", nil)
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeResult(w, codeSuccess, "OK!", s.devices)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeResult(w, codeSuccess, "OK!", map[string]any{
		"acfail":  "main.normal",
		"battery": "main.normal",
		"tamper":  "main.normal",
		"jam":     "main.normal",
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	writeResult(w, codeSuccess, "OK!", []map[string]any{
		{"event_type": "arm", "time": "2026-10-15 08:00:00"},
	})
}

func (s *Server) handlePanic(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	if r.PostForm.Get("pincode") != PIN {
		writeResult(w, codeFailure, "incorrect pincode", nil)

		return
	}

	if !s.setLockStatus(r.PostForm.Get("area"), r.PostForm.Get("zone"), "device_status.unlock") {
		writeResult(w, codeFailure, "unknown device", nil)

		return
	}

	writeResult(w, codeSuccess, "OK!", nil)
}

func (s *Server) handleDeviceControl(w http.ResponseWriter, r *http.Request) {
	if r.PostForm.Get("request_value") != "1" {
		writeResult(w, codeFailure, "unsupported request", nil)

		return
	}

	if !s.setLockStatus(r.PostForm.Get("area"), r.PostForm.Get("zone"), "device_status.lock") {
		writeResult(w, codeFailure, "unknown device", nil)

		return
	}

	writeResult(w, codeSuccess, "OK!", nil)
}

func (s *Server) handleOK(w http.ResponseWriter, _ *http.Request) {
	writeResult(w, codeSuccess, "OK!", nil)
}

func (s *Server) data(payload any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, codeSuccess, "OK!", payload)
	}
}

// setLockStatus updates the lock at area/zone and reports whether it exists.
func (s *Server) setLockStatus(area, zone, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.devices {
		d := &s.devices[i]
		if d.Type == "device_type.door_lock" && d.Area == area && d.No == zone {
			d.Status1 = status
			d.LockStatus = ""

			return true
		}
	}

	return false
}

func writeResult(w http.ResponseWriter, code, message string, data any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"result":  code == codeSuccess,
		"code":    code,
		"message": message,
		"data":    data,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
