package yale

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/oshokin/yale-alarm/internal/yaletest"
)

// TestServerErrorStatus verifies a non-2xx answer other than 401 is a ServerError and is not retried.
func TestServerErrorStatus(t *testing.T) {
	t.Parallel()

	fake := yaletest.New(t)
	c := loggedIn(t, fake)

	fake.FailOnce(modePath, http.StatusInternalServerError)

	_, err := c.Panel.Status(context.Background())
	require.Error(t, err)
	require.True(t, IsServer(err))
	require.False(t, IsAuth(err))

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	require.Equal(t, http.StatusInternalServerError, serverErr.StatusCode)
	require.Equal(t, "GET /api/panel/mode/", serverErr.Op)
	require.Equal(t, 1, fake.Requests(modePath))
	require.Zero(t, fake.Grants("refresh_token"))
}

// TestUnexpectedShapes verifies bodies that do not match the expected schema yield ServerError.
func TestUnexpectedShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"code":`},
		{"missing data", `{"code":"000","message":"OK!"}`},
		{"null data", `{"code":"000","data":null}`},
		{"wrong data type", `{"code":"000","data":"armed"}`},
		{"no areas", `{"code":"000","data":[]}`},
		{"failure code", `{"code":"999","message":"panel offline","data":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			base := newRawServer(t, func(w http.ResponseWriter, _ *http.Request) {
				writeBody(w, tt.body)
			})

			_, err := rawClient(t, base).Panel.Status(context.Background())
			require.Error(t, err)
			require.True(t, IsServer(err), err.Error())
		})
	}
}

// TestSetState_FailureCode verifies a 200 answer with a failure code is a ServerError carrying the code.
func TestSetState_FailureCode(t *testing.T) {
	t.Parallel()

	base := newRawServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, `{"result":false,"code":"104","message":"zone open"}`)
	})

	err := rawClient(t, base).Panel.ArmFull(context.Background())

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	require.Equal(t, "104", serverErr.Code)
	require.Equal(t, "zone open", serverErr.Message)
	require.Equal(t, http.StatusOK, serverErr.StatusCode)
}

// TestSetState_NumericCode verifies a numeric result code is accepted.
func TestSetState_NumericCode(t *testing.T) {
	t.Parallel()

	base := newRawServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, `{"result":true,"code":"000"}`)
	})

	require.NoError(t, rawClient(t, base).Panel.Disarm(context.Background()))

	base = newRawServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, `{"result":false,"code":104}`)
	})

	err := rawClient(t, base).Panel.Disarm(context.Background())
	require.True(t, IsServer(err))
	require.Contains(t, err.Error(), "code 104")
}

// TestCallTimeout verifies a slow server yields a NetworkError reporting a timeout.
func TestCallTimeout(t *testing.T) {
	t.Parallel()

	base := newRawServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}

		writeBody(w, `{"code":"000","data":[]}`)
	})

	c := rawClient(t, base, WithTimeout(50*time.Millisecond))

	_, err := c.Panel.Status(context.Background())
	require.Error(t, err)
	require.True(t, IsNetwork(err))

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.True(t, netErr.Timeout())
}

// TestRequestHeaders verifies every request carries a User-Agent and a fresh X-Request-ID.
func TestRequestHeaders(t *testing.T) {
	t.Parallel()

	var (
		mu         sync.Mutex
		agents     []string
		requestIDs []string
		bearers    []string
	)

	base := newRawServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.Header.Get("User-Agent"))
		requestIDs = append(requestIDs, r.Header.Get(requestIDHeader))
		bearers = append(bearers, r.Header.Get("Authorization"))
		mu.Unlock()

		writeBody(w, `{"code":"000","data":[{"area":1,"mode":"home"}]}`)
	})

	c := rawClient(t, base, WithUserAgent("yale-test/1.0"))

	for range 2 {
		state, err := c.Panel.Status(context.Background())
		require.NoError(t, err)
		require.Equal(t, StateArmedPartial, state)
	}

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, requestIDs, 2)
	require.NotEqual(t, requestIDs[0], requestIDs[1])

	for i := range requestIDs {
		require.Equal(t, "yale-test/1.0", agents[i])
		require.Equal(t, "Bearer raw-access", bearers[i])

		_, err := uuid.Parse(requestIDs[i])
		require.NoError(t, err)
	}
}

// TestRateLimit verifies requests are spaced by the configured limit.
func TestRateLimit(t *testing.T) {
	t.Parallel()

	base := newRawServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, `{"code":"000","data":[{"area":"1","mode":"arm"}]}`)
	})

	c := rawClient(t, base, WithRateLimit(rate.Limit(20), 1))

	start := time.Now()

	// One token request plus three calls, 50ms apart after the first.
	for range 3 {
		_, err := c.Panel.Status(context.Background())
		require.NoError(t, err)
	}

	require.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
}

// TestServiceDiscovery verifies the API root announced after login is used for later calls.
func TestServiceDiscovery(t *testing.T) {
	t.Parallel()

	fake := yaletest.New(t)
	fake.SetServicesURL(" " + fake.URL() + "/ ")

	c := loggedIn(t, fake)
	require.Equal(t, fake.URL(), c.BaseURL())
	require.Equal(t, 1, fake.Requests("/yapi/services/"))

	state, err := c.Panel.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateDisarmed, state)
}

// TestServiceDiscovery_Disabled verifies WithoutServiceDiscovery keeps the configured root.
func TestServiceDiscovery_Disabled(t *testing.T) {
	t.Parallel()

	fake := yaletest.New(t)
	fake.SetServicesURL("http://localhost:1/yapi")

	c := loggedIn(t, fake, WithoutServiceDiscovery())
	require.Equal(t, fake.URL(), c.BaseURL())
	require.Zero(t, fake.Requests("/yapi/services/"))
}

// TestEndpoints verifies API and host relative paths resolve against the current root.
func TestEndpoints(t *testing.T) {
	t.Parallel()

	e := newEndpoints("https://example.com/yapi/")
	require.Equal(t, "https://example.com/yapi", e.root)
	require.Equal(t, "https://example.com/yapi/api/panel/mode/", e.resolve(endpointMode))
	require.Equal(t, "https://example.com/api/panel/panic", e.resolve(endpointPanic))
}

// TestFlexString verifies strings, numbers and null are accepted.
func TestFlexString(t *testing.T) {
	t.Parallel()

	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"a":"000","b":12,"c":null}`), &v))
	require.Equal(t, flexString("000"), v.A)
	require.Equal(t, flexString("12"), v.B)
	require.Empty(t, v.C)

	require.Error(t, json.Unmarshal([]byte(`{"a":{}}`), &v))
}

// TestErrorHelpers verifies the classification helpers see through wrapping.
func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	wrapped := errors.Join(errors.New("context"), &NotFoundError{Kind: "lock", Name: "x"})
	require.True(t, IsNotFound(wrapped))
	require.False(t, IsServer(wrapped))

	auth := &AuthError{Op: "GET /x", Reason: "token rejected", Err: &ServerError{StatusCode: http.StatusUnauthorized}}
	require.True(t, IsAuth(auth))
	require.True(t, isUnauthorized(auth))
	require.Contains(t, auth.Error(), "token rejected")
}
