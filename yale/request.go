package yale

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/oshokin/yale-alarm/internal/logger"
)

const (
	// codeSuccess is the vendor result code of a successful operation.
	codeSuccess = "000"

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 1 << 20

	// maxErrorBody caps how much of a body is kept in a ServerError.
	maxErrorBody = 512
)

// envelope is the JSON wrapper around every API response.
type envelope struct {
	Result  json.RawMessage `json:"result"`
	Code    flexString      `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// response is a decoded 2xx answer.
type response struct {
	op     string
	status int
	body   []byte
	env    envelope
}

// serverError builds a ServerError for r with a local message.
func (r *response) serverError(message string) *ServerError {
	return &ServerError{
		Op:         r.op,
		StatusCode: r.status,
		Code:       string(r.env.Code),
		Message:    message,
		Body:       truncate(r.body),
	}
}

// expectSuccess requires the vendor result code to report success.
func (r *response) expectSuccess() error {
	switch r.env.Code {
	case codeSuccess:
		return nil
	case "":
		return r.serverError("response carries no result code")
	default:
		return r.serverError(r.env.Message)
	}
}

// rejectFailure fails only when a result code is present and is not success.
func (r *response) rejectFailure() error {
	if r.env.Code == "" {
		return nil
	}

	return r.expectSuccess()
}

// decodeData unmarshals the data member into out, failing on a missing
// member, a failure code or an unexpected shape.
func (r *response) decodeData(out any) error {
	if err := r.rejectFailure(); err != nil {
		return err
	}

	data := bytes.TrimSpace(r.env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return r.serverError("response carries no data")
	}

	if err := json.Unmarshal(data, out); err != nil {
		return r.serverError(fmt.Sprintf("unexpected data shape: %v", err))
	}

	return nil
}

// call issues an authenticated request and decodes the envelope.
// A 401 answer invalidates the token and is retried as the retry policy
// allows; once the policy is exhausted the rejection surfaces as AuthError.
func (c *Client) call(ctx context.Context, method string, ep endpoint, form url.Values) (*response, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	op := method + " " + ep.path

	for retries := 0; ; retries++ {
		token, err := c.auth.EnsureValid(ctx)
		if err != nil {
			return nil, err
		}

		status, body, err := c.send(ctx, token, method, c.endpoints.resolve(ep), form)
		if err == nil {
			return decodeResponse(op, status, body)
		}

		if !isUnauthorized(err) {
			return nil, withOp(err, op)
		}

		if !c.retryPolicy.ShouldRetry(retries, err) {
			return nil, &AuthError{Op: op, Reason: "token rejected", Err: err}
		}

		logger.DebugKV(ctx, "Token rejected, refreshing", "op", op, "retry", retries+1)
		c.auth.Invalidate()
	}
}

// send performs one HTTP round trip with the bearer token attached.
// Non-2xx answers are returned as *ServerError together with the body.
func (c *Client) send(
	ctx context.Context,
	token *Token,
	method string,
	rawURL string,
	form url.Values,
) (int, []byte, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("yale: build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{Op: method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, &NetworkError{Op: method + " " + req.URL.Path, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp.StatusCode, body, &ServerError{
			Op:         method + " " + req.URL.Path,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       truncate(body),
		}
	}

	return resp.StatusCode, body, nil
}

// decodeResponse parses the envelope of a 2xx body. An empty body is
// accepted and yields an empty envelope.
func decodeResponse(op string, status int, body []byte) (*response, error) {
	r := &response{op: op, status: status, body: body}

	if len(bytes.TrimSpace(body)) == 0 {
		return r, nil
	}

	if err := json.Unmarshal(body, &r.env); err != nil {
		return nil, r.serverError(fmt.Sprintf("malformed response: %v", err))
	}

	return r, nil
}

// withOp names the API operation in errors produced by send.
func withOp(err error, op string) error {
	switch e := err.(type) { //nolint:errorlint // send returns unwrapped typed errors.
	case *ServerError:
		e.Op = op
	case *NetworkError:
		e.Op = op
	}

	return err
}

// truncate shortens a body for inclusion in an error.
func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}

	return string(body)
}

// flexString accepts a JSON string or number, the vendor mixes both for
// identifiers and result codes.
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)

	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}

		*f = flexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}

		*f = flexString(n.String())
	}

	return nil
}

// itoa is a shorthand used for form values.
func itoa(n int) string {
	return strconv.Itoa(n)
}
