package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrTransport means the request never produced a response.
	ErrTransport = errors.New("verification request failed")

	// ErrInvalidResponse means a response arrived but was not usable:
	// non-2xx status, unparseable body, or a missing/non-numeric value field.
	ErrInvalidResponse = errors.New("invalid verification response")
)

// ActivationVerifier checks a scratch code against the remote
// verification endpoint and returns the numeric version value it reports.
type ActivationVerifier interface {
	Verify(ctx context.Context, code string) (int64, error)
}

// HTTPVerifier performs a single GET against the verification endpoint,
// passing the code as a query parameter. No retries, no caching.
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPVerifier(baseURL string) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, code string) (int64, error) {
	reqURL := v.baseURL + "?code=" + url.QueryEscape(code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		log.Errorf("verification request for code %s failed: %v", code, err)
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	// the endpoint reports the value either as a number or a numeric string
	var payload struct {
		Value any `json:"value"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	switch raw := payload.Value.(type) {
	case json.Number:
		value, err := raw.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: value %q is not an integer", ErrInvalidResponse, raw)
		}
		return value, nil
	case string:
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: value %q is not an integer", ErrInvalidResponse, raw)
		}
		return value, nil
	case nil:
		return 0, fmt.Errorf("%w: value field missing", ErrInvalidResponse)
	default:
		return 0, fmt.Errorf("%w: unexpected value type %T", ErrInvalidResponse, raw)
	}
}
