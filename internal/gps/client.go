// Package gps talks to the external GPS tracking provider. The provider
// exposes named remote functions invoked with a JSON params payload; responses
// signal failure through a non-zero status or a cause/error string rather than
// HTTP status codes, so every response is checked before its payload is
// trusted.
package gps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ProviderError reports a failed provider call: network trouble, auth
// failure, rate limiting or a malformed response. It is scoped to a single
// device call so one bad device never aborts a multi-vehicle sync.
type ProviderError struct {
	Action string
	Status int
	Cause  string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gps provider %s: %v", e.Action, e.Err)
	}
	if e.Cause != "" {
		return fmt.Sprintf("gps provider %s: status %d: %s", e.Action, e.Status, e.Cause)
	}
	return fmt.Sprintf("gps provider %s: status %d", e.Action, e.Status)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Trip is a provider-native trip record. It is ephemeral and read-only;
// trips are always transformed into journal entries before being stored.
type Trip struct {
	TripID       string  `json:"tripid"`
	BeginTime    int64   `json:"begintime"` // epoch seconds
	EndTime      int64   `json:"endtime"`
	BeginLat     float64 `json:"beginlat"`
	BeginLon     float64 `json:"beginlon"`
	EndLat       float64 `json:"endlat"`
	EndLon       float64 `json:"endlon"`
	BeginAddress string  `json:"beginaddress,omitempty"`
	EndAddress   string  `json:"endaddress,omitempty"`
	Mileage      float64 `json:"mileage"` // km
}

// PositionRecord is a device's last reported position.
type PositionRecord struct {
	DeviceID  string  `json:"deviceid"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	SpeedKmh  float64 `json:"speed,omitempty"`
	Timestamp int64   `json:"timestamp"` // epoch seconds
}

// Device is one tracker known to the provider.
type Device struct {
	DeviceID string `json:"deviceid"`
	Name     string `json:"name,omitempty"`
}

// DeviceGroup is how the provider organizes its device list.
type DeviceGroup struct {
	Name    string   `json:"name,omitempty"`
	Devices []Device `json:"devices"`
}

// Client invokes the provider's remote functions over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a provider client for the given base URL. When url is
// empty the GPS_PROVIDER_URL environment variable is used.
func NewClient(url string) *Client {
	if url == "" {
		url = os.Getenv("GPS_PROVIDER_URL")
	}
	return &Client{
		baseURL: url,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// GetTrips lists the trips a device drove inside [begin, end], both epoch
// seconds, in provider order (not guaranteed chronological).
func (c *Client) GetTrips(ctx context.Context, deviceID string, begin, end int64) ([]Trip, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("getTrips: device id must not be empty")
	}
	if begin > end {
		return nil, fmt.Errorf("getTrips: begin %d after end %d", begin, end)
	}
	var out struct {
		TotalTrips []Trip `json:"totaltrips"`
	}
	params := map[string]any{"deviceId": deviceID, "begintime": begin, "endtime": end}
	if err := c.invoke(ctx, "getTrips", params, &out); err != nil {
		return nil, err
	}
	return out.TotalTrips, nil
}

// GetLastPosition returns the last known position of each listed device.
func (c *Client) GetLastPosition(ctx context.Context, deviceIDs []string) ([]PositionRecord, error) {
	var out struct {
		Records []PositionRecord `json:"records"`
	}
	params := map[string]any{"deviceIds": deviceIDs}
	if err := c.invoke(ctx, "getLastPosition", params, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// GetDeviceList returns every device the provider account can see.
func (c *Client) GetDeviceList(ctx context.Context) ([]Device, error) {
	var out struct {
		Groups []DeviceGroup `json:"groups"`
	}
	if err := c.invoke(ctx, "getDeviceList", map[string]any{}, &out); err != nil {
		return nil, err
	}
	var devices []Device
	for _, g := range out.Groups {
		devices = append(devices, g.Devices...)
	}
	return devices, nil
}

// errEnvelope carries the provider's in-band failure fields. Any non-zero
// status or non-empty cause/error marks the call failed, never an empty
// success.
type errEnvelope struct {
	Status   int    `json:"status"`
	Cause    string `json:"cause"`
	ErrField string `json:"error"`
}

func (c *Client) invoke(ctx context.Context, action string, params any, out any) error {
	payload, err := json.Marshal(map[string]any{"action": action, "params": params})
	if err != nil {
		return &ProviderError{Action: action, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return &ProviderError{Action: action, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &ProviderError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{Action: action, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Action: action, Status: resp.StatusCode,
			Cause: fmt.Sprintf("http %d", resp.StatusCode)}
	}

	var env errEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &ProviderError{Action: action, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if env.Status != 0 {
		return &ProviderError{Action: action, Status: env.Status, Cause: env.Cause}
	}
	if env.Cause != "" || env.ErrField != "" {
		cause := env.Cause
		if cause == "" {
			cause = env.ErrField
		}
		return &ProviderError{Action: action, Cause: cause}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{Action: action, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}
