// Package s2dr3 is a client for the S2DR3 super-resolution job API.
package s2dr3

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://s2dr3-job-20250428-862134799361.europe-west1.run.app"
	DefaultJob     = "e26bb408-d330-11ef"
)

// StatusError is returned when the API answers with anything but 200.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("s2dr3: status %d: %s", e.Code, e.Body)
}

type Client struct {
	BaseURL string
	Job     string
	HTTP    *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		Job:     DefaultJob,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// URL returns <base>/<userID>/<job>.
func (c *Client) URL(userID string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + url.PathEscape(userID) + "/" + url.PathEscape(c.Job)
}

// Fetch requests the job data of userID and decodes the JSON answer.
func (c *Client) Fetch(ctx context.Context, userID string) (map[string]any, error) {
	if userID == "" {
		return nil, fmt.Errorf("s2dr3: empty user id")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(userID), nil)
	if err != nil {
		return nil, err
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	log := logrus.WithFields(logrus.Fields{"request_id": reqID, "user": userID})
	log.Debugf("GET %s", req.URL)
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("s2dr3: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("s2dr3: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Errorf("status %d", resp.StatusCode)
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("s2dr3: decode response: %w", err)
	}
	log.Info("data retrieved")
	return data, nil
}
