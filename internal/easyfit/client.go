// Package easyfit is a minimal client for the EasyFit booking platform,
// covering the three calls the bot needs: login, course calendar and course
// booking. The request flow mirrors what the web app sends.
package easyfit

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Error taxonomy. Transient errors leave the booking pending and retryable,
// rejections are definitive answers from the platform.
var (
	ErrTransient = errors.New("easyfit: transient error")
	ErrRejected  = errors.New("easyfit: rejected")
)

// DesiredStatus is the participant status requested from the platform.
type DesiredStatus string

const (
	StatusBooked     DesiredStatus = "BOOKED"
	StatusWaitlisted DesiredStatus = "WAITING_LIST"
)

type Course struct {
	Name  string `json:"name"`
	Slots []Slot `json:"slots"`
}

type Slot struct {
	ID            string `json:"id"`
	StartDateTime string `json:"startDateTime"`
}

// Start parses the slot start instant. The platform appends a bracketed zone
// name ("2025-03-10T18:00:00+01:00[Europe/Rome]") that must be trimmed first.
func (s Slot) Start() (time.Time, error) {
	raw := s.StartDateTime
	if i := strings.IndexByte(raw, '['); i >= 0 {
		raw = raw[:i]
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return t, nil
	}
	t, err = time.ParseInLocation("2006-01-02T15:04:05", raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot start %q: %w", s.StartDateTime, err)
	}
	return t, nil
}

type Config struct {
	BaseURL    string
	Email      string
	Password   string
	FacilityID string
	SessionTTL time.Duration
	Timeout    time.Duration
}

type Client struct {
	hc         *http.Client
	baseURL    string
	email      string
	password   string
	facilityID string
	sessionTTL time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	ttl := cfg.SessionTTL
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	return &Client{
		hc:         &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		email:      cfg.Email,
		password:   cfg.Password,
		facilityID: cfg.FacilityID,
		sessionTTL: ttl,
	}
}

// Login authenticates against the platform and returns a session carrying
// the response cookies. The session is a plain value owned by the caller; the
// client itself holds no authentication state.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	body, err := json.Marshal(map[string]string{
		"username": c.email,
		"password": c.password,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.email + ":" + c.password))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("x-tenant", "easyfit")
	req.Header.Set("x-nox-client-type", "WEB")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: login: %v", ErrTransient, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: login failed with status %d", ErrTransient, resp.StatusCode)
	}

	return NewSession(resp.Cookies(), time.Now().Add(c.sessionTTL)), nil
}

// Calendar fetches the course calendar for the inclusive date range. The
// endpoint is public, so session may be nil; an authenticated session is
// attached when present.
func (c *Client) Calendar(ctx context.Context, session *Session, from, to time.Time) ([]Course, error) {
	params := url.Values{}
	params.Set("facilityId", c.facilityID)
	params.Set("startDate", from.Format("2006-01-02"))
	params.Set("endDate", to.Format("2006-01-02"))

	endpoint := c.baseURL + "/nox/v2/bookableitems/courses/with-canceled?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build calendar request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Origin", c.baseURL)
	session.attach(req)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calendar: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: calendar failed with status %d", ErrTransient, resp.StatusCode)
	}

	var courses []Course
	if err := json.NewDecoder(resp.Body).Decode(&courses); err != nil {
		return nil, fmt.Errorf("decode calendar: %w", err)
	}

	return courses, nil
}

// Book requests a reservation for the slot with the desired participant
// status. A definitive refusal (4xx or a mismatched participant status in a
// 200 response) is ErrRejected; everything else that goes wrong is
// ErrTransient. 401 and 403 mean the session died server-side, not that the
// slot was refused, so they count as transient too.
func (c *Client) Book(ctx context.Context, session *Session, slotID string, desired DesiredStatus) error {
	body, err := json.Marshal(map[string]string{
		"courseAppointmentId":    slotID,
		"expectedCustomerStatus": string(desired),
	})
	if err != nil {
		return fmt.Errorf("marshal book payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/nox/v1/calendar/bookcourse", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build book request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Origin", c.baseURL)
	session.attach(req)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: book: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var result struct {
			ParticipantStatus string `json:"participantStatus"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("%w: decode book response: %v", ErrTransient, err)
		}
		if result.ParticipantStatus != string(desired) {
			return fmt.Errorf("%w: participant status %q", ErrRejected, result.ParticipantStatus)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: book failed with status %d", ErrTransient, resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: book failed with status %d", ErrRejected, resp.StatusCode)
	default:
		return fmt.Errorf("%w: book failed with status %d", ErrTransient, resp.StatusCode)
	}
}
