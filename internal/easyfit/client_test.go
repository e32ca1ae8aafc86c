package easyfit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:    baseURL,
		Email:      "user@example.com",
		Password:   "secret",
		FacilityID: "easyfit:123",
		SessionTTL: 10 * time.Minute,
	})
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "easyfit", r.Header.Get("x-tenant"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "user@example.com", payload["username"])

		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc123"})
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	session, err := newTestClient(srv.URL).Login(context.Background())
	require.NoError(t, err)
	assert.True(t, session.Valid(time.Now()))
	assert.False(t, session.Valid(time.Now().Add(time.Hour)))
}

func TestLoginFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Login(context.Background())
	require.ErrorIs(t, err, ErrTransient)
}

func TestCalendarCarriesSessionCookies(t *testing.T) {
	var sawCookie bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc123"})
		case "/nox/v2/bookableitems/courses/with-canceled":
			cookie, err := r.Cookie("JSESSIONID")
			sawCookie = err == nil && cookie.Value == "abc123"
			assert.Equal(t, "easyfit:123", r.URL.Query().Get("facilityId"))
			assert.Equal(t, "2025-03-10", r.URL.Query().Get("startDate"))
			_, _ = w.Write([]byte(`[{"name":"Pilates","slots":[{"id":"slot-1","startDateTime":"2025-03-10T18:00:00+01:00[Europe/Rome]"}]}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	session, err := client.Login(context.Background())
	require.NoError(t, err)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	courses, err := client.Calendar(context.Background(), session, day, day)
	require.NoError(t, err)
	assert.True(t, sawCookie, "calendar request should carry the session cookie")

	require.Len(t, courses, 1)
	assert.Equal(t, "Pilates", courses[0].Name)
	require.Len(t, courses[0].Slots, 1)

	start, err := courses[0].Slots[0].Start()
	require.NoError(t, err)
	want := time.Date(2025, 3, 10, 18, 0, 0, 0, time.FixedZone("", 3600))
	assert.True(t, start.Equal(want), "start = %s, want %s", start, want)
}

func TestCalendarWithoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Cookies())
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	courses, err := newTestClient(srv.URL).Calendar(context.Background(), nil, day, day)
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestSlotStartWithoutOffset(t *testing.T) {
	slot := Slot{ID: "s", StartDateTime: "2025-03-10T18:00:00"}
	start, err := slot.Start()
	require.NoError(t, err)

	want := time.Date(2025, 3, 10, 18, 0, 0, 0, time.Local)
	assert.True(t, start.Equal(want))
}

func TestBook(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		desired    DesiredStatus
		wantErr    error
	}{
		{"accepted", http.StatusOK, `{"participantStatus":"BOOKED"}`, StatusBooked, nil},
		{"waitlist accepted", http.StatusOK, `{"participantStatus":"WAITING_LIST"}`, StatusWaitlisted, nil},
		{"status mismatch", http.StatusOK, `{"participantStatus":"WAITING_LIST"}`, StatusBooked, ErrRejected},
		{"client error", http.StatusUnprocessableEntity, `{}`, StatusBooked, ErrRejected},
		{"expired session", http.StatusUnauthorized, `{}`, StatusBooked, ErrTransient},
		{"forbidden", http.StatusForbidden, `{}`, StatusBooked, ErrTransient},
		{"server error", http.StatusInternalServerError, `{}`, StatusBooked, ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/nox/v1/calendar/bookcourse", r.URL.Path)

				var payload map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				assert.Equal(t, "slot-1", payload["courseAppointmentId"])
				assert.Equal(t, string(tt.desired), payload["expectedCustomerStatus"])

				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := newTestClient(srv.URL).Book(context.Background(), nil, "slot-1", tt.desired)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestBookNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	err := newTestClient(srv.URL).Book(context.Background(), nil, "slot-1", StatusBooked)
	require.ErrorIs(t, err, ErrTransient)
}
