package activityclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "http", baseURL: "http://localhost:8000"},
		{name: "https with trailing slash", baseURL: "https://api.example.com/"},
		{name: "missing scheme", baseURL: "localhost:8000", wantErr: true},
		{name: "unsupported scheme", baseURL: "ftp://example.com", wantErr: true},
		{name: "missing host", baseURL: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, strings.HasSuffix(client.BaseURL(), "/"))
		})
	}
}

func TestActivities(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse string
		status         int
		wantErr        string
		verifyFn       func(t *testing.T, roster Roster)
	}{
		{
			name: "success",
			serverResponse: `{
				"Chess Club": {
					"description": "Learn strategies",
					"schedule": "Fridays",
					"max_participants": 12,
					"participants": ["michael@mergington.edu", "daniel@mergington.edu"]
				},
				"Art": {
					"description": "Paint",
					"schedule": "Mondays",
					"max_participants": 1,
					"participants": []
				}
			}`,
			status: http.StatusOK,
			verifyFn: func(t *testing.T, roster Roster) {
				require.Len(t, roster, 2)
				assert.Equal(t, []string{"Art", "Chess Club"}, roster.Names())
				chess := roster["Chess Club"]
				assert.Equal(t, "Learn strategies", chess.Description)
				assert.Equal(t, 12, chess.MaxParticipants)
				assert.Equal(t, 10, chess.SpotsLeft())
				assert.Equal(t, 1, roster["Art"].SpotsLeft())
			},
		},
		{
			name:           "http error",
			serverResponse: `{"detail":"database down"}`,
			status:         http.StatusInternalServerError,
			wantErr:        "unexpected status code: 500: database down",
		},
		{
			name:           "malformed body",
			serverResponse: `<html>oops</html>`,
			status:         http.StatusOK,
			wantErr:        "malformed response body",
		},
		{
			name:           "null body",
			serverResponse: `null`,
			status:         http.StatusOK,
			wantErr:        "malformed response body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/activities", r.URL.Path)
				assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.serverResponse))
			}))
			defer ts.Close()

			client, err := New(ts.URL)
			require.NoError(t, err)
			roster, err := client.Activities(context.Background())

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.verifyFn != nil {
				tt.verifyFn(t, roster)
			}
		})
	}
}

func TestActivities_ConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	client, err := New(url)
	require.NoError(t, err)
	_, err = client.Activities(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}

func TestSignup(t *testing.T) {
	tests := []struct {
		name           string
		activity       string
		email          string
		wantRawPath    string
		wantEmail      string
		serverResponse string
		status         int
		wantResult     Result
		wantStatus     int
		wantMalformed  bool
	}{
		{
			name:           "success",
			activity:       "Chess Club",
			email:          "new@mergington.edu",
			wantRawPath:    "/activities/Chess%20Club/signup",
			wantEmail:      "new@mergington.edu",
			serverResponse: `{"message":"Signed up new@mergington.edu for Chess Club"}`,
			status:         http.StatusOK,
			wantResult:     Result{Message: "Signed up new@mergington.edu for Chess Club"},
		},
		{
			name:           "reserved characters are escaped",
			activity:       "Arts/Crafts",
			email:          "a+b@example.com",
			wantRawPath:    "/activities/Arts%2FCrafts/signup",
			wantEmail:      "a+b@example.com",
			serverResponse: `{"message":"ok"}`,
			status:         http.StatusOK,
			wantResult:     Result{Message: "ok"},
		},
		{
			name:           "rejected with detail",
			activity:       "Chess Club",
			email:          "dup@mergington.edu",
			wantRawPath:    "/activities/Chess%20Club/signup",
			wantEmail:      "dup@mergington.edu",
			serverResponse: `{"detail":"Activity full"}`,
			status:         http.StatusBadRequest,
			wantResult:     Result{Detail: "Activity full"},
			wantStatus:     http.StatusBadRequest,
		},
		{
			name:           "rejected without detail",
			activity:       "Chess Club",
			email:          "x@mergington.edu",
			wantRawPath:    "/activities/Chess%20Club/signup",
			wantEmail:      "x@mergington.edu",
			serverResponse: `{}`,
			status:         http.StatusNotFound,
			wantStatus:     http.StatusNotFound,
		},
		{
			name:           "non json body",
			activity:       "Chess Club",
			email:          "x@mergington.edu",
			wantRawPath:    "/activities/Chess%20Club/signup",
			wantEmail:      "x@mergington.edu",
			serverResponse: `Internal Server Error`,
			status:         http.StatusInternalServerError,
			wantMalformed:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, tt.wantRawPath, r.URL.EscapedPath())
				assert.Equal(t, tt.wantEmail, r.URL.Query().Get("email"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.serverResponse))
			}))
			defer ts.Close()

			client, err := New(ts.URL)
			require.NoError(t, err)
			result, err := client.Signup(context.Background(), tt.activity, tt.email)

			switch {
			case tt.wantMalformed:
				assert.ErrorIs(t, err, ErrMalformedResponse)
			case tt.wantStatus != 0:
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
				assert.Equal(t, tt.wantResult.Detail, apiErr.Detail)
				assert.Equal(t, tt.wantResult, result)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantResult, result)
			}
		})
	}
}

func TestUnregister(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse string
		status         int
		wantResult     Result
		wantStatus     int
	}{
		{
			name:           "success",
			serverResponse: `{"message":"Removed x@mergington.edu from Chess Club"}`,
			status:         http.StatusOK,
			wantResult:     Result{Message: "Removed x@mergington.edu from Chess Club"},
		},
		{
			name:           "success with non json body",
			serverResponse: `done`,
			status:         http.StatusOK,
			wantResult:     Result{},
		},
		{
			name:           "not found",
			serverResponse: `{"detail":"Participant not found"}`,
			status:         http.StatusNotFound,
			wantResult:     Result{Detail: "Participant not found"},
			wantStatus:     http.StatusNotFound,
		},
		{
			name:           "failure with non json body",
			serverResponse: `<html>bad gateway</html>`,
			status:         http.StatusBadGateway,
			wantResult:     Result{},
			wantStatus:     http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/activities/Chess%20Club/participants", r.URL.EscapedPath())
				assert.Equal(t, "x@mergington.edu", r.URL.Query().Get("email"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.serverResponse))
			}))
			defer ts.Close()

			client, err := New(ts.URL)
			require.NoError(t, err)
			result, err := client.Unregister(context.Background(), "Chess Club", "x@mergington.edu")

			assert.Equal(t, tt.wantResult, result)
			if tt.wantStatus == 0 {
				require.NoError(t, err)
				return
			}
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
		})
	}
}
