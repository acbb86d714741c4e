package activityclient

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMalformedResponse is returned when a response body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response body")

// Activity is a single entry of the roster as returned by GET /activities.
type Activity struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft returns the number of free places. It is negative when the
// activity is over-subscribed.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// Roster maps activity names to activities.
type Roster map[string]Activity

// Names returns the activity names in sorted order.
func (r Roster) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result is the body of a signup or unregister response. Successful calls
// carry Message, failed calls may carry Detail.
type Result struct {
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	// Detail is the server supplied reason, empty if the body had none.
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Detail)
}
