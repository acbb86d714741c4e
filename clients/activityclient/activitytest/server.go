// Package activitytest provides an in-memory implementation of the
// activities API for tests and local development.
//
//	srv := activitytest.NewServer(activitytest.DefaultRoster())
//	defer srv.Close()
//	client, _ := activityclient.New(srv.URL)
package activitytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/nomis52/clubboard/clients/activityclient"
)

// DefaultRoster returns the seed data used by the development server.
func DefaultRoster() activityclient.Roster {
	return activityclient.Roster{
		"Chess Club": {
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		"Programming Class": {
			Description:     "Learn programming fundamentals and build software projects",
			Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"emma@mergington.edu", "sophia@mergington.edu"},
		},
		"Gym Class": {
			Description:     "Physical education and sports activities",
			Schedule:        "Mondays, Wednesdays, Fridays, 2:00 PM - 3:00 PM",
			MaxParticipants: 30,
			Participants:    []string{"john@mergington.edu", "olivia@mergington.edu"},
		},
	}
}

// Store holds the roster behind the fake API.
type Store struct {
	mu     sync.Mutex
	roster activityclient.Roster

	listCalls       atomic.Int32
	signupCalls     atomic.Int32
	unregisterCalls atomic.Int32
}

// NewStore creates a Store seeded with a copy of roster.
func NewStore(roster activityclient.Roster) *Store {
	return &Store{roster: cloneRoster(roster)}
}

// Roster returns a copy of the current roster.
func (s *Store) Roster() activityclient.Roster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRoster(s.roster)
}

// ListCalls returns how many times GET /activities was served.
func (s *Store) ListCalls() int { return int(s.listCalls.Load()) }

// SignupCalls returns how many signup requests were served.
func (s *Store) SignupCalls() int { return int(s.signupCalls.Load()) }

// UnregisterCalls returns how many unregister requests were served.
func (s *Store) UnregisterCalls() int { return int(s.unregisterCalls.Load()) }

// Handler returns the HTTP handler serving the API.
func (s *Store) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /activities", s.handleList)
	mux.HandleFunc("POST /activities/{name}/signup", s.handleSignup)
	mux.HandleFunc("DELETE /activities/{name}/participants", s.handleUnregister)
	return mux
}

// Server is a running fake API.
type Server struct {
	*httptest.Server
	Store *Store
}

// NewServer starts a fake API seeded with roster.
func NewServer(roster activityclient.Roster) *Server {
	store := NewStore(roster)
	return &Server{
		Server: httptest.NewServer(store.Handler()),
		Store:  store,
	}
}

func (s *Store) handleList(w http.ResponseWriter, r *http.Request) {
	s.listCalls.Add(1)
	writeJSON(w, http.StatusOK, s.Roster())
}

func (s *Store) handleSignup(w http.ResponseWriter, r *http.Request) {
	s.signupCalls.Add(1)
	name := r.PathValue("name")
	email := r.URL.Query().Get("email")

	s.mu.Lock()
	defer s.mu.Unlock()

	activity, ok := s.roster[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, activityclient.Result{Detail: "Activity not found"})
		return
	}
	if slices.Contains(activity.Participants, email) {
		writeJSON(w, http.StatusBadRequest, activityclient.Result{Detail: "Student is already signed up"})
		return
	}
	if activity.SpotsLeft() <= 0 {
		writeJSON(w, http.StatusBadRequest, activityclient.Result{Detail: "Activity is full"})
		return
	}

	activity.Participants = append(activity.Participants, email)
	s.roster[name] = activity
	writeJSON(w, http.StatusOK, activityclient.Result{Message: fmt.Sprintf("Signed up %s for %s", email, name)})
}

func (s *Store) handleUnregister(w http.ResponseWriter, r *http.Request) {
	s.unregisterCalls.Add(1)
	name := r.PathValue("name")
	email := r.URL.Query().Get("email")

	s.mu.Lock()
	defer s.mu.Unlock()

	activity, ok := s.roster[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, activityclient.Result{Detail: "Activity not found"})
		return
	}
	idx := slices.Index(activity.Participants, email)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, activityclient.Result{Detail: "Participant not found"})
		return
	}

	activity.Participants = slices.Delete(activity.Participants, idx, idx+1)
	s.roster[name] = activity
	writeJSON(w, http.StatusOK, activityclient.Result{Message: fmt.Sprintf("Removed %s from %s", email, name)})
}

func cloneRoster(in activityclient.Roster) activityclient.Roster {
	out := make(activityclient.Roster, len(in))
	for name, a := range in {
		a.Participants = slices.Clone(a.Participants)
		if a.Participants == nil {
			a.Participants = []string{}
		}
		out[name] = a
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
