package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded for board operations.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected" // the API answered with a non-2xx status
	OutcomeFailed   = "failed"   // the request did not complete or the body was unusable
)

// BoardMetrics records what activity boards do. A nil *BoardMetrics is valid
// and records nothing.
type BoardMetrics struct {
	fetches      CounterVec
	signups      CounterVec
	unregisters  CounterVec
	staleRenders Counter
	activities   Gauge
	participants GaugeVec

	mu      sync.Mutex
	present map[string]struct{}
}

// NewBoardMetrics creates the board metrics in reg.
func NewBoardMetrics(reg Registry) (*BoardMetrics, error) {
	var (
		m   BoardMetrics
		err error
	)

	m.fetches, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_fetches_total",
		Help: "Roster fetches by outcome",
	}, []string{"outcome"})
	if err != nil {
		return nil, fmt.Errorf("creating fetch counter: %w", err)
	}

	m.signups, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: "signups_total",
		Help: "Signup submissions by outcome",
	}, []string{"outcome"})
	if err != nil {
		return nil, fmt.Errorf("creating signup counter: %w", err)
	}

	m.unregisters, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: "unregisters_total",
		Help: "Participant removals by outcome",
	}, []string{"outcome"})
	if err != nil {
		return nil, fmt.Errorf("creating unregister counter: %w", err)
	}

	m.staleRenders, err = reg.NewCounter(prometheus.CounterOpts{
		Name: "stale_renders_discarded_total",
		Help: "Fetch results dropped because a newer render was already applied",
	})
	if err != nil {
		return nil, fmt.Errorf("creating stale render counter: %w", err)
	}

	m.activities, err = reg.NewGauge(prometheus.GaugeOpts{
		Name: "activities",
		Help: "Number of activities in the last rendered roster",
	})
	if err != nil {
		return nil, fmt.Errorf("creating activities gauge: %w", err)
	}

	m.participants, err = reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "activity_participants",
		Help: "Participants per activity in the last rendered roster",
	}, []string{"activity"})
	if err != nil {
		return nil, fmt.Errorf("creating participants gauge: %w", err)
	}

	return &m, nil
}

// ObserveFetch records a roster fetch.
func (m *BoardMetrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetches.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// ObserveSignup records a signup submission.
func (m *BoardMetrics) ObserveSignup(outcome string) {
	if m == nil {
		return
	}
	m.signups.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// ObserveUnregister records a participant removal.
func (m *BoardMetrics) ObserveUnregister(outcome string) {
	if m == nil {
		return
	}
	m.unregisters.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// ObserveStaleRender records a discarded fetch result.
func (m *BoardMetrics) ObserveStaleRender() {
	if m == nil {
		return
	}
	m.staleRenders.Inc()
}

// ObserveRoster records the size of a rendered roster.
func (m *BoardMetrics) ObserveRoster(participants map[string]int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.activities.Set(float64(len(participants)))
	for name := range m.present {
		if _, ok := participants[name]; !ok {
			m.participants.Delete(prometheus.Labels{"activity": name})
		}
	}
	m.present = make(map[string]struct{}, len(participants))
	for name, n := range participants {
		m.participants.With(prometheus.Labels{"activity": name}).Set(float64(n))
		m.present[name] = struct{}{}
	}
}
