package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/air-quality-prediction/internal/airq"
)

// MemoryStore is a concurrency-safe in-memory implementation of airq.Store.
// It backs tests and ephemeral deployments; nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	// key: lowercased city name, value: observations ordered by timestamp
	observations map[string][]airq.Observation
	locations    map[string]airq.MonitoredLocation

	nextID int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		observations: make(map[string][]airq.Observation),
		locations:    make(map[string]airq.MonitoredLocation),
	}
}

// InsertObservation appends an observation, keeping the per-city history
// ordered by timestamp.
func (s *MemoryStore) InsertObservation(ctx context.Context, obs airq.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	obs.ID = s.nextID

	key := strings.ToLower(obs.City)
	history := append(s.observations[key], obs)

	// Collectors insert in order; backfills may not.
	if n := len(history); n > 1 && history[n-1].Timestamp.Before(history[n-2].Timestamp) {
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].Timestamp.Before(history[j].Timestamp)
		})
	}
	s.observations[key] = history

	return nil
}

// ObservationsByCity returns all observations for a city between from and to
// (inclusive), ordered by timestamp ascending.
func (s *MemoryStore) ObservationsByCity(ctx context.Context, city string, from, to time.Time) ([]airq.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []airq.Observation
	for _, obs := range s.observations[strings.ToLower(city)] {
		if (obs.Timestamp.Equal(from) || obs.Timestamp.After(from)) &&
			(obs.Timestamp.Equal(to) || obs.Timestamp.Before(to)) {
			result = append(result, obs)
		}
	}

	return result, nil
}

// LatestObservation returns the most recent observation for a city.
func (s *MemoryStore) LatestObservation(ctx context.Context, city string) (airq.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.observations[strings.ToLower(city)]
	if len(history) == 0 {
		return airq.Observation{}, airq.ErrNoData
	}
	return history[len(history)-1], nil
}

// UpsertLocation inserts the location or replaces the entry with the same
// city name.
func (s *MemoryStore) UpsertLocation(ctx context.Context, loc airq.MonitoredLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locations[loc.Key()] = loc
	return nil
}

// LocationByCity looks a location up by city name, case-insensitively.
func (s *MemoryStore) LocationByCity(ctx context.Context, city string) (airq.MonitoredLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.locations[strings.ToLower(city)]
	if !ok {
		return airq.MonitoredLocation{}, airq.ErrNoData
	}
	return loc, nil
}

// ListActiveLocations returns all active locations ordered by city name.
func (s *MemoryStore) ListActiveLocations(ctx context.Context) ([]airq.MonitoredLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var locs []airq.MonitoredLocation
	for _, loc := range s.locations {
		if loc.IsActive {
			locs = append(locs, loc)
		}
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].City < locs[j].City })

	return locs, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
