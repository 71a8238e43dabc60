package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rcastellanos/climawatch/internal/weather"
)

// ErrNotFound is returned when a city has no stored data.
var ErrNotFound = errors.New("store: not found")

// MemoryStore keeps observations, forecasts and job run locks in memory.
// Observations are bounded per city by count and age.
type MemoryStore struct {
	mu         sync.RWMutex
	obs        map[string][]weather.Observation
	forecasts  map[string][]weather.ForecastEntry
	runs       map[string]time.Time
	maxHistory int
	maxAge     time.Duration

	now func() time.Time
}

// NewMemoryStore creates a MemoryStore. maxHistory bounds the number of
// observations retained per city and maxAge their age; non-positive
// values disable the corresponding bound.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		obs:        make(map[string][]weather.Observation),
		forecasts:  make(map[string][]weather.ForecastEntry),
		runs:       make(map[string]time.Time),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveObservation appends an observation and applies the retention bounds.
func (m *MemoryStore) SaveObservation(obs weather.Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.obs[obs.CityCode], obs)
	sort.Slice(list, func(i, j int) bool { return list[i].At.Before(list[j].At) })

	if m.maxAge > 0 {
		cutoff := m.now().Add(-m.maxAge)
		kept := list[:0]
		for _, o := range list {
			if !o.At.Before(cutoff) {
				kept = append(kept, o)
			}
		}
		list = kept
	}
	if m.maxHistory > 0 && len(list) > m.maxHistory {
		list = list[len(list)-m.maxHistory:]
	}

	m.obs[obs.CityCode] = list
}

// LatestObservation returns the newest observation for a city.
func (m *MemoryStore) LatestObservation(code string) (weather.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.obs[code]
	if len(list) == 0 {
		return weather.Observation{}, ErrNotFound
	}
	return list[len(list)-1], nil
}

// ObservationRange returns observations for a city with At in [from, to].
func (m *MemoryStore) ObservationRange(code string, from, to time.Time) ([]weather.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.obs[code]
	if len(list) == 0 {
		return nil, ErrNotFound
	}

	var out []weather.Observation
	for _, o := range list {
		if o.At.Before(from) || o.At.After(to) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// SaveForecast replaces the stored forecast for a city.
func (m *MemoryStore) SaveForecast(code string, entries []weather.ForecastEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]weather.ForecastEntry, len(entries))
	copy(copied, entries)
	m.forecasts[code] = copied
}

// LatestForecast returns the stored forecast for a city.
func (m *MemoryStore) LatestForecast(code string) ([]weather.ForecastEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries, ok := m.forecasts[code]
	if !ok || len(entries) == 0 {
		return nil, ErrNotFound
	}

	out := make([]weather.ForecastEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// AcquireRun claims a job's schedule window. It returns false when the
// same window was already claimed, which makes duplicate triggers no-ops.
func (m *MemoryStore) AcquireRun(job string, window time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.runs[job]; ok && last.Equal(window) {
		return false
	}
	m.runs[job] = window
	return true
}

// SetClock overrides the store's timestamp source. Intended for tests.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
