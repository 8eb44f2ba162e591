// Package aggregator maintains bounded per-asset sentiment histories and
// answers windowed-statistics queries on demand. Statistics are recomputed
// per query rather than maintained incrementally; windows are small and
// query frequency is one evaluation cycle.
package aggregator

import (
	"sort"
	"sync"

	"sentiment-lab/internal/domain"
)

// DefaultCapacity bounds the per-asset observation history.
const DefaultCapacity = 1000

// assetHistory is a ring buffer of observations for one asset.
type assetHistory struct {
	mu   sync.RWMutex
	buf  []domain.SentimentObservation
	head int // index of the oldest entry once full
	full bool
}

func (h *assetHistory) append(obs domain.SentimentObservation) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.full {
		h.buf[h.head] = obs
		h.head = (h.head + 1) % len(h.buf)
		return
	}

	h.buf = append(h.buf, obs)
	if len(h.buf) == cap(h.buf) {
		h.full = true
	}
}

// snapshot returns entries in insertion order.
func (h *assetHistory) snapshot() []domain.SentimentObservation {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.SentimentObservation, 0, len(h.buf))
	if h.full {
		out = append(out, h.buf[h.head:]...)
		out = append(out, h.buf[:h.head]...)
		return out
	}
	return append(out, h.buf...)
}

// Aggregator holds per-asset sentiment histories. Safe for concurrent Add
// from multiple producers and concurrent Query from the evaluation loop.
type Aggregator struct {
	capacity int

	mu     sync.RWMutex
	assets map[string]*assetHistory
}

// New creates an Aggregator with the given per-asset capacity.
// Non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Aggregator{
		capacity: capacity,
		assets:   make(map[string]*assetHistory),
	}
}

// Add appends an observation to its asset's history, evicting the oldest
// entry once capacity is exceeded. Malformed inputs are the producer's
// contract violation and are rejected at the ingestion boundary, not here.
func (a *Aggregator) Add(obs domain.SentimentObservation) {
	a.mu.RLock()
	h := a.assets[obs.Asset]
	a.mu.RUnlock()

	if h == nil {
		a.mu.Lock()
		h = a.assets[obs.Asset]
		if h == nil {
			h = &assetHistory{buf: make([]domain.SentimentObservation, 0, a.capacity)}
			a.assets[obs.Asset] = h
		}
		a.mu.Unlock()
	}

	h.append(obs)
}

// Assets returns the tracked asset symbols in sorted order.
func (a *Aggregator) Assets() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, len(a.assets))
	for asset := range a.assets {
		out = append(out, asset)
	}
	sort.Strings(out)
	return out
}

// Query computes windowed statistics for an asset over the trailing
// windowSeconds relative to nowMs. Returns nil when no observations fall
// inside the window; callers treat this as "no signal", not an error.
func (a *Aggregator) Query(asset string, windowSeconds int, nowMs int64) *domain.AggregatedWindow {
	a.mu.RLock()
	h := a.assets[asset]
	a.mu.RUnlock()

	if h == nil {
		return nil
	}

	cutoff := nowMs - int64(windowSeconds)*1000

	var recent []domain.SentimentObservation
	for _, obs := range h.snapshot() {
		if obs.TimestampMs >= cutoff && obs.TimestampMs <= nowMs {
			recent = append(recent, obs)
		}
	}
	if len(recent) == 0 {
		return nil
	}

	// Producers may deliver out of order; momentum needs chronological order.
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].TimestampMs < recent[j].TimestampMs
	})

	// Window statistics follow from a single pass plus the half-split
	// momentum below.
	var scoreSum, confSum, volSum, weightedSum float64
	sources := make(map[domain.Source]domain.SourceStats)
	for _, obs := range recent {
		scoreSum += obs.Score
		confSum += obs.Confidence
		volSum += obs.VolumeProxy
		weightedSum += obs.Score * obs.VolumeProxy

		st := sources[obs.Source]
		st.Count++
		st.MeanScore += obs.Score
		sources[obs.Source] = st
	}
	for src, st := range sources {
		st.MeanScore /= float64(st.Count)
		sources[src] = st
	}

	n := float64(len(recent))
	meanScore := scoreSum / n

	volumeWeighted := meanScore
	if volSum > 0 {
		volumeWeighted = weightedSum / volSum
	}

	return &domain.AggregatedWindow{
		Asset:               asset,
		TimestampMs:         nowMs,
		WindowSeconds:       windowSeconds,
		SampleCount:         len(recent),
		MeanScore:           meanScore,
		VolumeWeightedScore: volumeWeighted,
		Momentum:            momentum(recent),
		MeanConfidence:      confSum / n,
		Sources:             sources,
	}
}

// momentum is mean(score) of the chronologically later half minus mean(score)
// of the earlier half. The later half is the last n/2 entries; with an odd
// sample count the middle entry belongs to the earlier half. Zero with fewer
// than 2 entries.
func momentum(recent []domain.SentimentObservation) float64 {
	n := len(recent)
	if n < 2 {
		return 0
	}
	mid := n - n/2

	var older, later float64
	for i, obs := range recent {
		if i < mid {
			older += obs.Score
		} else {
			later += obs.Score
		}
	}
	return later/float64(n-mid) - older/float64(mid)
}
