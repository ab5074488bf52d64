package ratelimit

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultOptimisticWait = 0.5
	absoluteMaxWait       = 10.0
	disabledWait          = 0.1
)

// optimisticDefaults seeds the very first wait time for an engine this
// tracker has never seen an outcome from, before any learning has happened.
var optimisticDefaults = map[string]float64{
	"local":  0.0,
	"searxng": 0.1,
}

// Config seeds a Tracker's learning parameters.
type Config struct {
	MemoryWindow int
	Exploration  float64
	Learning     float64
	DecayPerDay  float64
	Enabled      bool
	Profile      Profile
}

func (c Config) withDefaults() Config {
	if c.MemoryWindow <= 0 {
		c.MemoryWindow = 100
	}
	if c.Exploration <= 0 {
		c.Exploration = 0.1
	}
	if c.Learning <= 0 {
		c.Learning = 0.3
	}
	if c.DecayPerDay <= 0 {
		c.DecayPerDay = 0.95
	}
	if c.Profile == "" {
		c.Profile = ProfileBalanced
	}
	return c
}

// applyProfile scales exploration/learning the way conservative and
// aggressive profiles do: conservative trades speed for caution, aggressive
// trades caution for faster convergence.
func applyProfile(cfg Config) Config {
	switch cfg.Profile {
	case ProfileConservative:
		cfg.Exploration = min64(cfg.Exploration*0.5, 0.05)
		cfg.Learning = min64(cfg.Learning*0.7, 0.2)
	case ProfileAggressive:
		cfg.Exploration = min64(cfg.Exploration*1.5, 0.2)
		cfg.Learning = min64(cfg.Learning*1.3, 0.5)
	}
	return cfg
}

type memEstimate struct {
	base, min, max, confidence float64
}

// Tracker learns a wait-time estimate per search engine from observed
// outcomes, balancing exploration of faster rates against exploitation of
// the recent successful rate. It is safe for concurrent use.
type Tracker struct {
	cfg   Config
	store Store

	mu        sync.Mutex
	estimates map[string]memEstimate
	recent    map[string][]Attempt // bounded to cfg.MemoryWindow per engine

	now  func() time.Time
	rand func() float64
}

// NewTracker constructs a Tracker and loads any previously learned estimates
// from store, applying time-based decay to their confidence.
func NewTracker(ctx context.Context, store Store, cfg Config) (*Tracker, error) {
	cfg = applyProfile(cfg.withDefaults())
	t := &Tracker{
		cfg:       cfg,
		store:     store,
		estimates: make(map[string]memEstimate),
		recent:    make(map[string][]Attempt),
		now:       time.Now,
		rand:      rand.Float64,
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	estimates, err := store.LoadEstimates(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("rate limit: could not load estimates, starting empty")
		return t, nil
	}
	nowUnix := float64(t.now().Unix())
	for _, e := range estimates {
		ageHours := (nowUnix - e.LastUpdated) / 3600
		decay := math.Pow(cfg.DecayPerDay, ageHours/24)
		t.estimates[e.EngineType] = memEstimate{base: e.BaseWaitSeconds, min: e.MinWaitSeconds, max: e.MaxWaitSeconds, confidence: decay}
	}
	return t, nil
}

// GetWaitTime returns the wait time to use before hitting engineType next.
func (t *Tracker) GetWaitTime(engineType string) float64 {
	if !t.cfg.Enabled {
		return disabledWait
	}

	t.mu.Lock()
	est, ok := t.estimates[engineType]
	t.mu.Unlock()

	if !ok {
		if w, known := optimisticDefaults[engineType]; known {
			return w
		}
		return defaultOptimisticWait
	}

	var wait float64
	if t.rand() < t.cfg.Exploration {
		wait = est.base * (0.5 + t.rand()*0.4) // uniform(0.5, 0.9)
	} else {
		wait = est.base * (0.9 + t.rand()*0.2) // uniform(0.9, 1.1)
	}
	if wait < est.min {
		wait = est.min
	}
	if wait > est.max {
		wait = est.max
	}
	return wait
}

// RecordOutcome records the result of a retry attempt and updates the
// learned estimate for engineType. No-op when the tracker is disabled.
func (t *Tracker) RecordOutcome(ctx context.Context, engineType string, waitTime float64, success bool, retryCount int, errorType string, searchResultCount *int) {
	if !t.cfg.Enabled {
		return
	}

	a := Attempt{
		EngineType:        engineType,
		Timestamp:         float64(t.now().Unix()),
		WaitTime:          waitTime,
		RetryCount:        retryCount,
		Success:           success,
		ErrorType:         errorType,
		SearchResultCount: searchResultCount,
	}
	if err := t.store.InsertAttempt(ctx, a); err != nil {
		log.Error().Err(err).Str("engine", engineType).Msg("rate limit: failed to persist attempt")
	}

	t.mu.Lock()
	window := t.cfg.MemoryWindow
	attempts := append(t.recent[engineType], a)
	if len(attempts) > window {
		attempts = attempts[len(attempts)-window:]
	}
	t.recent[engineType] = attempts
	t.mu.Unlock()

	t.updateEstimate(ctx, engineType)
}

// updateEstimate recomputes the base/min/max estimate for engineType from
// its recent attempt history, blending the new observation in via an
// exponential moving average.
func (t *Tracker) updateEstimate(ctx context.Context, engineType string) {
	t.mu.Lock()
	attempts := append([]Attempt(nil), t.recent[engineType]...)
	oldEstimate, hadEstimate := t.estimates[engineType]
	t.mu.Unlock()

	if len(attempts) < 3 {
		return
	}

	var successfulWaits, failedWaits []float64
	for _, a := range attempts {
		if a.Success {
			successfulWaits = append(successfulWaits, a.WaitTime)
		} else {
			failedWaits = append(failedWaits, a.WaitTime)
		}
	}

	var newBase float64
	if len(successfulWaits) == 0 {
		if len(failedWaits) > 0 {
			newBase = maxOf(failedWaits) * 1.5
		} else {
			newBase = absoluteMaxWait
		}
		newBase = min64(newBase, absoluteMaxWait)
	} else {
		sort.Float64s(successfulWaits)
		newBase = successfulWaits[int(float64(len(successfulWaits))*0.75)]
	}

	if hadEstimate {
		newBase = (1-t.cfg.Learning)*oldEstimate.base + t.cfg.Learning*newBase
	}
	newBase = min64(newBase, absoluteMaxWait)

	minWait := max64(0.5, newBase*0.5)
	maxWait := min64(absoluteMaxWait, newBase*3.0)
	confidence := min64(float64(len(attempts))/20.0, 1.0)

	successRate := 0.0
	if len(attempts) > 0 {
		successRate = float64(len(successfulWaits)) / float64(len(attempts))
	}

	t.mu.Lock()
	t.estimates[engineType] = memEstimate{base: newBase, min: minWait, max: maxWait, confidence: confidence}
	t.mu.Unlock()

	est := Estimate{
		EngineType:      engineType,
		BaseWaitSeconds: newBase,
		MinWaitSeconds:  minWait,
		MaxWaitSeconds:  maxWait,
		LastUpdated:     float64(t.now().Unix()),
		TotalAttempts:   len(attempts),
		SuccessRate:     successRate,
	}
	if err := t.store.UpsertEstimate(ctx, est); err != nil {
		log.Error().Err(err).Str("engine", engineType).Msg("rate limit: failed to persist estimate")
	}
}

// ResetEngine discards learned state for engineType, both the persisted
// estimate/attempt history and the in-memory cache.
func (t *Tracker) ResetEngine(ctx context.Context, engineType string) error {
	err := t.store.DeleteEngine(ctx, engineType)
	t.mu.Lock()
	delete(t.estimates, engineType)
	delete(t.recent, engineType)
	t.mu.Unlock()
	return err
}

// CleanupOldData removes attempt history older than the given age.
func (t *Tracker) CleanupOldData(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := float64(t.now().Add(-maxAge).Unix())
	return t.store.DeleteAttemptsOlderThan(ctx, cutoff)
}

// Stats returns a snapshot of the current learned estimate for an engine,
// or false if nothing has been learned yet.
func (t *Tracker) Stats(engineType string) (Estimate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.estimates[engineType]
	if !ok {
		return Estimate{}, false
	}
	attempts := t.recent[engineType]
	successRate := 0.0
	if len(attempts) > 0 {
		n := 0
		for _, a := range attempts {
			if a.Success {
				n++
			}
		}
		successRate = float64(n) / float64(len(attempts))
	}
	return Estimate{
		EngineType:      engineType,
		BaseWaitSeconds: e.base,
		MinWaitSeconds:  e.min,
		MaxWaitSeconds:  e.max,
		TotalAttempts:   len(attempts),
		SuccessRate:     successRate,
	}, true
}

// AllStats returns a snapshot of every engine with a learned estimate,
// sorted by engine name, for CLI surfaces that list all engines at once.
func (t *Tracker) AllStats() []Estimate {
	t.mu.Lock()
	engines := make([]string, 0, len(t.estimates))
	for name := range t.estimates {
		engines = append(engines, name)
	}
	t.mu.Unlock()

	sort.Strings(engines)
	out := make([]Estimate, 0, len(engines))
	for _, name := range engines {
		if e, ok := t.Stats(name); ok {
			out = append(out, e)
		}
	}
	return out
}

// QualityStatus classifies recent average result counts for an engine, used
// to surface when a search engine is silently returning degraded results.
func QualityStatus(recentAvg float64) string {
	switch {
	case recentAvg < 1:
		return "CRITICAL"
	case recentAvg < 3:
		return "WARNING"
	case recentAvg < 5:
		return "CAUTION"
	case recentAvg >= 10:
		return "EXCELLENT"
	default:
		return "GOOD"
	}
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
