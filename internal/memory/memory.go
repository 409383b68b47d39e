// Package memory retains a bounded history of past screen contexts,
// retrieves the ones relevant to a query context, and mines recurring
// usage patterns from them.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/glimpse/internal/logging"
	"github.com/normanking/glimpse/pkg/types"
)

// CompressionStrategy selects how old snapshots are condensed.
// Summarize and aggregate are declared but not yet implemented.
type CompressionStrategy string

const (
	CompressionNone      CompressionStrategy = "none"
	CompressionSummarize CompressionStrategy = "summarize"
	CompressionAggregate CompressionStrategy = "aggregate"
)

// Config holds memory tuning knobs.
type Config struct {
	// MaxHistorySize bounds the retained snapshot count (most-recent-N).
	MaxHistorySize int
	// PatternThreshold is the minimum group size for a mined pattern.
	PatternThreshold int
	// RetentionPeriod is how long snapshots survive before cleanup.
	RetentionPeriod time.Duration
	// Compression selects the snapshot compression strategy.
	Compression CompressionStrategy
	// CleanupInterval is how often the background cleanup runs.
	CleanupInterval time.Duration
	// PersistPath enables the SQLite snapshot store when non-empty.
	PersistPath string
}

// DefaultConfig returns sensible memory defaults.
func DefaultConfig() Config {
	return Config{
		MaxHistorySize:   1000,
		PatternThreshold: 3,
		RetentionPeriod:  7 * 24 * time.Hour,
		Compression:      CompressionNone,
		CleanupInterval:  time.Hour,
	}
}

// Pattern confidence divisors per family: confidence = min(1, count/K).
const (
	environmentPatternK = 20
	activityPatternK    = 15
	temporalPatternK    = 10
	combinedPatternK    = 10
)

// Memory owns the snapshot history and the pattern map. All mutation goes
// through its methods; callers sharing one instance across goroutines are
// serialized by the internal mutex.
type Memory struct {
	cfg   Config
	log   zerolog.Logger
	store SnapshotStore

	mu       sync.RWMutex
	history  []types.ContextSnapshot
	patterns map[string]types.ContextPattern

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Memory and starts its background cleanup timer. Callers
// must Close the instance on teardown so the timer does not leak. When
// cfg.PersistPath is set, previously persisted snapshots are loaded back.
func New(cfg Config) (*Memory, error) {
	if cfg.MaxHistorySize <= 0 {
		return nil, fmt.Errorf("memory: max history size must be positive, got %d", cfg.MaxHistorySize)
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}

	m := &Memory{
		cfg:      cfg,
		log:      logging.For("memory"),
		patterns: make(map[string]types.ContextPattern),
		stopCh:   make(chan struct{}),
	}

	if cfg.PersistPath != "" {
		store, err := OpenSQLiteSnapshotStore(cfg.PersistPath)
		if err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		m.store = store

		history, err := store.Load()
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("load snapshot history: %w", err)
		}
		// The persisted history may exceed the configured bound when the
		// limit was lowered between runs; keep the most recent entries.
		if cfg.MaxHistorySize > 0 && len(history) > cfg.MaxHistorySize {
			history = history[len(history)-cfg.MaxHistorySize:]
		}
		m.history = history
		for i := range history {
			m.updateCombinedPattern(history[i])
		}
		m.log.Info().Int("snapshots", len(history)).Msg("restored persisted history")
	}

	go m.cleanupLoop()

	return m, nil
}

// Close stops the background cleanup timer and closes the snapshot store.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := m.Cleanup(); removed > 0 {
				m.log.Debug().Int("removed", removed).Msg("retention cleanup")
			}
		case <-m.stopCh:
			return
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// RECORD / RETRIEVE
// ═══════════════════════════════════════════════════════════════════════════════

// Record appends a snapshot for a completed interaction, evicts beyond the
// size bound (oldest first), and updates the combined pattern for the
// snapshot's environment-activity key.
func (m *Memory) Record(sc types.ScreenContext, userActions, outcomes []string, duration time.Duration) types.ContextSnapshot {
	snap := types.ContextSnapshot{
		Context:     sc,
		UserActions: userActions,
		Outcomes:    outcomes,
		Duration:    duration,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, snap)
	for len(m.history) > m.cfg.MaxHistorySize {
		evicted := m.history[0]
		m.history = m.history[1:]
		if m.store != nil {
			if err := m.store.Delete(evicted.Context.ID); err != nil {
				m.log.Warn().Err(err).Str("id", evicted.Context.ID).Msg("evict persisted snapshot")
			}
		}
	}

	if m.store != nil {
		if err := m.store.Save(snap); err != nil {
			m.log.Warn().Err(err).Str("id", sc.ID).Msg("persist snapshot")
		}
	}

	m.updateCombinedPattern(snap)

	return snap
}

// Annotate attaches user actions, outcomes, and a measured duration to an
// already-recorded snapshot. Returns false when no snapshot with the given
// context ID is retained.
func (m *Memory) Annotate(contextID string, userActions, outcomes []string, duration time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.history {
		if m.history[i].Context.ID != contextID {
			continue
		}
		m.history[i].UserActions = append(m.history[i].UserActions, userActions...)
		m.history[i].Outcomes = append(m.history[i].Outcomes, outcomes...)
		if duration > 0 {
			m.history[i].Duration = duration
		}
		if m.store != nil {
			if err := m.store.Save(m.history[i]); err != nil {
				m.log.Warn().Err(err).Str("id", contextID).Msg("persist annotated snapshot")
			}
		}
		return true
	}
	return false
}

// updateCombinedPattern maintains the single combined <environment>-<activity>
// key: frequency 1 and confidence 0.1 on first occurrence, then
// confidence = min(1, frequency/10) on repeats. Callers hold the lock,
// except New, which runs before the Memory is published.
func (m *Memory) updateCombinedPattern(snap types.ContextSnapshot) {
	key := fmt.Sprintf("%s-%s", snap.Context.Environment, snap.Context.Activity)
	now := snap.Context.Timestamp

	existing, ok := m.patterns[key]
	if !ok {
		m.patterns[key] = types.ContextPattern{
			Key:        key,
			Dimension:  types.DimensionCombined,
			Frequency:  1,
			ContextIDs: []string{snap.Context.ID},
			Confidence: 0.1,
			FirstSeen:  now,
			LastSeen:   now,
		}
		return
	}

	updated := existing
	updated.Frequency++
	updated.ContextIDs = append(append([]string(nil), existing.ContextIDs...), snap.Context.ID)
	updated.Confidence = min1(float64(updated.Frequency) / combinedPatternK)
	updated.LastSeen = now
	m.patterns[key] = updated
}

// RelevantTo scores every retained snapshot against the query context,
// excluding the snapshot with the query's own ID, and returns at most
// maxResults best matches in descending score order.
func (m *Memory) RelevantTo(current types.ScreenContext, maxResults int) []types.ScoredSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scored := make([]types.ScoredSnapshot, 0, len(m.history))
	for _, snap := range m.history {
		if snap.Context.ID == current.ID {
			continue
		}
		scored = append(scored, types.ScoredSnapshot{
			Snapshot: snap,
			Score:    Relevance(current, snap),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if maxResults > 0 && len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	return scored
}

// Size returns the retained snapshot count.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.history)
}

// History returns a copy of the retained snapshots, oldest first.
func (m *Memory) History() []types.ContextSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.ContextSnapshot, len(m.history))
	copy(out, m.history)
	return out
}

// ═══════════════════════════════════════════════════════════════════════════════
// CLEANUP
// ═══════════════════════════════════════════════════════════════════════════════

// Cleanup removes snapshots older than the retention period and reports
// how many were dropped. It runs on the background timer and may also be
// invoked manually.
func (m *Memory) Cleanup() int {
	cutoff := time.Now().Add(-m.cfg.RetentionPeriod)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.history[:0]
	removed := 0
	for _, snap := range m.history {
		if snap.Context.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, snap)
	}
	m.history = m.compressSnapshots(kept)

	if removed > 0 && m.store != nil {
		if err := m.store.Prune(cutoff); err != nil {
			m.log.Warn().Err(err).Msg("prune persisted snapshots")
		}
	}

	return removed
}

// compressSnapshots is the hook for the summarize/aggregate compression
// strategies. Both are declared configuration values but not implemented;
// the hook returns its input unchanged.
func (m *Memory) compressSnapshots(snaps []types.ContextSnapshot) []types.ContextSnapshot {
	switch m.cfg.Compression {
	case CompressionSummarize, CompressionAggregate:
		// TODO: implement summarize/aggregate once the backend summary
		// endpoint is wired through the engine.
		return snaps
	default:
		return snaps
	}
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
