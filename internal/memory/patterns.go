package memory

import (
	"fmt"
	"sort"

	"github.com/normanking/glimpse/pkg/types"
)

// MinePatterns recomputes the three pattern families over the full
// retained history — grouped by environment, by activity, and by
// hour-of-day — and replaces the stored pattern map with the result.
// A group becomes a pattern only when its size meets the configured
// detection threshold. The computation is deterministic: mining twice
// with no intervening Record yields identical results.
func (m *Memory) MinePatterns() []types.ContextPattern {
	m.mu.Lock()
	defer m.mu.Unlock()

	mined := make(map[string]types.ContextPattern)

	m.mineFamily(mined, types.DimensionEnvironment, environmentPatternK, func(s types.ContextSnapshot) string {
		return fmt.Sprintf("env-%s", s.Context.Environment)
	})
	m.mineFamily(mined, types.DimensionActivity, activityPatternK, func(s types.ContextSnapshot) string {
		return fmt.Sprintf("activity-%s", s.Context.Activity)
	})
	m.mineFamily(mined, types.DimensionTemporal, temporalPatternK, func(s types.ContextSnapshot) string {
		return fmt.Sprintf("time-%d", s.Context.Timestamp.Hour())
	})

	m.patterns = mined

	result := make([]types.ContextPattern, 0, len(mined))
	for _, p := range mined {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// mineFamily groups the history by keyFn and emits one pattern per group
// meeting the detection threshold, with confidence min(1, count/K).
func (m *Memory) mineFamily(out map[string]types.ContextPattern, dim types.PatternDimension, k float64, keyFn func(types.ContextSnapshot) string) {
	groups := make(map[string][]types.ContextSnapshot)
	for _, snap := range m.history {
		key := keyFn(snap)
		groups[key] = append(groups[key], snap)
	}

	for key, snaps := range groups {
		if len(snaps) < m.cfg.PatternThreshold {
			continue
		}

		ids := make([]string, 0, len(snaps))
		for _, s := range snaps {
			ids = append(ids, s.Context.ID)
		}

		p := types.ContextPattern{
			Key:            key,
			Dimension:      dim,
			Frequency:      len(snaps),
			ContextIDs:     ids,
			CommonTriggers: topStrings(snaps, func(s types.ContextSnapshot) []string { return s.UserActions }),
			CommonOutcomes: topStrings(snaps, func(s types.ContextSnapshot) []string { return s.Outcomes }),
			Confidence:     min1(float64(len(snaps)) / k),
			FirstSeen:      snaps[0].Context.Timestamp,
			LastSeen:       snaps[len(snaps)-1].Context.Timestamp,
		}
		out[key] = p
	}
}

// Patterns returns a copy of the stored pattern map.
func (m *Memory) Patterns() map[string]types.ContextPattern {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]types.ContextPattern, len(m.patterns))
	for k, v := range m.patterns {
		out[k] = v
	}
	return out
}

// topStrings returns the up-to-three most frequent strings produced by
// extract across the group, ordered by count then lexically so the result
// is deterministic.
func topStrings(snaps []types.ContextSnapshot, extract func(types.ContextSnapshot) []string) []string {
	counts := make(map[string]int)
	for _, s := range snaps {
		for _, v := range extract(s) {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	if len(keys) > 3 {
		keys = keys[:3]
	}
	return keys
}
