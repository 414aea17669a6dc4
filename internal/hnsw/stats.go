package hnsw

// LevelStats holds per-layer statistics.
type LevelStats struct {
	Level       int
	Nodes       int
	Connections int
}

// Stats holds a snapshot of the graph's shape.
type Stats struct {
	Count      int
	MaxLevel   int
	EntryPoint uint32
	M          int
	EF         int
	Levels     []LevelStats
}

// Stats returns statistics about the HNSW graph.
func (h *HNSW) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := Stats{
		Count:      h.count,
		MaxLevel:   h.maxLevel,
		EntryPoint: uint32(h.entryPoint),
		M:          h.maxConnectionsPerLayer,
		EF:         h.opts.EF,
	}
	if h.maxLevel < 0 {
		return stats
	}

	stats.Levels = make([]LevelStats, h.maxLevel+1)
	for i := range stats.Levels {
		stats.Levels[i].Level = i
	}
	for _, n := range h.nodes {
		if n == nil {
			continue
		}
		for l := 0; l <= n.level && l <= h.maxLevel; l++ {
			stats.Levels[l].Nodes++
			stats.Levels[l].Connections += len(n.neighbors[l])
		}
	}
	return stats
}
