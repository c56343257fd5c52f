package collector

import (
	"context"
	"fmt"
	"sort"

	"github.com/bimawa/netmonrs/pkg/types"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStatsCollector reads CPU and memory usage for the monitored
// PIDs, shown in the dashboard header.
type ProcessStatsCollector struct {
	procs map[int32]*process.Process
}

func NewProcessStatsCollector() *ProcessStatsCollector {
	return &ProcessStatsCollector{
		procs: make(map[int32]*process.Process),
	}
}

// Collect returns stats for each PID, sorted by PID. PIDs that vanished
// mid-call are silently dropped; the next resolve cycle prunes them.
func (pc *ProcessStatsCollector) Collect(ctx context.Context, pids []int32) ([]types.ProcessStats, error) {
	current := make(map[int32]bool, len(pids))

	var stats []types.ProcessStats
	for _, pid := range pids {
		current[pid] = true

		proc, ok := pc.procs[pid]
		if !ok {
			var err error
			proc, err = process.NewProcessWithContext(ctx, pid)
			if err != nil {
				continue
			}
			pc.procs[pid] = proc
		}

		name, _ := proc.NameWithContext(ctx)
		if name == "" {
			name = fmt.Sprintf("PID %d", pid)
		}

		// Percent over the interval since the previous call; the
		// cached Process carries the prior CPU times.
		cpu, _ := proc.PercentWithContext(ctx, 0)

		var rss uint64
		if mem, err := proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
			rss = mem.RSS
		}

		stats = append(stats, types.ProcessStats{
			PID:        pid,
			Name:       name,
			CPUPercent: cpu,
			RSS:        rss,
		})
	}

	for pid := range pc.procs {
		if !current[pid] {
			delete(pc.procs, pid)
		}
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].PID < stats[j].PID })
	return stats, nil
}
