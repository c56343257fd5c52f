package collector

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Resolver maps a process name to the set of PIDs currently owning it.
// Matching follows pgrep -f: the target must appear in the process name or
// anywhere in its command line.
type Resolver struct {
	target string
}

func NewResolver(target string) *Resolver {
	return &Resolver{target: target}
}

func (r *Resolver) Target() string {
	return r.target
}

// Resolve returns the matching PIDs, sorted. An empty result is not an
// error; the target may simply not be running yet.
func (r *Resolver) Resolve(ctx context.Context) ([]int32, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	self := int32(os.Getpid())

	var pids []int32
	for _, p := range procs {
		if p.Pid == self {
			continue
		}

		name, _ := p.NameWithContext(ctx)
		if strings.Contains(name, r.target) {
			pids = append(pids, p.Pid)
			continue
		}

		cmdline, _ := p.CmdlineWithContext(ctx)
		if cmdline != "" && strings.Contains(cmdline, r.target) {
			pids = append(pids, p.Pid)
		}
	}

	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids, nil
}
