package collector

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Sampler produces one raw connection listing for a set of PIDs. The
// engine never shells out directly; tests substitute a fake Sampler.
type Sampler interface {
	Sample(ctx context.Context, pids []int32) (string, error)
}

// LsofSampler invokes lsof for internet sockets of the given PIDs.
// -P and -n suppress port and host resolution so output is stable.
type LsofSampler struct {
	timeout time.Duration
}

func NewLsofSampler(timeout time.Duration) *LsofSampler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &LsofSampler{timeout: timeout}
}

func (s *LsofSampler) Sample(ctx context.Context, pids []int32) (string, error) {
	if len(pids) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	parts := make([]string, len(pids))
	for i, pid := range pids {
		parts[i] = strconv.Itoa(int(pid))
	}

	out, err := exec.CommandContext(ctx, "lsof", "-i", "-P", "-n", "-a", "-p", strings.Join(parts, ",")).Output()
	if err != nil {
		// lsof exits 1 when the PIDs hold no internet sockets at all.
		// That is an empty listing, not a failure.
		if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 1 && len(out) == 0 {
			return "", nil
		}
		return "", fmt.Errorf("lsof failed: %w", err)
	}

	return string(out), nil
}

// CheckLsof reports whether the listing utility is available at all.
// Called once at startup; its absence is the only fatal condition.
func CheckLsof() error {
	if _, err := exec.LookPath("lsof"); err != nil {
		return fmt.Errorf("lsof not found in PATH: %w", err)
	}
	return nil
}
