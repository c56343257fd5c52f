package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimawa/netmonrs/internal/monitor"
)

// fakeSampler replays canned captures, standing in for lsof.
type fakeSampler struct {
	outputs []string
	errs    []error
	calls   int
}

func (f *fakeSampler) Sample(ctx context.Context, pids []int32) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var out string
	if i < len(f.outputs) {
		out = f.outputs[i]
	}
	return out, err
}

const tickTwoConns = `COMMAND   PID   USER   FD   TYPE   DEVICE SIZE/OFF NODE NAME
nginx    7777   www     5u  IPv4 0x1      0t0  TCP 10.0.0.2:80->203.0.113.5:52000 (ESTABLISHED)
nginx    7777   www     6u  IPv4 0x2      0t0  TCP 10.0.0.2:80->203.0.113.9:52001 (ESTABLISHED)
`

const tickOneConn = `COMMAND   PID   USER   FD   TYPE   DEVICE SIZE/OFF NODE NAME
nginx    7777   www     5u  IPv4 0x1      0t0  TCP 10.0.0.2:80->203.0.113.5:52000 (ESTABLISHED)
`

// Full pipeline: sample, parse, reconcile, with a failing tick in the
// middle that must leave the active set untouched.
func TestPipelineWithFakeSampler(t *testing.T) {
	sampler := &fakeSampler{
		outputs: []string{tickTwoConns, tickOneConn, ""},
		errs:    []error{nil, nil, errors.New("lsof: permission denied")},
	}
	pids := []int32{7777}
	tracker := monitor.NewTracker(0)

	run := func() error {
		raw, err := sampler.Sample(context.Background(), pids)
		if err != nil {
			tracker.Advance(nil, false)
			return err
		}
		tracker.Advance(Parse(raw, pids).Records, true)
		return nil
	}

	require.NoError(t, run())
	assert.Equal(t, 2, tracker.ActiveLen())

	require.NoError(t, run())
	assert.Equal(t, 1, tracker.ActiveLen())
	require.Equal(t, 1, tracker.History().Len())
	assert.Equal(t, "203.0.113.9:52001", tracker.History().At(0).Key.Remote)

	require.Error(t, run())
	assert.Equal(t, 1, tracker.ActiveLen())
	assert.Equal(t, 1, tracker.History().Len())
}
