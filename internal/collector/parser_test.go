package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimawa/netmonrs/pkg/types"
)

const sampleListing = `COMMAND   PID   USER   FD   TYPE             DEVICE SIZE/OFF NODE NAME
firefox  1234   alice   51u  IPv4 0x2a9c0b1      0t0  TCP 192.168.1.10:51234->93.184.216.34:443 (ESTABLISHED)
firefox  1234   alice   52u  IPv4 0x2a9c0b2      0t0  TCP 192.168.1.10:51235->151.101.1.140:443 (ESTABLISHED)
firefox  1234   alice   60u  IPv6 0x2a9c0b3      0t0  TCP [::1]:8080 (LISTEN)
firefox  1234   alice   61u  IPv4 0x2a9c0b4      0t0  UDP *:5353
spotify  9999   alice   10u  IPv4 0x2a9c0b5      0t0  TCP 192.168.1.10:40000->35.186.224.25:443 (ESTABLISHED)
`

func TestParseSampleListing(t *testing.T) {
	snap := Parse(sampleListing, []int32{1234})

	require.Len(t, snap.Records, 4)
	assert.Equal(t, 0, snap.Skipped)

	first := snap.Records[0]
	assert.Equal(t, "TCP", first.Key.Proto)
	assert.Equal(t, "192.168.1.10:51234", first.Key.Local)
	assert.Equal(t, "93.184.216.34:443", first.Key.Remote)
	assert.Equal(t, int32(1234), first.Key.PID)
	assert.Equal(t, "ESTABLISHED", first.State)
}

func TestParseFiltersUnrelatedPIDs(t *testing.T) {
	snap := Parse(sampleListing, []int32{9999})

	require.Len(t, snap.Records, 1)
	assert.Equal(t, "192.168.1.10:40000", snap.Records[0].Key.Local)
	// Rows of other PIDs are unrelated, not malformed.
	assert.Equal(t, 0, snap.Skipped)
}

func TestParseListenerKeepsAbsentRemote(t *testing.T) {
	snap := Parse(sampleListing, []int32{1234})

	var listener *types.ConnRecord
	for i := range snap.Records {
		if snap.Records[i].State == "LISTEN" {
			listener = &snap.Records[i]
		}
	}
	require.NotNil(t, listener)
	assert.Equal(t, "[::1]:8080", listener.Key.Local)
	assert.Equal(t, types.RemoteNone, listener.Key.Remote)
}

func TestParseUDPWithoutState(t *testing.T) {
	snap := Parse(sampleListing, []int32{1234})

	var udp *types.ConnRecord
	for i := range snap.Records {
		if snap.Records[i].Key.Proto == "UDP" {
			udp = &snap.Records[i]
		}
	}
	require.NotNil(t, udp)
	assert.Equal(t, "*:5353", udp.Key.Local)
	assert.Equal(t, "", udp.State)
}

func TestParseSkipsMalformedLineWithoutAborting(t *testing.T) {
	raw := `COMMAND   PID   USER   FD   TYPE   DEVICE SIZE/OFF NODE NAME
curl     4321   alice    5u  IPv4 0xdead      0t0  TCP 10.0.0.2:55000->1.2.3.4:80 (ESTABLISHED)
curl     4321   alice    6u  IPv4 0xbeef      0t0  TCP 10.0.0.2:55001->1.2.3.4 (SYN_SENT)
`
	snap := Parse(raw, []int32{4321})

	require.Len(t, snap.Records, 1)
	assert.Equal(t, "1.2.3.4:80", snap.Records[0].Key.Remote)
	assert.Equal(t, 1, snap.Skipped)
}

func TestParseCollapsesDuplicateIdentity(t *testing.T) {
	raw := `COMMAND   PID   USER   FD   TYPE   DEVICE SIZE/OFF NODE NAME
curl     4321   alice    5u  IPv4 0x1      0t0  TCP 10.0.0.2:55000->1.2.3.4:80 (SYN_SENT)
curl     4321   alice    6u  IPv4 0x2      0t0  TCP 10.0.0.2:55000->1.2.3.4:80 (ESTABLISHED)
`
	snap := Parse(raw, []int32{4321})

	require.Len(t, snap.Records, 1)
	// Last line wins on a conflicting state label.
	assert.Equal(t, "ESTABLISHED", snap.Records[0].State)
	assert.Equal(t, 0, snap.Skipped)
}

func TestParseEmptyInput(t *testing.T) {
	snap := Parse("", []int32{1234})
	assert.Empty(t, snap.Records)
	assert.Equal(t, 0, snap.Skipped)
}

func TestParseJunkInPIDColumn(t *testing.T) {
	raw := `curl notapid alice 5u IPv4 0x1 0t0 TCP 10.0.0.2:55000->1.2.3.4:80 (ESTABLISHED)
`
	snap := Parse(raw, []int32{4321})
	assert.Empty(t, snap.Records)
	assert.Equal(t, 1, snap.Skipped)
}

func TestValidEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"192.168.1.10:443", true},
		{"[::1]:8080", true},
		{"*:5353", true},
		{"*:*", true},
		{"1.2.3.4", false},
		{"1.2.3.4:", false},
		{"1.2.3.4:http", false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, validEndpoint(tt.endpoint))
		})
	}
}
