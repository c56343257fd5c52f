package collector

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bimawa/netmonrs/pkg/types"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	maxLatencyPeers = 5
	probeCount      = 3
)

// LatencyCollector measures round-trip time to the remote peers of the
// active set. ICMP echo is used when the process has the privilege to
// open a raw socket; otherwise a TCP dial to the peer's port stands in.
type LatencyCollector struct {
	mu       sync.Mutex
	icmpOK   bool
	icmpInit bool
}

func NewLatencyCollector() *LatencyCollector {
	return &LatencyCollector{}
}

// Peer is one probe target: an IP plus the port the monitored process is
// talking to, kept for the TCP fallback.
type Peer struct {
	IP   string
	Port string
}

// Collect probes up to maxLatencyPeers peers concurrently.
func (lc *LatencyCollector) Collect(ctx context.Context, peers []Peer) []types.LatencyStats {
	if len(peers) > maxLatencyPeers {
		peers = peers[:maxLatencyPeers]
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	resultsChan := make(chan types.LatencyStats, len(peers))

	for _, peer := range peers {
		wg.Add(1)
		go func(p Peer) {
			defer wg.Done()
			resultsChan <- lc.measure(ctx, p)
		}(peer)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	var results []types.LatencyStats
	for stats := range resultsChan {
		results = append(results, stats)
	}
	return results
}

func (lc *LatencyCollector) measure(ctx context.Context, peer Peer) types.LatencyStats {
	stats := types.LatencyStats{
		Peer:        peer.IP,
		LastChecked: time.Now(),
	}

	var rtts []time.Duration
	for i := 0; i < probeCount; i++ {
		select {
		case <-ctx.Done():
			i = probeCount
			continue
		default:
		}

		rtt, err := lc.probe(peer, 2*time.Second)
		if err == nil {
			rtts = append(rtts, rtt)
		}

		if i < probeCount-1 {
			select {
			case <-ctx.Done():
			case <-time.After(50 * time.Millisecond):
			}
		}
	}

	if len(rtts) == 0 {
		stats.PacketLoss = 100.0
		return stats
	}

	stats.PacketLoss = float64(probeCount-len(rtts)) / float64(probeCount) * 100.0
	stats.MinRTT = rtts[0]
	stats.MaxRTT = rtts[0]
	var total time.Duration
	for _, rtt := range rtts {
		total += rtt
		if rtt < stats.MinRTT {
			stats.MinRTT = rtt
		}
		if rtt > stats.MaxRTT {
			stats.MaxRTT = rtt
		}
	}
	stats.AvgRTT = total / time.Duration(len(rtts))
	return stats
}

func (lc *LatencyCollector) probe(peer Peer, timeout time.Duration) (time.Duration, error) {
	if lc.canICMP() {
		if rtt, err := icmpPing(peer.IP, timeout); err == nil {
			return rtt, nil
		}
	}
	return tcpProbe(peer, timeout)
}

// canICMP checks once whether a raw ICMP socket can be opened.
func (lc *LatencyCollector) canICMP() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if !lc.icmpInit {
		lc.icmpInit = true
		if conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0"); err == nil {
			conn.Close()
			lc.icmpOK = true
		}
	}
	return lc.icmpOK
}

func tcpProbe(peer Peer, timeout time.Duration) (time.Duration, error) {
	port := peer.Port
	if port == "" || port == "*" {
		port = "443"
	}
	start := time.Now()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(peer.IP, port), timeout)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return time.Since(start), nil
}

func icmpPing(dst string, timeout time.Duration) (time.Duration, error) {
	host, err := net.ResolveIPAddr("ip4", dst)
	if err != nil {
		return 0, err
	}

	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	message := &icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   1,
			Seq:  1,
			Data: []byte("ping"),
		},
	}

	data, err := message.Marshal(nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	if _, err = conn.WriteTo(data, host); err != nil {
		return 0, err
	}

	reply := make([]byte, 1500)
	if err = conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}

	n, _, err := conn.ReadFrom(reply)
	if err != nil {
		return 0, err
	}
	duration := time.Since(start)

	replyMsg, err := icmp.ParseMessage(ipv4.ICMPTypeEchoReply.Protocol(), reply[:n])
	if err != nil {
		return 0, err
	}
	if replyMsg.Type != ipv4.ICMPTypeEchoReply {
		return 0, fmt.Errorf("expected echo reply, got %v", replyMsg.Type)
	}

	return duration, nil
}
