package security

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bimawa/netmonrs/pkg/types"
)

// Watcher raises an alert the first time a remote IP shows up in the
// session. Its memory is bounded: once maxSeen addresses are tracked the
// oldest are forgotten and may alert again if they return.
type Watcher struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	order   []string
	maxSeen int

	lastAlert *types.Alert
	total     int
}

func NewWatcher(maxSeen int) *Watcher {
	if maxSeen <= 0 {
		maxSeen = 1000
	}
	return &Watcher{
		seen:    make(map[string]time.Time),
		maxSeen: maxSeen,
	}
}

// Observe scans the records for remote IPs not seen before and records
// an alert for each.
func (w *Watcher) Observe(records []types.ConnRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for _, rec := range records {
		ip := remoteIP(rec.Key.Remote)
		if ip == "" {
			continue
		}
		if _, known := w.seen[ip]; known {
			continue
		}

		w.seen[ip] = now
		w.order = append(w.order, ip)
		if len(w.order) > w.maxSeen {
			delete(w.seen, w.order[0])
			w.order = w.order[1:]
		}

		w.total++
		w.lastAlert = &types.Alert{
			Timestamp: now,
			RemoteIP:  ip,
			Message:   fmt.Sprintf("new remote %s", ip),
		}
	}
}

// LastAlert returns the most recent alert, or nil if none was raised.
func (w *Watcher) LastAlert() *types.Alert {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastAlert == nil {
		return nil
	}
	alert := *w.lastAlert
	return &alert
}

// SeenCount returns how many distinct remote IPs alerted this session.
func (w *Watcher) SeenCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}

// remoteIP strips the port from an endpoint, handling bracketed IPv6.
func remoteIP(remote string) string {
	if remote == "" || remote == types.RemoteNone {
		return ""
	}
	if strings.HasPrefix(remote, "[") {
		if end := strings.Index(remote, "]"); end > 0 {
			return remote[1:end]
		}
	}
	if idx := strings.LastIndex(remote, ":"); idx > 0 {
		return remote[:idx]
	}
	return remote
}
