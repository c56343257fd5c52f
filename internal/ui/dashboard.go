package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/bimawa/netmonrs/internal/collector"
	"github.com/bimawa/netmonrs/internal/monitor"
	"github.com/bimawa/netmonrs/internal/security"
	"github.com/bimawa/netmonrs/pkg/types"
)

const (
	latencyEveryTicks = 10

	// headerProcRows is how many per-PID stat rows fit the header panel.
	headerProcRows = 2
)

type Dashboard struct {
	app *tview.Application

	resolver       *collector.Resolver
	sampler        collector.Sampler
	processStats   *collector.ProcessStatsCollector
	latency        *collector.LatencyCollector
	watcher        *security.Watcher
	updateInterval time.Duration

	headerView  *tview.TextView
	activeView  *tview.TextView
	historyView *tview.TextView
	latencyView *tview.TextView
	statusView  *tview.TextView

	// mu guards everything below. A full tick (parse, reconcile,
	// re-clamp) and a full input event each run under one acquisition,
	// so no partial mutation is ever observable.
	mu          sync.Mutex
	tracker     *monitor.Tracker
	nav         *Navigator
	pids        []int32
	procStats   []types.ProcessStats
	latencyRows []types.LatencyStats
	statusMsg   string
	statusBad   bool

	collectingLatency bool
	lastLatencyTick   uint64
}

func NewDashboard(target string, sampler collector.Sampler, historyCapacity int) *Dashboard {
	return &Dashboard{
		app:            tview.NewApplication(),
		resolver:       collector.NewResolver(target),
		sampler:        sampler,
		processStats:   collector.NewProcessStatsCollector(),
		latency:        collector.NewLatencyCollector(),
		watcher:        security.NewWatcher(0),
		updateInterval: time.Second,
		tracker:        monitor.NewTracker(historyCapacity),
		nav:            NewNavigator(),
		statusMsg:      "Initializing...",
		statusBad:      true,
	}
}

func (d *Dashboard) Run() error {
	d.setupUI()

	go d.updateLoop()
	go d.collectionLoop()

	return d.app.Run()
}

func (d *Dashboard) setupUI() {
	d.headerView = tview.NewTextView().
		SetDynamicColors(true)
	d.headerView.SetBorder(true).
		SetTitle(fmt.Sprintf(" netmonrs [%s] ", d.resolver.Target()))

	d.activeView = tview.NewTextView().
		SetDynamicColors(true)
	d.activeView.SetBorder(true).
		SetTitle(" Active Connections ")

	d.historyView = tview.NewTextView().
		SetDynamicColors(true)
	d.historyView.SetBorder(true).
		SetTitle(" Connection History ")

	d.latencyView = tview.NewTextView().
		SetDynamicColors(true)
	d.latencyView.SetBorder(true).
		SetTitle(" Peer Latency ")

	d.statusView = tview.NewTextView().
		SetDynamicColors(true)

	lists := tview.NewFlex().
		AddItem(d.activeView, 0, 1, false).
		AddItem(d.historyView, 0, 1, false)

	mainFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(d.headerView, 5, 1, false).
		AddItem(lists, 0, 1, false).
		AddItem(d.latencyView, 9, 1, false).
		AddItem(d.statusView, 1, 1, false)

	d.app.SetRoot(mainFlex, true).
		SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			switch event.Key() {
			case tcell.KeyEsc:
				d.app.Stop()
				return nil
			case tcell.KeyTab, tcell.KeyLeft, tcell.KeyRight:
				d.withNav(func(n *Navigator) { n.SwitchFocus() })
				return nil
			case tcell.KeyDown:
				d.withNav(func(n *Navigator) { n.MoveDown() })
				return nil
			case tcell.KeyUp:
				d.withNav(func(n *Navigator) { n.MoveUp() })
				return nil
			case tcell.KeyPgDn:
				d.withNav(func(n *Navigator) { n.PageDown() })
				return nil
			case tcell.KeyPgUp:
				d.withNav(func(n *Navigator) { n.PageUp() })
				return nil
			case tcell.KeyRune:
				switch event.Rune() {
				case 'q':
					d.app.Stop()
					return nil
				case 'j':
					d.withNav(func(n *Navigator) { n.MoveDown() })
					return nil
				case 'k':
					d.withNav(func(n *Navigator) { n.MoveUp() })
					return nil
				}
			}
			return event
		})
}

// withNav runs one input transition as a single mutation episode and
// repaints in place. It runs on the event goroutine, where queueing an
// update would deadlock; tview draws right after the capture returns.
func (d *Dashboard) withNav(fn func(*Navigator)) {
	d.mu.Lock()
	fn(d.nav)
	d.mu.Unlock()
	d.render()
}

func (d *Dashboard) updateLoop() {
	ticker := time.NewTicker(d.updateInterval)
	defer ticker.Stop()

	for range ticker.C {
		d.updateDisplay()
	}
}

func (d *Dashboard) collectionLoop() {
	d.collectTick()

	ticker := time.NewTicker(d.updateInterval)
	defer ticker.Stop()

	for range ticker.C {
		d.collectTick()
	}
}

// collectTick runs one full sampling cycle. The blocking calls out to
// the process lister and lsof happen before the lock is taken; the
// parse, reconcile and re-clamp stages then apply atomically.
func (d *Dashboard) collectTick() {
	ctx := context.Background()

	pids, err := d.resolver.Resolve(ctx)
	if err != nil {
		d.setStatus(fmt.Sprintf("process lookup error: %v", err), true)
		return
	}
	if len(pids) == 0 {
		// No match is not a failure: reconcile an empty snapshot so
		// leftover connections of a dead target close into history.
		d.applySnapshot(types.Snapshot{}, true, pids)
		d.setStatus(fmt.Sprintf("Waiting for process %q...", d.resolver.Target()), true)
		return
	}

	raw, err := d.sampler.Sample(ctx, pids)
	if err != nil {
		// Keep the previous active set; a transient lsof failure must
		// not flash every connection as closed.
		d.applySnapshot(types.Snapshot{}, false, pids)
		d.setStatus(fmt.Sprintf("listing error: %v", err), true)
		return
	}

	snap := collector.Parse(raw, pids)
	d.applySnapshot(snap, true, pids)

	stats, _ := d.processStats.Collect(ctx, pids)

	d.mu.Lock()
	d.procStats = stats
	msg := fmt.Sprintf("Monitoring PIDs: %s | tick %d", formatPIDs(pids), d.tracker.Tick())
	if snap.Skipped > 0 {
		msg += fmt.Sprintf(" | %d unparsed lines", snap.Skipped)
	}
	if alert := d.watcher.LastAlert(); alert != nil {
		msg += fmt.Sprintf(" | %s %s", alert.Timestamp.Format("15:04:05"), alert.Message)
	}
	d.statusMsg = msg
	d.statusBad = false

	startLatency := false
	if d.latencyDue() {
		d.collectingLatency = true
		d.lastLatencyTick = d.tracker.Tick()
		startLatency = true
	}
	peers := activePeers(d.tracker.Active())
	d.mu.Unlock()

	if startLatency {
		go d.collectLatency(ctx, peers)
	}
}

// latencyDue reports whether a latency round should start. The very
// first successful tick is due immediately, so the panel does not sit
// on its placeholder for a full interval after startup. Caller holds mu.
func (d *Dashboard) latencyDue() bool {
	if d.collectingLatency {
		return false
	}
	if d.lastLatencyTick == 0 {
		return true
	}
	return d.tracker.Tick()-d.lastLatencyTick >= latencyEveryTicks
}

func (d *Dashboard) applySnapshot(snap types.Snapshot, ok bool, pids []int32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pids = pids
	if len(pids) == 0 {
		d.procStats = nil
	}
	d.tracker.Advance(snap.Records, ok)
	d.watcher.Observe(d.tracker.Active())
	d.nav.Resize(d.tracker.ActiveLen(), d.tracker.History().Len())
}

func (d *Dashboard) setStatus(msg string, bad bool) {
	d.mu.Lock()
	d.statusMsg = msg
	d.statusBad = bad
	d.mu.Unlock()
}

func (d *Dashboard) collectLatency(ctx context.Context, peers []collector.Peer) {
	rows := d.latency.Collect(ctx, peers)

	d.mu.Lock()
	d.latencyRows = rows
	d.collectingLatency = false
	d.mu.Unlock()
}

func activePeers(records []types.ConnRecord) []collector.Peer {
	seen := make(map[string]bool)
	var peers []collector.Peer
	for _, rec := range records {
		ip, port := splitEndpoint(rec.Key.Remote)
		if ip == "" || ip == "*" || seen[ip] {
			continue
		}
		seen[ip] = true
		peers = append(peers, collector.Peer{IP: ip, Port: port})
	}
	return peers
}

func splitEndpoint(ep string) (ip, port string) {
	if ep == "" || ep == types.RemoteNone {
		return "", ""
	}
	if strings.HasPrefix(ep, "[") {
		end := strings.Index(ep, "]")
		if end < 0 {
			return "", ""
		}
		ip = ep[1:end]
		if len(ep) > end+2 && ep[end+1] == ':' {
			port = ep[end+2:]
		}
		return ip, port
	}
	idx := strings.LastIndex(ep, ":")
	if idx <= 0 {
		return ep, ""
	}
	return ep[:idx], ep[idx+1:]
}

func formatPIDs(pids []int32) string {
	parts := make([]string, len(pids))
	for i, pid := range pids {
		parts[i] = fmt.Sprint(pid)
	}
	return strings.Join(parts, ",")
}

func (d *Dashboard) updateDisplay() {
	d.app.QueueUpdateDraw(d.render)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	// The inner rect is only known after layout; feed the focused
	// panel's height back so scrolling matches what is visible.
	focusedView := d.activeView
	if d.nav.Focus() == PanelHistory {
		focusedView = d.historyView
	}
	_, _, _, height := focusedView.GetInnerRect()
	d.nav.SetViewHeight(height)

	d.renderHeader()
	d.renderLists()
	d.renderLatency()
	d.renderStatus()
}

func (d *Dashboard) renderHeader() {
	var builder strings.Builder
	fmt.Fprintf(&builder, "[yellow]Target:[white] %s   [yellow]PIDs:[white] %s   [yellow]New remotes:[white] %d\n",
		d.resolver.Target(), formatPIDs(d.pids), d.watcher.SeenCount())

	for i, ps := range d.procStats {
		if i >= headerProcRows {
			fmt.Fprintf(&builder, "[gray]... and %d more processes", len(d.procStats)-headerProcRows)
			break
		}
		fmt.Fprintf(&builder, "[yellow]%d[white] %-20s CPU %5.1f%%  RSS %s\n",
			ps.PID, ps.Name, ps.CPUPercent, formatBytes(ps.RSS))
	}

	d.headerView.SetText(builder.String())
}

func (d *Dashboard) renderLists() {
	active := d.tracker.Active()
	history := d.tracker.History().Slice()

	// History reads newest first, like the log panel of most tails.
	reverse(history)

	focus := d.nav.Focus()
	d.setPanelFocus(d.activeView, focus == PanelActive)
	d.setPanelFocus(d.historyView, focus == PanelHistory)

	// Both list panels sit in the same flex row and share a height.
	_, _, _, height := d.activeView.GetInnerRect()
	if height < 1 {
		height = 1
	}

	d.activeView.SetText(d.renderRows(active, focus == PanelActive, height, renderActiveRow))
	d.historyView.SetText(d.renderRows(history, focus == PanelHistory, height, renderHistoryRow))
}

func (d *Dashboard) setPanelFocus(view *tview.TextView, focused bool) {
	if focused {
		view.SetBorderColor(tcell.ColorAqua)
	} else {
		view.SetBorderColor(tcell.ColorGray)
	}
}

func (d *Dashboard) renderRows(records []types.ConnRecord, focused bool, height int, render func(types.ConnRecord) string) string {
	if len(records) == 0 {
		return "[gray]nothing here yet"
	}

	start, selected := 0, -1
	if focused {
		start = d.nav.Scroll()
		selected = d.nav.Selected()
	}

	var builder strings.Builder
	for i := start; i < len(records) && i < start+height; i++ {
		if i == selected {
			fmt.Fprintf(&builder, "[black:aqua]>> %s[-:-]\n", render(records[i]))
		} else {
			fmt.Fprintf(&builder, "   %s\n", render(records[i]))
		}
	}
	if rest := len(records) - (start + height); rest > 0 {
		fmt.Fprintf(&builder, "[gray]... %d more", rest)
	}
	return builder.String()
}

func renderActiveRow(rec types.ConnRecord) string {
	state := rec.State
	color := "[white]"
	switch state {
	case "ESTABLISHED":
		color = "[green]"
	case "TIME_WAIT":
		color = "[yellow]"
	case "CLOSE_WAIT":
		color = "[red]"
	case "":
		state = "-"
	}
	return fmt.Sprintf("%s%s (%s)[white]", color, rec.Key, state)
}

func renderHistoryRow(rec types.ConnRecord) string {
	return fmt.Sprintf("%s [gray]ticks %d-%d[white]", rec.Key, rec.FirstSeen, rec.LastSeen)
}

func (d *Dashboard) renderLatency() {
	if len(d.latencyRows) == 0 {
		d.latencyView.SetText("[gray]Measuring latency to active peers...")
		return
	}

	var builder strings.Builder
	builder.WriteString("[yellow]Peer                  Min      Avg      Max    Loss[white]\n")
	builder.WriteString(strings.Repeat("─", 55) + "\n")

	for _, stat := range d.latencyRows {
		peer := stat.Peer
		if len(peer) > 20 {
			peer = peer[:17] + "..."
		}

		if stat.PacketLoss >= 100 {
			fmt.Fprintf(&builder, "%-20s [red]unreachable[white]\n", peer)
			continue
		}

		color := "[green]"
		if stat.AvgRTT > 100*time.Millisecond {
			color = "[yellow]"
		}
		if stat.AvgRTT > 200*time.Millisecond {
			color = "[red]"
		}

		fmt.Fprintf(&builder, "%-20s %s%6dms %6dms %6dms[white] %5.1f%%\n",
			peer,
			color,
			stat.MinRTT.Milliseconds(),
			stat.AvgRTT.Milliseconds(),
			stat.MaxRTT.Milliseconds(),
			stat.PacketLoss,
		)
	}

	d.latencyView.SetText(builder.String())
}

func (d *Dashboard) renderStatus() {
	color := "[green]"
	if d.statusBad {
		color = "[red]"
	}
	d.statusView.SetText(color + tview.Escape(d.statusMsg))
}

func reverse(records []types.ConnRecord) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
