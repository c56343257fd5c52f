package collector

import (
	"strconv"
	"strings"

	"github.com/bimawa/netmonrs/pkg/types"
)

// lsof prints nine fixed columns; NAME may be followed by a state column
// in parentheses:
//
//	COMMAND PID USER FD TYPE DEVICE SIZE/OFF NODE NAME (STATE)
const lsofFieldCount = 9

// Parse turns one raw lsof capture into connection records for the given
// PID set. Header lines, rows of unrelated PIDs and malformed rows are
// skipped; a malformed row never aborts the batch. Duplicate identities
// within one capture collapse to a single record, last line winning on
// the state label.
func Parse(raw string, pids []int32) types.Snapshot {
	want := make(map[int32]bool, len(pids))
	for _, pid := range pids {
		want[pid] = true
	}

	byKey := make(map[types.ConnKey]types.ConnRecord)
	var order []types.ConnKey
	skipped := 0

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < lsofFieldCount {
			if !isHeaderLine(fields) {
				skipped++
			}
			continue
		}

		pid64, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			// COMMAND/PID header or junk in the PID column.
			if !isHeaderLine(fields) {
				skipped++
			}
			continue
		}
		pid := int32(pid64)
		if !want[pid] {
			continue
		}

		local, remote, ok := splitName(fields[8])
		if !ok {
			skipped++
			continue
		}

		state := ""
		if len(fields) > lsofFieldCount {
			state = strings.Trim(fields[9], "()")
		}

		key := types.ConnKey{
			Proto:  fields[7],
			Local:  local,
			Remote: remote,
			PID:    pid,
		}

		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = types.ConnRecord{Key: key, State: state}
	}

	records := make([]types.ConnRecord, 0, len(byKey))
	for _, key := range order {
		records = append(records, byKey[key])
	}

	return types.Snapshot{Records: records, Skipped: skipped}
}

func isHeaderLine(fields []string) bool {
	return len(fields) > 0 && fields[0] == "COMMAND"
}

// splitName breaks an lsof NAME column into local and remote endpoints.
// Sockets without a peer ("*:8080") keep their local side and report the
// remote as absent.
func splitName(name string) (local, remote string, ok bool) {
	if idx := strings.Index(name, "->"); idx >= 0 {
		local, remote = name[:idx], name[idx+2:]
		if !validEndpoint(local) || !validEndpoint(remote) {
			return "", "", false
		}
		return local, remote, true
	}

	if !validEndpoint(name) {
		return "", "", false
	}
	return name, types.RemoteNone, true
}

func validEndpoint(ep string) bool {
	idx := strings.LastIndex(ep, ":")
	if idx < 0 || idx == len(ep)-1 {
		return false
	}
	port := ep[idx+1:]
	if port == "*" {
		return true
	}
	_, err := strconv.Atoi(port)
	return err == nil
}
