// Package telemetry reads host information (identity, OS, memory, CPU, load)
// for the node status snapshot.
package telemetry

import "github.com/dustin/go-humanize"

// CPU describes one logical core.
type CPU struct {
	Model string
	MHz   float64
}

// Snapshot is a point-in-time view of the host.
type Snapshot struct {
	Hostname string
	// Address is the first non-loopback IPv4 address, or 127.0.0.1.
	Address string

	Arch     string
	OSType   string
	Platform string
	Release  string

	TotalMemory uint64
	FreeMemory  uint64

	CPUs []CPU
	// LoadAvg holds the 1, 5 and 15 minute load averages.
	LoadAvg [3]float64
}

// Provider returns host snapshots. Snapshot must not block on network I/O
// and must not fail; unavailable values are reported as fallbacks.
type Provider interface {
	Snapshot() Snapshot
}

// Static is a Provider returning a fixed snapshot.
type Static Snapshot

func (s Static) Snapshot() Snapshot {
	out := Snapshot(s)
	out.CPUs = append([]CPU(nil), s.CPUs...)
	return out
}

// FormatBytes renders a byte count using IEC units, e.g. "15 GiB".
func FormatBytes(n uint64) string {
	return humanize.IBytes(n)
}
