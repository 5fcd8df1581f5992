package telemetry

import (
	"net"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"
)

const loopbackAddress = "127.0.0.1"

// Host reads telemetry from the local machine through gopsutil.
type Host struct {
	logger *zap.Logger
}

// NewHost returns a gopsutil-backed Provider. A nil logger disables probe
// failure logging.
func NewHost(logger *zap.Logger) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{logger: logger}
}

func (h *Host) Snapshot() Snapshot {
	snap := Snapshot{
		Arch:     runtime.GOARCH,
		OSType:   runtime.GOOS,
		Platform: runtime.GOOS,
		Address:  h.address(),
	}

	if info, err := host.Info(); err != nil {
		h.logger.Debug("Host info unavailable", zap.Error(err))
	} else {
		snap.Hostname = info.Hostname
		if info.KernelArch != "" {
			snap.Arch = info.KernelArch
		}
		if info.OS != "" {
			snap.OSType = info.OS
		}
		if info.Platform != "" {
			snap.Platform = info.Platform
		}
		snap.Release = info.KernelVersion
	}
	if snap.Hostname == "" {
		snap.Hostname, _ = os.Hostname()
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		h.logger.Debug("Memory info unavailable", zap.Error(err))
	} else {
		snap.TotalMemory = vm.Total
		snap.FreeMemory = vm.Available
	}

	snap.CPUs = h.cpus()

	if avg, err := load.Avg(); err != nil {
		h.logger.Debug("Load average unavailable", zap.Error(err))
	} else {
		snap.LoadAvg = [3]float64{avg.Load1, avg.Load5, avg.Load15}
	}

	return snap
}

// cpus returns one entry per logical core. Some platforms report a single
// package entry; it is repeated to match the logical core count.
func (h *Host) cpus() []CPU {
	infos, err := cpu.Info()
	if err != nil {
		h.logger.Debug("CPU info unavailable", zap.Error(err))
		return []CPU{}
	}

	out := make([]CPU, 0, len(infos))
	for _, info := range infos {
		out = append(out, CPU{Model: strings.TrimSpace(info.ModelName), MHz: info.Mhz})
	}

	if len(out) == 1 {
		logical, err := cpu.Counts(true)
		if err == nil && logical > 1 {
			for i := 1; i < logical; i++ {
				out = append(out, out[0])
			}
		}
	}
	return out
}

func (h *Host) address() string {
	ifaces, err := psnet.Interfaces()
	if err != nil {
		h.logger.Debug("Network interfaces unavailable", zap.Error(err))
		return loopbackAddress
	}

	for _, iface := range ifaces {
		if hasFlag(iface.Flags, "loopback") || !hasFlag(iface.Flags, "up") {
			continue
		}
		for _, addr := range iface.Addrs {
			if ip := parseIPv4(addr.Addr); ip != "" {
				return ip
			}
		}
	}
	return loopbackAddress
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

// parseIPv4 accepts "a.b.c.d" or "a.b.c.d/nn" and rejects loopback and IPv6.
func parseIPv4(s string) string {
	ip := net.ParseIP(s)
	if ip == nil {
		var err error
		ip, _, err = net.ParseCIDR(s)
		if err != nil {
			return ""
		}
	}
	if ip.IsLoopback() {
		return ""
	}
	v4 := ip.To4()
	if v4 == nil {
		return ""
	}
	return v4.String()
}
