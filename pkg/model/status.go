package model

import (
	"time"

	"github.com/3leaps/eae-utils/pkg/defines"
)

// SystemInfo describes the host operating system.
type SystemInfo struct {
	Arch     string `json:"arch" bson:"arch" yaml:"arch"`
	Type     string `json:"type" bson:"type" yaml:"type"`
	Platform string `json:"platform" bson:"platform" yaml:"platform"`
	Version  string `json:"version" bson:"version" yaml:"version"`
}

type Core struct {
	Model string  `json:"model" bson:"model" yaml:"model"`
	MHz   float64 `json:"mhz" bson:"mhz" yaml:"mhz"`
}

// CPUInfo lists the logical cores and the 1, 5 and 15 minute load averages.
type CPUInfo struct {
	Cores   []Core     `json:"cores" bson:"cores" yaml:"cores"`
	LoadAvg [3]float64 `json:"loadavg" bson:"loadavg" yaml:"loadavg"`
}

// MemoryInfo holds human readable sizes ("15 GiB").
type MemoryInfo struct {
	Total string `json:"total" bson:"total" yaml:"total"`
	Free  string `json:"free" bson:"free" yaml:"free"`
}

// Status is the runtime status a node publishes to the global status collection.
//
// (IP, Port) is the natural key of the stored document.
type Status struct {
	Type        string     `json:"type" bson:"type" yaml:"type"`
	ComputeType []string   `json:"computeType" bson:"computeType" yaml:"computeType"`
	Status      string     `json:"status" bson:"status" yaml:"status"`
	StatusLock  LockState  `json:"statusLock" bson:"statusLock" yaml:"statusLock"`
	Version     *string    `json:"version" bson:"version" yaml:"version"`
	LastUpdate  *time.Time `json:"lastUpdate" bson:"lastUpdate" yaml:"lastUpdate"`
	Port        int        `json:"port" bson:"port" yaml:"port"`
	IP          string     `json:"ip" bson:"ip" yaml:"ip"`
	Hostname    string     `json:"hostname" bson:"hostname" yaml:"hostname"`
	System      SystemInfo `json:"system" bson:"system" yaml:"system"`
	CPU         CPUInfo    `json:"cpu" bson:"cpu" yaml:"cpu"`
	Memory      MemoryInfo `json:"memory" bson:"memory" yaml:"memory"`
}

// Key identifies a node document in the status collection.
type Key struct {
	IP   string `json:"ip" bson:"ip" yaml:"ip"`
	Port int    `json:"port" bson:"port" yaml:"port"`
}

// DefaultStatus returns a fresh copy of the status template.
func DefaultStatus() Status {
	return Status{
		Type:        defines.DefaultServiceType,
		ComputeType: []string{},
		Status:      defines.ServiceStatusIdle,
		StatusLock:  Unlocked,
		Port:        8080,
		IP:          "localhost",
		Hostname:    "localhost",
		System: SystemInfo{
			Arch:     "unknown",
			Type:     "unknown",
			Platform: "unknown",
			Version:  "0.0",
		},
		CPU: CPUInfo{
			Cores: []Core{},
		},
		Memory: MemoryInfo{
			Total: "0",
			Free:  "0",
		},
	}
}

func (s Status) Key() Key {
	return Key{IP: s.IP, Port: s.Port}
}

// Clone returns a deep copy that shares no slices or pointers with s.
func (s Status) Clone() Status {
	out := s
	if s.ComputeType != nil {
		out.ComputeType = make([]string, len(s.ComputeType))
		copy(out.ComputeType, s.ComputeType)
	}
	if s.CPU.Cores != nil {
		out.CPU.Cores = make([]Core, len(s.CPU.Cores))
		copy(out.CPU.Cores, s.CPU.Cores)
	}
	if s.Version != nil {
		v := *s.Version
		out.Version = &v
	}
	if s.LastUpdate != nil {
		t := *s.LastUpdate
		out.LastUpdate = &t
	}
	return out
}
