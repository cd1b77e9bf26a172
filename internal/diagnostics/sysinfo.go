package diagnostics

import (
	"runtime"
	"strings"
	"time"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// NICInfo describes one network interface.
type NICInfo struct {
	Name       string   `json:"name"`
	MACAddress string   `json:"mac_address,omitempty"`
	Virtual    bool     `json:"virtual"`
	Speed      string   `json:"speed,omitempty"`
	Duplex     string   `json:"duplex,omitempty"`
	Features   []string `json:"features,omitempty"`
}

// SystemInfo is a hardware and OS inventory attached to diagnosis reports.
type SystemInfo struct {
	Hostname      string        `json:"hostname,omitempty"`
	OS            string        `json:"os"`
	Platform      string        `json:"platform,omitempty"`
	KernelVersion string        `json:"kernel_version,omitempty"`
	Uptime        time.Duration `json:"uptime,omitempty"`
	CPUModel      string        `json:"cpu_model,omitempty"`
	CPUCount      int           `json:"cpu_count"`
	MemoryTotalMB float64       `json:"memory_total_mb,omitempty"`
	MemoryUsedPct float64       `json:"memory_used_pct,omitempty"`
	NICs          []NICInfo     `json:"nics,omitempty"`
}

// CollectSystemInfo gathers the inventory. Every source is best-effort; a
// failing source leaves its fields zero.
func CollectSystemInfo() SystemInfo {
	info := SystemInfo{
		OS:       runtime.GOOS,
		CPUCount: runtime.NumCPU(),
	}

	if h, err := host.Info(); err == nil {
		info.Hostname = h.Hostname
		info.Platform = strings.TrimSpace(h.Platform + " " + h.PlatformVersion)
		info.KernelVersion = h.KernelVersion
		info.Uptime = time.Duration(h.Uptime) * time.Second
	}

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryTotalMB = float64(vm.Total) / (1024 * 1024)
		info.MemoryUsedPct = vm.UsedPercent
	}

	info.NICs = queryNICs()
	return info
}

func queryNICs() []NICInfo {
	net, err := ghw.Network()
	if err != nil || net == nil {
		return nil
	}
	nics := make([]NICInfo, 0, len(net.NICs))
	for _, nic := range net.NICs {
		n := NICInfo{
			Name:       nic.Name,
			MACAddress: nic.MacAddress,
			Virtual:    nic.IsVirtual,
			Speed:      nic.Speed,
			Duplex:     nic.Duplex,
		}
		for _, cap := range nic.Capabilities {
			if cap.IsEnabled {
				n.Features = append(n.Features, cap.Name)
			}
		}
		nics = append(nics, n)
	}
	return nics
}
