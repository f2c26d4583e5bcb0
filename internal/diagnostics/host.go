// Package diagnostics takes best-effort snapshots of the host for the
// health endpoint and the doctor command.
package diagnostics

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Thresholds above which a snapshot reports a warning.
const (
	DiskWarnPercent   = 90.0
	MemoryWarnPercent = 90.0
)

// HostSnapshot holds host resource usage. Fields the platform cannot report
// stay zero.
type HostSnapshot struct {
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`

	CPUModel   string  `json:"cpu_model,omitempty"`
	CPUCores   int     `json:"cpu_cores,omitempty"`
	CPUThreads int     `json:"cpu_threads"`
	CPUPercent float64 `json:"cpu_percent"`

	MemTotalMB float64 `json:"mem_total_mb"`
	MemUsedMB  float64 `json:"mem_used_mb"`
	MemPercent float64 `json:"mem_percent"`

	DiskPath    string  `json:"disk_path"`
	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskFreeGB  float64 `json:"disk_free_gb"`
	DiskPercent float64 `json:"disk_percent"`

	LoadAvg1  float64 `json:"load_avg_1,omitempty"`
	LoadAvg5  float64 `json:"load_avg_5,omitempty"`
	LoadAvg15 float64 `json:"load_avg_15,omitempty"`

	GPUs []string `json:"gpus,omitempty"`

	CollectedAt time.Time `json:"collected_at"`
}

// Warnings lists resource conditions likely to break a pipeline run.
func (s HostSnapshot) Warnings() []string {
	var out []string
	if s.DiskPercent >= DiskWarnPercent {
		out = append(out, fmt.Sprintf("disk %s is %.0f%% full", s.DiskPath, s.DiskPercent))
	}
	if s.MemPercent >= MemoryWarnPercent {
		out = append(out, fmt.Sprintf("memory usage at %.0f%%", s.MemPercent))
	}
	return out
}

// Collector gathers host snapshots. Static hardware facts are read once.
type Collector struct {
	diskPath string

	once     sync.Once
	cpuModel string
	cpuCores int
	gpus     []string
}

// NewCollector reports disk usage for the filesystem holding diskPath.
func NewCollector(diskPath string) *Collector {
	if diskPath == "" {
		diskPath = "."
	}
	return &Collector{diskPath: diskPath}
}

// Collect samples the host.
func (c *Collector) Collect() HostSnapshot {
	c.once.Do(c.collectHardware)

	s := HostSnapshot{
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		GoVersion:   runtime.Version(),
		Goroutines:  runtime.NumGoroutine(),
		CPUModel:    c.cpuModel,
		CPUCores:    c.cpuCores,
		CPUThreads:  runtime.NumCPU(),
		DiskPath:    c.diskPath,
		GPUs:        c.gpus,
		CollectedAt: time.Now().UTC(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemTotalMB = float64(vm.Total) / 1024 / 1024
		s.MemUsedMB = float64(vm.Used) / 1024 / 1024
		s.MemPercent = vm.UsedPercent
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if du, err := disk.Usage(c.diskPath); err == nil {
		s.DiskTotalGB = float64(du.Total) / 1024 / 1024 / 1024
		s.DiskFreeGB = float64(du.Free) / 1024 / 1024 / 1024
		s.DiskPercent = du.UsedPercent
	}
	if avg, err := load.Avg(); err == nil {
		s.LoadAvg1, s.LoadAvg5, s.LoadAvg15 = avg.Load1, avg.Load5, avg.Load15
	}
	return s
}

func (c *Collector) collectHardware() {
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		c.cpuModel = strings.TrimSpace(infos[0].ModelName)
	}
	if cores, err := cpu.Counts(false); err == nil {
		c.cpuCores = cores
	}
	c.gpus = gpuNames()
}

// gpuNames lists graphics cards via ghw; an empty result is normal on
// servers and containers.
func gpuNames() []string {
	info, err := ghw.GPU()
	if err != nil || info == nil {
		return nil
	}
	names := make([]string, 0, len(info.GraphicsCards))
	for _, card := range info.GraphicsCards {
		name := ""
		if card.DeviceInfo != nil {
			switch {
			case card.DeviceInfo.Vendor != nil && card.DeviceInfo.Product != nil:
				name = card.DeviceInfo.Vendor.Name + " " + card.DeviceInfo.Product.Name
			case card.DeviceInfo.Product != nil:
				name = card.DeviceInfo.Product.Name
			case card.DeviceInfo.Vendor != nil:
				name = card.DeviceInfo.Vendor.Name
			}
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("GPU %d", card.Index)
		}
		names = append(names, name)
	}
	return names
}
