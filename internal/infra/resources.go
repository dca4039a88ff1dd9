package infra

import (
	"context"
	"encoding/json"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// hostResources is the shape persisted in hosts.resources and returned by
// GET /hosts/{id}/metrics (§4.C).
type hostResources struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemUsed     uint64  `json:"memory_used_bytes"`
	MemTotal    uint64  `json:"memory_total_bytes"`
	DiskUsed    uint64  `json:"disk_used_bytes"`
	DiskTotal   uint64  `json:"disk_total_bytes"`
	Load1       float64 `json:"load1"`
	SampledAt   int64   `json:"sampled_at"`
}

func currentOS() string {
	return runtime.GOOS
}

// sampleLocalResources takes a live point-in-time reading of the local
// host's CPU/memory/disk/load (§4.C: "for the local host this is sampled
// live").
func sampleLocalResources(ctx context.Context) (*hostResources, error) {
	r := &hostResources{SampledAt: time.Now().UnixMilli()}

	cpuPercents, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false)
	if err == nil && len(cpuPercents) > 0 {
		r.CPUPercent = cpuPercents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		r.MemUsed = vm.Used
		r.MemTotal = vm.Total
	}

	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		r.DiskUsed = du.Used
		r.DiskTotal = du.Total
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		r.Load1 = avg.Load1
	}

	return r, nil
}

func marshalResources(r *hostResources) string {
	b, _ := json.Marshal(r)
	return string(b)
}
