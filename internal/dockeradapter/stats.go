package dockeradapter

import (
	"encoding/json"
	"io"
)

// ContainerStatSample is a point-in-time CPU/memory sample (§4.B stats).
type ContainerStatSample struct {
	CPUPercent    float64
	MemoryUsed    uint64
	MemoryLimit   uint64
}

// dockerStatsJSON mirrors the fields of the engine's stats payload that
// this adapter needs; the full payload carries many more fields that
// Anvyl never reads.
type dockerStatsJSON struct {
	CPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemUsage uint64 `json:"system_cpu_usage"`
		OnlineCPUs  uint32 `json:"online_cpus"`
	} `json:"cpu_stats"`
	PreCPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemUsage uint64 `json:"system_cpu_usage"`
	} `json:"precpu_stats"`
	MemoryStats struct {
		Usage uint64 `json:"usage"`
		Limit uint64 `json:"limit"`
	} `json:"memory_stats"`
}

func decodeStats(r io.Reader) (*ContainerStatSample, error) {
	var raw dockerStatsJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}

	cpuDelta := float64(raw.CPUStats.CPUUsage.TotalUsage) - float64(raw.PreCPUStats.CPUUsage.TotalUsage)
	sysDelta := float64(raw.CPUStats.SystemUsage) - float64(raw.PreCPUStats.SystemUsage)
	var cpuPercent float64
	if sysDelta > 0 && cpuDelta > 0 {
		cpus := float64(raw.CPUStats.OnlineCPUs)
		if cpus == 0 {
			cpus = 1
		}
		cpuPercent = (cpuDelta / sysDelta) * cpus * 100.0
	}

	return &ContainerStatSample{
		CPUPercent:  cpuPercent,
		MemoryUsed:  raw.MemoryStats.Usage,
		MemoryLimit: raw.MemoryStats.Limit,
	}, nil
}
