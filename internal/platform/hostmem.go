package platform

import (
	"github.com/shirou/gopsutil/v3/process"
)

// HostMemoryStats reports this process's current resident memory, sampled
// via gopsutil. It feeds the observability surface's provider_stats-adjacent
// host gauges (RSS) — it describes the process, not a specific allocator.
type HostMemoryStats struct {
	ResidentBytes uint64
	VirtualBytes  uint64
}

// SampleHostMemory reads the current process's memory info.
func SampleHostMemory() (HostMemoryStats, error) {
	proc, err := process.NewProcess(int32(processID()))
	if err != nil {
		return HostMemoryStats{}, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return HostMemoryStats{}, err
	}
	return HostMemoryStats{ResidentBytes: info.RSS, VirtualBytes: info.VMS}, nil
}
