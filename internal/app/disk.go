package app

import "syscall"

// diskStats is the usage of the filesystem holding the catalog cache.
type diskStats struct {
	TotalBytes     uint64  `json:"total_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedPercent    float64 `json:"used_percent"`
}

// diskUsage returns usage for the filesystem at path, or nil on error.
func diskUsage(path string) *diskStats {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return nil
	}
	total := st.Blocks * uint64(st.Bsize)
	avail := st.Bavail * uint64(st.Bsize)
	used := total - st.Bfree*uint64(st.Bsize)

	ds := &diskStats{TotalBytes: total, UsedBytes: used, AvailableBytes: avail}
	if total > 0 {
		ds.UsedPercent = float64(used) / float64(total) * 100
	}
	return ds
}
