package backup

import (
	"github.com/shirou/gopsutil/disk"
)

// freeDiskSpace returns the free bytes on the filesystem holding path.
func freeDiskSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}
