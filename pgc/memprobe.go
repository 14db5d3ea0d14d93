package pgc

import (
	"github.com/shirou/gopsutil/mem"

	"github.com/nyxtsdb/pgc/logger"
)

// defaultAvailableMemory is the system-memory probe used when OOM
// protection is configured and the caller hasn't supplied their own
// probe: it falls back to the host's real available memory via
// gopsutil.
func defaultAvailableMemory() (int64, bool) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.Warnf("pgc: memory probe failed: %v", err)
		return 0, false
	}
	return int64(vm.Available), true
}
