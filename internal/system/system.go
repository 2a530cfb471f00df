package system

import (
	"fmt"
	"log/slog"
	"syscall"

	"github.com/shirou/gopsutil/v3/mem"
)

func InitResourceLimits(logger *slog.Logger) {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn("не удалось получить лимит файлов", "error", err)
		return
	}

	if rLimit.Cur >= 2048 {
		return
	}
	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn("не удалось установить лимит файлов", "error", err)
	} else {
		logger.Debug("лимит открытых файлов увеличен", "limit", rLimit.Cur)
	}
}

// EstimateFrameBytes is the size of n raw RGBA frames plus their paletted
// copies held by the encoder until Finish.
func EstimateFrameBytes(width, height, frames int) uint64 {
	perFrame := uint64(width) * uint64(height)
	return perFrame*4 + perFrame*uint64(frames)
}

// MemoryAvailable returns the memory the OS reports as available.
func MemoryAvailable() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// CheckFrameBudget logs a warning when an assembly is likely to exceed
// available memory. It never fails: the estimate is advisory.
func CheckFrameBudget(logger *slog.Logger, width, height, frames int) bool {
	need := EstimateFrameBytes(width, height, frames)
	avail, err := MemoryAvailable()
	if err != nil {
		logger.Debug("memory stats unavailable", "error", err)
		return true
	}
	if need > avail {
		logger.Warn("assembly may exceed available memory",
			"need", humanBytes(need),
			"available", humanBytes(avail),
			"frames", frames,
			"size", fmt.Sprintf("%dx%d", width, height),
		)
		return false
	}
	return true
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
