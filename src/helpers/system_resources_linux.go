//go:build linux

package helpers

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// cgroup v2 limit file, present inside containers
const cgroupMemoryMax = "/sys/fs/cgroup/memory.max"

// totalMemoryMB returns physical memory in MB, capped by the cgroup limit when one is set.
func totalMemoryMB() int {
	total := meminfoTotalMB()
	if limit := cgroupLimitMB(); limit > 0 && (total == 0 || limit < total) {
		return limit
	}
	return total
}

func meminfoTotalMB() int {
	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "MemTotal:" {
			if kb, err := strconv.Atoi(fields[1]); err == nil {
				return kb / 1024
			}
		}
	}
	return 0
}

func cgroupLimitMB() int {
	raw, err := os.ReadFile(cgroupMemoryMax)
	if err != nil {
		return 0
	}
	value := strings.TrimSpace(string(raw))
	if value == "max" {
		return 0
	}
	limit, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return int(limit / 1024 / 1024)
}
