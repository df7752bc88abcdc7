//go:build darwin

package helpers

import (
	"os/exec"
	"strconv"
	"strings"
)

// totalMemoryMB asks sysctl for hw.memsize.
func totalMemoryMB() int {
	out, err := exec.Command("sysctl", "-n", "hw.memsize").Output()
	if err != nil {
		return 0
	}

	bytes, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0
	}
	return int(bytes / 1024 / 1024)
}
