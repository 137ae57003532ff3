package runner

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

var vmHWMPattern = regexp.MustCompile(`^VmHWM:[ \t]*([0-9]+)[ \t]*([a-zA-Z]*)`)

// ParseVmHWM extracts the peak resident set size, in bytes, from a memory
// tracking log of /proc status snapshots. The last VmHWM line wins, since
// the value is monotonic over the life of the process.
func ParseVmHWM(r io.Reader) (int64, error) {
	var result int64 = -1
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := vmHWMPattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing VmHWM value %q: %w", m[1], err)
		}
		switch m[2] {
		case "kB":
			n *= 1024
		case "":
		default:
			return 0, fmt.Errorf("unrecognized unit %q in memory usage log", m[2])
		}
		result = n
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	if result < 0 {
		return 0, fmt.Errorf("no VmHWM line found in memory usage log")
	}
	return result, nil
}
