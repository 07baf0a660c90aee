// Package maintenance implements the two privileged operations (drop-caches
// and swap-clean) as flat validation-then-mutation sequences with a stable
// exit-code contract, plus the runner that invokes them as helper child
// processes from the interactive session.
package maintenance

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Exit codes are part of the external contract and must remain stable.
const (
	ExitOK             = 0
	ExitNotRoot        = 1
	ExitInvalidParam   = 2
	ExitMutateFailed   = 3 // operation failed: a pre-check read or the mutating step
	ExitMarginShort    = 4 // swap-clean: insufficient memory margin pre-check
	ExitPartialFailure = 5 // swap-clean: disable succeeded, enable failed after retry
)

const (
	DefaultMeminfoPath    = "/proc/meminfo"
	DefaultSwapsPath      = "/proc/swaps"
	DefaultDropCachesPath = "/proc/sys/vm/drop_caches"
)

// geteuid is stubbed in tests to exercise both sides of the privilege check.
var geteuid = os.Geteuid

// readMeminfo parses a meminfo-format file into field -> kB values.
func readMeminfo(path string) (map[string]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result := make(map[string]uint64, 48)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		key := strings.TrimSuffix(fields[0], ":")
		if kb, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
			result[key] = kb
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// memAvailableKB returns MemAvailable in kB from a meminfo-format file.
func memAvailableKB(path string) (uint64, error) {
	info, err := readMeminfo(path)
	if err != nil {
		return 0, err
	}
	avail, ok := info["MemAvailable"]
	if !ok {
		return 0, fmt.Errorf("MemAvailable not found in %s", path)
	}
	return avail, nil
}

// SwapDevice is one active swap area as listed in /proc/swaps.
type SwapDevice struct {
	Filename string
	Type     string
	SizeKB   uint64
	UsedKB   uint64
	Priority int
}

// readSwaps parses a /proc/swaps-format file.
func readSwaps(path string) ([]SwapDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []SwapDevice
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			first = false // header line
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 {
			continue
		}
		size, err1 := strconv.ParseUint(fields[2], 10, 64)
		used, err2 := strconv.ParseUint(fields[3], 10, 64)
		prio, err3 := strconv.Atoi(fields[4])
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		entries = append(entries, SwapDevice{
			Filename: fields[0],
			Type:     fields[1],
			SizeKB:   size,
			UsedKB:   used,
			Priority: prio,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
