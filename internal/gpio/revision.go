// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpio

import (
	"encoding/binary"
	"os"
	"strconv"
	"strings"
)

// readFile is a package variable so tests can substitute a fake /proc tree,
// the same indirection host/distro uses for its os-release and cpuinfo
// readers.
var readFile = os.ReadFile

// BoardRevision returns the raw board revision code reported by the
// kernel, read from /proc/cpuinfo's "Revision" field and, failing that,
// from the big-endian uint32 device-tree property used on some arm64
// kernels. The top byte (bits 24..31), where the warranty-void flag is
// set, is always masked out.
//
// A return of (0, nil) means the host reported no revision at all, which
// peripheralBase treats as "not a Raspberry Pi".
func BoardRevision() (uint32, error) {
	if rev, ok := cpuinfoRevision(); ok {
		return rev & 0xffffff, nil
	}
	if rev, ok := devtreeRevision(); ok {
		return rev & 0xffffff, nil
	}
	return 0, nil
}

func cpuinfoRevision() (uint32, bool) {
	data, err := readFile("/proc/cpuinfo")
	if err != nil {
		return 0, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		const prefix = "revision"
		fields := strings.SplitN(line, ":", 2)
		if len(fields) != 2 {
			continue
		}
		if strings.TrimSpace(strings.ToLower(fields[0])) != prefix {
			continue
		}
		rev, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 16, 32)
		if err != nil {
			return 0, false
		}
		return uint32(rev), true
	}
	return 0, false
}

func devtreeRevision() (uint32, bool) {
	data, err := readFile("/proc/device-tree/system/linux,revision")
	if err != nil || len(data) < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(data[:4]), true
}

// peripheralBase decodes a board revision code into the SoC's peripheral
// physical base address, mirroring the original's gpioHardwareRevision
// switch on old-style and new-style revision encodings. isPi is false when
// rev is 0 or unrecognized, in which case Open falls back to a heap-backed
// Window rather than failing: an unrecognized revision means "not a board
// we know how to drive", not an I/O error.
func peripheralBase(rev uint32) (base uint32, isPi bool, err error) {
	if rev == 0 {
		return 0, false, nil
	}
	if rev&0x800000 == 0 {
		// Old-style revision code: a small integer identifying a BCM2835
		// board directly, no model field.
		if rev < 0x0016 {
			return 0x20000000, true, nil
		}
		return 0, false, nil
	}
	switch (rev >> 12) & 0xf {
	case 0x0: // BCM2835
		return 0x20000000, true, nil
	case 0x1, 0x2: // BCM2836, BCM2837
		return 0x3f000000, true, nil
	case 0x3: // BCM2711
		return 0xfe000000, true, nil
	default:
		return 0, false, nil
	}
}
