// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpio

import (
	"fmt"
	"os"
	"reflect"
	"syscall"
	"unsafe"
)

const isLinux = true

// mmapPeripheral maps size bytes of /dev/mem at physical offset base.
func mmapPeripheral(base uintptr, size int) ([]byte, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("gpio: open /dev/mem: %w (must run as root)", err)
	}
	defer f.Close()
	mem, err := syscall.Mmap(int(f.Fd()), int64(base), size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("gpio: mmap: %w", err)
	}
	return mem, nil
}

// bytesToWords reinterprets a byte slice backed by mmap as a []uint32,
// the same slice-header reinterpretation pmem.Slice.Uint32 uses.
func bytesToWords(b []byte) []uint32 {
	header := *(*reflect.SliceHeader)(unsafe.Pointer(&b))
	header.Len /= 4
	header.Cap /= 4
	return *(*[]uint32)(unsafe.Pointer(&header))
}
