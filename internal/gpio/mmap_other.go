// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package gpio

import "errors"

const isLinux = false

func mmapPeripheral(base uintptr, size int) ([]byte, error) {
	return nil, errors.New("gpio: /dev/mem mmap not implemented on this OS")
}

func bytesToWords(b []byte) []uint32 {
	return nil
}
