// Copyright 2024 The PWM Generator Authors.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpio provides direct register access to the eight GPIO pins the
// generator drives, memory-mapped from /dev/mem on a Raspberry Pi, or
// backed by ordinary heap memory on any other host so the rest of the
// program can run unmodified off-device.
package gpio

import "errors"

// NumChannels is the number of independently driven output pins.
const NumChannels = 8

// channelPins holds the BCM GPIO numbers driven by channels 0..7, in order.
var channelPins = [NumChannels]uint{2, 3, 4, 5, 6, 7, 8, 9}

// ChannelBit returns the bit mask of channel ch's pin within the 32-bit
// GPIO set/clear registers (GPIO pins 0..31 map 1:1 to bits 0..31).
func ChannelBit(ch int) uint32 {
	return 1 << channelPins[ch]
}

// ChannelMask is the bitwise OR of every channel's ChannelBit, the mask the
// generator uses to silence or query all eight outputs at once.
var ChannelMask uint32

func init() {
	for ch := 0; ch < NumChannels; ch++ {
		ChannelMask |= ChannelBit(ch)
	}
}

// gpioBase is the byte offset of the GPIO peripheral within the SoC's
// peripheral address space, constant across all BCM28xx/BCM2711 variants.
const gpioBase = 0x200000

// gpioSize is the span mapped, enough to cover the function-select,
// set and clear registers used here.
const gpioSize = 0xf4

// setRegWord and clrRegWord are the GPSET0/GPCLR0 register offsets, in
// 32-bit words from the start of the mapped region.
const (
	setRegWord = 7
	clrRegWord = 10
)

// ErrAlreadyOpen is returned by Open when the package-level window has
// already been initialized.
var ErrAlreadyOpen = errors.New("gpio: already open")

// Window is the live memory-mapped (or heap-backed, off-Pi) register
// window through which the generator drives its eight channels.
type Window struct {
	mem      []uint32 // nil when heap-backed (fallback mode)
	set, clr *uint32
}

// Fallback reports whether this Window is a non-Pi heap-backed stand-in:
// writes succeed but have no hardware effect.
func (w *Window) Fallback() bool {
	return w.mem == nil
}

// Set drives high every pin named in mask, leaving all others untouched.
func (w *Window) Set(mask uint32) {
	*w.set = mask
}

// Clear drives low every pin named in mask, leaving all others untouched.
func (w *Window) Clear(mask uint32) {
	*w.clr = mask
}

var (
	current *Window
)

// NewFallback returns a standalone heap-backed Window of the kind Open
// returns on a non-Pi host: Set/Clear succeed but have no hardware
// effect. It does not touch the package-level singleton, so it is safe
// to call any number of times; intended for tests of code that consumes
// a *Window without needing real hardware.
func NewFallback() *Window {
	w := &Window{}
	var dummy uint32
	w.set, w.clr = &dummy, &dummy
	return w
}

// Open maps the GPIO peripheral and configures the eight channel pins as
// outputs, mirroring the original's gpio_init: it detects the board
// revision, derives the peripheral's physical base address from it, maps
// gpioSize bytes at peripheralBase+gpioBase, and sets the function-select
// bits of each channel pin to 001 (output).
//
// On a host that does not identify as a Raspberry Pi, Open succeeds with a
// heap-backed fallback Window so the rest of the program is host-portable;
// writes to it are harmless no-ops. Calling Open a second time returns
// ErrAlreadyOpen.
func Open() (*Window, error) {
	if current != nil {
		return nil, ErrAlreadyOpen
	}
	rev, err := BoardRevision()
	if err != nil {
		return nil, err
	}
	base, isPi, err := peripheralBase(rev)
	if err != nil {
		return nil, err
	}
	if !isPi {
		w := &Window{}
		var dummy uint32
		w.set, w.clr = &dummy, &dummy
		current = w
		return w, nil
	}
	mem, err := mmapPeripheral(uintptr(base) + gpioBase, gpioSize)
	if err != nil {
		return nil, err
	}
	words := bytesToWords(mem)
	for ch := 0; ch < NumChannels; ch++ {
		pin := channelPins[ch]
		reg := pin / 10
		shift := (pin % 10) * 3
		words[reg] &^= 7 << shift
		words[reg] |= 1 << shift
	}
	w := &Window{mem: words}
	w.set = &words[setRegWord]
	w.clr = &words[clrRegWord]
	current = w
	return w, nil
}

// reset clears the package-level singleton, for use by tests only.
func reset() {
	current = nil
}
