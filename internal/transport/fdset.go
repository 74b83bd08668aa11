//go:build linux

package transport

import "golang.org/x/sys/unix"

// fdZero, fdSet and fdIsSet implement the small bit of select(2) fd_set
// manipulation that golang.org/x/sys/unix exposes only as a plain struct of
// words, mirroring the FD_ZERO/FD_SET/FD_ISSET macros used directly by the
// original C++ receiver (comms_receiver.cpp).
const fdSetWordBits = 64

func fdZero(set *unix.FdSet) {
	for i := range set.Bits {
		set.Bits[i] = 0
	}
}

func fdSet(fd int, set *unix.FdSet) {
	set.Bits[fd/fdSetWordBits] |= 1 << (uint(fd) % fdSetWordBits)
}

func fdIsSet(fd int, set *unix.FdSet) bool {
	return set.Bits[fd/fdSetWordBits]&(1<<(uint(fd)%fdSetWordBits)) != 0
}
