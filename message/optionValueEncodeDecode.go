package message

import (
	"encoding/binary"
	"fmt"
)

// EncodeUint32 writes value in the minimal big-endian form used by uint
// options (zero encodes to no bytes). With a short buffer the required size
// is returned together with ErrTooSmall.
func EncodeUint32(buf []byte, value uint32) (int, error) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], value)
	skip := 0
	for skip < len(tmp) && tmp[skip] == 0 {
		skip++
	}
	size := len(tmp) - skip
	if len(buf) < size {
		return size, ErrTooSmall
	}
	copy(buf, tmp[skip:])
	return size, nil
}

// DecodeUint32 decodes a uint option value of at most 4 bytes.
func DecodeUint32(buf []byte) (uint32, int, error) {
	if len(buf) > 4 {
		return 0, -1, fmt.Errorf("%w: uint value has %v bytes", ErrInvalidEncoding, len(buf))
	}
	var tmp [4]byte
	copy(tmp[4-len(buf):], buf)
	return binary.BigEndian.Uint32(tmp[:]), len(buf), nil
}
