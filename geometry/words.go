package geometry

import "encoding/binary"

// SumWords adds up b as a sequence of 16-bit words in the given byte order,
// modulo 65536. A trailing odd byte is ignored.
func SumWords(b []byte, order binary.ByteOrder) uint16 {
	var sum uint16
	for i := 0; i+1 < len(b); i += 2 {
		sum += order.Uint16(b[i:])
	}
	return sum
}

// PutString copies s into b and pads the rest of b with pad.
func PutString(b []byte, s string, pad byte) {
	n := copy(b, s)
	for i := n; i < len(b); i++ {
		b[i] = pad
	}
}
