// Package komsi encodes KOMSI protocol commands.
//
// A command is a single code byte followed by the decimal ASCII digits of
// its value, with no separator:
//
//	Speed (121), value 100  ->  [121 49 48 48] ("y100")
//
// A batch of commands ends with a single line-feed.
package komsi

import "strconv"

// Build returns the encoded command for a 32-bit value.
func Build(kind CommandKind, value uint32) []byte {
	return Append(make([]byte, 0, 11), kind, value)
}

// BuildU8 returns the encoded command for an 8-bit value.
func BuildU8(kind CommandKind, value uint8) []byte {
	return Append(make([]byte, 0, 4), kind, value)
}

// Append appends the encoded command to dst and returns the extended slice.
// Values are written without sign, grouping or leading zeros; zero is "0".
func Append[T uint8 | uint32](dst []byte, kind CommandKind, value T) []byte {
	dst = append(dst, kind.Byte())
	return strconv.AppendUint(dst, uint64(value), 10)
}

// Terminator returns the end-of-batch marker.
func Terminator() []byte {
	return []byte{EndOfLine.Byte()}
}

// Count returns the number of commands in a batch. Digits and the
// terminator are not commands.
func Count(batch []byte) int {
	n := 0
	for _, b := range batch {
		if b != EndOfLine.Byte() && (b < '0' || b > '9') {
			n++
		}
	}
	return n
}

// AppendTerminator appends the end-of-batch marker to dst.
func AppendTerminator(dst []byte) []byte {
	return append(dst, EndOfLine.Byte())
}
