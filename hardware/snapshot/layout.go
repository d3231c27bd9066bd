// This file is part of Relic.
//
// Relic is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Relic is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Relic.  If not, see <https://www.gnu.org/licenses/>.

package snapshot

import "encoding/binary"

// Offset-discipline helpers used by every machine's Serialize/Deserialize.
// All little endian. Each Put returns the offset following the written
// value so serialization code reads as a linear layout description.

// PutUint8 writes v at offset.
func PutUint8(data []byte, offset int, v uint8) int {
	data[offset] = v
	return offset + 1
}

// Uint8 reads a value written by PutUint8.
func Uint8(data []byte, offset int) (uint8, int) {
	return data[offset], offset + 1
}

// PutUint16 writes v at offset.
func PutUint16(data []byte, offset int, v uint16) int {
	binary.LittleEndian.PutUint16(data[offset:], v)
	return offset + 2
}

// Uint16 reads a value written by PutUint16.
func Uint16(data []byte, offset int) (uint16, int) {
	return binary.LittleEndian.Uint16(data[offset:]), offset + 2
}

// PutUint32 writes v at offset.
func PutUint32(data []byte, offset int, v uint32) int {
	binary.LittleEndian.PutUint32(data[offset:], v)
	return offset + 4
}

// Uint32 reads a value written by PutUint32.
func Uint32(data []byte, offset int) (uint32, int) {
	return binary.LittleEndian.Uint32(data[offset:]), offset + 4
}

// PutUint64 writes v at offset.
func PutUint64(data []byte, offset int, v uint64) int {
	binary.LittleEndian.PutUint64(data[offset:], v)
	return offset + 8
}

// Uint64 reads a value written by PutUint64.
func Uint64(data []byte, offset int) (uint64, int) {
	return binary.LittleEndian.Uint64(data[offset:]), offset + 8
}

// PutInt64 writes v at offset. Used for clock domain phase remainders.
func PutInt64(data []byte, offset int, v int64) int {
	binary.LittleEndian.PutUint64(data[offset:], uint64(v))
	return offset + 8
}

// Int64 reads a value written by PutInt64.
func Int64(data []byte, offset int) (int64, int) {
	return int64(binary.LittleEndian.Uint64(data[offset:])), offset + 8
}

// PutBool writes v at offset as a single byte.
func PutBool(data []byte, offset int, v bool) int {
	if v {
		data[offset] = 1
	} else {
		data[offset] = 0
	}
	return offset + 1
}

// Bool reads a value written by PutBool.
func Bool(data []byte, offset int) (bool, int) {
	return data[offset] != 0, offset + 1
}

// PutBytes copies src at offset.
func PutBytes(data []byte, offset int, src []byte) int {
	copy(data[offset:], src)
	return offset + len(src)
}

// Bytes copies into dst from offset.
func Bytes(data []byte, offset int, dst []byte) int {
	copy(dst, data[offset:offset+len(dst)])
	return offset + len(dst)
}
