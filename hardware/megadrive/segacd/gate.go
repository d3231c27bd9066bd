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

package segacd

import (
	"github.com/relicemu/relic/hardware/snapshot"
)

// The gate array register block appears to the main CPU at 0xa12000 and to
// the sub CPU at 0xff8000, with the same register offsets but different
// read/write rights per side:
//
//	0x00/01  interrupt trigger, sub reset and bus request (main)
//	0x02/03  write protect, memory mode, PRG RAM bank
//	0x06/07  H-INT vector
//	0x0c/0d  stopwatch
//	0x0e/0f  communication flags, one byte per side
//	0x10-1f  command words, main writes, sub reads
//	0x20-2f  status words, sub writes, main reads
//	0x30-33  INT3 timer and interrupt mask (sub only)
//
// The CD drive controller registers are not implemented; reads return
// zero. See DESIGN.md.

// int2 is the main CPU poking the sub CPU, gated by the sub's mask.
func (e *expansion) int2() {
	if e.intMask&0x04 != 0 {
		e.sub.RequestInterrupt(2, nil)
	}
}

// memoryMode composes the shared half of register 0x03.
func (e *expansion) memoryMode() uint8 {
	var data uint8
	if e.ret {
		data |= 0x01
	}
	if e.ownerSub {
		data |= 0x02
	}
	if e.mode1M {
		data |= 0x04
	}
	return data
}

func (e *expansion) gateReadMain(reg uint8) uint8 {
	switch reg {
	case 0x00:
		return 0
	case 0x01:
		var data uint8
		if !e.subReset {
			data |= 0x01
		}
		if e.subBusReq {
			data |= 0x02
		}
		return data
	case 0x02:
		return e.wp
	case 0x03:
		return e.memoryMode() | e.prgBank<<6
	case 0x06:
		return uint8(e.hintVector >> 8)
	case 0x07:
		return uint8(e.hintVector)
	case 0x0c:
		return uint8(e.stopwatch >> 8)
	case 0x0d:
		return uint8(e.stopwatch)
	case 0x0e:
		return e.commFlagMain
	case 0x0f:
		return e.commFlagSub
	}

	switch {
	case reg >= 0x10 && reg < 0x20:
		return e.commCmd[reg-0x10]
	case reg >= 0x20 && reg < 0x30:
		return e.commStat[reg-0x20]
	}
	return 0
}

func (e *expansion) gateWriteMain(reg uint8, data uint8) {
	switch reg {
	case 0x00:
		if data&0x01 != 0 {
			e.int2()
		}
	case 0x01:
		release := data&0x01 != 0
		if release && e.subReset {
			e.pendingReset = true
		}
		e.subReset = !release
		e.subBusReq = data&0x02 != 0
	case 0x02:
		e.wp = data
	case 0x03:
		e.prgBank = data >> 6 & 0x03
		if e.mode1M {
			// requesting a swap hands the main bank to the sub side
			if data&0x02 != 0 {
				e.ret = false
			}
		} else if data&0x02 != 0 {
			e.ownerSub = true
			e.ret = false
		}
	case 0x06:
		e.hintVector = e.hintVector&0x00ff | uint16(data)<<8
	case 0x07:
		e.hintVector = e.hintVector&0xff00 | uint16(data)
	case 0x0c, 0x0d:
		e.stopwatch = 0
	case 0x0e:
		e.commFlagMain = data
	}

	if reg >= 0x10 && reg < 0x20 {
		e.commCmd[reg-0x10] = data
	}
}

func (e *expansion) gateReadSub(reg uint8) uint8 {
	switch reg {
	case 0x00, 0x01:
		return 0
	case 0x02:
		return e.wp
	case 0x03:
		return e.memoryMode()
	case 0x0c:
		return uint8(e.stopwatch >> 8)
	case 0x0d:
		return uint8(e.stopwatch)
	case 0x0e:
		return e.commFlagMain
	case 0x0f:
		return e.commFlagSub
	case 0x31:
		return e.timerReload
	case 0x33:
		return e.intMask
	}

	switch {
	case reg >= 0x10 && reg < 0x20:
		return e.commCmd[reg-0x10]
	case reg >= 0x20 && reg < 0x30:
		return e.commStat[reg-0x20]
	}
	return 0
}

func (e *expansion) gateWriteSub(reg uint8, data uint8) {
	switch reg {
	case 0x03:
		e.mode1M = data&0x04 != 0
		if e.mode1M {
			if data&0x01 != 0 {
				e.ret = true
			}
		} else if data&0x01 != 0 {
			// return word RAM to the main CPU
			e.ownerSub = false
			e.ret = true
		}
	case 0x0c, 0x0d:
		e.stopwatch = 0
	case 0x0f:
		e.commFlagSub = data
	case 0x31:
		e.timerReload = data
		e.timerCount = int(data)
	case 0x33:
		e.intMask = data
	}

	if reg >= 0x20 && reg < 0x30 {
		e.commStat[reg-0x20] = data
	}
}

const gateSerializeSize = 3 + // reset, bus request, pending reset
	2 + // PRG bank, write protect
	3 + // memory mode bits
	2 + // H-INT vector
	2 + // stopwatch
	2 + // communication flags
	16 + 16 + // command and status words
	1 + 2 + 1 + // timer reload, count, interrupt mask
	2 // clock divider

func (e *expansion) serializeGate(data []byte, offset int) int {
	offset = snapshot.PutBool(data, offset, e.subReset)
	offset = snapshot.PutBool(data, offset, e.subBusReq)
	offset = snapshot.PutBool(data, offset, e.pendingReset)
	offset = snapshot.PutUint8(data, offset, e.prgBank)
	offset = snapshot.PutUint8(data, offset, e.wp)
	offset = snapshot.PutBool(data, offset, e.mode1M)
	offset = snapshot.PutBool(data, offset, e.ownerSub)
	offset = snapshot.PutBool(data, offset, e.ret)
	offset = snapshot.PutUint16(data, offset, e.hintVector)
	offset = snapshot.PutUint16(data, offset, e.stopwatch)
	offset = snapshot.PutUint8(data, offset, e.commFlagMain)
	offset = snapshot.PutUint8(data, offset, e.commFlagSub)
	offset = snapshot.PutBytes(data, offset, e.commCmd[:])
	offset = snapshot.PutBytes(data, offset, e.commStat[:])
	offset = snapshot.PutUint8(data, offset, e.timerReload)
	offset = snapshot.PutUint16(data, offset, uint16(e.timerCount))
	offset = snapshot.PutUint8(data, offset, e.intMask)
	return snapshot.PutUint16(data, offset, uint16(e.divider))
}

func (e *expansion) deserializeGate(data []byte, offset int) int {
	var v16 uint16

	e.subReset, offset = snapshot.Bool(data, offset)
	e.subBusReq, offset = snapshot.Bool(data, offset)
	e.pendingReset, offset = snapshot.Bool(data, offset)
	e.prgBank, offset = snapshot.Uint8(data, offset)
	e.wp, offset = snapshot.Uint8(data, offset)
	e.mode1M, offset = snapshot.Bool(data, offset)
	e.ownerSub, offset = snapshot.Bool(data, offset)
	e.ret, offset = snapshot.Bool(data, offset)
	e.hintVector, offset = snapshot.Uint16(data, offset)
	e.stopwatch, offset = snapshot.Uint16(data, offset)
	e.commFlagMain, offset = snapshot.Uint8(data, offset)
	e.commFlagSub, offset = snapshot.Uint8(data, offset)
	offset = snapshot.Bytes(data, offset, e.commCmd[:])
	offset = snapshot.Bytes(data, offset, e.commStat[:])
	e.timerReload, offset = snapshot.Uint8(data, offset)
	v16, offset = snapshot.Uint16(data, offset)
	e.timerCount = int(v16)
	e.intMask, offset = snapshot.Uint8(data, offset)
	v16, offset = snapshot.Uint16(data, offset)
	e.divider = int(v16)
	return offset
}
