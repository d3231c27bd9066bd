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

package gameboy

import "github.com/relicemu/relic/hardware/snapshot"

// TIMA period in T-cycles per TAC clock select
var timaPeriods = [4]int{1024, 16, 64, 256}

// timer is the DIV/TIMA block. DIV is the high byte of a free running
// 16 bit counter; TIMA derives from the same counter at the TAC rate.
type timer struct {
	request func(bit uint8)

	div  uint16
	tima uint8
	tma  uint8
	tac  uint8

	// T-cycles accumulated towards the next TIMA increment
	timaCounter int
}

func newTimer(request func(bit uint8)) *timer {
	return &timer{request: request}
}

func (tm *timer) reset() {
	tm.div = 0xab00
	tm.tima = 0
	tm.tma = 0
	tm.tac = 0
	tm.timaCounter = 0
}

// step advances the timer by T-cycles.
func (tm *timer) step(cycles int) {
	tm.div += uint16(cycles)

	if tm.tac&0x04 == 0 {
		return
	}

	tm.timaCounter += cycles
	period := timaPeriods[tm.tac&0x03]
	for tm.timaCounter >= period {
		tm.timaCounter -= period
		tm.tima++
		if tm.tima == 0 {
			tm.tima = tm.tma
			tm.request(intTimer)
		}
	}
}

func (tm *timer) read(addr uint16) uint8 {
	switch addr {
	case 0xff04:
		return uint8(tm.div >> 8)
	case 0xff05:
		return tm.tima
	case 0xff06:
		return tm.tma
	case 0xff07:
		return 0xf8 | tm.tac
	}
	return 0xff
}

func (tm *timer) write(addr uint16, data uint8) {
	switch addr {
	case 0xff04:
		// any write clears the whole counter
		tm.div = 0
		tm.timaCounter = 0
	case 0xff05:
		tm.tima = data
	case 0xff06:
		tm.tma = data
	case 0xff07:
		tm.tac = data & 0x07
	}
}

const timerSerializeSize = 9

func (tm *timer) serialize(data []byte) {
	offset := snapshot.PutUint16(data, 0, tm.div)
	offset = snapshot.PutUint8(data, offset, tm.tima)
	offset = snapshot.PutUint8(data, offset, tm.tma)
	offset = snapshot.PutUint8(data, offset, tm.tac)
	_ = snapshot.PutUint32(data, offset, uint32(tm.timaCounter))
}

func (tm *timer) deserialize(data []byte) {
	var offset int
	var v32 uint32
	tm.div, offset = snapshot.Uint16(data, 0)
	tm.tima, offset = snapshot.Uint8(data, offset)
	tm.tma, offset = snapshot.Uint8(data, offset)
	tm.tac, offset = snapshot.Uint8(data, offset)
	v32, _ = snapshot.Uint32(data, offset)
	tm.timaCounter = int(v32)
}
