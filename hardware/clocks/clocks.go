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

// Package clocks deals with the relationship between the clock domains of an
// emulated console. Every chip runs at a fixed integer ratio to the console's
// master frequency; the Domain type converts elapsed cycles in one domain
// (almost always the CPU's) to elapsed ticks in another without accumulating
// error. The fractional part of every conversion is carried over to the next,
// so over any number of frames the conversion is exact.
//
// Ratios never change for the lifetime of a machine. A PAL machine is a
// different machine, not a retuned NTSC one.
package clocks

// Crystal frequencies shared by the supported consoles. The NTSC colorburst
// frequency underlies almost everything Nintendo and Sega shipped in the
// period.
const (
	NTSCColorburst = 3579545
	PALColorburst  = 4433619

	// master clocks
	NESMasterNTSC         = 21477272 // 6 * colorburst
	NESMasterPAL          = 26601712
	SNESMasterNTSC        = 21477272
	SNESMasterPAL         = 21281370
	GameBoyClock          = 4194304
	MegaDriveMasterNTSC   = 53693175
	MegaDriveMasterPAL    = 53203424
	MasterSystemClockNTSC = 10738580 // 3 * colorburst
	MasterSystemClockPAL  = 10640685

	// the Sega CD expansion carries its own crystal for the sub CPU
	SegaCDSubClock = 12500000
)

// Domain converts cycles counted in a reference clock domain to ticks in the
// domain it describes. The ratio is Num ticks for every Den reference cycles.
type Domain struct {
	Num int64
	Den int64

	// the fractional remainder carried between calls to Ticks(). part of the
	// machine state for snapshot purposes
	rem int64
}

// NewDomain creates a clock domain ticking Num times for every Den cycles of
// the reference domain.
func NewDomain(num, den int64) *Domain {
	if num <= 0 || den <= 0 {
		panic("clocks: domain ratio must be positive")
	}
	return &Domain{Num: num, Den: den}
}

// Ticks converts elapsed reference cycles to elapsed ticks in this domain.
// The remainder of the integer division is kept for the next call.
func (dom *Domain) Ticks(cycles int) int {
	acc := dom.rem + int64(cycles)*dom.Num
	dom.rem = acc % dom.Den
	return int(acc / dom.Den)
}

// Phase returns the current fractional remainder. Used when serializing
// machine state.
func (dom *Domain) Phase() int64 {
	return dom.rem
}

// SetPhase restores a fractional remainder previously returned by Phase().
func (dom *Domain) SetPhase(rem int64) {
	dom.rem = rem
}
