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

// Package irq tracks the interrupt lines and DMA stalls of one machine.
//
// Interrupt lines are named signals set by chip simulators and consumed by
// the CPU before each instruction. A level line is pending for as long as
// the source asserts it; an edge line latches its assertion and stays
// pending until acknowledged.
//
// DMA is modelled as an immediate copy plus a stall debt. Real hardware
// halts the CPU while the transfer runs; here the transfer's bus traffic
// happens atomically when scheduled and the documented cycle cost is banked
// as a stall that the scheduler pays off before the next CPU step. The
// accounting is what matters: total frame cycles equal CPU cycles plus
// stall cycles, exactly.
package irq

// Sense describes how a line's pending state relates to its input signal.
type Sense int

// The two line senses.
const (
	Level Sense = iota
	Edge
)

// Line is a single named interrupt signal.
type Line struct {
	Label    string
	Sense    Sense
	Maskable bool

	asserted bool
	latched  bool
}

// NewLine creates an interrupt line.
func NewLine(label string, sense Sense, maskable bool) *Line {
	return &Line{Label: label, Sense: sense, Maskable: maskable}
}

// Assert drives the line's input. An edge line latches on the rising edge
// only.
func (ln *Line) Assert(v bool) {
	if ln.Sense == Edge && v && !ln.asserted {
		ln.latched = true
	}
	ln.asserted = v
}

// Pending reports whether the line demands service.
func (ln *Line) Pending() bool {
	if ln.Sense == Edge {
		return ln.latched
	}
	return ln.asserted
}

// Acknowledge clears a latched edge line. Level lines are cleared at the
// source, by whatever register access the hardware documents.
func (ln *Line) Acknowledge() {
	ln.latched = false
}

// Serialize returns the line state packed into a byte.
func (ln *Line) Serialize() uint8 {
	var v uint8
	if ln.asserted {
		v |= 0x01
	}
	if ln.latched {
		v |= 0x02
	}
	return v
}

// Deserialize restores line state packed by Serialize.
func (ln *Line) Deserialize(v uint8) {
	ln.asserted = v&0x01 != 0
	ln.latched = v&0x02 != 0
}

// Transfer describes one DMA operation for logging and debugging purposes.
// The actual bus traffic is performed by the copy function given to
// Controller.Schedule, because every console moves bytes through its own
// bus in its own way.
type Transfer struct {
	Label         string
	Source        uint32
	Dest          uint32
	Units         int
	CyclesPerUnit int
}

// Cycles is the stall debt the transfer incurs.
func (tr Transfer) Cycles() int {
	return tr.Units * tr.CyclesPerUnit
}

// Controller owns a machine's interrupt lines and its outstanding stall
// debt.
type Controller struct {
	lines []*Line
	stall int
}

// NewController creates an empty controller.
func NewController() *Controller {
	return &Controller{}
}

// AddLine registers a line with the controller and returns it.
func (ct *Controller) AddLine(label string, sense Sense, maskable bool) *Line {
	ln := NewLine(label, sense, maskable)
	ct.lines = append(ct.lines, ln)
	return ln
}

// Lines returns the registered lines in registration order. The order is
// fixed at construction so it doubles as the serialization order.
func (ct *Controller) Lines() []*Line {
	return ct.lines
}

// Schedule performs a DMA transfer. The copy function runs immediately and
// atomically with respect to the instruction that triggered it; the cycle
// cost is added to the stall debt.
func (ct *Controller) Schedule(tr Transfer, copy func()) {
	if copy != nil {
		copy()
	}
	ct.stall += tr.Cycles()
}

// AddStall adds cycles to the stall debt without a transfer. Used for
// single-unit stalls like the NES DMC sample fetch.
func (ct *Controller) AddStall(cycles int) {
	ct.stall += cycles
}

// Stall returns the outstanding stall debt and clears it. The scheduler
// calls this before every CPU step.
func (ct *Controller) Stall() int {
	s := ct.stall
	ct.stall = 0
	return s
}
