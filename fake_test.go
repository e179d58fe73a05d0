package qmi8658

import (
	"sync"
)

type op struct {
	Write bool
	Reg   uint8
	Val   uint8
}

func rd(reg, val uint8) op { return op{Reg: reg, Val: val} }
func wr(reg, val uint8) op { return op{Write: true, Reg: reg, Val: val} }

// fakeDevice is a register file that records every transaction.
type fakeDevice struct {
	mut       sync.Mutex
	address   int
	frequency int64
	regs      [256]uint8
	stuck     map[uint8]uint8 // reads of these registers always return the value
	hang      chan struct{}   // reads of hangReg block until closed
	hangReg   uint8
	ops       []op
}

func newFakeDevice(regs map[uint8]uint8) *fakeDevice {
	d := &fakeDevice{stuck: make(map[uint8]uint8)}
	for reg, val := range regs {
		d.regs[reg] = val
	}
	return d
}

func (d *fakeDevice) SetAddress(address int) error {
	d.mut.Lock()
	defer d.mut.Unlock()
	d.address = address
	return nil
}

func (d *fakeDevice) ReadByteData(reg uint8) (uint8, error) {
	if d.hang != nil && reg == d.hangReg {
		<-d.hang
	}
	d.mut.Lock()
	defer d.mut.Unlock()
	val, ok := d.stuck[reg]
	if !ok {
		val = d.regs[reg]
	}
	d.ops = append(d.ops, rd(reg, val))
	return val, nil
}

func (d *fakeDevice) WriteByteData(reg, val uint8) error {
	d.mut.Lock()
	defer d.mut.Unlock()
	d.regs[reg] = val
	d.ops = append(d.ops, wr(reg, val))
	return nil
}

func (d *fakeDevice) recorded() []op {
	d.mut.Lock()
	defer d.mut.Unlock()
	return append([]op(nil), d.ops...)
}

type fakeClockedDevice struct {
	*fakeDevice
}

func (d fakeClockedDevice) SetFrequency(hz int64) error {
	d.mut.Lock()
	defer d.mut.Unlock()
	d.frequency = hz
	return nil
}
