package i2c

import (
	"fmt"

	pi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// PeriphDevice adapts a periph.io I2C bus to the Device interface. Register
// reads are a single write-then-read transaction with a repeated start.
type PeriphDevice struct {
	bus    pi2c.Bus
	dev    pi2c.Dev
	closer pi2c.BusCloser
}

// OpenPeriph initializes the host drivers and opens the named bus ("1",
// "/dev/i2c-1", or "" for the first available one).
func OpenPeriph(name string) (*PeriphDevice, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open I2C bus %q: %w", name, err)
	}
	d := NewPeriphDevice(bus)
	d.closer = bus
	return d, nil
}

func NewPeriphDevice(bus pi2c.Bus) *PeriphDevice {
	return &PeriphDevice{bus: bus, dev: pi2c.Dev{Bus: bus}}
}

func (d *PeriphDevice) SetAddress(address int) error {
	if address < 0 || address > 0x3ff {
		return fmt.Errorf("invalid I2C address 0x%x", address)
	}
	d.dev.Addr = uint16(address)
	return nil
}

func (d *PeriphDevice) SetFrequency(hz int64) error {
	return d.bus.SetSpeed(physic.Frequency(hz) * physic.Hertz)
}

func (d *PeriphDevice) ReadByteData(reg uint8) (uint8, error) {
	var buf [1]byte
	if err := d.dev.Tx([]byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *PeriphDevice) WriteByteData(reg, val uint8) error {
	_, err := d.dev.Write([]byte{reg, val})
	return err
}

// Close releases the bus if it was opened by OpenPeriph.
func (d *PeriphDevice) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}
