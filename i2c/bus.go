package i2c

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout bounds how long ReadRegister waits for the device to
// return a byte.
const DefaultTimeout = time.Second

// ErrTimeout is returned when a register read does not complete within the
// bus timeout. It is never confused with a register value.
var ErrTimeout = errors.New("timeout waiting for data")

// A Device is typically a *sysfs.I2cDevice (gobot.io/x/gobot/sysfs) or a
// *PeriphDevice.
type Device interface {
	SetAddress(address int) error
	ReadByteData(reg uint8) (val uint8, err error)
	WriteByteData(reg, val uint8) error
}

// A FrequencySetter is a Device whose bus clock can be configured.
type FrequencySetter interface {
	SetFrequency(hz int64) error
}

// Bus performs single byte register transactions against one device
// address.
type Bus struct {
	dev     Device
	address int

	// Timeout is the read timeout; DefaultTimeout unless changed.
	Timeout time.Duration

	mut     sync.Mutex
	pending bool // an abandoned read has not returned yet
}

type readResult struct {
	val uint8
	err error
}

func NewBus(dev Device, address int) (*Bus, error) {
	if err := dev.SetAddress(address); err != nil {
		return nil, fmt.Errorf("set device address: %w", err)
	}
	return &Bus{dev: dev, address: address, Timeout: DefaultTimeout}, nil
}

func (b *Bus) Address() int {
	return b.address
}

func (b *Bus) WriteRegister(reg, val uint8) error {
	if err := b.dev.WriteByteData(reg, val); err != nil {
		return fmt.Errorf("write register 0x%02x: %w", reg, err)
	}
	return nil
}

// ReadRegister reads one byte from reg. If the device has not answered
// within the timeout the read is abandoned and ErrTimeout returned; the
// pending transaction is left to finish on its own. Until it does, further
// reads fail with ErrTimeout without touching the device.
func (b *Bus) ReadRegister(reg uint8) (uint8, error) {
	b.mut.Lock()
	if b.pending {
		b.mut.Unlock()
		return 0, fmt.Errorf("read register 0x%02x: previous read outstanding: %w", reg, ErrTimeout)
	}
	b.pending = true
	b.mut.Unlock()

	res := make(chan readResult, 1)
	go func() {
		val, err := b.dev.ReadByteData(reg)
		b.mut.Lock()
		b.pending = false
		b.mut.Unlock()
		res <- readResult{val, err}
	}()

	timer := time.NewTimer(b.Timeout)
	defer timer.Stop()

	select {
	case r := <-res:
		if r.err != nil {
			return 0, fmt.Errorf("read register 0x%02x: %w", reg, r.err)
		}
		return r.val, nil
	case <-timer.C:
		return 0, fmt.Errorf("read register 0x%02x: %w", reg, ErrTimeout)
	}
}
