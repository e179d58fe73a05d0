// Package qmi8658 drives the QST QMI8658 six axis IMU (3D accelerometer, 3D
// gyroscope and temperature sensor) over I2C.
//
// A QMI8658 is not safe for concurrent use; callers sharing one between
// goroutines must serialize access themselves.
package qmi8658

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/calmh/qmi8658/i2c"
)

type QMI8658 struct {
	bus        *i2c.Bus
	log        *log.Entry
	resetDelay time.Duration
	ctx        Context
	id         Identity
}

// Identity is the chip and revision ID read during Open.
type Identity struct {
	DeviceID   uint8
	RevisionID uint8
}

type Option func(*QMI8658)

func WithLogger(l *log.Entry) Option {
	return func(s *QMI8658) {
		s.log = l
	}
}

// WithResetDelay makes Open wait the given time after the soft reset before
// programming the sensor.
func WithResetDelay(d time.Duration) Option {
	return func(s *QMI8658) {
		s.resetDelay = d
	}
}

// WithTimeout sets the register read timeout; the default is one second.
// A zero or negative duration leaves the default in place.
func WithTimeout(d time.Duration) Option {
	return func(s *QMI8658) {
		if d > 0 {
			s.bus.Timeout = d
		}
	}
}

// New returns a driver for the sensor at the given address. A frequency
// greater than zero sets the bus clock when the device supports it.
func New(dev i2c.Device, address int, frequency int64, opts ...Option) (*QMI8658, error) {
	bus, err := i2c.NewBus(dev, address)
	if err != nil {
		return nil, err
	}

	s := &QMI8658{
		bus: bus,
		log: log.WithField("sensor", "qmi8658"),
		ctx: defaultContext(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if frequency > 0 {
		if fs, ok := dev.(i2c.FrequencySetter); ok {
			if err := fs.SetFrequency(frequency); err != nil {
				return nil, fmt.Errorf("set bus frequency: %w", err)
			}
		} else {
			s.log.Debugf("bus does not support setting clock, ignoring frequency %d Hz", frequency)
		}
	}

	return s, nil
}

func (s *QMI8658) Context() Context {
	return s.ctx
}

// Identity returns the IDs captured by the last Open.
func (s *QMI8658) Identity() Identity {
	return s.id
}

// Reset issues a soft reset, returning all registers to their defaults.
// Completion is not awaited.
func (s *QMI8658) Reset() error {
	if err := s.bus.WriteRegister(qmi8658ResetReg, qmi8658ResetCmd); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

func (s *QMI8658) SelectMode(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("mode %d: %w", uint8(mode), ErrInvalidMode)
	}
	if err := s.update(qmi8658Ctrl7Reg, ^uint8(qmi8658ModeMask), uint8(mode)); err != nil {
		return fmt.Errorf("select mode: %w", err)
	}
	return nil
}

func (s *QMI8658) SetAccelODR(odr AccelODR) error {
	if !odr.Valid() {
		return fmt.Errorf("accelerometer rate %d: %w", uint8(odr), ErrInvalidODR)
	}
	if err := s.update(qmi8658Ctrl2Reg, ^uint8(qmi8658ODRMask), uint8(odr)); err != nil {
		return fmt.Errorf("set accelerometer rate: %w", err)
	}
	return nil
}

func (s *QMI8658) SetAccelScale(scale AccelScale) error {
	sens, err := scale.Sensitivity()
	if err != nil {
		return err
	}
	if err := s.update(qmi8658Ctrl2Reg, ^uint8(qmi8658ScaleMask), uint8(scale)<<qmi8658ScaleShift); err != nil {
		return fmt.Errorf("set accelerometer scale: %w", err)
	}
	s.ctx.AccelScale = scale
	s.ctx.AccelSensitivity = sens
	return nil
}

func (s *QMI8658) SetGyroODR(odr GyroODR) error {
	if !odr.Valid() {
		return fmt.Errorf("gyroscope rate %d: %w", uint8(odr), ErrInvalidODR)
	}
	if err := s.update(qmi8658Ctrl3Reg, ^uint8(qmi8658ODRMask), uint8(odr)); err != nil {
		return fmt.Errorf("set gyroscope rate: %w", err)
	}
	return nil
}

func (s *QMI8658) SetGyroScale(scale GyroScale) error {
	sens, err := scale.Sensitivity()
	if err != nil {
		return err
	}
	if err := s.update(qmi8658Ctrl3Reg, ^uint8(qmi8658ScaleMask), uint8(scale)<<qmi8658ScaleShift); err != nil {
		return fmt.Errorf("set gyroscope scale: %w", err)
	}
	s.ctx.GyroScale = scale
	s.ctx.GyroSensitivity = sens
	return nil
}

// update does a read-modify-write of reg, keeping the bits in keep and
// setting those in set.
func (s *QMI8658) update(reg, keep, set uint8) error {
	val, err := s.bus.ReadRegister(reg)
	if err != nil {
		return err
	}
	return s.bus.WriteRegister(reg, val&keep|set)
}

// Open resets and configures the sensor, then verifies the operating mode.
// Registers written before a failure stay written; after an OpenError the
// sensor state is unknown and Open must be called again.
func (s *QMI8658) Open(cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return OpenError, err
	}

	if err := s.Reset(); err != nil {
		return OpenError, err
	}
	if s.resetDelay > 0 {
		time.Sleep(s.resetDelay)
	}

	steps := []func() error{
		func() error { return s.SelectMode(cfg.Mode) },
		func() error { return s.SetAccelODR(cfg.AccelODR) },
		func() error { return s.SetAccelScale(cfg.AccelScale) },
		func() error { return s.SetGyroODR(cfg.GyroODR) },
		func() error { return s.SetGyroScale(cfg.GyroScale) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return OpenError, err
		}
	}

	r := i2c.NewReader(s.bus)
	id := Identity{
		DeviceID:   uint8(r.Byte(qmi8658WhoAmIReg)),
		RevisionID: uint8(r.Byte(qmi8658RevisionReg)),
	}
	ctrl7 := uint8(r.Byte(qmi8658Ctrl7Reg))
	if err := r.Error(); err != nil {
		return OpenError, fmt.Errorf("verify configuration: %w", err)
	}
	s.id = id

	s.log.WithFields(log.Fields{
		"device":   fmt.Sprintf("0x%02x", id.DeviceID),
		"revision": fmt.Sprintf("0x%02x", id.RevisionID),
	}).Debug("opened")
	if id.DeviceID != WhoAmI {
		s.log.Debugf("unexpected WHO_AM_I 0x%02x", id.DeviceID)
	}

	if Mode(ctrl7&qmi8658ModeMask) != cfg.Mode {
		s.log.Warnf("mode readback %d, expected %d", ctrl7&qmi8658ModeMask, cfg.Mode)
		return OpenError, nil
	}
	return OpenSuccess, nil
}

// Close disables all sensors and the internal oscillator, then verifies
// both by reading back the control registers.
func (s *QMI8658) Close() (Result, error) {
	if err := s.update(qmi8658Ctrl7Reg, ^uint8(qmi8658Ctrl7Enables), 0); err != nil {
		return CloseError, fmt.Errorf("disable sensors: %w", err)
	}
	if err := s.update(qmi8658Ctrl1Reg, 0xff, qmi8658SensorDisable); err != nil {
		return CloseError, fmt.Errorf("disable oscillator: %w", err)
	}

	r := i2c.NewReader(s.bus)
	ctrl7 := uint8(r.Byte(qmi8658Ctrl7Reg))
	ctrl1 := uint8(r.Byte(qmi8658Ctrl1Reg))
	if err := r.Error(); err != nil {
		return CloseError, fmt.Errorf("verify shutdown: %w", err)
	}

	if ctrl7&qmi8658Ctrl7Enables != 0 || ctrl1&qmi8658SensorDisable == 0 {
		s.log.Warnf("shutdown readback CTRL7=0x%02x CTRL1=0x%02x", ctrl7, ctrl1)
		return CloseError, nil
	}
	return CloseSuccess, nil
}

// Read returns the latest sample in physical units. No staleness check is
// done; polling faster than the configured rate returns repeated samples.
func (s *QMI8658) Read() (Sample, error) {
	r := i2c.NewReader(s.bus)

	ax := r.Signed(qmi8658AccXHReg, qmi8658AccXLReg)
	ay := r.Signed(qmi8658AccYHReg, qmi8658AccYLReg)
	az := r.Signed(qmi8658AccZHReg, qmi8658AccZLReg)

	gx := r.Signed(qmi8658GyrXHReg, qmi8658GyrXLReg)
	gy := r.Signed(qmi8658GyrYHReg, qmi8658GyrYLReg)
	gz := r.Signed(qmi8658GyrZHReg, qmi8658GyrZLReg)

	temp := r.Signed(qmi8658TempHReg, qmi8658TempLReg)

	if err := r.Error(); err != nil {
		return Sample{}, fmt.Errorf("read data: %w", err)
	}

	as := float64(s.ctx.AccelSensitivity)
	gs := float64(s.ctx.GyroSensitivity)
	return Sample{
		Accel:       Vector{X: float64(ax) / as, Y: float64(ay) / as, Z: float64(az) / as},
		Gyro:        Vector{X: float64(gx) / gs, Y: float64(gy) / gs, Z: float64(gz) / gs},
		Temperature: float64(temp) / qmi8658TempSensitivity,
	}, nil
}
