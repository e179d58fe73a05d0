package qmi8658

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/calmh/qmi8658/i2c"
)

func newTestSensor(t *testing.T, dev i2c.Device, opts ...Option) *QMI8658 {
	t.Helper()
	s, err := New(dev, AddressHigh, 0, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDefaultContext(t *testing.T) {
	s := newTestSensor(t, newFakeDevice(nil))
	exp := Context{
		AccelScale:       AccelScale2G,
		AccelSensitivity: 16384,
		GyroScale:        GyroScale16DPS,
		GyroSensitivity:  2048,
	}
	if diff := cmp.Diff(exp, s.Context()); diff != "" {
		t.Errorf("default context (-want +got):\n%s", diff)
	}
}

func TestAccelScaleSensitivity(t *testing.T) {
	exp := []uint16{16384, 8192, 4096, 2048}
	dev := newFakeDevice(nil)
	s := newTestSensor(t, dev)

	for i, sens := range exp {
		scale := AccelScale(i)
		if err := s.SetAccelScale(scale); err != nil {
			t.Fatal(err)
		}
		ctx := s.Context()
		if ctx.AccelScale != scale || ctx.AccelSensitivity != sens {
			t.Errorf("%v: context %+v, expected sensitivity %d", scale, ctx, sens)
		}
		if got := dev.regs[qmi8658Ctrl2Reg] & qmi8658ScaleMask >> qmi8658ScaleShift; got != uint8(i) {
			t.Errorf("%v: CTRL2 scale bits %d", scale, got)
		}
	}
}

func TestGyroScaleSensitivity(t *testing.T) {
	exp := []uint16{2048, 1024, 512, 256, 128, 64, 32, 16}
	dev := newFakeDevice(nil)
	s := newTestSensor(t, dev)

	for i, sens := range exp {
		scale := GyroScale(i)
		if err := s.SetGyroScale(scale); err != nil {
			t.Fatal(err)
		}
		ctx := s.Context()
		if ctx.GyroScale != scale || ctx.GyroSensitivity != sens {
			t.Errorf("%v: context %+v, expected sensitivity %d", scale, ctx, sens)
		}
		if got := dev.regs[qmi8658Ctrl3Reg] & qmi8658ScaleMask >> qmi8658ScaleShift; got != uint8(i) {
			t.Errorf("%v: CTRL3 scale bits %d", scale, got)
		}
	}
}

func TestSetScaleTwice(t *testing.T) {
	dev := newFakeDevice(map[uint8]uint8{qmi8658Ctrl2Reg: 0x03})
	s := newTestSensor(t, dev)

	if err := s.SetAccelScale(AccelScale16G); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAccelScale(AccelScale4G); err != nil {
		t.Fatal(err)
	}
	ctx := s.Context()
	if ctx.AccelScale != AccelScale4G || ctx.AccelSensitivity != 8192 {
		t.Errorf("context %+v after setting 16g then 4g", ctx)
	}
	// ODR bits untouched, scale bits from the last call only
	if v := dev.regs[qmi8658Ctrl2Reg]; v != 0x13 {
		t.Errorf("CTRL2 = 0x%02x, expected 0x13", v)
	}
}

func TestInvalidScaleNoBusTraffic(t *testing.T) {
	dev := newFakeDevice(nil)
	s := newTestSensor(t, dev)

	if err := s.SetAccelScale(AccelScale(4)); !errors.Is(err, ErrInvalidScale) {
		t.Errorf("accel: unexpected error %v", err)
	}
	if err := s.SetGyroScale(GyroScale(8)); !errors.Is(err, ErrInvalidScale) {
		t.Errorf("gyro: unexpected error %v", err)
	}
	if err := s.SetAccelODR(AccelODR(10)); !errors.Is(err, ErrInvalidODR) {
		t.Errorf("accel odr: unexpected error %v", err)
	}
	if err := s.SetGyroODR(GyroODR(9)); !errors.Is(err, ErrInvalidODR) {
		t.Errorf("gyro odr: unexpected error %v", err)
	}
	if err := s.SelectMode(Mode(0)); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("mode: unexpected error %v", err)
	}
	if ops := dev.recorded(); len(ops) != 0 {
		t.Errorf("bus traffic for invalid settings: %v", ops)
	}
	if diff := cmp.Diff(defaultContext(), s.Context()); diff != "" {
		t.Errorf("context changed (-want +got):\n%s", diff)
	}
}

func TestReadConversion(t *testing.T) {
	dev := newFakeDevice(map[uint8]uint8{
		qmi8658AccXHReg: 0x7f, qmi8658AccXLReg: 0xff,
		qmi8658AccYHReg: 0x80, qmi8658AccYLReg: 0x00,
		qmi8658AccZHReg: 0x40, qmi8658AccZLReg: 0x00,
		qmi8658GyrXHReg: 0x08, qmi8658GyrXLReg: 0x00,
		qmi8658GyrYHReg: 0xf8, qmi8658GyrYLReg: 0x00,
		qmi8658GyrZHReg: 0x00, qmi8658GyrZLReg: 0x01,
		qmi8658TempHReg: 0x0a, qmi8658TempLReg: 0x00,
	})
	s := newTestSensor(t, dev)

	sample, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	exp := Sample{
		Accel:       Vector{X: 32767.0 / 16384, Y: -32768.0 / 16384, Z: 1},
		Gyro:        Vector{X: 1, Y: -1, Z: 1.0 / 2048},
		Temperature: 10,
	}
	if diff := cmp.Diff(exp, sample); diff != "" {
		t.Errorf("sample (-want +got):\n%s", diff)
	}
}

func TestReadUsesCurrentScale(t *testing.T) {
	dev := newFakeDevice(map[uint8]uint8{
		qmi8658AccXHReg: 0x08, qmi8658AccXLReg: 0x00,
		qmi8658GyrXHReg: 0x00, qmi8658GyrXLReg: 0x10,
	})
	s := newTestSensor(t, dev)
	if err := s.SetAccelScale(AccelScale16G); err != nil {
		t.Fatal(err)
	}
	if err := s.SetGyroScale(GyroScale2048DPS); err != nil {
		t.Fatal(err)
	}

	sample, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if sample.Accel.X != 1 || sample.Gyro.X != 1 {
		t.Errorf("sample %+v, expected 1g and 1dps on X", sample)
	}
}

func TestReadTemperature(t *testing.T) {
	cases := []struct {
		hi, lo uint8
		out    float64
	}{
		{0x0a, 0x00, 10},
		{0xff, 0x00, -1},
		{0x00, 0x80, 0.5},
		{0x00, 0x00, 0},
	}

	for _, tc := range cases {
		dev := newFakeDevice(map[uint8]uint8{qmi8658TempHReg: tc.hi, qmi8658TempLReg: tc.lo})
		s := newTestSensor(t, dev)
		sample, err := s.Read()
		if err != nil {
			t.Fatal(err)
		}
		if sample.Temperature != tc.out {
			t.Errorf("%v != expected %v for 0x%02x%02x", sample.Temperature, tc.out, tc.hi, tc.lo)
		}
	}
}

func TestReadOrder(t *testing.T) {
	dev := newFakeDevice(nil)
	s := newTestSensor(t, dev)

	if _, err := s.Read(); err != nil {
		t.Fatal(err)
	}
	exp := []op{
		rd(0x36, 0), rd(0x35, 0), rd(0x38, 0), rd(0x37, 0), rd(0x3a, 0), rd(0x39, 0),
		rd(0x3c, 0), rd(0x3b, 0), rd(0x3e, 0), rd(0x3d, 0), rd(0x40, 0), rd(0x3f, 0),
		rd(0x34, 0), rd(0x33, 0),
	}
	if diff := cmp.Diff(exp, dev.recorded()); diff != "" {
		t.Errorf("register reads (-want +got):\n%s", diff)
	}
}

func TestReadTimeout(t *testing.T) {
	dev := newFakeDevice(nil)
	dev.hang = make(chan struct{})
	dev.hangReg = qmi8658GyrYHReg
	defer close(dev.hang)

	s := newTestSensor(t, dev, WithTimeout(10*time.Millisecond))

	sample, err := s.Read()
	if !errors.Is(err, i2c.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if sample != (Sample{}) {
		t.Errorf("partial sample returned: %+v", sample)
	}
}

func TestWithTimeoutNonPositive(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		s := newTestSensor(t, newFakeDevice(nil), WithTimeout(d))
		if s.bus.Timeout != i2c.DefaultTimeout {
			t.Errorf("WithTimeout(%v) set timeout %v", d, s.bus.Timeout)
		}
	}
	s := newTestSensor(t, newFakeDevice(nil), WithTimeout(50*time.Millisecond))
	if s.bus.Timeout != 50*time.Millisecond {
		t.Errorf("timeout %v", s.bus.Timeout)
	}
}

var testConfig = Config{
	Mode:       ModeDual,
	AccelODR:   AccelODR1000Hz,
	AccelScale: AccelScale8G,
	GyroODR:    GyroODR500Hz,
	GyroScale:  GyroScale512DPS,
}

func TestOpenSequence(t *testing.T) {
	dev := newFakeDevice(map[uint8]uint8{
		qmi8658WhoAmIReg:   0x05,
		qmi8658RevisionReg: 0x7c,
		qmi8658Ctrl2Reg:    0xff,
		qmi8658Ctrl7Reg:    0x80,
	})
	s := newTestSensor(t, dev)

	res, err := s.Open(testConfig)
	if err != nil {
		t.Fatal(err)
	}
	if res != OpenSuccess {
		t.Errorf("result %v", res)
	}

	exp := []op{
		wr(0x60, 0xb0),
		rd(0x08, 0x80), wr(0x08, 0x83),
		rd(0x03, 0xff), wr(0x03, 0xf3),
		rd(0x03, 0xf3), wr(0x03, 0xa3),
		rd(0x04, 0x00), wr(0x04, 0x04),
		rd(0x04, 0x04), wr(0x04, 0x54),
		rd(0x00, 0x05), rd(0x01, 0x7c),
		rd(0x08, 0x83),
	}
	if diff := cmp.Diff(exp, dev.recorded()); diff != "" {
		t.Errorf("open transactions (-want +got):\n%s", diff)
	}

	if id := s.Identity(); id != (Identity{DeviceID: 0x05, RevisionID: 0x7c}) {
		t.Errorf("identity %+v", id)
	}
	expCtx := Context{
		AccelScale:       AccelScale8G,
		AccelSensitivity: 4096,
		GyroScale:        GyroScale512DPS,
		GyroSensitivity:  64,
	}
	if diff := cmp.Diff(expCtx, s.Context()); diff != "" {
		t.Errorf("context (-want +got):\n%s", diff)
	}
}

func TestOpenModes(t *testing.T) {
	for _, mode := range []Mode{ModeAccelOnly, ModeGyroOnly, ModeDual} {
		dev := newFakeDevice(map[uint8]uint8{qmi8658Ctrl7Reg: 0x03})
		s := newTestSensor(t, dev)
		cfg := testConfig
		cfg.Mode = mode

		res, err := s.Open(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if res != OpenSuccess {
			t.Errorf("%v: result %v", mode, res)
		}
		if got := Mode(dev.regs[qmi8658Ctrl7Reg] & qmi8658ModeMask); got != mode {
			t.Errorf("%v: CTRL7 mode bits %v", mode, got)
		}
	}
}

func TestOpenModeMismatch(t *testing.T) {
	dev := newFakeDevice(nil)
	dev.stuck[qmi8658Ctrl7Reg] = 0x01
	s := newTestSensor(t, dev)

	res, err := s.Open(testConfig)
	if err != nil {
		t.Fatal(err)
	}
	if res != OpenError {
		t.Errorf("result %v, expected open-error", res)
	}
	// no rollback; the remaining configuration was still written
	if v := dev.regs[qmi8658Ctrl3Reg]; v != 0x54 {
		t.Errorf("CTRL3 = 0x%02x", v)
	}
}

func TestOpenInvalidConfig(t *testing.T) {
	dev := newFakeDevice(nil)
	s := newTestSensor(t, dev)
	cfg := testConfig
	cfg.GyroScale = 12

	res, err := s.Open(cfg)
	if res != OpenError || !errors.Is(err, ErrInvalidScale) {
		t.Errorf("got %v, %v", res, err)
	}
	if ops := dev.recorded(); len(ops) != 0 {
		t.Errorf("bus traffic for invalid configuration: %v", ops)
	}
}

func TestOpenTimeout(t *testing.T) {
	dev := newFakeDevice(nil)
	dev.hang = make(chan struct{})
	dev.hangReg = qmi8658RevisionReg
	defer close(dev.hang)

	s := newTestSensor(t, dev, WithTimeout(10*time.Millisecond))

	res, err := s.Open(testConfig)
	if res != OpenError || !errors.Is(err, i2c.ErrTimeout) {
		t.Errorf("got %v, %v", res, err)
	}
}

func TestClose(t *testing.T) {
	cases := []struct {
		name  string
		stuck map[uint8]uint8
		res   Result
	}{
		{"disabled", nil, CloseSuccess},
		{"ctrl7 stuck", map[uint8]uint8{qmi8658Ctrl7Reg: 0x01}, CloseError},
		{"ctrl7 high bits set", map[uint8]uint8{qmi8658Ctrl7Reg: 0xf0}, CloseSuccess},
		{"oscillator running", map[uint8]uint8{qmi8658Ctrl1Reg: 0x60}, CloseError},
		{"both stuck", map[uint8]uint8{qmi8658Ctrl7Reg: 0x08, qmi8658Ctrl1Reg: 0x00}, CloseError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dev := newFakeDevice(map[uint8]uint8{qmi8658Ctrl7Reg: 0x83, qmi8658Ctrl1Reg: 0x60})
			for reg, val := range tc.stuck {
				dev.stuck[reg] = val
			}
			s := newTestSensor(t, dev)

			res, err := s.Close()
			if err != nil {
				t.Fatal(err)
			}
			if res != tc.res {
				t.Errorf("result %v, expected %v", res, tc.res)
			}
		})
	}
}

func TestCloseSequence(t *testing.T) {
	dev := newFakeDevice(map[uint8]uint8{qmi8658Ctrl7Reg: 0x83, qmi8658Ctrl1Reg: 0x60})
	s := newTestSensor(t, dev)

	if _, err := s.Close(); err != nil {
		t.Fatal(err)
	}
	exp := []op{
		rd(0x08, 0x83), wr(0x08, 0x80),
		rd(0x02, 0x60), wr(0x02, 0x61),
		rd(0x08, 0x80), rd(0x02, 0x61),
	}
	if diff := cmp.Diff(exp, dev.recorded()); diff != "" {
		t.Errorf("close transactions (-want +got):\n%s", diff)
	}
}

func TestNewFrequency(t *testing.T) {
	dev := fakeClockedDevice{newFakeDevice(nil)}
	if _, err := New(dev, AddressLow, 400000); err != nil {
		t.Fatal(err)
	}
	if dev.frequency != 400000 || dev.address != AddressLow {
		t.Errorf("frequency %d address 0x%x", dev.frequency, dev.address)
	}

	// Devices without clock control accept any frequency.
	if _, err := New(newFakeDevice(nil), AddressHigh, 100000); err != nil {
		t.Fatal(err)
	}
}
