package qmi8658

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidMode  = errors.New("invalid operating mode")
	ErrInvalidODR   = errors.New("invalid output data rate")
	ErrInvalidScale = errors.New("invalid full scale range")
)

// Mode selects which sensors are enabled in CTRL7.
type Mode uint8

const (
	ModeAccelOnly Mode = 1
	ModeGyroOnly  Mode = 2
	ModeDual      Mode = 3
)

var modeNames = map[Mode]string{
	ModeAccelOnly: "accel",
	ModeGyroOnly:  "gyro",
	ModeDual:      "dual",
}

func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// AccelScale is the accelerometer full scale range. The values are the
// CTRL2 register encoding.
type AccelScale uint8

const (
	AccelScale2G AccelScale = iota
	AccelScale4G
	AccelScale8G
	AccelScale16G
)

// Accelerometer sensitivity in LSB/g, indexed by AccelScale.
var accelSensitivity = [...]uint16{
	AccelScale2G:  16384,
	AccelScale4G:  8192,
	AccelScale8G:  4096,
	AccelScale16G: 2048,
}

var accelScaleNames = [...]string{"2g", "4g", "8g", "16g"}

func (s AccelScale) Valid() bool {
	return int(s) < len(accelSensitivity)
}

// Sensitivity returns the number of LSB per g at this scale.
func (s AccelScale) Sensitivity() (uint16, error) {
	if !s.Valid() {
		return 0, fmt.Errorf("accelerometer scale %d: %w", uint8(s), ErrInvalidScale)
	}
	return accelSensitivity[s], nil
}

func (s AccelScale) String() string {
	if !s.Valid() {
		return fmt.Sprintf("AccelScale(%d)", uint8(s))
	}
	return accelScaleNames[s]
}

// GyroScale is the gyroscope full scale range. The values are the CTRL3
// register encoding.
type GyroScale uint8

const (
	GyroScale16DPS GyroScale = iota
	GyroScale32DPS
	GyroScale64DPS
	GyroScale128DPS
	GyroScale256DPS
	GyroScale512DPS
	GyroScale1024DPS
	GyroScale2048DPS
)

// Gyroscope sensitivity in LSB/dps, indexed by GyroScale.
var gyroSensitivity = [...]uint16{
	GyroScale16DPS:   2048,
	GyroScale32DPS:   1024,
	GyroScale64DPS:   512,
	GyroScale128DPS:  256,
	GyroScale256DPS:  128,
	GyroScale512DPS:  64,
	GyroScale1024DPS: 32,
	GyroScale2048DPS: 16,
}

var gyroScaleNames = [...]string{"16dps", "32dps", "64dps", "128dps", "256dps", "512dps", "1024dps", "2048dps"}

func (s GyroScale) Valid() bool {
	return int(s) < len(gyroSensitivity)
}

// Sensitivity returns the number of LSB per degree/second at this scale.
func (s GyroScale) Sensitivity() (uint16, error) {
	if !s.Valid() {
		return 0, fmt.Errorf("gyroscope scale %d: %w", uint8(s), ErrInvalidScale)
	}
	return gyroSensitivity[s], nil
}

func (s GyroScale) String() string {
	if !s.Valid() {
		return fmt.Sprintf("GyroScale(%d)", uint8(s))
	}
	return gyroScaleNames[s]
}

// AccelODR is the accelerometer output data rate, CTRL2 bits 0-3. Codes 9
// to 11 are reserved.
type AccelODR uint8

const (
	AccelODR8000Hz AccelODR = iota
	AccelODR4000Hz
	AccelODR2000Hz
	AccelODR1000Hz
	AccelODR500Hz
	AccelODR250Hz
	AccelODR125Hz
	AccelODR62_5Hz
	AccelODR31_25Hz
)

const (
	AccelODRLowPower128Hz AccelODR = iota + 12
	AccelODRLowPower21Hz
	AccelODRLowPower11Hz
	AccelODRLowPower3Hz
)

var accelODRNames = map[AccelODR]string{
	AccelODR8000Hz:        "8000hz",
	AccelODR4000Hz:        "4000hz",
	AccelODR2000Hz:        "2000hz",
	AccelODR1000Hz:        "1000hz",
	AccelODR500Hz:         "500hz",
	AccelODR250Hz:         "250hz",
	AccelODR125Hz:         "125hz",
	AccelODR62_5Hz:        "62.5hz",
	AccelODR31_25Hz:       "31.25hz",
	AccelODRLowPower128Hz: "lp128hz",
	AccelODRLowPower21Hz:  "lp21hz",
	AccelODRLowPower11Hz:  "lp11hz",
	AccelODRLowPower3Hz:   "lp3hz",
}

func (o AccelODR) Valid() bool {
	_, ok := accelODRNames[o]
	return ok
}

func (o AccelODR) String() string {
	if name, ok := accelODRNames[o]; ok {
		return name
	}
	return fmt.Sprintf("AccelODR(%d)", uint8(o))
}

// GyroODR is the gyroscope output data rate, CTRL3 bits 0-3.
type GyroODR uint8

const (
	GyroODR8000Hz GyroODR = iota
	GyroODR4000Hz
	GyroODR2000Hz
	GyroODR1000Hz
	GyroODR500Hz
	GyroODR250Hz
	GyroODR125Hz
	GyroODR62_5Hz
	GyroODR31_25Hz
)

var gyroODRNames = [...]string{"8000hz", "4000hz", "2000hz", "1000hz", "500hz", "250hz", "125hz", "62.5hz", "31.25hz"}

func (o GyroODR) Valid() bool {
	return int(o) < len(gyroODRNames)
}

func (o GyroODR) String() string {
	if !o.Valid() {
		return fmt.Sprintf("GyroODR(%d)", uint8(o))
	}
	return gyroODRNames[o]
}

func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrInvalidMode)
}

func ParseAccelScale(s string) (AccelScale, error) {
	for i, name := range accelScaleNames {
		if strings.EqualFold(s, name) {
			return AccelScale(i), nil
		}
	}
	return 0, fmt.Errorf("accelerometer scale %q: %w", s, ErrInvalidScale)
}

func ParseGyroScale(s string) (GyroScale, error) {
	for i, name := range gyroScaleNames {
		if strings.EqualFold(s, name) {
			return GyroScale(i), nil
		}
	}
	return 0, fmt.Errorf("gyroscope scale %q: %w", s, ErrInvalidScale)
}

func ParseAccelODR(s string) (AccelODR, error) {
	for o, name := range accelODRNames {
		if strings.EqualFold(s, name) {
			return o, nil
		}
	}
	return 0, fmt.Errorf("accelerometer rate %q: %w", s, ErrInvalidODR)
}

func ParseGyroODR(s string) (GyroODR, error) {
	for i, name := range gyroODRNames {
		if strings.EqualFold(s, name) {
			return GyroODR(i), nil
		}
	}
	return 0, fmt.Errorf("gyroscope rate %q: %w", s, ErrInvalidODR)
}

// Context is the scale state used to convert raw samples.
type Context struct {
	AccelScale       AccelScale
	AccelSensitivity uint16
	GyroScale        GyroScale
	GyroSensitivity  uint16
}

func defaultContext() Context {
	return Context{
		AccelScale:       AccelScale2G,
		AccelSensitivity: accelSensitivity[AccelScale2G],
		GyroScale:        GyroScale16DPS,
		GyroSensitivity:  gyroSensitivity[GyroScale16DPS],
	}
}

// Config is the sensor configuration applied by Open.
type Config struct {
	Mode       Mode
	AccelODR   AccelODR
	AccelScale AccelScale
	GyroODR    GyroODR
	GyroScale  GyroScale
}

func (c Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("mode %d: %w", uint8(c.Mode), ErrInvalidMode)
	}
	if !c.AccelODR.Valid() {
		return fmt.Errorf("accelerometer rate %d: %w", uint8(c.AccelODR), ErrInvalidODR)
	}
	if !c.AccelScale.Valid() {
		return fmt.Errorf("accelerometer scale %d: %w", uint8(c.AccelScale), ErrInvalidScale)
	}
	if !c.GyroODR.Valid() {
		return fmt.Errorf("gyroscope rate %d: %w", uint8(c.GyroODR), ErrInvalidODR)
	}
	if !c.GyroScale.Valid() {
		return fmt.Errorf("gyroscope scale %d: %w", uint8(c.GyroScale), ErrInvalidScale)
	}
	return nil
}
