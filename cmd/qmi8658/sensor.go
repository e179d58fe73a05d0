package main

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"gobot.io/x/gobot/sysfs"

	"github.com/calmh/qmi8658"
	"github.com/calmh/qmi8658/i2c"
)

type sampler interface {
	Read() (qmi8658.Sample, error)
}

// openDevice opens the configured bus backend. Tests replace it.
var openDevice = openBusDevice

func openBusDevice(opts BusOpt) (i2c.Device, io.Closer, error) {
	switch opts.Backend {
	case "sysfs", "":
		dev, err := sysfs.NewI2cDevice(opts.Device)
		if err != nil {
			return nil, nil, fmt.Errorf("open I2C device: %w", err)
		}
		return dev, dev, nil
	case "periph":
		dev, err := i2c.OpenPeriph(opts.Name)
		if err != nil {
			return nil, nil, err
		}
		return dev, dev, nil
	default:
		return nil, nil, fmt.Errorf("unknown bus backend %q", opts.Backend)
	}
}

// openSensor opens the bus and configures the sensor. The returned function
// shuts the sensor down and releases the bus.
func openSensor(opts Options) (*qmi8658.QMI8658, func(), error) {
	cfg, err := opts.Sensor.sensorConfig()
	if err != nil {
		return nil, nil, err
	}

	dev, closer, err := openDevice(opts.Bus)
	if err != nil {
		return nil, nil, err
	}

	l := log.WithFields(log.Fields{
		"sensor":  "qmi8658",
		"address": fmt.Sprintf("0x%02x", opts.Bus.Address),
	})
	release := func() {
		if err := closer.Close(); err != nil {
			l.Warnln("close I2C device:", err)
		}
	}

	sensorOpts := []qmi8658.Option{
		qmi8658.WithLogger(l),
		qmi8658.WithResetDelay(opts.Sensor.ResetDelay),
		qmi8658.WithTimeout(opts.Sensor.Timeout),
	}

	s, err := qmi8658.New(dev, opts.Bus.Address, opts.Bus.Frequency, sensorOpts...)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("init QMI8658: %w", err)
	}

	res, err := s.Open(cfg)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("open QMI8658: %w", err)
	}
	if !res.OK() {
		release()
		return nil, nil, fmt.Errorf("open QMI8658: %v", res)
	}
	id := s.Identity()
	l.WithFields(log.Fields{
		"mode":     cfg.Mode,
		"accel":    fmt.Sprintf("%v@%v", cfg.AccelScale, cfg.AccelODR),
		"gyro":     fmt.Sprintf("%v@%v", cfg.GyroScale, cfg.GyroODR),
		"revision": fmt.Sprintf("0x%02x", id.RevisionID),
	}).Infoln(res)

	shutdown := func() {
		if res, err := s.Close(); err != nil {
			l.Warnln("close QMI8658:", err)
		} else if !res.OK() {
			l.Warnln("close QMI8658:", res)
		} else {
			l.Debugln(res)
		}
		release()
	}
	return s, shutdown, nil
}
