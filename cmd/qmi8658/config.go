package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/calmh/qmi8658"
)

const (
	appName        = "qmi8658"
	configName     = "qmi8658"
	configEnv      = "QMI8658_CONFIG"
	configSysPath  = "/etc/" + appName
	configWorkPath = "./"
)

var userHomeDir, _ = os.UserHomeDir()
var (
	configUserPath    = filepath.Join(userHomeDir, ".config", appName)
	defaultConfigFile = filepath.Join(configUserPath, configName+".yaml")
)

type BusOpt struct {
	Backend   string `mapstructure:"backend" yaml:"backend"`
	Device    string `mapstructure:"device" yaml:"device"`
	Name      string `mapstructure:"name" yaml:"name"`
	Address   int    `mapstructure:"address" yaml:"address"`
	Frequency int64  `mapstructure:"frequency" yaml:"frequency"`
}

type SensorOpt struct {
	Mode       string        `mapstructure:"mode" yaml:"mode"`
	AccelODR   string        `mapstructure:"accel_odr" yaml:"accel_odr"`
	AccelScale string        `mapstructure:"accel_scale" yaml:"accel_scale"`
	GyroODR    string        `mapstructure:"gyro_odr" yaml:"gyro_odr"`
	GyroScale  string        `mapstructure:"gyro_scale" yaml:"gyro_scale"`
	ResetDelay time.Duration `mapstructure:"reset_delay" yaml:"reset_delay"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type ReadOpt struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Decimals int           `mapstructure:"decimals" yaml:"decimals"`
	Buffer   bool          `mapstructure:"buffer" yaml:"buffer"`
}

type PrometheusOpt struct {
	Listen   string        `mapstructure:"listen" yaml:"listen"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

type Options struct {
	Bus        BusOpt        `mapstructure:"bus" yaml:"bus"`
	Sensor     SensorOpt     `mapstructure:"sensor" yaml:"sensor"`
	Read       ReadOpt       `mapstructure:"read" yaml:"read"`
	Prometheus PrometheusOpt `mapstructure:"prometheus" yaml:"prometheus"`
	Debug      bool          `mapstructure:"debug" yaml:"debug"`
}

func defaultOptions() Options {
	return Options{
		Bus: BusOpt{
			Backend:   "sysfs",
			Device:    "/dev/i2c-1",
			Name:      "1",
			Address:   qmi8658.AddressHigh,
			Frequency: 400000,
		},
		Sensor: SensorOpt{
			Mode:       qmi8658.ModeDual.String(),
			AccelODR:   qmi8658.AccelODR125Hz.String(),
			AccelScale: qmi8658.AccelScale2G.String(),
			GyroODR:    qmi8658.GyroODR125Hz.String(),
			GyroScale:  qmi8658.GyroScale256DPS.String(),
			Timeout:    time.Second,
		},
		Read: ReadOpt{
			Interval: time.Second,
			Decimals: 3,
		},
		Prometheus: PrometheusOpt{
			Listen:   ":9120",
			Window:   time.Minute,
			Interval: 500 * time.Millisecond,
		},
	}
}

// setDefaults registers every key so that environment overrides apply
// even when no config file sets them.
func setDefaults(v *viper.Viper, opts Options) {
	v.SetDefault("bus.backend", opts.Bus.Backend)
	v.SetDefault("bus.device", opts.Bus.Device)
	v.SetDefault("bus.name", opts.Bus.Name)
	v.SetDefault("bus.address", opts.Bus.Address)
	v.SetDefault("bus.frequency", opts.Bus.Frequency)
	v.SetDefault("sensor.mode", opts.Sensor.Mode)
	v.SetDefault("sensor.accel_odr", opts.Sensor.AccelODR)
	v.SetDefault("sensor.accel_scale", opts.Sensor.AccelScale)
	v.SetDefault("sensor.gyro_odr", opts.Sensor.GyroODR)
	v.SetDefault("sensor.gyro_scale", opts.Sensor.GyroScale)
	v.SetDefault("sensor.reset_delay", opts.Sensor.ResetDelay)
	v.SetDefault("sensor.timeout", opts.Sensor.Timeout)
	v.SetDefault("read.interval", opts.Read.Interval)
	v.SetDefault("read.decimals", opts.Read.Decimals)
	v.SetDefault("read.buffer", opts.Read.Buffer)
	v.SetDefault("prometheus.listen", opts.Prometheus.Listen)
	v.SetDefault("prometheus.window", opts.Prometheus.Window)
	v.SetDefault("prometheus.interval", opts.Prometheus.Interval)
	v.SetDefault("debug", opts.Debug)
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"backend":   "bus.backend",
	"device":    "bus.device",
	"bus":       "bus.name",
	"address":   "bus.address",
	"frequency": "bus.frequency",
	"interval":  "read.interval",
	"decimals":  "read.decimals",
	"buffer":    "read.buffer",
	"listen":    "prometheus.listen",
	"window":    "prometheus.window",
	"debug":     "debug",
}

// loadOptions resolves the configuration, by decreasing precedence, from
// flags, QMI8658_* environment variables, the config file and defaults.
// The config file is the --config flag, $QMI8658_CONFIG, or qmi8658.yaml in
// ~/.config/qmi8658, /etc/qmi8658 or the current directory.
func loadOptions(cmd *cobra.Command) (Options, error) {
	v := viper.New()
	setDefaults(v, defaultOptions())

	explicit := false
	if file, err := cmd.Flags().GetString("config"); err == nil && file != "" {
		v.SetConfigFile(file)
		explicit = true
	} else if file := os.Getenv(configEnv); file != "" {
		v.SetConfigFile(file)
		explicit = true
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(configUserPath)
		v.AddConfigPath(configSysPath)
		v.AddConfigPath(configWorkPath)
	}

	v.SetEnvPrefix(appName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}

	if err := v.ReadInConfig(); err == nil {
		log.Debugln("using config file:", v.ConfigFileUsed())
	} else {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Options{}, fmt.Errorf("read config: %w", err)
		}
		log.Debugln(err)
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, fmt.Errorf("parse config: %w", err)
	}
	if err := opts.validate(); err != nil {
		return Options{}, fmt.Errorf("invalid config: %w", err)
	}

	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	return opts, nil
}

func (o Options) validate() error {
	if o.Read.Interval <= 0 {
		return fmt.Errorf("read.interval must be positive, not %v", o.Read.Interval)
	}
	if o.Prometheus.Interval <= 0 {
		return fmt.Errorf("prometheus.interval must be positive, not %v", o.Prometheus.Interval)
	}
	if o.Prometheus.Window <= 0 {
		return fmt.Errorf("prometheus.window must be positive, not %v", o.Prometheus.Window)
	}
	return nil
}

// sensorConfig parses the symbolic sensor settings.
func (o SensorOpt) sensorConfig() (qmi8658.Config, error) {
	var cfg qmi8658.Config
	var err error
	if cfg.Mode, err = qmi8658.ParseMode(o.Mode); err != nil {
		return cfg, err
	}
	if cfg.AccelODR, err = qmi8658.ParseAccelODR(o.AccelODR); err != nil {
		return cfg, err
	}
	if cfg.AccelScale, err = qmi8658.ParseAccelScale(o.AccelScale); err != nil {
		return cfg, err
	}
	if cfg.GyroODR, err = qmi8658.ParseGyroODR(o.GyroODR); err != nil {
		return cfg, err
	}
	if cfg.GyroScale, err = qmi8658.ParseGyroScale(o.GyroScale); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func initConfig(cmd *cobra.Command, _ []string) error {
	printFlag, _ := cmd.Flags().GetBool("print")
	output, _ := cmd.Flags().GetString("output")
	overwrite, _ := cmd.Flags().GetBool("yes")

	data, err := yaml.Marshal(defaultOptions())
	if err != nil {
		return err
	}

	if printFlag {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	if _, err := os.Stat(output); err == nil && !overwrite {
		return fmt.Errorf("%s exists, use --yes to overwrite", output)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	log.Infoln("wrote", output)
	return nil
}
