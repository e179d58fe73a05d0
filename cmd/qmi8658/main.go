package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/calmh/qmi8658"
)

var rootCmd = &cobra.Command{
	Use:           "qmi8658",
	Short:         "read and export QMI8658 IMU data",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "print samples as JSON lines",
	Long: `read configures the sensor and prints one JSON object per interval
to stdout, with acceleration in g, rotation in degrees per second and
temperature in degrees Celsius.

Configuration is taken from, in order of precedence:
1. command line flags
2. QMI8658_* environment variables (e.g. QMI8658_SENSOR_GYRO_SCALE=512dps)
3. the file given by --config or QMI8658_CONFIG, or qmi8658.yaml in
   $HOME/.config/qmi8658, /etc/qmi8658 or the current directory`,
	Example: `  qmi8658 read --device /dev/i2c-1 --interval 100ms
  qmi8658 read --backend periph --bus 1 --address 0x6a`,
	RunE: runRead,
}

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "serve samples as Prometheus metrics",
	Example: `  qmi8658 export --listen :9120 --window 1m`,
	RunE:    runExport,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "write a configuration template",
	Long: `init writes the default configuration to $HOME/.config/qmi8658/qmi8658.yaml,
or to the path given by --output. An existing file is only replaced with --yes.`,
	Example: `  qmi8658 init --print
  qmi8658 init -o /etc/qmi8658/qmi8658.yaml -y`,
	RunE: initConfig,
}

func busFlags(cmd *cobra.Command) {
	def := defaultOptions()
	cmd.Flags().String("backend", def.Bus.Backend, "bus backend, sysfs or periph")
	cmd.Flags().String("device", def.Bus.Device, "I2C device (sysfs backend)")
	cmd.Flags().String("bus", def.Bus.Name, "I2C bus name (periph backend)")
	cmd.Flags().IntP("address", "a", qmi8658.AddressHigh, "device address")
	cmd.Flags().Int64("frequency", def.Bus.Frequency, "bus clock in Hz (periph backend)")
}

func readFlags(cmd *cobra.Command) {
	def := defaultOptions()
	busFlags(cmd)
	cmd.Flags().Duration("interval", def.Read.Interval, "interval between samples")
	cmd.Flags().Int("decimals", def.Read.Decimals, "rounding precision")
	cmd.Flags().Bool("buffer", def.Read.Buffer, "use output buffering")
}

func exportFlags(cmd *cobra.Command) {
	def := defaultOptions()
	busFlags(cmd)
	cmd.Flags().String("listen", def.Prometheus.Listen, "Prometheus exporter address")
	cmd.Flags().Duration("window", def.Prometheus.Window, "window for median and deviation")
}

func initFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("print", false, "print config to stdout")
	cmd.Flags().BoolP("yes", "y", false, "overwrite")
	cmd.Flags().StringP("output", "o", defaultConfigFile, "output path")
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "toggle debug logging")

	readFlags(readCmd)
	exportFlags(exportCmd)
	initFlags(initCmd)
	rootCmd.AddCommand(readCmd, exportCmd, initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Errorln(err)
		os.Exit(1)
	}
}
