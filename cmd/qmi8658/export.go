package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/calmh/qmi8658"
)

var axes = []struct {
	name string
	get  func(v qmi8658.Vector) float64
}{
	{"x", func(v qmi8658.Vector) float64 { return v.X }},
	{"y", func(v qmi8658.Vector) float64 { return v.Y }},
	{"z", func(v qmi8658.Vector) float64 { return v.Z }},
}

func registerMetrics(reg prometheus.Registerer, p *poller) {
	f := promauto.With(reg)

	for _, axis := range axes {
		axis := axis
		labels := prometheus.Labels{"direction": axis.name}

		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "sensors",
			Subsystem:   "qmi8658",
			Name:        "acceleration_g",
			ConstLabels: labels,
		}, func() float64 {
			return round(axis.get(p.Median().Accel), 4)
		})

		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "sensors",
			Subsystem:   "qmi8658",
			Name:        "acceleration_deviation_g",
			ConstLabels: labels,
		}, func() float64 {
			return round(axis.get(p.Deviation().Accel), 4)
		})

		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "sensors",
			Subsystem:   "qmi8658",
			Name:        "rotation_dps",
			ConstLabels: labels,
		}, func() float64 {
			return round(axis.get(p.Median().Gyro), 3)
		})

		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "sensors",
			Subsystem:   "qmi8658",
			Name:        "rotation_deviation_dps",
			ConstLabels: labels,
		}, func() float64 {
			return round(axis.get(p.Deviation().Gyro), 3)
		})
	}

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "sensors",
		Subsystem: "qmi8658",
		Name:      "temperature_celsius",
	}, func() float64 {
		return round(p.Median().Temperature, 2)
	})

	p.readErrors = f.NewCounter(prometheus.CounterOpts{
		Namespace: "sensors",
		Subsystem: "qmi8658",
		Name:      "read_errors_total",
	})
}

func runExport(cmd *cobra.Command, _ []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	s, shutdown, err := openSensor(opts)
	if err != nil {
		return err
	}
	defer shutdown()

	ctx, stop := signalContext()
	defer stop()

	p := newPoller(opts.Prometheus.Window, opts.Prometheus.Interval, s)
	registerMetrics(prometheus.DefaultRegisterer, p)
	go p.serve(ctx)

	return servePrometheus(ctx, opts.Prometheus.Listen, promhttp.Handler())
}

func servePrometheus(ctx context.Context, addr string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Infoln("serving metrics on", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
