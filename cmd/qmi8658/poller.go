package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/calmh/qmi8658"
)

// poller reads the sensor at a fixed interval and keeps the samples from
// the last window. It is the only user of the sensor once started.
type poller struct {
	src        sampler
	intv       time.Duration
	mut        sync.Mutex
	samples    []qmi8658.Sample
	readErrors prometheus.Counter
}

var sampleFields = []func(s *qmi8658.Sample) *float64{
	func(s *qmi8658.Sample) *float64 { return &s.Accel.X },
	func(s *qmi8658.Sample) *float64 { return &s.Accel.Y },
	func(s *qmi8658.Sample) *float64 { return &s.Accel.Z },
	func(s *qmi8658.Sample) *float64 { return &s.Gyro.X },
	func(s *qmi8658.Sample) *float64 { return &s.Gyro.Y },
	func(s *qmi8658.Sample) *float64 { return &s.Gyro.Z },
	func(s *qmi8658.Sample) *float64 { return &s.Temperature },
}

func newPoller(total, intv time.Duration, src sampler) *poller {
	size := int(total / intv)
	if size < 1 {
		size = 1
	}
	return &poller{
		src:     src,
		intv:    intv,
		samples: make([]qmi8658.Sample, 0, size),
	}
}

func (p *poller) serve(ctx context.Context) {
	ticker := time.NewTicker(p.intv)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.poll()
		case <-ctx.Done():
			return
		}
	}
}

func (p *poller) poll() {
	s, err := p.src.Read()
	if err != nil {
		log.Warnln("read qmi8658:", err)
		if p.readErrors != nil {
			p.readErrors.Inc()
		}
		return
	}
	p.update(s)
}

func (p *poller) update(s qmi8658.Sample) {
	p.mut.Lock()
	defer p.mut.Unlock()
	if len(p.samples) < cap(p.samples) {
		p.samples = append(p.samples, s)
	} else {
		copy(p.samples, p.samples[1:])
		p.samples[len(p.samples)-1] = s
	}
}

// Median returns the per field median over the window.
func (p *poller) Median() qmi8658.Sample {
	p.mut.Lock()
	defer p.mut.Unlock()
	var res qmi8658.Sample
	if len(p.samples) == 0 {
		return res
	}
	vals := make([]float64, len(p.samples))
	for _, field := range sampleFields {
		for i := range p.samples {
			vals[i] = *field(&p.samples[i])
		}
		sort.Float64s(vals)
		mid := len(vals) / 2
		if len(vals)%2 == 0 {
			*field(&res) = (vals[mid-1] + vals[mid]) / 2
		} else {
			*field(&res) = vals[mid]
		}
	}
	return res
}

// Deviation returns the per field spread (max - min) over the window.
func (p *poller) Deviation() qmi8658.Sample {
	p.mut.Lock()
	defer p.mut.Unlock()
	var res qmi8658.Sample
	if len(p.samples) == 0 {
		return res
	}
	for _, field := range sampleFields {
		lo := *field(&p.samples[0])
		hi := lo
		for i := 1; i < len(p.samples); i++ {
			v := *field(&p.samples[i])
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		*field(&res) = hi - lo
	}
	return res
}
