package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runRead(cmd *cobra.Command, _ []string) error {
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

	out := cmd.OutOrStdout()
	if opts.Read.Buffer {
		bw := bufio.NewWriter(out)
		defer bw.Flush()
		out = bw
	}

	return streamSamples(ctx, s, opts.Read.Interval, opts.Read.Decimals, out)
}

// streamSamples writes one JSON object per interval until the context is
// cancelled. Failed reads are logged and skipped.
func streamSamples(ctx context.Context, src sampler, intv time.Duration, decimals int, out io.Writer) error {
	enc := json.NewEncoder(out)
	ticker := time.NewTicker(intv)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			sample, err := src.Read()
			if err != nil {
				log.Warnln("read qmi8658:", err)
				continue
			}

			fields := make(map[string]interface{})
			fields["when"] = now
			for name, val := range sample.Readings() {
				fields[name] = round(val, decimals)
			}
			if err := enc.Encode(fields); err != nil {
				return err
			}

		case <-ctx.Done():
			return nil
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func round(x float64, prec int) float64 {
	pow := math.Pow10(prec)
	return math.Round(x*pow) / pow
}
