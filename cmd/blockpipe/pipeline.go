// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/spsc/block"
	"code.hybscloud.com/spsc/observe"
	"github.com/valyala/fastrand"
	"go.opentelemetry.io/otel/metric"
)

type config struct {
	SampleRate int
	Tone       float64
	Tick       time.Duration
	Work       time.Duration
	Duration   time.Duration
	Report     time.Duration
	Block      block.Config
}

func defaultConfig() config {
	return config{
		SampleRate: 48000,
		Tone:       440,
		Tick:       5 * time.Millisecond,
		Report:     time.Second,
		Block:      block.Config{BlockSize: 256, BlockCount: 8},
	}
}

func (c config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	if c.Tone <= 0 || c.Tone >= float64(c.SampleRate)/2 {
		return fmt.Errorf("tone %.1f Hz outside (0, %d) Hz", c.Tone, c.SampleRate/2)
	}
	return c.Block.Validate()
}

type result struct {
	Stats  block.Stats
	Blocks int
	RMS    float64
}

// run drives one capture goroutine and one processing goroutine over a
// shared block.Buffer until ctx is done.
func run(ctx context.Context, cfg config, meter metric.Meter, logger *slog.Logger) (result, error) {
	if err := cfg.validate(); err != nil {
		return result{}, err
	}

	buf, err := block.New[int16](cfg.Block)
	if err != nil {
		return result{}, err
	}
	reg, err := observe.Register(meter, "capture", buf)
	if err != nil {
		return result{}, err
	}
	defer reg.Unregister()

	logger.Info("pipeline started",
		"rate", cfg.SampleRate,
		"block", cfg.Block.BlockSize,
		"blocks", cfg.Block.BlockCount,
		"tick", cfg.Tick,
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		capture(ctx, cfg, buf, logger)
	}()

	res := process(ctx, cfg, buf, logger)
	wg.Wait()

	res.Stats = buf.Stats()
	return res, nil
}

// capture simulates a sample-ready callback: every tick it synthesizes the
// samples that elapsed and writes them without waiting. Samples that do
// not fit are dropped.
func capture(ctx context.Context, cfg config, buf *block.Buffer[int16], logger *slog.Logger) {
	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	perTick := max(1, int(int64(cfg.SampleRate)*int64(cfg.Tick)/int64(time.Second)))
	chunk := make([]int16, perTick)
	step := 2 * math.Pi * cfg.Tone / float64(cfg.SampleRate)
	phase := 0.0

	for {
		select {
		case <-ctx.Done():
			buf.Flush()
			return
		case <-ticker.C:
		}

		for i := range chunk {
			// Triangular dither of about one LSB.
			dither := float64(fastrand.Uint32n(3)) - 1
			chunk[i] = int16(math.Round(0.5*math.MaxInt16*math.Sin(phase) + dither))
			phase += step
			if phase >= 2*math.Pi {
				phase -= 2 * math.Pi
			}
		}

		if n, err := buf.Write(chunk); err != nil {
			logger.Debug("capture overrun", "dropped", len(chunk)-n)
		}
	}
}

// process drains blocks zero-copy and tracks the signal RMS.
func process(ctx context.Context, cfg config, buf *block.Buffer[int16], logger *slog.Logger) result {
	var (
		res    result
		sumSq  float64
		count  int
		report = time.NewTicker(cfg.Report)
	)
	defer report.Stop()

	backoff := iox.Backoff{}
	for {
		select {
		case <-ctx.Done():
			if count > 0 {
				res.RMS = math.Sqrt(sumSq / float64(count))
			}
			return res
		case <-report.C:
			st := buf.Stats()
			logger.Info("pipeline status",
				"written", st.Written,
				"read", st.Read,
				"overruns", st.Overruns,
				"filled", buf.FilledBlocks(),
				"free", buf.FreeBlocks(),
			)
		default:
		}

		samples, err := buf.ReadBlock()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()

		for _, s := range samples {
			v := float64(s)
			sumSq += v * v
		}
		count += len(samples)
		res.Blocks++
		if cfg.Work > 0 {
			time.Sleep(cfg.Work)
		}
		buf.Release()
	}
}
