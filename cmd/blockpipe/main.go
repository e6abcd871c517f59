// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command blockpipe runs a simulated capture-to-processing audio pipeline
// over a block.Buffer and logs throughput, overruns and queue depth.
//
//	blockpipe -rate 48000 -block 256 -blocks 8 -duration 5s
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/otel"
)

func main() {
	cfg := defaultConfig()
	var level slog.Level

	flag.IntVar(&cfg.SampleRate, "rate", cfg.SampleRate, "capture sample rate in Hz")
	flag.IntVar(&cfg.Block.BlockSize, "block", cfg.Block.BlockSize, "samples per block")
	flag.IntVar(&cfg.Block.BlockCount, "blocks", cfg.Block.BlockCount, "number of blocks in the pool")
	flag.Float64Var(&cfg.Tone, "tone", cfg.Tone, "test tone frequency in Hz")
	flag.DurationVar(&cfg.Tick, "tick", cfg.Tick, "capture callback interval")
	flag.DurationVar(&cfg.Work, "work", cfg.Work, "simulated processing time per block")
	flag.DurationVar(&cfg.Duration, "duration", 5*time.Second, "run time, 0 runs until interrupted")
	flag.TextVar(&level, "log-level", slog.LevelInfo, "log level (debug, info, warn, error)")
	flag.Parse()

	logger := newLogger(os.Stderr, level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if cfg.Duration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, cfg.Duration)
		defer cancelTimeout()
	}

	res, err := run(ctx, cfg, otel.Meter("code.hybscloud.com/spsc/cmd/blockpipe"), logger)
	if err != nil {
		logger.Error("pipeline failed", "err", err)
		os.Exit(1)
	}

	logger.Info("pipeline stopped",
		"written", res.Stats.Written,
		"read", res.Stats.Read,
		"overruns", res.Stats.Overruns,
		"underruns", res.Stats.Underruns,
		"blocks", res.Blocks,
		"rms", res.RMS,
	)
}

func newLogger(f *os.File, level slog.Level) *slog.Logger {
	var w io.Writer = colorable.NewColorable(f)
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(f.Fd()),
	}))
}
