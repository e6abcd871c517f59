// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package observe exports queue depth as OpenTelemetry gauges.
//
// Observation only reads Len and Cap, which are advisory and safe from any
// goroutine, so a registered queue can be sampled by the metrics pipeline
// while its producer and consumer run.
package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric instrument names.
const (
	LengthMetric   = "spsc.queue.length"
	CapacityMetric = "spsc.queue.capacity"
)

// QueueAttr is the attribute key carrying the queue name.
const QueueAttr = attribute.Key("queue")

// Sizer is implemented by spsc.Queue and block.Buffer.
type Sizer interface {
	Len() int
	Cap() int
}

// Register publishes the length and capacity of q under name on meter.
// Unregister the returned registration to stop observing q.
func Register(meter metric.Meter, name string, q Sizer) (metric.Registration, error) {
	if q == nil {
		return nil, errors.New("observe: nil queue")
	}

	length, err := meter.Int64ObservableGauge(
		LengthMetric,
		metric.WithDescription("Number of queued elements (advisory)."),
		metric.WithUnit("{element}"),
	)
	if err != nil {
		return nil, err
	}

	capacity, err := meter.Int64ObservableGauge(
		CapacityMetric,
		metric.WithDescription("Queue capacity."),
		metric.WithUnit("{element}"),
	)
	if err != nil {
		return nil, err
	}

	attrs := metric.WithAttributes(QueueAttr.String(name))
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(length, int64(q.Len()), attrs)
		o.ObserveInt64(capacity, int64(q.Cap()), attrs)
		return nil
	}, length, capacity)
}
