// Package telemetry provides progress-recording adapters.
package telemetry

import (
	"io"

	"github.com/GrahamStJack/bottom-up-build/internal/core/ports"
)

// NoOp is a Telemetry implementation that records nothing.
type NoOp struct{}

// NewNoOp creates a new NoOp recorder.
func NewNoOp() *NoOp { return &NoOp{} }

// Record returns an inert vertex.
func (n *NoOp) Record(_ string) ports.Vertex { return noopVertex{} }

// Close does nothing.
func (n *NoOp) Close() error { return nil }

type noopVertex struct{}

func (noopVertex) Stdout() io.Writer  { return io.Discard }
func (noopVertex) Stderr() io.Writer  { return io.Discard }
func (noopVertex) Complete(err error) {}
func (noopVertex) Cached()            {}
