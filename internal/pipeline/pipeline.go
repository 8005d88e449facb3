// Package pipeline wires input stream -> line splitter -> record transform ->
// output stream.
//
// Records are processed strictly in arrival order, one at a time: each line
// is echoed to the output (unless quiet) and then handed to the configured
// handler; the next line is not read until the handler returns. Handler
// errors are logged and counted but never stop the stream. A nil handler is
// degraded mode: the pipeline becomes a pure echo.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"

	"logship/internal/metrics"
)

// maxLineBytes bounds a single input record. Lines beyond this fail the
// scanner and end the run; that is a transport-level failure, not a
// per-record one.
const maxLineBytes = 1 << 20

// Logger is the minimal logging interface used by the pipeline.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Handler processes one record. The line is only valid for the duration of
// the call.
type Handler func(ctx context.Context, line []byte) error

// Pipeline drives records from In to Out and through Handler.
type Pipeline struct {
	In  io.Reader
	Out io.Writer

	// Quiet suppresses the echo to Out. Diagnostics are unaffected.
	Quiet bool

	// Handler is invoked per record. Nil selects degraded (echo-only) mode.
	Handler Handler

	// Logger receives per-record handler errors. Nil discards them.
	Logger Logger

	// Job tags metrics. Empty means untagged.
	Job string
}

// Run consumes In until EOF or a transport error.
//
// Per-record handler errors do not stop the run and are not returned; the
// only non-nil returns are read errors from In, write errors to Out, and
// context cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	sc := bufio.NewScanner(p.In)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	nl := []byte{'\n'}

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := sc.Bytes()

		if !p.Quiet {
			if _, err := p.Out.Write(line); err != nil {
				return fmt.Errorf("pipeline: echo: %w", err)
			}
			if _, err := p.Out.Write(nl); err != nil {
				return fmt.Errorf("pipeline: echo: %w", err)
			}
			metrics.RecordRecord(p.Job, "echoed", 1)
		}

		if p.Handler == nil {
			continue
		}
		if err := p.Handler(ctx, line); err != nil {
			// Logged, counted upstream, and done with: the record is
			// complete and the stream keeps flowing.
			p.logf("insert: %v", err)
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("pipeline: read: %w", err)
	}
	return nil
}

func (p *Pipeline) logf(format string, v ...any) {
	if p.Logger == nil {
		return
	}
	p.Logger.Printf(format, v...)
}

var _ Logger = (*log.Logger)(nil)
