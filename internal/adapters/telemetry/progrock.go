// Package telemetry provides tracer adapters that render build
// progress. The default implementation renders vertexes and run output
// to stderr through progrock's console writer.
package telemetry

import (
	"context"
	"os"
	"sync"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"github.com/vito/progrock/console"

	"go.trai.ch/quake/internal/core/ports"
)

// ProgrockTracer implements ports.Tracer on top of a progrock recorder.
// Each span becomes a vertex keyed by the digest of its name, so a
// re-started span for the same instance resumes the same vertex.
type ProgrockTracer struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a ProgrockTracer rendering plain-text progress and run
// output to stderr.
func New() *ProgrockTracer {
	return NewTracer(console.NewWriter(os.Stderr))
}

// NewTracer creates a ProgrockTracer writing to w.
func NewTracer(w progrock.Writer) *ProgrockTracer {
	return &ProgrockTracer{
		w:   w,
		rec: progrock.NewRecorder(w),
	}
}

// Start begins a vertex for the named unit of work.
func (t *ProgrockTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	v := t.rec.Vertex(digest.FromString(name), name)
	if cfg.Cached {
		v.Cached()
	}
	return ctx, &progrockSpan{vertex: v}
}

// EmitPlan records the set of planned instances as pending vertexes so
// the tape shows the full graph before anything runs.
func (t *ProgrockTracer) EmitPlan(_ context.Context, instanceIDs []string) {
	for _, id := range instanceIDs {
		t.rec.Vertex(digest.FromString(id), id)
	}
}

// Close flushes and closes the recording session.
func (t *ProgrockTracer) Close() error {
	if c, ok := t.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

type progrockSpan struct {
	vertex *progrock.VertexRecorder

	mu   sync.Mutex
	err  error
	done bool
}

// Write streams run-body output onto the vertex's stdout stream.
func (s *progrockSpan) Write(p []byte) (int, error) {
	return s.vertex.Stdout().Write(p)
}

// RecordError attaches err to the span; it is reported when End runs.
func (s *progrockSpan) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SetAttribute adds a key-value pair to the span.
func (s *progrockSpan) SetAttribute(key string, value any) {
	if key == "cached" {
		if v, ok := value.(bool); ok && v {
			s.vertex.Cached()
		}
	}
}

// End completes the vertex, carrying any recorded error.
func (s *progrockSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.vertex.Done(s.err)
}

var _ ports.Tracer = (*ProgrockTracer)(nil)
var _ ports.Span = (*progrockSpan)(nil)
