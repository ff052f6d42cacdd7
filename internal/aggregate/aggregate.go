// Package aggregate issues one request per selected server and merges the
// per-server batches in submission order.
//
// All requests run concurrently. Results are drained slot by slot in the
// order the servers were submitted, so the merged output never depends on
// which server answered first.
package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/fanout/internal/lsp"
	"github.com/dshills/fanout/internal/telemetry"
)

// Policy decides what a per-server failure does to the whole aggregation.
type Policy int

const (
	// FailFast returns the first error met while draining in submission
	// order and discards every batch not yet drained, including successful
	// ones from later servers.
	FailFast Policy = iota

	// Partial keeps every successful batch in submission order and reports
	// the failed servers separately as Failures.
	Partial
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	if p == Partial {
		return "partial"
	}
	return "fail-fast"
}

// ParsePolicy parses a configuration name.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-fast", "failfast":
		return FailFast, nil
	case "partial":
		return Partial, nil
	default:
		return FailFast, fmt.Errorf("unknown aggregation policy %q", s)
	}
}

// Job is one per-server request. Fetch issues the request and decodes the
// payload into a batch.
type Job[T any] struct {
	Server lsp.Client
	Fetch  func(ctx context.Context) (T, error)
}

// Batch is one server's decoded result, tagged with the server's origin.
type Batch[T any] struct {
	Origin lsp.Origin
	Name   string
	Items  T
}

// Jobs builds one job per server. request picks the server's request
// factory; servers for which it yields nil are skipped, since they lack the
// sub-capability even if they advertise the feature.
func Jobs[T any](servers []lsp.Client, request func(lsp.Client) lsp.Call, decode func(json.RawMessage) (T, error)) []Job[T] {
	jobs := make([]Job[T], 0, len(servers))
	for _, s := range servers {
		call := request(s)
		if call == nil {
			continue
		}
		jobs = append(jobs, Job[T]{
			Server: s,
			Fetch: func(ctx context.Context) (T, error) {
				raw, err := call(ctx)
				if err != nil {
					var zero T
					return zero, err
				}
				items, err := decode(raw)
				if err != nil {
					var zero T
					return zero, &lsp.ServerError{Server: s.Name(), Err: err}
				}
				return items, nil
			},
		})
	}
	return jobs
}

// ServerFailure is one server's failure under the Partial policy.
type ServerFailure struct {
	Server lsp.ServerID
	Name   string
	Err    error
}

// Error implements the error interface.
func (f *ServerFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Name, f.Err)
}

// Unwrap returns the underlying error.
func (f *ServerFailure) Unwrap() error {
	return f.Err
}

// Failures lists the servers that failed during a Partial aggregation.
type Failures []*ServerFailure

// Error implements the error interface.
func (fs Failures) Error() string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.Error()
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (fs Failures) Unwrap() []error {
	errs := make([]error, len(fs))
	for i, f := range fs {
		errs[i] = f
	}
	return errs
}

// Aggregator runs fan-outs under a fixed policy.
type Aggregator struct {
	policy Policy
	limit  int
	logger *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithPolicy sets the failure policy.
func WithPolicy(p Policy) Option {
	return func(a *Aggregator) {
		a.policy = p
	}
}

// WithConcurrencyLimit bounds the number of requests in flight. Zero or
// negative means unbounded.
func WithConcurrencyLimit(n int) Option {
	return func(a *Aggregator) {
		a.limit = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// New creates an Aggregator. The default policy is FailFast.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{policy: FailFast}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Policy returns the configured failure policy.
func (a *Aggregator) Policy() Policy {
	return a.policy
}

type slot[T any] struct {
	done  chan struct{}
	items T
	err   error
}

// Collect runs jobs concurrently and returns their batches in submission
// order. A job whose server identity was already submitted is skipped.
//
// Under FailFast the first error in submission order is returned and no
// batches are. Under Partial the successful batches are returned together
// with a Failures error when any job failed. Requests still in flight when
// Collect returns are not cancelled; their results are dropped.
func Collect[T any](ctx context.Context, a *Aggregator, capability lsp.Capability, jobs []Job[T]) ([]Batch[T], error) {
	id := uuid.NewString()
	start := time.Now()

	seen := make(map[lsp.ServerID]struct{}, len(jobs))
	unique := jobs[:0:0]
	for _, j := range jobs {
		if _, dup := seen[j.Server.ID()]; dup {
			a.logger.Debug("skipping duplicate server", "aggregation", id, "server", j.Server.Name())
			continue
		}
		seen[j.Server.ID()] = struct{}{}
		unique = append(unique, j)
	}

	ctx, span := telemetry.StartAggregation(ctx, capability.String(), id, len(unique))
	batches, err := drain(ctx, a, capability, id, unique)
	telemetry.EndSpan(span, err)
	telemetry.RecordAggregation(capability.String(), a.policy.String(), time.Since(start), err)
	return batches, err
}

func drain[T any](ctx context.Context, a *Aggregator, capability lsp.Capability, id string, jobs []Job[T]) ([]Batch[T], error) {
	slots := make([]*slot[T], len(jobs))
	for i := range slots {
		slots[i] = &slot[T]{done: make(chan struct{})}
	}

	// Spawning runs apart from draining so a concurrency limit never stalls
	// the drain loop behind requests that are still queued.
	var g errgroup.Group
	if a.limit > 0 {
		g.SetLimit(a.limit)
	}
	go func() {
		for i, j := range jobs {
			s := slots[i]
			g.Go(func() error {
				defer close(s.done)
				s.items, s.err = j.Fetch(ctx)
				telemetry.RecordRequest(capability.String(), s.err)
				return nil
			})
		}
	}()

	batches := make([]Batch[T], 0, len(jobs))
	var failures Failures
	for i, j := range jobs {
		s := slots[i]
		select {
		case <-s.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if s.err != nil {
			a.logger.Warn("language server request failed",
				"aggregation", id,
				"capability", capability.String(),
				"server", j.Server.Name(),
				"error", s.err)
			if a.policy == FailFast {
				return nil, s.err
			}
			failures = append(failures, &ServerFailure{Server: j.Server.ID(), Name: j.Server.Name(), Err: s.err})
			continue
		}

		batches = append(batches, Batch[T]{
			Origin: lsp.OriginOf(j.Server),
			Name:   j.Server.Name(),
			Items:  s.items,
		})
	}

	if len(failures) > 0 {
		return batches, failures
	}
	return batches, nil
}

// AsFailures reports whether err carries per-server failures from a Partial
// aggregation.
func AsFailures(err error) (Failures, bool) {
	var fs Failures
	if errors.As(err, &fs) {
		return fs, true
	}
	return nil, false
}

// One runs a single-server request through the same path as a fan-out, for
// features that only ever ask the first capable server. It returns
// lsp.ErrNotSupported when the server lacks the sub-capability.
func One[T any](ctx context.Context, a *Aggregator, capability lsp.Capability, server lsp.Client,
	request func(lsp.Client) lsp.Call, decode func(json.RawMessage) (T, error)) (Batch[T], error) {
	jobs := Jobs([]lsp.Client{server}, request, decode)
	if len(jobs) == 0 {
		return Batch[T]{}, fmt.Errorf("%s: %w", server.Name(), lsp.ErrNotSupported)
	}

	batches, err := Collect(ctx, a, capability, jobs)
	if fs, ok := AsFailures(err); ok {
		return Batch[T]{}, fs[0].Err
	}
	if err != nil {
		return Batch[T]{}, err
	}
	return batches[0], nil
}
