package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syncbridge/syncbridge/internal/authz"
	"github.com/syncbridge/syncbridge/internal/awsiam"
	"github.com/syncbridge/syncbridge/internal/behavior"
	"github.com/syncbridge/syncbridge/internal/callspec"
	"github.com/syncbridge/syncbridge/internal/httpexec"
	"github.com/syncbridge/syncbridge/internal/metrics"
	"github.com/syncbridge/syncbridge/internal/platform"
	"github.com/syncbridge/syncbridge/internal/render"
)

// MaxIterations is the unconditional ceiling of the pagination loop,
// independent of network behavior.
const MaxIterations = 1000

// shimErrorKey marks a provider-side failure embedded in an otherwise
// successful response body.
const shimErrorKey = "shim_error_message"

// Executor performs one rendered call specification.
type Executor interface {
	Execute(ctx context.Context, spec *callspec.Spec) (*httpexec.Response, error)
}

// AWSSigner derives authorization headers/params for a call specification
// from a short-lived credential set.
type AWSSigner interface {
	GetAWSSessionSecret(ctx context.Context, spec *callspec.Spec, creds awsiam.CredentialSet) (*platform.Secret, error)
}

// Params wire an Engine together.
type Params struct {
	Config     behavior.ConnectorConfig
	Renderer   *render.Renderer
	Builder    *callspec.Builder
	Executor   Executor
	Authorizer *authz.Authorizer
	Signer     AWSSigner
	Logger     *slog.Logger
}

// Engine extracts records from an external API following the connector's
// declarative behaviors. It owns the rendering context for the duration of a
// run and is not safe for concurrent use.
type Engine struct {
	cfg        behavior.ConnectorConfig
	renderer   *render.Renderer
	builder    *callspec.Builder
	executor   Executor
	authorizer *authz.Authorizer
	signer     AWSSigner
	logger     *slog.Logger
}

func New(p Params) (*Engine, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	if p.Renderer == nil || p.Builder == nil {
		return nil, errors.New("engine renderer and builder are required")
	}
	if p.Executor == nil {
		return nil, errors.New("engine executor is required")
	}
	if p.Authorizer == nil {
		return nil, errors.New("engine authorizer is required")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:        p.Config.Normalized(),
		renderer:   p.Renderer,
		builder:    p.Builder,
		executor:   p.Executor,
		authorizer: p.Authorizer,
		signer:     p.Signer,
		logger:     logger.With("connector_id", p.Config.ID),
	}, nil
}

// Config returns the connector configuration driving this engine.
func (e *Engine) Config() behavior.ConnectorConfig {
	return e.cfg
}

// Options tune one pagination pass.
type Options struct {
	// IAMCredentials, when set, authorize every request of this pass through
	// the AWS signer instead of the connector's API authorization.
	IAMCredentials *awsiam.CredentialSet
	// TolerateEmptyStart turns an empty first page into a normal termination
	// instead of the empty-start failure.
	TolerateEmptyStart bool
}

// Stream starts one enrichment-wrapped pagination pass. Records are pulled
// one at a time; per-record enrichment failures surface as degraded items
// while terminal pagination failures surface through Stream.Err.
func (e *Engine) Stream(ctx context.Context, rctx *render.Context, opts Options) *Stream {
	it := &listIterator{
		e:    e,
		ctx:  ctx,
		rctx: rctx,
		opts: opts,
	}
	it.init()
	return &Stream{advance: it.advance}
}

type listIterator struct {
	e    *Engine
	ctx  context.Context
	rctx *render.Context
	opts Options

	iteration int
	havePage  bool
	page      []map[string]any
	pageIdx   int
	finished  bool
}

func (it *listIterator) init() {
	it.rctx.Update(map[string]any{
		"iteration":             0,
		"list_response":         map[string]any{},
		"list_response_headers": map[string]string{},
		"list_response_links":   map[string]map[string]string{},
	})
}

func (it *listIterator) advance() (Item, bool, *Failure) {
	for {
		if it.pageIdx < len(it.page) {
			record := it.page[it.pageIdx]
			it.pageIdx++
			return it.e.enrichItem(it.ctx, it.rctx, record), true, nil
		}
		if it.finished {
			return Item{}, false, nil
		}
		if failure := it.fetchPage(); failure != nil {
			return Item{}, false, failure
		}
	}
}

// fetchPage assembles, authorizes and executes the next list request, then
// evaluates the result expression into the next page of records.
func (it *listIterator) fetchPage() *Failure {
	// The iteration counter advances only once the previous page has been
	// fully emitted, so templates see the number of completed pages.
	if it.havePage {
		it.iteration++
		it.rctx.Set("iteration", it.iteration)
	}
	if it.iteration >= MaxIterations {
		it.e.logger.Error("pagination exceeded iteration ceiling", "max_iterations", MaxIterations)
		return newFailure(PhaseMaxIterations, "reached max iterations")
	}

	done, err := it.fetchPageOnce()
	if err != nil {
		if failure, ok := AsFailure(err); ok {
			return failure
		}
		it.e.logger.Error("failed to fetch the list of items", "iteration", it.iteration, "err", err)
		if it.iteration == 0 {
			return newFailure(PhaseEarly, err.Error())
		}
		return newFailure(PhaseMid, err.Error())
	}
	if done {
		it.finished = true
	}
	return nil
}

func (it *listIterator) fetchPageOnce() (done bool, err error) {
	lb := it.e.cfg.ListBehavior

	spec, err := it.e.builder.Build(lb.Rule, it.rctx)
	if err != nil {
		return false, err
	}

	if lb.Pagination != nil {
		breakEarly, err := it.e.renderer.Native(lb.Pagination.BreakEarly, it.rctx)
		if err != nil {
			return false, err
		}
		if render.Truthy(breakEarly) {
			return true, nil
		}

		addIf, err := it.e.renderer.Native(lb.Pagination.AddIf, it.rctx)
		if err != nil {
			return false, err
		}
		if render.Truthy(addIf) {
			extraHeaders, err := it.e.builder.RenderKV(lb.Pagination.Headers, it.rctx)
			if err != nil {
				return false, err
			}
			extraParams, err := it.e.builder.RenderKV(lb.Pagination.Params, it.rctx)
			if err != nil {
				return false, err
			}
			spec.MergeHeaders(extraHeaders)
			spec.MergeParams(extraParams)
		}
	}

	// Authorization is layered last, after the pagination extras.
	if it.opts.IAMCredentials != nil {
		secret, err := it.e.signer.GetAWSSessionSecret(it.ctx, spec.Clone(), *it.opts.IAMCredentials)
		if err != nil {
			return false, err
		}
		spec.MergeHeaders(secret.Headers)
		spec.MergeParams(secret.Params)
		// AWS APIs need no mTLS adapter.
		spec.TLS = nil
	} else if err := it.e.authorizer.Attach(it.ctx, spec, it.rctx); err != nil {
		return false, err
	}

	resp, err := it.e.executor.Execute(it.ctx, spec)
	if err != nil {
		return false, err
	}

	parsed := httpexec.ParseObject(resp.Text)
	if m, ok := parsed.(map[string]any); ok {
		if msg, found := m[shimErrorKey]; found {
			return false, fmt.Errorf("%v", msg)
		}
	}
	if parsed == nil {
		parsed = map[string]any{}
	}

	it.rctx.Update(map[string]any{
		"list_response":         parsed,
		"list_response_headers": resp.Headers,
		"list_response_links":   resp.Links,
	})
	metrics.PagesFetchedTotal.WithLabelValues(it.e.cfg.ID, it.e.cfg.Name).Inc()

	result, err := it.e.renderer.Native(lb.Result, it.rctx)
	if err != nil {
		return false, err
	}

	records := toRecords(result)
	if len(records) == 0 {
		if it.iteration == 0 && !it.opts.TolerateEmptyStart {
			return false, newFailure(PhaseEmptyStart, "")
		}
		return true, nil
	}

	it.page = records
	it.pageIdx = 0
	it.havePage = true
	metrics.RecordsExtractedTotal.WithLabelValues(it.e.cfg.ID, it.e.cfg.Name).Add(float64(len(records)))
	return false, nil
}

// toRecords normalizes the evaluated result expression into a record page.
// A non-mapping entity is wrapped so downstream merging always sees a mapping.
func toRecords(result any) []map[string]any {
	switch v := result.(type) {
	case nil:
		return nil
	case []any:
		records := make([]map[string]any, 0, len(v))
		for _, entity := range v {
			records = append(records, asRecord(entity))
		}
		return records
	case []map[string]any:
		return v
	case map[string]any:
		return []map[string]any{v}
	default:
		return nil
	}
}

func asRecord(entity any) map[string]any {
	if m, ok := entity.(map[string]any); ok {
		return m
	}
	return map[string]any{"value": entity}
}
