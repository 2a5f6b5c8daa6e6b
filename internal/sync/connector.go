package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/syncbridge/syncbridge/internal/authz"
	"github.com/syncbridge/syncbridge/internal/awsiam"
	"github.com/syncbridge/syncbridge/internal/behavior"
	"github.com/syncbridge/syncbridge/internal/callspec"
	"github.com/syncbridge/syncbridge/internal/engine"
	"github.com/syncbridge/syncbridge/internal/metrics"
	"github.com/syncbridge/syncbridge/internal/platform"
	"github.com/syncbridge/syncbridge/internal/render"
)

// deliveryBatchSize bounds how many records travel in one portion delivery.
const deliveryBatchSize = 100

// CredentialSourceFactory builds the rotating-credential source for one run.
type CredentialSourceFactory func(ctx context.Context, opts awsiam.Options) (awsiam.Source, error)

// Deps are the shared collaborators of every connector run.
type Deps struct {
	// Platform is the base client holding the inherited platform token.
	Platform *platform.Client
	// Secrets resolves credential-lookup secrets. Defaults to Platform.
	Secrets platform.SecretSource
	// Executor performs requests against the external API.
	Executor engine.Executor
	// NewCredentialSource defaults to the STS-backed source.
	NewCredentialSource CredentialSourceFactory
	Reporter            Reporter
	Logger              *slog.Logger
	SaveDataDir         string
}

// ConnectorRunner performs one full extraction-and-delivery run for a single
// connector configuration.
type ConnectorRunner struct {
	cfg      behavior.ConnectorConfig
	deps     Deps
	reporter Reporter
	logger   *slog.Logger
}

func NewConnectorRunner(cfg behavior.ConnectorConfig, deps Deps) (*ConnectorRunner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Platform == nil {
		return nil, fmt.Errorf("platform client is required")
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("external api executor is required")
	}
	if deps.Secrets == nil {
		deps.Secrets = deps.Platform
	}
	if deps.NewCredentialSource == nil {
		deps.NewCredentialSource = func(ctx context.Context, opts awsiam.Options) (awsiam.Source, error) {
			return awsiam.New(ctx, opts)
		}
	}
	reporter := deps.Reporter
	if reporter == nil {
		reporter = &LogReporter{Logger: deps.Logger}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.Normalized()
	return &ConnectorRunner{
		cfg:      cfg,
		deps:     deps,
		reporter: reporter,
		logger:   logger.With("connector_id", cfg.ID, "connector_name", cfg.Name),
	}, nil
}

// Run executes one sync for the connector and records its outcome metrics.
func (r *ConnectorRunner) Run(ctx context.Context) error {
	start := time.Now()
	err := r.run(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SyncRunsTotal.WithLabelValues(r.cfg.ID, r.cfg.Name, status).Inc()
	metrics.SyncDuration.WithLabelValues(r.cfg.ID, r.cfg.Name).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.SyncLastSuccessTimestamp.WithLabelValues(r.cfg.ID, r.cfg.Name).SetToCurrentTime()
	}
	return err
}

func (r *ConnectorRunner) run(ctx context.Context) error {
	client, eng, rctx, inputs, err := r.prepare(ctx)
	if err != nil {
		return err
	}

	if r.cfg.TestRun && r.deps.SaveDataDir != "" {
		if _, err := eng.CaptureTestResponse(ctx, rctx, r.deps.SaveDataDir); err != nil {
			r.logger.Warn("test response capture failed", "err", err)
		}
	}

	stream, err := r.openStream(ctx, eng, rctx, inputs)
	if err != nil {
		return err
	}
	return r.deliver(ctx, client, stream)
}

// TestConnection verifies the connector can reach and authorize against its
// external API without extracting anything.
func (r *ConnectorRunner) TestConnection(ctx context.Context) error {
	_, eng, rctx, _, err := r.prepare(ctx)
	if err != nil {
		return err
	}
	return eng.TestConnection(ctx, rctx)
}

// prepare resolves both authorizations, renders the run inputs and assembles
// the extraction engine.
func (r *ConnectorRunner) prepare(ctx context.Context) (*platform.Client, *engine.Engine, *render.Context, map[string]any, error) {
	apiAuth, err := authz.ResolveAPIAuthorization(r.cfg.ID, r.cfg.SaaSAuthorization)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	client, err := r.platformClient(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := client.Authenticate(ctx); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("authenticate against the platform: %w", err)
	}

	renderer := render.New()
	builder := callspec.NewBuilder(renderer)
	rctx := render.NewContext()

	inputs, err := r.renderInputs(renderer, rctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	rctx.Set("inputs", inputs)

	authorizer := authz.NewAuthorizer(apiAuth, r.deps.Secrets, builder, r.deps.Executor)
	eng, err := engine.New(engine.Params{
		Config:     r.cfg,
		Renderer:   renderer,
		Builder:    builder,
		Executor:   r.deps.Executor,
		Authorizer: authorizer,
		Signer:     client,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return client, eng, rctx, inputs, nil
}

// platformClient applies the connector's platform-side authorization on top
// of the inherited client.
func (r *ConnectorRunner) platformClient(ctx context.Context) (*platform.Client, error) {
	auth, err := authz.ResolvePlatformAuthorization(r.cfg.ID, r.cfg.PlatformAuthorization, r.deps.Platform.APIToken)
	if err != nil {
		return nil, err
	}
	if auth.TokenID != "" {
		token, err := r.deps.Platform.GetTokenByTokenID(ctx, auth.TokenID)
		if err != nil {
			return nil, fmt.Errorf("resolve platform token %s: %w", auth.TokenID, err)
		}
		return r.deps.Platform.WithToken(token), nil
	}
	if auth.Token != r.deps.Platform.APIToken {
		return r.deps.Platform.WithToken(auth.Token), nil
	}
	return r.deps.Platform, nil
}

// renderInputs evaluates every cloud input template and merges the local
// inputs over the result. Local values win on conflict.
func (r *ConnectorRunner) renderInputs(renderer *render.Renderer, rctx *render.Context) (map[string]any, error) {
	local, err := r.cfg.ResolveLocalInputs()
	if err != nil {
		return nil, err
	}
	rctx.Set("inputs", local)

	merged := make(map[string]any, len(r.cfg.Inputs)+len(local))
	for name, input := range r.cfg.Inputs {
		value, err := renderer.String(input.Value, rctx)
		if err != nil {
			return nil, behavior.NewConfigError(r.cfg.ID, "input %q cannot be rendered: %s", name, err)
		}
		merged[name] = value
	}
	for name, value := range local {
		merged[name] = value
	}
	return merged, nil
}

// openStream picks the plain or rotating-credential extraction stream.
func (r *ConnectorRunner) openStream(ctx context.Context, eng *engine.Engine, rctx *render.Context, inputs map[string]any) (*engine.Stream, error) {
	roleARNs := r.cfg.IAMRoleARNs()
	if len(roleARNs) == 0 {
		return eng.Stream(ctx, rctx, engine.Options{}), nil
	}

	source, err := r.deps.NewCredentialSource(ctx, awsiam.Options{
		Region:          stringInput(inputs, "aws_region"),
		RoleARNs:        roleARNs,
		SessionName:     "syncbridge-" + r.cfg.ID,
		ExternalID:      stringInput(inputs, "aws_external_id"),
		AccessKeyID:     stringInput(inputs, "aws_access_key_id"),
		SecretAccessKey: stringInput(inputs, "aws_secret_access_key"),
	})
	if err != nil {
		return nil, behavior.NewConfigError(r.cfg.ID, "rotating credentials cannot be issued: %s", err)
	}
	return eng.StreamRotating(ctx, rctx, source), nil
}

// deliver consumes the stream, shipping records in bounded batches and
// translating a terminal failure into the matching portion outcome.
func (r *ConnectorRunner) deliver(ctx context.Context, client *platform.Client, stream *engine.Stream) error {
	portionID := platform.NewPortionID()
	batch := make([]map[string]any, 0, deliveryBatchSize)
	delivered := 0
	degraded := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := client.SendDelivery(ctx, portionID, platform.Delivery{Records: batch}); err != nil {
			return fmt.Errorf("deliver records: %w", err)
		}
		delivered += len(batch)
		batch = batch[:0]
		return nil
	}

	for stream.Next() {
		item := stream.Item()
		if item.Degraded() {
			degraded++
			r.reporter.Report(Event{
				ConnectorID:   r.cfg.ID,
				ConnectorName: r.cfg.Name,
				Stage:         "enrich",
				Message:       "record degraded: " + item.Err,
				At:            time.Now(),
			})
			continue
		}
		batch = append(batch, item.Record)
		if len(batch) == deliveryBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := stream.Err(); err != nil {
		if flushErr := flush(); flushErr != nil {
			r.logger.Error("flush before failure report failed", "err", flushErr)
		}
		failure, _ := engine.AsFailure(err)
		return r.reportFailure(ctx, client, portionID, failure)
	}

	if err := flush(); err != nil {
		return err
	}
	if err := client.FinalizePortion(ctx, portionID); err != nil {
		return fmt.Errorf("finalize portion: %w", err)
	}

	r.reporter.Report(Event{
		ConnectorID:   r.cfg.ID,
		ConnectorName: r.cfg.Name,
		Records:       delivered,
		Degraded:      degraded,
		Done:          true,
		At:            time.Now(),
	})
	return nil
}

// reportFailure maps a terminal extraction failure onto the portion protocol
// and re-raises it so the run is recorded as failed.
func (r *ConnectorRunner) reportFailure(ctx context.Context, client *platform.Client, portionID string, failure *engine.Failure) error {
	var reportErr error
	switch failure.Phase {
	case engine.PhaseEmptyStart:
		reportErr = client.CreateSyntheticFinalizedEmptyPortion(ctx, r.cfg.ID, portionID)
	case engine.PhaseEarly:
		reportErr = client.CreateSyntheticFinalizedFailedPortion(ctx, r.cfg.ID, portionID, failure.Error(), true, r.cfg.TestRun)
	default:
		reportErr = client.SendDelivery(ctx, portionID, platform.Delivery{Error: failure.Error(), IsFatal: true})
		if reportErr == nil {
			reportErr = client.FinalizePortion(ctx, portionID)
		}
	}
	if reportErr != nil {
		r.logger.Error("failure could not be reported to the platform", "phase", failure.Phase, "err", reportErr)
	}
	r.reporter.Report(Event{
		ConnectorID:   r.cfg.ID,
		ConnectorName: r.cfg.Name,
		Stage:         string(failure.Phase),
		Err:           failure,
		At:            time.Now(),
	})
	return failure
}

func stringInput(inputs map[string]any, key string) string {
	if v, ok := inputs[key].(string); ok {
		return v
	}
	return ""
}
