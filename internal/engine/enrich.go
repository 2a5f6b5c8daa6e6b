package engine

import (
	"context"
	"fmt"

	"github.com/syncbridge/syncbridge/internal/behavior"
	"github.com/syncbridge/syncbridge/internal/httpexec"
	"github.com/syncbridge/syncbridge/internal/metrics"
	"github.com/syncbridge/syncbridge/internal/render"
)

// enrichItem runs the optional detail, software and SaaS stages over one list
// record. An error in any stage degrades the item back to the original list
// record instead of failing the pass.
func (e *Engine) enrichItem(ctx context.Context, rctx *render.Context, record map[string]any) Item {
	details, err := e.fetchDetails(ctx, rctx, record)
	if err != nil {
		return e.degrade(record, "details", err)
	}
	if err := e.attachSoftware(ctx, rctx, details); err != nil {
		return e.degrade(record, "software", err)
	}
	e.attachSaaS(details)
	return Item{Record: details}
}

func (e *Engine) degrade(record map[string]any, stage string, err error) Item {
	e.logger.Warn("record enrichment failed", "stage", stage, "err", err)
	metrics.EnrichmentFailuresTotal.WithLabelValues(e.cfg.ID, e.cfg.Name, stage).Inc()
	return Item{Record: record, Err: err.Error()}
}

// fetchDetails replaces the list record with the body of the detail call,
// keeping the original record reachable under "list_response_item". Without a
// detail behavior the list record passes through unchanged.
func (e *Engine) fetchDetails(ctx context.Context, rctx *render.Context, record map[string]any) (map[string]any, error) {
	db := e.cfg.DetailBehavior
	if db == nil || db.Rule.Empty() {
		return record, nil
	}

	rctx.Set("list_response_item", record)
	parsed, err := e.call(ctx, rctx, db.Rule)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the details of item: %w", err)
	}

	details, ok := parsed.(map[string]any)
	if !ok {
		details = map[string]any{"value": parsed}
	}
	details["list_response_item"] = record
	return details, nil
}

// attachSoftware evaluates the software behavior and, when it yields entries,
// stores them under the record's "software" key. The software source is
// either a dedicated endpoint or, without one, the detail response itself.
func (e *Engine) attachSoftware(ctx context.Context, rctx *render.Context, details map[string]any) error {
	sw := e.cfg.SoftwareBehavior
	if sw == nil || !sw.Enabled {
		return nil
	}

	rctx.Set("detail_response", details)
	defer rctx.Clear("software_response", "software_response_item")

	var source any = details
	if sw.HasCallSpec() {
		parsed, err := e.call(ctx, rctx, sw.Rule)
		if err != nil {
			return fmt.Errorf("failed to fetch the software info: %w", err)
		}
		source = parsed
	}
	rctx.Set("software_response", source)

	result, err := e.renderer.Native(sw.Result, rctx)
	if err != nil {
		return fmt.Errorf("failed to fetch the software info: %w", err)
	}

	items, _ := result.([]any)
	entries := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rctx.Set("software_response_item", item)

		name, err := e.renderer.Native(sw.Name, rctx)
		if err != nil {
			return fmt.Errorf("failed to fetch the software info: %w", err)
		}
		rawVersion, err := e.renderer.Native(sw.Version, rctx)
		if err != nil {
			return fmt.Errorf("failed to fetch the software info: %w", err)
		}
		var version any
		if rawVersion != nil {
			version = render.Stringify(rawVersion)
		}

		entries = append(entries, map[string]any{
			"name":    name,
			"version": version,
			"path":    nil,
		})
	}

	if len(entries) > 0 {
		details["software"] = entries
	}
	return nil
}

// attachSaaS links the record to the configured SaaS entry.
func (e *Engine) attachSaaS(details map[string]any) {
	sb := e.cfg.SaaSBehavior
	if sb == nil || !sb.Enabled || sb.SyncKey == "" {
		return
	}
	saas := map[string]any{"sync_key": sb.SyncKey}
	if sb.SelectedSaaSID != "" {
		saas["selected_saas_id"] = sb.SelectedSaaSID
	}
	if sb.Name != "" {
		saas["name"] = sb.Name
	}
	details["saas"] = saas
}

// call builds, authorizes and executes one enrichment request, returning the
// parsed response body.
func (e *Engine) call(ctx context.Context, rctx *render.Context, rule behavior.Rule) (any, error) {
	spec, err := e.builder.Build(rule, rctx)
	if err != nil {
		return nil, err
	}
	if err := e.authorizer.Attach(ctx, spec, rctx); err != nil {
		return nil, err
	}
	resp, err := e.executor.Execute(ctx, spec)
	if err != nil {
		return nil, err
	}
	return httpexec.ParseObject(resp.Text), nil
}
