// internal/workers/price/compare-full/handler.go
package comparefull

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "shopping-agent/internal/common/errors"
	"shopping-agent/internal/common/observability"
	"shopping-agent/internal/domain"
	"shopping-agent/internal/models"
	"shopping-agent/internal/providers"
	"shopping-agent/internal/runtime/tools"
	"shopping-agent/pkg/registry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	TaskType = registry.ToolPriceCompareFull
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config   *Config
	profiles *domain.Registry
	source   providers.Source
	obs      *observability.Observability
	logger   Logger
}

func NewHandler(config *Config, profiles *domain.Registry, source providers.Source, obs *observability.Observability, log Logger) *Handler {
	return &Handler{
		config:   config,
		profiles: profiles,
		source:   source,
		obs:      obs,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Tool adapts Compare to the tool registry's map contract.
func (h *Handler) Tool() tools.Func {
	return func(ctx context.Context, in map[string]interface{}) (map[string]interface{}, error) {
		var input Input
		if err := remarshal(in, &input); err != nil {
			return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err))
		}
		output, err := h.Compare(ctx, &input)
		if err != nil {
			return nil, err
		}
		var out map[string]interface{}
		if err := remarshal(output, &out); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		return out, nil
	}
}

// Compare resolves the domain profile, gathers listings and runs the four
// filter stages. Provider failures degrade to empty rounds.
func (h *Handler) Compare(ctx context.Context, input *Input) (*Output, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, apperrors.NewInvalidRequestError("text is required")
	}
	prefs := input.Prefs
	if prefs == nil {
		prefs = models.Prefs{}
	}
	region := firstNonEmpty(input.Region, h.config.DefaultRegion)
	currency := firstNonEmpty(input.Currency, h.config.DefaultCurrency)

	profile, detection := h.profiles.Resolve(prefs.String("domain"), text)
	entities := profile.EntityExtract(text)
	diag := newDiagnostics(profile.Name(), entities)
	if detection != nil {
		diag.AutoDetect = &AutoDetect{Score: detection.Score, Evidence: detection.Evidence}
	}

	queries := profile.PreprocessQueries(text, prefs)
	if prefs.Bool("trial") && len(queries) > 1 {
		queries = queries[:1]
	}
	var debug *Debug
	if prefs.Bool("debug") {
		debug = newDebug(queries)
	}

	raw, err := h.collect(ctx, queries, region, currency, prefs, diag)
	if err != nil {
		return nil, err
	}

	r := newRun(profile, entities, h.config.MinResults, prefs.Bool("is_accessory"), diag, debug)
	items := r.execute(raw, currency)
	if n, ok := prefs.Int("max_results"); ok && n > 0 && len(items) > n {
		items = items[:n]
	}
	diag.Final = len(items)

	h.logger.Info("price comparison completed", map[string]interface{}{
		"domain":    diag.Domain,
		"queries":   len(diag.RoundSizes),
		"raw":       diag.Raw,
		"final":     diag.Final,
		"fallbacks": diag.Fallbacks,
	})

	return &Output{Items: items, Diagnostics: diag, Debug: debug}, nil
}

// collect issues queries in order until the threshold is reached or the
// queries run out.
func (h *Handler) collect(ctx context.Context, queries []string, region, currency string, prefs models.Prefs, diag *Diagnostics) ([]models.RawListing, error) {
	var raw []models.RawListing
	for _, q := range queries {
		if len(raw) >= h.config.MinResults {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		listings := h.search(ctx, q, region, currency, prefs, diag)
		diag.RoundSizes = append(diag.RoundSizes, len(listings))
		raw = append(raw, listings...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return raw, nil
}

func (h *Handler) search(ctx context.Context, query, region, currency string, prefs models.Prefs, diag *Diagnostics) []models.RawListing {
	ctx, span := h.obs.StartSpan(ctx, "compare.round", attribute.String("query", query))
	defer span.End()

	listings, err := h.source.Search(ctx, query, region, currency, prefs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		diag.ProviderErrors = append(diag.ProviderErrors, fmt.Sprintf("%s: %s", h.source.Name(), err.Error()))
		h.logger.Warn("provider search failed, continuing with no listings", map[string]interface{}{
			"provider": h.source.Name(),
			"query":    query,
			"error":    err.Error(),
		})
		return nil
	}
	span.SetAttributes(attribute.Int("listings", len(listings)))
	return listings
}

func remarshal(in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
