// internal/workers/reco/generate/handler.go
package recogenerate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "shopping-agent/internal/common/errors"
	"shopping-agent/internal/models"
	"shopping-agent/internal/runtime/tools"
	"shopping-agent/pkg/registry"
)

const (
	TaskType = registry.ToolRecoGenerate
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config    *Config
	generator Generator
	logger    Logger
}

func NewHandler(config *Config, generator Generator, log Logger) *Handler {
	return &Handler{
		config:    config,
		generator: generator,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Tool adapts Generate to the tool registry's map contract.
func (h *Handler) Tool() tools.Func {
	return func(ctx context.Context, in map[string]interface{}) (map[string]interface{}, error) {
		var input Input
		if err := remarshal(in, &input); err != nil {
			return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err))
		}
		output, err := h.Generate(ctx, &input)
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

// Generate maps the collaborator's loose items onto RecommendItem, applying
// the budget and topk limits. An empty result yields one fallback item.
// Trial runs make a single upstream attempt.
func (h *Handler) Generate(ctx context.Context, input *Input) (*Output, error) {
	goal := strings.TrimSpace(input.Goal)
	if goal == "" {
		return nil, apperrors.NewInvalidRequestError("goal is required")
	}
	topK := input.TopK
	if topK <= 0 {
		topK = h.config.DefaultTopK
	}
	if input.Trial {
		ctx = WithoutRetry(ctx)
	}

	gen, err := h.generator.Generate(ctx, goal)
	if err != nil {
		h.logger.Error("recommendation generation failed", map[string]interface{}{
			"goal":  goal,
			"error": err.Error(),
		})
		return nil, err
	}

	items := make([]models.RecommendItem, 0, topK)
	skipped := 0
	for _, raw := range gen.Listings() {
		if len(items) >= topK {
			break
		}
		item, ok := h.mapItem(raw)
		if !ok {
			skipped++
			continue
		}
		if input.Budget != nil && item.Price != nil && *item.Price > *input.Budget {
			skipped++
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		items = append(items, models.RecommendItem{
			Title:    "Top pick for " + goal,
			URL:      FallbackURL,
			Reason:   FallbackReason,
			Currency: h.config.DefaultCurrency,
			Fallback: true,
		})
	}

	h.logger.Info("recommendations generated", map[string]interface{}{
		"received": len(gen.Items),
		"skipped":  skipped,
		"returned": len(items),
	})

	return &Output{Items: items, RationaleTopK: gen.Rationale()}, nil
}

func (h *Handler) mapItem(raw models.RawListing) (models.RecommendItem, bool) {
	if raw == nil {
		return models.RecommendItem{}, false
	}
	item := models.RecommendItem{
		Title:    raw.Str(titleKeys...),
		URL:      raw.Str(urlKeys...),
		Reason:   raw.Str(reasonKeys...),
		Currency: raw.Str(currencyKeys...),
	}
	if item.Title == "" || item.URL == "" {
		return models.RecommendItem{}, false
	}
	if item.Currency == "" {
		item.Currency = h.config.DefaultCurrency
	}
	if price, ok := models.ParseAmount(raw["price"]); ok {
		item.Price = &price
	}
	return item, true
}

func remarshal(in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
