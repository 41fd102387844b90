package predict

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"pricelens/internal/llm"
	"pricelens/internal/observability"
	"pricelens/internal/storage"
)

// Service runs the prediction pipeline: prompt building, the upstream call
// and response normalization. It holds no per-request state; concurrent
// requests are fully independent.
type Service struct {
	generator llm.Generator
	store     storage.Store // nil disables history
	now       func() time.Time
}

func NewService(generator llm.Generator, store storage.Store) *Service {
	return &Service{
		generator: generator,
		store:     store,
		now:       time.Now,
	}
}

// Predict produces a price estimate for the validated specs text. Upstream
// transport and configuration failures are returned as-is for the HTTP layer
// to map; malformed upstream output is absorbed by fallback synthesis and
// never becomes an error.
func (s *Service) Predict(ctx context.Context, specs string) (*Result, error) {
	prompt := BuildPrompt(specs)

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result := Normalize(specs, raw, s.now())
	observability.PredictionsTotal.WithLabelValues(string(result.EstimateSource)).Inc()

	if s.store != nil {
		record := &storage.PredictionRecord{
			Specs:             specs,
			Product:           result.Product,
			PredictedPriceINR: result.PredictedPriceINR,
			Source:            string(result.EstimateSource),
			CreatedAt:         result.GeneratedAt,
		}
		if err := s.store.SavePrediction(record); err != nil {
			log.Warn().Err(err).Msg("failed to save prediction history")
		}
	}

	return &result, nil
}
