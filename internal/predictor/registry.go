package predictor

import (
	"time"

	domsvc "GoldPulse/internal/domain/service"
	"GoldPulse/pkg/logger"
)

// Tier prior weights. The ensemble renormalizes over whichever tiers
// actually contribute, so an unregistered tier needs no special casing.
const (
	WeightTechnical   = 0.3
	WeightStatistical = 0.4
	WeightDeep        = 0.3
)

// RegistryConfig selects which tiers to attempt at startup.
type RegistryConfig struct {
	Horizon           time.Duration
	StatisticalWindow int
	ModelServiceURL   string
	ModelTimeout      time.Duration
}

// Build constructs every tier that can run in this deployment. Tiers whose
// capability check fails are skipped, not fatal; an empty registry means
// every prediction round abstains.
func Build(cfg RegistryConfig, log *logger.Logger) []domsvc.Predictor {
	preds := []domsvc.Predictor{
		NewTechnical(cfg.Horizon, WeightTechnical),
		NewStatistical(cfg.Horizon, WeightStatistical, cfg.StatisticalWindow),
	}

	if deep, err := NewDeep(cfg.ModelServiceURL, cfg.ModelTimeout, cfg.Horizon, WeightDeep); err != nil {
		log.Warn("deep tier unavailable", logger.Error(err))
	} else {
		preds = append(preds, deep)
	}

	names := make([]string, len(preds))
	for i, p := range preds {
		names[i] = p.Name()
	}
	log.Info("predictor registry built", logger.Strings("tiers", names))
	return preds
}
