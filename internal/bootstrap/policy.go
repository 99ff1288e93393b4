package bootstrap

import (
	"github.com/magpieiq/backend/internal/application/ingest"
	"github.com/magpieiq/backend/internal/infrastructure/config"
)

// SyncPolicies builds the run policies from the sync configuration section.
func SyncPolicies(cfg config.SyncConfig) (ingest.Config, error) {
	identity, err := ingest.ParseIdentityMode(cfg.IdentityMode)
	if err != nil {
		return ingest.Config{}, err
	}
	status, err := ingest.ParseStatusStrategy(cfg.StatusStrategy)
	if err != nil {
		return ingest.Config{}, err
	}
	placement, err := ingest.ParsePlacementPolicy(cfg.Placement, cfg.PlacementWindow, cfg.PlacementDays)
	if err != nil {
		return ingest.Config{}, err
	}
	return ingest.Config{
		Identity:   identity,
		Status:     status,
		Placement:  placement,
		Multiplier: ingest.IntRange{Min: cfg.MultiplierMin, Max: cfg.MultiplierMax},
		ItemCount:  ingest.IntRange{Min: cfg.ItemCountMin, Max: cfg.ItemCountMax},
		Quantity:   ingest.IntRange{Min: cfg.QuantityMin, Max: cfg.QuantityMax},
	}, nil
}
