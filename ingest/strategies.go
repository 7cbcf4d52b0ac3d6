package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/archivist-dev/archivist/model"
)

// DefaultStrategiesEnvVar is where StrategiesFromEnv looks for the
// JSON-encoded list of chunk strategies to run every ingest against.
const DefaultStrategiesEnvVar = "ARCHIVIST_CHUNK_STRATEGIES"

// StrategiesFromEnv loads the configured chunk strategies from
// ARCHIVIST_CHUNK_STRATEGIES. An unset variable yields one strategy,
// model.DefaultChunkStrategy(). A malformed value or an invalid strategy
// inside it is a ConfigError, fatal at startup, never silently defaulted
// past (§6).
func StrategiesFromEnv() ([]model.ChunkStrategy, error) {
	_ = godotenv.Load()

	raw := os.Getenv(DefaultStrategiesEnvVar)
	if raw == "" {
		return []model.ChunkStrategy{model.DefaultChunkStrategy()}, nil
	}

	var strategies []model.ChunkStrategy
	if err := json.Unmarshal([]byte(raw), &strategies); err != nil {
		return nil, model.NewConfigError(fmt.Errorf("parsing %s: %w", DefaultStrategiesEnvVar, err))
	}
	if len(strategies) == 0 {
		return nil, model.NewConfigError(fmt.Errorf("%s must list at least one strategy", DefaultStrategiesEnvVar))
	}
	for i, s := range strategies {
		if !s.Valid() {
			return nil, model.NewConfigError(fmt.Errorf("%s entry %d is invalid: child_chunk_size must be <= parent_chunk_size and overlap_percent must be in [0, 100)", DefaultStrategiesEnvVar, i))
		}
	}
	return strategies, nil
}
