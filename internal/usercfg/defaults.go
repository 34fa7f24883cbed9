package usercfg

import (
	"ghboard/internal/kv"
	"ghboard/internal/ratelimit"
	"ghboard/internal/remote"
)

func getDefaults() Config {
	t := true
	return Config{
		SchemaVersion: CurrentSchemaVersion,
		ClosedLimit:   remote.DefaultClosedLimit,
		Storage: StorageConfig{
			Backend: kv.BackendFile,
		},
		RateLimit: RateLimitConfig{
			WarningThreshold:     ratelimit.DefaultWarningThreshold,
			ProbeIntervalSeconds: int(ratelimit.DefaultProbeInterval.Seconds()),
		},
		CheckUpdates: &t,
	}
}
