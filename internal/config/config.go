// Package config loads the round engine's environment-driven settings,
// following the teacher's requireEnv/getEnvOrDefault pattern from
// cmd/engine/main.go rather than a flag or viper-style framework.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
)

// Config holds every environment-derived setting the round engine needs to
// boot: its database DSN, the DPoS constants, the reward schedule, and the
// HTTP surface's auth/listen settings.
type Config struct {
	DatabaseURL string

	ActiveDelegates int
	DposV2First     uint64

	// RewardSchedule maps the first height a reward tier applies from to
	// the reward amount in satoshis for that tier and every subsequent
	// height until the next tier. Loaded from REWARD_SCHEDULE as
	// "height:btc,height:btc,...", e.g. "1:0.00000000,1451521:5.00000000".
	RewardSchedule []RewardTier

	APIAuthToken string
	Port         string
}

// RewardTier is one entry of the reward schedule, already coerced from its
// float BTC source representation to exact integer satoshis.
type RewardTier struct {
	FromHeight uint64
	Satoshis   int64
}

// Load reads and validates every setting from the environment. Required
// values that are missing cause the process to exit via requireEnv,
// matching the teacher's fail-fast boot pattern.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:  requireEnv("DATABASE_URL"),
		APIAuthToken: os.Getenv("API_AUTH_TOKEN"),
		Port:         getEnvOrDefault("PORT", "5339"),
	}

	activeDelegates, err := strconv.Atoi(getEnvOrDefault("ACTIVE_DELEGATES", "101"))
	if err != nil || activeDelegates <= 0 {
		return Config{}, fmt.Errorf("config: ACTIVE_DELEGATES must be a positive integer, got %q", os.Getenv("ACTIVE_DELEGATES"))
	}
	cfg.ActiveDelegates = activeDelegates

	dposV2First, err := strconv.ParseUint(getEnvOrDefault("DPOSV2_FIRST_BLOCK", "0"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("config: DPOSV2_FIRST_BLOCK must be a non-negative integer: %w", err)
	}
	cfg.DposV2First = dposV2First

	schedule, err := parseRewardSchedule(getEnvOrDefault("REWARD_SCHEDULE", "1:0.00000000"))
	if err != nil {
		return Config{}, err
	}
	cfg.RewardSchedule = schedule

	return cfg, nil
}

// parseRewardSchedule turns "height:btc,height:btc,..." into a sorted list
// of RewardTier. The float-to-satoshi conversion happens exactly once,
// right here, via btcutil.NewAmount — the single declared conversion
// point spec.md §9 asks for when a data source hands back a float reward
// figure instead of an integer.
func parseRewardSchedule(raw string) ([]RewardTier, error) {
	var tiers []RewardTier
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("config: malformed REWARD_SCHEDULE entry %q, want height:btc", entry)
		}
		height, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: malformed REWARD_SCHEDULE height in %q: %w", entry, err)
		}
		btcFloat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("config: malformed REWARD_SCHEDULE amount in %q: %w", entry, err)
		}
		amount, err := btcutil.NewAmount(btcFloat)
		if err != nil {
			return nil, fmt.Errorf("config: reward amount out of range in %q: %w", entry, err)
		}
		tiers = append(tiers, RewardTier{FromHeight: height, Satoshis: int64(amount)})
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("config: REWARD_SCHEDULE has no entries")
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].FromHeight <= tiers[i-1].FromHeight {
			return nil, fmt.Errorf("config: REWARD_SCHEDULE heights must be strictly increasing")
		}
	}
	return tiers, nil
}

// RewardAt returns the reward in effect at height, per the loaded schedule.
func (c Config) RewardAt(height uint64) int64 {
	reward := c.RewardSchedule[0].Satoshis
	for _, tier := range c.RewardSchedule {
		if height < tier.FromHeight {
			break
		}
		reward = tier.Satoshis
	}
	return reward
}

// requireEnv reads a required environment variable and exits if unset.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or fallback for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
