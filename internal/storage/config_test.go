package storage

import "testing"

func TestLoadDynamoConfig(t *testing.T) {
	t.Setenv("DYNAMO_MODE", "")
	t.Setenv("DYNAMO_DAILY_STATS_TABLE", "")
	cfg := LoadDynamoConfig()
	if cfg.Mode != DynamoModeNone {
		t.Errorf("Expected mode none, got %s", cfg.Mode)
	}
	if cfg.DailyStatsTable != "calldesk-daily-stats" {
		t.Errorf("Expected default table, got %s", cfg.DailyStatsTable)
	}

	t.Setenv("DYNAMO_MODE", "bogus")
	if cfg := LoadDynamoConfig(); cfg.Mode != DynamoModeNone {
		t.Errorf("Expected unknown mode to fall back to none, got %s", cfg.Mode)
	}

	t.Setenv("DYNAMO_MODE", "local")
	t.Setenv("DYNAMO_DAILY_STATS_TABLE", "stats")
	cfg = LoadDynamoConfig()
	if cfg.Mode != DynamoModeLocal || cfg.DailyStatsTable != "stats" {
		t.Errorf("Unexpected config %+v", cfg)
	}
}
