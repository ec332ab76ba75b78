package main

import (
	"testing"

	"github.com/kod-network/kod/chainspec"
)

func TestDevGenesisConfigSumsToTotalSupply(t *testing.T) {
	cfg := devGenesisConfig(chainspec.Mainnet)
	if cfg.TotalSupply.Cmp(cfg.MiningReserveShare) != 0 {
		t.Fatalf("total supply %s != mining reserve share %s", cfg.TotalSupply, cfg.MiningReserveShare)
	}
	if len(cfg.Foundation) != 0 {
		t.Fatalf("expected no foundation allocations in the dev genesis, got %d", len(cfg.Foundation))
	}
}
