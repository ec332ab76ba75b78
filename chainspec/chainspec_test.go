package chainspec

import (
	"testing"

	"github.com/kod-network/kod/common"
)

func TestByNameDefaultsToMainnet(t *testing.T) {
	spec, err := ByName("")
	if err != nil {
		t.Fatalf("ByName(\"\"): %v", err)
	}
	if spec.Name != "mainnet" {
		t.Fatalf("spec.Name = %q, want mainnet", spec.Name)
	}
}

func TestByNameRejectsUnknownChain(t *testing.T) {
	if _, err := ByName("nope"); err == nil {
		t.Fatal("expected error for unknown chain name")
	}
}

func TestMainnetConstantsMatchCanonicalValues(t *testing.T) {
	if got := Mainnet.HalvingInterval; got != 10_500_000 {
		t.Fatalf("HalvingInterval = %d, want 10500000", got)
	}
	if got := Mainnet.KodOnlyBlock; got != 21_000_000 {
		t.Fatalf("KodOnlyBlock = %d, want 21000000", got)
	}
	want := kod(50)
	if Mainnet.InitialReward.Cmp(want) != 0 {
		t.Fatalf("InitialReward = %s, want %s", Mainnet.InitialReward, want)
	}
}

func TestRewardConfigCarriesReserveAccount(t *testing.T) {
	var acct common.AccountId
	acct[0] = 0x01
	cfg := Mainnet.RewardConfig(acct)
	if cfg.ReserveAccount != acct {
		t.Fatal("RewardConfig did not carry through the reserve account")
	}
	if cfg.InitialReward.Cmp(Mainnet.InitialReward) != 0 {
		t.Fatal("RewardConfig.InitialReward should match the spec's InitialReward")
	}
}

func TestTradeConfigCarriesBounds(t *testing.T) {
	cfg := Local.TradeConfig()
	if cfg.KodOnlyBlock != Local.KodOnlyBlock {
		t.Fatal("TradeConfig.KodOnlyBlock mismatch")
	}
	if cfg.MinBond.Cmp(Local.MinTradeBond) != 0 {
		t.Fatal("TradeConfig.MinBond mismatch")
	}
}
