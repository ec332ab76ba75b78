package genesis

import (
	"math/big"
	"testing"

	"github.com/kod-network/kod/common"
	"github.com/kod-network/kod/ledger"
)

func TestMiningReserveAccountIsDeterministic(t *testing.T) {
	a := MiningReserveAccount()
	b := MiningReserveAccount()
	if a != b {
		t.Fatal("MiningReserveAccount must be deterministic across calls")
	}
	if a.IsZero() {
		t.Fatal("MiningReserveAccount must not be the zero account")
	}
}

func TestApplyCreditsMiningReserveAndFoundation(t *testing.T) {
	led := ledger.New(big.NewInt(1))
	var foundationAcct common.AccountId
	foundationAcct[0] = 0x09

	cfg := Config{
		TotalSupply:        big.NewInt(1_000),
		MiningReserveShare: big.NewInt(900),
		Foundation: []Allocation{
			{Name: "foundation", Account: foundationAcct, Amount: big.NewInt(100)},
		},
	}
	if err := Apply(led, cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if got := led.FreeBalance(MiningReserveAccount()); got.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("mining reserve balance = %s, want 900", got)
	}
	if got := led.FreeBalance(foundationAcct); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("foundation balance = %s, want 100", got)
	}
}

func TestApplyRejectsMismatchedTotalSupply(t *testing.T) {
	led := ledger.New(big.NewInt(1))
	cfg := Config{
		TotalSupply:        big.NewInt(1_000),
		MiningReserveShare: big.NewInt(500),
	}
	if err := Apply(led, cfg); err == nil {
		t.Fatal("expected AllocationMismatchError when allocations don't sum to total supply")
	}
}
