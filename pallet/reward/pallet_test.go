package reward

import (
	"math/big"
	"testing"

	"github.com/kod-network/kod/common"
	"github.com/kod-network/kod/ledger"
	"github.com/kod-network/kod/runtime"
)

func acct(b byte) common.AccountId {
	var a common.AccountId
	a[31] = b
	return a
}

func newTestPallet() (*Pallet, *ledger.Ledger, common.AccountId) {
	reserve := acct(0xAA)
	led := ledger.New(big.NewInt(1000))
	led.SetFreeBalance(reserve, big.NewInt(1_000_000))
	cfg := Config{
		InitialReward:   big.NewInt(50),
		HalvingInterval: 10,
		ReserveAccount:  reserve,
	}
	return New(cfg, led, nil), led, reserve
}

func TestScheduledRewardHalvesAtBoundary(t *testing.T) {
	initial := big.NewInt(50)
	if got := ScheduledReward(initial, 9, 10); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("reward at block 9 = %s, want 50", got)
	}
	if got := ScheduledReward(initial, 10, 10); got.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("reward at block 10 = %s, want 25", got)
	}
}

func TestScheduledRewardZeroAfterMaxEra(t *testing.T) {
	initial := big.NewInt(50)
	if got := ScheduledReward(initial, 10*11, 10); got.Sign() != 0 {
		t.Fatalf("reward past era 10 = %s, want 0", got)
	}
}

func TestOnFinalizePaysPendingMinerAndEmitsEvent(t *testing.T) {
	p, led, _ := newTestPallet()
	miner := acct(1)

	err := p.Handle(&runtime.Call{
		Name:    CallSetMiner,
		Origin:  runtime.OriginNone,
		Payload: SetMinerPayload{Miner: miner},
	}, runtime.NewEventBus())
	if err != nil {
		t.Fatalf("set_miner: %v", err)
	}

	bus := runtime.NewEventBus()
	p.OnFinalize(9, bus)

	if got := led.FreeBalance(miner); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("miner balance = %s, want 50", got)
	}
	events := bus.Drain()
	if len(events) != 1 || events[0].Name != EventRewardPaid {
		t.Fatalf("events = %+v, want one RewardPaid", events)
	}
}

func TestOnFinalizeNoPendingMinerIsNoop(t *testing.T) {
	p, led, reserve := newTestPallet()
	before := led.FreeBalance(reserve)

	bus := runtime.NewEventBus()
	p.OnFinalize(1, bus)

	if len(bus.Drain()) != 0 {
		t.Fatal("expected no events when PendingMiner is absent")
	}
	if after := led.FreeBalance(reserve); after.Cmp(before) != 0 {
		t.Fatal("reserve balance must not change when no miner is pending")
	}
}

func TestOnFinalizeRespectsPause(t *testing.T) {
	p, led, _ := newTestPallet()
	miner := acct(2)
	p.Handle(&runtime.Call{Name: CallSetMiner, Origin: runtime.OriginNone, Payload: SetMinerPayload{Miner: miner}}, runtime.NewEventBus())

	if err := p.Handle(&runtime.Call{Name: CallSetRewardsPaused, Origin: runtime.OriginRoot, Payload: SetRewardsPausedPayload{Paused: true}}, runtime.NewEventBus()); err != nil {
		t.Fatalf("set_rewards_paused: %v", err)
	}

	bus := runtime.NewEventBus()
	p.OnFinalize(1, bus)
	if len(bus.Drain()) != 0 {
		t.Fatal("expected no payout while paused")
	}
	if got := led.FreeBalance(miner); got.Sign() != 0 {
		t.Fatal("miner should not have been paid while rewards are paused")
	}
}

func TestOnFinalizeHonoursRewardOverride(t *testing.T) {
	p, led, _ := newTestPallet()
	miner := acct(3)
	p.Handle(&runtime.Call{Name: CallSetMiner, Origin: runtime.OriginNone, Payload: SetMinerPayload{Miner: miner}}, runtime.NewEventBus())
	p.Handle(&runtime.Call{Name: CallSetRewardOverride, Origin: runtime.OriginRoot, Payload: SetRewardOverridePayload{Value: big.NewInt(7), HasValue: true}}, runtime.NewEventBus())

	bus := runtime.NewEventBus()
	p.OnFinalize(1, bus)

	if got := led.FreeBalance(miner); got.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("miner balance = %s, want override value 7", got)
	}
}

func TestOnFinalizeEmitsReserveExhausted(t *testing.T) {
	reserve := acct(0xAA)
	led := ledger.New(big.NewInt(0))
	led.SetFreeBalance(reserve, big.NewInt(10)) // less than the 50 reward
	cfg := Config{InitialReward: big.NewInt(50), HalvingInterval: 10, ReserveAccount: reserve}
	p := New(cfg, led, nil)

	miner := acct(4)
	p.Handle(&runtime.Call{Name: CallSetMiner, Origin: runtime.OriginNone, Payload: SetMinerPayload{Miner: miner}}, runtime.NewEventBus())

	bus := runtime.NewEventBus()
	p.OnFinalize(1, bus)

	events := bus.Drain()
	if len(events) != 1 || events[0].Name != EventReserveExhausted {
		t.Fatalf("events = %+v, want one ReserveExhausted", events)
	}
}

func TestOnFinalizeEmitsHalvingOccurredAtBoundary(t *testing.T) {
	p, _, _ := newTestPallet()
	miner := acct(5)
	p.Handle(&runtime.Call{Name: CallSetMiner, Origin: runtime.OriginNone, Payload: SetMinerPayload{Miner: miner}}, runtime.NewEventBus())

	bus := runtime.NewEventBus()
	p.OnFinalize(10, bus)

	events := bus.Drain()
	var sawHalving bool
	for _, e := range events {
		if e.Name == EventHalvingOccurred {
			sawHalving = true
		}
	}
	if !sawHalving {
		t.Fatalf("events = %+v, want a HalvingOccurred at block 10", events)
	}
}

func TestDecodeBeneficiaryDirectAccountId(t *testing.T) {
	p, _, _ := newTestPallet()
	want := acct(9)
	got, err := p.DecodeBeneficiary(want.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("decoded %x, want %x", got, want)
	}
}

func TestDecodeBeneficiaryWithoutDecoderFails(t *testing.T) {
	p, _, _ := newTestPallet()
	if _, err := p.DecodeBeneficiary([]byte("not-32-bytes")); err == nil {
		t.Fatal("expected error decoding a non-AccountId-length blob with no SS58 decoder configured")
	}
}

func TestSetMinerRejectsNonInherentOrigin(t *testing.T) {
	p, _, _ := newTestPallet()
	err := p.Handle(&runtime.Call{Name: CallSetMiner, Origin: runtime.OriginSigned, Payload: SetMinerPayload{Miner: acct(1)}}, runtime.NewEventBus())
	if err == nil {
		t.Fatal("expected error dispatching set_miner with a signed origin")
	}
}

func TestSetRewardOverrideRejectsNonRootOrigin(t *testing.T) {
	p, _, _ := newTestPallet()
	err := p.Handle(&runtime.Call{Name: CallSetRewardOverride, Origin: runtime.OriginSigned, Payload: SetRewardOverridePayload{Value: big.NewInt(1), HasValue: true}}, runtime.NewEventBus())
	if err == nil {
		t.Fatal("expected error setting reward override from a non-root origin")
	}
}
