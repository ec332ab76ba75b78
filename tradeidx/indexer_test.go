package tradeidx

import (
	"testing"
	"time"

	"github.com/kod-network/kod/common"
	"github.com/kod-network/kod/pallet/trade"
	"github.com/kod-network/kod/runtime"
)

func acct(b byte) common.AccountId {
	var a common.AccountId
	a[31] = b
	return a
}

func TestIndexerTracksListingsBySeller(t *testing.T) {
	idx := NewIndexer()
	idx.Start()
	defer idx.Stop()

	seller := acct(1)
	idx.Submit(BlockEvents{
		BlockNumber: 1,
		Events: []runtime.Event{
			{Name: trade.EventListingCreated, Fields: map[string]interface{}{"listing_id": uint64(1), "seller": seller}},
		},
	})

	waitForCondition(t, func() bool {
		got := idx.ListingsBySeller(seller)
		return len(got) == 1 && got[0] == 1
	})
}

func TestIndexerTracksTradeLifecycleStatus(t *testing.T) {
	idx := NewIndexer()
	idx.Start()
	defer idx.Stop()

	buyer, seller := acct(2), acct(3)
	idx.Submit(BlockEvents{
		BlockNumber: 2,
		Events: []runtime.Event{
			{Name: trade.EventTradeCreated, Fields: map[string]interface{}{"trade_id": uint64(7), "buyer": buyer}},
		},
	})
	waitForCondition(t, func() bool {
		ev, ok := idx.LastEvent(7)
		return ok && ev == trade.EventTradeCreated
	})
	if got := idx.TradesByBuyer(buyer); len(got) != 1 || got[0] != 7 {
		t.Fatalf("TradesByBuyer = %v, want [7]", got)
	}

	idx.Submit(BlockEvents{
		BlockNumber: 3,
		Events: []runtime.Event{
			{Name: trade.EventTradeAccepted, Fields: map[string]interface{}{"trade_id": uint64(7), "seller": seller}},
		},
	})
	waitForCondition(t, func() bool {
		ev, ok := idx.LastEvent(7)
		return ok && ev == trade.EventTradeAccepted
	})
	if got := idx.TradesBySeller(seller); len(got) != 1 || got[0] != 7 {
		t.Fatalf("TradesBySeller = %v, want [7]", got)
	}
}

func TestIndexerLastEventUnknownTrade(t *testing.T) {
	idx := NewIndexer()
	if _, ok := idx.LastEvent(999); ok {
		t.Fatal("expected no status for a trade never submitted")
	}
}

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
