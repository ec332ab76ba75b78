package node

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/kod-network/kod/chain"
	"github.com/kod-network/kod/chainspec"
	"github.com/kod-network/kod/common"
	"github.com/kod-network/kod/genesis"
	"github.com/kod-network/kod/miner"
	"github.com/kod-network/kod/pallet/trade"
	"github.com/kod-network/kod/runtime"
	"github.com/kod-network/kod/wallet"
)

func testNode(t *testing.T) *Node {
	t.Helper()
	spec := chainspec.Local
	total := new(big.Int).Mul(big.NewInt(1000), chainspec.Unit)
	n, err := New(Config{
		Spec:        spec,
		Genesis:     genesis.Config{TotalSupply: total, MiningReserveShare: total},
		SS58Decoder: wallet.SS58Decoder{Network: wallet.Mainnet},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(n.Close)
	return n
}

func TestNewAppliesGenesisToReserveAccount(t *testing.T) {
	n := testNode(t)
	reserve := genesis.MiningReserveAccount()
	got := n.Ledger.FreeBalance(reserve)
	want := new(big.Int).Mul(big.NewInt(1000), chainspec.Unit)
	if got.Cmp(want) != 0 {
		t.Fatalf("reserve free balance = %s, want %s", got, want)
	}
}

func TestProposePaysConfiguredBeneficiary(t *testing.T) {
	n := testNode(t)
	parent := n.BestHeader()

	var beneficiary common.AccountId
	beneficiary[31] = 7

	block, err := n.Propose(context.Background(), parent, miner.InherentData{
		Timestamp:   1,
		Beneficiary: beneficiary.Bytes(),
	}, time.Second)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if block.Header.Number != parent.Number+1 {
		t.Fatalf("header number = %d, want %d", block.Header.Number, parent.Number+1)
	}

	if err := n.Import(chain.ImportRequest{Header: block.Header, Body: block.Body}); err != nil {
		t.Fatalf("Import: %v", err)
	}

	got := n.Ledger.FreeBalance(beneficiary)
	if got.Sign() <= 0 {
		t.Fatalf("beneficiary free balance = %s, want a positive reward payout", got)
	}
}

func TestProposeActivatesKodOnlyModeThroughTradePallet(t *testing.T) {
	n := testNode(t)
	n.Trade.SetKodOnlyBlock(1)
	parent := n.BestHeader()

	block, err := n.Propose(context.Background(), parent, miner.InherentData{Timestamp: 1}, time.Second)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}

	events, ok := block.Body.([]runtime.Event)
	if !ok {
		t.Fatalf("block.Body = %T, want []runtime.Event", block.Body)
	}
	found := false
	for _, ev := range events {
		if ev.Name == trade.EventKodOnlyModeActivated {
			found = true
		}
	}
	if !found {
		t.Fatalf("events = %v, want a %s event from the trade pallet's OnInitialize hook", events, trade.EventKodOnlyModeActivated)
	}
}

func TestDispatchCreateListingIndexesEvent(t *testing.T) {
	n := testNode(t)

	var seller common.AccountId
	seller[31] = 9
	n.Ledger.AddBalance(seller, new(big.Int).Mul(big.NewInt(10), chainspec.Unit))

	call := &runtime.Call{
		Name:        trade.CallCreateListing,
		Origin:      runtime.OriginSigned,
		Signer:      seller,
		BlockNumber: 1,
		Payload: trade.CreateListingParams{
			Price: big.NewInt(100),
			Bond:  big.NewInt(100),
		},
	}
	events, err := n.Dispatch(call)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	found := false
	for _, ev := range events {
		if ev.Name == trade.EventListingCreated {
			found = true
		}
	}
	if !found {
		t.Fatalf("events = %v, want a %s event", events, trade.EventListingCreated)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if listings := n.Indexer.ListingsBySeller(seller); len(listings) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("ListingsBySeller never reported the new listing")
		}
		time.Sleep(time.Millisecond)
	}
}
