// Copyright 2024 The kod Authors
// This file is part of the kod library.
//
// The kod library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The kod library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the kod library. If not, see <http://www.gnu.org/licenses/>.

// Package tradeidx maintains an in-memory, off-chain secondary index over
// trade pallet events: listings by seller, trades by buyer/seller, and each
// trade's last-known status. It lives in a separate package from
// pallet/trade for the same reason agentidx lives apart from agent — the
// index consumes the pallet's event stream rather than its storage
// directly, so neither package needs to import the other's lifecycle
// plumbing.
package tradeidx

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/kod-network/kod/common"
	"github.com/kod-network/kod/pallet/trade"
	"github.com/kod-network/kod/runtime"
)

// statusCacheSize bounds the trade-status cache so a long-running node's
// "last event per trade" lookup stays O(1) in memory instead of growing
// with total trade count forever.
const statusCacheSize = 100_000

// BlockEvents is one block's drained event set, the unit the indexer
// consumes — the local analogue of the core.ChainEvent agentidx
// subscribes to, adapted to KOD Chain's in-process EventBus instead of a
// transaction-log subscription.
type BlockEvents struct {
	BlockNumber common.BlockNumber
	Events      []runtime.Event
}

// Indexer is a chain-event consumer that keeps fast discovery indexes for
// RPC/CLI query paths: "listings by seller", "trades by buyer",
// "trades by seller", and a trade's last-observed status. The by-seller
// and by-buyer indexes grow with total listing/trade count (the same
// commitment spec.md's on-chain storage itself makes); the status index
// is a bounded LRU since it is a pure cache of the most recently touched
// trades, not a source of truth.
type Indexer struct {
	mu sync.RWMutex

	listingsBySeller map[common.AccountId]map[uint64]struct{}
	tradesByBuyer    map[common.AccountId]map[uint64]struct{}
	tradesBySeller   map[common.AccountId]map[uint64]struct{}
	tradeStatus      *lru.Cache

	feed chan BlockEvents
	quit chan struct{}
	wg   sync.WaitGroup
}

// NewIndexer returns an empty Indexer.
func NewIndexer() *Indexer {
	statusCache, err := lru.New(statusCacheSize)
	if err != nil {
		panic("tradeidx: lru.New with a positive fixed size cannot fail: " + err.Error())
	}
	return &Indexer{
		listingsBySeller: make(map[common.AccountId]map[uint64]struct{}),
		tradesByBuyer:    make(map[common.AccountId]map[uint64]struct{}),
		tradesBySeller:   make(map[common.AccountId]map[uint64]struct{}),
		tradeStatus:      statusCache,
		feed:             make(chan BlockEvents, 64),
		quit:             make(chan struct{}),
	}
}

// Start begins consuming submitted block events in a background goroutine.
func (idx *Indexer) Start() {
	idx.wg.Add(1)
	go idx.loop()
}

// Stop shuts down the indexer's background goroutine.
func (idx *Indexer) Stop() {
	close(idx.quit)
	idx.wg.Wait()
}

// Submit enqueues one block's drained events for indexing. Blocks if the
// internal queue is full, applying backpressure to the block author the
// way a slow subscriber would against core.ChainEvent.
func (idx *Indexer) Submit(be BlockEvents) {
	idx.feed <- be
}

func (idx *Indexer) loop() {
	defer idx.wg.Done()
	for {
		select {
		case be := <-idx.feed:
			idx.process(be)
		case <-idx.quit:
			return
		}
	}
}

func (idx *Indexer) process(be BlockEvents) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, ev := range be.Events {
		switch ev.Name {
		case trade.EventListingCreated:
			idx.indexListing(ev.Fields)
		case trade.EventTradeCreated:
			idx.indexTradeBuyer(ev.Fields)
			idx.setStatus(ev.Fields, trade.EventTradeCreated)
		case trade.EventTradeAccepted:
			idx.indexTradeSeller(ev.Fields)
			idx.setStatus(ev.Fields, trade.EventTradeAccepted)
		case trade.EventTradeRejected, trade.EventPaymentSent, trade.EventTlPaymentConfirmed,
			trade.EventTradeCompleted, trade.EventDisputeOpened, trade.EventDisputeResolved,
			trade.EventRefunded:
			idx.setStatus(ev.Fields, ev.Name)
		}
	}
}

func (idx *Indexer) indexListing(fields map[string]interface{}) {
	id, ok := fields["listing_id"].(uint64)
	if !ok {
		return
	}
	seller, ok := fields["seller"].(common.AccountId)
	if !ok {
		return
	}
	set, ok := idx.listingsBySeller[seller]
	if !ok {
		set = make(map[uint64]struct{})
		idx.listingsBySeller[seller] = set
	}
	set[id] = struct{}{}
}

func (idx *Indexer) indexTradeBuyer(fields map[string]interface{}) {
	id, ok := fields["trade_id"].(uint64)
	if !ok {
		return
	}
	buyer, ok := fields["buyer"].(common.AccountId)
	if !ok {
		return
	}
	set, ok := idx.tradesByBuyer[buyer]
	if !ok {
		set = make(map[uint64]struct{})
		idx.tradesByBuyer[buyer] = set
	}
	set[id] = struct{}{}
}

func (idx *Indexer) indexTradeSeller(fields map[string]interface{}) {
	id, ok := fields["trade_id"].(uint64)
	if !ok {
		return
	}
	seller, ok := fields["seller"].(common.AccountId)
	if !ok {
		return
	}
	set, ok := idx.tradesBySeller[seller]
	if !ok {
		set = make(map[uint64]struct{})
		idx.tradesBySeller[seller] = set
	}
	set[id] = struct{}{}
}

func (idx *Indexer) setStatus(fields map[string]interface{}, status string) {
	id, ok := fields["trade_id"].(uint64)
	if !ok {
		return
	}
	idx.tradeStatus.Add(id, status)
}

// ListingsBySeller returns the listing ids a seller has created, in no
// particular order.
func (idx *Indexer) ListingsBySeller(seller common.AccountId) []uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return keys(idx.listingsBySeller[seller])
}

// TradesByBuyer returns the trade ids a buyer has initiated.
func (idx *Indexer) TradesByBuyer(buyer common.AccountId) []uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return keys(idx.tradesByBuyer[buyer])
}

// TradesBySeller returns the trade ids a seller has accepted.
func (idx *Indexer) TradesBySeller(seller common.AccountId) []uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return keys(idx.tradesBySeller[seller])
}

// LastEvent returns the most recent status-changing event name observed
// for a trade, and whether any has been observed at all.
func (idx *Indexer) LastEvent(tradeID uint64) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	v, ok := idx.tradeStatus.Get(tradeID)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func keys(m map[uint64]struct{}) []uint64 {
	out := make([]uint64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
