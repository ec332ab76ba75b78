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

// Package trade implements the escrow/dispute engine: listings, trades,
// dual bonds, dual payment rails, Merkle-proof dispute evidence, device
// diagnostics, and opaque encrypted contract storage. It is grounded on
// the teacher's staking package for the reserve/bond/state-transition
// shape (a mutex-guarded map of records, reserve/unreserve through the
// ledger) generalized from a single stake lifecycle to the richer
// multi-state trade machine spec.md §4.4 describes.
package trade

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/kod-network/kod/common"
	"github.com/kod-network/kod/ledger"
	"github.com/kod-network/kod/runtime"
)

// Config carries the economic constants and bounds this pallet enforces,
// per spec.md Design Note #4: configuration, not hard-coded literals.
type Config struct {
	MinBond            *big.Int
	MaxListingsPerUser uint32
	KodOnlyBlock       uint64
}

// Pallet is the trade pallet's on-chain state.
type Pallet struct {
	mu sync.RWMutex

	cfg    Config
	ledger *ledger.Ledger

	listings map[uint64]*Listing
	trades   map[uint64]*Trade

	userListingCount map[common.AccountId]uint32
	proofs           map[uint64]map[uint64]ProofRecord // tradeID -> index -> record
	proofCount       map[uint64]int
	diagReports      map[uint64]*DiagnosticReport
	diagTests        map[uint64][]DiagnosticTestEntry
	hasDiagnostics   map[uint64]bool
	encryptionKeys   map[uint64]map[common.AccountId][]byte

	nextListingID uint64
	nextTradeID   uint64

	tradingPaused        bool
	kodOnlyBlockOverride *uint64
	kodTlRate            uint64
	totalTradesCompleted uint64
	totalVolume          *big.Int

	kodOnlyActivated bool
}

// New constructs an empty trade pallet bound to led.
func New(cfg Config, led *ledger.Ledger) *Pallet {
	return &Pallet{
		cfg:              cfg,
		ledger:           led,
		listings:         make(map[uint64]*Listing),
		trades:           make(map[uint64]*Trade),
		userListingCount: make(map[common.AccountId]uint32),
		proofs:           make(map[uint64]map[uint64]ProofRecord),
		proofCount:       make(map[uint64]int),
		diagReports:      make(map[uint64]*DiagnosticReport),
		diagTests:        make(map[uint64][]DiagnosticTestEntry),
		hasDiagnostics:   make(map[uint64]bool),
		encryptionKeys:   make(map[uint64]map[common.AccountId][]byte),
		nextListingID:    1,
		nextTradeID:      1,
		kodTlRate:        100,
		totalVolume:      big.NewInt(0),
	}
}

// Name implements runtime.Pallet.
func (p *Pallet) Name() string { return "trade" }

func (p *Pallet) effectiveKodOnlyBlock() uint64 {
	if p.kodOnlyBlockOverride != nil {
		return *p.kodOnlyBlockOverride
	}
	return p.cfg.KodOnlyBlock
}

// IsKodOnlyActive reports spec.md §4.4's economic phase gate.
func (p *Pallet) IsKodOnlyActive(currentBlock uint64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return currentBlock >= p.effectiveKodOnlyBlock()
}

// OnInitialize emits KodOnlyModeActivated exactly once, the block the
// economic phase gate flips.
func (p *Pallet) OnInitialize(n common.BlockNumber, bus *runtime.EventBus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.kodOnlyActivated && n == p.effectiveKodOnlyBlock() {
		p.kodOnlyActivated = true
		bus.Emit(EventKodOnlyModeActivated, map[string]interface{}{"block_number": n})
	}
}

// OnFinalize is a no-op for this pallet; all trade state transitions are
// driven by extrinsics, not end-of-block accounting.
func (p *Pallet) OnFinalize(n common.BlockNumber, bus *runtime.EventBus) {}

// calculateBondFromTl computes the 10%-of-fiat-value bond for a fiat-rail
// listing, floored at the configured minimum bond.
func calculateBondFromTl(tlPriceMinor, rateKurus uint64, minBond *big.Int) *big.Int {
	if rateKurus == 0 {
		return new(big.Int).Set(minBond)
	}
	tlAmount := tlPriceMinor / rateKurus
	bond := new(big.Int).Div(big.NewInt(int64(tlAmount)), big.NewInt(10))
	if bond.Cmp(minBond) < 0 {
		return new(big.Int).Set(minBond)
	}
	return bond
}

// CreateListingParams is create_listing's argument set.
type CreateListingParams struct {
	Price                 *big.Int
	Bond                  *big.Int
	ConditionsRoot        common.Hash
	IpfsCidHash           *common.Hash
	DeviceAttestationHash *common.Hash
	AcceptsExternal       bool
	ClauseTypes           []ClauseType
	TlPrice               uint64
	SellerIbanHash        *common.Hash
}

// CreateListing implements spec.md §4.4's create_listing.
func (p *Pallet) CreateListing(seller common.AccountId, params CreateListingParams, currentBlock, now uint64) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tradingPaused {
		return 0, ErrTradingIsPaused
	}
	if currentBlock >= p.effectiveKodOnlyBlock() && params.AcceptsExternal {
		return 0, ErrKodOnlyModeActive
	}
	if params.TlPrice > 0 && params.SellerIbanHash == nil {
		return 0, ErrIbanHashRequired
	}
	if len(params.ClauseTypes) > MaxClauseTypes {
		return 0, ErrTooManyClauses
	}
	if p.userListingCount[seller] >= p.cfg.MaxListingsPerUser {
		return 0, ErrTooManyListings
	}

	var effectiveBond *big.Int
	if params.TlPrice > 0 {
		effectiveBond = calculateBondFromTl(params.TlPrice, p.kodTlRate, p.cfg.MinBond)
	} else {
		effectiveBond = new(big.Int).Set(params.Bond)
	}
	if effectiveBond.Cmp(p.cfg.MinBond) < 0 {
		return 0, ErrInsufficientBond
	}

	if err := p.ledger.Reserve(seller, effectiveBond); err != nil {
		return 0, ErrInsufficientBalance
	}

	id := p.nextListingID
	p.nextListingID++
	listing := &Listing{
		ID:                    id,
		Seller:                seller,
		Price:                 new(big.Int).Set(params.Price),
		Bond:                  effectiveBond,
		ConditionsRoot:        params.ConditionsRoot,
		IpfsCidHash:           params.IpfsCidHash,
		DeviceAttestationHash: params.DeviceAttestationHash,
		AcceptsExternal:       params.AcceptsExternal,
		ClauseTypes:           append([]ClauseType(nil), params.ClauseTypes...),
		TlPrice:               params.TlPrice,
		SellerIbanHash:        params.SellerIbanHash,
		Status:                ListingActive,
		CreatedAt:             now,
	}
	p.listings[id] = listing
	p.userListingCount[seller]++

	return id, nil
}

// CancelListing implements cancel_listing.
func (p *Pallet) CancelListing(seller common.AccountId, listingID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	listing, ok := p.listings[listingID]
	if !ok {
		return ErrListingNotFound
	}
	if listing.Seller != seller {
		return ErrNotAuthorized
	}
	if listing.Status != ListingActive {
		return ErrListingNotActive
	}

	if err := p.ledger.Unreserve(seller, listing.Bond); err != nil {
		return fmt.Errorf("trade: unreserve on cancel: %w", err)
	}
	listing.Status = ListingCancelled
	p.userListingCount[seller]--
	return nil
}

// Purchase implements spec.md §4.4's purchase.
func (p *Pallet) Purchase(buyer common.AccountId, listingID uint64, buyerBond *big.Int, buyerIbanHash *common.Hash, currentBlock uint64) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tradingPaused {
		return 0, ErrTradingIsPaused
	}
	listing, ok := p.listings[listingID]
	if !ok {
		return 0, ErrListingNotFound
	}
	if listing.Status != ListingActive {
		return 0, ErrListingNotActive
	}
	if listing.Seller == buyer {
		return 0, ErrCannotBuyOwnListing
	}

	fiat := listing.IsFiatRail()
	var escrow *big.Int
	if fiat {
		escrow = new(big.Int).Set(buyerBond)
	} else {
		escrow = new(big.Int).Add(listing.Price, buyerBond)
	}
	if err := p.ledger.Reserve(buyer, escrow); err != nil {
		return 0, ErrInsufficientBalance
	}

	id := p.nextTradeID
	p.nextTradeID++
	ch := contractHash(listing.ConditionsRoot, buyer, currentBlock)

	t := &Trade{
		ID:             id,
		ListingID:      listingID,
		Buyer:          buyer,
		Seller:         listing.Seller,
		Price:          new(big.Int).Set(listing.Price),
		BuyerBond:      new(big.Int).Set(buyerBond),
		SellerBond:     new(big.Int).Set(listing.Bond),
		TlPrice:        listing.TlPrice,
		SellerIbanHash: listing.SellerIbanHash,
		BuyerIbanHash:  buyerIbanHash,
		ContractHash:   ch,
		Status:         TradePendingSellerConfirm,
		CreatedAt:      currentBlock,
	}
	p.trades[id] = t
	listing.Status = ListingSold

	return id, nil
}

// AcceptTrade implements accept_trade.
func (p *Pallet) AcceptTrade(seller common.AccountId, tradeID uint64, encryptedContract []byte, buyerEncKey, sellerEncKey []byte, clauses []ClauseEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.trades[tradeID]
	if !ok {
		return ErrTradeNotFound
	}
	if t.Seller != seller {
		return ErrNotAuthorized
	}
	if t.Status != TradePendingSellerConfirm {
		return ErrNotPendingSellerConfirm
	}
	if len(encryptedContract) > MaxContractBlobLen {
		return ErrContractDataTooLarge
	}
	if len(buyerEncKey) > MaxKeyEnvelopeLen || len(sellerEncKey) > MaxKeyEnvelopeLen {
		return ErrEncryptionKeyTooLarge
	}
	if len(clauses) > MaxClauseTypes {
		return ErrTooManyClauses
	}

	if len(encryptedContract) > 0 {
		t.EncryptedContract = encryptedContract
	}
	if len(clauses) > 0 {
		t.Clauses = append([]ClauseEntry(nil), clauses...)
	}
	if len(buyerEncKey) > 0 || len(sellerEncKey) > 0 {
		keys := p.encryptionKeys[tradeID]
		if keys == nil {
			keys = make(map[common.AccountId][]byte)
			p.encryptionKeys[tradeID] = keys
		}
		if len(buyerEncKey) > 0 {
			keys[t.Buyer] = buyerEncKey
		}
		if len(sellerEncKey) > 0 {
			keys[t.Seller] = sellerEncKey
		}
	}

	if t.IsFiatRail() {
		t.Status = TradeAwaitingPayment
	} else {
		t.Status = TradeEscrow
	}
	return nil
}

// RejectTrade implements reject_trade.
func (p *Pallet) RejectTrade(seller common.AccountId, tradeID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.trades[tradeID]
	if !ok {
		return ErrTradeNotFound
	}
	if t.Seller != seller {
		return ErrNotAuthorized
	}
	if t.Status != TradePendingSellerConfirm {
		return ErrNotPendingSellerConfirm
	}

	if err := p.ledger.Unreserve(t.Buyer, t.EscrowAmount()); err != nil {
		return fmt.Errorf("trade: unreserve on reject: %w", err)
	}
	t.Status = TradeRefunded

	if listing, ok := p.listings[t.ListingID]; ok {
		listing.Status = ListingActive
	}
	return nil
}

// MarkPaymentSent implements mark_payment_sent.
func (p *Pallet) MarkPaymentSent(buyer common.AccountId, tradeID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.trades[tradeID]
	if !ok {
		return ErrTradeNotFound
	}
	if t.Buyer != buyer {
		return ErrNotAuthorized
	}
	if !t.IsFiatRail() {
		return ErrNotTlTrade
	}
	if t.Status != TradeAwaitingPayment {
		return ErrNotAwaitingPayment
	}
	t.Status = TradePaymentSent
	return nil
}

// ConfirmTlPayment implements confirm_tl_payment.
func (p *Pallet) ConfirmTlPayment(seller common.AccountId, tradeID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.trades[tradeID]
	if !ok {
		return ErrTradeNotFound
	}
	if t.Seller != seller {
		return ErrNotAuthorized
	}
	if !t.IsFiatRail() {
		return ErrNotTlTrade
	}
	if t.Status != TradeAwaitingPayment && t.Status != TradePaymentSent {
		return ErrNotAwaitingOrPaymentSent
	}

	if err := p.ledger.Unreserve(t.Buyer, t.BuyerBond); err != nil {
		return fmt.Errorf("trade: unreserve buyer bond: %w", err)
	}
	if err := p.ledger.Unreserve(t.Seller, t.SellerBond); err != nil {
		return fmt.Errorf("trade: unreserve seller bond: %w", err)
	}
	t.Status = TradeCompleted
	if listing, ok := p.listings[t.ListingID]; ok {
		listing.Status = ListingCompleted
	}
	p.totalTradesCompleted++
	return nil
}

// ConfirmDelivery implements confirm_delivery (token rail only).
func (p *Pallet) ConfirmDelivery(buyer common.AccountId, tradeID uint64, deliveryAttestationHash *common.Hash) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.trades[tradeID]
	if !ok {
		return ErrTradeNotFound
	}
	if t.Buyer != buyer {
		return ErrNotAuthorized
	}
	if t.IsFiatRail() {
		return ErrNotKodTrade
	}
	if t.Status != TradeEscrow {
		return ErrInvalidStatus
	}

	var diagHash *common.Hash
	if report, ok := p.diagReports[tradeID]; ok {
		h := report.ReportHash
		diagHash = &h
	}
	fh := finalHash(t.ContractHash, deliveryAttestationHash, diagHash)

	if err := p.ledger.Unreserve(buyer, t.EscrowAmount()); err != nil {
		return fmt.Errorf("trade: unreserve buyer escrow: %w", err)
	}
	if err := p.ledger.Transfer(buyer, t.Seller, t.Price, ledger.KeepAlive); err != nil {
		return fmt.Errorf("trade: price transfer: %w", err)
	}
	if err := p.ledger.Unreserve(t.Seller, t.SellerBond); err != nil {
		return fmt.Errorf("trade: unreserve seller bond: %w", err)
	}

	t.DeliveryAttestationHash = deliveryAttestationHash
	t.FinalHash = &fh
	t.Status = TradeCompleted
	if listing, ok := p.listings[t.ListingID]; ok {
		listing.Status = ListingCompleted
	}
	p.totalTradesCompleted++
	p.totalVolume.Add(p.totalVolume, t.Price)
	return nil
}

// OpenDispute implements open_dispute; valid from Escrow, AwaitingPayment,
// or PaymentSent, per the latest-revision instruction (spec.md Open
// Question resolution, see DESIGN.md).
func (p *Pallet) OpenDispute(caller common.AccountId, tradeID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.trades[tradeID]
	if !ok {
		return ErrTradeNotFound
	}
	if t.Buyer != caller && t.Seller != caller {
		return ErrNotAuthorized
	}
	switch t.Status {
	case TradeEscrow, TradeAwaitingPayment, TradePaymentSent:
	default:
		return ErrInvalidStatus
	}
	t.Status = TradeDisputed
	return nil
}

// ResolveDispute implements resolve_dispute (root origin only).
func (p *Pallet) ResolveDispute(tradeID uint64, buyerWins bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.trades[tradeID]
	if !ok {
		return ErrTradeNotFound
	}
	if t.Status != TradeDisputed {
		return ErrInvalidStatus
	}

	if buyerWins {
		if err := p.ledger.Unreserve(t.Buyer, t.EscrowAmount()); err != nil {
			return fmt.Errorf("trade: unreserve buyer escrow: %w", err)
		}
		if err := p.ledger.RepatriateReserved(t.Seller, t.Buyer, t.SellerBond, false); err != nil {
			return fmt.Errorf("trade: repatriate seller bond: %w", err)
		}
		t.Status = TradeRefunded
	} else {
		if err := p.ledger.Unreserve(t.Buyer, t.EscrowAmount()); err != nil {
			return fmt.Errorf("trade: unreserve buyer escrow: %w", err)
		}
		owed := new(big.Int).Add(t.Price, t.BuyerBond)
		if err := p.ledger.Transfer(t.Buyer, t.Seller, owed, ledger.AllowDeath); err != nil {
			return fmt.Errorf("trade: transfer price+bond to seller: %w", err)
		}
		if err := p.ledger.Unreserve(t.Seller, t.SellerBond); err != nil {
			return fmt.Errorf("trade: unreserve seller bond: %w", err)
		}
		t.Status = TradeCompleted
	}
	return nil
}

// SubmitConditionProof implements submit_condition_proof.
func (p *Pallet) SubmitConditionProof(caller common.AccountId, tradeID uint64, conditionHash common.Hash, proof []common.Hash, proofLen int, index uint64, currentBlock uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.trades[tradeID]
	if !ok {
		return ErrTradeNotFound
	}
	if t.Buyer != caller && t.Seller != caller {
		return ErrNotAuthorized
	}
	if t.Status != TradeDisputed {
		return ErrInvalidStatus
	}
	if proofLen > MaxMerkleProofDepth || len(proof) > MaxMerkleProofDepth {
		return ErrMerkleProofTooDeep
	}

	if _, exists := p.proofs[tradeID][index]; exists {
		return ErrProofAlreadySubmitted
	}

	listing, ok := p.listings[t.ListingID]
	if !ok {
		return ErrListingNotFound
	}
	if !verifyMerkleProof(listing.ConditionsRoot, conditionHash, proof[:proofLen], index) {
		return ErrInvalidMerkleProof
	}

	if p.proofs[tradeID] == nil {
		p.proofs[tradeID] = make(map[uint64]ProofRecord)
	}
	p.proofs[tradeID][index] = ProofRecord{ConditionHash: conditionHash, Submitter: caller, Block: currentBlock}
	p.proofCount[tradeID]++
	return nil
}

// ProofCount returns how many condition proofs have been submitted for a trade.
func (p *Pallet) ProofCount(tradeID uint64) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.proofCount[tradeID]
}

// SubmitDiagnostics implements submit_diagnostics.
func (p *Pallet) SubmitDiagnostics(caller common.AccountId, tradeID uint64, deviceModelHash, deviceManufacturerHash, osHash common.Hash, testIDHashes []common.Hash, testResults []int, testDetails []common.Hash, reportHash common.Hash, now uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.trades[tradeID]
	if !ok {
		return ErrTradeNotFound
	}
	if t.Buyer != caller && t.Seller != caller {
		return ErrNotAuthorized
	}
	if t.Status != TradeEscrow {
		return ErrInvalidStatus
	}
	if p.hasDiagnostics[tradeID] {
		return ErrDiagnosticsAlreadySubmitted
	}
	if len(testIDHashes) != len(testResults) || len(testResults) != len(testDetails) {
		return fmt.Errorf("trade: diagnostics arrays must be equal length")
	}
	if len(testIDHashes) > MaxDiagnosticTests {
		return ErrTooManyDiagnosticTests
	}

	entries := make([]DiagnosticTestEntry, len(testIDHashes))
	passed, failed := 0, 0
	for i := range testIDHashes {
		var result TestResult
		switch testResults[i] {
		case 1:
			result = TestPassed
			passed++
		case 0:
			result = TestFailed
			failed++
		default:
			result = TestSkipped
		}
		entries[i] = DiagnosticTestEntry{TestIDHash: testIDHashes[i], Result: result, DetailHash: testDetails[i]}
	}
	total := len(testIDHashes)
	score := 0
	if total > 0 {
		score = (passed * 100) / total
	}

	p.diagTests[tradeID] = entries
	p.diagReports[tradeID] = &DiagnosticReport{
		Submitter:              caller,
		DeviceModelHash:        deviceModelHash,
		DeviceManufacturerHash: deviceManufacturerHash,
		OsHash:                 osHash,
		Passed:                 passed,
		Failed:                 failed,
		Total:                  total,
		Score:                  score,
		ReportHash:             reportHash,
		SubmittedAt:            now,
	}
	p.hasDiagnostics[tradeID] = true
	return nil
}

// SetKodOnlyBlock implements set_kod_only_block (root only).
func (p *Pallet) SetKodOnlyBlock(value uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kodOnlyBlockOverride = &value
}

// SetTradingPaused implements set_trading_paused (root only).
func (p *Pallet) SetTradingPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tradingPaused = paused
}

// SetKodTlRate implements set_kod_tl_rate (root only).
func (p *Pallet) SetKodTlRate(rateKurus uint64) error {
	if rateKurus == 0 {
		return ErrInvalidRate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kodTlRate = rateKurus
	return nil
}

// Listing returns a copy of the listing's current state, for read-only callers.
func (p *Pallet) Listing(id uint64) (Listing, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	l, ok := p.listings[id]
	if !ok {
		return Listing{}, false
	}
	return *l, true
}

// Trade returns a copy of the trade's current state, for read-only callers.
func (p *Pallet) Trade(id uint64) (Trade, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.trades[id]
	if !ok {
		return Trade{}, false
	}
	return *t, true
}

// TotalTradesCompleted returns the running completed-trade counter.
func (p *Pallet) TotalTradesCompleted() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalTradesCompleted
}

// TotalVolume returns the cumulative token-rail trade volume.
func (p *Pallet) TotalVolume() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Set(p.totalVolume)
}
