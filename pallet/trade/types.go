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

package trade

import (
	"errors"
	"math/big"

	"github.com/kod-network/kod/common"
)

// ListingStatus is a listing's lifecycle state.
type ListingStatus uint8

const (
	ListingActive ListingStatus = iota
	ListingSold
	ListingCancelled
	ListingCompleted
)

// TradeStatus is a trade's lifecycle state.
type TradeStatus uint8

const (
	TradePendingSellerConfirm TradeStatus = iota
	TradeAwaitingPayment
	TradePaymentSent
	TradeEscrow
	TradeCompleted
	TradeDisputed
	TradeRefunded
)

// ClauseType enumerates the kinds of contract clause a listing/trade may
// reference; the chain stores only the type tag and a params hash, never
// clause text.
type ClauseType uint8

const (
	ClauseWarranty ClauseType = iota
	ClauseReturnPolicy
	ClauseDeliveryWindow
	ClausePenalty
	ClauseInspectionPeriod
	ClauseCustom
)

// TestResult is one diagnostic test's outcome.
type TestResult uint8

const (
	TestPassed TestResult = iota
	TestFailed
	TestSkipped
)

// Bound constants. Carried as package vars rather than untyped consts so
// chainspec can override them, per spec.md Design Note #4.
var (
	MaxClauseTypes      = 20
	MaxMerkleProofDepth = 16
	MaxDiagnosticTests  = 16
	MaxContractBlobLen  = 8192
	MaxKeyEnvelopeLen   = 256
)

// ClauseEntry is one stored (type, params commitment) pair.
type ClauseEntry struct {
	Type       ClauseType
	ParamsHash common.Hash
}

// Listing is a seller's open offer.
type Listing struct {
	ID                    uint64
	Seller                common.AccountId
	Price                 *big.Int
	Bond                  *big.Int
	ConditionsRoot        common.Hash
	IpfsCidHash           *common.Hash
	DeviceAttestationHash *common.Hash
	AcceptsExternal       bool
	ClauseTypes           []ClauseType
	TlPrice               uint64 // fiat minor units; 0 => pure token trade
	SellerIbanHash        *common.Hash
	Status                ListingStatus
	CreatedAt             uint64
}

// IsFiatRail reports whether this listing settles in fiat off-chain.
func (l *Listing) IsFiatRail() bool { return l.TlPrice > 0 }

// Trade is one buyer/seller engagement against a Listing.
type Trade struct {
	ID                      uint64
	ListingID               uint64
	Buyer                   common.AccountId
	Seller                  common.AccountId
	Price                   *big.Int
	BuyerBond               *big.Int
	SellerBond              *big.Int
	TlPrice                 uint64
	SellerIbanHash          *common.Hash
	BuyerIbanHash           *common.Hash
	ContractHash            common.Hash
	DeliveryAttestationHash *common.Hash
	FinalHash               *common.Hash
	Status                  TradeStatus
	CreatedAt               uint64

	EncryptedContract []byte
	Clauses           []ClauseEntry
}

// IsFiatRail reports whether this trade settles in fiat off-chain.
func (t *Trade) IsFiatRail() bool { return t.TlPrice > 0 }

// EscrowAmount is the amount the buyer has reserved for this trade:
// buyer_bond alone for fiat-rail trades, price+buyer_bond for token-rail.
func (t *Trade) EscrowAmount() *big.Int {
	if t.IsFiatRail() {
		return new(big.Int).Set(t.BuyerBond)
	}
	return new(big.Int).Add(t.Price, t.BuyerBond)
}

// ProofRecord is one stored Merkle dispute-evidence submission.
type ProofRecord struct {
	ConditionHash common.Hash
	Submitter     common.AccountId
	Block         uint64
}

// DiagnosticReport is the aggregate device-diagnostics summary for a trade.
type DiagnosticReport struct {
	Submitter              common.AccountId
	DeviceModelHash        common.Hash
	DeviceManufacturerHash common.Hash
	OsHash                 common.Hash
	Passed, Failed, Total  int
	Score                  int // 0-100
	ReportHash             common.Hash
	SubmittedAt            uint64
}

// DiagnosticTestEntry is one per-test result row under a trade's report.
type DiagnosticTestEntry struct {
	TestIDHash common.Hash
	Result     TestResult
	DetailHash common.Hash
}

// Error taxonomy, named per spec.md §7.
var (
	// State-machine violations
	ErrInvalidStatus            = errors.New("trade: invalid status for this operation")
	ErrNotPendingSellerConfirm  = errors.New("trade: not in PendingSellerConfirm")
	ErrNotAwaitingPayment       = errors.New("trade: not in AwaitingPayment")
	ErrNotAwaitingOrPaymentSent = errors.New("trade: not in AwaitingPayment or PaymentSent")
	ErrTradeAlreadyCompleted    = errors.New("trade: already completed")
	ErrTradeInDispute           = errors.New("trade: already in dispute")
	ErrNotKodTrade              = errors.New("trade: not a token-rail trade")
	ErrNotTlTrade               = errors.New("trade: not a fiat-rail trade")

	// Authorization
	ErrNotAuthorized       = errors.New("trade: caller not authorized for this operation")
	ErrCannotBuyOwnListing = errors.New("trade: seller cannot purchase their own listing")

	// Resource
	ErrInsufficientBalance = errors.New("trade: insufficient balance")
	ErrInsufficientBond    = errors.New("trade: bond below minimum")
	ErrTooManyListings     = errors.New("trade: too many open listings for this account")

	// Lookup
	ErrListingNotFound  = errors.New("trade: listing not found")
	ErrTradeNotFound    = errors.New("trade: trade not found")
	ErrListingNotActive = errors.New("trade: listing not active")

	// Commitment/crypto
	ErrInvalidMerkleProof          = errors.New("trade: merkle proof does not verify against conditions root")
	ErrProofAlreadySubmitted       = errors.New("trade: condition proof already submitted at this index")
	ErrMerkleProofTooDeep          = errors.New("trade: merkle proof exceeds maximum depth")
	ErrInvalidDeviceSignature      = errors.New("trade: invalid device attestation signature")
	ErrMissingDeviceAttestation    = errors.New("trade: listing has no device attestation")
	ErrDiagnosticsAlreadySubmitted = errors.New("trade: diagnostics already submitted for this trade")

	// Policy
	ErrKodOnlyModeActive = errors.New("trade: KOD-only mode is active")
	ErrTradingIsPaused   = errors.New("trade: trading is paused")
	ErrIbanHashRequired  = errors.New("trade: seller IBAN hash required for fiat-rail listings")
	ErrInvalidTlPrice    = errors.New("trade: invalid fiat price")
	ErrInvalidRate       = errors.New("trade: invalid KOD/TL rate")

	// Bounds
	ErrDeviceDataTooLarge     = errors.New("trade: device attestation data too large")
	ErrIpfsCidTooLong         = errors.New("trade: IPFS CID too long")
	ErrTooManyDiagnosticTests = errors.New("trade: too many diagnostic tests")
	ErrTooManyClauses         = errors.New("trade: too many contract clauses")
	ErrContractDataTooLarge   = errors.New("trade: encrypted contract blob too large")
	ErrEncryptionKeyTooLarge  = errors.New("trade: encryption key envelope too large")
)

// Event names this pallet emits.
const (
	EventListingCreated         = "ListingCreated"
	EventDeviceAttestationAdded = "DeviceAttestationAdded"
	EventListingCancelled       = "ListingCancelled"
	EventTradeCreated           = "TradeCreated"
	EventTradeAccepted          = "TradeAccepted"
	EventTradeRejected          = "TradeRejected"
	EventPaymentSent            = "PaymentSent"
	EventTlPaymentConfirmed     = "TlPaymentConfirmed"
	EventTradeCompleted         = "TradeCompleted"
	EventDisputeOpened          = "DisputeOpened"
	EventDisputeResolved        = "DisputeResolved"
	EventRefunded               = "Refunded"
	EventMerkleProofVerified    = "MerkleProofVerified"
	EventDiagnosticsSubmitted   = "DiagnosticsSubmitted"
	EventKodOnlyModeActivated   = "KodOnlyModeActivated"
)

// Call names this pallet registers in the runtime dispatch table.
const (
	CallCreateListing        = "trade.create_listing"
	CallCancelListing        = "trade.cancel_listing"
	CallPurchase             = "trade.purchase"
	CallAcceptTrade          = "trade.accept_trade"
	CallRejectTrade          = "trade.reject_trade"
	CallMarkPaymentSent      = "trade.mark_payment_sent"
	CallConfirmTlPayment     = "trade.confirm_tl_payment"
	CallConfirmDelivery      = "trade.confirm_delivery"
	CallOpenDispute          = "trade.open_dispute"
	CallResolveDispute       = "trade.resolve_dispute"
	CallSubmitConditionProof = "trade.submit_condition_proof"
	CallSubmitDiagnostics    = "trade.submit_diagnostics"
	CallSetKodOnlyBlock      = "trade.set_kod_only_block"
	CallSetTradingPaused     = "trade.set_trading_paused"
	CallSetKodTlRate         = "trade.set_kod_tl_rate"
)
