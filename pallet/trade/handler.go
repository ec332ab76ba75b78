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
	"fmt"
	"math/big"

	"github.com/kod-network/kod/common"
	"github.com/kod-network/kod/runtime"
)

// Payload structs for each extrinsic/root call this pallet dispatches.
// Mirrors the teacher's sysaction per-action payload structs, one per
// call name, type-asserted inside Handle.

type CancelListingCallPayload struct{ ListingID uint64 }
type PurchaseCallPayload struct {
	ListingID     uint64
	BuyerBond     *big.Int
	BuyerIbanHash *common.Hash
}
type AcceptTradeCallPayload struct {
	TradeID           uint64
	EncryptedContract []byte
	BuyerEncKey       []byte
	SellerEncKey      []byte
	Clauses           []ClauseEntry
}
type RejectTradeCallPayload struct{ TradeID uint64 }
type MarkPaymentSentCallPayload struct{ TradeID uint64 }
type ConfirmTlPaymentCallPayload struct{ TradeID uint64 }
type ConfirmDeliveryCallPayload struct {
	TradeID                 uint64
	DeliveryAttestationHash *common.Hash
}
type OpenDisputeCallPayload struct{ TradeID uint64 }
type ResolveDisputeCallPayload struct {
	TradeID   uint64
	BuyerWins bool
}
type SubmitConditionProofCallPayload struct {
	TradeID       uint64
	ConditionHash common.Hash
	Proof         []common.Hash
	ProofLen      int
	Index         uint64
}
type SubmitDiagnosticsCallPayload struct {
	TradeID                uint64
	DeviceModelHash        common.Hash
	DeviceManufacturerHash common.Hash
	OsHash                 common.Hash
	TestIDHashes           []common.Hash
	TestResults            []int
	TestDetails            []common.Hash
	ReportHash             common.Hash
}
type SetKodOnlyBlockCallPayload struct{ Value uint64 }
type SetTradingPausedCallPayload struct{ Paused bool }
type SetKodTlRateCallPayload struct{ RateKurus uint64 }

// CanHandle implements runtime.Handler.
func (p *Pallet) CanHandle(name runtime.CallName) bool {
	switch name {
	case CallCreateListing, CallCancelListing, CallPurchase, CallAcceptTrade,
		CallRejectTrade, CallMarkPaymentSent, CallConfirmTlPayment, CallConfirmDelivery,
		CallOpenDispute, CallResolveDispute, CallSubmitConditionProof, CallSubmitDiagnostics,
		CallSetKodOnlyBlock, CallSetTradingPaused, CallSetKodTlRate:
		return true
	}
	return false
}

// Handle implements runtime.Handler, dispatching each trade extrinsic to
// its pallet method and translating the result into emitted events.
func (p *Pallet) Handle(call *runtime.Call, bus *runtime.EventBus) error {
	switch call.Name {
	case CallCreateListing:
		payload, ok := call.Payload.(CreateListingParams)
		if !ok {
			return fmt.Errorf("trade: create_listing: bad payload type %T", call.Payload)
		}
		id, err := p.CreateListing(call.Signer, payload, call.BlockNumber, call.BlockNumber)
		if err != nil {
			return err
		}
		bus.Emit(EventListingCreated, map[string]interface{}{"listing_id": id, "seller": call.Signer})
		if payload.DeviceAttestationHash != nil {
			bus.Emit(EventDeviceAttestationAdded, map[string]interface{}{"listing_id": id})
		}
		return nil

	case CallCancelListing:
		payload, ok := call.Payload.(CancelListingCallPayload)
		if !ok {
			return fmt.Errorf("trade: cancel_listing: bad payload type %T", call.Payload)
		}
		if err := p.CancelListing(call.Signer, payload.ListingID); err != nil {
			return err
		}
		bus.Emit(EventListingCancelled, map[string]interface{}{"listing_id": payload.ListingID})
		return nil

	case CallPurchase:
		payload, ok := call.Payload.(PurchaseCallPayload)
		if !ok {
			return fmt.Errorf("trade: purchase: bad payload type %T", call.Payload)
		}
		id, err := p.Purchase(call.Signer, payload.ListingID, payload.BuyerBond, payload.BuyerIbanHash, call.BlockNumber)
		if err != nil {
			return err
		}
		bus.Emit(EventTradeCreated, map[string]interface{}{"trade_id": id, "buyer": call.Signer})
		return nil

	case CallAcceptTrade:
		payload, ok := call.Payload.(AcceptTradeCallPayload)
		if !ok {
			return fmt.Errorf("trade: accept_trade: bad payload type %T", call.Payload)
		}
		if err := p.AcceptTrade(call.Signer, payload.TradeID, payload.EncryptedContract, payload.BuyerEncKey, payload.SellerEncKey, payload.Clauses); err != nil {
			return err
		}
		bus.Emit(EventTradeAccepted, map[string]interface{}{"trade_id": payload.TradeID, "seller": call.Signer})
		return nil

	case CallRejectTrade:
		payload, ok := call.Payload.(RejectTradeCallPayload)
		if !ok {
			return fmt.Errorf("trade: reject_trade: bad payload type %T", call.Payload)
		}
		if err := p.RejectTrade(call.Signer, payload.TradeID); err != nil {
			return err
		}
		bus.Emit(EventTradeRejected, map[string]interface{}{"trade_id": payload.TradeID})
		return nil

	case CallMarkPaymentSent:
		payload, ok := call.Payload.(MarkPaymentSentCallPayload)
		if !ok {
			return fmt.Errorf("trade: mark_payment_sent: bad payload type %T", call.Payload)
		}
		if err := p.MarkPaymentSent(call.Signer, payload.TradeID); err != nil {
			return err
		}
		bus.Emit(EventPaymentSent, map[string]interface{}{"trade_id": payload.TradeID})
		return nil

	case CallConfirmTlPayment:
		payload, ok := call.Payload.(ConfirmTlPaymentCallPayload)
		if !ok {
			return fmt.Errorf("trade: confirm_tl_payment: bad payload type %T", call.Payload)
		}
		if err := p.ConfirmTlPayment(call.Signer, payload.TradeID); err != nil {
			return err
		}
		bus.Emit(EventTlPaymentConfirmed, map[string]interface{}{"trade_id": payload.TradeID})
		bus.Emit(EventTradeCompleted, map[string]interface{}{"trade_id": payload.TradeID})
		return nil

	case CallConfirmDelivery:
		payload, ok := call.Payload.(ConfirmDeliveryCallPayload)
		if !ok {
			return fmt.Errorf("trade: confirm_delivery: bad payload type %T", call.Payload)
		}
		if err := p.ConfirmDelivery(call.Signer, payload.TradeID, payload.DeliveryAttestationHash); err != nil {
			return err
		}
		bus.Emit(EventTradeCompleted, map[string]interface{}{"trade_id": payload.TradeID})
		return nil

	case CallOpenDispute:
		payload, ok := call.Payload.(OpenDisputeCallPayload)
		if !ok {
			return fmt.Errorf("trade: open_dispute: bad payload type %T", call.Payload)
		}
		if err := p.OpenDispute(call.Signer, payload.TradeID); err != nil {
			return err
		}
		bus.Emit(EventDisputeOpened, map[string]interface{}{"trade_id": payload.TradeID})
		return nil

	case CallResolveDispute:
		if call.Origin != runtime.OriginRoot {
			return fmt.Errorf("trade: resolve_dispute requires Root origin")
		}
		payload, ok := call.Payload.(ResolveDisputeCallPayload)
		if !ok {
			return fmt.Errorf("trade: resolve_dispute: bad payload type %T", call.Payload)
		}
		if err := p.ResolveDispute(payload.TradeID, payload.BuyerWins); err != nil {
			return err
		}
		bus.Emit(EventDisputeResolved, map[string]interface{}{"trade_id": payload.TradeID, "buyer_wins": payload.BuyerWins})
		if payload.BuyerWins {
			bus.Emit(EventRefunded, map[string]interface{}{"trade_id": payload.TradeID})
		}
		return nil

	case CallSubmitConditionProof:
		payload, ok := call.Payload.(SubmitConditionProofCallPayload)
		if !ok {
			return fmt.Errorf("trade: submit_condition_proof: bad payload type %T", call.Payload)
		}
		if err := p.SubmitConditionProof(call.Signer, payload.TradeID, payload.ConditionHash, payload.Proof, payload.ProofLen, payload.Index, call.BlockNumber); err != nil {
			bus.Emit(EventMerkleProofVerified, map[string]interface{}{"trade_id": payload.TradeID, "verified": false})
			return err
		}
		bus.Emit(EventMerkleProofVerified, map[string]interface{}{"trade_id": payload.TradeID, "verified": true})
		return nil

	case CallSubmitDiagnostics:
		payload, ok := call.Payload.(SubmitDiagnosticsCallPayload)
		if !ok {
			return fmt.Errorf("trade: submit_diagnostics: bad payload type %T", call.Payload)
		}
		if err := p.SubmitDiagnostics(call.Signer, payload.TradeID, payload.DeviceModelHash, payload.DeviceManufacturerHash, payload.OsHash, payload.TestIDHashes, payload.TestResults, payload.TestDetails, payload.ReportHash, call.BlockNumber); err != nil {
			return err
		}
		bus.Emit(EventDiagnosticsSubmitted, map[string]interface{}{"trade_id": payload.TradeID})
		return nil

	case CallSetKodOnlyBlock:
		if call.Origin != runtime.OriginRoot {
			return fmt.Errorf("trade: set_kod_only_block requires Root origin")
		}
		payload, ok := call.Payload.(SetKodOnlyBlockCallPayload)
		if !ok {
			return fmt.Errorf("trade: set_kod_only_block: bad payload type %T", call.Payload)
		}
		p.SetKodOnlyBlock(payload.Value)
		return nil

	case CallSetTradingPaused:
		if call.Origin != runtime.OriginRoot {
			return fmt.Errorf("trade: set_trading_paused requires Root origin")
		}
		payload, ok := call.Payload.(SetTradingPausedCallPayload)
		if !ok {
			return fmt.Errorf("trade: set_trading_paused: bad payload type %T", call.Payload)
		}
		p.SetTradingPaused(payload.Paused)
		return nil

	case CallSetKodTlRate:
		if call.Origin != runtime.OriginRoot {
			return fmt.Errorf("trade: set_kod_tl_rate requires Root origin")
		}
		payload, ok := call.Payload.(SetKodTlRateCallPayload)
		if !ok {
			return fmt.Errorf("trade: set_kod_tl_rate: bad payload type %T", call.Payload)
		}
		return p.SetKodTlRate(payload.RateKurus)
	}
	return fmt.Errorf("trade: unsupported call %q", call.Name)
}
