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

// Package reward implements the block-reward pallet: a per-block inherent
// naming the beneficiary, a halving schedule, and a reserve account that
// pays out with graceful depletion. It follows the distribution shape of
// the teacher's staking.DistributeBlockRewards (a proportional payout
// funded from a reserve address, logged and event-emitting) narrowed to
// a single beneficiary per block instead of a stake-weighted set.
package reward

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/kod-network/kod/common"
	"github.com/kod-network/kod/ledger"
	"github.com/kod-network/kod/log"
	"github.com/kod-network/kod/runtime"
)

// AddressDecoder resolves an SS58-style string into an AccountId; it is
// the fallback path the beneficiary decoder uses when the inherent bytes
// are not already a raw 32-byte AccountId. Injected rather than imported
// directly so this package does not depend on wallet's encoding choices.
type AddressDecoder interface {
	DecodeSS58(s string) (common.AccountId, error)
}

// Config carries the economic constants this pallet reads, per spec.md
// Design Note #4: configuration, not hard-coded literals.
type Config struct {
	InitialReward   *big.Int
	HalvingInterval uint64
	ReserveAccount  common.AccountId
}

// Pallet is the reward pallet's on-chain state plus its ledger handle.
type Pallet struct {
	mu sync.RWMutex

	cfg     Config
	ledger  *ledger.Ledger
	decoder AddressDecoder

	pendingMiner     *common.AccountId
	rewardOverride   *big.Int
	rewardsPaused    bool
	totalRewardsPaid *big.Int
}

// New constructs the reward pallet bound to led for balance transfers.
func New(cfg Config, led *ledger.Ledger, decoder AddressDecoder) *Pallet {
	return &Pallet{
		cfg:              cfg,
		ledger:           led,
		decoder:          decoder,
		totalRewardsPaid: big.NewInt(0),
	}
}

// Name implements runtime.Pallet.
func (p *Pallet) Name() string { return "reward" }

// OnInitialize implements runtime.Pallet; the reward pallet has no
// beginning-of-block work (PendingMiner is populated by the set_miner
// inherent call, dispatched separately by the runtime before extrinsics).
func (p *Pallet) OnInitialize(n common.BlockNumber, bus *runtime.EventBus) {}

// TotalRewardsPaid returns the cumulative amount transferred to miners.
func (p *Pallet) TotalRewardsPaid() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Set(p.totalRewardsPaid)
}

// DecodeBeneficiary implements spec.md §4.3's decode logic: try a direct
// 32-byte AccountId first, then UTF-8 -> SS58 -> public key.
func (p *Pallet) DecodeBeneficiary(raw []byte) (common.AccountId, error) {
	if len(raw) == common.AccountIdLength {
		return common.BytesToAccountId(raw), nil
	}
	if p.decoder == nil {
		return common.AccountId{}, fmt.Errorf("reward: no SS58 decoder configured for %d-byte beneficiary", len(raw))
	}
	return p.decoder.DecodeSS58(string(raw))
}

// CreateInherent implements the runtime's create_inherent(data) hook: it
// decodes MinerInherentData under InherentIdentifier and, if a miner
// address is present, dispatches CallSetMiner with Origin = None.
func (p *Pallet) CreateInherent(data MinerInherentData, bus *runtime.EventBus, dispatch func(*runtime.Call, *runtime.EventBus) error) error {
	if len(data.MinerAddress) == 0 {
		return nil
	}
	miner, err := p.DecodeBeneficiary(data.MinerAddress)
	if err != nil {
		log.Warn("reward: could not decode beneficiary inherent, skipping", "err", err)
		return nil
	}
	call := &runtime.Call{
		Name:    CallSetMiner,
		Origin:  runtime.OriginNone,
		Payload: SetMinerPayload{Miner: miner},
	}
	return dispatch(call, bus)
}

// CanHandle implements runtime.Handler.
func (p *Pallet) CanHandle(name runtime.CallName) bool {
	switch name {
	case CallSetMiner, CallSetRewardOverride, CallSetRewardsPaused:
		return true
	}
	return false
}

// Handle implements runtime.Handler, dispatching the pallet's three
// extrinsics/inherents.
func (p *Pallet) Handle(call *runtime.Call, bus *runtime.EventBus) error {
	switch call.Name {
	case CallSetMiner:
		if call.Origin != runtime.OriginNone {
			return fmt.Errorf("reward: set_miner must be an inherent (Origin = None)")
		}
		payload, ok := call.Payload.(SetMinerPayload)
		if !ok {
			return fmt.Errorf("reward: set_miner: bad payload type %T", call.Payload)
		}
		p.mu.Lock()
		m := payload.Miner
		p.pendingMiner = &m
		p.mu.Unlock()
		return nil

	case CallSetRewardOverride:
		if call.Origin != runtime.OriginRoot {
			return fmt.Errorf("reward: set_reward_override requires Root origin")
		}
		payload, ok := call.Payload.(SetRewardOverridePayload)
		if !ok {
			return fmt.Errorf("reward: set_reward_override: bad payload type %T", call.Payload)
		}
		p.mu.Lock()
		if payload.HasValue {
			p.rewardOverride = new(big.Int).Set(payload.Value)
		} else {
			p.rewardOverride = nil
		}
		p.mu.Unlock()
		return nil

	case CallSetRewardsPaused:
		if call.Origin != runtime.OriginRoot {
			return fmt.Errorf("reward: set_rewards_paused requires Root origin")
		}
		payload, ok := call.Payload.(SetRewardsPausedPayload)
		if !ok {
			return fmt.Errorf("reward: set_rewards_paused: bad payload type %T", call.Payload)
		}
		p.mu.Lock()
		p.rewardsPaused = payload.Paused
		p.mu.Unlock()
		return nil
	}
	return fmt.Errorf("reward: unsupported call %q", call.Name)
}

// takePendingMiner removes and returns PendingMiner, enforcing the
// invariant that it never persists across two blocks.
func (p *Pallet) takePendingMiner() *common.AccountId {
	m := p.pendingMiner
	p.pendingMiner = nil
	return m
}

// OnFinalize implements spec.md §4.3's on_finalize(n) protocol.
func (p *Pallet) OnFinalize(n common.BlockNumber, bus *runtime.EventBus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rewardsPaused {
		return
	}
	miner := p.takePendingMiner()
	if miner == nil {
		return
	}

	var reward *big.Int
	if p.rewardOverride != nil {
		reward = new(big.Int).Set(p.rewardOverride)
	} else {
		reward = ScheduledReward(p.cfg.InitialReward, n, p.cfg.HalvingInterval)
	}
	if reward.Sign() == 0 {
		return
	}

	free := p.ledger.FreeBalance(p.cfg.ReserveAccount)
	if free.Cmp(reward) < 0 {
		bus.Emit(EventReserveExhausted, map[string]interface{}{
			"block_number": n,
			"required":     reward,
		})
		return
	}

	if err := p.ledger.Transfer(p.cfg.ReserveAccount, *miner, reward, ledger.KeepAlive); err != nil {
		log.Error("reward: payout transfer failed", "err", err, "miner", *miner, "block", n)
		return
	}

	p.totalRewardsPaid.Add(p.totalRewardsPaid, reward)
	bus.Emit(EventRewardPaid, map[string]interface{}{
		"miner":        *miner,
		"amount":       reward,
		"block_number": n,
	})

	if p.cfg.HalvingInterval > 0 && n > 0 && n%p.cfg.HalvingInterval == 0 {
		era := Era(n, p.cfg.HalvingInterval)
		newReward := ScheduledReward(p.cfg.InitialReward, n, p.cfg.HalvingInterval)
		bus.Emit(EventHalvingOccurred, map[string]interface{}{
			"block_number": n,
			"new_reward":   newReward,
			"era":          era,
		})
	}
}
