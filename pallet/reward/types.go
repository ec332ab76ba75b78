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

package reward

import (
	"math/big"

	"github.com/kod-network/kod/common"
)

// InherentIdentifier is the 8-byte ASCII tag the runtime dispatches the
// beneficiary inherent under.
const InherentIdentifier = "blkrewrd"

// Call names this pallet registers in the runtime dispatch table.
const (
	CallSetMiner          = "reward.set_miner"
	CallSetRewardOverride = "reward.set_reward_override"
	CallSetRewardsPaused  = "reward.set_rewards_paused"
)

// MaxEra is the number of halvings after which the scheduled reward is
// permanently zero.
const MaxEra = 10

// MinerInherentData is the decoded payload carried under InherentIdentifier.
type MinerInherentData struct {
	MinerAddress []byte // nil/empty means "no beneficiary this block"
	BlockNumber  uint32
}

// Era returns the halving epoch for block n, capped at MaxEra.
func Era(n, halvingInterval uint64) uint64 {
	if halvingInterval == 0 {
		return 0
	}
	era := n / halvingInterval
	if era > MaxEra {
		era = MaxEra
	}
	return era
}

// ScheduledReward computes INITIAL_REWARD >> era(n), or 0 past MaxEra.
func ScheduledReward(initial *big.Int, n, halvingInterval uint64) *big.Int {
	era := Era(n, halvingInterval)
	if era >= MaxEra {
		return big.NewInt(0)
	}
	return new(big.Int).Rsh(initial, uint(era))
}

// Event names this pallet emits.
const (
	EventRewardPaid       = "RewardPaid"
	EventHalvingOccurred  = "HalvingOccurred"
	EventReserveExhausted = "ReserveExhausted"
)

// SetRewardOverridePayload is CallSetRewardOverride's argument.
type SetRewardOverridePayload struct {
	Value    *big.Int // the override amount; read only when HasValue is true
	HasValue bool     // false clears the override
}

// SetRewardsPausedPayload is CallSetRewardsPaused's argument.
type SetRewardsPausedPayload struct {
	Paused bool
}

// SetMinerPayload is CallSetMiner's argument (the mandatory inherent call).
type SetMinerPayload struct {
	Miner common.AccountId
}
