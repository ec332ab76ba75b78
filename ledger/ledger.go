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

// Package ledger is the reservable-currency substrate spec.md treats as a
// pre-existing external collaborator: a flat, account-indexed record of
// (free, reserved) balances with reserve/unreserve/transfer/repatriate
// primitives. Pallets never touch balances directly; they call through
// this package exactly the way staking/actions.go calls through
// vm.StateDB in the teacher.
package ledger

import (
	"errors"
	"math/big"
	"sync"

	"github.com/kod-network/kod/common"
)

// Sentinel errors, named the way spec.md §7 and the teacher's
// staking/validator packages name theirs.
var (
	ErrInsufficientBalance = errors.New("ledger: insufficient free balance")
	ErrInsufficientReserve = errors.New("ledger: insufficient reserved balance")
	ErrWouldKillAccount    = errors.New("ledger: transfer would take balance below existential deposit")
)

// ExistenceRequirement mirrors the substrate-style knob that determines
// whether a transfer is allowed to zero out (and reap) the source account.
type ExistenceRequirement int

const (
	// KeepAlive refuses a transfer that would leave the source account
	// below the existential deposit.
	KeepAlive ExistenceRequirement = iota
	// AllowDeath permits a transfer that fully drains the source account.
	AllowDeath
)

type account struct {
	free     *big.Int
	reserved *big.Int
}

func newAccount() *account {
	return &account{free: new(big.Int), reserved: new(big.Int)}
}

// Ledger is a process-local, mutex-guarded balance sheet. Reads and writes
// are linearized the way spec.md §5 describes on-chain storage: no
// concurrency concern inside a single state transition, a reader-writer
// lock for safety when the node plane (RPC, CLI) reads concurrently.
type Ledger struct {
	mu                 sync.RWMutex
	accounts           map[common.AccountId]*account
	existentialDeposit *big.Int
}

// New creates an empty Ledger with the given existential deposit.
func New(existentialDeposit *big.Int) *Ledger {
	if existentialDeposit == nil {
		existentialDeposit = new(big.Int)
	}
	return &Ledger{
		accounts:           make(map[common.AccountId]*account),
		existentialDeposit: new(big.Int).Set(existentialDeposit),
	}
}

func (l *Ledger) get(id common.AccountId) *account {
	a, ok := l.accounts[id]
	if !ok {
		a = newAccount()
		l.accounts[id] = a
	}
	return a
}

// FreeBalance returns a's spendable balance.
func (l *Ledger) FreeBalance(id common.AccountId) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.accounts[id]; ok {
		return new(big.Int).Set(a.free)
	}
	return new(big.Int)
}

// ReservedBalance returns a's reserved (escrowed/bonded) balance.
func (l *Ledger) ReservedBalance(id common.AccountId) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.accounts[id]; ok {
		return new(big.Int).Set(a.reserved)
	}
	return new(big.Int)
}

// SetFreeBalance is a genesis/test helper that sets a's free balance directly.
func (l *Ledger) SetFreeBalance(id common.AccountId, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.get(id).free = new(big.Int).Set(amount)
}

// AddBalance mints amount into id's free balance (e.g. reward payout source
// accounting, genesis allocation).
func (l *Ledger) AddBalance(id common.AccountId, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.get(id)
	a.free.Add(a.free, amount)
}

// SubBalance burns amount from id's free balance without an existential
// deposit check; used only where the caller has already verified sufficiency.
func (l *Ledger) SubBalance(id common.AccountId, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.get(id)
	if a.free.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	a.free.Sub(a.free, amount)
	return nil
}

// Reserve moves amount from id's free balance into its reserved balance.
func (l *Ledger) Reserve(id common.AccountId, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.get(id)
	if a.free.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	a.free.Sub(a.free, amount)
	a.reserved.Add(a.reserved, amount)
	return nil
}

// Unreserve moves amount from id's reserved balance back into its free
// balance. If amount exceeds what is reserved, it unreserves whatever
// remains (matching substrate's saturating Unreserve semantics) and
// reports the shortfall via the returned error.
func (l *Ledger) Unreserve(id common.AccountId, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.get(id)
	if a.reserved.Cmp(amount) < 0 {
		short := new(big.Int).Set(a.reserved)
		a.free.Add(a.free, short)
		a.reserved.SetInt64(0)
		return ErrInsufficientReserve
	}
	a.reserved.Sub(a.reserved, amount)
	a.free.Add(a.free, amount)
	return nil
}

// Transfer moves amount from from's free balance to to's free balance.
// KeepAlive refuses to leave from below the existential deposit.
func (l *Ledger) Transfer(from, to common.AccountId, amount *big.Int, req ExistenceRequirement) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	src := l.get(from)
	if src.free.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	remainder := new(big.Int).Sub(src.free, amount)
	if req == KeepAlive && remainder.Cmp(l.existentialDeposit) < 0 {
		return ErrWouldKillAccount
	}
	src.free.Sub(src.free, amount)
	dst := l.get(to)
	dst.free.Add(dst.free, amount)
	return nil
}

// RepatriateReserved moves amount from from's reserved balance into to's
// free balance (destReserved=false) or to's reserved balance
// (destReserved=true), without ever touching from's free balance. This is
// the primitive spec.md's dispute resolution ("seller loses, bond moves to
// buyer") is built on.
func (l *Ledger) RepatriateReserved(from, to common.AccountId, amount *big.Int, destReserved bool) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	src := l.get(from)
	move := amount
	if src.reserved.Cmp(amount) < 0 {
		move = new(big.Int).Set(src.reserved)
	}
	src.reserved.Sub(src.reserved, move)
	dst := l.get(to)
	if destReserved {
		dst.reserved.Add(dst.reserved, move)
	} else {
		dst.free.Add(dst.free, move)
	}
	if move.Cmp(amount) < 0 {
		return ErrInsufficientReserve
	}
	return nil
}
