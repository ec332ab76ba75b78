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

// Package difficulty implements KOD Chain's retargeting difficulty
// controller (spec.md §4.2). It is process-local, not consensus state —
// every node's miner independently decides its own difficulty, per
// spec.md's Open Question #3. The state shape (a reader-writer lock
// guarding a small struct, write-locked only on retarget) follows the
// same sync.RWMutex discipline consensus/dpos/dpos.go and
// agent/registry.go use for their own in-memory state.
package difficulty

import (
	"sync"

	"github.com/holiman/uint256"
)

// Config bounds and paces the controller; spec.md §6 calls these
// "configuration, not hard-coded" (Design Note #4).
type Config struct {
	Initial      uint64
	Min          uint64
	Max          uint64
	Window       int // DIFFICULTY_WINDOW: blocks per retarget period
	TargetTimeMs uint64
}

// Controller maintains current_difficulty, the rolling block_times buffer,
// and the last retarget boundary, per spec.md §3 "Difficulty state".
type Controller struct {
	mu         sync.RWMutex
	cfg        Config
	current    uint64
	blockTimes []uint64
	lastBlock  uint64
}

// New creates a Controller seeded at cfg.Initial.
func New(cfg Config) *Controller {
	return &Controller{
		cfg:     cfg,
		current: cfg.Initial,
	}
}

// Current returns the difficulty the miner should target right now.
func (c *Controller) Current() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// RecordBlock appends a measured block time and retargets when
// blockNumber lands on a DIFFICULTY_WINDOW boundary, per spec.md §4.2's
// contract: "when block_number > 0 ∧ block_number mod DIFFICULTY_WINDOW =
// 0, retarget and clear."
func (c *Controller) RecordBlock(blockNumber uint64, blockTimeMs uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blockTimes = append(c.blockTimes, blockTimeMs)
	if len(c.blockTimes) > c.cfg.Window {
		c.blockTimes = c.blockTimes[len(c.blockTimes)-c.cfg.Window:]
	}
	if blockNumber > 0 && c.cfg.Window > 0 && blockNumber%uint64(c.cfg.Window) == 0 {
		c.retarget()
		c.blockTimes = nil
	}
	c.lastBlock = blockNumber
}

// retarget applies spec.md §4.2's proportional formula using the 100×
// integer factor to preserve monotonicity without fractional arithmetic,
// clamped to [Min, Max]. Caller must hold c.mu.
func (c *Controller) retarget() {
	if len(c.blockTimes) == 0 {
		return
	}
	var sum uint64
	for _, t := range c.blockTimes {
		sum += t
	}
	avg := sum / uint64(len(c.blockTimes))
	if avg == 0 {
		avg = 1
	}
	target := c.cfg.TargetTimeMs

	d := uint256.NewInt(c.current)
	var next *uint256.Int
	switch {
	case avg < target:
		// blocks too fast => harder: d' = d * (target*100/avg) / 100
		factor := new(uint256.Int).Mul(uint256.NewInt(target), uint256.NewInt(100))
		factor.Div(factor, uint256.NewInt(avg))
		next = new(uint256.Int).Mul(d, factor)
		next.Div(next, uint256.NewInt(100))
	case avg > target:
		// blocks too slow => easier: d' = d * 100 / (avg*100/target)
		factor := new(uint256.Int).Mul(uint256.NewInt(avg), uint256.NewInt(100))
		factor.Div(factor, uint256.NewInt(target))
		next = new(uint256.Int).Mul(d, uint256.NewInt(100))
		if factor.IsZero() {
			factor = uint256.NewInt(1)
		}
		next.Div(next, factor)
	default:
		next = d
	}

	nextVal := next.Uint64()
	if !next.IsUint64() || nextVal > c.cfg.Max {
		nextVal = c.cfg.Max
	}
	if nextVal < c.cfg.Min {
		nextVal = c.cfg.Min
	}
	c.current = nextVal
}
