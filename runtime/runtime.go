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

// Package runtime is the generic pallet framework KOD Chain's two core
// pallets (reward, trade) plug into. It generalizes the teacher's
// sysaction package (a tagged ActionKind dispatched to a registered
// Handler over a Context) into: a Pallet capability with on_initialize /
// on_finalize hooks (inherent creation stays on the reward pallet's own
// CreateInherent, outside this interface), a Call dispatcher over a
// tagged-variant extrinsic enum, and an append-only per-block event
// buffer — the Go-native analogue of the macro-generated Substrate
// framework described in spec.md §9.
package runtime

import (
	"fmt"
	"sync"

	"github.com/kod-network/kod/common"
)

// CallName identifies one dispatchable pallet call, e.g. "trade.purchase".
type CallName string

// Origin is the authorization level an extrinsic is dispatched under.
type Origin int

const (
	// OriginSigned is an ordinary user-signed extrinsic; Signer is set.
	OriginSigned Origin = iota
	// OriginRoot is the privileged administrative origin (spec.md §4: "sudo").
	OriginRoot
	// OriginNone is the unsigned inherent origin (the beneficiary inherent).
	OriginNone
)

// Call is a dispatched extrinsic: a named call, an origin, and a decoded
// payload the handler type-asserts to its expected argument struct.
type Call struct {
	Name        CallName
	Origin      Origin
	Signer      common.AccountId
	BlockNumber common.BlockNumber
	Payload     interface{}
}

// Event is one entry in a block's append-only event buffer.
type Event struct {
	Name   string
	Fields map[string]interface{}
}

// Handler is implemented by each pallet call to process one Call.
type Handler interface {
	// CanHandle reports whether this handler owns the named call.
	CanHandle(name CallName) bool
	// Handle executes the call, emitting events via the supplied bus.
	Handle(call *Call, bus *EventBus) error
}

// Pallet is the lifecycle capability a runtime module exposes to the block
// author, mirroring Substrate's on_initialize/on_finalize hooks; it has no
// inherent-creation method.
type Pallet interface {
	// Name identifies the pallet for logging and event namespacing.
	Name() string
	// OnInitialize runs once at the start of block n, before any extrinsics.
	OnInitialize(n common.BlockNumber, bus *EventBus)
	// OnFinalize runs once at the end of block n, after all extrinsics.
	OnFinalize(n common.BlockNumber, bus *EventBus)
}

// EventBus accumulates events for the block currently being built/applied.
type EventBus struct {
	mu     sync.Mutex
	events []Event
}

// NewEventBus returns an empty EventBus.
func NewEventBus() *EventBus { return &EventBus{} }

// Emit appends an event to the buffer.
func (b *EventBus) Emit(name string, fields map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, Event{Name: name, Fields: fields})
}

// Drain returns and clears all buffered events (called once per block, after
// on_finalize, the way a block's event topic is flushed).
func (b *EventBus) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Registry dispatches Calls to registered Handlers, and runs the
// lifecycle hooks of registered Pallets in registration order.
type Registry struct {
	mu       sync.RWMutex
	handlers []Handler
	pallets  []Pallet
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry { return &Registry{} }

// RegisterHandler adds a call handler.
func (r *Registry) RegisterHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
}

// RegisterPallet adds a pallet whose on_initialize/on_finalize hooks run
// every block, in registration order (matching "on-finalize hooks follow
// extrinsics in pallet order", spec.md §5).
func (r *Registry) RegisterPallet(p Pallet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pallets = append(r.pallets, p)
}

// Dispatch routes call to the first handler that claims it.
func (r *Registry) Dispatch(call *Call, bus *EventBus) error {
	r.mu.RLock()
	handlers := append([]Handler(nil), r.handlers...)
	r.mu.RUnlock()
	for _, h := range handlers {
		if h.CanHandle(call.Name) {
			return h.Handle(call, bus)
		}
	}
	return fmt.Errorf("runtime: no handler registered for call %q", call.Name)
}

// OnInitialize runs every pallet's OnInitialize hook for block n.
func (r *Registry) OnInitialize(n common.BlockNumber, bus *EventBus) {
	r.mu.RLock()
	pallets := append([]Pallet(nil), r.pallets...)
	r.mu.RUnlock()
	for _, p := range pallets {
		p.OnInitialize(n, bus)
	}
}

// OnFinalize runs every pallet's OnFinalize hook for block n, in
// registration order.
func (r *Registry) OnFinalize(n common.BlockNumber, bus *EventBus) {
	r.mu.RLock()
	pallets := append([]Pallet(nil), r.pallets...)
	r.mu.RUnlock()
	for _, p := range pallets {
		p.OnFinalize(n, bus)
	}
}
