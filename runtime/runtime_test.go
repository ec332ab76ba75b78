package runtime

import (
	"testing"

	"github.com/kod-network/kod/common"
)

type echoHandler struct{ name CallName }

func (h *echoHandler) CanHandle(name CallName) bool { return name == h.name }

func (h *echoHandler) Handle(call *Call, bus *EventBus) error {
	bus.Emit("Echoed", map[string]interface{}{"payload": call.Payload})
	return nil
}

func TestDispatchRoutesToMatchingHandler(t *testing.T) {
	r := NewRegistry()
	r.RegisterHandler(&echoHandler{name: "trade.purchase"})

	bus := NewEventBus()
	call := &Call{Name: "trade.purchase", Origin: OriginSigned, Payload: 42}
	if err := r.Dispatch(call, bus); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	events := bus.Drain()
	if len(events) != 1 || events[0].Name != "Echoed" {
		t.Fatalf("events = %+v, want one Echoed event", events)
	}
}

func TestDispatchUnknownCall(t *testing.T) {
	r := NewRegistry()
	bus := NewEventBus()
	err := r.Dispatch(&Call{Name: "nonexistent"}, bus)
	if err == nil {
		t.Fatal("expected error for unregistered call")
	}
}

type countingPallet struct {
	name                  string
	initCount, finalCount int
	order                 *[]string
}

func (p *countingPallet) Name() string { return p.name }
func (p *countingPallet) OnInitialize(n common.BlockNumber, bus *EventBus) {
	p.initCount++
	if p.order != nil {
		*p.order = append(*p.order, "init:"+p.name)
	}
}
func (p *countingPallet) OnFinalize(n common.BlockNumber, bus *EventBus) {
	p.finalCount++
	if p.order != nil {
		*p.order = append(*p.order, "final:"+p.name)
	}
}

func TestPalletHooksRunInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	p1 := &countingPallet{name: "reward", order: &order}
	p2 := &countingPallet{name: "trade", order: &order}
	r.RegisterPallet(p1)
	r.RegisterPallet(p2)

	bus := NewEventBus()
	r.OnInitialize(1, bus)
	r.OnFinalize(1, bus)

	if p1.initCount != 1 || p2.initCount != 1 {
		t.Fatalf("expected both pallets initialized once")
	}
	if p1.finalCount != 1 || p2.finalCount != 1 {
		t.Fatalf("expected both pallets finalized once")
	}
	want := []string{"init:reward", "init:trade", "final:reward", "final:trade"}
	if len(order) != len(want) {
		t.Fatalf("hook order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("hook order = %v, want %v", order, want)
		}
	}
}
