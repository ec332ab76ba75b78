package ledger

import (
	"math/big"
	"testing"

	"github.com/kod-network/kod/common"
)

func acct(b byte) common.AccountId {
	var a common.AccountId
	a[31] = b
	return a
}

func TestReserveUnreserveRoundTrip(t *testing.T) {
	l := New(big.NewInt(0))
	alice := acct(1)
	l.SetFreeBalance(alice, big.NewInt(1000))

	if err := l.Reserve(alice, big.NewInt(400)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got := l.FreeBalance(alice); got.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("free balance = %v, want 600", got)
	}
	if got := l.ReservedBalance(alice); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("reserved balance = %v, want 400", got)
	}

	if err := l.Unreserve(alice, big.NewInt(400)); err != nil {
		t.Fatalf("unreserve: %v", err)
	}
	if got := l.FreeBalance(alice); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("free balance after unreserve = %v, want 1000", got)
	}
	if got := l.ReservedBalance(alice); got.Sign() != 0 {
		t.Fatalf("reserved balance after unreserve = %v, want 0", got)
	}
}

func TestReserveInsufficientBalance(t *testing.T) {
	l := New(big.NewInt(0))
	alice := acct(1)
	l.SetFreeBalance(alice, big.NewInt(100))
	if err := l.Reserve(alice, big.NewInt(200)); err != ErrInsufficientBalance {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestTransferKeepAlive(t *testing.T) {
	l := New(big.NewInt(100))
	alice, bob := acct(1), acct(2)
	l.SetFreeBalance(alice, big.NewInt(150))

	if err := l.Transfer(alice, bob, big.NewInt(100), KeepAlive); err != ErrWouldKillAccount {
		t.Fatalf("err = %v, want ErrWouldKillAccount", err)
	}
	if err := l.Transfer(alice, bob, big.NewInt(50), KeepAlive); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := l.FreeBalance(bob); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("bob balance = %v, want 50", got)
	}
}

func TestTransferAllowDeath(t *testing.T) {
	l := New(big.NewInt(100))
	alice, bob := acct(1), acct(2)
	l.SetFreeBalance(alice, big.NewInt(150))
	if err := l.Transfer(alice, bob, big.NewInt(150), AllowDeath); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := l.FreeBalance(alice); got.Sign() != 0 {
		t.Fatalf("alice balance = %v, want 0", got)
	}
}

func TestRepatriateReserved(t *testing.T) {
	l := New(big.NewInt(0))
	seller, buyer := acct(1), acct(2)
	l.SetFreeBalance(seller, big.NewInt(1000))
	if err := l.Reserve(seller, big.NewInt(1000)); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := l.RepatriateReserved(seller, buyer, big.NewInt(1000), false); err != nil {
		t.Fatalf("repatriate: %v", err)
	}
	if got := l.FreeBalance(buyer); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("buyer free balance = %v, want 1000", got)
	}
	if got := l.ReservedBalance(seller); got.Sign() != 0 {
		t.Fatalf("seller reserved balance = %v, want 0", got)
	}
}

func TestRepatriateReservedShortfall(t *testing.T) {
	l := New(big.NewInt(0))
	seller, buyer := acct(1), acct(2)
	l.SetFreeBalance(seller, big.NewInt(100))
	if err := l.Reserve(seller, big.NewInt(100)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	err := l.RepatriateReserved(seller, buyer, big.NewInt(500), false)
	if err != ErrInsufficientReserve {
		t.Fatalf("err = %v, want ErrInsufficientReserve", err)
	}
	if got := l.FreeBalance(buyer); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("buyer free balance = %v, want 100 (partial move)", got)
	}
}
