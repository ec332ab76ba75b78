package miner

import (
	"context"
	"encoding/hex"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/kod-network/kod/chain"
	"github.com/kod-network/kod/common"
)

type fakeSelector struct {
	mu sync.RWMutex
	h  chain.Header
}

func (f *fakeSelector) BestHeader() chain.Header {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.h
}

func (f *fakeSelector) set(h chain.Header) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.h = h
}

type fakeImporter struct {
	mu      sync.Mutex
	imports []chain.ImportRequest
}

func (f *fakeImporter) Import(req chain.ImportRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports = append(f.imports, req)
	return nil
}

func (f *fakeImporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.imports)
}

// fakeProposer always succeeds immediately, building the next header on
// top of parent so the miner's loop can make real progress in a test
// without any PoW-grade difficulty.
type fakeProposer struct{}

func (fakeProposer) Propose(ctx context.Context, parent chain.Header, inherents InherentData, budget time.Duration) (*ProposedBlock, error) {
	return &ProposedBlock{
		Header: chain.Header{
			ParentHash: chain.HeaderHash(parent),
			Number:     parent.Number + 1,
			Time:       inherents.Timestamp,
		},
	}, nil
}

type fakeDifficulty struct {
	mu      sync.RWMutex
	current uint64
	records int
}

func (f *fakeDifficulty) Current() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

func (f *fakeDifficulty) RecordBlock(blockNumber, blockTimeMs uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records++
}

func TestMeetsTargetLowDifficultyAlwaysPasses(t *testing.T) {
	var digest [32]byte
	for i := range digest {
		digest[i] = 0xAB
	}
	if !meetsTarget(digest, 1) {
		t.Fatal("difficulty 1 should accept any digest")
	}
}

func TestMeetsTargetZeroDigestAlwaysPasses(t *testing.T) {
	var digest [32]byte
	if !meetsTarget(digest, 1_000_000_000) {
		t.Fatal("an all-zero digest must satisfy any target")
	}
}

func TestMeetsTargetMaxDigestPassesAtMaxUint64Difficulty(t *testing.T) {
	// Only the first 8 digest bytes are compared, so h <= 2^64-1, while the
	// target (2^128-1)/difficulty is at least 2^64+1 for any uint64
	// difficulty: even an all-ones digest passes.
	var digest [32]byte
	for i := range digest {
		digest[i] = 0xFF
	}
	if !meetsTarget(digest, math.MaxUint64) {
		t.Fatal("an all-ones digest must satisfy the target at difficulty 2^64-1")
	}
}

func TestPreimageOmitsRewardAddressWhenUnset(t *testing.T) {
	m := &Miner{cfg: Config{HasRewardAddr: false}}
	parent := chain.Header{Number: 7}
	got := string(m.preimage(parent, 42))
	parentHash := chain.HeaderHash(parent)
	want := hex.EncodeToString(parentHash[:]) + ":8::42"
	if got != want {
		t.Fatalf("preimage = %q, want %q", got, want)
	}
}

func TestPreimageCommitsToParentHeaderHashNotGrandparent(t *testing.T) {
	// Two distinct heads at the same height with different ParentHash
	// values must not collide: the preimage has to commit to each head's own
	// content hash, not to the hash of its parent.
	m := &Miner{cfg: Config{HasRewardAddr: false}}
	headA := chain.Header{Number: 7, ParentHash: common.Hash{0xAA}}
	headB := chain.Header{Number: 7, ParentHash: common.Hash{0xBB}}
	if string(m.preimage(headA, 1)) == string(m.preimage(headB, 1)) {
		t.Fatal("preimages for two distinct heads must differ")
	}

	wantA := hex.EncodeToString(chain.HeaderHash(headA)[:]) + ":8::1"
	if got := string(m.preimage(headA, 1)); got != wantA {
		t.Fatalf("preimage = %q, want %q", got, wantA)
	}
}

func TestPreimageIncludesRewardAddress(t *testing.T) {
	addr := common.BytesToAccountId([]byte{1, 2, 3})
	m := &Miner{cfg: Config{HasRewardAddr: true, RewardAddress: addr}}
	parent := chain.Header{Number: 0}
	got := string(m.preimage(parent, 1))
	if len(got) == 0 {
		t.Fatal("empty preimage")
	}
	// reward address hex must appear between the two middle colons.
	wantAddr := addr.Hex()
	found := false
	for i := 0; i+len(wantAddr) <= len(got); i++ {
		if got[i:i+len(wantAddr)] == wantAddr {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("preimage %q does not contain reward address hex %q", got, wantAddr)
	}
}

func TestMinerProducesBlocksAndRecordsDifficulty(t *testing.T) {
	genesis := chain.Header{Number: 0}
	c := chain.New(genesis)
	sel := &fakeSelector{h: c.BestHeader()}
	imp := &fakeImporter{}
	diff := &fakeDifficulty{current: 1}

	cfg := DefaultConfig()
	cfg.TargetBlockTime = 0
	cfg.YieldEvery = 1

	m := New(cfg, sel, imp, fakeProposer{}, diff)
	m.Start()

	deadline := time.After(2 * time.Second)
	for imp.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 imports, got %d", imp.count())
		default:
			time.Sleep(10 * time.Millisecond)
			sel.set(c.BestHeader())
		}
	}
	m.Stop()

	if diff.records == 0 {
		t.Fatal("expected RecordBlock to be called at least once")
	}
}
