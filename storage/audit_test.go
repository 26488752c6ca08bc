package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func chainOf(ids ...string) []Entry {
	prev := GenesisHash
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		e := Entry{ID: id, CreatedAt: "2026-01-02T15:04:05Z", PrevHash: prev}
		e.Hash = ChainHash(e.ID, e.PrevHash, e.CreatedAt)
		prev = e.Hash
		out = append(out, e)
	}
	return out
}

func TestVerifyChain_Intact(t *testing.T) {
	assert.Equal(t, -1, VerifyChain(nil))
	assert.Equal(t, -1, VerifyChain(chainOf("a")))
	assert.Equal(t, -1, VerifyChain(chainOf("a", "b", "c")))
}

func TestVerifyChain_BrokenGenesis(t *testing.T) {
	entries := chainOf("a", "b")
	entries[0].PrevHash = "deadbeef"
	assert.Equal(t, 0, VerifyChain(entries))
}

func TestVerifyChain_BrokenLink(t *testing.T) {
	entries := chainOf("a", "b", "c")
	entries[1].PrevHash = ChainHash("x", GenesisHash, "t")
	assert.Equal(t, 1, VerifyChain(entries))
}

func TestVerifyChain_TamperedEntry(t *testing.T) {
	entries := chainOf("a", "b", "c")
	entries[2].ID = "c-edited"
	assert.Equal(t, 2, VerifyChain(entries))
}
