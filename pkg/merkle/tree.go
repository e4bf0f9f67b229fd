// Package merkle builds and verifies sorted-pair keccak256 merkle trees.
//
// Leaves are keccak256 digests of the raw 20-byte account address. Each
// internal node is keccak256 of its two children ordered byte-wise, so a
// proof carries only the sibling hashes and no left/right flags. An odd node
// at the end of a level is promoted unchanged to the next level.
package merkle

import (
	"bytes"
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrEmptyTree     = errors.New("cannot build a tree without leaves")
	ErrLeafNotInTree = errors.New("leaf not found in tree")
)

// Proof is the ordered list of sibling hashes from a leaf up to the root.
type Proof []common.Hash

type Tree struct {
	levels [][]common.Hash
}

// Leaf returns the leaf hash committed for the given account.
func Leaf(account common.Address) common.Hash {
	return crypto.Keccak256Hash(account.Bytes())
}

// HashPair combines two nodes independently of their order.
func HashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a.Bytes(), b.Bytes())
}

// NewTree builds a tree whose leaves commit to the given accounts, in the
// given order.
func NewTree(accounts []common.Address) (*Tree, error) {
	leaves := make([]common.Hash, 0, len(accounts))
	for _, account := range accounts {
		leaves = append(leaves, Leaf(account))
	}
	return NewTreeFromLeaves(leaves)
}

// NewSortedTree is like NewTree but sorts the leaves first, which makes the
// root independent of the order accounts were listed in.
func NewSortedTree(accounts []common.Address) (*Tree, error) {
	leaves := make([]common.Hash, 0, len(accounts))
	for _, account := range accounts {
		leaves = append(leaves, Leaf(account))
	}
	sort.Slice(leaves, func(i, j int) bool {
		return bytes.Compare(leaves[i].Bytes(), leaves[j].Bytes()) < 0
	})
	return NewTreeFromLeaves(leaves)
}

func NewTreeFromLeaves(leaves []common.Hash) (*Tree, error) {
	if len(leaves) <= 0 {
		return nil, ErrEmptyTree
	}

	level := append([]common.Hash{}, leaves...)
	levels := [][]common.Hash{level}
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, HashPair(level[i], level[i+1]))
		}
		levels = append(levels, next)
		level = next
	}

	return &Tree{levels}, nil
}

func (t *Tree) Root() common.Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

func (t *Tree) NumberOfLeaves() int {
	return len(t.levels[0])
}

// Proof returns the inclusion proof of the given account.
func (t *Tree) Proof(account common.Address) (Proof, error) {
	return t.ProofForLeaf(Leaf(account))
}

func (t *Tree) ProofForLeaf(leaf common.Hash) (Proof, error) {
	index := -1
	for i, l := range t.levels[0] {
		if l == leaf {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ErrLeafNotInTree
	}

	proof := make(Proof, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		index /= 2
	}
	return proof, nil
}

// Verify reports whether proof links leaf to root.
func Verify(proof Proof, root, leaf common.Hash) bool {
	return ProcessProof(proof, leaf) == root
}

// VerifyAccount reports whether proof links the account's leaf to root.
func VerifyAccount(proof Proof, root common.Hash, account common.Address) bool {
	return Verify(proof, root, Leaf(account))
}

// ProcessProof rebuilds the root implied by the leaf and its proof.
func ProcessProof(proof Proof, leaf common.Hash) common.Hash {
	computed := leaf
	for _, sibling := range proof {
		computed = HashPair(computed, sibling)
	}
	return computed
}

// ParseProof decodes a list of 0x-prefixed hex hashes.
func ParseProof(hexHashes []string) (Proof, error) {
	proof := make(Proof, 0, len(hexHashes))
	for _, h := range hexHashes {
		b, err := decodeHash(h)
		if err != nil {
			return nil, err
		}
		proof = append(proof, b)
	}
	return proof, nil
}

// Strings encodes the proof as 0x-prefixed hex hashes.
func (p Proof) Strings() []string {
	out := make([]string, 0, len(p))
	for _, h := range p {
		out = append(out, h.Hex())
	}
	return out
}

func decodeHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, errors.New("invalid proof element length")
	}
	return common.BytesToHash(b), nil
}
