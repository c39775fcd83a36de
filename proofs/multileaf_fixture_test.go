package proofs

import (
	"crypto/sha256"
	"sort"

	"github.com/colibri-go/verifier/merkle"
)

// buildMultiLeafFixture computes a root and a valid branch for an arbitrary
// set of leaves that may sit at different depths (e.g. a transaction-index
// leaf nested far deeper than its sibling execution-payload fields),
// mirroring merkle.VerifyMultiLeaf's own sibling-derivation algorithm so the
// two stay in lockstep. merkle.BuildTree/GenerateProof only cover a single
// uniform-depth tree and can't produce this shape.
func buildMultiLeafFixture(leaves []merkle.Leaf) (root [32]byte, branch [][32]byte) {
	known := make(map[uint64][32]byte, len(leaves)*2)
	for _, l := range leaves {
		known[l.GIndex] = l.Value
	}

	neededSet := make(map[uint64]bool)
	ancestors := make(map[uint64]bool)
	for _, l := range leaves {
		cur := l.GIndex
		for cur > 1 {
			sib := merkle.Sibling(cur)
			if _, ok := known[sib]; !ok {
				neededSet[sib] = true
			}
			cur = merkle.Parent(cur)
			ancestors[cur] = true
		}
	}
	for gi := range ancestors {
		delete(neededSet, gi)
	}

	neededGIs := make([]uint64, 0, len(neededSet))
	for gi := range neededSet {
		neededGIs = append(neededGIs, gi)
	}
	sort.Slice(neededGIs, func(i, j int) bool { return neededGIs[i] < neededGIs[j] })

	branchValues := make(map[uint64][32]byte, len(neededGIs))
	for _, gi := range neededGIs {
		v := sha256.Sum256([]byte{byte(gi), byte(gi >> 8), byte(gi >> 16), byte(gi >> 24), byte(gi >> 32)})
		known[gi] = v
		branchValues[gi] = v
	}

	for {
		progressed := false
		for gi := range known {
			if gi <= 1 {
				continue
			}
			sib := merkle.Sibling(gi)
			sibVal, ok := known[sib]
			if !ok {
				continue
			}
			par := merkle.Parent(gi)
			if _, ok := known[par]; ok {
				continue
			}
			var left, right [32]byte
			if merkle.IsLeft(gi) {
				left, right = known[gi], sibVal
			} else {
				left, right = sibVal, known[gi]
			}
			var buf [64]byte
			copy(buf[:32], left[:])
			copy(buf[32:], right[:])
			known[par] = sha256.Sum256(buf[:])
			progressed = true
		}
		if !progressed {
			break
		}
	}

	sort.Slice(neededGIs, func(i, j int) bool {
		di, dj := merkle.DepthOf(neededGIs[i]), merkle.DepthOf(neededGIs[j])
		if di != dj {
			return di > dj
		}
		return neededGIs[i] < neededGIs[j]
	})
	branch = make([][32]byte, len(neededGIs))
	for i, gi := range neededGIs {
		branch[i] = branchValues[gi]
	}
	return known[1], branch
}
