//
// Copyright 2023 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package pripel

// OpKind enumerates the edit operations of an alignment.
type OpKind int

const (
	// OpMatch pairs an original position with a variant position carrying
	// the same activity.
	OpMatch OpKind = iota
	// OpInsert adds a variant position with no original counterpart; the
	// event for it must be synthesized.
	OpInsert
	// OpDelete drops an original position absent from the variant.
	OpDelete
)

// Op is one edit operation. OrigIndex is valid for OpMatch and OpDelete,
// VariantIndex for OpMatch and OpInsert; the unused index is -1.
type Op struct {
	Kind         OpKind
	OrigIndex    int
	VariantIndex int
}

// Alignment is an edit script mapping an original activity sequence onto a
// target variant. Applying its operations to the original sequence yields
// exactly the target.
type Alignment []Op

// Align computes a minimum-cost alignment between the original sequence and
// the target, with unit cost for insertions and deletions and no
// substitutions (a mismatch costs a deletion plus an insertion). Backtracking
// resolves cost ties deterministically: match before delete before insert.
func Align(orig, target []string) Alignment {
	n, m := len(orig), len(target)
	// cost[i][j] is the minimum edit cost between orig[:i] and target[:j].
	cost := make([][]int, n+1)
	for i := range cost {
		cost[i] = make([]int, m+1)
		cost[i][0] = i
	}
	for j := 0; j <= m; j++ {
		cost[0][j] = j
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			best := cost[i-1][j] + 1 // delete orig[i-1]
			if c := cost[i][j-1] + 1; c < best {
				best = c // insert target[j-1]
			}
			if orig[i-1] == target[j-1] && cost[i-1][j-1] < best {
				best = cost[i-1][j-1] // match
			}
			cost[i][j] = best
		}
	}

	// Backtrack from (n, m); the script comes out reversed.
	var reversed Alignment
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && orig[i-1] == target[j-1] && cost[i][j] == cost[i-1][j-1]:
			reversed = append(reversed, Op{Kind: OpMatch, OrigIndex: i - 1, VariantIndex: j - 1})
			i, j = i-1, j-1
		case i > 0 && cost[i][j] == cost[i-1][j]+1:
			reversed = append(reversed, Op{Kind: OpDelete, OrigIndex: i - 1, VariantIndex: -1})
			i--
		default:
			reversed = append(reversed, Op{Kind: OpInsert, OrigIndex: -1, VariantIndex: j - 1})
			j--
		}
	}
	alignment := make(Alignment, len(reversed))
	for k, op := range reversed {
		alignment[len(reversed)-1-k] = op
	}
	return alignment
}

// Cost returns the edit distance the alignment realizes.
func (a Alignment) Cost() int {
	cost := 0
	for _, op := range a {
		if op.Kind != OpMatch {
			cost++
		}
	}
	return cost
}

// Apply replays the edit script: matched positions keep the original label,
// inserted positions take the label the target owns, deleted positions are
// dropped. The result equals the target the alignment was computed against;
// that round-trip law is what the realignment engine relies on.
func (a Alignment) Apply(orig, target []string) []string {
	out := make([]string, 0, len(target))
	for _, op := range a {
		switch op.Kind {
		case OpMatch:
			out = append(out, orig[op.OrigIndex])
		case OpInsert:
			out = append(out, target[op.VariantIndex])
		}
	}
	return out
}

// editDistance returns the unit-cost edit distance between two sequences
// without materializing the script; nearest-variant selection uses it.
func editDistance(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			best := prev[j] + 1
			if c := curr[j-1] + 1; c < best {
				best = c
			}
			if a[i-1] == b[j-1] && prev[j-1] < best {
				best = prev[j-1]
			}
			curr[j] = best
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
