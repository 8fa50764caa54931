package interact

import (
	"slices"
	"strings"

	"github.com/use-agent/sift/segment"
)

// coverage is the share of word pairs one block must find in another to
// count as the same content.
const coverage = 0.8

// mergeBlocks folds a fresh snapshot of a page into the blocks gathered
// from earlier snapshots of it. A block that grew replaces its earlier
// version; content already held is dropped; anything new is inserted in
// document order. Tab panels sharing a container therefore accumulate
// instead of overwriting each other.
func mergeBlocks(held, fresh []segment.Block) []segment.Block {
	for _, b := range fresh {
		held = mergeBlock(held, b)
	}
	return held
}

func mergeBlock(held []segment.Block, b segment.Block) []segment.Block {
	for i, old := range held {
		if old.Content.Text == b.Content.Text && old.Type == b.Type {
			return held
		}
		if old.Key != b.Key {
			continue
		}
		switch {
		case covers(b.Content.Text, old.Content.Text) && len(b.Content.Text) >= len(old.Content.Text):
			held[i] = b
			return held
		case covers(old.Content.Text, b.Content.Text):
			return held
		}
	}

	pos := slices.IndexFunc(held, func(o segment.Block) bool {
		return slices.Compare(o.Anchor, b.Anchor) > 0
	})
	if pos < 0 {
		pos = len(held)
	}
	return slices.Insert(held, pos, b)
}

// covers reports whether most of inner's word pairs occur in outer.
func covers(outer, inner string) bool {
	in := shingles(inner)
	if len(in) == 0 {
		return true
	}
	out := make(map[string]bool, len(in))
	for _, s := range shingles(outer) {
		out[s] = true
	}
	hit := 0
	for _, s := range in {
		if out[s] {
			hit++
		}
	}
	return float64(hit) >= coverage*float64(len(in))
}

func shingles(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) < 2 {
		return words
	}
	out := make([]string, 0, len(words)-1)
	for i := 0; i+1 < len(words); i++ {
		out = append(out, words[i]+" "+words[i+1])
	}
	return out
}
