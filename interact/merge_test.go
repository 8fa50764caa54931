package interact

import (
	"testing"

	"github.com/use-agent/sift/models"
	"github.com/use-agent/sift/segment"
)

func block(key string, anchor []int, typ models.SectionType, text string) segment.Block {
	b := segment.Block{Anchor: anchor, Key: key}
	b.Type = typ
	b.Content.Text = text
	return b
}

func TestMergeBlocks(t *testing.T) {
	feed := "Story one about boats Story two about boats Load more"
	grown := "Story one about boats Story two about boats Story three about boats Load more"
	nav := "Home About Contact"

	tests := []struct {
		name  string
		held  []segment.Block
		fresh []segment.Block
		want  []string
	}{
		{
			name:  "identical block is kept once",
			held:  []segment.Block{block("main", []int{1, 2, 1}, models.SectionArticle, feed)},
			fresh: []segment.Block{block("main", []int{1, 2, 1}, models.SectionArticle, feed)},
			want:  []string{feed},
		},
		{
			name:  "grown block replaces its earlier version",
			held:  []segment.Block{block("main", []int{1, 2, 1}, models.SectionArticle, feed)},
			fresh: []segment.Block{block("main", []int{1, 2, 1}, models.SectionArticle, grown)},
			want:  []string{grown},
		},
		{
			name:  "shrunk block is dropped",
			held:  []segment.Block{block("main", []int{1, 2, 1}, models.SectionArticle, grown)},
			fresh: []segment.Block{block("main", []int{1, 2, 1}, models.SectionArticle, feed)},
			want:  []string{grown},
		},
		{
			name: "new content at the same key is inserted after it",
			held: []segment.Block{
				block("section", []int{1, 2, 1}, models.SectionArticle, "Monthly billing costs ten dollars"),
				block("footer", []int{1, 2, 2}, models.SectionFooter, "Contact"),
			},
			fresh: []segment.Block{block("section", []int{1, 2, 1}, models.SectionArticle, "Yearly billing costs one hundred dollars")},
			want: []string{
				"Monthly billing costs ten dollars",
				"Yearly billing costs one hundred dollars",
				"Contact",
			},
		},
		{
			name:  "earlier block is inserted in document order",
			held:  []segment.Block{block("main", []int{1, 2, 2}, models.SectionArticle, feed)},
			fresh: []segment.Block{block("nav", []int{1, 2, 1}, models.SectionNav, nav)},
			want:  []string{nav, feed},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeBlocks(tt.held, tt.fresh)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d blocks, want %d", len(got), len(tt.want))
			}
			for i, b := range got {
				if b.Content.Text != tt.want[i] {
					t.Errorf("block %d = %q, want %q", i, b.Content.Text, tt.want[i])
				}
			}
		})
	}
}

func TestCovers(t *testing.T) {
	tests := []struct {
		outer, inner string
		want         bool
	}{
		{"a b c d e", "a b c", true},
		{"a b c", "a b c d e", false},
		{"anything", "", true},
		{"Load More", "load more", true},
		{"one two three", "four five six", false},
	}
	for _, tt := range tests {
		if got := covers(tt.outer, tt.inner); got != tt.want {
			t.Errorf("covers(%q, %q) = %v, want %v", tt.outer, tt.inner, got, tt.want)
		}
	}
}
