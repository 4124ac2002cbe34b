package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calebwray/interest-radar/internal/domain"
)

func candidateIDs(candidates []domain.Candidate) []string {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.UserID)
	}
	return ids
}

func TestFilterByAffinity(t *testing.T) {
	candidates := []domain.Candidate{
		{UserID: "alice", Tags: []string{"chess", "hiking"}},
		{UserID: "bob", Tags: []string{"hiking"}},
		{UserID: "carol", Tags: []string{"pottery"}},
		{UserID: "dave", Tags: nil},
	}

	tests := []struct {
		name     string
		postTags []string
		want     []string
	}{
		{
			name:     "single shared tag",
			postTags: []string{"chess"},
			want:     []string{"alice"},
		},
		{
			name:     "tag shared by several users",
			postTags: []string{"hiking"},
			want:     []string{"alice", "bob"},
		},
		{
			name:     "any overlap suffices",
			postTags: []string{"pottery", "chess"},
			want:     []string{"alice", "carol"},
		},
		{
			name:     "no overlap",
			postTags: []string{"sailing"},
			want:     nil,
		},
		{
			name:     "empty post tags match no one",
			postTags: nil,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.FilterByAffinity(tt.postTags, candidates)
			assert.ElementsMatch(t, tt.want, candidateIDs(got))
		})
	}
}

func TestFilterByAffinityEmptyTagsNeverBroadcasts(t *testing.T) {
	candidates := []domain.Candidate{
		{UserID: "alice", Tags: []string{"chess"}},
		{UserID: "bob", Tags: []string{"hiking"}},
	}
	assert.Empty(t, domain.FilterByAffinity([]string{}, candidates))
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "lowercases and trims",
			in:   []string{"  Chess ", "HIKING"},
			want: []string{"chess", "hiking"},
		},
		{
			name: "drops empties and dedupes",
			in:   []string{"chess", "", "  ", "Chess", "chess"},
			want: []string{"chess"},
		},
		{
			name: "keeps first occurrence order",
			in:   []string{"b", "a", "B"},
			want: []string{"b", "a"},
		},
		{
			name: "nil input",
			in:   nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.NormalizeTags(tt.in))
		})
	}
}
