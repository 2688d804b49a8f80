package collections_test

import (
	"strings"
	"testing"

	"github.com/alkime/journal/pkg/collections"

	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	t.Parallel()

	words := []string{"milk", "eggs", "bread"}
	lengths := collections.Apply(words, func(s string) int {
		return len(s)
	})
	require.Equal(t, []int{4, 4, 5}, lengths)

	require.Empty(t, collections.Apply([]string(nil), strings.ToUpper))
}

func TestFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		items []string
		want  []string
	}{
		{name: "keeps matches in order", items: []string{"live", "", "fallback", ""}, want: []string{"live", "fallback"}},
		{name: "nothing matches", items: []string{"", ""}, want: nil},
		{name: "nil input", items: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := collections.Filter(tt.items, func(s string) bool { return s != "" })
			require.Equal(t, tt.want, got)
		})
	}
}
