package mapper

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripModelSuffix(t *testing.T) {
	assert.Equal(t, "MT_recon_2_2_entrez", StripModelSuffix("MT_recon_2_2_entrez.mat"))
	assert.Equal(t, "MT_iHsa", StripModelSuffix("MT_iHsa"))
	assert.Equal(t, "a.mat.b", StripModelSuffix("a.mat.b"))
}

func TestNewFilterSet(t *testing.T) {
	set := NewFilterSet([]string{"3098", "", "226", "3098", "1431", ""})

	assert.Equal(t, FilterSet{"1431", "226", "3098"}, set)
	assert.True(t, slices.IsSorted(set))
	assert.True(t, set.Contains("226"))
	assert.False(t, set.Contains(""))
	assert.False(t, set.Contains("9999"))
	assert.Equal(t, 3, set.Len())
}

func TestNewFilterSet_Idempotent(t *testing.T) {
	set := NewFilterSet([]string{"5", "3", "5", "1"})
	again := NewFilterSet(set)
	assert.Equal(t, set, again)
}

func TestResolveFilter(t *testing.T) {
	header := []string{"modelA", "modelB"}
	rows := [][]string{
		{"200", "300"},
		{"100", ""},
		{"200", ""},
		{"", ""},
	}

	set, err := ResolveFilter("modelA.mat", header, rows)
	require.NoError(t, err)
	assert.Equal(t, FilterSet{"100", "200"}, set)

	set, err = ResolveFilter("modelB", header, rows)
	require.NoError(t, err)
	assert.Equal(t, FilterSet{"300"}, set)
}

func TestResolveFilter_UnknownModel(t *testing.T) {
	_, err := ResolveFilter("nope.mat", []string{"modelA"}, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfig))
	assert.Contains(t, err.Error(), "nope.mat")
}

func TestResolveFilter_NoFuzzyMatch(t *testing.T) {
	_, err := ResolveFilter("modela", []string{"modelA"}, nil)
	assert.True(t, IsKind(err, KindConfig))
}

func TestResolveFilter_ShortRows(t *testing.T) {
	set, err := ResolveFilter("b", []string{"a", "b"}, [][]string{{"1"}, {"2", "3"}})
	require.NoError(t, err)
	assert.Equal(t, FilterSet{"3"}, set)
}
