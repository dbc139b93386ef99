package mapper

import (
	"slices"
	"strings"
)

// modelSuffix is the file extension model names conventionally carry.
const modelSuffix = ".mat"

// StripModelSuffix removes a trailing ".mat" from a model name.
func StripModelSuffix(model string) string {
	return strings.TrimSuffix(model, modelSuffix)
}

// FilterSet is a sorted, duplicate-free set of Entrez IDs relevant to a model.
type FilterSet []string

// NewFilterSet builds a FilterSet from ids, dropping empty values.
func NewFilterSet(ids []string) FilterSet {
	set := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			set = append(set, id)
		}
	}
	slices.Sort(set)
	return FilterSet(slices.Compact(set))
}

// Contains reports whether id is a member of the set.
func (s FilterSet) Contains(id string) bool {
	_, ok := slices.BinarySearch(s, id)
	return ok
}

// Len returns the number of IDs in the set.
func (s FilterSet) Len() int {
	return len(s)
}

// ModelColumn returns the index of the header exactly matching model once its
// suffix is stripped.
func ModelColumn(model string, header []string) (int, error) {
	name := StripModelSuffix(model)
	idx := slices.Index(header, name)
	if idx < 0 {
		return -1, Errorf(KindConfig, "resolve model", "unknown model %q", model)
	}
	return idx, nil
}

// ResolveFilter selects the model's column from the filter table and collects
// its non-empty cells.
func ResolveFilter(model string, header []string, rows [][]string) (FilterSet, error) {
	idx, err := ModelColumn(model, header)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if idx < len(row) {
			ids = append(ids, row[idx])
		}
	}
	return NewFilterSet(ids), nil
}
