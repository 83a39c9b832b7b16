package skills

import "sort"

// NormalizeList normalizes skills and drops empties and duplicates, keeping
// first-seen order.
func NormalizeList(t *Taxonomy, in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		n := t.Normalize(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// NormalizeSet is NormalizeList sorted, the form stored on documents.
func NormalizeSet(t *Taxonomy, in []string) []string {
	out := NormalizeList(t, in)
	sort.Strings(out)
	return out
}
