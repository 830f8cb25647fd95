package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TagCount is one entry of a cluster's tag tally. Tallies preserve
// insertion order (cluster traversal order, then per-note tag order), which
// is what makes tie-breaking deterministic.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Suggestion is a proposed normalization for one cluster: the member notes,
// the full tag tally, and the tag the engine would keep by default. It is
// display-only and never persisted.
type Suggestion struct {
	NoteIDs       []int64    `json:"note_ids"`
	NoteTitles    []string   `json:"note_titles"`
	Tags          []TagCount `json:"tags"`
	MostCommonTag string     `json:"most_common_tag"`
}

// Alternative is one operator choice: keep one tag, replace all the others
// present in the cluster.
type Alternative struct {
	Keep    string   `json:"keep"`
	Count   int      `json:"count"`
	Replace []string `json:"replace"`
}

// GenerateSuggestions tallies tag usage per cluster. A note carrying two
// tags contributes to two counts. Clusters with a single distinct tag have
// nothing to normalize and yield no suggestion.
func GenerateSuggestions(clusters []Cluster) []Suggestion {
	var suggestions []Suggestion

	for _, cluster := range clusters {
		tally := tallyTags(cluster)
		if len(tally) <= 1 {
			continue
		}

		s := Suggestion{
			NoteIDs:       cluster.NoteIDs(),
			Tags:          tally,
			MostCommonTag: mostCommon(tally),
		}
		for _, n := range cluster {
			s.NoteTitles = append(s.NoteTitles, n.Title)
		}
		suggestions = append(suggestions, s)
	}

	return suggestions
}

// tallyTags counts tag occurrences across the cluster, preserving
// first-encountered order.
func tallyTags(cluster Cluster) []TagCount {
	index := make(map[string]int)
	var tally []TagCount

	for _, note := range cluster {
		for _, tag := range note.Tags {
			if i, ok := index[tag]; ok {
				tally[i].Count++
				continue
			}
			index[tag] = len(tally)
			tally = append(tally, TagCount{Name: tag, Count: 1})
		}
	}

	return tally
}

// mostCommon picks the highest count; ties go to the tag encountered first.
func mostCommon(tally []TagCount) string {
	best := tally[0]
	for _, tc := range tally[1:] {
		if tc.Count > best.Count {
			best = tc
		}
	}
	return best.Name
}

// OtherTags returns every distinct tag in the cluster except keep, in tally
// order. An empty keep means the most common tag.
func (s *Suggestion) OtherTags(keep string) []string {
	if keep == "" {
		keep = s.MostCommonTag
	}
	var others []string
	for _, tc := range s.Tags {
		if tc.Name != keep {
			others = append(others, tc.Name)
		}
	}
	return others
}

// Alternatives enumerates one keep/replace option per distinct tag in the
// cluster, ordered by descending count then tag name. This enumeration is
// the contract the operator-facing command templates are built from.
func (s *Suggestion) Alternatives() []Alternative {
	sorted := make([]TagCount, len(s.Tags))
	copy(sorted, s.Tags)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Name < sorted[j].Name
	})

	alts := make([]Alternative, len(sorted))
	for i, tc := range sorted {
		alts[i] = Alternative{
			Keep:    tc.Name,
			Count:   tc.Count,
			Replace: s.OtherTags(tc.Name),
		}
	}
	return alts
}

// String renders the suggestion in the operator-facing shape: the member
// notes, current tag usage, and one runnable command template per keepable
// tag.
func (s *Suggestion) String() string {
	var sb strings.Builder

	sb.WriteString("Found a group of similar notes with different tags:\n")
	fmt.Fprintf(&sb, "    Notes (%d):\n", len(s.NoteIDs))
	for _, title := range s.NoteTitles {
		fmt.Fprintf(&sb, "      • %s\n", title)
	}

	sb.WriteString("\n    Current tag usage:\n")
	for _, alt := range s.Alternatives() {
		fmt.Fprintf(&sb, "      • %s (%d notes)\n", alt.Keep, alt.Count)
	}

	sb.WriteString("\n    Options to normalize these tags:\n")

	ids := make([]string, len(s.NoteIDs))
	for i, id := range s.NoteIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	idList := strings.Join(ids, ",")

	for _, alt := range s.Alternatives() {
		quoted := make([]string, len(alt.Replace))
		for i, t := range alt.Replace {
			quoted[i] = strconv.Quote(t)
		}
		fmt.Fprintf(&sb, "\n    # To keep '%s' and replace others:\n", alt.Keep)
		fmt.Fprintf(&sb, "    notable normalize --note-ids %s --keep-tag %q --replace-tags %s\n",
			idList, alt.Keep, strings.Join(quoted, ","))
	}

	return sb.String()
}
