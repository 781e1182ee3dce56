// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// BuildReferences derives one reference per document, in document order.
// Citation keys are unique within the returned list.
func BuildReferences(docs []types.Document) []types.ReferenceEntry {
	refs := make([]types.ReferenceEntry, len(docs))
	used := make(map[string]int)

	for i, d := range docs {
		m := d.Metadata
		key := citationKey(m, i)
		if n := used[key]; n > 0 {
			used[key] = n + 1
			key += suffix(n)
		} else {
			used[key] = 1
		}

		authors := append([]string{}, m.Authors...)
		refs[i] = types.ReferenceEntry{
			CitationKey: key,
			Title:       m.Title,
			Authors:     authors,
			Year:        m.Year,
			Source:      m.Source,
			URL:         m.URL,
		}
	}
	return refs
}

// citationKey builds surname+year, falling back to the first title word
// and then to the position.
func citationKey(m types.Metadata, pos int) string {
	base := ""
	if len(m.Authors) > 0 {
		fields := strings.Fields(m.Authors[0])
		if len(fields) > 0 {
			base = keyWord(fields[len(fields)-1])
		}
	}
	if base == "" {
		for _, w := range strings.Fields(m.Title) {
			if base = keyWord(w); len(base) > 3 {
				break
			}
		}
	}
	if base == "" {
		base = "ref" + strconv.Itoa(pos+1)
	}
	if m.Year > 0 {
		base += strconv.Itoa(m.Year)
	}
	return base
}

func keyWord(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// suffix maps 1 to "a", 2 to "b", and so on.
func suffix(n int) string {
	if n <= 26 {
		return string(rune('a' + n - 1))
	}
	return "-" + strconv.Itoa(n)
}

// BibTeX renders refs as BibTeX entries. Database documents become
// @article entries; web documents become @misc entries with their URL.
func BibTeX(refs []types.ReferenceEntry) string {
	var b strings.Builder
	for _, r := range refs {
		kind := "article"
		if r.Source == types.SourceWeb {
			kind = "misc"
		}
		fmt.Fprintf(&b, "@%s{%s,\n", kind, r.CitationKey)
		fmt.Fprintf(&b, "  title = {%s},\n", r.Title)
		if len(r.Authors) > 0 {
			fmt.Fprintf(&b, "  author = {%s},\n", strings.Join(r.Authors, " and "))
		}
		if r.Year > 0 {
			fmt.Fprintf(&b, "  year = {%d},\n", r.Year)
		}
		if r.URL != "" {
			fmt.Fprintf(&b, "  url = {%s},\n", r.URL)
		}
		fmt.Fprintf(&b, "}\n\n")
	}
	return b.String()
}
