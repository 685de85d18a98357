package chunker

import (
	"sort"
	"strconv"
	"strings"
)

// pageLocator maps chunk text back to the page marker preceding it in the
// marked full text. It searches forward from the last hit so repeated
// boilerplate does not pull later chunks back to an earlier page.
type pageLocator struct {
	marked      string
	offsets     []int // marker start offsets, ascending
	pages       []int // page number of each marker
	prefixChars int
	cursor      int
}

func newPageLocator(marked string, prefixChars int) *pageLocator {
	l := &pageLocator{marked: marked, prefixChars: prefixChars}
	for _, m := range pageMarker.FindAllStringSubmatchIndex(marked, -1) {
		page, err := strconv.Atoi(marked[m[2]:m[3]])
		if err != nil {
			continue
		}
		l.offsets = append(l.offsets, m[0])
		l.pages = append(l.pages, page)
	}
	return l
}

// locate returns the page of the chunk starting with firstSentence.
// Unlocatable text defaults to page 1.
func (l *pageLocator) locate(firstSentence string) int {
	prefix := truncateRunes(firstSentence, l.prefixChars)
	if prefix == "" {
		return 1
	}

	pos := -1
	if idx := strings.Index(l.marked[l.cursor:], prefix); idx >= 0 {
		pos = l.cursor + idx
	} else if idx := strings.Index(l.marked, prefix); idx >= 0 {
		pos = idx
	}
	if pos < 0 {
		return 1
	}
	l.cursor = pos

	// Highest marker strictly before pos
	i := sort.SearchInts(l.offsets, pos)
	if i == 0 {
		return 1
	}
	return l.pages[i-1]
}
