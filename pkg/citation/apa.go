package citation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Author is one contributor record as returned by CrossRef.
type Author struct {
	Family string `json:"family"`
	Given  string `json:"given"`
}

// FormatAuthorsAPA renders an author list in APA style: a single author as
// "Last, I.", up to twenty authors comma-joined with an ampersand before the
// last, and longer lists truncated to the first nineteen plus "... " and the
// final author.
func FormatAuthorsAPA(authors []Author) string {
	formatted := make([]string, 0, len(authors))
	for _, a := range authors {
		var initials strings.Builder
		for _, name := range strings.Fields(a.Given) {
			first, _ := utf8.DecodeRuneInString(name)
			initials.WriteRune(first)
			initials.WriteString(".")
		}
		formatted = append(formatted, fmt.Sprintf("%s, %s", a.Family, initials.String()))
	}

	switch {
	case len(formatted) == 0:
		return "Anonymous"
	case len(formatted) == 1:
		return formatted[0]
	case len(formatted) <= 20:
		return strings.Join(formatted[:len(formatted)-1], ", ") + ", & " + formatted[len(formatted)-1]
	default:
		return strings.Join(formatted[:19], ", ") + ", ... " + formatted[len(formatted)-1]
	}
}

// DateParts is CrossRef's nested date representation.
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}

// Year returns the year component, or 0 when absent.
func (d DateParts) Year() int {
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
		return d.DateParts[0][0]
	}
	return 0
}

// Article is one bibliographic record from the CrossRef works API.
type Article struct {
	Author          []Author  `json:"author"`
	Title           []string  `json:"title"`
	ContainerTitle  []string  `json:"container-title"`
	DOI             string    `json:"DOI"`
	URL             string    `json:"URL"`
	Issued          DateParts `json:"issued"`
	PublishedPrint  DateParts `json:"published-print"`
	PublishedOnline DateParts `json:"published-online"`
}

// IsMetadataComplete checks the presence of the essential citation fields.
// Strictness is the number of essential fields allowed to be missing.
func IsMetadataComplete(a Article, strictness int) bool {
	missing := 0
	if len(a.Author) == 0 {
		missing++
	}
	if len(a.Title) == 0 || a.Title[0] == "" {
		missing++
	}
	if a.Issued.Year() == 0 {
		missing++
	}
	return missing <= strictness
}

// FormatCitation renders an article as an APA citation string.
func FormatCitation(a Article) string {
	authors := FormatAuthorsAPA(a.Author)

	year := "n.d."
	for _, d := range []DateParts{a.PublishedPrint, a.PublishedOnline, a.Issued} {
		if y := d.Year(); y != 0 {
			year = fmt.Sprintf("%d", y)
			break
		}
	}

	title := ""
	if len(a.Title) > 0 {
		title = a.Title[0]
	}

	citation := fmt.Sprintf("%s (%s). %s", authors, year, title)
	if len(a.ContainerTitle) > 0 && a.ContainerTitle[0] != "" {
		citation += ". " + a.ContainerTitle[0]
	}
	if a.DOI != "" {
		citation += ". https://doi.org/" + a.DOI
	}
	return citation
}
