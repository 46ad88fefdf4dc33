package citation

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestFormatAuthorsAPASingle(t *testing.T) {
	got := FormatAuthorsAPA([]Author{{Family: "Turing", Given: "Alan"}})
	assert.Equal(t, "Turing, A.", got)
}

func TestFormatAuthorsAPATwo(t *testing.T) {
	got := FormatAuthorsAPA([]Author{
		{Family: "Hopper", Given: "Grace"},
		{Family: "Lovelace", Given: "Ada"},
	})
	assert.Equal(t, "Hopper, G., & Lovelace, A.", got)
}

func TestFormatAuthorsAPAMultipleGivenNames(t *testing.T) {
	got := FormatAuthorsAPA([]Author{{Family: "Knuth", Given: "Donald Ervin"}})
	assert.Equal(t, "Knuth, D.E.", got)
}

func TestFormatAuthorsAPAMultibyteInitial(t *testing.T) {
	got := FormatAuthorsAPA([]Author{{Family: "Zola", Given: "Émile"}})
	assert.Equal(t, "Zola, É.", got)
	assert.True(t, utf8.ValidString(got))
}

func TestFormatAuthorsAPAEmpty(t *testing.T) {
	assert.Equal(t, "Anonymous", FormatAuthorsAPA(nil))
}

func TestFormatAuthorsAPATwentyAuthorsKeepsAll(t *testing.T) {
	authors := make([]Author, 20)
	for i := range authors {
		authors[i] = Author{Family: fmt.Sprintf("Name%d", i+1), Given: "X"}
	}
	got := FormatAuthorsAPA(authors)

	assert.Contains(t, got, ", & Name20, X.")
	assert.NotContains(t, got, "...")
	assert.Contains(t, got, "Name19, X.")
}

func TestFormatAuthorsAPATwentyFiveAuthorsTruncates(t *testing.T) {
	authors := make([]Author, 25)
	for i := range authors {
		authors[i] = Author{Family: fmt.Sprintf("Name%d", i+1), Given: "X"}
	}
	got := FormatAuthorsAPA(authors)

	assert.True(t, strings.HasSuffix(got, ", ... Name25, X."), got)
	assert.Contains(t, got, "Name19, X.")
	assert.NotContains(t, got, "Name20, X.")
	assert.NotContains(t, got, "&")
}

func TestDatePartsYear(t *testing.T) {
	assert.Equal(t, 2023, DateParts{DateParts: [][]int{{2023, 5, 1}}}.Year())
	assert.Equal(t, 0, DateParts{}.Year())
	assert.Equal(t, 0, DateParts{DateParts: [][]int{{}}}.Year())
}

func TestIsMetadataComplete(t *testing.T) {
	full := Article{
		Author: []Author{{Family: "Doe", Given: "Jane"}},
		Title:  []string{"On Testing"},
		Issued: DateParts{DateParts: [][]int{{2021}}},
	}
	assert.True(t, IsMetadataComplete(full, 0))

	noYear := full
	noYear.Issued = DateParts{}
	assert.False(t, IsMetadataComplete(noYear, 0))
	assert.True(t, IsMetadataComplete(noYear, 1))

	bare := Article{}
	assert.False(t, IsMetadataComplete(bare, 2))
	assert.True(t, IsMetadataComplete(bare, 3))
}

func TestFormatCitationPrefersPrintYear(t *testing.T) {
	a := Article{
		Author:          []Author{{Family: "Doe", Given: "Jane"}},
		Title:           []string{"On Testing"},
		ContainerTitle:  []string{"Journal of Examples"},
		DOI:             "10.1000/xyz123",
		Issued:          DateParts{DateParts: [][]int{{2019}}},
		PublishedPrint:  DateParts{DateParts: [][]int{{2021}}},
		PublishedOnline: DateParts{DateParts: [][]int{{2020}}},
	}
	got := FormatCitation(a)
	assert.Equal(t, "Doe, J. (2021). On Testing. Journal of Examples. https://doi.org/10.1000/xyz123", got)
}

func TestFormatCitationNoDate(t *testing.T) {
	a := Article{
		Author: []Author{{Family: "Doe", Given: "Jane"}},
		Title:  []string{"Undated Work"},
	}
	assert.Equal(t, "Doe, J. (n.d.). Undated Work", FormatCitation(a))
}
