package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/domain"
	"pdfchat/internal/pdftest"
)

func TestExtract_PagesInOrder(t *testing.T) {
	doc := domain.Document{Name: "greek.pdf", Data: pdftest.Build("Alpha page", "Beta page", "Gamma page")}

	text, err := New(nil).Extract([]domain.Document{doc})
	require.NoError(t, err)

	a := strings.Index(text, "Alpha")
	b := strings.Index(text, "Beta")
	g := strings.Index(text, "Gamma")
	require.True(t, a >= 0 && b >= 0 && g >= 0, "missing page text in %q", text)
	assert.Less(t, a, b)
	assert.Less(t, b, g)
}

func TestExtract_DocumentsInOrder(t *testing.T) {
	docs := []domain.Document{
		{Name: "second.pdf", Data: pdftest.Build("Zulu")},
		{Name: "first.pdf", Data: pdftest.Build("Yankee")},
	}

	text, err := New(nil).Extract(docs)
	require.NoError(t, err)
	assert.Less(t, strings.Index(text, "Zulu"), strings.Index(text, "Yankee"))
}

func TestExtract_EmptyPageContributesNothing(t *testing.T) {
	withBlank := domain.Document{Name: "a.pdf", Data: pdftest.Build("Alpha", "", "Gamma")}
	without := domain.Document{Name: "b.pdf", Data: pdftest.Build("Alpha", "Gamma")}

	e := New(nil)
	got, err := e.Extract([]domain.Document{withBlank})
	require.NoError(t, err)
	want, err := e.Extract([]domain.Document{without})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExtract_CorruptDocumentAbortsBatch(t *testing.T) {
	docs := []domain.Document{
		{Name: "good.pdf", Data: pdftest.Build("fine")},
		{Name: "broken.pdf", Data: []byte("this is not a pdf at all")},
	}

	text, err := New(nil).Extract(docs)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Contains(t, err.Error(), "broken.pdf")
	assert.Empty(t, text)
}

func TestExtract_EmptyBatch(t *testing.T) {
	_, err := New(nil).Extract(nil)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}
