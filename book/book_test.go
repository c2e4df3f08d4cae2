package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBook() *Book {
	return &Book{
		ID:   "b1",
		Slug: "some-book-en",
		Chapters: []Chapter{
			{ID: "c0", OrderNo: 0, Title: "Intro"},
			{ID: "c1", OrderNo: 1, Title: "One"},
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validBook().Validate())

	b := validBook()
	b.ID = ""
	var schemaErr *SchemaError
	require.ErrorAs(t, b.Validate(), &schemaErr)
	assert.Equal(t, "id", schemaErr.Field)

	b = validBook()
	b.Slug = ""
	require.Error(t, b.Validate())

	b = validBook()
	b.Chapters = nil
	require.Error(t, b.Validate())

	b = validBook()
	b.Chapters[1].OrderNo = 0
	require.ErrorAs(t, b.Validate(), &schemaErr)
	assert.Equal(t, "chapters", schemaErr.Field)
}

func TestChapterByOrderNo(t *testing.T) {
	// order_no values are neither contiguous nor sorted; lookup must
	// search by key, not index by position.
	b := &Book{
		Chapters: []Chapter{
			{ID: "a", OrderNo: 7},
			{ID: "b", OrderNo: 2},
			{ID: "c", OrderNo: 5},
		},
	}

	ch := b.ChapterByOrderNo(5)
	require.NotNil(t, ch)
	assert.Equal(t, "c", ch.ID)

	assert.Nil(t, b.ChapterByOrderNo(3))
}

func TestMigrateEmbeddedText(t *testing.T) {
	t.Run("all chapters embedded", func(t *testing.T) {
		b := &Book{Chapters: []Chapter{
			{OrderNo: 0, Text: "<p>hello</p>"},
			{OrderNo: 1, Text: "<p>world</p>"},
		}}
		assert.False(t, b.MigrateEmbeddedText())
		assert.Equal(t, "<p>hello</p>", b.Chapters[0].Content)
		assert.Empty(t, b.Chapters[0].Text)
	})

	t.Run("any bare chapter forces a scrape", func(t *testing.T) {
		b := &Book{Chapters: []Chapter{
			{OrderNo: 0, Text: "<p>hello</p>"},
			{OrderNo: 1},
		}}
		assert.True(t, b.MigrateEmbeddedText())
		// embedded text is still migrated for the chapters that have it
		assert.Equal(t, "<p>hello</p>", b.Chapters[0].Content)
	})
}
