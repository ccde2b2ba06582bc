package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/tabula/text"
)

func frag(s string, x, y, w, h float64) text.TextFragment {
	return text.TextFragment{Text: s, X: x, Y: y, Width: w, Height: h, FontSize: h}
}

func TestBuildPageConvertsToTopOrigin(t *testing.T) {
	// One fragment near the top of a 792pt page in PDF coordinates.
	page := BuildPage(1, 612, 792, []text.TextFragment{
		frag("Title", 100, 760, 120, 12),
	})

	require.Len(t, page.Blocks, 1)
	b := page.Blocks[0].BBox
	assert.InDelta(t, 20.0, b.Y0, 0.001)
	assert.InDelta(t, 32.0, b.Y1, 0.001)
	assert.InDelta(t, 100.0, b.X0, 0.001)
	assert.InDelta(t, 220.0, b.X1, 0.001)
}

func TestBuildPageGroupsSpansOnSharedBaseline(t *testing.T) {
	page := BuildPage(1, 612, 792, []text.TextFragment{
		frag("Hello ", 72, 700, 40, 10),
		frag("world", 112, 700, 35, 10),
		frag("Next line", 72, 685, 60, 10),
	})

	require.Len(t, page.Blocks, 1)
	require.Len(t, page.Blocks[0].Lines, 2)
	assert.Equal(t, "Hello world", page.Blocks[0].Lines[0].Text())
	assert.Equal(t, "Next line", page.Blocks[0].Lines[1].Text())
	assert.Equal(t, "Hello world\nNext line", page.Blocks[0].Text())
}

func TestBuildPageKeepsColumnsApart(t *testing.T) {
	// Two lines at the same height but in separate columns must not merge
	// even though they are vertically adjacent.
	page := BuildPage(1, 612, 792, []text.TextFragment{
		frag("left a", 50, 700, 100, 10),
		frag("left b", 50, 686, 100, 10),
		frag("right a", 340, 700, 100, 10),
		frag("right b", 340, 686, 100, 10),
	})

	require.Len(t, page.Blocks, 2)
	assert.Equal(t, "left a\nleft b", page.Blocks[0].Text())
	assert.Equal(t, "right a\nright b", page.Blocks[1].Text())
}

func TestBuildPageDropsEmptyFragments(t *testing.T) {
	page := BuildPage(3, 612, 792, []text.TextFragment{
		frag("", 50, 700, 0, 10),
		frag("   ", 50, 650, 20, 10),
		frag("real", 50, 600, 30, 10),
	})

	require.Len(t, page.Blocks, 1)
	assert.Equal(t, "real", page.Blocks[0].Text())
	assert.Equal(t, 3, page.Number)
}

func TestDocumentRejectsGarbage(t *testing.T) {
	e := New(nil)

	_, err := e.Document(nil)
	require.Error(t, err)
	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "open", xerr.Stage)

	_, err = e.Document([]byte("not a pdf at all"))
	require.Error(t, err)
}

func TestBuildPageSortsBlocksInReadingOrder(t *testing.T) {
	page := BuildPage(1, 612, 792, []text.TextFragment{
		frag("bottom", 72, 100, 50, 10),
		frag("top", 72, 700, 50, 10),
	})

	require.Len(t, page.Blocks, 2)
	assert.Equal(t, "top", page.Blocks[0].Text())
	assert.Equal(t, "bottom", page.Blocks[1].Text())
	assert.True(t, page.Blocks[0].BBox.Y0 < page.Blocks[1].BBox.Y0)
}
