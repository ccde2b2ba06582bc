package highlight

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/reader"

	"github.com/xhad/ackaudit/internal/models"
	"github.com/xhad/ackaudit/pkg/layout"
)

func testPage(lines ...string) models.Page {
	p := models.Page{Number: 1, Width: 612, Height: 792}
	for i, t := range lines {
		y := float64(100 + i*20)
		bb := models.BBox{X0: 72, Y0: y, X1: 72 + float64(len(t))*6, Y1: y + 12}
		p.Blocks = append(p.Blocks, models.TextBlock{
			Lines: []models.Line{{Spans: []models.Span{{Text: t, BBox: bb, Size: 10}}}},
			BBox:  bb,
		})
	}
	return p
}

func TestLocateSingleLine(t *testing.T) {
	page := testPage("We thank CMCA for access. More text follows.")
	rec := models.SentenceRecord{ID: "S001-00001", Page: 1, Text: "We thank CMCA for access."}

	boxes := Locate([]models.Page{page}, rec, layout.Config{})
	require.Len(t, boxes, 1)

	line := page.Blocks[0].BBox
	assert.InDelta(t, line.X0, boxes[0].X0, 0.001)
	assert.Less(t, boxes[0].X1, line.X1)
	assert.Equal(t, line.Y0, boxes[0].Y0)
}

func TestLocateAcrossLines(t *testing.T) {
	page := testPage("The authors thank the", "facility for assistance. Next.")
	rec := models.SentenceRecord{ID: "S001-00001", Page: 1, Text: "The authors thank the\nfacility for assistance."}

	boxes := Locate([]models.Page{page}, rec, layout.Config{})
	require.Len(t, boxes, 2)
	assert.InDelta(t, 100, boxes[0].Y0, 0.001)
	assert.InDelta(t, 120, boxes[1].Y0, 0.001)
}

func TestLocateMissingText(t *testing.T) {
	page := testPage("Completely different content.")
	rec := models.SentenceRecord{ID: "S001-00001", Page: 1, Text: "We thank CMCA."}

	assert.Empty(t, Locate([]models.Page{page}, rec, layout.Config{}))
}

func TestLocateWrongPage(t *testing.T) {
	page := testPage("We thank CMCA.")
	rec := models.SentenceRecord{ID: "S002-00001", Page: 2, Text: "We thank CMCA."}

	assert.Empty(t, Locate([]models.Page{page}, rec, layout.Config{}))
}

func TestLocateRepeatedText(t *testing.T) {
	page := testPage("Thanks. Later on the page: Thanks.")
	rec := models.SentenceRecord{ID: "S001-00001", Page: 1, Text: "Thanks."}

	boxes := Locate([]models.Page{page}, rec, layout.Config{})
	assert.Len(t, boxes, 2)
}

func TestApplySkipsUnknownIDAndReturnsOriginal(t *testing.T) {
	page := testPage("We thank CMCA.")
	original := []byte("%PDF-1.4 not really a pdf")
	svc := New(nil, layout.Config{})

	out := svc.Apply(original, []models.Page{page}, nil, []string{"S999-00001"})
	assert.Equal(t, original, out)
}

func TestApplyReturnsOriginalOnWriteFailure(t *testing.T) {
	// The sentence locates fine but the bytes are not a writable PDF, so the
	// annotator fails and the original comes back untouched.
	page := testPage("We thank CMCA.")
	rec := models.SentenceRecord{ID: "S001-00001", Page: 1, Text: "We thank CMCA."}
	original := []byte("%PDF-1.4 garbage body")

	svc := New(nil, layout.Config{})
	out := svc.Apply(original, []models.Page{page}, []models.SentenceRecord{rec}, []string{"S001-00001"})
	assert.Equal(t, original, out)
}

// minimalPDF builds a one-page document with a classic cross-reference table,
// tracking object offsets the same way a writer would.
func minimalPDF() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, 4)
	write := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	write(1, "<< /Type /Catalog /Pages 2 0 R >>")
	write(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	write(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")

	xrefStart := buf.Len()
	buf.WriteString("xref\n0 4\n")
	buf.WriteString("0000000000 65535 f\r\n")
	for num := 1; num <= 3; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Root 1 0 R /Size 4 >>\nstartxref\n%d\n%%%%EOF\n", xrefStart)
	return buf.Bytes()
}

func TestAnnotateAddsHighlight(t *testing.T) {
	original := minimalPDF()

	out, err := annotate(original, map[int][]pdfRect{
		1: {{LLX: 100, LLY: 600, URX: 300, URY: 620}},
	})
	require.NoError(t, err)
	// Incremental update only appends.
	assert.True(t, bytes.HasPrefix(out, original))

	path := filepath.Join(t.TempDir(), "annotated.pdf")
	require.NoError(t, os.WriteFile(path, out, 0o644))

	r, err := reader.Open(path)
	require.NoError(t, err)
	defer r.Close()

	obj, err := r.GetObject(3)
	require.NoError(t, err)
	page, ok := obj.(core.Dict)
	require.True(t, ok)

	annots, ok := page.GetArray("Annots")
	require.True(t, ok, "page must gain an /Annots array")
	require.Equal(t, 1, annots.Len())

	ref, ok := annots.Get(0).(core.IndirectRef)
	require.True(t, ok)
	annotObj, err := r.GetObject(ref.Number)
	require.NoError(t, err)
	annot, ok := annotObj.(core.Dict)
	require.True(t, ok)

	subtype, ok := annot.GetName("Subtype")
	require.True(t, ok)
	assert.Equal(t, "Highlight", string(subtype))

	rect, ok := annot.GetArray("Rect")
	require.True(t, ok)
	assert.Equal(t, 4, rect.Len())
	quads, ok := annot.GetArray("QuadPoints")
	require.True(t, ok)
	assert.Equal(t, 8, quads.Len())
}

func TestSerializeDeterministic(t *testing.T) {
	d := core.Dict{
		"Type":    core.Name("Annot"),
		"Subtype": core.Name("Highlight"),
		"F":       core.Int(4),
		"Rect":    core.Array{core.Real(1), core.Real(2), core.Real(3), core.Real(4)},
	}

	got, err := serialize(d)
	require.NoError(t, err)
	assert.Equal(t, "<< /F 4 /Rect [1.0000 2.0000 3.0000 4.0000] /Subtype /Highlight /Type /Annot >>", got)
}

func TestQuadArrayCorners(t *testing.T) {
	q := quadArray(pdfRect{LLX: 10, LLY: 20, URX: 110, URY: 32})
	require.Len(t, q, 8)
	// Top edge first, then bottom edge.
	assert.Equal(t, core.Real(32), q[1])
	assert.Equal(t, core.Real(32), q[3])
	assert.Equal(t, core.Real(20), q[5])
	assert.Equal(t, core.Real(20), q[7])
}

func TestLastStartXref(t *testing.T) {
	data := []byte("%PDF-1.4\n...\nstartxref\n123\n%%EOF\nmore\nstartxref\n4567\n%%EOF\n")
	off, err := lastStartXref(data)
	require.NoError(t, err)
	assert.Equal(t, int64(4567), off)

	_, err = lastStartXref([]byte("no marker here"))
	assert.Error(t, err)
}
