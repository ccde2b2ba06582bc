package highlight

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/reader"
)

// pdfRect is an annotation rectangle in PDF user space, bottom-left origin.
type pdfRect struct {
	LLX, LLY, URX, URY float64
}

// annotate appends highlight annotations to the PDF as an incremental
// update: new annotation objects, rewritten page dictionaries, a classic
// cross-reference section, and a trailer chained to the previous one via
// /Prev. The original bytes are never modified in place, so a failure at any
// point leaves the caller's copy intact.
func annotate(data []byte, byPage map[int][]pdfRect) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty input")
	}

	tmp, err := os.CreateTemp("", "ackaudit-annot-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	r, err := reader.Open(tmp.Name())
	if err != nil {
		return nil, err
	}
	defer r.Close()

	trailer := r.Trailer()
	if trailer == nil {
		return nil, errors.New("missing trailer")
	}
	if trailer.Has("Encrypt") {
		return nil, errors.New("encrypted documents are not supported")
	}
	rootRef, ok := trailer.GetIndirectRef("Root")
	if !ok {
		return nil, errors.New("trailer has no /Root reference")
	}

	pageRefs, err := collectPageRefs(r)
	if err != nil {
		return nil, err
	}

	xref := r.XRefTable()
	if xref == nil {
		return nil, errors.New("missing cross-reference table")
	}
	maxObj := 0
	for num := range xref.Entries {
		if num > maxObj {
			maxObj = num
		}
	}

	prevStart, err := lastStartXref(data)
	if err != nil {
		return nil, err
	}

	// updated maps object number to (generation, serialized body).
	type updated struct {
		gen  int
		body string
	}
	objects := make(map[int]updated)
	nextObj := maxObj

	pageNums := make([]int, 0, len(byPage))
	for n := range byPage {
		pageNums = append(pageNums, n)
	}
	sort.Ints(pageNums)

	for _, pageNo := range pageNums {
		rects := byPage[pageNo]
		if len(rects) == 0 {
			continue
		}
		if pageNo < 1 || pageNo > len(pageRefs) {
			return nil, fmt.Errorf("page %d out of range", pageNo)
		}
		pageRef := pageRefs[pageNo-1]

		obj, err := r.GetObject(pageRef.Number)
		if err != nil {
			return nil, err
		}
		pageDict, ok := obj.(core.Dict)
		if !ok {
			return nil, fmt.Errorf("page object %d is not a dictionary", pageRef.Number)
		}

		annots, err := existingAnnots(r, pageDict)
		if err != nil {
			return nil, err
		}

		for _, rect := range rects {
			nextObj++
			annot := core.Dict{
				"Type":       core.Name("Annot"),
				"Subtype":    core.Name("Highlight"),
				"Rect":       rectArray(rect),
				"QuadPoints": quadArray(rect),
				"C":          core.Array{core.Real(1), core.Real(1), core.Real(0)},
				"F":          core.Int(4),
			}
			body, err := serialize(annot)
			if err != nil {
				return nil, err
			}
			objects[nextObj] = updated{gen: 0, body: body}
			annots = append(annots, core.IndirectRef{Number: nextObj})
		}

		newPage := core.Dict{}
		for _, k := range pageDict.Keys() {
			newPage[k] = pageDict[k]
		}
		newPage.Set("Annots", annots)

		body, err := serialize(newPage)
		if err != nil {
			return nil, err
		}
		objects[pageRef.Number] = updated{gen: pageRef.Generation, body: body}
	}

	if len(objects) == 0 {
		return data, nil
	}

	// Append the update section.
	var buf bytes.Buffer
	buf.Write(data)
	if data[len(data)-1] != '\n' {
		buf.WriteByte('\n')
	}

	nums := make([]int, 0, len(objects))
	for n := range objects {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	offsets := make(map[int]int64, len(nums))
	for _, n := range nums {
		offsets[n] = int64(buf.Len())
		fmt.Fprintf(&buf, "%d %d obj\n%s\nendobj\n", n, objects[n].gen, objects[n].body)
	}

	xrefStart := int64(buf.Len())
	buf.WriteString("xref\n")
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		fmt.Fprintf(&buf, "%d %d\n", nums[i], j-i+1)
		for k := i; k <= j; k++ {
			fmt.Fprintf(&buf, "%010d %05d n\r\n", offsets[nums[k]], objects[nums[k]].gen)
		}
		i = j + 1
	}

	newTrailer := core.Dict{
		"Size": core.Int(nextObj + 1),
		"Root": rootRef,
		"Prev": core.Int(prevStart),
	}
	if infoRef, ok := trailer.GetIndirectRef("Info"); ok {
		newTrailer.Set("Info", infoRef)
	}
	trailerBody, err := serialize(newTrailer)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", trailerBody, xrefStart)

	return buf.Bytes(), nil
}

// collectPageRefs walks the page tree and returns leaf page references in
// document order.
func collectPageRefs(r *reader.Reader) ([]core.IndirectRef, error) {
	catalog, err := r.GetCatalog()
	if err != nil {
		return nil, err
	}
	pagesRef, ok := catalog.GetIndirectRef("Pages")
	if !ok {
		return nil, errors.New("catalog has no /Pages reference")
	}

	var refs []core.IndirectRef
	var walk func(ref core.IndirectRef) error
	walk = func(ref core.IndirectRef) error {
		obj, err := r.GetObject(ref.Number)
		if err != nil {
			return err
		}
		node, ok := obj.(core.Dict)
		if !ok {
			return fmt.Errorf("page tree node %d is not a dictionary", ref.Number)
		}

		nodeType, _ := node.GetName("Type")
		if nodeType == "Page" {
			refs = append(refs, ref)
			return nil
		}

		kids, ok := node.GetArray("Kids")
		if !ok {
			return fmt.Errorf("page tree node %d has no /Kids", ref.Number)
		}
		for i := 0; i < kids.Len(); i++ {
			kidRef, ok := kids.Get(i).(core.IndirectRef)
			if !ok {
				return fmt.Errorf("page tree node %d has a non-reference kid", ref.Number)
			}
			if err := walk(kidRef); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(pagesRef); err != nil {
		return nil, err
	}
	return refs, nil
}

// existingAnnots returns the page's current annotation references, following
// an indirect /Annots array if present.
func existingAnnots(r *reader.Reader, pageDict core.Dict) (core.Array, error) {
	obj := pageDict.Get("Annots")
	if obj == nil {
		return core.Array{}, nil
	}
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	arr, ok := resolved.(core.Array)
	if !ok {
		return nil, errors.New("/Annots is not an array")
	}
	return append(core.Array{}, arr...), nil
}

func rectArray(rect pdfRect) core.Array {
	return core.Array{
		core.Real(rect.LLX), core.Real(rect.LLY),
		core.Real(rect.URX), core.Real(rect.URY),
	}
}

// quadArray lists the corners top-left, top-right, bottom-left, bottom-right
// as highlight annotations require.
func quadArray(rect pdfRect) core.Array {
	return core.Array{
		core.Real(rect.LLX), core.Real(rect.URY),
		core.Real(rect.URX), core.Real(rect.URY),
		core.Real(rect.LLX), core.Real(rect.LLY),
		core.Real(rect.URX), core.Real(rect.LLY),
	}
}

// lastStartXref finds the byte offset recorded by the final startxref keyword.
func lastStartXref(data []byte) (int64, error) {
	i := bytes.LastIndex(data, []byte("startxref"))
	if i < 0 {
		return 0, errors.New("no startxref found")
	}
	rest := data[i+len("startxref"):]
	fields := strings.Fields(string(rest[:minInt(64, len(rest))]))
	if len(fields) == 0 {
		return 0, errors.New("malformed startxref")
	}
	return strconv.ParseInt(fields[0], 10, 64)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// serialize renders an object in PDF syntax. Dictionary keys are written in
// sorted order so output is deterministic.
func serialize(obj core.Object) (string, error) {
	var sb strings.Builder
	if err := writeObject(&sb, obj); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeObject(sb *strings.Builder, obj core.Object) error {
	switch v := obj.(type) {
	case core.Dict:
		sb.WriteString("<<")
		keys := v.Keys()
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(" /")
			sb.WriteString(k)
			sb.WriteByte(' ')
			if err := writeObject(sb, v[k]); err != nil {
				return err
			}
		}
		sb.WriteString(" >>")
	case core.Array:
		sb.WriteByte('[')
		for i, el := range v {
			if i > 0 {
				sb.WriteByte(' ')
			}
			if err := writeObject(sb, el); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case core.Name:
		sb.WriteByte('/')
		sb.WriteString(string(v))
	case core.Int:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case core.Real:
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', 4, 64))
	case core.String:
		sb.WriteByte('(')
		s := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(string(v))
		sb.WriteString(s)
		sb.WriteByte(')')
	case core.Bool:
		sb.WriteString(strconv.FormatBool(bool(v)))
	case core.Null:
		sb.WriteString("null")
	case core.IndirectRef:
		fmt.Fprintf(sb, "%d %d R", v.Number, v.Generation)
	default:
		return fmt.Errorf("cannot serialize object of type %T", obj)
	}
	return nil
}
