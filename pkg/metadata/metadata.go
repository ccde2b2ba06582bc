package metadata

import (
	"regexp"
	"strings"

	"github.com/xhad/ackaudit/internal/models"
	"github.com/xhad/ackaudit/pkg/layout"
	"github.com/xhad/ackaudit/pkg/sentence"
)

// Extraction is heuristic and best effort. Anything that cannot be found is
// left zero-valued rather than guessed.

const (
	// The title lives in the top portion of the first page.
	titleBandFraction = 0.35
	// Author lines sit between the title and roughly this y coordinate.
	authorBandBottom = 220.0
)

var (
	doiPattern  = regexp.MustCompile(`(?i)10\.\d{4,9}/[-._;()/:A-Z0-9]+`)
	yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	authorMarkers = regexp.MustCompile(`[\*\d†‡§#]+`)
	authorSplit   = regexp.MustCompile(`,|;| and `)

	// Instrument acronyms are matched case-sensitively; a lowercase "sem"
	// inside a word must not count.
	acronymPattern = regexp.MustCompile(`\b(SEM|TEM|STEM|AFM|XRD|NMR|FTIR|SIMS|EBSD|EDS|XPS|MRI)\b`)
	vendorPattern  = regexp.MustCompile(`(?i)\b(Raman|Zeiss|JEOL|FEI|Bruker|Hitachi|Olympus|Leica|Nikon|Tescan|Thermo Fisher|Oxford Instruments|confocal|cryo-EM|microprobe|flow cytometry|mass spectrometry)\b`)
)

// Extract pulls bibliographic fields out of the document. The title is the
// largest text near the top of page one, authors are short name-like tokens
// just below it, and DOI, year, and instrument mentions are found anywhere.
func Extract(pages []models.Page) models.Metadata {
	meta := models.Metadata{Pages: len(pages)}
	if len(pages) == 0 {
		return meta
	}

	first := pages[0]
	titleLines, titleBottom := findTitle(first)
	meta.Title = strings.Join(titleLines, " ")
	meta.Authors = findAuthors(first, titleBottom)

	var sb strings.Builder
	for _, p := range pages {
		text, _ := sentence.PageText(p, layout.Config{})
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	full := sb.String()

	if m := doiPattern.FindString(full); m != "" {
		meta.DOI = strings.TrimRight(m, ".,;")
	}
	if m := yearPattern.FindString(full); m != "" {
		meta.Year = m
	}
	meta.Instruments = findInstruments(full)

	return meta
}

// findTitle returns the texts of the most prominent lines in the top band of
// the page, plus the bottom edge of the last title line.
func findTitle(p models.Page) ([]string, float64) {
	band := titleBandFraction * p.Height

	var maxSize float64
	for _, b := range p.Blocks {
		for _, ln := range b.Lines {
			if ln.BBox().Y0 >= band {
				continue
			}
			for _, sp := range ln.Spans {
				if sp.Size > maxSize {
					maxSize = sp.Size
				}
			}
		}
	}
	if maxSize == 0 {
		return nil, 0
	}

	var titles []string
	var bottom float64
	for _, b := range p.Blocks {
		for _, ln := range b.Lines {
			bb := ln.BBox()
			if bb.Y0 >= band {
				continue
			}
			for _, sp := range ln.Spans {
				if sp.Size >= maxSize-0.1 {
					if t := ln.Text(); t != "" {
						titles = append(titles, t)
						if bb.Y1 > bottom {
							bottom = bb.Y1
						}
					}
					break
				}
			}
		}
	}
	return titles, bottom
}

func findAuthors(p models.Page, titleBottom float64) []string {
	if titleBottom == 0 {
		return nil
	}

	var authors []string
	seen := make(map[string]struct{})
	for _, b := range p.Blocks {
		for _, ln := range b.Lines {
			y0 := ln.BBox().Y0
			if y0 <= titleBottom || y0 > authorBandBottom {
				continue
			}
			text := ln.Text()
			// Affiliation and correspondence lines carry email addresses.
			if strings.Contains(text, "@") {
				continue
			}
			for _, tok := range authorSplit.Split(text, -1) {
				name := strings.TrimSpace(authorMarkers.ReplaceAllString(tok, ""))
				if name == "" {
					continue
				}
				words := len(strings.Fields(name))
				if words < 2 || words > 5 {
					continue
				}
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}
				authors = append(authors, name)
			}
		}
	}
	return authors
}

func findInstruments(text string) []string {
	var found []string
	seen := make(map[string]struct{})

	add := func(name string) {
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		found = append(found, name)
	}

	for _, m := range acronymPattern.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range vendorPattern.FindAllString(text, -1) {
		add(m)
	}
	return found
}
