package layout

import (
	"sort"

	"github.com/xhad/ackaudit/internal/models"
)

// Config bounds the two-column test. Zero values fall back to the defaults
// used throughout the pipeline.
type Config struct {
	// MinColumnBlocks is the minimum number of blocks each column must hold
	// before the page is treated as two-column.
	MinColumnBlocks int
	// GapFraction is the minimum separation between column centers as a
	// fraction of page width.
	GapFraction float64
}

const (
	defaultMinColumnBlocks = 4
	defaultGapFraction     = 0.18
)

// Resolve infers the column structure of a page from the horizontal centers
// of its text blocks. The centers are split at their median; the page is
// two-column only when both halves are well populated and their means sit far
// enough apart.
func Resolve(page models.Page, cfg Config) models.ColumnLayout {
	if cfg.MinColumnBlocks == 0 {
		cfg.MinColumnBlocks = defaultMinColumnBlocks
	}
	if cfg.GapFraction == 0 {
		cfg.GapFraction = defaultGapFraction
	}

	centers := make([]float64, 0, len(page.Blocks))
	for _, b := range page.Blocks {
		centers = append(centers, b.BBox.CenterX())
	}

	if len(centers) < 2*cfg.MinColumnBlocks || page.Width <= 0 {
		return singleColumn(centers)
	}

	sorted := append([]float64(nil), centers...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]

	var left, right []float64
	for _, c := range centers {
		if c < median {
			left = append(left, c)
		} else {
			right = append(right, c)
		}
	}

	if len(left) < cfg.MinColumnBlocks || len(right) < cfg.MinColumnBlocks {
		return singleColumn(centers)
	}

	leftMean := mean(left)
	rightMean := mean(right)
	if rightMean-leftMean < cfg.GapFraction*page.Width {
		return singleColumn(centers)
	}

	return models.ColumnLayout{
		TwoColumn: true,
		Centers:   []float64{leftMean, rightMean},
		SplitX:    (leftMean + rightMean) / 2,
	}
}

func singleColumn(centers []float64) models.ColumnLayout {
	if len(centers) == 0 {
		return models.ColumnLayout{Centers: []float64{0}}
	}
	return models.ColumnLayout{Centers: []float64{mean(centers)}}
}

// Order returns the page's blocks in reading order. Single-column pages read
// top to bottom; two-column pages read the whole left column before the
// right one.
func Order(page models.Page, lay models.ColumnLayout) []models.TextBlock {
	blocks := append([]models.TextBlock(nil), page.Blocks...)

	byPosition := func(bs []models.TextBlock) {
		sort.SliceStable(bs, func(i, j int) bool {
			if bs[i].BBox.Y0 != bs[j].BBox.Y0 {
				return bs[i].BBox.Y0 < bs[j].BBox.Y0
			}
			return bs[i].BBox.X0 < bs[j].BBox.X0
		})
	}

	if !lay.TwoColumn {
		byPosition(blocks)
		return blocks
	}

	var left, right []models.TextBlock
	for _, b := range blocks {
		if b.BBox.CenterX() < lay.SplitX {
			left = append(left, b)
		} else {
			right = append(right, b)
		}
	}
	byPosition(left)
	byPosition(right)
	return append(left, right...)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
