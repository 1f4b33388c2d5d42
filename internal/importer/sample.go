package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/piwi3910/Palletizer/internal/model"
)

// SampleOptions shapes a generated box list. Heights are drawn from a few
// families so the boxes cluster into layers the way real shipments do.
type SampleOptions struct {
	Count     int // number of distinct box lines
	MinSide   int
	MaxSide   int
	Heights   int // number of height families
	MaxWeight int
	MaxQty    int // each line is repeated 1..MaxQty times on import
}

// DefaultSampleOptions returns options producing carton-sized boxes for a
// 1200 x 800 pallet.
func DefaultSampleOptions() SampleOptions {
	return SampleOptions{
		Count:     40,
		MinSide:   150,
		MaxSide:   600,
		Heights:   4,
		MaxWeight: 25,
		MaxQty:    4,
	}
}

// SampleLine is one generated row: a box and how many copies of it to ship.
type SampleLine struct {
	Box      model.Box
	Quantity int
}

// GenerateSample produces a reproducible box list for the given seed.
func GenerateSample(seed int64, opts SampleOptions) ([]SampleLine, error) {
	if opts.Count <= 0 {
		return nil, fmt.Errorf("count must be positive")
	}
	if opts.MinSide <= 0 || opts.MaxSide < opts.MinSide {
		return nil, fmt.Errorf("invalid side range %d..%d", opts.MinSide, opts.MaxSide)
	}
	opts.Heights = max(opts.Heights, 1)
	opts.MaxWeight = max(opts.MaxWeight, 1)
	opts.MaxQty = max(opts.MaxQty, 1)

	f := gofakeit.New(uint64(seed))

	heights := make([]int, opts.Heights)
	for i := range heights {
		heights[i] = roundTo(f.IntRange(opts.MinSide, opts.MaxSide), 5)
	}

	lines := make([]SampleLine, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		id := fmt.Sprintf("%s-%03d", strings.ToUpper(f.LetterN(3)), i+1)
		b := model.NewBox(id,
			roundTo(f.IntRange(opts.MinSide, opts.MaxSide), 5),
			roundTo(f.IntRange(opts.MinSide, opts.MaxSide), 5),
			f.RandomInt(heights),
			f.IntRange(1, opts.MaxWeight),
		)
		lines = append(lines, SampleLine{Box: b, Quantity: f.IntRange(1, opts.MaxQty)})
	}
	return lines, nil
}

// WriteSampleCSV writes lines in the format ImportCSV reads.
func WriteSampleCSV(w io.Writer, lines []SampleLine) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "width", "depth", "height", "weight", "quantity"}); err != nil {
		return err
	}
	for _, l := range lines {
		d := l.Box.Dims
		row := []string{
			l.Box.ID,
			strconv.Itoa(d.Width),
			strconv.Itoa(d.Depth),
			strconv.Itoa(d.Height),
			strconv.Itoa(l.Box.Weight),
			strconv.Itoa(l.Quantity),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func roundTo(v, step int) int {
	r := (v + step/2) / step * step
	if r < step {
		return step
	}
	return r
}
