package export

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/piwi3910/Palletizer/internal/model"
	"github.com/piwi3910/Palletizer/internal/pallet"
)

// PackLog records a pallet's boxes after every placement. Each snapshot is
// a "pallet <id> boxes=<n>" line followed by one
// "id x y z width depth height" line per box and a blank line.
type PackLog struct {
	mu sync.Mutex
	w  io.Writer
}

var _ pallet.Snapshotter = (*PackLog)(nil)

// NewPackLog creates a packed-box log writing to w.
func NewPackLog(w io.Writer) *PackLog {
	return &PackLog{w: w}
}

// Snapshot writes the current boxes of a pallet.
func (l *PackLog) Snapshot(palletID string, boxes []model.Box) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bw := bufio.NewWriter(l.w)
	fmt.Fprintf(bw, "pallet %s boxes=%d\n", palletID, len(boxes))
	for _, b := range boxes {
		if b.Position == nil {
			continue
		}
		p := *b.Position
		fmt.Fprintf(bw, "%s %d %d %d %d %d %d\n", b.ID, p.X, p.Y, p.Z, b.Dims.Width, b.Dims.Depth, b.Dims.Height)
	}
	bw.WriteByte('\n')
	return bw.Flush()
}
