package chunker

import (
	"fmt"

	"github.com/WessleyAI/rizz-engine/engine/domain"
)

// Window is one overlapping slice of transcript lines. Start is a 0-based
// index and End is exclusive, so lines[Start:End] is the window text.
type Window struct {
	Number int
	Start  int
	End    int
}

// StartLine is the 1-based first line of the window.
func (w Window) StartLine() int { return w.Start + 1 }

// EndLine is the 1-based last line of the window, inclusive.
func (w Window) EndLine() int { return w.End }

// Windows splits total lines into windows of size lines advancing by
// size-overlap. The last window may be shorter. Every line is covered and
// consecutive windows share overlap lines except at the tail.
func Windows(total, size, overlap int) ([]Window, error) {
	if size <= 0 || overlap < 0 || size-overlap <= 0 {
		return nil, fmt.Errorf("chunker: size=%d overlap=%d: %w", size, overlap, domain.ErrInvalidWindow)
	}
	step := size - overlap
	var out []Window
	for i := 0; i < total; i += step {
		out = append(out, Window{Number: len(out) + 1, Start: i, End: min(i+size, total)})
	}
	return out, nil
}
