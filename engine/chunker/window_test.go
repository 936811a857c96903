package chunker

import (
	"testing"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindows130Lines(t *testing.T) {
	ws, err := Windows(130, 100, 20)
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.Equal(t, Window{Number: 1, Start: 0, End: 100}, ws[0])
	assert.Equal(t, Window{Number: 2, Start: 80, End: 130}, ws[1])
	assert.Equal(t, 1, ws[0].StartLine())
	assert.Equal(t, 100, ws[0].EndLine())
	assert.Equal(t, 81, ws[1].StartLine())
	assert.Equal(t, 130, ws[1].EndLine())
}

func TestWindowsCoverAndOverlap(t *testing.T) {
	for _, tc := range []struct{ total, size, overlap int }{
		{1, 100, 20}, {99, 100, 20}, {100, 100, 20}, {101, 100, 20},
		{250, 100, 20}, {17, 5, 2}, {10, 3, 0}, {7, 4, 3},
	} {
		ws, err := Windows(tc.total, tc.size, tc.overlap)
		require.NoError(t, err)

		covered := make([]bool, tc.total)
		for i, w := range ws {
			assert.Equal(t, i+1, w.Number)
			assert.LessOrEqual(t, w.End-w.Start, tc.size)
			for j := w.Start; j < w.End; j++ {
				covered[j] = true
			}
			if i > 0 {
				prev := ws[i-1]
				assert.Equal(t, tc.size-tc.overlap, w.Start-prev.Start)
				if prev.End-prev.Start == tc.size {
					assert.Equal(t, min(tc.overlap, w.End-w.Start), prev.End-w.Start)
				}
			}
		}
		for j, ok := range covered {
			assert.True(t, ok, "line %d uncovered for %+v", j, tc)
		}
	}
}

func TestWindowsEmpty(t *testing.T) {
	ws, err := Windows(0, 100, 20)
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestWindowsInvalid(t *testing.T) {
	for _, tc := range [][2]int{{20, 20}, {10, 30}, {0, 0}, {5, -1}} {
		_, err := Windows(10, tc[0], tc[1])
		assert.ErrorIs(t, err, domain.ErrInvalidWindow, "size=%d overlap=%d", tc[0], tc[1])
	}
}
