package storage

import (
	"fmt"
	"math"
	"testing"

	"github.com/launix-de/lumadb/internal/ir"
)

func TestHyperLogLogEmpty(t *testing.T) {
	h := NewHyperLogLog(0)
	if h.Count() != 0 {
		t.Errorf("Count() on an empty sketch = %d, want 0", h.Count())
	}
}

func TestHyperLogLogCountWithinTolerance(t *testing.T) {
	const n = 100000
	h := NewHyperLogLog(14)
	for i := 0; i < n; i++ {
		h.Add(ir.NewText(fmt.Sprintf("item-%d", i)))
	}
	got := float64(h.Count())
	errRate := math.Abs(got-n) / n
	if errRate > 0.05 {
		t.Errorf("Count() = %d, want within 5%% of %d (error rate %.4f)", uint64(got), n, errRate)
	}
}

func TestHyperLogLogDuplicatesDoNotInflateCount(t *testing.T) {
	h := NewHyperLogLog(14)
	for i := 0; i < 1000; i++ {
		h.Add(ir.NewText("same-value"))
	}
	if h.Count() > 2 {
		t.Errorf("Count() after 1000 duplicate adds = %d, want approximately 1", h.Count())
	}
}

func TestAlphaForKnownSizes(t *testing.T) {
	cases := map[int]float64{16: 0.673, 32: 0.697, 64: 0.709}
	for m, want := range cases {
		if got := alphaFor(m); got != want {
			t.Errorf("alphaFor(%d) = %v, want %v", m, got, want)
		}
	}
	// Larger m falls through to the asymptotic formula rather than a
	// hardcoded constant.
	if got := alphaFor(1 << 14); got <= 0.72 || got >= 0.73 {
		t.Errorf("alphaFor(16384) = %v, want approximately 0.7213", got)
	}
}
