package pitch

import (
	"strconv"
	"testing"

	"github.com/cwbudde/algo-autotune/internal/testutil"
)

func BenchmarkDetect(b *testing.B) {
	sizes := []int{256, 1024, 4096}
	for _, n := range sizes {
		d, err := NewDetector(44100, n)
		if err != nil {
			b.Fatalf("NewDetector() error = %v", err)
		}

		frame := testutil.DeterministicSine(220, 44100, 0.8, n)

		b.Run(strconv.Itoa(n), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(n * 8))

			for range b.N {
				if _, err := d.Detect(frame); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
