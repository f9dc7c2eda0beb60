package correct

import (
	"strconv"
	"testing"

	"github.com/cwbudde/algo-autotune/internal/testutil"
)

func BenchmarkProcess(b *testing.B) {
	sizes := []int{256, 1024, 4096}
	for _, n := range sizes {
		c, err := NewCorrector(44100, n)
		if err != nil {
			b.Fatalf("NewCorrector() error = %v", err)
		}

		input := testutil.DeterministicSine(450, 44100, 0.8, n)
		output := make([]float64, n)

		b.Run(strconv.Itoa(n), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(n * 8))

			for range b.N {
				if _, _, err := c.Process(output, input, 450, 440, 1); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
