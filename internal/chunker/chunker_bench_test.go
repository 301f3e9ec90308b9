package chunker

import (
	"math/rand/v2"
	"testing"
)

func BenchmarkChunk(b *testing.B) {
	sizes := map[string]int{"small": 20, "medium": 200, "large": 2000}
	c := New()
	cfg := DefaultConfig()

	for name, sentences := range sizes {
		text := generateDocument(rand.New(rand.NewPCG(3, 4)), sentences, false)
		b.Run(name, func(b *testing.B) {
			b.SetBytes(int64(len(text)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := c.Chunk(text, nil, cfg); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkChunk_Fallback(b *testing.B) {
	c := New()
	c.assemble = func([]string, Config) ([]assembledChunk, error) {
		return nil, errAssemble
	}
	cfg := DefaultConfig()
	text := generateDocument(rand.New(rand.NewPCG(5, 6)), 500, false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Chunk(text, nil, cfg); err != nil {
			b.Fatal(err)
		}
	}
}
