package narrative

import (
	"fmt"
	"math"
)

// benchmarkMargin is how far above a benchmark a score must be to exceed it.
const benchmarkMargin = 5

var industryBenchmarks = []struct {
	level     string
	threshold float64
}{
	{"intern_level", 60},
	{"entry_level", 75},
	{"strong_hire", 85},
	{"exceptional", 90},
}

// Benchmarks compares a final score against the industry benchmarks.
func Benchmarks(final float64) []Benchmark {
	out := make([]Benchmark, 0, len(industryBenchmarks))
	for _, b := range industryBenchmarks {
		status := "Below"
		switch {
		case final >= b.threshold+benchmarkMargin:
			status = "Exceeds"
		case final >= b.threshold:
			status = "Meets"
		}
		delta := math.Round((final-b.threshold)*10) / 10
		out = append(out, Benchmark{
			Level:     b.level,
			Threshold: b.threshold,
			Status:    status,
			Delta:     fmt.Sprintf("%+g", delta),
		})
	}
	return out
}
