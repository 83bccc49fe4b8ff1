package bench

import (
	"math/rand"
	"time"
)

// arrivalSchedule pre-generates n arrival offsets for a Poisson process
// with rate qps: cumulative sums of exponentially-distributed inter-arrival
// draws. Short-run inter-arrival variance is therefore realistic rather
// than perfectly periodic.
//
// The returned offsets are non-decreasing and relative to run start.
func arrivalSchedule(rng *rand.Rand, n int, qps float64) []time.Duration {
	schedule := make([]time.Duration, n)
	var t float64
	for i := range schedule {
		t += rng.ExpFloat64() / qps
		schedule[i] = time.Duration(t * float64(time.Second))
	}
	return schedule
}
