package bench

import (
	"math/rand"
	"testing"
)

func TestArrivalSchedule_LengthAndMonotonic(t *testing.T) {
	// GIVEN a Poisson schedule for 500 arrivals at 20 qps
	rng := rand.New(rand.NewSource(42))
	schedule := arrivalSchedule(rng, 500, 20)

	// THEN it has one entry per input and is non-decreasing
	if len(schedule) != 500 {
		t.Fatalf("schedule length: got %d, want 500", len(schedule))
	}
	for i := 1; i < len(schedule); i++ {
		if schedule[i] < schedule[i-1] {
			t.Errorf("schedule[%d]=%v < schedule[%d]=%v", i, schedule[i], i-1, schedule[i-1])
		}
	}
}

func TestArrivalSchedule_MeanRate(t *testing.T) {
	// GIVEN a long schedule at 50 qps
	rng := rand.New(rand.NewSource(7))
	n := 5000
	schedule := arrivalSchedule(rng, n, 50)

	// THEN the empirical rate is close to the requested rate
	total := schedule[n-1].Seconds()
	rate := float64(n) / total
	if rate < 45 || rate > 55 {
		t.Errorf("empirical rate: got %.2f qps, want ~50", rate)
	}
}

func TestArrivalSchedule_DeterministicForSeed(t *testing.T) {
	a := arrivalSchedule(rand.New(rand.NewSource(42)), 100, 10)
	b := arrivalSchedule(rand.New(rand.NewSource(42)), 100, 10)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("schedule diverged at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestArrivalSchedule_PositiveOffsets(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	schedule := arrivalSchedule(rng, 50, 1000)
	for i, off := range schedule {
		if off <= 0 {
			t.Errorf("schedule[%d] = %v, want > 0", i, off)
		}
	}
}
