package evo

import (
	"errors"
	"math/rand"
	"testing"

	"trackdrive/internal/simerr"
)

func rankedFixture() []ScoredGenome {
	return []ScoredGenome{
		{Genome: newLinearGenome("a", 1), Fitness: 0.9},
		{Genome: newLinearGenome("b", 1), Fitness: 0.7},
		{Genome: newLinearGenome("c", 1), Fitness: 0.5},
		{Genome: newLinearGenome("d", 1), Fitness: 0.1},
	}
}

func TestEliteSelectorStaysInElite(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		parent, err := EliteSelector{}.PickParent(rng, rankedFixture(), 2)
		if err != nil {
			t.Fatalf("pick parent: %v", err)
		}
		if parent.ID != "a" && parent.ID != "b" {
			t.Fatalf("picked outside elite: %s", parent.ID)
		}
	}
}

func TestTournamentSelectorPrefersFitter(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	selector := TournamentSelector{PoolSize: 4, TournamentSize: 4}
	counts := map[string]int{}
	for i := 0; i < 200; i++ {
		parent, err := selector.PickParent(rng, rankedFixture(), 1)
		if err != nil {
			t.Fatalf("pick parent: %v", err)
		}
		counts[parent.ID]++
	}
	if counts["a"] <= counts["d"] {
		t.Fatalf("expected tournament bias toward fitter genomes: %+v", counts)
	}
}

func TestSelectorValidation(t *testing.T) {
	if _, err := (EliteSelector{}).PickParent(nil, rankedFixture(), 1); err == nil {
		t.Fatal("expected random source error")
	}
	if _, err := (TournamentSelector{}).PickParent(rand.New(rand.NewSource(1)), rankedFixture(), 5); err == nil {
		t.Fatal("expected elite count error")
	}
}

func TestNewSelector(t *testing.T) {
	for name, want := range map[string]string{"": "elite", "elite": "elite", "tournament": "tournament"} {
		selector, err := NewSelector(name)
		if err != nil {
			t.Fatalf("new selector %q: %v", name, err)
		}
		if selector.Name() != want {
			t.Fatalf("unexpected selector for %q: %s", name, selector.Name())
		}
	}
	if _, err := NewSelector("roulette"); !errors.Is(err, simerr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got: %v", err)
	}
}
