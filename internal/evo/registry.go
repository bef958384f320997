package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

var (
	ErrOperatorExists   = errors.New("operator already registered")
	ErrOperatorNotFound = errors.New("operator not found")
)

// OperatorFactory builds an operator bound to a run's random source.
type OperatorFactory func(rng *rand.Rand, maxDelta float64) Operator

var operatorRegistry = struct {
	mu sync.RWMutex
	m  map[string]OperatorFactory
}{
	m: make(map[string]OperatorFactory),
}

func init() {
	initializeBuiltInOperators()
}

func initializeBuiltInOperators() {
	builtins := map[string]OperatorFactory{
		"perturb_random_weight": func(rng *rand.Rand, maxDelta float64) Operator {
			return &PerturbRandomWeight{Rand: rng, MaxDelta: maxDelta}
		},
		"perturb_weights_proportional": func(rng *rand.Rand, maxDelta float64) Operator {
			return &PerturbWeightsProportional{Rand: rng, MaxDelta: maxDelta}
		},
		"perturb_random_bias": func(rng *rand.Rand, maxDelta float64) Operator {
			return &PerturbRandomBias{Rand: rng, MaxDelta: maxDelta}
		},
		"change_random_activation": func(rng *rand.Rand, _ float64) Operator {
			return &ChangeRandomActivation{Rand: rng}
		},
		"toggle_random_synapse": func(rng *rand.Rand, _ float64) Operator {
			return &ToggleRandomSynapse{Rand: rng}
		},
	}
	for name, factory := range builtins {
		if err := RegisterOperator(name, factory); err != nil {
			panic(err)
		}
	}
}

func RegisterOperator(name string, factory OperatorFactory) error {
	if name == "" {
		return errors.New("operator name is required")
	}
	if factory == nil {
		return errors.New("operator factory is required")
	}

	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrOperatorExists, name)
	}
	operatorRegistry.m[name] = factory
	return nil
}

// NewOperator instantiates a registered operator.
func NewOperator(name string, rng *rand.Rand, maxDelta float64) (Operator, error) {
	operatorRegistry.mu.RLock()
	factory, ok := operatorRegistry.m[name]
	operatorRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
	return factory(rng, maxDelta), nil
}

// NewMutationPolicy instantiates one operator per weights entry.
func NewMutationPolicy(weights map[string]float64, rng *rand.Rand, maxDelta float64) ([]WeightedMutation, error) {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	policy := make([]WeightedMutation, 0, len(names))
	for _, name := range names {
		op, err := NewOperator(name, rng, maxDelta)
		if err != nil {
			return nil, err
		}
		policy = append(policy, WeightedMutation{Operator: op, Weight: weights[name]})
	}
	return policy, nil
}

func ListOperators() []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	names := make([]string, 0, len(operatorRegistry.m))
	for name := range operatorRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetOperatorRegistryForTests() {
	operatorRegistry.mu.Lock()
	operatorRegistry.m = make(map[string]OperatorFactory)
	operatorRegistry.mu.Unlock()
	initializeBuiltInOperators()
}
