package agent

import (
	"context"
	"errors"
	"math"
	"testing"

	"trackdrive/internal/model"
	"trackdrive/internal/nn"
)

func testGenome() model.Genome {
	return model.Genome{
		ID:        "g1",
		InputIDs:  []string{"i1", "i2"},
		OutputIDs: []string{"o"},
		Neurons: []model.Neuron{
			{ID: "o", Activation: "identity", Bias: 0.2},
		},
		Synapses: []model.Synapse{
			{From: "i1", To: "o", Weight: 1.0, Enabled: true},
			{From: "i2", To: "o", Weight: 2.0, Enabled: true},
		},
	}
}

func TestCortexRunStep(t *testing.T) {
	c, err := NewCortex("agent-1", testGenome())
	if err != nil {
		t.Fatalf("new cortex: %v", err)
	}
	if c.ID() != "agent-1" || c.Genome().ID != "g1" || c.Outputs() != 1 {
		t.Fatalf("unexpected cortex identity: id=%s genome=%s outputs=%d", c.ID(), c.Genome().ID, c.Outputs())
	}

	out, err := c.RunStep(context.Background(), []float64{0.5, 0.25})
	if err != nil {
		t.Fatalf("run step: %v", err)
	}
	if len(out) != 1 || math.Abs(out[0]-1.2) > 1e-9 {
		t.Fatalf("unexpected output: %+v", out)
	}

	again, err := c.RunStep(context.Background(), []float64{0.5, 0.25})
	if err != nil {
		t.Fatalf("run step: %v", err)
	}
	if again[0] != out[0] {
		t.Fatalf("expected pure evaluation, got %f then %f", out[0], again[0])
	}
}

func TestCortexRunStepErrors(t *testing.T) {
	c, err := NewCortex("agent-1", testGenome())
	if err != nil {
		t.Fatalf("new cortex: %v", err)
	}
	if _, err := c.RunStep(context.Background(), []float64{1}); err == nil {
		t.Fatal("expected input size mismatch")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.RunStep(ctx, []float64{1, 2}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got: %v", err)
	}
}

func TestNewCortexValidation(t *testing.T) {
	if _, err := NewCortex("", testGenome()); err == nil {
		t.Fatal("expected missing id error")
	}
	broken := testGenome()
	broken.OutputIDs = []string{"ghost"}
	if _, err := NewCortex("agent-1", broken); !errors.Is(err, nn.ErrInvalidTopology) {
		t.Fatalf("expected ErrInvalidTopology, got: %v", err)
	}
}
