package features

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/sells-group/satfeat-cli/internal/model"
)

func constantChip(channels, h, w int, value float64) *model.RasterChip {
	data := make([]float64, channels*h*w)
	for i := range data {
		data[i] = value
	}
	return &model.RasterChip{Data: data, Channels: channels, Height: h, Width: w}
}

func noisyChip(channels, h, w int, seed uint64) *model.RasterChip {
	rng := rand.New(rand.NewPCG(seed, seed))
	data := make([]float64, channels*h*w)
	for i := range data {
		data[i] = math.Floor(rng.Float64() * 256)
	}
	return &model.RasterChip{Data: data, Channels: channels, Height: h, Width: w}
}

func TestNewEncoderValidation(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		channels int
	}{
		{"odd count", Config{Count: 5, KernelSize: 3}, 3},
		{"count below two", Config{Count: 0, KernelSize: 3}, 3},
		{"zero kernel", Config{Count: 4, KernelSize: 0}, 3},
		{"zero channels", Config{Count: 4, KernelSize: 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEncoder(tt.cfg, tt.channels); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncodeDeterministicAcrossEncoders(t *testing.T) {
	cfg := Config{Count: 16, KernelSize: 3, Seed: 42, Bias: -1}
	chip := noisyChip(3, 32, 32, 9)

	e1, err := NewEncoder(cfg, 3)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := NewEncoder(cfg, 3)
	if err != nil {
		t.Fatal(err)
	}

	v1, err := e1.Encode(chip)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := e2.Encode(chip)
	if err != nil {
		t.Fatal(err)
	}

	if len(v1) != 16 || len(v2) != 16 {
		t.Fatalf("expected 16-dim vectors, got %d and %d", len(v1), len(v2))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("component %d differs: %v vs %v (same seed must be bit-identical)", i, v1[i], v2[i])
		}
	}
}

func TestEncodeSeedChangesOutput(t *testing.T) {
	chip := noisyChip(3, 32, 32, 9)

	e1, _ := NewEncoder(Config{Count: 8, KernelSize: 3, Seed: 1, Bias: -1}, 3)
	e2, _ := NewEncoder(Config{Count: 8, KernelSize: 3, Seed: 2, Bias: -1}, 3)

	v1, _ := e1.Encode(chip)
	v2, _ := e2.Encode(chip)

	same := true
	for i := range v1 {
		if v1[i] != v2[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical vectors")
	}
}

// A constant chip makes every filter response spatially constant, so the
// pooled outputs are analytically predictable from the sampled weights:
// pos = relu(bias + v·Σw), neg = relu(-(bias + v·Σw)) with v = 128/255.
func TestEncodeConstantChipMatchesClosedForm(t *testing.T) {
	cfg := Config{Count: 4, KernelSize: 3, Seed: 42, Bias: -1}
	enc, err := NewEncoder(cfg, 3)
	if err != nil {
		t.Fatal(err)
	}

	chip := constantChip(3, 101, 101, 128)
	vec, err := enc.Encode(chip)
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 4 {
		t.Fatalf("expected 4 components, got %d", len(vec))
	}

	v := 128.0 / 255.0
	for f, filter := range enc.filters {
		var sum float64
		for _, w := range filter {
			sum += w
		}
		r := cfg.Bias + v*sum

		wantPos, wantNeg := 0.0, 0.0
		if r > 0 {
			wantPos = r
		} else {
			wantNeg = -r
		}

		if math.Abs(vec[2*f]-wantPos) > 1e-9 {
			t.Errorf("filter %d pos: got %v, want %v", f, vec[2*f], wantPos)
		}
		if math.Abs(vec[2*f+1]-wantNeg) > 1e-9 {
			t.Errorf("filter %d neg: got %v, want %v", f, vec[2*f+1], wantNeg)
		}
		// Exactly one side of each pair fires for a constant nonzero response.
		if vec[2*f] != 0 && vec[2*f+1] != 0 {
			t.Errorf("filter %d: both pos and neg channels fired", f)
		}
	}
}

func TestEncodeRejectsDegenerateChip(t *testing.T) {
	enc, err := NewEncoder(Config{Count: 4, KernelSize: 5, Seed: 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Encode(constantChip(1, 4, 40, 10)); err == nil {
		t.Error("expected error for chip shorter than kernel")
	}
	if _, err := enc.Encode(constantChip(1, 40, 4, 10)); err == nil {
		t.Error("expected error for chip narrower than kernel")
	}
	if _, err := enc.Encode(nil); err == nil {
		t.Error("expected error for nil chip")
	}
}

func TestEncodeRejectsChannelMismatch(t *testing.T) {
	enc, err := NewEncoder(Config{Count: 4, KernelSize: 3, Seed: 1}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Encode(constantChip(1, 30, 30, 10)); err == nil {
		t.Error("expected error for channel mismatch")
	}
}

func TestEncodeKernelSizedChip(t *testing.T) {
	// A chip exactly the kernel size has one valid position; pooling over a
	// single position must still produce a finite vector.
	enc, err := NewEncoder(Config{Count: 6, KernelSize: 3, Seed: 3, Bias: -1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	vec, err := enc.Encode(noisyChip(2, 3, 3, 4))
	if err != nil {
		t.Fatal(err)
	}
	for i, x := range vec {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Errorf("component %d is not finite: %v", i, x)
		}
		if x < 0 {
			t.Errorf("component %d negative after rectification: %v", i, x)
		}
	}
}
