package biomass

import (
	"errors"
	"math"
	"testing"
)

func TestFromDiscHeight_ShortSward(t *testing.T) {
	tests := []struct {
		name   string
		height float64
	}{
		{"short grass", 10},
		{"mid sward", 20},
		{"threshold uses short branch", 26},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromDiscHeight(tt.height)
			if err != nil {
				t.Fatalf("FromDiscHeight(%v): %v", tt.height, err)
			}
			want := math.Pow(31.7176*math.Pow(0.32181/tt.height, 0.2834), 2)
			if got != want {
				t.Errorf("FromDiscHeight(%v) = %v, want %v", tt.height, got, want)
			}
		})
	}
}

func TestFromDiscHeight_TallSward(t *testing.T) {
	tests := []struct {
		name   string
		height float64
	}{
		{"just above threshold", 26.01},
		{"tall sward", 50},
		{"very tall", 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromDiscHeight(tt.height)
			if err != nil {
				t.Fatalf("FromDiscHeight(%v): %v", tt.height, err)
			}
			want := math.Pow(17.3543*math.Pow(tt.height*0.9893, 0.5413), 2)
			if got != want {
				t.Errorf("FromDiscHeight(%v) = %v, want %v", tt.height, got, want)
			}
		})
	}
}

func TestFromDiscHeight_ThresholdValue(t *testing.T) {
	got, err := FromDiscHeight(26)
	if err != nil {
		t.Fatalf("FromDiscHeight(26): %v", err)
	}
	if math.Abs(got-84.7) > 1.0 {
		t.Errorf("FromDiscHeight(26) = %v, want ~84.7 kg/ha", got)
	}
}

func TestFromDiscHeight_AlwaysNonNegative(t *testing.T) {
	for _, h := range []float64{0.1, 1, 5, 26, 26.5, 80, 300} {
		got, err := FromDiscHeight(h)
		if err != nil {
			t.Fatalf("FromDiscHeight(%v): %v", h, err)
		}
		if got < 0 {
			t.Errorf("FromDiscHeight(%v) = %v, want >= 0", h, got)
		}
	}
}

func TestFromDiscHeight_Invalid(t *testing.T) {
	for _, h := range []float64{0, -1, -26, math.NaN()} {
		_, err := FromDiscHeight(h)
		if !errors.Is(err, ErrInvalidMeasurement) {
			t.Errorf("FromDiscHeight(%v) err = %v, want ErrInvalidMeasurement", h, err)
		}
	}
}
