package biomass

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidMeasurement flags a non-positive disc height. Offending
// observations are dropped from training, never silently corrected.
var ErrInvalidMeasurement = errors.New("invalid measurement: disc height must be > 0 cm")

// Calibration threshold between the short-sward and tall-sward equations.
// The threshold itself uses the short-sward branch.
const shortSwardMaxCM = 26.0

// FromDiscHeight converts a disc-pasture-meter height reading to standing
// biomass in kg/ha using the piecewise calibration for semi-arid savanna:
//
//	h <= 26:  (31.7176 * (0.32181 / h)^0.2834)^2
//	h >  26:  (17.3543 * (h * 0.9893)^0.5413)^2
func FromDiscHeight(heightCM float64) (float64, error) {
	if heightCM <= 0 || math.IsNaN(heightCM) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidMeasurement, heightCM)
	}
	if heightCM <= shortSwardMaxCM {
		return math.Pow(31.7176*math.Pow(0.32181/heightCM, 0.2834), 2), nil
	}
	return math.Pow(17.3543*math.Pow(heightCM*0.9893, 0.5413), 2), nil
}
