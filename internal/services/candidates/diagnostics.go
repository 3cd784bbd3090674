package candidates

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"CANProbe/internal/domain/models"
)

// Diagnostics are measures recomputed locally over the series the engine
// delivered with a candidate. They annotate the engine's own confidence,
// they never replace it.
type Diagnostics struct {
	Pearson     float64 `json:"pearson"`
	ResidualRMS float64 `json:"residual_rms"`
	N           int     `json:"n"`
}

// SeriesDiagnostics recomputes the Pearson coefficient between the OBD
// series and the transformed CAN series, plus the RMS of their residual.
func SeriesDiagnostics(c *models.Candidate) (Diagnostics, error) {
	if err := c.Validate(); err != nil {
		return Diagnostics{}, err
	}
	d := Diagnostics{N: c.NSamples}
	if c.NSamples < 2 {
		return d, nil
	}
	r := stat.Correlation(c.OBDValues, c.CANTransformed, nil)
	if !math.IsNaN(r) {
		d.Pearson = r
	}
	var ss float64
	for i := range c.OBDValues {
		diff := c.OBDValues[i] - c.CANTransformed[i]
		ss += diff * diff
	}
	d.ResidualRMS = math.Sqrt(ss / float64(c.NSamples))
	return d, nil
}
