package history

import (
	"gonum.org/v1/gonum/stat"
)

// DefaultMinSamples is the history size below which calibration is a no-op.
const DefaultMinSamples = 3

const (
	minRatio = 0.1
	maxRatio = 10.0
)

// SolverStats aggregates one solver's history.
type SolverStats struct {
	Samples     int     `json:"samples"`
	MeanRatio   float64 `json:"mean_ratio"`
	SuccessRate float64 `json:"success_rate"`
}

// Stats aggregates the whole snapshot. MeanRatio is the mean of
// actual/estimate over records with positive estimates; StdDev is the sample
// standard deviation of those ratios.
type Stats struct {
	Samples   int                    `json:"samples"`
	MeanRatio float64                `json:"mean_ratio"`
	StdDev    float64                `json:"std_dev"`
	PerSolver map[string]SolverStats `json:"per_solver"`
}

// Calibrator adjusts estimates using completion history. With fewer than
// minSamples records it passes estimates through unchanged.
type Calibrator struct {
	stats      Stats
	minSamples int

	// solvers that contributed at least one ratio-bearing record
	solverRatios map[string]float64
}

// NewCalibrator aggregates the snapshot. minSamples <= 0 selects
// DefaultMinSamples. Ratios clamp to [0.1, 10] at ingest so one wild record
// cannot dominate the mean.
func NewCalibrator(snap Snapshot, minSamples int) *Calibrator {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}

	var ratios []float64
	type acc struct {
		ratios    []float64
		samples   int
		successes int
	}
	bySolver := map[string]*acc{}

	for _, rec := range snap {
		a := bySolver[rec.Solver]
		if a == nil {
			a = &acc{}
			bySolver[rec.Solver] = a
		}
		a.samples++
		if rec.Success {
			a.successes++
		}
		if rec.EstimatedHours <= 0 {
			continue
		}
		ratio := rec.ActualHours / rec.EstimatedHours
		if ratio < minRatio {
			ratio = minRatio
		} else if ratio > maxRatio {
			ratio = maxRatio
		}
		ratios = append(ratios, ratio)
		a.ratios = append(a.ratios, ratio)
	}

	stats := Stats{
		Samples:   len(snap),
		MeanRatio: 1.0,
		PerSolver: make(map[string]SolverStats, len(bySolver)),
	}
	if len(ratios) > 0 {
		stats.MeanRatio = stat.Mean(ratios, nil)
	}
	if len(ratios) > 1 {
		stats.StdDev = stat.StdDev(ratios, nil)
	}
	solverRatios := make(map[string]float64)
	for solver, a := range bySolver {
		s := SolverStats{
			Samples:     a.samples,
			MeanRatio:   1.0,
			SuccessRate: float64(a.successes) / float64(a.samples),
		}
		if len(a.ratios) > 0 {
			s.MeanRatio = stat.Mean(a.ratios, nil)
			solverRatios[solver] = s.MeanRatio
		}
		stats.PerSolver[solver] = s
	}

	return &Calibrator{stats: stats, minSamples: minSamples, solverRatios: solverRatios}
}

// Stats returns the aggregated history.
func (c *Calibrator) Stats() Stats { return c.stats }

// Ratio returns the calibration multiplier for a solver: the solver's mean
// ratio when it has history, the overall mean otherwise, and 1.0 when the
// whole history is too small to trust.
func (c *Calibrator) Ratio(solver string) float64 {
	if c.stats.Samples < c.minSamples {
		return 1.0
	}
	if ratio, ok := c.solverRatios[solver]; ok {
		return ratio
	}
	return c.stats.MeanRatio
}

// Calibrate scales an estimate by the solver's historical ratio.
func (c *Calibrator) Calibrate(hours float64, solver string) float64 {
	return hours * c.Ratio(solver)
}
