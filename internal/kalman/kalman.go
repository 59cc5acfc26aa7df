// Package kalman implements a scalar predict/update Kalman filter used to
// smooth already-fused signals before they are published.
//
// The filter assumes a roughly uniform call cadence matching the host control
// cycle; it carries no internal notion of time. Q and R are fixed tuning
// constants chosen per smoothed quantity and are not adapted at runtime.
package kalman

// Filter is one scalar filter instance. Create one per smoothed quantity.
type Filter struct {
	q float64 // process noise covariance
	r float64 // measurement noise covariance

	estimate   float64
	covariance float64
}

// New returns a filter seeded with initialEstimate and unit error covariance.
func New(q, r, initialEstimate float64) *Filter {
	return &Filter{q: q, r: r, estimate: initialEstimate, covariance: 1}
}

// Update runs one predict/correct step against measurement and returns the
// new estimate.
func (f *Filter) Update(measurement float64) float64 {
	// Predict: the model is a random walk, so only uncertainty grows.
	f.covariance += f.q

	k := f.covariance / (f.covariance + f.r)
	f.estimate += k * (measurement - f.estimate)
	f.covariance *= 1 - k
	return f.estimate
}

// Estimate returns the current estimate without advancing the filter.
func (f *Filter) Estimate() float64 { return f.estimate }

// Reset reseeds the filter, restoring unit error covariance. Q and R are
// kept.
func (f *Filter) Reset(initialEstimate float64) {
	f.estimate = initialEstimate
	f.covariance = 1
}
