// Package metrics keeps running statistics of session density per spot.
package metrics

import "math"

// WelfordState holds running statistics using Welford's online algorithm,
// so mean and variance update in O(1) without keeping observations.
type WelfordState struct {
	count int
	mean  float64
	m2    float64 // sum of squared differences from the mean
}

// NewWelfordState resumes from a saved mean, population stddev and count
func NewWelfordState(mean, stddev float64, count int) *WelfordState {
	if count <= 0 {
		return &WelfordState{}
	}
	// stddev = sqrt(M2 / n)
	return &WelfordState{count: count, mean: mean, m2: stddev * stddev * float64(count)}
}

// RestoreWelfordState resumes from persisted raw state
func RestoreWelfordState(count int, mean, m2 float64) *WelfordState {
	if count <= 0 {
		return &WelfordState{}
	}
	return &WelfordState{count: count, mean: mean, m2: m2}
}

// Update adds an observation.
// See https://en.wikipedia.org/wiki/Algorithms_for_calculating_variance#Welford's_online_algorithm
func (w *WelfordState) Update(value float64) {
	w.count++
	delta := value - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (value - w.mean)
}

// Mean returns the running mean
func (w *WelfordState) Mean() float64 { return w.mean }

// M2 returns the running sum of squared differences
func (w *WelfordState) M2() float64 { return w.m2 }

// Count returns the number of observations
func (w *WelfordState) Count() int { return w.count }

// StdDev returns the population standard deviation, 0 below two observations
func (w *WelfordState) StdDev() float64 {
	if w.count < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.count))
}

// ZScore returns how many standard deviations value lies from the mean.
// It is 0 while the deviation is undefined.
func ZScore(value, mean, stddev float64) float64 {
	if stddev == 0 {
		return 0
	}
	return (value - mean) / stddev
}
