package efeature

import (
	"gonum.org/v1/gonum/floats"
)

// detectPeaks returns the index of the maximum of every excursion of v
// above threshold. An excursion still above threshold at the end of the
// trace is not a complete spike and is dropped.
func detectPeaks(v []float64, threshold float64) []int {
	var peaks []int
	for i := 1; i < len(v); i++ {
		if !(v[i-1] < threshold && v[i] >= threshold) {
			continue
		}
		up := i
		down := -1
		for j := up + 1; j < len(v); j++ {
			if v[j] < threshold {
				down = j
				break
			}
		}
		if down < 0 {
			break
		}
		peaks = append(peaks, up+floats.MaxIdx(v[up:down]))
		i = down
	}
	return peaks
}

// apBegin returns the first index in [from, peak) where dV/dt reaches
// derivativeThreshold, or from when it never does.
func apBegin(t, v []float64, from, peak int, derivativeThreshold float64) int {
	for i := from; i < peak; i++ {
		if (v[i+1]-v[i])/(t[i+1]-t[i]) >= derivativeThreshold {
			return i
		}
	}
	return from
}

// halfWidth measures the spike width at the voltage halfway between its
// onset and its peak, interpolating the crossing times linearly.
func halfWidth(t, v []float64, begin, peak int) (float64, bool) {
	half := (v[begin] + v[peak]) / 2

	rise := t[begin]
	for i := begin; i <= peak; i++ {
		if v[i] >= half {
			if i > begin {
				rise = interpolate(t[i-1], t[i], v[i-1], v[i], half)
			} else {
				rise = t[i]
			}
			break
		}
	}

	for j := peak + 1; j < len(v); j++ {
		if v[j] < half {
			fall := interpolate(t[j-1], t[j], v[j-1], v[j], half)
			return fall - rise, true
		}
	}
	return 0, false
}

func interpolate(t0, t1, v0, v1, level float64) float64 {
	if v1 == v0 {
		return t0
	}
	return t0 + (level-v0)*(t1-t0)/(v1-v0)
}
