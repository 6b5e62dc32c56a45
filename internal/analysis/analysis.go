// Package analysis is the FFT front-end feeding the psychoacoustic
// engine (spec §4.B / §4.C.1): a windowed FFT reduced to per-bin energy,
// computed once per granule at both long (1024-point) and short
// (3x256-point) resolution so the psychoacoustic model can pick between
// them per spec §4.C.4's block-type decision.
//
// Grounded on gonum.org/v1/gonum/dsp/fourier, used the same way by this
// pack's vscode-music-player analysis.FeatureExtractor: a Hann window
// multiplied pointwise into the frame, fft.Coefficients(nil, windowed)
// for the complex spectrum, then |X[k]|^2 for energy.
package analysis

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// LongSize and ShortSize are the analysis window lengths (spec §4.B).
const (
	LongSize  = 1024
	ShortSize = 256
)

var (
	initOnce     sync.Once
	longWindow   [LongSize]float64
	shortWindow  [ShortSize]float64
	longFFT      *fourier.FFT
	shortFFT     *fourier.FFT
)

func initTables() {
	for i := range longWindow {
		longWindow[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(LongSize-1)))
	}
	for i := range shortWindow {
		shortWindow[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(ShortSize-1)))
	}
	longFFT = fourier.NewFFT(LongSize)
	shortFFT = fourier.NewFFT(ShortSize)
}

// Frontend runs the windowed-FFT analysis for one channel. It carries no
// per-call mutable state beyond the process-wide static tables, so a
// single Frontend is safe to reuse across granules and, since the FFT
// plans and window tables are read-only after initTables, across
// channels too.
type Frontend struct{}

// New returns a ready Frontend, initializing the process-wide FFT plans
// and window tables on first use.
func New() *Frontend {
	initOnce.Do(initTables)
	return &Frontend{}
}

// Long runs the 1024-point analysis. samples must have length LongSize.
// The returned slice has LongSize/2+1 entries, energy[k] = |X[k]|^2.
func (f *Frontend) Long(samples []float64) []float64 {
	windowed := make([]float64, LongSize)
	for i := 0; i < LongSize && i < len(samples); i++ {
		windowed[i] = samples[i] * longWindow[i]
	}
	coeffs := longFFT.Coefficients(nil, windowed)
	energy := make([]float64, LongSize/2+1)
	for k := range energy {
		re, im := real(coeffs[k]), imag(coeffs[k])
		energy[k] = re*re + im*im
	}
	return energy
}

// Short runs three independent 256-point analyses, one per subwindow of
// a short block (spec §4.C.4). samples must have length 3*ShortSize.
func (f *Frontend) Short(samples []float64) [3][]float64 {
	var out [3][]float64
	for w := 0; w < 3; w++ {
		windowed := make([]float64, ShortSize)
		base := w * ShortSize
		for i := 0; i < ShortSize; i++ {
			if base+i < len(samples) {
				windowed[i] = samples[base+i] * shortWindow[i]
			}
		}
		coeffs := shortFFT.Coefficients(nil, windowed)
		energy := make([]float64, ShortSize/2+1)
		for k := range energy {
			re, im := real(coeffs[k]), imag(coeffs[k])
			energy[k] = re*re + im*im
		}
		out[w] = energy
	}
	return out
}
