package biometric

import (
	"fmt"
	"math"
	"time"

	"github.com/cybervault/cybervault/internal/models"
)

// averageDescriptors folds several face descriptors into one template
// vector. All samples must have the same dimensionality.
func averageDescriptors(samples [][]float64) ([]float64, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples")
	}

	dim := len(samples[0])
	if dim == 0 {
		return nil, fmt.Errorf("empty descriptor")
	}

	avg := make([]float64, dim)
	for i, sample := range samples {
		if len(sample) != dim {
			return nil, fmt.Errorf("sample %d has %d dimensions, expected %d", i, len(sample), dim)
		}
		for j, v := range sample {
			avg[j] += v
		}
	}

	for j := range avg {
		avg[j] /= float64(len(samples))
	}
	return avg, nil
}

// euclideanDistance between two descriptors of equal length.
func euclideanDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("descriptor length mismatch: %d vs %d", len(a), len(b))
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// newFaceTemplate builds a template from enrollment samples.
func newFaceTemplate(samples [][]float64) (*models.FaceTemplate, error) {
	descriptor, err := averageDescriptors(samples)
	if err != nil {
		return nil, err
	}

	return &models.FaceTemplate{
		Descriptor:   descriptor,
		SampleCount:  len(samples),
		RegisteredAt: time.Now().UTC(),
	}, nil
}

// matchFace compares a live descriptor against the template. Returns the
// distance alongside the verdict so callers can log it.
func matchFace(template *models.FaceTemplate, descriptor []float64, policy Policy) (bool, float64, error) {
	distance, err := euclideanDistance(template.Descriptor, descriptor)
	if err != nil {
		return false, 0, err
	}
	return distance <= policy.FaceDistanceMax, distance, nil
}
