package biometric

import (
	"fmt"
	"time"

	"github.com/cybervault/cybervault/internal/models"
)

// irisQuality checks a raw brightness feature vector against the policy's
// quality gates before it is used for enrollment or matching.
func irisQuality(features []int, policy Policy) error {
	if len(features) == 0 {
		return fmt.Errorf("empty feature vector")
	}

	var sum float64
	for _, f := range features {
		sum += float64(f)
	}
	mean := sum / float64(len(features))

	if mean < policy.MinBrightness || mean > policy.MaxBrightness {
		return fmt.Errorf("sample brightness %.1f outside [%.0f, %.0f]",
			mean, policy.MinBrightness, policy.MaxBrightness)
	}

	var variance float64
	for _, f := range features {
		d := float64(f) - mean
		variance += d * d
	}
	variance /= float64(len(features))

	if variance < policy.MinVariance {
		return fmt.Errorf("sample variance %.1f below %.0f, image too flat", variance, policy.MinVariance)
	}

	return nil
}

// averageFeatures folds several iris samples into one template vector.
func averageFeatures(samples [][]int) ([]int, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples")
	}

	dim := len(samples[0])
	if dim == 0 {
		return nil, fmt.Errorf("empty feature vector")
	}

	sums := make([]int, dim)
	for i, sample := range samples {
		if len(sample) != dim {
			return nil, fmt.Errorf("sample %d has %d features, expected %d", i, len(sample), dim)
		}
		for j, v := range sample {
			sums[j] += v
		}
	}

	avg := make([]int, dim)
	for j := range sums {
		avg[j] = sums[j] / len(samples)
	}
	return avg, nil
}

// newIrisTemplate builds a template from enrollment samples. Quality
// gating happens at capture time; every sample here already passed.
func newIrisTemplate(samples [][]int) (*models.IrisTemplate, error) {
	features, err := averageFeatures(samples)
	if err != nil {
		return nil, err
	}

	return &models.IrisTemplate{
		Features:     features,
		SampleCount:  len(samples),
		RegisteredAt: time.Now().UTC(),
	}, nil
}

// irisSimilarity is the fraction of features within the per-feature
// tolerance of the template.
func irisSimilarity(template, features []int, tolerance int) (float64, error) {
	if len(template) != len(features) {
		return 0, fmt.Errorf("feature length mismatch: %d vs %d", len(template), len(features))
	}

	within := 0
	for i := range template {
		d := template[i] - features[i]
		if d < 0 {
			d = -d
		}
		if d <= tolerance {
			within++
		}
	}
	return float64(within) / float64(len(template)), nil
}

// matchIris compares a quality-passed sample to the template.
func matchIris(template *models.IrisTemplate, features []int, policy Policy) (bool, float64, error) {
	similarity, err := irisSimilarity(template.Features, features, policy.IrisTolerance)
	if err != nil {
		return false, 0, err
	}
	return similarity >= policy.IrisSimilarityMin, similarity, nil
}
