package biometric

// CaptureContext names the capture environment. Handheld cameras produce
// noisier samples, so their policy trades a looser similarity threshold for
// one extra sample.
type CaptureContext string

const (
	ContextDesktop  CaptureContext = "desktop"
	ContextHandheld CaptureContext = "handheld"
)

// Policy holds all match and quality thresholds for one capture context.
type Policy struct {
	// Samples is how many captures enrollment averages over.
	Samples int

	// FaceDistanceMax is the maximum Euclidean distance between a live
	// descriptor and the stored template for a face match.
	FaceDistanceMax float64

	// IrisSimilarityMin is the minimum fraction of iris features that must
	// fall within IrisTolerance of the template.
	IrisSimilarityMin float64

	// IrisTolerance is the per-feature brightness tolerance.
	IrisTolerance int

	// Quality gates. Samples outside these bounds are rejected before
	// matching is attempted.
	MinBrightness float64
	MaxBrightness float64
	MinVariance   float64
}

var policies = map[CaptureContext]Policy{
	ContextDesktop: {
		Samples:           3,
		FaceDistanceMax:   0.35,
		IrisSimilarityMin: 0.75,
		IrisTolerance:     30,
		MinBrightness:     40,
		MaxBrightness:     220,
		MinVariance:       100,
	},
	ContextHandheld: {
		Samples:           4,
		FaceDistanceMax:   0.35,
		IrisSimilarityMin: 0.60,
		IrisTolerance:     30,
		MinBrightness:     30,
		MaxBrightness:     230,
		MinVariance:       80,
	},
}

// PolicyFor returns the policy for a capture context. Unknown contexts get
// the desktop policy.
func PolicyFor(ctx CaptureContext) Policy {
	if p, ok := policies[ctx]; ok {
		return p
	}
	return policies[ContextDesktop]
}
