package models

import (
	"fmt"
	"time"
)

// BiometricModality names the supported factors.
type BiometricModality string

const (
	ModalityFace        BiometricModality = "face"
	ModalityIris        BiometricModality = "iris"
	ModalityFingerprint BiometricModality = "fingerprint"
)

// FaceTemplate is an averaged face descriptor vector stored at registration
// and compared by Euclidean distance at authentication.
type FaceTemplate struct {
	Descriptor   []float64 `json:"descriptor"`
	SampleCount  int       `json:"sample_count"`
	RegisteredAt time.Time `json:"registered_at"`
}

// IrisTemplate is an averaged brightness-derived feature vector.
type IrisTemplate struct {
	Features     []int     `json:"features"`
	SampleCount  int       `json:"sample_count"`
	RegisteredAt time.Time `json:"registered_at"`
}

// FingerprintCredential is an opaque platform public-key credential record.
// The engine persists it and bumps its counter; assertion verification
// belongs to the platform authenticator.
type FingerprintCredential struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	CredentialID string    `json:"credentialId"` // base64
	PublicKey    string    `json:"publicKey,omitempty"`
	Counter      uint32    `json:"counter"`
	CreatedAt    time.Time `json:"createdAt"`
	LastUsed     time.Time `json:"lastUsed"`
	Transports   []string  `json:"transports,omitempty"`
}

// BumpUsage records an authenticator assertion: the counter is monotonic,
// so only a larger value replaces the stored one.
func (c *FingerprintCredential) BumpUsage(counter uint32) {
	if counter > c.Counter {
		c.Counter = counter
	}
	c.LastUsed = time.Now()
}

// BiometricProfile holds at most one stored template per modality for a user.
// Consulted read-only at authentication, mutated only by registration and
// usage-counter bumps.
type BiometricProfile struct {
	Owner       string                 `json:"owner"`
	Face        *FaceTemplate          `json:"face,omitempty"`
	Iris        *IrisTemplate          `json:"iris,omitempty"`
	Fingerprint *FingerprintCredential `json:"fingerprint,omitempty"`
}

// EnrolledCount returns how many modalities are registered.
func (p *BiometricProfile) EnrolledCount() int {
	n := 0
	if p.Face != nil {
		n++
	}
	if p.Iris != nil {
		n++
	}
	if p.Fingerprint != nil {
		n++
	}
	return n
}

// Validate checks template shapes.
func (p *BiometricProfile) Validate() error {
	if p.Face != nil && len(p.Face.Descriptor) == 0 {
		return fmt.Errorf("face template has empty descriptor")
	}
	if p.Iris != nil && len(p.Iris.Features) == 0 {
		return fmt.Errorf("iris template has empty feature vector")
	}
	if p.Fingerprint != nil && p.Fingerprint.CredentialID == "" {
		return fmt.Errorf("fingerprint credential missing credential ID")
	}
	return nil
}
