package biometric

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cybervault/cybervault/internal/config"
	"github.com/cybervault/cybervault/internal/events"
	"github.com/cybervault/cybervault/internal/models"
)

// Service runs biometric enrollment and verification. A successful match is
// a gate in front of the passphrase unlock, never a key source: no vault
// key material is ever derived from biometric data.
type Service struct {
	store          ProfileStore
	pollInterval   time.Duration
	captureTimeout time.Duration
	logger         *events.Logger
}

// NewService creates a biometric service.
func NewService(store ProfileStore, cfg *config.BiometricConfig, logger *events.Logger) *Service {
	return &Service{
		store:          store,
		pollInterval:   cfg.PollInterval,
		captureTimeout: cfg.CaptureTimeout,
		logger:         logger.WithField("service", "biometric"),
	}
}

// Profile returns the owner's biometric profile, or an empty one.
func (s *Service) Profile(owner string) (*models.BiometricProfile, error) {
	profile, err := s.store.Load(owner)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return &models.BiometricProfile{Owner: owner}, nil
		}
		return nil, err
	}
	return profile, nil
}

// EnrollFace captures the policy's sample count and stores an averaged
// face template. Re-enrollment replaces the previous template.
func (s *Service) EnrollFace(ctx context.Context, owner string, captureCtx CaptureContext, sampler FaceSampler) (*models.FaceTemplate, error) {
	policy := PolicyFor(captureCtx)

	samples, err := collect(ctx, policy.Samples, s.pollInterval, s.captureTimeout, sampler.Sample, nil)
	if err != nil {
		return nil, err
	}

	template, err := newFaceTemplate(samples)
	if err != nil {
		return nil, fmt.Errorf("build face template: %w", err)
	}

	profile, err := s.Profile(owner)
	if err != nil {
		return nil, err
	}
	profile.Face = template

	if err := s.store.Save(profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"owner":   owner,
		"samples": template.SampleCount,
	}).Info("Face template enrolled")

	return template, nil
}

// VerifyFace captures one live descriptor and compares it to the stored
// template. No match is an error, not a false return; callers treat it
// like any other failed unlock attempt.
func (s *Service) VerifyFace(ctx context.Context, owner string, captureCtx CaptureContext, sampler FaceSampler) error {
	profile, err := s.store.Load(owner)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return models.ErrNotRegistered
		}
		return err
	}
	if profile.Face == nil {
		return models.ErrNotRegistered
	}

	policy := PolicyFor(captureCtx)
	samples, err := collect(ctx, 1, s.pollInterval, s.captureTimeout, sampler.Sample, nil)
	if err != nil {
		return err
	}

	ok, distance, err := matchFace(profile.Face, samples[0], policy)
	if err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"owner":    owner,
		"distance": distance,
		"matched":  ok,
	}).Debug("Face comparison")

	if !ok {
		return models.ErrBiometricNoMatch
	}
	return nil
}

// irisGate wraps the policy's quality check as a capture predicate.
// Rejections are mid-capture guidance: the frame is dropped and polling
// continues.
func (s *Service) irisGate(policy Policy) func([]int) error {
	return func(features []int) error {
		if err := irisQuality(features, policy); err != nil {
			s.logger.WithError(err).Debug("Iris frame rejected")
			return err
		}
		return nil
	}
}

// EnrollIris polls until enough quality-passing samples accumulate, then
// stores their average.
func (s *Service) EnrollIris(ctx context.Context, owner string, captureCtx CaptureContext, sampler IrisSampler) (*models.IrisTemplate, error) {
	policy := PolicyFor(captureCtx)

	samples, err := collect(ctx, policy.Samples, s.pollInterval, s.captureTimeout, sampler.Sample, s.irisGate(policy))
	if err != nil {
		return nil, err
	}

	template, err := newIrisTemplate(samples)
	if err != nil {
		return nil, fmt.Errorf("build iris template: %w", err)
	}

	profile, err := s.Profile(owner)
	if err != nil {
		return nil, err
	}
	profile.Iris = template

	if err := s.store.Save(profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"owner":   owner,
		"samples": template.SampleCount,
	}).Info("Iris template enrolled")

	return template, nil
}

// VerifyIris captures one live sample and compares it to the stored template.
func (s *Service) VerifyIris(ctx context.Context, owner string, captureCtx CaptureContext, sampler IrisSampler) error {
	profile, err := s.store.Load(owner)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return models.ErrNotRegistered
		}
		return err
	}
	if profile.Iris == nil {
		return models.ErrNotRegistered
	}

	policy := PolicyFor(captureCtx)
	samples, err := collect(ctx, 1, s.pollInterval, s.captureTimeout, sampler.Sample, s.irisGate(policy))
	if err != nil {
		return err
	}

	ok, similarity, err := matchIris(profile.Iris, samples[0], policy)
	if err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"owner":      owner,
		"similarity": similarity,
		"matched":    ok,
	}).Debug("Iris comparison")

	if !ok {
		return models.ErrBiometricNoMatch
	}
	return nil
}

// RegisterFingerprint stores a platform authenticator credential. The
// engine treats the credential as opaque; assertion signatures are checked
// by the platform, the engine only tracks identity and usage.
func (s *Service) RegisterFingerprint(owner, username string, credentialID, publicKey []byte, transports []string) (*models.FingerprintCredential, error) {
	if len(credentialID) == 0 {
		return nil, fmt.Errorf("empty credential ID")
	}

	cred := &models.FingerprintCredential{
		ID:           uuid.New().String(),
		UserID:       uuid.New().String(),
		Username:     username,
		CredentialID: base64.StdEncoding.EncodeToString(credentialID),
		PublicKey:    base64.StdEncoding.EncodeToString(publicKey),
		CreatedAt:    time.Now().UTC(),
		Transports:   transports,
	}

	profile, err := s.Profile(owner)
	if err != nil {
		return nil, err
	}
	profile.Fingerprint = cred

	if err := s.store.Save(profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	s.logger.WithField("owner", owner).Info("Fingerprint credential registered")
	return cred, nil
}

// VerifyFingerprint checks an assertion's credential ID against the stored
// credential and records the authenticator's signature counter.
func (s *Service) VerifyFingerprint(owner string, credentialID []byte, counter uint32) error {
	profile, err := s.store.Load(owner)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return models.ErrNotRegistered
		}
		return err
	}
	if profile.Fingerprint == nil {
		return models.ErrNotRegistered
	}

	if base64.StdEncoding.EncodeToString(credentialID) != profile.Fingerprint.CredentialID {
		return models.ErrBiometricNoMatch
	}

	profile.Fingerprint.BumpUsage(counter)
	if err := s.store.Save(profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	return nil
}

// Unenroll removes one modality's template. Removing the last one deletes
// the profile file.
func (s *Service) Unenroll(owner string, modality models.BiometricModality) error {
	profile, err := s.store.Load(owner)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return models.ErrNotRegistered
		}
		return err
	}

	switch modality {
	case models.ModalityFace:
		if profile.Face == nil {
			return models.ErrNotRegistered
		}
		profile.Face = nil
	case models.ModalityIris:
		if profile.Iris == nil {
			return models.ErrNotRegistered
		}
		profile.Iris = nil
	case models.ModalityFingerprint:
		if profile.Fingerprint == nil {
			return models.ErrNotRegistered
		}
		profile.Fingerprint = nil
	default:
		return fmt.Errorf("unknown modality: %s", modality)
	}

	if profile.EnrolledCount() == 0 {
		return s.store.Delete(owner)
	}
	return s.store.Save(profile)
}
