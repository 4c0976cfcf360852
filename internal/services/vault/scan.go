package vault

import (
	"context"
	"errors"
	"time"

	"github.com/cybervault/cybervault/internal/events"
	"github.com/cybervault/cybervault/internal/index"
	"github.com/cybervault/cybervault/internal/models"
	"github.com/cybervault/cybervault/internal/storage"
)

// Scan walks every record the owner has, decrypts each payload, and
// recomputes its checksum. One bad record never stops the walk; the report
// carries a per-file verdict for all of them.
func (s *Service) Scan(ctx context.Context, owner, passphrase string) (*models.AuditReport, error) {
	report := &models.AuditReport{StartedAt: time.Now().UTC()}

	idx, err := s.index.Load(owner)
	if err != nil {
		if errors.Is(err, index.ErrIndexNotFound) {
			report.CompletedAt = time.Now().UTC()
			return report, nil
		}
		return nil, err
	}

	for _, record := range idx.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := s.scanRecord(owner, passphrase, record)
		report.Results = append(report.Results, result)

		report.Totals.Files++
		report.Totals.SizeBytes += record.Size
		switch result.Status {
		case models.ScanVerified:
			report.Totals.Verified++
		case models.ScanFailed:
			report.Totals.Failed++
		case models.ScanMissing:
			report.Totals.Missing++
		}
	}

	report.CompletedAt = time.Now().UTC()

	logger := s.logger
	if l := events.FromContext(ctx); l != nil {
		logger = l
	}
	logger.WithFields(map[string]interface{}{
		"owner":    owner,
		"files":    report.Totals.Files,
		"verified": report.Totals.Verified,
		"failed":   report.Totals.Failed,
		"missing":  report.Totals.Missing,
	}).Info("Integrity scan complete")

	return report, nil
}

func (s *Service) scanRecord(owner, passphrase string, record *models.FileRecord) models.AuditScanResult {
	result := models.AuditScanResult{
		RecordID: record.ID,
		Name:     record.Name,
	}

	ciphertext, err := s.blobs.Read(record.Payload.Ref)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			result.Status = models.ScanMissing
			result.Error = "payload not found"
		} else {
			result.Status = models.ScanFailed
			result.Error = err.Error()
		}
		return result
	}

	key := s.crypto.DeriveKey(passphrase, record.Salt)
	plaintext, err := s.crypto.Decrypt(ciphertext, record.IV, key)
	if err != nil {
		result.Status = models.ScanFailed
		result.Error = "decryption failed"
		return result
	}

	if actual := s.crypto.Checksum(plaintext); actual != record.Checksum {
		result.Status = models.ScanFailed
		result.Error = "checksum mismatch"
		return result
	}

	result.Status = models.ScanVerified
	return result
}
