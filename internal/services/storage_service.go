// internal/services/storage_service.go
package services

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/labtrust/trust-engine/internal/config"
)

// StorageService issues presigned S3 URLs for certification evidence. The
// engine never proxies file bytes.
type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

type PresignedUpload struct {
	UploadURL string    `json:"upload_url"`
	Key       string    `json:"key"`
	ObjectURL string    `json:"object_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

var evidenceContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".csv":  "text/csv",
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		// Return service without S3 for local development
		return &StorageService{config: config}, nil
	}

	// Create AWS session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

func (s *StorageService) Configured() bool {
	return s.s3Client != nil
}

// PresignEvidenceUpload returns a PUT URL for a lab report or purity data
// file belonging to productID.
func (s *StorageService) PresignEvidenceUpload(productID uuid.UUID, filename string) (*PresignedUpload, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := evidenceContentTypes[ext]
	if !ok {
		return nil, ErrInvalidFileType
	}
	if s.s3Client == nil {
		return nil, ErrStorageUnavailable
	}

	key := s.evidenceKey(productID, ext)
	ttl := s.presignTTL()

	req, _ := s.s3Client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(s.config.AWS.EvidenceBucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})

	url, err := req.Presign(ttl)
	if err != nil {
		return nil, NewExternalDependencyError(ErrStorageUnavailable.Key, "failed to presign evidence upload", err)
	}

	return &PresignedUpload{
		UploadURL: url,
		Key:       key,
		ObjectURL: s.objectURL(key),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// PresignEvidenceDownload returns a short-lived GET URL for reviewers.
func (s *StorageService) PresignEvidenceDownload(key string) (string, error) {
	if s.s3Client == nil {
		return "", ErrStorageUnavailable
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.EvidenceBucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(s.presignTTL())
	if err != nil {
		return "", NewExternalDependencyError(ErrStorageUnavailable.Key, "failed to presign evidence download", err)
	}

	return url, nil
}

func (s *StorageService) evidenceKey(productID uuid.UUID, ext string) string {
	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("evidence/%s/%s_%s%s", productID, timestamp, uuid.New().String()[:8], ext)
}

func (s *StorageService) presignTTL() time.Duration {
	if s.config.AWS.PresignTTL <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.config.AWS.PresignTTL) * time.Minute
}

func (s *StorageService) objectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.AWS.EvidenceBucket, s.config.AWS.Region, key)
}
