package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"debt_flow_app_go/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArchiveStore keeps copies of imported files and generated reports
type ArchiveStore interface {
	Put(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (*ArchivedFile, error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	Name() string
}

// ArchivedFile describes a stored object
type ArchivedFile struct {
	Key         string
	Size        int64
	ContentType string
	Location    string
}

// NewArchiveStore picks R2 when fully configured and reachable, otherwise
// the local upload directory.
func NewArchiveStore(cfg *config.Config) ArchiveStore {
	log := zap.L().Named("storage")
	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" {
		log.Info("using local archive", zap.String("path", cfg.UploadDir))
		return NewLocalArchive(cfg.UploadDir)
	}

	r2, err := NewR2Archive(cfg)
	if err != nil {
		log.Warn("R2 unavailable, falling back to local archive", zap.Error(err))
		return NewLocalArchive(cfg.UploadDir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := r2.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r2.bucket)}); err != nil {
		log.Warn("R2 bucket check failed, falling back to local archive", zap.Error(err))
		return NewLocalArchive(cfg.UploadDir)
	}

	log.Info("using R2 archive", zap.String("bucket", cfg.R2BucketName))
	return r2
}

// R2Archive stores objects in a Cloudflare R2 bucket over the S3 API
type R2Archive struct {
	client *s3.Client
	bucket string
}

// NewR2Archive creates the S3 client for the account's R2 endpoint
func NewR2Archive(cfg *config.Config) (*R2Archive, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	creds := credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &R2Archive{client: client, bucket: cfg.R2BucketName}, nil
}

func (r *R2Archive) Name() string { return "r2" }

func (r *R2Archive) Put(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (*ArchivedFile, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to R2: %w", err)
	}
	return &ArchivedFile{
		Key:         key,
		Size:        size,
		ContentType: contentType,
		Location:    "r2://" + r.bucket + "/" + key,
	}, nil
}

func (r *R2Archive) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object from R2: %w", err)
	}
	contentType := ContentTypeFor(key)
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return out.Body, contentType, nil
}

func (r *R2Archive) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from R2: %w", err)
	}
	return nil
}

// LocalArchive stores objects under a directory
type LocalArchive struct {
	baseDir string
}

func NewLocalArchive(baseDir string) *LocalArchive {
	return &LocalArchive{baseDir: baseDir}
}

func (l *LocalArchive) Name() string { return "local" }

func (l *LocalArchive) path(key string) (string, error) {
	full := filepath.Join(l.baseDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(l.baseDir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	return full, nil
}

func (l *LocalArchive) Put(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (*ArchivedFile, error) {
	full, err := l.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	return &ArchivedFile{Key: key, Size: written, ContentType: contentType, Location: full}, nil
}

func (l *LocalArchive) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	full, err := l.path(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, ContentTypeFor(key), nil
}

func (l *LocalArchive) Delete(ctx context.Context, key string) error {
	full, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// ContentTypeFor guesses the content type of the files this app stores
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}

// ImportArchiveKey is where an uploaded case file is kept
func ImportArchiveKey(userID, originalFilename string, now time.Time) string {
	return fmt.Sprintf("imports/%s/%s/%s%s",
		now.UTC().Format("2006/01"), userID, uuid.New().String(), strings.ToLower(filepath.Ext(originalFilename)))
}

// ReportArchiveKey is where a generated report is kept
func ReportArchiveKey(name string, now time.Time) string {
	return fmt.Sprintf("reports/%s/%s_%d.pdf", now.UTC().Format("2006/01"), name, now.Unix())
}
