// Package archive uploads raw Karate artifacts to S3-compatible storage so
// the input of every sync is kept next to the run it produced.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultRegion is used when the configuration names none.
const DefaultRegion = "us-east-1"

// Config selects the bucket and how to reach it.
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	PathStyle    bool
	AccessKey    string
	SecretKey    string
	SessionToken string
}

// Object describes an uploaded object.
type Object struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	Location string `json:"location,omitempty"`
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Archiver uploads files to one bucket.
type Archiver struct {
	cfg      Config
	uploader uploader
}

// New builds an Archiver. Static credentials are used when set, otherwise the
// default AWS credential chain applies.
func New(ctx context.Context, cfg Config) (*Archiver, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("archive: bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = DefaultRegion
	}
	options := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" || cfg.SessionToken != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
	})
	return &Archiver{cfg: cfg, uploader: manager.NewUploader(client)}, nil
}

// Key returns the object key for an artifact:
// <prefix>/<build>/<invocation>/<file base name>.
func (a *Archiver) Key(build, invocationID, localPath string) string {
	return ResolveKey(a.cfg.Prefix, build, invocationID, filepath.Base(localPath))
}

// Upload stores the file at localPath under key.
func (a *Archiver) Upload(ctx context.Context, key, localPath string) (Object, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return Object{}, fmt.Errorf("open artifact %q: %w", localPath, err)
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		return Object{}, fmt.Errorf("stat artifact %q: %w", localPath, err)
	}

	out, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return Object{}, fmt.Errorf("upload s3://%s/%s: %w", a.cfg.Bucket, key, err)
	}
	obj := Object{Bucket: a.cfg.Bucket, Key: key, Size: stat.Size()}
	if out != nil {
		obj.Location = out.Location
	}
	return obj, nil
}

// ResolveKey joins non-empty key parts with "/" and strips surrounding slashes.
func ResolveKey(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p != "" {
			clean = append(clean, p)
		}
	}
	return path.Join(clean...)
}
