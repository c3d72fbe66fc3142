package calibration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

const s3Scheme = "s3://"

// ErrNoSource is returned for object-storage paths when no S3 source is configured.
var ErrNoSource = errors.New("no source configured for calibration path")

// Source reads the raw bytes of a calibration file.
type Source interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// FileSource reads local files. Relative paths are resolved against BaseDir.
type FileSource struct {
	BaseDir string
}

// Read returns the content of the file at path.
func (s FileSource) Read(_ context.Context, path string) ([]byte, error) {
	if !filepath.IsAbs(path) && s.BaseDir != "" {
		path = filepath.Join(s.BaseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file %s: %w", path, err)
	}
	return data, nil
}

// S3Config holds the object-storage connection settings.
// Endpoint is optional; set it for S3-compatible stores such as Cloudflare R2 or MinIO.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Source downloads calibration files addressed as s3://bucket/key.
type S3Source struct {
	downloader *manager.Downloader
	log        zerolog.Logger
}

// NewS3Source creates an S3 source. Static credentials are used when both keys are
// set, otherwise the default AWS credential chain applies.
func NewS3Source(ctx context.Context, cfg S3Config, log zerolog.Logger) (*S3Source, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Source{
		downloader: manager.NewDownloader(client),
		log:        log.With().Str("component", "s3_source").Logger(),
	}, nil
}

// Read downloads the object at path (s3://bucket/key).
func (s *S3Source) Read(ctx context.Context, path string) ([]byte, error) {
	bucket, key, err := SplitS3Path(path)
	if err != nil {
		return nil, err
	}

	buf := manager.NewWriteAtBuffer([]byte{})
	n, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", path, err)
	}

	s.log.Debug().Str("bucket", bucket).Str("key", key).Int64("bytes", n).Msg("Calibration file downloaded")
	return buf.Bytes(), nil
}

// SplitS3Path splits s3://bucket/key into bucket and key.
func SplitS3Path(path string) (string, string, error) {
	rest, ok := strings.CutPrefix(path, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %s is not an s3:// path", ErrParse, path)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s must look like s3://bucket/key", ErrParse, path)
	}
	return bucket, key, nil
}

// Router sends s3:// paths to the object store and everything else to the local source.
type Router struct {
	Local  Source
	Remote Source
}

// Read dispatches on the path scheme.
func (r Router) Read(ctx context.Context, path string) ([]byte, error) {
	if strings.HasPrefix(path, s3Scheme) {
		if r.Remote == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoSource, path)
		}
		return r.Remote.Read(ctx, path)
	}
	if r.Local == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSource, path)
	}
	return r.Local.Read(ctx, path)
}
