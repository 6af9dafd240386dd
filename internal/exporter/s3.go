package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the part of the S3 client the publisher uses
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds the publishing target
type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // optional, for S3 compatible stores
	Profile  string
}

// PublishResult describes one uploaded object
type PublishResult struct {
	Key         string    `json:"key"`
	Location    string    `json:"location"`
	ETag        string    `json:"etag"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// S3Publisher uploads pipeline outputs to a bucket
type S3Publisher struct {
	client PutObjectAPI
	cfg    S3Config
	logger *slog.Logger
}

// NewS3Publisher builds a client from the default AWS credential chain
func NewS3Publisher(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{URL: endpoint, HostnameImmutable: true}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			})))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = awsCfg.Region
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})
	return NewS3PublisherWithClient(client, cfg, logger), nil
}

// NewS3PublisherWithClient wraps an existing client
func NewS3PublisherWithClient(client PutObjectAPI, cfg S3Config, logger *slog.Logger) *S3Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Publisher{
		client: client,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "s3_publisher"), slog.String("bucket", cfg.Bucket)),
	}
}

// Bucket returns the target bucket
func (p *S3Publisher) Bucket() string {
	return p.cfg.Bucket
}

// Key joins the configured prefix and name into an object key
func (p *S3Publisher) Key(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")
	if p.cfg.Prefix == "" {
		return name
	}
	return path.Join(strings.Trim(p.cfg.Prefix, "/"), name)
}

// ContentType guesses the MIME type of an output file
func ContentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".json":
		return "application/json"
	}
	if t := mime.TypeByExtension(filepath.Ext(file)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Publish uploads the file at src under key
func (p *S3Publisher) Publish(ctx context.Context, key, src string) (*PublishResult, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", src, err)
	}

	key = p.Key(key)
	contentType := ContentType(src)
	now := time.Now().UTC()
	out, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"uploaded-by": "adshub",
			"source-file": filepath.Base(src),
			"upload-time": now.Format(time.RFC3339),
		},
	})
	if err != nil {
		p.logger.Error("s3_publish_failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	res := &PublishResult{
		Key:         key,
		Location:    p.location(key),
		Size:        info.Size(),
		ContentType: contentType,
		UploadedAt:  now,
	}
	if out != nil && out.ETag != nil {
		res.ETag = strings.Trim(*out.ETag, `"`)
	}
	p.logger.Info("s3_publish", slog.String("key", key), slog.Int64("size", res.Size))
	return res, nil
}

// PublishAll uploads every file keyed by its base name, stopping at the
// first failure
func (p *S3Publisher) PublishAll(ctx context.Context, files []string) ([]*PublishResult, error) {
	out := make([]*PublishResult, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := p.Publish(ctx, filepath.Base(f), f)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (p *S3Publisher) location(key string) string {
	if p.cfg.Endpoint != "" {
		return strings.TrimSuffix(p.cfg.Endpoint, "/") + "/" + p.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.cfg.Bucket, p.cfg.Region, key)
}
