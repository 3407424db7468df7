// Package archive stores exported logbooks at a destination chosen by the
// user: a local file, a local directory, or an S3 bucket (s3://bucket/key).
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/me/logshack/internal/logging"
)

// ErrInvalidDestination is returned for destinations that cannot be parsed.
var ErrInvalidDestination = errors.New("invalid archive destination")

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// Option configures an Archiver.
type Option func(*Archiver)

// WithS3Client sets the S3 client instead of building one from the
// default AWS credential chain.
func WithS3Client(api PutObjectAPI) Option {
	return func(a *Archiver) { a.s3 = api }
}

// WithRegion sets the AWS region used when the S3 client is built lazily.
func WithRegion(region string) Option {
	return func(a *Archiver) { a.region = region }
}

// WithEndpoint points the lazily built S3 client at an S3-compatible service.
func WithEndpoint(endpoint string) Option {
	return func(a *Archiver) { a.endpoint = endpoint }
}

// Archiver writes exports to their destination.
type Archiver struct {
	region   string
	endpoint string
	logger   *slog.Logger

	once  sync.Once
	s3    PutObjectAPI
	s3Err error
}

// New creates an Archiver.
func New(logger *slog.Logger, opts ...Option) *Archiver {
	if logger == nil {
		logger = logging.Discard()
	}
	a := &Archiver{logger: logger.With("component", "archive")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Destination is a parsed archive target.
type Destination struct {
	Bucket string // set for s3:// destinations
	Key    string // object key or local path
}

// IsS3 reports whether the destination is an S3 object.
func (d Destination) IsS3() bool { return d.Bucket != "" }

// String returns the destination in the form accepted by Parse.
func (d Destination) String() string {
	if d.IsS3() {
		return "s3://" + d.Bucket + "/" + d.Key
	}
	return d.Key
}

// Parse interprets dest. A trailing slash, or a local path naming an existing
// directory, means "inside this directory" and filename is appended.
func Parse(dest, filename string) (Destination, error) {
	if dest == "" {
		dest = "."
	}
	if rest, ok := strings.CutPrefix(dest, "s3://"); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Destination{}, fmt.Errorf("%w: %q has no bucket", ErrInvalidDestination, dest)
		}
		if key == "" || strings.HasSuffix(key, "/") {
			key = path.Join(key, filename)
		}
		return Destination{Bucket: bucket, Key: key}, nil
	}

	if strings.HasSuffix(dest, "/") || strings.HasSuffix(dest, string(filepath.Separator)) {
		return Destination{Key: filepath.Join(dest, filename)}, nil
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return Destination{Key: filepath.Join(dest, filename)}, nil
	}
	return Destination{Key: dest}, nil
}

// Save writes r to dest and returns where the data ended up.
func (a *Archiver) Save(ctx context.Context, dest, filename string, r io.Reader) (string, error) {
	d, err := Parse(dest, filename)
	if err != nil {
		return "", err
	}
	if d.IsS3() {
		return a.saveS3(ctx, d, r)
	}
	return a.saveFile(d, r)
}

func (a *Archiver) saveFile(d Destination, r io.Reader) (string, error) {
	if dir := filepath.Dir(d.Key); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(d.Key)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", d.Key, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", d.Key, err)
	}
	a.logger.Debug("export archived", "path", d.Key, "bytes", n)
	return d.Key, nil
}

func (a *Archiver) saveS3(ctx context.Context, d Destination, r io.Reader) (string, error) {
	api, err := a.client(ctx)
	if err != nil {
		return "", err
	}

	// PutObject needs a seekable body to compute the payload checksum.
	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read export: %w", err)
		}
		body = bytes.NewReader(data)
	}

	_, err = api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.Bucket),
		Key:         aws.String(d.Key),
		Body:        body,
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", d, err)
	}
	a.logger.Debug("export archived", "bucket", d.Bucket, "key", d.Key)
	return d.String(), nil
}

func (a *Archiver) client(ctx context.Context) (PutObjectAPI, error) {
	a.once.Do(func() {
		if a.s3 != nil {
			return
		}
		var opts []func(*awsconfig.LoadOptions) error
		if a.region != "" {
			opts = append(opts, awsconfig.WithRegion(a.region))
		}
		cfg, err := loadDefaultAWSConfig(ctx, opts...)
		if err != nil {
			a.s3Err = fmt.Errorf("load AWS config: %w", err)
			return
		}
		a.s3 = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if a.endpoint != "" {
				o.BaseEndpoint = aws.String(a.endpoint)
				o.UsePathStyle = true
			}
		})
	})
	return a.s3, a.s3Err
}
