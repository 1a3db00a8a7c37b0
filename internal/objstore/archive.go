package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds credentials for S3-compatible object storage.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Archive keeps an append-only log object ("logs.txt") in a bucket. Appends
// are read-modify-write on the whole object, serialized by a local mutex;
// the object is small and this mirrors how the logs were kept before.
type Archive struct {
	mu     sync.Mutex
	client s3Client
	bucket string
	key    string
}

const defaultLogKey = "logs.txt"

// New creates an archive. With incomplete credentials the archive is
// disabled: appends are dropped and reads return no lines.
func New(cfg S3Config) *Archive {
	a := &Archive{
		bucket: cfg.Bucket,
		key:    defaultLogKey,
	}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		a.client = newS3Client(cfg)
	}
	return a
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Configured returns true if the archive has a usable client.
func (a *Archive) Configured() bool {
	return a.client != nil
}

// Append adds one line to the log object.
func (a *Archive) Append(ctx context.Context, line string) error {
	if a.client == nil {
		return fmt.Errorf("object storage not configured")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	current, err := a.download(ctx)
	if err != nil {
		return err
	}

	updated := current + line + "\n"
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key),
		Body:   strings.NewReader(updated),
	})
	if err != nil {
		return fmt.Errorf("upload logs: %w", err)
	}
	return nil
}

// Lines returns the accumulated log lines, oldest first.
func (a *Archive) Lines(ctx context.Context) ([]string, error) {
	if a.client == nil {
		return nil, fmt.Errorf("object storage not configured")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	content, err := a.download(ctx)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, nil
	}
	return strings.Split(strings.TrimRight(content, "\n"), "\n"), nil
}

// download fetches the current object, treating a missing key as empty.
func (a *Archive) download(ctx context.Context) (string, error) {
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", nil
		}
		return "", fmt.Errorf("download logs: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fmt.Errorf("read logs: %w", err)
	}
	return string(data), nil
}
