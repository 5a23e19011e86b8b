package icp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// PayloadSource is where the wallet wasm module is read from
type PayloadSource interface {
	Location() string
	Read(ctx context.Context) ([]byte, error)
}

// NewPayloadSource picks a source for a configured location: s3://bucket/key or a local path
func NewPayloadSource(ctx context.Context, location string) (PayloadSource, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: CANISTER_WASM_PATH not configured", ErrConfiguration)
	}
	if !strings.HasPrefix(location, "s3://") {
		return &FileSource{Path: location}, nil
	}

	parsed, err := url.Parse(location)
	if err != nil || parsed.Host == "" || strings.Trim(parsed.Path, "/") == "" {
		return nil, fmt.Errorf("%w: invalid s3 location %q", ErrConfiguration, location)
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load aws configuration: %w", ErrConfiguration, err)
	}
	return NewS3Source(s3.NewFromConfig(awsCfg), parsed.Host, strings.TrimPrefix(parsed.Path, "/")), nil
}

type FileSource struct {
	Path string
}

func (s *FileSource) Location() string {
	return s.Path
}

func (s *FileSource) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s: %w", ErrAssetNotFound, s.Path, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetLoad, s.Path, err)
	}
	return data, nil
}

// S3GetObjectAPI is the slice of the S3 client used to fetch the payload
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Source struct {
	client S3GetObjectAPI
	bucket string
	key    string
}

func NewS3Source(client S3GetObjectAPI, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

func (s *S3Source) Location() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

func (s *S3Source) Read(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var noSuchBucket *types.NoSuchBucket
		if errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
			return nil, fmt.Errorf("%w: %s: %w", ErrAssetNotFound, s.Location(), err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetLoad, s.Location(), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetLoad, s.Location(), err)
	}
	return data, nil
}
