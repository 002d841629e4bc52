package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/cubicd/internal/common"
	"github.com/dmitrijs2005/cubicd/internal/logging"
)

// s3API is the part of *s3.Client the store needs.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store maps store paths onto object keys in one bucket, under an
// optional key prefix. Works against AWS and S3-compatible servers (MinIO).
type S3Store struct {
	client s3API
	bucket string
	prefix string
	logger logging.Logger
}

// OpenS3 builds an S3 client for opts.
func OpenS3(ctx context.Context, opts S3Options, logger logging.Logger) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.User,
			opts.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info(ctx, "store mounted", "bucket", opts.Bucket, "prefix", opts.Prefix)
	return NewS3Store(client, opts.Bucket, opts.Prefix, logger), nil
}

func NewS3Store(client s3API, bucket, prefix string, logger logging.Logger) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

func (s *S3Store) key(np string) string {
	return s.prefix + strings.TrimPrefix(np, "/")
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func (s *S3Store) Read(ctx context.Context, p string) ([]byte, error) {
	rc, _, err := s.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, errors.Join(common.ErrStorage, err))
	}
	return b, nil
}

func (s *S3Store) Open(ctx context.Context, p string) (io.ReadCloser, int64, error) {
	np := NormalizePath(p)
	if np == "/" {
		return nil, 0, fmt.Errorf("%s: %w", np, common.ErrNotFound)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(np)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, 0, fmt.Errorf("%s: %w", np, common.ErrNotFound)
		}
		return nil, 0, fmt.Errorf("get %s: %w", np, errors.Join(common.ErrStorage, err))
	}
	return out.Body, aws.ToInt64(out.ContentLength), nil
}

func (s *S3Store) Write(ctx context.Context, p string, data []byte) error {
	np, err := writablePath(p)
	if err != nil {
		return err
	}
	return s.put(ctx, np, bytes.NewReader(data), int64(len(data)))
}

func (s *S3Store) put(ctx context.Context, np string, body io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(np)),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", np, errors.Join(common.ErrStorage, err))
	}
	return nil
}

// Create truncates the object with an empty put and spools the incoming
// bytes to a local temp file, uploaded as one object on Close.
func (s *S3Store) Create(ctx context.Context, p string) (Writer, error) {
	np, err := writablePath(p)
	if err != nil {
		return nil, err
	}
	if err := s.put(ctx, np, bytes.NewReader(nil), 0); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp("", "cubicd-s3-*")
	if err != nil {
		return nil, fmt.Errorf("spool %s: %w", np, errors.Join(common.ErrStorage, err))
	}
	return &s3Writer{ctx: ctx, store: s, path: np, f: f}, nil
}

func (s *S3Store) Delete(ctx context.Context, p string) (bool, error) {
	np := NormalizePath(p)
	if np == "/" {
		return false, nil
	}

	ok, err := s.Exists(ctx, np)
	if err != nil || !ok {
		return false, err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(np)),
	})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", np, errors.Join(common.ErrStorage, err))
	}
	return true, nil
}

func (s *S3Store) List(ctx context.Context) ([]FileInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.prefix),
		Delimiter: aws.String("/"),
	})

	result := make([]FileInfo, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list: %w", errors.Join(common.ErrStorage, err))
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if name == "" {
				continue
			}
			result = append(result, FileInfo{Name: "/" + name, Size: aws.ToInt64(obj.Size)})
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), s.prefix), "/")
			if name == "" {
				continue
			}
			result = append(result, FileInfo{Name: "/" + name})
		}
	}
	return result, nil
}

func (s *S3Store) Exists(ctx context.Context, p string) (bool, error) {
	np := NormalizePath(p)
	if np == "/" {
		return false, nil
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(np)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head %s: %w", np, err)
	}
	return true, nil
}

func (s *S3Store) Close() error { return nil }

type s3Writer struct {
	ctx   context.Context
	store *S3Store
	path  string
	f     *os.File
	done  bool
}

func (w *s3Writer) Write(b []byte) (int, error) {
	if w.done {
		return 0, os.ErrClosed
	}
	return w.f.Write(b)
}

func (w *s3Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	defer w.discard()

	size, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Join(common.ErrStorage, err)
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return errors.Join(common.ErrStorage, err)
	}
	return w.store.put(w.ctx, w.path, w.f, size)
}

// Abort drops the spool; the object keeps the truncated content.
func (w *s3Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.discard()
	return nil
}

func (w *s3Writer) discard() {
	_ = w.f.Close()
	_ = os.Remove(w.f.Name())
}
