package s3

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/singleflight"

	"github.com/cellannotation/cas/pkg/loader"
)

// ObjectGetter is the part of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3TableFileLoader is a TableFileLoader that reads uploaded tables from an
// S3 bucket. It uses the AWS SDK v2 for Go.
type S3TableFileLoader struct {
	bucket string
	client ObjectGetter

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewS3TableFileLoaderWithClient creates a new S3TableFileLoader using an
// existing client, for example one shared with the upload path.
func NewS3TableFileLoaderWithClient(bucket string, client ObjectGetter) *S3TableFileLoader {
	return &S3TableFileLoader{
		bucket: bucket,
		client: client,
		cache:  make(map[string][]byte),
	}
}

// NewS3TableFileLoaderParams defines the configuration parameters for
// creating a new S3TableFileLoader.
//
// Endpoint allows overriding the S3 endpoint (useful for S3-compatible
// storage like MinIO). AccessKey and SecretKey provide static credentials.
type NewS3TableFileLoaderParams struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3TableFileLoader creates a new S3TableFileLoader with its own client.
//
// Example:
//
//	l, err := s3.NewS3TableFileLoader(ctx, s3.NewS3TableFileLoaderParams{
//		Bucket:    "cas",
//		Endpoint:  "http://localhost:9000",
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
//		SecretKey: os.Getenv("AWS_SECRET_KEY"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	file := loader.NewTableFile(loader.NewTableFileParams{ID: "1", FilePath: "uploads/obs.csv", Loader: l})
//	data, err := file.GetBytes(ctx)
func NewS3TableFileLoader(ctx context.Context, params NewS3TableFileLoaderParams) (*S3TableFileLoader, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(params.Region),
		config.WithBaseEndpoint(params.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return NewS3TableFileLoaderWithClient(params.Bucket, client), nil
}

// GetFileBytes retrieves the object stored under file.FilePath. Results are
// cached per file.
func (l *S3TableFileLoader) GetFileBytes(ctx context.Context, file loader.TableFile) ([]byte, error) {
	cacheKey := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[cacheKey]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(cacheKey, func() (any, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(file.FilePath),
		})
		if err != nil {
			return nil, err
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, err
		}
		data := buf.Bytes()

		l.cacheMu.Lock()
		l.cache[cacheKey] = data
		l.cacheMu.Unlock()

		return data, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
