package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"

	"github.com/cellannotation/cas/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectStore keeps uploaded tables and build results.
type ObjectStore interface {
	PutFile(ctx context.Context, key string, body io.ReadSeeker) error
	GetFile(ctx context.Context, key string) ([]byte, error)
	DeleteFolder(ctx context.Context, prefix string) error
}

// S3API is the subset of the S3 client used by S3Bucket.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Bucket is an ObjectStore backed by a single S3 bucket.
type S3Bucket struct {
	Client S3API
	Bucket string
}

// NewS3Client builds a path-style S3 client from the AWS_* environment
// variables, which also works against MinIO.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(util.GetEnvString("AWS_REGION", "us-east-1")),
		config.WithBaseEndpoint(util.GetEnv("AWS_ENDPOINT")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			util.GetEnv("AWS_ACCESS_KEY"),
			util.GetEnv("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// NewS3Bucket wraps client for the bucket named by AWS_BUCKET.
func NewS3Bucket(client S3API) *S3Bucket {
	return &S3Bucket{Client: client, Bucket: util.GetEnvString("AWS_BUCKET", "cas")}
}

// UploadKey is the object key of an uploaded table.
func UploadKey(taxonomyID, fileName string) string {
	return path.Join("taxonomies", taxonomyID, "upload"+path.Ext(fileName))
}

// ResultKey is the object key of a finished taxonomy document.
func ResultKey(taxonomyID string) string {
	return path.Join("taxonomies", taxonomyID, "result.json")
}

// FolderKey is the prefix holding every object of a taxonomy.
func FolderKey(taxonomyID string) string {
	return path.Join("taxonomies", taxonomyID) + "/"
}

func (b *S3Bucket) PutFile(ctx context.Context, key string, body io.ReadSeeker) error {
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := b.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return nil
}

func (b *S3Bucket) GetFile(ctx context.Context, key string) ([]byte, error) {
	out, err := b.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s from S3: %w", key, err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, out.Body); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

// DeleteFolder removes every object below prefix, page by page.
func (b *S3Bucket) DeleteFolder(ctx context.Context, prefix string) error {
	if prefix == "" {
		return errors.New("refusing to delete an empty prefix")
	}

	listInput := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.Bucket),
		Prefix: aws.String(prefix),
	}

	for {
		listOutput, err := b.Client.ListObjectsV2(ctx, listInput)
		if err != nil {
			return fmt.Errorf("failed to list objects in folder %s: %w", prefix, err)
		}
		if len(listOutput.Contents) == 0 {
			return nil
		}

		objects := make([]types.ObjectIdentifier, 0, len(listOutput.Contents))
		for _, obj := range listOutput.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}

		_, err = b.Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.Bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects in folder %s: %w", prefix, err)
		}

		if !aws.ToBool(listOutput.IsTruncated) {
			return nil
		}
		listInput.ContinuationToken = listOutput.NextContinuationToken
	}
}
