package mirror

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"slidepack/logger"
	"slidepack/storage"
)

// uploadToS3 uses static keys from settings. "endpoint" and "pathStyle"
// allow S3 compatible stores such as MinIO.
func uploadToS3(ctx context.Context, settings map[string]string, key string, r io.Reader) error {
	bucket := settings["bucket"]
	if bucket == "" || settings["region"] == "" {
		return fmt.Errorf("missing settings: bucket, region")
	}

	opts := s3.Options{
		Region:      settings["region"],
		Credentials: credentials.NewStaticCredentialsProvider(settings["accessKey"], settings["secretKey"], ""),
	}
	if endpoint := settings["endpoint"]; endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
	}
	opts.UsePathStyle = settings["pathStyle"] == "true"

	uploader := manager.NewUploader(s3.New(opts))
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(storage.ContentType(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, bucket, err)
	}

	logger.Infof("Uploaded object '%s' to bucket '%s'", key, bucket)
	return nil
}
