package mirror

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"slidepack/logger"
	"slidepack/storage"
)

// uploadToGCS authenticates with "credentialsJSON" (raw or base64) or
// "credentialsFile"; without either it uses application default credentials.
func uploadToGCS(ctx context.Context, settings map[string]string, key string, r io.Reader) error {
	bucket := settings["bucket"]
	if bucket == "" {
		return fmt.Errorf("missing setting: bucket")
	}

	var opts []option.ClientOption
	switch {
	case settings["credentialsJSON"] != "":
		raw := settings["credentialsJSON"]
		creds, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			creds = []byte(raw)
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	case settings["credentialsFile"] != "":
		opts = append(opts, option.WithCredentialsFile(settings["credentialsFile"]))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("storage.NewClient: %w", err)
	}
	defer client.Close()

	wc := client.Bucket(bucket).Object(key).NewWriter(ctx)
	wc.ContentType = storage.ContentType(key)
	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}

	logger.Infof("Uploaded object '%s' to bucket '%s'", key, bucket)
	return nil
}
