package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/toolstate-pipeline/interfaces"
)

// s3API is the subset of the S3 client the backend uses. Tests substitute a
// stub implementation.
type s3API interface {
	ListObjectsV2PagesWithContext(ctx aws.Context, input *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, opts ...request.Option) error
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
	CopyObjectWithContext(ctx aws.Context, input *s3.CopyObjectInput, opts ...request.Option) (*s3.CopyObjectOutput, error)
	DeleteObjectsWithContext(ctx aws.Context, input *s3.DeleteObjectsInput, opts ...request.Option) (*s3.DeleteObjectsOutput, error)
	HeadBucketWithContext(ctx aws.Context, input *s3.HeadBucketInput, opts ...request.Option) (*s3.HeadBucketOutput, error)
}

// S3Backend implements an artifact store on Amazon S3 or compatible services.
// Reads use anonymous access (the tools bucket is public); writes require a
// temporary credential triple from the Vault STS exchange.
type S3Backend struct {
	client         s3API
	writeClient    s3API
	bucketName     string
	log            *slog.Logger
	locationURI    string
	hasWriteAccess bool
}

// NewS3Backend creates a new S3 artifact store for the given bucket.
// If creds is complete, the backend will have write access. Otherwise it is
// read-only for publicly accessible objects.
func NewS3Backend(bucketName, region, endpoint string, creds interfaces.Credentials, log *slog.Logger) (*S3Backend, error) {
	uri := fmt.Sprintf("s3://%s/?region=%s", bucketName, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	baseCfg := aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.AnonymousCredentials,
	}
	if endpoint != "" {
		baseCfg.Endpoint = aws.String(endpoint)
		baseCfg.S3ForcePathStyle = aws.Bool(true)
	}

	baseSess, err := session.NewSession(&baseCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	readClient := s3.New(baseSess)

	hasWriteAccess := creds.Validate() == nil
	var writeClient s3API

	if hasWriteAccess {
		writeCfg := baseCfg.Copy()
		writeCfg.Credentials = credentials.NewStaticCredentials(
			creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)

		writeSess, err := session.NewSession(writeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS write session: %w", err)
		}

		writeClient = s3.New(writeSess)
	} else {
		writeClient = readClient
		log.Warn("No S3 credentials provided - write operations will fail unless bucket is public writable")
	}

	return &S3Backend{
		client:         readClient,
		writeClient:    writeClient,
		bucketName:     bucketName,
		log:            log,
		locationURI:    uri,
		hasWriteAccess: hasWriteAccess,
	}, nil
}

// List returns the artifacts under a platform/channel prefix. Objects whose
// keys do not follow the artifact layout are skipped.
func (b *S3Backend) List(ctx context.Context, platform interfaces.Platform, channel interfaces.Channel) ([]interfaces.ArtifactKey, error) {
	start := time.Now()
	prefix := string(platform) + "/" + string(channel) + "/"

	var keys []interfaces.ArtifactKey
	err := b.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucketName),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key, err := interfaces.ParseObjectKey(aws.StringValue(obj.Key))
			if err != nil {
				b.log.Debug("Skipping non-artifact object",
					slog.String("key", aws.StringValue(obj.Key)))
				continue
			}
			keys = append(keys, key)
		}
		return true
	})
	if err != nil {
		b.log.Error("Failed to list objects in S3",
			slog.String("bucket", b.bucketName),
			slog.String("prefix", prefix),
			"err", err)
		return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
	}

	b.log.Debug("Listed artifacts in S3",
		slog.String("bucket", b.bucketName),
		slog.String("prefix", prefix),
		slog.Int("count", len(keys)),
		slog.Duration("duration", time.Since(start)))

	return keys, nil
}

// Fetch retrieves one artifact from S3.
// Returns ErrArtifactNotFound if the object doesn't exist.
func (b *S3Backend) Fetch(ctx context.Context, key interfaces.ArtifactKey) ([]byte, error) {
	data, err := b.getObject(ctx, key.ObjectKey())
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Store uploads one artifact to S3 using the write client. Objects are
// stored with public-read ACL so installers can fetch them anonymously.
func (b *S3Backend) Store(ctx context.Context, key interfaces.ArtifactKey, data []byte) error {
	objectKey := key.ObjectKey()

	_, err := b.writeClient.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader(data),
		ACL:    aws.String("public-read"),
	})
	if err != nil {
		if !b.hasWriteAccess {
			return fmt.Errorf("failed to upload object to S3 (no write credentials provided): %w", err)
		}
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}

	b.log.Debug("Stored artifact in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", objectKey),
		slog.Int("size", len(data)))

	return nil
}

// Copy duplicates an object server-side. The source object is not modified.
func (b *S3Backend) Copy(ctx context.Context, src, dst interfaces.ArtifactKey) error {
	srcKey, dstKey := src.ObjectKey(), dst.ObjectKey()

	_, err := b.writeClient.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucketName),
		Key:        aws.String(dstKey),
		CopySource: aws.String(b.bucketName + "/" + srcKey),
		ACL:        aws.String("public-read"),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			return fmt.Errorf("%w: %s", interfaces.ErrArtifactNotFound, srcKey)
		}
		return fmt.Errorf("failed to copy %s to %s: %w", srcKey, dstKey, err)
	}

	b.log.Debug("Copied artifact in S3",
		slog.String("bucket", b.bucketName),
		slog.String("src", srcKey),
		slog.String("dst", dstKey))

	return nil
}

// Delete removes the given artifacts in one batch call per 1000 keys.
func (b *S3Backend) Delete(ctx context.Context, keys []interfaces.ArtifactKey) error {
	if len(keys) == 0 {
		return nil
	}

	objects := make([]*s3.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, &s3.ObjectIdentifier{Key: aws.String(key.ObjectKey())})
	}

	// DeleteObjects accepts at most 1000 keys per request.
	for len(objects) > 0 {
		batch := objects
		if len(batch) > 1000 {
			batch = batch[:1000]
		}
		objects = objects[len(batch):]

		_, err := b.writeClient.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucketName),
			Delete: &s3.Delete{Objects: batch},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects from S3: %w", err)
		}
	}

	b.log.Debug("Deleted artifacts from S3",
		slog.String("bucket", b.bucketName),
		slog.Int("count", len(keys)))

	return nil
}

// FetchManifest returns the successful-builds manifest, or an empty string
// when it has never been written.
func (b *S3Backend) FetchManifest(ctx context.Context) (string, error) {
	data, err := b.getObject(ctx, interfaces.ManifestObject)
	if err != nil {
		if errors.Is(err, interfaces.ErrArtifactNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// AppendManifest appends one line to the successful-builds manifest.
// The manifest is small; a read-modify-write keeps it a single object.
func (b *S3Backend) AppendManifest(ctx context.Context, line string) error {
	manifest, err := b.FetchManifest(ctx)
	if err != nil {
		return err
	}

	if manifest != "" && !strings.HasSuffix(manifest, "\n") {
		manifest += "\n"
	}
	manifest += strings.TrimSuffix(line, "\n") + "\n"

	_, err = b.writeClient.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucketName),
		Key:         aws.String(interfaces.ManifestObject),
		Body:        bytes.NewReader([]byte(manifest)),
		ACL:         aws.String("public-read"),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("failed to update manifest: %w", err)
	}

	b.log.Info("Appended manifest line",
		slog.String("bucket", b.bucketName),
		slog.String("line", strings.TrimSuffix(line, "\n")))

	return nil
}

// Available checks if the S3 backend is accessible by attempting to head the bucket.
func (b *S3Backend) Available(ctx context.Context) bool {
	start := time.Now()

	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		b.log.Warn("S3 backend unavailable",
			slog.String("bucket", b.bucketName),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *S3Backend) Name() string {
	return fmt.Sprintf("s3-%s", b.bucketName)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *S3Backend) LocationURI() string {
	return b.locationURI
}

func (b *S3Backend) getObject(ctx context.Context, objectKey string) ([]byte, error) {
	start := time.Now()

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			b.log.Debug("Object not found in S3",
				slog.String("bucket", b.bucketName),
				slog.String("key", objectKey))
			return nil, fmt.Errorf("%w: %s", interfaces.ErrArtifactNotFound, objectKey)
		}

		b.log.Error("Failed to get object from S3",
			slog.String("bucket", b.bucketName),
			slog.String("key", objectKey),
			"err", err)
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	b.log.Debug("Fetched object from S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", objectKey),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}
