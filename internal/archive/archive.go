// Package archive copies committed document content to object storage so the
// raw text survives outside the relational store.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"archivio/bot/internal/store"
	"archivio/bot/internal/validate"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver writes committed document content into a MinIO/S3 bucket.
type Archiver struct {
	client *minio.Client
	bucket string
}

// Options configures the MinIO connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// New creates an Archiver and makes sure the bucket exists.
func New(ctx context.Context, opts Options) (*Archiver, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	a := &Archiver{client: client, bucket: opts.Bucket}
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", opts.Bucket, err)
		}
	}
	return a, nil
}

// ArchiveCommitted uploads each document's content as a text object keyed by
// activity and document ID. It runs in the background so a slow or down
// object store never blocks a commit.
func (a *Archiver) ArchiveCommitted(docs []store.Document) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, doc := range docs {
			key := fmt.Sprintf("%s/%s.txt", validate.Filename(doc.ActivityName), doc.ID)
			_, err := a.client.PutObject(ctx, a.bucket, key,
				bytes.NewReader(doc.Content), int64(len(doc.Content)),
				minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
			if err != nil {
				log.Printf("archive: upload %s: %v", key, err)
			}
		}
	}()
}
