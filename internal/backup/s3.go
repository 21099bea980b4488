package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"broiler-backend/internal/config"
	"broiler-backend/internal/store"
)

// Backupper uploads periodic JSON snapshots of the document store to an
// S3-compatible bucket (R2 in production).
type Backupper struct {
	cfg   *config.Config
	store store.DocumentStore
}

func NewBackupper(cfg *config.Config, st store.DocumentStore) *Backupper {
	return &Backupper{cfg: cfg, store: st}
}

// Start runs backups every interval until ctx is cancelled. The first backup
// fires after one interval, not immediately, so restarts don't hammer the
// bucket.
func (b *Backupper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[Backup] Scheduled every %s to bucket %s", interval, b.cfg.Backup.Bucket)
	for {
		select {
		case <-ctx.Done():
			log.Println("[Backup] Stopped")
			return
		case <-ticker.C:
			if _, err := b.RunOnce(ctx); err != nil {
				log.Printf("[Backup] Snapshot failed: %v", err)
			}
		}
	}
}

// RunOnce performs a single snapshot upload and returns the object key.
// Scheduled runs log and swallow the error; the next tick retries.
func (b *Backupper) RunOnce(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	log.Println("[Backup] Starting snapshot...")

	client, err := b.newClient(ctx)
	if err != nil {
		return "", fmt.Errorf("configure client: %w", err)
	}

	data, err := b.buildSnapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("build snapshot: %w", err)
	}

	key := fmt.Sprintf("snapshots/broiler_%s.json", time.Now().UTC().Format("20060102_150405"))
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.cfg.Backup.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	log.Printf("[Backup] Success: %s (%d bytes)", key, len(data))
	return key, nil
}

func (b *Backupper) newClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			b.cfg.Backup.AccessKey,
			b.cfg.Backup.SecretKey,
			"",
		)),
		awsconfig.WithRegion(b.cfg.Backup.Region),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if b.cfg.Backup.Endpoint != "" {
			o.BaseEndpoint = aws.String(b.cfg.Backup.Endpoint)
		}
	}), nil
}

// buildSnapshot marshals the full document tree into one JSON object keyed
// by path. History and daily nodes are nested per batch, so those are walked
// through the batch list.
func (b *Backupper) buildSnapshot(ctx context.Context) ([]byte, error) {
	snapshot := map[string]json.RawMessage{}

	collect := func(node string) error {
		docs, err := b.store.List(ctx, node)
		if err != nil {
			return fmt.Errorf("list %s: %w", node, err)
		}
		for key, raw := range docs {
			snapshot[node+"/"+key] = raw
		}
		return nil
	}

	for _, node := range []string{"batches", "sensor_data", "users"} {
		if err := collect(node); err != nil {
			return nil, err
		}
	}

	batches, err := b.store.List(ctx, "batches")
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	for batchID := range batches {
		if err := collect("batch_history/" + batchID); err != nil {
			return nil, err
		}
		if err := collect("batch_daily/" + batchID); err != nil {
			return nil, err
		}
	}

	return json.MarshalIndent(snapshot, "", "  ")
}
