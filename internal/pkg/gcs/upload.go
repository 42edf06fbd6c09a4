package gcs

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/service/interfaces"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

type GCSClient struct {
	Client     *storage.Client
	BucketName string
	FolderName string
	now        func() time.Time
}

type GcsInterface interface {
	interfaces.EvidenceStore
	Close(ctx context.Context)
}

var _ GcsInterface = (*GCSClient)(nil)

func NewGCSClient(ctx context.Context, bucketName, folderName string) (GcsInterface, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSClient{
		Client:     client,
		BucketName: bucketName,
		FolderName: folderName,
	}, nil
}

func (g *GCSClient) Close(ctx context.Context) {
	if g.Client == nil {
		return
	}
	if err := g.Client.Close(); err != nil {
		logger.CtxError(ctx, log_messages.ErrorClosingGCSClient, err)
	}
}

// ObjectName places evidence under <folder>/<memberId>/<unix>_<file>.
func (g *GCSClient) ObjectName(memberID, fileName string, at time.Time) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("%s/%s/%d_%s", g.FolderName, memberID, at.Unix(), base)
}

// Upload writes the object once and returns its gs:// URL.
func (g *GCSClient) Upload(ctx context.Context, memberID, fileName, contentType string, data []byte) (string, error) {
	now := time.Now
	if g.now != nil {
		now = g.now
	}
	objectName := g.ObjectName(memberID, fileName, now().UTC())
	object := g.Client.Bucket(g.BucketName).Object(objectName)

	writer := object.If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := writer.Write(data); err != nil {
		logger.CtxError(ctx, log_messages.ErrorUploadingToGCSBucket, err)
		_ = writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		logger.CtxError(ctx, log_messages.ErrorClosingGCSWriter, err)
		return "", err
	}
	logger.CtxInfo(ctx, log_messages.UploadedToGCSBucket, zap.String("objectName", objectName))
	return fmt.Sprintf("gs://%s/%s", g.BucketName, objectName), nil
}
