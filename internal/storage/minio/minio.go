package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/minio/minio-go/v7"
)

type Client interface {
	PutObject(
		ctx context.Context,
		bucketName string,
		objectName string,
		reader io.Reader,
		objectSize int64,
		opts minio.PutObjectOptions,
	) (info minio.UploadInfo, err error)
	PresignedGetObject(
		ctx context.Context,
		bucketName string,
		objectName string,
		expires time.Duration,
		reqParams url.Values,
	) (u *url.URL, err error)
	RemoveObject(
		ctx context.Context,
		bucketName string,
		objectName string,
		opts minio.RemoveObjectOptions,
	) error
}

// Minio keeps message image objects.
type Minio struct {
	mc         Client
	bucketName string
	expires    time.Duration
}

func New(mc Client, bucketName string, expires time.Duration) *Minio {
	return &Minio{
		mc:         mc,
		bucketName: bucketName,
		expires:    expires,
	}
}

// SaveImage uploads the image under image.ID and returns a presigned url.
func (m *Minio) SaveImage(ctx context.Context, image models.Image) (string, error) {
	const op = "storage.minio.SaveImage"

	_, err := m.mc.PutObject(
		ctx,
		m.bucketName,
		image.ID,
		bytes.NewReader(image.Data),
		int64(len(image.Data)),
		minio.PutObjectOptions{ContentType: image.ContentType},
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	url, err := m.ImageUrl(ctx, image.ID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func (m *Minio) ImageUrl(ctx context.Context, key string) (string, error) {
	const op = "storage.minio.ImageUrl"

	u, err := m.mc.PresignedGetObject(ctx, m.bucketName, key, m.expires, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return u.String(), nil
}

func (m *Minio) DeleteImage(ctx context.Context, key string) error {
	const op = "storage.minio.DeleteImage"

	err := m.mc.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
