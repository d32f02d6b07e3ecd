package repository

import (
	"context"
	"strings"
	"time"

	"social_chat_sync/pkg/database"
)

// MediaResolver turns an uploaded asset reference into a URL the backend stores as image_url
type MediaResolver interface {
	ResolveMediaURL(ctx context.Context, ref string) (string, error)
}

// MinIOMediaResolver presigns object keys living in the media bucket
type MinIOMediaResolver struct {
	client database.MinIOClientRepo
	expiry time.Duration
}

// NewMinIOMediaResolver create MinIOMediaResolver
func NewMinIOMediaResolver(client database.MinIOClientRepo, expiry time.Duration) *MinIOMediaResolver {
	return &MinIOMediaResolver{client: client, expiry: expiry}
}

// ResolveMediaURL absolute URLs pass through untouched
func (m *MinIOMediaResolver) ResolveMediaURL(ctx context.Context, ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	return m.client.PresignGetURL(ctx, strings.TrimPrefix(ref, "/"), m.expiry)
}
