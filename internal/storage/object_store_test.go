package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shreelaxmi/site/internal/config"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{
			name: "cdn base",
			cfg:  config.StorageConfig{PublicURL: "https://cdn.example.com/team/", Endpoint: "minio:9000", BucketPhotos: "team-photos"},
			want: "https://cdn.example.com/team/2026/01/a.jpg",
		},
		{
			name: "bare endpoint with ssl",
			cfg:  config.StorageConfig{Endpoint: "s3.example.com", BucketPhotos: "team-photos", UseSSL: true},
			want: "https://s3.example.com/team-photos/2026/01/a.jpg",
		},
		{
			name: "bare endpoint",
			cfg:  config.StorageConfig{Endpoint: "localhost:9000", BucketPhotos: "team-photos"},
			want: "http://localhost:9000/team-photos/2026/01/a.jpg",
		},
		{
			name: "endpoint with scheme",
			cfg:  config.StorageConfig{Endpoint: "http://minio:9000/", BucketPhotos: "p"},
			want: "http://minio:9000/p/2026/01/a.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PublicURL(tt.cfg, "2026/01/a.jpg"))
		})
	}
}

func TestNewObjectStoreParsesEndpoint(t *testing.T) {
	store, err := NewObjectStore(config.StorageConfig{
		Endpoint:     "https://s3.example.com",
		AccessKey:    "key",
		SecretKey:    "secret",
		BucketPhotos: "team-photos",
	})
	assert.NoError(t, err)
	assert.Equal(t, "s3.example.com", store.client.EndpointURL().Host)
	assert.Equal(t, "https", store.client.EndpointURL().Scheme)
}
