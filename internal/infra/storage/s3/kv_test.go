package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKVValidation(t *testing.T) {
	_, err := NewKV(Config{Bucket: "state"}, nil)
	assert.Error(t, err)

	_, err = NewKV(Config{Endpoint: "localhost:9000"}, nil)
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", key: "auth-storage", want: "auth-storage.json"},
		{name: "prefix", prefix: "devices/abc", key: "swap-storage", want: "devices/abc/swap-storage.json"},
		{name: "slashes trimmed", prefix: "/backup/", key: "/chat-storage/", want: "backup/chat-storage.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, err := NewKV(Config{Endpoint: "http://localhost:9000", Bucket: "state", Prefix: tt.prefix}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kv.objectKey(tt.key))
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	assert.Equal(t, "minio:9000", parseEndpoint("http://minio:9000"))
	assert.Equal(t, "minio:9000", parseEndpoint("minio:9000"))
}

// fakeBucketServer answers path-style S3 requests. The first `failures` requests get 403.
type fakeBucketServer struct {
	mu       sync.Mutex
	failures int
	heads    int
	puts     []string
}

func (f *fakeBucketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		w.WriteHeader(http.StatusForbidden)
		return
	}
	switch r.Method {
	case http.MethodHead:
		f.heads++
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		f.puts = append(f.puts, r.URL.Path)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestSetItemRetriesBucketCheckAfterFailure(t *testing.T) {
	fake := &fakeBucketServer{failures: 1}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	kv, err := NewKV(Config{
		Endpoint:  ts.URL,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "state",
		Region:    "us-east-1",
	}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.Error(t, kv.SetItem(ctx, "auth-storage", []byte(`{"version":1}`)))
	require.NoError(t, kv.SetItem(ctx, "auth-storage", []byte(`{"version":1}`)))
	require.NoError(t, kv.SetItem(ctx, "swap-storage", []byte(`{"version":1}`)))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.heads)
	assert.Equal(t, []string{"/state/auth-storage.json", "/state/swap-storage.json"}, fake.puts)
}

func TestBucketCheckIgnoresCallerCancellation(t *testing.T) {
	fake := &fakeBucketServer{}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	kv, err := NewKV(Config{Endpoint: ts.URL, Bucket: "state", Region: "us-east-1"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, kv.ensureBucket(ctx))
	assert.True(t, kv.bucketReady)
}
