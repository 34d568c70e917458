package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/salesdash/utils/pkg/retry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSource_Dir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cadastro Lojas.xlsx"), []byte("payload"), 0o644))
	src := NewDir(dir)
	require.Equal(t, dir, src.Location())

	t.Run("opens existing file", func(t *testing.T) {
		t.Parallel()
		rc, err := src.Open(context.Background(), "Cadastro Lojas.xlsx")
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.Equal(t, "payload", string(data))
	})

	t.Run("missing file is ErrNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := src.Open(context.Background(), "Cadastro Produtos.xlsx")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects names escaping the root", func(t *testing.T) {
		t.Parallel()
		_, err := src.Open(context.Background(), "../etc/passwd")
		require.ErrorContains(t, err, "invalid object name")
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := src.Open(ctx, "Cadastro Lojas.xlsx")
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSource_ParseS3URL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		isS3    bool
		wantErr bool
		want    S3URL
	}{
		{in: "data", isS3: false},
		{in: "/srv/sales", isS3: false},
		{in: "s3://sales", isS3: true, want: S3URL{Bucket: "sales"}},
		{in: "s3://sales/2022/raw/", isS3: true, want: S3URL{Bucket: "sales", Prefix: "2022/raw"}},
		{in: "s3:///prefix", isS3: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, isS3, err := ParseS3URL(tt.in)
			require.Equal(t, tt.isS3, isS3)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	u := S3URL{Bucket: "b", Prefix: "raw"}
	require.Equal(t, "raw/Base Vendas - 2020.xlsx", u.Key("Base Vendas - 2020.xlsx"))
	require.Equal(t, "s3://b/raw", u.String())
	require.Equal(t, "x.csv", S3URL{Bucket: "b"}.Key("x.csv"))
}

// fakeS3 serves path-style GetObject requests from memory. failures holds the
// number of 503 responses to return for a key before serving it.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string]string
	failures map[string]int
	requests int
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if n := f.failures[key]; n > 0 {
		f.failures[key] = n - 1
		return xmlResponse(req, http.StatusServiceUnavailable, `<Error><Code>SlowDown</Code><Message>Reduce your request rate.</Message></Error>`), nil
	}
	body, ok := f.objects[key]
	if !ok {
		return xmlResponse(req, http.StatusNotFound, `<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`), nil
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Content-Type":   {"application/octet-stream"},
			"Content-Length": {strconv.Itoa(len(body))},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		},
		ContentLength: int64(len(body)),
		Body:          io.NopCloser(strings.NewReader(body)),
		Request:       req,
	}, nil
}

func xmlResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/xml"}},
		Body:       io.NopCloser(strings.NewReader(`<?xml version="1.0" encoding="UTF-8"?>` + body)),
		Request:    req,
	}
}

func newTestS3(t *testing.T, fake *fakeS3) *S3 {
	t.Helper()
	src, err := NewS3(context.Background(), S3Config{
		Logger:     testLogger(),
		URL:        S3URL{Bucket: "sales", Prefix: "raw"},
		Endpoint:   "https://mock.s3.local",
		PathStyle:  true,
		HTTPClient: &http.Client{Transport: fake},
		Retry:      retry.Config{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond},
		Options: []func(*config.LoadOptions) error{
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
		},
	})
	require.NoError(t, err)
	return src
}

func TestSource_S3(t *testing.T) {
	t.Parallel()

	t.Run("reads object under prefix", func(t *testing.T) {
		t.Parallel()
		fake := &fakeS3{objects: map[string]string{"raw/Cadastro Lojas.xlsx": "stores"}}
		src := newTestS3(t, fake)
		require.Equal(t, "s3://sales/raw", src.Location())

		rc, err := src.Open(context.Background(), "Cadastro Lojas.xlsx")
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.Equal(t, "stores", string(data))
	})

	t.Run("missing object is ErrNotFound without retries", func(t *testing.T) {
		t.Parallel()
		fake := &fakeS3{objects: map[string]string{}}
		src := newTestS3(t, fake)

		_, err := src.Open(context.Background(), "Cadastro Produtos.xlsx")
		require.ErrorIs(t, err, ErrNotFound)
		require.Equal(t, 1, fake.requests)
	})

	t.Run("retries throttling then succeeds", func(t *testing.T) {
		t.Parallel()
		fake := &fakeS3{
			objects:  map[string]string{"raw/a.csv": "x,y\n1,2\n"},
			failures: map[string]int{"raw/a.csv": 2},
		}
		src := newTestS3(t, fake)

		rc, err := src.Open(context.Background(), "a.csv")
		require.NoError(t, err)
		rc.Close()
		require.Equal(t, 3, fake.requests)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		t.Parallel()
		fake := &fakeS3{
			objects:  map[string]string{"raw/a.csv": "x"},
			failures: map[string]int{"raw/a.csv": 10},
		}
		src := newTestS3(t, fake)

		_, err := src.Open(context.Background(), "a.csv")
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrNotFound)
		require.Equal(t, 3, fake.requests)
	})

	t.Run("requires bucket", func(t *testing.T) {
		t.Parallel()
		_, err := NewS3(context.Background(), S3Config{Logger: testLogger()})
		require.ErrorContains(t, err, "bucket")
	})
}

func TestSource_New(t *testing.T) {
	t.Parallel()

	src, err := New(context.Background(), "data", Options{Logger: testLogger()})
	require.NoError(t, err)
	require.IsType(t, &Dir{}, src)

	_, err = New(context.Background(), "s3://", Options{Logger: testLogger()})
	require.Error(t, err)
}
