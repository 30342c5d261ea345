package backend

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteAddress(t *testing.T) {
	tests := []struct {
		name     string
		opts     remoteOptions
		port     int
		tlsAware bool
		want     string
		wantErr  bool
	}{
		{name: "bare host", opts: remoteOptions{Host: "nas"}, port: 445, want: "nas:445"},
		{name: "host with port", opts: remoteOptions{Host: "nas:1445"}, port: 445, want: "nas:1445"},
		{name: "host with path", opts: remoteOptions{Host: "dav.example.com/remote.php"}, port: 80, tlsAware: true, want: "dav.example.com:80"},
		{name: "https url", opts: remoteOptions{Host: "https://dav.example.com/webdav"}, port: 80, tlsAware: true, want: "dav.example.com:443"},
		{name: "secure flag", opts: remoteOptions{Host: "dav.example.com", Secure: true}, port: 80, tlsAware: true, want: "dav.example.com:443"},
		{name: "secure ignored for plain tcp", opts: remoteOptions{Host: "ftp.example.com", Secure: true}, port: 21, want: "ftp.example.com:21"},
		{name: "ipv6", opts: remoteOptions{Host: "::1"}, port: 22, want: "[::1]:22"},
		{name: "missing host", opts: remoteOptions{}, port: 22, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.address(tt.port, tt.tlsAware)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingOption)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckLocal(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	assert.NoError(t, checkLocal(context.Background(), nil, map[string]any{"datadir": dir}))
	assert.Error(t, checkLocal(context.Background(), nil, map[string]any{"datadir": file}))
	assert.Error(t, checkLocal(context.Background(), nil, map[string]any{"datadir": filepath.Join(dir, "missing")}))
	assert.ErrorIs(t, checkLocal(context.Background(), nil, map[string]any{}), ErrMissingOption)
}

func TestTCPCheck(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	check := tcpCheck(445, false)
	dialer := &net.Dialer{}

	assert.NoError(t, check(context.Background(), dialer, map[string]any{"host": listener.Addr().String()}))

	// A port nobody listens on.
	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := closed.Addr().String()
	require.NoError(t, closed.Close())
	assert.Error(t, check(context.Background(), dialer, map[string]any{"host": address}))
}

func TestDecodeOptionsIsWeaklyTyped(t *testing.T) {
	var opts s3Options
	require.NoError(t, decodeOptions(map[string]any{
		"bucket":  "b",
		"port":    "9000",
		"use_ssl": "1",
		"unknown": "ignored",
	}, &opts))

	assert.Equal(t, 9000, opts.Port)
	assert.True(t, opts.UseSSL)
}

func TestS3Options(t *testing.T) {
	opts := s3Options{Bucket: "b", Hostname: "minio.local", Port: 9000, UsePathStyle: true}
	assert.Equal(t, "http://minio.local:9000", opts.endpoint())

	cfg := opts.clientConfig()
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "http://minio.local:9000", cfg.Endpoint)
	assert.False(t, cfg.VirtualHostStyle)

	aws := s3Options{Bucket: "b", Region: "eu-west-1"}
	assert.Equal(t, "", aws.endpoint())
	assert.Equal(t, "aws:eu-west-1", s3Endpoint(map[string]any{"bucket": "b", "region": "eu-west-1"}))
}

func TestCheckS3RequiresBucket(t *testing.T) {
	err := checkS3(context.Background(), nil, map[string]any{"region": "us-east-1"})
	assert.ErrorIs(t, err, ErrMissingOption)
}

func TestSwiftEndpoint(t *testing.T) {
	assert.Equal(t, "swift.example.com:443", swiftEndpoint(map[string]any{"url": "https://swift.example.com/v2.0"}))
	assert.Equal(t, "", swiftEndpoint(map[string]any{}))
}
