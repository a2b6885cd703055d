package p2p

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"fileshare/internal/transfer"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// sample returns size deterministic bytes.
func sample(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i * 7 % 251)
	}
	return data
}

func newTestShare(t *testing.T, content []byte) (*Server, *transfer.Registry) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shared.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	stat, err := StatShare(path)
	require.NoError(t, err)
	desc, err := NewShareDescriptor(path, stat, "127.0.0.1", 0)
	require.NoError(t, err)

	registry := transfer.NewRegistry(nil)
	return NewServer(desc, registry, zap.NewNop()), registry
}

func get(t *testing.T, url, rangeHeader string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

// waitDone waits until every transfer of the registry has finished.
func waitDone(t *testing.T, registry *transfer.Registry) []transfer.Event {
	t.Helper()
	require.Eventually(t, func() bool {
		events := registry.Snapshot()
		return len(events) > 0 && registry.Active() == 0
	}, 5*time.Second, 10*time.Millisecond)
	return registry.Snapshot()
}

func TestServer_FullFile(t *testing.T) {
	req := require.New(t)
	content := sample(1000)
	server, registry := newTestShare(t, content)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	// When a peer asks without Range
	resp, body := get(t, srv.URL+"/shared.bin", "")

	// Then the whole file comes back with 200
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("1000", resp.Header.Get("Content-Length"))
	req.Equal("bytes", resp.Header.Get("Accept-Ranges"))
	req.Empty(resp.Header.Get("Content-Range"))
	req.Equal(content, body)

	// And the transfer is recorded as ok
	events := waitDone(t, registry)
	req.Len(events, 1)
	req.Equal(transfer.OK, events[0].Outcome)
	req.Equal(int64(1000), events[0].Transferred)
	req.Equal(transfer.Upload, events[0].Direction)
	req.Equal("127.0.0.1", events[0].Peer)
}

func TestServer_AnyPathServesTheShare(t *testing.T) {
	req := require.New(t)
	content := sample(10)
	server, _ := newTestShare(t, content)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	resp, body := get(t, srv.URL+"/something/else", "")

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(content, body)
}

func TestServer_Ranges(t *testing.T) {
	content := sample(1000)
	server, _ := newTestShare(t, content)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	tests := []struct {
		name         string
		header       string
		contentRange string
		body         []byte
	}{
		{"closed", "bytes=10-20", "bytes 10-20/1000", content[10:21]},
		{"open ended", "bytes=990-", "bytes 990-999/1000", content[990:]},
		{"suffix", "bytes=-100", "bytes 900-999/1000", content[900:]},
		{"explicit whole file", "bytes=0-999", "bytes 0-999/1000", content},
		{"end past file is clamped", "bytes=995-5000", "bytes 995-999/1000", content[995:]},
		{"suffix past file is clamped", "bytes=-5000", "bytes 0-999/1000", content},
		{"end beyond int64 is clamped", "bytes=0-99999999999999999999", "bytes 0-999/1000", content},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			resp, body := get(t, srv.URL+"/shared.bin", tt.header)

			req.Equal(http.StatusPartialContent, resp.StatusCode)
			req.Equal(tt.contentRange, resp.Header.Get("Content-Range"))
			req.Equal(strconv.Itoa(len(tt.body)), resp.Header.Get("Content-Length"))
			req.Equal(tt.body, body)
		})
	}
}

func TestServer_DegenerateRange_IsEmptyPartial(t *testing.T) {
	content := sample(1000)
	server, registry := newTestShare(t, content)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	for _, header := range []string{"bytes=500-200", "bytes=1000-", "bytes=-0", "bytes=9223372036854775808-"} {
		t.Run(header, func(t *testing.T) {
			req := require.New(t)

			resp, body := get(t, srv.URL+"/shared.bin", header)

			req.Equal(http.StatusPartialContent, resp.StatusCode)
			req.Equal("0", resp.Header.Get("Content-Length"))
			req.Empty(resp.Header.Get("Content-Range"))
			req.Empty(body)
		})
	}

	// No byte stream was opened, so nothing was recorded
	require.Empty(t, registry.Snapshot())
}

func TestServer_Head(t *testing.T) {
	req := require.New(t)
	server, registry := newTestShare(t, sample(64))
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	resp, err := http.Head(srv.URL + "/shared.bin")
	req.NoError(err)
	resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(int64(64), resp.ContentLength)
	req.Empty(registry.Snapshot())
}

func TestServer_RejectsOtherMethods(t *testing.T) {
	req := require.New(t)
	server, _ := newTestShare(t, sample(8))
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/shared.bin", "text/plain", bytes.NewReader(nil))
	req.NoError(err)
	resp.Body.Close()

	req.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
}

// brokenWriter accepts limit bytes and then fails, like a peer that hung up.
type brokenWriter struct {
	header  http.Header
	status  int
	limit   int
	written int
}

func (w *brokenWriter) Header() http.Header { return w.header }

func (w *brokenWriter) WriteHeader(code int) { w.status = code }

func (w *brokenWriter) Write(p []byte) (int, error) {
	room := w.limit - w.written
	if room <= 0 {
		return 0, errors.New("connection reset by peer")
	}
	if len(p) > room {
		w.written += room
		return room, errors.New("connection reset by peer")
	}
	w.written += len(p)
	return len(p), nil
}

func TestServer_PeerDisconnect_FinalizesFailed(t *testing.T) {
	req := require.New(t)
	content := sample(100 * 1024)
	server, registry := newTestShare(t, content)

	// Given a peer that disappears after 40000 bytes
	w := &brokenWriter{header: http.Header{}, limit: 40000}
	r := httptest.NewRequest(http.MethodGet, "/shared.bin", nil)
	r.RemoteAddr = "192.168.1.50:41000"

	// When the file is served
	server.Handler().ServeHTTP(w, r)

	// Then the record is failed with only the bytes that went out
	events := registry.Snapshot()
	req.Len(events, 1)
	req.Equal(transfer.Failed, events[0].Outcome)
	req.Equal(int64(40000), events[0].Transferred)
	req.Equal(int64(len(content)), events[0].Total)
	req.Equal("192.168.1.50", events[0].Peer)
	req.Equal(0, registry.Active())
}

func TestServer_ClientAbort_OverRealConnection(t *testing.T) {
	req := require.New(t)
	content := sample(32 * 1024 * 1024)
	server, registry := newTestShare(t, content)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	// Given a client that reads a little and then drops the connection
	conn, err := net.Dial("tcp", srv.Listener.Addr().String())
	req.NoError(err)
	_, err = fmt.Fprintf(conn, "GET /shared.bin HTTP/1.1\r\nHost: test\r\n\r\n")
	req.NoError(err)
	_, err = io.ReadFull(conn, make([]byte, 4096))
	req.NoError(err)
	req.NoError(conn.Close())

	// Then the server side finalizes the record as failed
	events := waitDone(t, registry)
	req.Equal(transfer.Failed, events[0].Outcome)
	req.Less(events[0].Transferred, int64(len(content)))
}

func TestListen_FallsBackWhenPortTaken(t *testing.T) {
	req := require.New(t)

	// Given another process already owns the preferred port
	taken, err := net.Listen("tcp4", ":0")
	req.NoError(err)
	defer taken.Close()
	port := taken.Addr().(*net.TCPAddr).Port

	// When a second sharer binds
	ln, err := Listen(port, zap.NewNop())
	req.NoError(err)
	defer ln.Close()

	// Then it gets a different, OS-chosen port
	got := ln.Addr().(*net.TCPAddr).Port
	req.NotEqual(port, got)
	req.NotZero(got)
}

func TestServer_Serve_StopsOnCancel(t *testing.T) {
	req := require.New(t)
	content := sample(32)
	server, _ := newTestShare(t, content)

	ln, err := Listen(0, zap.NewNop())
	req.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln) }()

	url := fmt.Sprintf("http://%s/shared.bin", ln.Addr().String())
	req.Eventually(func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
