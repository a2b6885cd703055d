package p2p

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"fileshare/internal/common"
	"fileshare/internal/logging"
	"fileshare/internal/transfer"

	"go.uber.org/zap"
)

// Listen binds the share server on port, falling back to an OS-chosen port
// when port is taken.
func Listen(port int, log *zap.Logger) (net.Listener, error) {
	ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", port))
	if err == nil {
		return ln, nil
	}
	log.Info("Preferred port unavailable, using an ephemeral one", zap.Int("port", port), zap.Error(err))

	ln, err = net.Listen("tcp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return ln, nil
}

// Server serves a single shared file with HTTP range support.
type Server struct {
	desc     common.ShareDescriptor
	registry *transfer.Registry
	log      *zap.Logger
}

// NewServer creates the server for desc. Transfers are recorded in registry.
func NewServer(desc common.ShareDescriptor, registry *transfer.Registry, log *zap.Logger) *Server {
	return &Server{
		desc:     desc,
		registry: registry,
		log:      log,
	}
}

// Handler returns the HTTP handler for the share. Every path serves the file.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.fileHandler)
	return logging.Middleware(s.log, mux)
}

// Serve runs the HTTP server on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Share server listening", zap.String("addr", ln.Addr().String()), zap.String("url", s.desc.URL()))
		errChan <- server.Serve(ln)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("share server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = server.Close()
		}
		return nil
	}
}

func (s *Server) fileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	size := s.desc.TotalSize
	rng, partial := ParseRange(r.Header.Get("Range"), size)

	w.Header().Set("Content-Type", s.desc.ContentType)

	if !partial {
		rng = ByteRange{Start: 0, End: size - 1, Length: size}
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	} else {
		rng = rng.clamp(size)
		if rng.Length <= 0 {
			w.Header().Set("Content-Length", "0")
			w.WriteHeader(http.StatusPartialContent)
			return
		}
		w.Header().Set("Content-Length", strconv.FormatInt(rng.Length, 10))
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, size))
	}

	if r.Method == http.MethodHead {
		if partial {
			w.WriteHeader(http.StatusPartialContent)
		}
		return
	}

	file, err := os.Open(s.desc.FilePath)
	if err != nil {
		s.log.Error("Could not open shared file", zap.String("path", s.desc.FilePath), zap.Error(err))
		w.Header().Del("Content-Range")
		http.Error(w, "could not open file", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	if _, err := file.Seek(rng.Start, io.SeekStart); err != nil {
		s.log.Error("Could not seek shared file", zap.Int64("offset", rng.Start), zap.Error(err))
		w.Header().Del("Content-Range")
		http.Error(w, "could not read file", http.StatusInternalServerError)
		return
	}

	if partial {
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	peer := remoteIP(r.RemoteAddr)
	rec := s.registry.Begin(transfer.Upload, peer, peer, rng.Length)

	buf := make([]byte, common.ChunkSize)
	_, err = io.CopyBuffer(rec.Writer(w), io.LimitReader(file, rng.Length), buf)
	outcome := rec.Finish(err)

	if outcome == transfer.Failed {
		s.log.Warn("Transfer failed",
			zap.String("peer", peer),
			zap.Int64("sent", rec.Transferred()),
			zap.Int64("expected", rng.Length),
			zap.Error(err),
		)
		return
	}
	s.log.Debug("Transfer complete", zap.String("peer", peer), zap.Int64("bytes", rec.Transferred()))
}

func remoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
