package p2p

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"

	"fileshare/internal/common"
	"fileshare/internal/transfer"

	"go.uber.org/zap"
)

// Downloader fetches an offered share into a local file, resuming from
// whatever is already on disk.
type Downloader struct {
	registry *transfer.Registry
	client   *http.Client
	log      *zap.Logger
}

// NewDownloader creates a downloader. A nil client means http.DefaultClient.
func NewDownloader(registry *transfer.Registry, client *http.Client, log *zap.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{
		registry: registry,
		client:   client,
		log:      log,
	}
}

// Fetch downloads offer into dest. When dest already holds K bytes the
// request asks for bytes=K- and the response is appended at K; a server that
// answers 200 instead gets the file rewritten from the start.
func (d *Downloader) Fetch(ctx context.Context, offer common.Offer, dest string) (transfer.Outcome, error) {
	offset, err := resumeOffset(dest)
	if err != nil {
		return transfer.Failed, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, offer.URL(), nil)
	if err != nil {
		return transfer.Failed, fmt.Errorf("build request: %w", err)
	}
	if offset >= 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	d.log.Debug("Requesting share", zap.String("url", offer.URL()), zap.Int64("offset", offset))
	resp, err := d.client.Do(req)
	if err != nil {
		return transfer.Failed, fmt.Errorf("request %s: %w", offer.URL(), err)
	}
	defer resp.Body.Close()

	var (
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		start int64
	)
	switch resp.StatusCode {
	case http.StatusPartialContent:
		if offset < 0 {
			offset = 0
		}
		contentRange := resp.Header.Get("Content-Range")
		if err := checkContentRange(contentRange, offset, resp.ContentLength); err != nil {
			return transfer.Failed, err
		}
		if contentRange == "" && offset > 0 {
			if err := d.confirmComplete(ctx, offer, offset); err != nil {
				return transfer.Failed, err
			}
		}
		flags = os.O_RDWR | os.O_CREATE
		start = offset
	case http.StatusOK:
		if offset > 0 {
			d.log.Info("Server ignored the resume request, starting over", zap.String("url", offer.URL()))
		}
	default:
		return transfer.Failed, fmt.Errorf("%w: %s", common.ErrUnexpectedStatus, resp.Status)
	}

	file, err := os.OpenFile(dest, flags, 0o644)
	if err != nil {
		return transfer.Failed, fmt.Errorf("open %s: %w", dest, err)
	}
	defer file.Close()

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return transfer.Failed, fmt.Errorf("seek %s: %w", dest, err)
	}

	rec := d.registry.Begin(transfer.Download, offer.Host, offer.Label(), resp.ContentLength)

	buf := make([]byte, common.ChunkSize)
	_, err = io.CopyBuffer(rec.Writer(file), resp.Body, buf)
	if err == nil {
		err = file.Sync()
	}
	outcome := rec.Finish(err)

	if outcome == transfer.Failed {
		if err == nil {
			err = fmt.Errorf("short body: got %d of %d bytes", rec.Transferred(), rec.Total)
		}
		d.log.Warn("Download failed",
			zap.String("url", offer.URL()),
			zap.Int64("received", rec.Transferred()),
			zap.Error(err),
		)
		return outcome, fmt.Errorf("download %s: %w", offer.URL(), err)
	}

	d.log.Debug("Download complete", zap.String("dest", dest), zap.Int64("bytes", start+rec.Transferred()))
	return outcome, nil
}

// confirmComplete checks with a HEAD request that a share answered with an
// empty 206 is exactly offset bytes long. The same answer is given when the
// local file is longer than the share.
func (d *Downloader) confirmComplete(ctx context.Context, offer common.Offer, offset int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, offer.URL(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", offer.URL(), err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", common.ErrUnexpectedStatus, resp.Status)
	}
	if resp.ContentLength != offset {
		d.log.Warn("Local file does not match the share",
			zap.String("url", offer.URL()),
			zap.Int64("local", offset),
			zap.Int64("remote", resp.ContentLength),
		)
		return fmt.Errorf("%w: local file has %d bytes, share has %d", common.ErrRangeMismatch, offset, resp.ContentLength)
	}
	return nil
}

// resumeOffset returns the size of dest, or -1 when it does not exist.
func resumeOffset(dest string) (int64, error) {
	stat, err := os.Stat(dest)
	if errors.Is(err, fs.ErrNotExist) {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", dest, err)
	}
	if stat.IsDir() {
		return 0, fmt.Errorf("%w: %s", common.ErrDestinationIsDirectory, dest)
	}
	return stat.Size(), nil
}

// checkContentRange verifies that a 206 continues at offset. An empty 206
// without Content-Range means there was nothing left to send.
func checkContentRange(header string, offset, length int64) error {
	if header == "" {
		if length == 0 {
			return nil
		}
		return fmt.Errorf("%w: missing Content-Range", common.ErrRangeMismatch)
	}

	span, ok := strings.CutPrefix(header, "bytes ")
	if !ok {
		return fmt.Errorf("%w: %q", common.ErrRangeMismatch, header)
	}
	first, _, ok := strings.Cut(span, "-")
	if !ok {
		return fmt.Errorf("%w: %q", common.ErrRangeMismatch, header)
	}
	start, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil || start != offset {
		return fmt.Errorf("%w: %q, want start %d", common.ErrRangeMismatch, header, offset)
	}
	return nil
}
