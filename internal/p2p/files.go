package p2p

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fileshare/internal/common"

	"github.com/gabriel-vasile/mimetype"
)

// StatShare checks that path can be shared. It must succeed before any
// socket is opened.
func StatShare(path string) (os.FileInfo, error) {
	stat, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", common.ErrShareNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%w: %s", common.ErrShareIsDirectory, path)
	}
	return stat, nil
}

// ShareName returns the URL path segment a file is published under: its base
// name when that is already a plain URI component, otherwise a name made of
// the current time in milliseconds and the file extension.
func ShareName(path string, now time.Time) string {
	name := filepath.Base(path)
	if isURIComponent(name) {
		return name
	}
	synthesized := strconv.FormatInt(now.UnixMilli(), 10)
	if ext := filepath.Ext(name); ext != "" && isURIComponent(ext[1:]) {
		synthesized += ext
	}
	return synthesized
}

// isURIComponent reports whether s survives URI component escaping unchanged.
func isURIComponent(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.ContainsRune("-_.!~*'()", c):
		default:
			return false
		}
	}
	return true
}

// NewShareDescriptor builds the descriptor of a share once the server is bound.
func NewShareDescriptor(path string, stat os.FileInfo, host string, port int) (common.ShareDescriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return common.ShareDescriptor{}, fmt.Errorf("resolve %s: %w", path, err)
	}

	contentType := "application/octet-stream"
	if mtype, err := mimetype.DetectFile(abs); err == nil {
		contentType = mtype.String()
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = host
	}

	return common.ShareDescriptor{
		FilePath:    abs,
		TotalSize:   stat.Size(),
		ShareName:   ShareName(abs, time.Now()),
		HostAddress: host,
		Port:        port,
		ContentType: contentType,
		Hostname:    hostname,
	}, nil
}
