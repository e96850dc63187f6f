// Package excerpt turns an uploaded log file into a bounded LogExcerpt.
package excerpt

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	tberrors "github.com/yughpatel/TraceBack/internal/errors"
	"github.com/yughpatel/TraceBack/internal/models"
)

// maxLineBytes caps single-line length; log files occasionally carry
// megabyte lines (stack dumps, base64 blobs).
const maxLineBytes = 1024 * 1024

// ReadFile reads a log file into an excerpt bounded to maxLines.
// Any byte sequence that is not valid UTF-8 is replaced rather than
// failing the upload; arbitrary extensions (.log, .txt, .csv) are accepted.
func ReadFile(path string, maxLines int) (*models.LogExcerpt, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tberrors.NewIngestFileNotFoundError(path)
		}
		return nil, tberrors.NewIngestReadError(path, err)
	}
	defer file.Close()

	excerpt, err := FromReader(filepath.Base(path), file, maxLines)
	if err != nil {
		return nil, tberrors.NewIngestReadError(path, err)
	}
	return excerpt, nil
}

// FromReader builds an excerpt from an arbitrary stream, e.g. an HTTP
// multipart upload. The full stream is consumed so the fingerprint
// covers content past the truncation bound.
func FromReader(name string, r io.Reader, maxLines int) (*models.LogExcerpt, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, maxLineBytes)
	scanner.Buffer(buf, maxLineBytes)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.ToValidUTF8(scanner.Text(), "�"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return models.NewLogExcerpt(name, lines, maxLines), nil
}
