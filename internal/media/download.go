package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultDownloadTimeout bounds a single video download.
const DefaultDownloadTimeout = 5 * time.Minute

// Save writes a generated media URL to path. Data URLs are decoded in place;
// http(s) URLs (signed video links) are downloaded.
func Save(ctx context.Context, client *http.Client, mediaURL, path string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	var n int64
	if strings.HasPrefix(mediaURL, "data:") {
		data, decErr := decodeBase64(StripDataURLPrefix(mediaURL))
		if decErr != nil {
			err = fmt.Errorf("failed to decode data URL: %w", decErr)
		} else {
			written, writeErr := f.Write(data)
			n, err = int64(written), writeErr
		}
	} else {
		n, err = Download(ctx, client, mediaURL, f)
	}
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close output file: %w", closeErr)
	}
	if err != nil {
		// No partial media is left behind.
		os.Remove(path)
		return 0, err
	}

	log.Info().Str("path", path).Int64("bytes", n).Msg("Media saved")
	return n, nil
}

// Download streams url into w.
func Download(ctx context.Context, client *http.Client, url string, w io.Writer) (int64, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultDownloadTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read download body: %w", err)
	}
	return n, nil
}
