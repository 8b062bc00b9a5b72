package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

func downloadFile(ctx context.Context, client *http.Client, fileURL string, expectedSHA256 string, target string, progressFunc func(float64)) error {
	// Remove the target file if a previous partial download left one behind.
	err := os.Remove(target)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	// Prepare the request.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return errors.New("unable to create http request: " + err.Error())
	}

	// Get a reader for the content file.
	resp, err := client.Do(req)
	if err != nil {
		return errors.New("unable to get http response: " + err.Error())
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("unexpected HTTP status: " + resp.Status)
	}

	// Setup a sha256 hasher.
	h := sha256.New()

	// Setup the main reader.
	var body io.Reader = io.TeeReader(resp.Body, h)

	// Setup a gzip reader to decompress gzip-served payloads during streaming.
	if strings.HasSuffix(fileURL, ".gz") {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return errors.New("gzip error reading body: " + err.Error())
		}

		defer gz.Close()

		body = gz
	}

	// Create the target file.
	// #nosec G304
	fd, err := os.Create(target)
	if err != nil {
		return err
	}

	defer fd.Close()

	// Read in chunks to avoid excessive memory consumption.
	count := int64(0)

	for {
		_, err = io.CopyN(fd, body, 4*1024*1024)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return errors.New("io.CopyN() error: " + err.Error())
		}

		// Update progress every 24MiB.
		if progressFunc != nil && count%6 == 0 {
			progressFunc(float64(count*4*1024*1024) / float64(resp.ContentLength))
		}

		count++
	}

	// Check the hash.
	if expectedSHA256 != "" && expectedSHA256 != hex.EncodeToString(h.Sum(nil)) {
		return errors.New("sha256 mismatch for file " + target)
	}

	return nil
}

// tryRequest retries a catalog request for a few seconds to ride out
// transient network failures.
func tryRequest(client *http.Client, req *http.Request) (*http.Response, error) {
	var err error

	for attempt := 0; attempt < 5; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Second)
		}

		var resp *http.Response

		resp, err = client.Do(req)
		if err == nil {
			return resp, nil
		}
	}

	return nil, fmt.Errorf("catalog request kept failing: %w", err)
}
