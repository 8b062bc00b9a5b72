package catalog

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
)

// cabSignature is the magic number leading every cabinet container.
var cabSignature = []byte{'M', 'S', 'C', 'F'}

// verifyContainer opens a downloaded container file and checks it for the
// installer metadata required for offline servicing. Cabinet containers must
// carry an update.mum entry; anything else passes through unchecked.
func verifyContainer(path string) error {
	ext := strings.ToLower(path)
	if !strings.HasSuffix(ext, ".cab") && !strings.HasSuffix(ext, ".msu") {
		return nil
	}

	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return err
	}

	defer f.Close()

	// Check the cabinet signature.
	header := make([]byte, 4)

	_, err = io.ReadFull(f, header)
	if err != nil || !bytes.Equal(header, cabSignature) {
		return ErrInvalidContainer
	}

	// The cabinet directory stores entry names as plain NUL-terminated strings,
	// so scanning the raw bytes is enough to confirm the manifest is present.
	found, err := scanFor(f, []byte("update.mum"))
	if err != nil {
		return err
	}

	if !found {
		// MSU containers wrap their manifest in an inner cabinet listing.
		_, err = f.Seek(0, io.SeekStart)
		if err != nil {
			return err
		}

		found, err = scanFor(f, []byte(".xml"))
		if err != nil {
			return err
		}
	}

	if !found {
		return ErrInvalidContainer
	}

	return nil
}

// scanFor reads the file in overlapping chunks looking for a byte pattern.
func scanFor(f *os.File, pattern []byte) (bool, error) {
	buf := make([]byte, 1024*1024)
	carry := []byte{}

	for {
		n, err := f.Read(buf)
		if n > 0 {
			window := append(carry, buf[:n]...)
			if bytes.Contains(window, pattern) {
				return true, nil
			}

			// Keep a pattern-sized tail to catch matches spanning chunk boundaries.
			if len(window) > len(pattern) {
				carry = append([]byte{}, window[len(window)-len(pattern):]...)
			} else {
				carry = window
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}

			return false, err
		}
	}
}
