package engine

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
)

// ReadBodyPrefix reads at most cap bytes of the (possibly gzip-compressed)
// response body. The cap bounds memory per probe; anything past it is
// discarded, not an error.
func ReadBodyPrefix(resp *http.Response, cap int64) ([]byte, error) {
	var reader io.ReadCloser
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		reader = r
		defer reader.Close()
	default:
		reader = resp.Body
	}

	limited := io.LimitReader(reader, cap+1)
	bodyBytes, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(bodyBytes)) > cap {
		bodyBytes = bodyBytes[:cap]
	}
	return bodyBytes, nil
}
