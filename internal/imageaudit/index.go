// internal/imageaudit/index.go
package imageaudit

import (
	"net/url"
	"strings"

	"github.com/xkilldash9x/pagelens/api/schemas"
)

// mislabeledImageExtensions covers formats that servers commonly ship with a
// generic binary MIME type instead of image/*.
var mislabeledImageExtensions = []string{".avif", ".webp"}

// RecordIndex maps a resource URL to the most recently observed successful
// image transfer for it. Duplicate URLs are last-write-wins; repeated or
// retried loads of the same resource are not disambiguated further.
type RecordIndex map[string]schemas.NetworkRecord

// BuildRecordIndex filters the pass's transfer records down to completed,
// status-200 image responses and indexes them by URL.
func BuildRecordIndex(records []schemas.NetworkRecord) RecordIndex {
	index := make(RecordIndex, len(records))
	for _, record := range records {
		if !record.Finished || record.StatusCode != 200 {
			continue
		}
		if !isImageRecord(record) {
			continue
		}
		index[record.URL] = record
	}
	return index
}

// Lookup returns the transfer record for a URL, if one passed the filter.
func (idx RecordIndex) Lookup(rawURL string) (schemas.NetworkRecord, bool) {
	record, ok := idx[rawURL]
	return record, ok
}

// SizeOf returns the transferred byte size for a URL, 0 when unmatched.
// Unmatched elements sort as if they transferred nothing.
func (idx RecordIndex) SizeOf(rawURL string) int64 {
	if record, ok := idx[rawURL]; ok {
		return record.ResourceSize
	}
	return 0
}

func isImageRecord(record schemas.NetworkRecord) bool {
	if strings.HasPrefix(record.MimeType, "image/") {
		return true
	}
	return hasMislabeledImageExtension(record.URL)
}

func hasMislabeledImageExtension(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	for _, ext := range mislabeledImageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
