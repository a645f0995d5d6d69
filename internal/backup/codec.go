package backup

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shockbytes/dante/internal/entities"
)

// codecVersion is the envelope format version. Bump only with a decoder
// that still accepts every previous version.
const codecVersion = 1

// envelope is the provider-agnostic wire format shared by all backends.
// The metadata fields make the payload self-describing so that providers
// without structured listing APIs can still reconstruct Metadata.
type envelope struct {
	Version   int                   `json:"version"`
	FileName  string                `json:"file_name"`
	Device    string                `json:"device"`
	Timestamp int64                 `json:"timestamp"` // unix millis
	BookCount int                   `json:"book_count"`
	Books     []entities.Book       `json:"books"`
	Records   []entities.PageRecord `json:"page_records"`
}

// Encode serializes a content snapshot plus the metadata needed to
// reconstruct it. Pure transform, no side effects.
func Encode(content Content, meta Metadata) ([]byte, error) {
	env := envelope{
		Version:   codecVersion,
		FileName:  meta.FileName,
		Device:    meta.Device,
		Timestamp: meta.Timestamp.UnixMilli(),
		BookCount: len(content.Books),
		Books:     content.Books,
		Records:   content.Records,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup envelope: %w", err)
	}
	return data, nil
}

// Decode parses an envelope back into content and metadata. It is total on
// malformed input: any structural mismatch yields a *CorruptPayloadError,
// never a fault. The returned Metadata carries no provider tag or id; the
// owning provider fills those in.
func Decode(data []byte) (Content, Metadata, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Content{}, Metadata{}, &CorruptPayloadError{Reason: "invalid envelope", Err: err}
	}
	if env.Version < 1 || env.Version > codecVersion {
		return Content{}, Metadata{}, &CorruptPayloadError{
			Reason: fmt.Sprintf("unsupported envelope version %d", env.Version),
		}
	}
	if env.BookCount != len(env.Books) {
		// A count mismatch means the payload was truncated or stitched
		// together from fragments.
		return Content{}, Metadata{}, &CorruptPayloadError{
			Reason: fmt.Sprintf("book count %d does not match payload size %d", env.BookCount, len(env.Books)),
		}
	}

	content := Content{Books: env.Books, Records: env.Records}
	meta := Metadata{
		FileName:  env.FileName,
		Device:    env.Device,
		BookCount: env.BookCount,
		Timestamp: time.UnixMilli(env.Timestamp).UTC(),
	}
	return content, meta, nil
}
