package backup

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Backends whose listing APIs return no structured metadata (the drive and
// CSV providers) embed it in the file name instead:
//
//	{acronym}_{type}_{timestampMillis}_{bookCount}_{device}{ext}
//
// This layout is load-bearing: listings reconstruct Metadata by splitting
// on "_" without downloading file bodies, and previously written backups
// must keep parsing, so the layout never changes across versions.
const nameTokenCount = 5

// FormatEntryName renders the token scheme. The device label is sanitized
// so it cannot inject extra separator tokens.
func FormatEntryName(acronym, entryType string, timestamp time.Time, bookCount int, device, ext string) string {
	return fmt.Sprintf("%s_%s_%d_%d_%s%s",
		acronym, entryType, timestamp.UnixMilli(), bookCount, sanitizeDevice(device), ext)
}

// ParseEntryName reconstructs Metadata from a token-scheme file name.
// Names produced by other applications sharing the namespace fail the
// acronym check and are filtered out by the caller.
func ParseEntryName(name, wantAcronym, ext string) (Metadata, error) {
	base, ok := strings.CutSuffix(name, ext)
	if !ok {
		return Metadata{}, fmt.Errorf("entry name %q lacks extension %q", name, ext)
	}
	tokens := strings.Split(base, "_")
	if len(tokens) != nameTokenCount {
		return Metadata{}, fmt.Errorf("entry name %q has %d tokens, want %d", name, len(tokens), nameTokenCount)
	}
	if tokens[0] != wantAcronym {
		return Metadata{}, fmt.Errorf("entry name %q carries foreign acronym %q", name, tokens[0])
	}

	millis, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		return Metadata{}, fmt.Errorf("entry name %q has invalid timestamp: %w", name, err)
	}
	count, err := strconv.Atoi(tokens[3])
	if err != nil {
		return Metadata{}, fmt.Errorf("entry name %q has invalid book count: %w", name, err)
	}

	return Metadata{
		ID:        name,
		FileName:  name,
		Device:    tokens[4],
		BookCount: count,
		Timestamp: time.UnixMilli(millis).UTC(),
	}, nil
}

func sanitizeDevice(device string) string {
	device = strings.ReplaceAll(device, "_", "-")
	device = strings.ReplaceAll(device, " ", "-")
	if device == "" {
		device = "unknown"
	}
	return device
}
