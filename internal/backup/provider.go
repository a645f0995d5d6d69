package backup

import (
	"context"
)

// Provider is one concrete backup backend. Each variant owns its connection
// lifecycle, enabled state, and raw I/O; the wire format is shared through
// the envelope codec so backups stay portable across backends.
//
// Failure semantics, uniform across variants: Initialize failures disable
// the provider and are surfaced once, not retried. Backup and restore I/O
// failures are surfaced as typed errors; retry policy belongs to the
// caller, not the provider.
type Provider interface {
	// Tag returns the provider's stable routing tag.
	Tag() StorageProvider

	// Initialize establishes whatever session, credentials, or base
	// directory the backend needs, and flips the enabled state. It is
	// idempotent: calling twice is safe and yields the same state.
	Initialize(ctx context.Context) error

	// Enabled reports whether the provider currently holds the
	// permissions/credentials it needs.
	Enabled() bool

	// Backup encodes and writes one content snapshot.
	Backup(ctx context.Context, content Content) error

	// BackupEntries lists available backups for this provider only.
	// Individually corrupt entries are logged and skipped, never
	// propagated; the rest of the listing is still returned.
	BackupEntries(ctx context.Context) ([]MetadataState, error)

	// Content fetches and decodes the payload behind a listing entry.
	Content(ctx context.Context, entry Metadata) (Content, error)

	// RemoveEntry deletes one stored backup.
	RemoveEntry(ctx context.Context, entry Metadata) error

	// RemoveAllEntries purges the provider's backup namespace.
	RemoveAllEntries(ctx context.Context) error

	// Teardown releases any held resources. The provider may not be used
	// again without a fresh Initialize.
	Teardown(ctx context.Context) error
}
