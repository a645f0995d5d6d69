package backup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shockbytes/dante/internal/database/settings"
	"github.com/shockbytes/dante/internal/tracking"
)

// Orchestrator owns the provider set and routes every backup operation to
// the backend tagged in the request. Initialization and listing fan out
// over all providers concurrently; one slow or broken backend never blocks
// the others.
type Orchestrator struct {
	providers []Provider
	settings  *settings.Repository
	tracker   tracking.Tracker
	logger    zerolog.Logger

	inflight sync.WaitGroup

	mu          sync.Mutex
	initialized bool
	closed      bool
}

// NewOrchestrator wires the orchestrator over a fixed provider set. The
// set never changes after construction; providers flip between enabled and
// disabled instead of being added or removed.
func NewOrchestrator(providers []Provider, repo *settings.Repository, tracker tracking.Tracker, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		settings:  repo,
		tracker:   tracker,
		logger:    logger.With().Str("component", "backup").Logger(),
	}
}

// Initialize brings up every provider concurrently. Individual failures
// disable only the failing provider; the joined error reports them all.
// A second call is a no-op unless forceReload is set.
func (o *Orchestrator) Initialize(ctx context.Context, forceReload bool) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return errors.New("backup orchestrator is closed")
	}
	if o.initialized && !forceReload {
		o.mu.Unlock()
		return nil
	}
	o.initialized = true
	o.mu.Unlock()

	o.inflight.Add(1)
	defer o.inflight.Done()

	errs := make([]error, len(o.providers))
	var wg sync.WaitGroup
	for i, p := range o.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			if err := p.Initialize(ctx); err != nil {
				o.logger.Warn().Err(err).Str("provider", string(p.Tag())).Msg("provider initialization failed")
				errs[i] = fmt.Errorf("provider %s: %w", p.Tag(), err)
			}
		}(i, p)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Provider returns the backend registered under the given tag.
func (o *Orchestrator) Provider(tag StorageProvider) (Provider, error) {
	for _, p := range o.providers {
		if p.Tag() == tag {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no backup provider registered for tag %q", tag)
}

// ActiveProviders returns the tags of all currently enabled backends.
func (o *Orchestrator) ActiveProviders() []StorageProvider {
	var tags []StorageProvider
	for _, p := range o.providers {
		if p.Enabled() {
			tags = append(tags, p.Tag())
		}
	}
	return tags
}

// Backups aggregates the listings of all enabled providers, newest first.
// A provider whose listing fails is logged and contributes nothing; its
// failure never hides the entries of the healthy backends.
func (o *Orchestrator) Backups(ctx context.Context) ([]MetadataState, error) {
	o.inflight.Add(1)
	defer o.inflight.Done()

	lists := make([][]MetadataState, len(o.providers))
	var wg sync.WaitGroup
	for i, p := range o.providers {
		if !p.Enabled() {
			continue
		}
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			entries, err := p.BackupEntries(ctx)
			if err != nil {
				o.logger.Warn().Err(err).Str("provider", string(p.Tag())).Msg("backup listing failed")
				return
			}
			lists[i] = entries
		}(i, p)
	}
	wg.Wait()

	var all []MetadataState
	for _, l := range lists {
		all = append(all, l...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Entry.Timestamp.After(all[j].Entry.Timestamp)
	})
	return all, nil
}

// Backup snapshots content to the given backend and records the
// last-backup bookkeeping on success.
func (o *Orchestrator) Backup(ctx context.Context, tag StorageProvider, content Content) error {
	o.inflight.Add(1)
	defer o.inflight.Done()

	p, err := o.Provider(tag)
	if err != nil {
		return err
	}
	if !p.Enabled() {
		return &ProviderUnavailableError{Provider: tag}
	}
	if err := p.Backup(ctx, content); err != nil {
		return err
	}

	now := time.Now()
	if err := o.settings.SetLastBackup(now, string(tag)); err != nil {
		// The backup itself succeeded; stale bookkeeping is tolerable.
		o.logger.Warn().Err(err).Msg("failed to record last backup")
	}
	o.tracker.Track(tracking.EventBackupCreated, map[string]string{
		"provider":   string(tag),
		"book_count": strconv.Itoa(len(content.Books)),
	})
	o.logger.Info().Str("provider", string(tag)).Int("books", len(content.Books)).Msg("backup created")
	return nil
}

// Content fetches the payload behind a listing entry from its owning
// provider.
func (o *Orchestrator) Content(ctx context.Context, entry Metadata) (Content, error) {
	o.inflight.Add(1)
	defer o.inflight.Done()

	p, err := o.Provider(entry.StorageProvider)
	if err != nil {
		return Content{}, err
	}
	if !p.Enabled() {
		return Content{}, &ProviderUnavailableError{Provider: entry.StorageProvider}
	}
	return p.Content(ctx, entry)
}

// Restore fetches a backup and applies it to the library through the
// reconciler under the given strategy.
func (o *Orchestrator) Restore(ctx context.Context, entry Metadata, rec *Reconciler, strategy RestoreStrategy) error {
	content, err := o.Content(ctx, entry)
	if err != nil {
		return err
	}
	if err := rec.Apply(ctx, content, strategy); err != nil {
		return err
	}
	o.tracker.Track(tracking.EventBackupRestored, map[string]string{
		"provider": string(entry.StorageProvider),
		"strategy": string(strategy),
	})
	return nil
}

// RemoveEntry deletes one backup from its owning provider.
func (o *Orchestrator) RemoveEntry(ctx context.Context, entry Metadata) error {
	o.inflight.Add(1)
	defer o.inflight.Done()

	p, err := o.Provider(entry.StorageProvider)
	if err != nil {
		return err
	}
	if err := p.RemoveEntry(ctx, entry); err != nil {
		return err
	}
	o.tracker.Track(tracking.EventBackupRemoved, map[string]string{
		"provider": string(entry.StorageProvider),
	})
	return nil
}

// RemoveAllEntries purges one provider's backup namespace.
func (o *Orchestrator) RemoveAllEntries(ctx context.Context, tag StorageProvider) error {
	o.inflight.Add(1)
	defer o.inflight.Done()

	p, err := o.Provider(tag)
	if err != nil {
		return err
	}
	if err := p.RemoveAllEntries(ctx); err != nil {
		return err
	}
	o.tracker.Track(tracking.EventBackupRemoved, map[string]string{
		"provider": string(tag),
		"scope":    "all",
	})
	return nil
}

// LastBackup reports when the most recent backup was taken and by which
// provider. The boolean is false when no backup was ever recorded.
func (o *Orchestrator) LastBackup() (time.Time, string, bool) {
	return o.settings.LastBackup()
}

// Close waits for in-flight operations, then tears providers down
// sequentially. The orchestrator rejects further work afterwards.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.mu.Unlock()

	o.inflight.Wait()

	var errs []error
	for _, p := range o.providers {
		if err := p.Teardown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("provider %s teardown: %w", p.Tag(), err))
		}
	}
	return errors.Join(errs...)
}
