package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shockbytes/dante/internal/auth"
	"github.com/shockbytes/dante/internal/backup"
	"github.com/shockbytes/dante/internal/entities"
)

func mailAccount() *auth.StaticAccountProvider {
	return &auth.StaticAccountProvider{
		Acct:  &auth.Account{ID: "user-1", Source: entities.AccountSourceMail},
		Token: "remote-token",
	}
}

// fakeService is an in-memory rendition of the hosted backup service.
type fakeService struct {
	nextID  int
	backups map[string]backupDTO
}

func newFakeService() *fakeService {
	return &fakeService{nextID: 1, backups: map[string]backupDTO{}}
}

func (s *fakeService) handler(t *testing.T) http.Handler {
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer remote-token" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			h(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/backups", authed(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		_, meta, err := backup.Decode(body)
		require.NoError(t, err)

		id := "srv-" + strconv.Itoa(s.nextID)
		s.nextID++
		s.backups[id] = backupDTO{
			ID:        id,
			FileName:  meta.FileName,
			Device:    meta.Device,
			Timestamp: meta.Timestamp.UnixMilli(),
			BookCount: meta.BookCount,
			OwnerID:   "user-1",
			Data:      body,
		}
		w.WriteHeader(http.StatusCreated)
	}))
	mux.HandleFunc("GET /api/v1/backups", authed(func(w http.ResponseWriter, r *http.Request) {
		dtos := make([]backupDTO, 0, len(s.backups))
		for _, dto := range s.backups {
			dto.Data = nil
			dtos = append(dtos, dto)
		}
		require.NoError(t, json.NewEncoder(w).Encode(dtos))
	}))
	mux.HandleFunc("GET /api/v1/backups/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		dto, ok := s.backups[r.PathValue("id")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(dto))
	}))
	mux.HandleFunc("DELETE /api/v1/backups/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		delete(s.backups, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("DELETE /api/v1/backups", authed(func(w http.ResponseWriter, r *http.Request) {
		s.backups = map[string]backupDTO{}
		w.WriteHeader(http.StatusNoContent)
	}))
	return mux
}

func setupRemoteProvider(t *testing.T) (*Provider, *fakeService) {
	svc := newFakeService()
	srv := httptest.NewServer(svc.handler(t))
	t.Cleanup(srv.Close)

	p := New(srv.URL, "test-device", mailAccount(), zerolog.Nop())
	require.NoError(t, p.Initialize(context.Background()))
	return p, svc
}

func TestRemoteProvider_InitializeAcceptsAnySignedInAccount(t *testing.T) {
	p := New("http://service.invalid", "dev", mailAccount(), zerolog.Nop())
	require.NoError(t, p.Initialize(context.Background()))
	assert.True(t, p.Enabled())
}

func TestRemoteProvider_InitializeRequiresAccount(t *testing.T) {
	p := New("http://service.invalid", "dev", &auth.StaticAccountProvider{}, zerolog.Nop())

	err := p.Initialize(context.Background())
	assert.ErrorIs(t, err, backup.ErrUnauthenticated)
	assert.False(t, p.Enabled())
}

func TestRemoteProvider_BackupAndList(t *testing.T) {
	p, svc := setupRemoteProvider(t)

	content := backup.Content{Books: []entities.Book{
		{Title: "Dune", Author: "Frank Herbert"},
	}}
	require.NoError(t, p.Backup(context.Background(), content))
	require.Len(t, svc.backups, 1)

	entries, err := p.BackupEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0].Entry
	assert.Equal(t, backup.StorageProviderRemote, entry.StorageProvider)
	assert.Equal(t, "test-device", entry.Device)
	assert.Equal(t, 1, entry.BookCount)
	assert.WithinDuration(t, time.Now(), entry.Timestamp, 5*time.Second)
}

func TestRemoteProvider_ContentRoundTrip(t *testing.T) {
	p, _ := setupRemoteProvider(t)

	content := backup.Content{
		Books:   []entities.Book{{ID: 4, Title: "Dune", Author: "Frank Herbert"}},
		Records: []entities.PageRecord{{ID: 2, BookID: 4, FromPage: 10, ToPage: 80}},
	}
	require.NoError(t, p.Backup(context.Background(), content))

	entries, err := p.BackupEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got, err := p.Content(context.Background(), entries[0].Entry)
	require.NoError(t, err)
	assert.Equal(t, content.Books, got.Books)
	assert.Equal(t, content.Records, got.Records)
}

func TestRemoteProvider_ContentRejectsForeignOwner(t *testing.T) {
	p, svc := setupRemoteProvider(t)

	require.NoError(t, p.Backup(context.Background(), backup.Content{}))
	for id, dto := range svc.backups {
		dto.OwnerID = "somebody-else"
		svc.backups[id] = dto
	}

	entries, err := p.BackupEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = p.Content(context.Background(), entries[0].Entry)
	assert.ErrorIs(t, err, backup.ErrUnauthenticated)
}

func TestRemoteProvider_ListSkipsMalformedEntries(t *testing.T) {
	p, svc := setupRemoteProvider(t)

	require.NoError(t, p.Backup(context.Background(), backup.Content{}))
	svc.backups["bad"] = backupDTO{ID: "bad", Timestamp: 0}

	entries, err := p.BackupEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRemoteProvider_RemoveEntries(t *testing.T) {
	p, svc := setupRemoteProvider(t)

	require.NoError(t, p.Backup(context.Background(), backup.Content{}))
	require.NoError(t, p.Backup(context.Background(), backup.Content{}))
	require.Len(t, svc.backups, 2)

	entries, err := p.BackupEntries(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.RemoveEntry(context.Background(), entries[0].Entry))
	assert.Len(t, svc.backups, 1)

	require.NoError(t, p.RemoveAllEntries(context.Background()))
	assert.Empty(t, svc.backups)
}

func TestRemoteProvider_UnauthorizedStatus(t *testing.T) {
	svc := newFakeService()
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	p := New(srv.URL, "dev", &auth.StaticAccountProvider{
		Acct:  &auth.Account{ID: "user-1", Source: entities.AccountSourceMail},
		Token: "wrong-token",
	}, zerolog.Nop())
	require.NoError(t, p.Initialize(context.Background()))

	err := p.Backup(context.Background(), backup.Content{})
	assert.ErrorIs(t, err, backup.ErrUnauthenticated)
}
