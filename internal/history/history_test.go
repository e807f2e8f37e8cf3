package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/meditranslate-go/internal/errs"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx))
	_, err = s.Append(ctx, RoleDoctor, "Hello", "Hola", "")
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Init(ctx))

	all, err := reopened.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Hola", all[0].TranslatedText)
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first, err := s.Append(ctx, RoleDoctor, "Hello", "Hola", "")
	require.NoError(t, err)
	second, err := s.Append(ctx, RolePatient, "[Audio Message]", "I have a headache", "audio_files/a.wav")
	require.NoError(t, err)

	require.Greater(t, second.ID, first.ID)
	require.False(t, first.Timestamp.IsZero())
	require.False(t, second.Timestamp.Before(first.Timestamp))
	require.False(t, first.HasAudio())
	require.True(t, second.HasAudio())
}

func TestAllPreservesAppendOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	empty, err := s.All(ctx)
	require.NoError(t, err)
	require.Empty(t, empty)

	for i := 0; i < 25; i++ {
		_, err := s.Append(ctx, RoleDoctor, fmt.Sprintf("msg-%02d", i), fmt.Sprintf("tr-%02d", i), "")
		require.NoError(t, err)
	}

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 25)
	for i, m := range all {
		require.Equal(t, fmt.Sprintf("msg-%02d", i), m.OriginalText)
		require.Equal(t, fmt.Sprintf("tr-%02d", i), m.TranslatedText)
		if i > 0 {
			require.Greater(t, m.ID, all[i-1].ID)
		}
	}
}

func TestAppendAllowsDuplicates(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, RoleDoctor, "Hello", "Hola", "")
	require.NoError(t, err)
	_, err = s.Append(ctx, RoleDoctor, "Hello", "Hola", "")
	require.NoError(t, err)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestSearchMatchesEitherFieldIgnoringCase(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seed := []struct{ original, translated string }{
		{"I have a Headache", "Tengo dolor de cabeza"},
		{"Take ibuprofen", "Tome ibuprofeno"},
		{"Thank you", "Gracias"},
		{"Das ist GROSS", "C'est Énorme"},
	}
	for _, row := range seed {
		_, err := s.Append(ctx, RolePatient, row.original, row.translated, "")
		require.NoError(t, err)
	}

	got, err := s.Search(ctx, "headache")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "I have a Headache", got[0].OriginalText)

	got, err = s.Search(ctx, "IBUPROF")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.Search(ctx, "gracias")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Thank you", got[0].OriginalText)

	// Folding is Unicode aware, not limited to ASCII.
	got, err = s.Search(ctx, "énorme")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.Search(ctx, "e")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		require.Greater(t, got[i].ID, got[i-1].ID)
	}

	got, err = s.Search(ctx, "stethoscope")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSearchEmptyQueryMatchesAll(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, RoleDoctor, "a", "b", "")
		require.NoError(t, err)
	}
	got, err := s.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestClearRemovesEverything(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, RoleDoctor, "Hello", "Hola", "audio_files/x.wav")
	require.NoError(t, err)
	require.NoError(t, s.Clear(ctx))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	// Clearing an empty log is fine and ids keep increasing afterwards.
	require.NoError(t, s.Clear(ctx))
	m, err := s.Append(ctx, RoleDoctor, "again", "otra vez", "")
	require.NoError(t, err)
	require.Greater(t, m.ID, int64(1))
}

func TestConcurrentAppendKeepsRowsIntact(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	const perSession = 40

	var wg sync.WaitGroup
	errCh := make(chan error, 2*perSession)
	for _, session := range []string{"a", "b"} {
		wg.Add(1)
		go func(session string) {
			defer wg.Done()
			for i := 0; i < perSession; i++ {
				original := fmt.Sprintf("%s-%d", session, i)
				if _, err := s.Append(ctx, RoleDoctor, original, "tr:"+original, "path:"+original); err != nil {
					errCh <- err
				}
			}
		}(session)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2*perSession)

	seen := make(map[string]bool)
	next := map[string]int{"a": 0, "b": 0}
	for _, m := range all {
		require.Equal(t, "tr:"+m.OriginalText, m.TranslatedText)
		require.Equal(t, "path:"+m.OriginalText, m.AudioPath)
		require.False(t, seen[m.OriginalText], "duplicate row %s", m.OriginalText)
		seen[m.OriginalText] = true

		// Each session's own rows stay in the order it wrote them.
		session := m.OriginalText[:1]
		require.Equal(t, fmt.Sprintf("%s-%d", session, next[session]), m.OriginalText)
		next[session]++
	}
}

func TestAllReadsLegacyTimestamps(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	// Rows written with second resolution by an older writer.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (role, original_text, translated_text, audio_path, timestamp) VALUES (?,?,?,?,?)`,
		"Doctor", "old", "viejo", sql.NullString{}, "2024-03-01 10:00:00")
	require.NoError(t, err)
	_, err = s.Append(ctx, RolePatient, "new", "nuevo", "")
	require.NoError(t, err)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "old", all[0].OriginalText)
	require.Equal(t, 2024, all[0].Timestamp.Year())
	require.Empty(t, all[0].AudioPath)
}

func TestClosedStoreReportsStorageError(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Close())

	_, err := s.Append(context.Background(), RoleDoctor, "x", "y", "")
	require.Error(t, err)
	require.True(t, errs.IsStorage(err))

	_, err = s.All(context.Background())
	require.True(t, errs.IsStorage(err))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("doctor")
	require.NoError(t, err)
	require.Equal(t, RoleDoctor, r)
	require.Equal(t, RolePatient, r.Counterpart())

	r, err = ParseRole(" Patient ")
	require.NoError(t, err)
	require.Equal(t, RolePatient, r)

	_, err = ParseRole("nurse")
	require.ErrorIs(t, err, ErrInvalidRole)
}
