package idempotency_test

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/store/idempotency"
)

func newTestStore(t *testing.T) *idempotency.Store {
	t.Helper()
	s, err := idempotency.Open(filepath.Join(t.TempDir(), "idem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCheck_UnknownKey(t *testing.T) {
	s := newTestStore(t)

	entry, err := s.Check("POST /api/leaves k1", idempotency.RequestHash([]byte(`{}`)))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestSaveThenCheck_ReplaysResponse(t *testing.T) {
	s := newTestStore(t)
	hash := idempotency.RequestHash([]byte(`{"type":"annual"}`))

	// GIVEN: a stored response
	require.NoError(t, s.Save("POST /api/leaves k1", idempotency.Entry{
		RequestHash: hash,
		Status:      201,
		Body:        json.RawMessage(`{"created":1}`),
	}))

	// WHEN: the same request is checked
	entry, err := s.Check("POST /api/leaves k1", hash)

	// THEN: the first response comes back
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 201, entry.Status)
	assert.JSONEq(t, `{"created":1}`, string(entry.Body))
}

func TestCheck_DifferentBodyConflicts(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("k1", idempotency.Entry{RequestHash: idempotency.RequestHash([]byte("a")), Status: 200, Body: json.RawMessage(`{}`)}))

	_, err := s.Check("k1", idempotency.RequestHash([]byte("b")))
	assert.ErrorIs(t, err, idempotency.ErrConflict)

	err = s.Save("k1", idempotency.Entry{RequestHash: idempotency.RequestHash([]byte("b")), Status: 200, Body: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, idempotency.ErrConflict)
}

func TestSave_KeepsFirstResponse(t *testing.T) {
	s := newTestStore(t)
	hash := idempotency.RequestHash([]byte("a"))

	require.NoError(t, s.Save("k1", idempotency.Entry{RequestHash: hash, Status: 201, Body: json.RawMessage(`{"n":1}`)}))
	require.NoError(t, s.Save("k1", idempotency.Entry{RequestHash: hash, Status: 500, Body: json.RawMessage(`{"n":2}`)}))

	entry, err := s.Check("k1", hash)
	require.NoError(t, err)
	assert.Equal(t, 201, entry.Status)
}

func TestReserve_SecondCallerIsRefusedWhileInFlight(t *testing.T) {
	s := newTestStore(t)
	hash := idempotency.RequestHash([]byte(`{"type":"sick"}`))

	// GIVEN: A first request holding the key
	entry, err := s.Reserve("POST /api/leaves k1", hash)
	require.NoError(t, err)
	assert.Nil(t, entry)

	// WHEN: A retry arrives before it finished
	_, err = s.Reserve("POST /api/leaves k1", hash)

	// THEN: The retry is refused rather than run twice
	assert.ErrorIs(t, err, idempotency.ErrInFlight)

	// AND: Once the response is saved, retries replay it
	require.NoError(t, s.Save("POST /api/leaves k1", idempotency.Entry{RequestHash: hash, Status: 201, Body: json.RawMessage(`{"ok":true}`)}))
	entry, err = s.Reserve("POST /api/leaves k1", hash)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.False(t, entry.Pending)
	assert.Equal(t, 201, entry.Status)
}

func TestReserve_DifferentBodyConflicts(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Reserve("k1", idempotency.RequestHash([]byte("a")))
	require.NoError(t, err)

	_, err = s.Reserve("k1", idempotency.RequestHash([]byte("b")))
	assert.ErrorIs(t, err, idempotency.ErrConflict)
}

func TestRelease_FreesReservationOnly(t *testing.T) {
	s := newTestStore(t)
	hash := idempotency.RequestHash([]byte("a"))

	// GIVEN: A reservation whose request failed
	_, err := s.Reserve("k1", hash)
	require.NoError(t, err)
	require.NoError(t, s.Release("k1"))

	// THEN: The key can be taken again
	entry, err := s.Reserve("k1", hash)
	require.NoError(t, err)
	assert.Nil(t, entry)

	// AND: Releasing a completed entry keeps it
	require.NoError(t, s.Save("k1", idempotency.Entry{RequestHash: hash, Status: 200, Body: json.RawMessage(`{}`)}))
	require.NoError(t, s.Release("k1"))
	entry, err = s.Check("k1", hash)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 200, entry.Status)
}

func TestPurge(t *testing.T) {
	s := newTestStore(t)
	hash := idempotency.RequestHash([]byte("a"))
	require.NoError(t, s.Save("old", idempotency.Entry{RequestHash: hash, Status: 200, Body: json.RawMessage(`{}`), CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, s.Save("new", idempotency.Entry{RequestHash: hash, Status: 200, Body: json.RawMessage(`{}`)}))

	n, err := s.Purge(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entry, err := s.Check("old", hash)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestNilStore_IsDisabled(t *testing.T) {
	var s *idempotency.Store

	entry, err := s.Check("k", "h")
	assert.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, s.Save("k", idempotency.Entry{}))

	entry, err = s.Reserve("k", "h")
	assert.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, s.Release("k"))

	n, err := s.Purge(time.Hour)
	assert.NoError(t, err)
	assert.Zero(t, n)
}
