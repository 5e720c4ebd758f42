package snapshot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netglass-io/Camera/internal/pipeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testFrame(seq uint64, takenAt time.Time, data string) *pipeline.Frame {
	return &pipeline.Frame{Data: []byte(data), Seq: seq, Timestamp: takenAt, Width: 640, Height: 480}
}

func TestStoreSaveAndList(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(testFrame(10, base, "first")))
	require.NoError(t, store.Save(testFrame(25, base.Add(time.Minute), "second")))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, uint64(25), records[0].FrameSeq)
	assert.Equal(t, uint64(10), records[1].FrameSeq)
	assert.Equal(t, len("second"), records[0].Size)
	assert.Equal(t, 640, records[0].Width)
	assert.Equal(t, 480, records[0].Height)
}

func TestStoreGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Save(testFrame(7, time.Now().UTC(), "jpeg-bytes")))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec, image, err := store.Get(records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), rec.FrameSeq)
	assert.Equal(t, []byte("jpeg-bytes"), image)
	assert.Equal(t, len(image), rec.Size)
}

func TestStoreGetUnknownID(t *testing.T) {
	store := openTestStore(t)
	_, _, err := store.Get("no-such-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStoreListEmpty(t *testing.T) {
	store := openTestStore(t)
	records, err := store.List()
	require.NoError(t, err)
	require.NotNil(t, records)
	assert.Empty(t, records)
}

func TestHandlerListAndImage(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Save(testFrame(3, time.Now().UTC(), "image-payload")))
	handler := NewHandler(store)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshots", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var records []Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshots/"+records[0].ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "image-payload", rec.Body.String())
}

func TestHandlerUnknownSnapshotIs404(t *testing.T) {
	handler := NewHandler(openTestStore(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshots/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
