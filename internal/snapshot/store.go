// Package snapshot stores frames retained by the capture_snapshot command
// and serves them back over HTTP. The pipeline only sees the Save side;
// storage and retrieval live entirely here.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/netglass-io/Camera/internal/pipeline"
)

// Record describes one stored snapshot without its image payload.
type Record struct {
	ID       string    `json:"id"`
	FrameSeq uint64    `json:"frame_seq"`
	TakenAt  time.Time `json:"taken_at"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Size     int       `json:"size_bytes"`
}

// Store is a SQLite-backed snapshot archive.
type Store struct {
	db *sql.DB
}

// Open opens or creates the store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	// WAL keeps saves from blocking concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		frame_seq INTEGER NOT NULL,
		taken_at DATETIME NOT NULL,
		width INTEGER,
		height INTEGER,
		image BLOB NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save implements pipeline.SnapshotSink.
func (s *Store) Save(f *pipeline.Frame) error {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO snapshots (id, frame_seq, taken_at, width, height, image) VALUES (?, ?, ?, ?, ?, ?)`,
		id, f.Seq, f.Timestamp, f.Width, f.Height, f.Data,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	log.Printf("[Snapshot] Saved frame %d as %s (%d bytes)", f.Seq, id, len(f.Data))
	return nil
}

// Get returns the image payload and record for one snapshot.
func (s *Store) Get(id string) (*Record, []byte, error) {
	row := s.db.QueryRow(
		`SELECT id, frame_seq, taken_at, width, height, image FROM snapshots WHERE id = ?`, id,
	)

	var rec Record
	var image []byte
	if err := row.Scan(&rec.ID, &rec.FrameSeq, &rec.TakenAt, &rec.Width, &rec.Height, &image); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("snapshot %s not found", id)
		}
		return nil, nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	rec.Size = len(image)
	return &rec, image, nil
}

// List returns all snapshot records, newest first.
func (s *Store) List() ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT id, frame_seq, taken_at, width, height, length(image) FROM snapshots ORDER BY taken_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.FrameSeq, &rec.TakenAt, &rec.Width, &rec.Height, &rec.Size); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Handler serves /snapshots (listing) and /snapshots/{id} (image).
type Handler struct {
	store *Store
}

// NewHandler creates the snapshot retrieval endpoint.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// ServeHTTP routes listing and image requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/snapshots"), "/")
	if id == "" {
		h.serveList(w)
		return
	}
	h.serveImage(w, id)
}

func (h *Handler) serveList(w http.ResponseWriter) {
	records, err := h.store.List()
	if err != nil {
		log.Printf("[Snapshot] List error: %v", err)
		http.Error(w, "failed to list snapshots", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (h *Handler) serveImage(w http.ResponseWriter, id string) {
	_, image, err := h.store.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(image)))
	w.Write(image)
}

var _ pipeline.SnapshotSink = (*Store)(nil)
