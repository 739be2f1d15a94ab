package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"chapters/internal/config"
)

// Episode is one processed recording.
type Episode struct {
	ID            int64
	RunID         string
	PodcastTitle  string
	EpisodeNumber int
	EpisodeTitle  string
	SourcePath    string
	OutputPath    string
	SizeBytes     int64
	ChapterCount  int
	DurationMs    int
	CreatedAt     time.Time
}

// Store persists processed episodes in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// timestampLayout is fixed width so created_at sorts correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const episodeColumns = `id, run_id, podcast_title, episode_number, episode_title,
    source_path, output_path, size_bytes, chapter_count, duration_ms, created_at`

// Open initializes or connects to the history database and applies
// migrations. The migration step runs under a file lock so two processes
// opening a fresh database do not race.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	lock := flock.New(dbPath + ".lock")
	if err := lock.Lock(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("lock history db: %w", err)
	}
	migrateErr := store.applyMigrations(context.Background())
	_ = lock.Unlock()
	if migrateErr != nil {
		_ = db.Close()
		return nil, migrateErr
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts an episode. CreatedAt defaults to now.
func (s *Store) Record(ctx context.Context, ep Episode) (*Episode, error) {
	if strings.TrimSpace(ep.SourcePath) == "" || strings.TrimSpace(ep.OutputPath) == "" {
		return nil, errors.New("source and output paths are required")
	}
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = time.Now().UTC()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO episodes (
            run_id, podcast_title, episode_number, episode_title,
            source_path, output_path, size_bytes, chapter_count, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ep.RunID,
		ep.PodcastTitle,
		ep.EpisodeNumber,
		ep.EpisodeTitle,
		ep.SourcePath,
		ep.OutputPath,
		ep.SizeBytes,
		ep.ChapterCount,
		ep.DurationMs,
		ep.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert episode: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	ep.ID = id
	return &ep, nil
}

// List returns the most recent episodes, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episodes: %w", err)
	}
	return out, nil
}

// LastForPodcast returns the highest numbered episode recorded for title,
// or nil when none exists.
func (s *Store) LastForPodcast(ctx context.Context, title string) (*Episode, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+episodeColumns+` FROM episodes
         WHERE podcast_title = ? COLLATE NOCASE
         ORDER BY episode_number DESC, id DESC LIMIT 1`,
		strings.TrimSpace(title),
	)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last episode: %w", err)
	}
	return ep, nil
}

// SuggestNext returns the episode number following the last one recorded
// for title, or 0 when the podcast has no numbered history.
func (s *Store) SuggestNext(ctx context.Context, title string) (int, error) {
	if strings.TrimSpace(title) == "" {
		return 0, nil
	}
	last, err := s.LastForPodcast(ctx, title)
	if err != nil {
		return 0, err
	}
	if last == nil || last.EpisodeNumber <= 0 {
		return 0, nil
	}
	return last.EpisodeNumber + 1, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row scanner) (*Episode, error) {
	var (
		ep      Episode
		created string
	)
	if err := row.Scan(
		&ep.ID,
		&ep.RunID,
		&ep.PodcastTitle,
		&ep.EpisodeNumber,
		&ep.EpisodeTitle,
		&ep.SourcePath,
		&ep.OutputPath,
		&ep.SizeBytes,
		&ep.ChapterCount,
		&ep.DurationMs,
		&created,
	); err != nil {
		return nil, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		ep.CreatedAt = ts
	}
	return &ep, nil
}
