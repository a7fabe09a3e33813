package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"panelsmith/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the job database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.JobDatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new pending job with a fresh opaque token.
func (s *Store) Create(ctx context.Context, sessionToken, inputPayload string, opts Options) (*Job, error) {
	token := uuid.NewString()
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	selector := strings.TrimSpace(opts.ChapterSelector)
	if selector == "" {
		selector = "all"
	}

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            token, session_token, input_payload, style, chapter_selector,
            output_format, status, progress, stage_label, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		token,
		sessionToken,
		inputPayload,
		nullableString(strings.TrimSpace(opts.Style)),
		selector,
		strings.TrimSpace(opts.OutputFormat),
		StatusPending,
		0,
		QueuedLabel,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByToken(ctx, token)
}

// GetByToken fetches a job by token. Returns (nil, nil) when no job exists.
func (s *Store) GetByToken(ctx context.Context, token string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE token = ?`, token)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// Update applies a partial merge to a job row. Only non-nil fields are
// overwritten; a missing token is a silent no-op because it models an update
// racing a delete, which callers must tolerate.
func (s *Store) Update(ctx context.Context, token string, update Update) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = COALESCE(?, status),
             progress = COALESCE(?, progress),
             stage_label = COALESCE(?, stage_label),
             error_message = COALESCE(?, error_message),
             result_json = COALESCE(?, result_json),
             updated_at = ?
         WHERE token = ?`,
		nullableStatus(update.Status),
		nullableInt(update.Progress),
		nullableStringPtr(update.StageLabel),
		nullableStringPtr(update.ErrorMessage),
		nullableStringPtr(update.ResultJSON),
		now,
		token,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// Delete removes a job by token. Reports whether a row was deleted.
func (s *Store) Delete(ctx context.Context, token string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE token = ?`, token)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Sweep deletes every job created before the cutoff, irrespective of status,
// and returns the reaped tokens so callers can clean up per-job staging
// directories. A stuck processing job and a long-finished one are evicted
// identically.
func (s *Store) Sweep(ctx context.Context, cutoff time.Time) ([]string, error) {
	ctx = ensureContext(ctx)
	cutoffValue := cutoff.UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sweep tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT token FROM jobs WHERE created_at < ?`, cutoffValue)
	if err != nil {
		return nil, fmt.Errorf("select sweep candidates: %w", err)
	}
	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sweep candidate: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate sweep candidates: %w", err)
	}
	rows.Close()

	if len(tokens) == 0 {
		return nil, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE created_at < ?`, cutoffValue); err != nil {
		return nil, fmt.Errorf("sweep jobs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sweep: %w", err)
	}
	return tokens, nil
}

const jobColumns = "token, session_token, input_payload, style, chapter_selector, output_format, status, progress, stage_label, error_message, result_json, created_at, updated_at, last_heartbeat"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		token            string
		sessionToken     string
		inputPayload     string
		style            sql.NullString
		chapterSelector  string
		outputFormat     string
		statusStr        string
		progress         int
		stageLabel       sql.NullString
		errorMessage     sql.NullString
		resultJSON       sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&token,
		&sessionToken,
		&inputPayload,
		&style,
		&chapterSelector,
		&outputFormat,
		&statusStr,
		&progress,
		&stageLabel,
		&errorMessage,
		&resultJSON,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	j := &Job{
		Token:           token,
		SessionToken:    sessionToken,
		InputPayload:    inputPayload,
		Style:           style.String,
		ChapterSelector: chapterSelector,
		OutputFormat:    outputFormat,
		Status:          Status(statusStr),
		Progress:        progress,
		StageLabel:      stageLabel.String,
		ErrorMessage:    errorMessage.String,
		ResultJSON:      resultJSON.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		j.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		j.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			j.LastHeartbeat = &heartbeat
		}
	}
	return j, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableStringPtr(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableStatus(value *Status) any {
	if value == nil {
		return nil
	}
	return string(*value)
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
