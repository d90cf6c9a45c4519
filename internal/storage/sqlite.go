package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/hyperjump/wadai/internal/models"
)

// SQLiteStorage implements Storage using SQLite. Vectors, id lists and stats are
// stored as JSON text columns.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS topics (
		id TEXT PRIMARY KEY,
		title TEXT,
		summary TEXT,
		embedding TEXT NOT NULL,
		input_ids TEXT NOT NULL,
		stats TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS inputs (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		category TEXT NOT NULL,
		embedding TEXT,
		topic_id TEXT,
		expanded_idea TEXT,
		is_task INTEGER NOT NULL DEFAULT 0,
		gibberish_score REAL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_inputs_topic_id ON inputs(topic_id);
	CREATE INDEX IF NOT EXISTS idx_inputs_created_at ON inputs(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const topicColumns = `id, title, summary, embedding, input_ids, stats, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTopic(row rowScanner) (*models.Topic, error) {
	var (
		t                           models.Topic
		title, summary              sql.NullString
		embJSON, idsJSON, statsJSON string
	)
	if err := row.Scan(&t.ID, &title, &summary, &embJSON, &idsJSON, &statsJSON, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Title = fromNull(title)
	t.Summary = fromNull(summary)
	if err := json.Unmarshal([]byte(embJSON), &t.Embedding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding of topic %s: %w", t.ID, err)
	}
	if err := json.Unmarshal([]byte(idsJSON), &t.InputIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal input ids of topic %s: %w", t.ID, err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &t.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats of topic %s: %w", t.ID, err)
	}
	if t.InputIDs == nil {
		t.InputIDs = []string{}
	}
	return &t, nil
}

// ListTopics returns every topic in creation order.
func (s *SQLiteStorage) ListTopics(ctx context.Context) ([]*models.Topic, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+topicColumns+` FROM topics ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := make([]*models.Topic, 0)
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// GetTopic returns a topic by ID.
func (s *SQLiteStorage) GetTopic(ctx context.Context, id string) (*models.Topic, error) {
	t, err := scanTopic(s.db.QueryRowContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	return t, err
}

func encodeTopic(topic *models.Topic) (emb, ids, stats string, err error) {
	inputIDs := topic.InputIDs
	if inputIDs == nil {
		inputIDs = []string{}
	}
	b, err := json.Marshal(topic.Embedding)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal embedding: %w", err)
	}
	emb = string(b)
	if b, err = json.Marshal(inputIDs); err != nil {
		return "", "", "", fmt.Errorf("failed to marshal input ids: %w", err)
	}
	ids = string(b)
	if b, err = json.Marshal(topic.Stats); err != nil {
		return "", "", "", fmt.Errorf("failed to marshal stats: %w", err)
	}
	return emb, ids, string(b), nil
}

// CreateTopic inserts a topic. CreatedAt is set when zero.
func (s *SQLiteStorage) CreateTopic(ctx context.Context, topic *models.Topic) error {
	emb, ids, stats, err := encodeTopic(topic)
	if err != nil {
		return err
	}
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO topics (`+topicColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		topic.ID, toNull(topic.Title), toNull(topic.Summary), emb, ids, stats, topic.CreatedAt,
	)
	return mapConstraintError(err, "topic", topic.ID)
}

// UpdateTopic replaces every mutable field of the topic with the given ID.
func (s *SQLiteStorage) UpdateTopic(ctx context.Context, id string, topic *models.Topic) error {
	emb, ids, stats, err := encodeTopic(topic)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE topics SET title = ?, summary = ?, embedding = ?, input_ids = ?, stats = ?
		 WHERE id = ?`,
		toNull(topic.Title), toNull(topic.Summary), emb, ids, stats, id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	return nil
}

const inputColumns = `id, text, category, embedding, topic_id, expanded_idea, is_task, gibberish_score, created_at`

func scanInput(row rowScanner) (*models.Input, error) {
	var (
		in                    models.Input
		category              string
		embJSON               sql.NullString
		topicID, expandedIdea sql.NullString
		gibberishScore        sql.NullFloat64
	)
	err := row.Scan(&in.ID, &in.Text, &category, &embJSON, &topicID, &expandedIdea, &in.IsTask, &gibberishScore, &in.CreatedAt)
	if err != nil {
		return nil, err
	}
	in.Category = models.Category(category)
	in.TopicID = fromNull(topicID)
	in.ExpandedIdea = fromNull(expandedIdea)
	if gibberishScore.Valid {
		v := gibberishScore.Float64
		in.GibberishScore = &v
	}
	if embJSON.Valid && embJSON.String != "" {
		if err := json.Unmarshal([]byte(embJSON.String), &in.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding of input %s: %w", in.ID, err)
		}
	}
	return &in, nil
}

// CreateInput inserts a note. CreatedAt is set when zero.
func (s *SQLiteStorage) CreateInput(ctx context.Context, input *models.Input) error {
	var emb sql.NullString
	if input.Embedding != nil {
		b, err := json.Marshal(input.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}
		emb = sql.NullString{String: string(b), Valid: true}
	}
	var score sql.NullFloat64
	if input.GibberishScore != nil {
		score = sql.NullFloat64{Float64: *input.GibberishScore, Valid: true}
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inputs (`+inputColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.ID, input.Text, string(input.Category), emb, toNull(input.TopicID), toNull(input.ExpandedIdea),
		input.IsTask, score, input.CreatedAt,
	)
	return mapConstraintError(err, "input", input.ID)
}

// GetInput returns a note by ID.
func (s *SQLiteStorage) GetInput(ctx context.Context, id string) (*models.Input, error) {
	in, err := scanInput(s.db.QueryRowContext(ctx, `SELECT `+inputColumns+` FROM inputs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("input %s: %w", id, ErrNotFound)
	}
	return in, err
}

// ListInputs returns notes with pagination, newest first.
func (s *SQLiteStorage) ListInputs(ctx context.Context, offset, limit int) ([]*models.Input, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+inputColumns+` FROM inputs ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inputs := make([]*models.Input, 0)
	for rows.Next() {
		in, err := scanInput(rows)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, rows.Err()
}

// CountTopics returns the number of topics.
func (s *SQLiteStorage) CountTopics(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM topics").Scan(&count)
	return count, err
}

// CountInputs returns the number of notes.
func (s *SQLiteStorage) CountInputs(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inputs").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func mapConstraintError(err error, kind, id string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return fmt.Errorf("%s %s: %w", kind, id, ErrAlreadyExists)
	}
	return err
}

func toNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
