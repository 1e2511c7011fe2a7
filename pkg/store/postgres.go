// Package store persists notes and folders in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// Note is a stored note.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	FolderID  *string   `json:"folderId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Folder groups notes.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NoteInput carries the writable note fields.
type NoteInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	FolderID *string  `json:"folderId"`
}

// Store is the persistence contract the handlers depend on.
type Store interface {
	ListNotes(ctx context.Context, sortOrder string) ([]Note, error)
	GetNote(ctx context.Context, id string) (Note, error)
	CreateNote(ctx context.Context, input NoteInput) (Note, error)
	UpdateNote(ctx context.Context, id string, input NoteInput) (Note, error)
	DeleteNote(ctx context.Context, id string) error

	ListFolders(ctx context.Context) ([]Folder, error)
	CreateFolder(ctx context.Context, name string) (Folder, error)
	DeleteFolder(ctx context.Context, id string) error
}

// PostgresStore implements Store on database/sql with the pq driver.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore opens and verifies the database connection.
func NewPostgresStore(databaseURL string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &PostgresStore{
		db:     db,
		logger: logger.With(slog.String("component", "postgres_store")),
	}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

const noteColumns = "id, title, content, tags, folder_id, created_at, updated_at"

// ListNotes returns all notes, newest first unless sortOrder is "oldest".
func (s *PostgresStore) ListNotes(ctx context.Context, sortOrder string) ([]Note, error) {
	order := "DESC"
	if sortOrder == "oldest" {
		order = "ASC"
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM notes ORDER BY created_at %s", noteColumns, order))
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// GetNote returns one note or ErrNotFound.
func (s *PostgresStore) GetNote(ctx context.Context, id string) (Note, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM notes WHERE id = $1", noteColumns), id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return note, err
}

// CreateNote inserts a new note.
func (s *PostgresStore) CreateNote(ctx context.Context, input NoteInput) (Note, error) {
	tags, err := encodeTags(input.Tags)
	if err != nil {
		return Note{}, err
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO notes (id, title, content, tags, folder_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+noteColumns,
		uuid.NewString(), input.Title, input.Content, tags, input.FolderID)
	return scanNote(row)
}

// UpdateNote overwrites the writable fields of an existing note.
func (s *PostgresStore) UpdateNote(ctx context.Context, id string, input NoteInput) (Note, error) {
	tags, err := encodeTags(input.Tags)
	if err != nil {
		return Note{}, err
	}

	row := s.db.QueryRowContext(ctx,
		`UPDATE notes
		 SET title = $2, content = $3, tags = $4, folder_id = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+noteColumns,
		id, input.Title, input.Content, tags, input.FolderID)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return note, err
}

// DeleteNote removes a note; deleting an absent note is ErrNotFound.
func (s *PostgresStore) DeleteNote(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFolders returns all folders, newest first.
func (s *PostgresStore) ListFolders(ctx context.Context) ([]Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM folders ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	folders := []Folder{}
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt); err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// CreateFolder inserts a new folder.
func (s *PostgresStore) CreateFolder(ctx context.Context, name string) (Folder, error) {
	var f Folder
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO folders (id, name) VALUES ($1, $2) RETURNING id, name, created_at`,
		uuid.NewString(), name).Scan(&f.ID, &f.Name, &f.CreatedAt)
	if err != nil {
		return Folder{}, fmt.Errorf("failed to create folder: %w", err)
	}
	return f, nil
}

// DeleteFolder removes a folder; notes referencing it fall back to no
// folder via the schema's ON DELETE SET NULL.
func (s *PostgresStore) DeleteFolder(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM folders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row rowScanner) (Note, error) {
	var (
		note     Note
		tagsRaw  []byte
		folderID sql.NullString
	)
	if err := row.Scan(&note.ID, &note.Title, &note.Content, &tagsRaw, &folderID,
		&note.CreatedAt, &note.UpdatedAt); err != nil {
		return Note{}, err
	}

	note.Tags = []string{}
	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &note.Tags); err != nil {
			return Note{}, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	if folderID.Valid {
		note.FolderID = &folderID.String
	}
	return note, nil
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return encoded, nil
}
