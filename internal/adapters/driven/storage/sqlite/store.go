// Package sqlite provides the persistent BookStore backed by SQLite.
// Embeddings are stored as little-endian float32 blobs alongside the
// chunk rows, making the book store the durable copy of every vector.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/bindery-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/bindery-cli/internal/core/domain"
	"github.com/custodia-labs/bindery-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BookStore = (*Store)(nil)

// Store is the SQLite-backed book store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store in the given data directory.
// If dataDir is empty, defaults to ~/.bindery/data/bindery.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".bindery", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "bindery.db")

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveBook stores or updates a book.
func (s *Store) SaveBook(ctx context.Context, book *domain.Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, title, embedding_type, mode, raw_source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			raw_source = excluded.raw_source,
			updated_at = excluded.updated_at
	`, book.ID, book.Title, string(book.EmbeddingType), string(book.Mode),
		book.RawSource, book.CreatedAt, book.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving book: %w", err)
	}
	return nil
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, embedding_type, mode, raw_source, created_at, updated_at
		FROM books WHERE id = ?
	`, id)

	var book domain.Book
	var embeddingType, mode string
	err := row.Scan(&book.ID, &book.Title, &embeddingType, &mode,
		&book.RawSource, &book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning book: %w", err)
	}

	book.EmbeddingType = domain.EmbeddingType(embeddingType)
	book.Mode = domain.OrganizeMode(mode)
	return &book, nil
}

// ListBooks returns all books ordered by creation time.
func (s *Store) ListBooks(ctx context.Context) ([]domain.Book, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, embedding_type, mode, raw_source, created_at, updated_at
		FROM books ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	defer rows.Close()

	var books []domain.Book //nolint:prealloc // size unknown from query
	for rows.Next() {
		var book domain.Book
		var embeddingType, mode string
		err := rows.Scan(&book.ID, &book.Title, &embeddingType, &mode,
			&book.RawSource, &book.CreatedAt, &book.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		book.EmbeddingType = domain.EmbeddingType(embeddingType)
		book.Mode = domain.OrganizeMode(mode)
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating books: %w", err)
	}
	return books, nil
}

// DeleteBook removes a book; foreign keys cascade to the tree.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	return nil
}

// DeleteTree removes a book's chapters; cascades handle the rest.
func (s *Store) DeleteTree(ctx context.Context, bookID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chapters WHERE book_id = ?", bookID)
	if err != nil {
		return fmt.Errorf("deleting chapters: %w", err)
	}
	return nil
}

// SaveChapter stores or updates a chapter.
func (s *Store) SaveChapter(ctx context.Context, chapter *domain.Chapter) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chapters (id, book_id, title, position)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			position = excluded.position
	`, chapter.ID, chapter.BookID, chapter.Title, chapter.Position)

	if err != nil {
		return fmt.Errorf("saving chapter: %w", err)
	}
	return nil
}

// SaveSection stores or updates a section.
func (s *Store) SaveSection(ctx context.Context, section *domain.Section) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sections (id, chapter_id, title, position)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			position = excluded.position
	`, section.ID, section.ChapterID, section.Title, section.Position)

	if err != nil {
		return fmt.Errorf("saving section: %w", err)
	}
	return nil
}

// SaveChunks stores or updates chunks in one transaction.
func (s *Store) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, section_id, position, title, content, embedding,
			word_count, embedded, next_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			section_id = excluded.section_id,
			position = excluded.position,
			title = excluded.title,
			content = excluded.content,
			embedding = excluded.embedding,
			word_count = excluded.word_count,
			embedded = excluded.embedded,
			next_id = excluded.next_id,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		_, err := stmt.ExecContext(ctx, chunk.ID, chunk.SectionID, chunk.Position,
			chunk.Title, chunk.Content, float32SliceToBytes(chunk.Embedding),
			chunk.WordCount, chunk.Embedded, chunk.NextID,
			chunk.CreatedAt, chunk.UpdatedAt)
		if err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

const chunkColumns = `id, section_id, position, title, content, embedding,
	word_count, embedded, next_id, created_at, updated_at`

// GetChapters returns a book's chapters ordered by position.
func (s *Store) GetChapters(ctx context.Context, bookID string) ([]domain.Chapter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, book_id, title, position
		FROM chapters WHERE book_id = ?
		ORDER BY position
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("querying chapters: %w", err)
	}
	defer rows.Close()

	var chapters []domain.Chapter //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chapter domain.Chapter
		if err := rows.Scan(&chapter.ID, &chapter.BookID, &chapter.Title, &chapter.Position); err != nil {
			return nil, fmt.Errorf("scanning chapter: %w", err)
		}
		chapters = append(chapters, chapter)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chapters: %w", err)
	}
	return chapters, nil
}

// GetSections returns a chapter's sections ordered by position.
func (s *Store) GetSections(ctx context.Context, chapterID string) ([]domain.Section, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chapter_id, title, position
		FROM sections WHERE chapter_id = ?
		ORDER BY position
	`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("querying sections: %w", err)
	}
	defer rows.Close()

	var sections []domain.Section //nolint:prealloc // size unknown from query
	for rows.Next() {
		var section domain.Section
		if err := rows.Scan(&section.ID, &section.ChapterID, &section.Title, &section.Position); err != nil {
			return nil, fmt.Errorf("scanning section: %w", err)
		}
		sections = append(sections, section)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sections: %w", err)
	}
	return sections, nil
}

// GetChunks returns a section's chunks ordered by position.
func (s *Store) GetChunks(ctx context.Context, sectionID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks WHERE section_id = ?
		ORDER BY position
	`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

// GetChunk retrieves a chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks WHERE id = ?
	`, id)

	chunk, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return chunk, nil
}

// GetChunkBook resolves the book owning a chunk.
func (s *Store) GetChunkBook(ctx context.Context, chunkID string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT b.id, b.title, b.embedding_type, b.mode, b.raw_source, b.created_at, b.updated_at
		FROM books b
		JOIN chapters ch ON ch.book_id = b.id
		JOIN sections se ON se.chapter_id = ch.id
		JOIN chunks c ON c.section_id = se.id
		WHERE c.id = ?
	`, chunkID)

	var book domain.Book
	var embeddingType, mode string
	err := row.Scan(&book.ID, &book.Title, &embeddingType, &mode,
		&book.RawSource, &book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning book: %w", err)
	}

	book.EmbeddingType = domain.EmbeddingType(embeddingType)
	book.Mode = domain.OrganizeMode(mode)
	return &book, nil
}

// ListBookChunks returns every chunk in a book, in chapter, section,
// position order.
func (s *Store) ListBookChunks(ctx context.Context, bookID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.section_id, c.position, c.title, c.content, c.embedding,
			c.word_count, c.embedded, c.next_id, c.created_at, c.updated_at
		FROM chunks c
		JOIN sections se ON se.id = c.section_id
		JOIN chapters ch ON ch.id = se.chapter_id
		WHERE ch.book_id = ?
		ORDER BY ch.position, se.position, c.position
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("querying book chunks: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

// DeleteChunk removes a single chunk.
func (s *Store) DeleteChunk(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting chunk: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for chunk scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embedding []byte
	err := row.Scan(&chunk.ID, &chunk.SectionID, &chunk.Position, &chunk.Title,
		&chunk.Content, &embedding, &chunk.WordCount, &chunk.Embedded,
		&chunk.NextID, &chunk.CreatedAt, &chunk.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embedding)
	return &chunk, nil
}

func collectChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// float32SliceToBytes encodes a vector as little-endian float32 bits.
func float32SliceToBytes(vector []float32) []byte {
	if len(vector) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// bytesToFloat32Slice decodes a little-endian float32 blob.
func bytesToFloat32Slice(buf []byte) []float32 {
	if len(buf) < 4 {
		return nil
	}
	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vector
}
