package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a stale revision on update or a duplicate key on insert.
	ErrConflict = errors.New("conflict")
)

const uniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, role)
		VALUES ($1, $2, LOWER($3), $4, $5)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.Role)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user: %w", ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, `WHERE email = LOWER($1)`, email)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return s.getUser(ctx, `WHERE id = $1`, userID)
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role, created_at
		FROM users `+where, arg).
		Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListDocuments returns document metadata without block trees, most recently
// updated first.
func (s *PostgresStore) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, revision, head_hash, created_by, updated_by, created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var item Document
		if err := rows.Scan(&item.ID, &item.Title, &item.Revision, &item.HeadHash, &item.CreatedBy, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var item Document
	var blocks []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, blocks, search_text, revision, head_hash, created_by, updated_by, created_at, updated_at
		FROM documents
		WHERE id=$1
	`, documentID).Scan(&item.ID, &item.Title, &blocks, &item.SearchText, &item.Revision, &item.HeadHash, &item.CreatedBy, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	item.Blocks = blocks
	return item, nil
}

func (s *PostgresStore) InsertDocument(ctx context.Context, item Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, blocks, search_text, revision, head_hash, created_by, updated_by)
		VALUES ($1, $2, $3::jsonb, $4, 1, $5, $6, $6)
	`, item.ID, item.Title, string(blocksOrEmpty(item.Blocks)), item.SearchText, item.HeadHash, item.CreatedBy)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert document: %w", ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// UpdateDocument stores a new snapshot if the row is still at
// expectedRevision and returns the new revision.
func (s *PostgresStore) UpdateDocument(ctx context.Context, item Document, expectedRevision int64) (int64, error) {
	var revision int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE documents
		SET title=$2, blocks=$3::jsonb, search_text=$4, head_hash=$5, updated_by=$6,
			revision=revision+1, updated_at=NOW()
		WHERE id=$1 AND revision=$7
		RETURNING revision
	`, item.ID, item.Title, string(blocksOrEmpty(item.Blocks)), item.SearchText, item.HeadHash, item.UpdatedBy, expectedRevision).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetDocument(ctx, item.ID); errors.Is(getErr, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("update document %s at revision %d: %w", item.ID, expectedRevision, ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("update document: %w", err)
	}
	return revision, nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, documentID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountDocuments(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) InsertAsset(ctx context.Context, asset Asset) error {
	var documentID any
	if asset.DocumentID != "" {
		documentID = asset.DocumentID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (key, document_id, file_name, content_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, asset.Key, documentID, asset.FileName, asset.ContentType, asset.SizeBytes, asset.UploadedBy)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAsset(ctx context.Context, key string) (Asset, error) {
	var asset Asset
	var documentID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT key, document_id, file_name, content_type, size_bytes, uploaded_by, created_at
		FROM assets WHERE key=$1
	`, key).Scan(&asset.Key, &documentID, &asset.FileName, &asset.ContentType, &asset.SizeBytes, &asset.UploadedBy, &asset.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Asset{}, ErrNotFound
	}
	if err != nil {
		return Asset{}, fmt.Errorf("get asset: %w", err)
	}
	asset.DocumentID = documentID.String
	return asset, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func blocksOrEmpty(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("[]")
	}
	return raw
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
