package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const noteColumns = `id, user_id, title, content, created_at, updated_at`

type NoteRepository struct {
	db dbSource
}

func NewNoteRepository(db *Connector) *NoteRepository {
	return &NoteRepository{db: db.DB}
}

func (r *NoteRepository) Create(ctx context.Context, note *domain.Note) (*domain.Note, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	row := db.QueryRow(ctx, `
		INSERT INTO notes (user_id, title, content)
		VALUES ($1, $2, $3)
		RETURNING `+noteColumns, note.UserID, note.Title, note.Content)

	created, err := scanNote(row)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return created, nil
}

func (r *NoteRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Note, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, `
		SELECT `+noteColumns+`
		FROM notes
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*domain.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *NoteRepository) GetByID(ctx context.Context, id, userID string) (*domain.Note, error) {
	if !validIDs(id, userID) {
		return nil, domain.ErrNoteNotFound
	}
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	row := db.QueryRow(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = $1 AND user_id = $2`, id, userID)
	return scanNote(row)
}

func (r *NoteRepository) Update(ctx context.Context, id, userID, title, content string) (*domain.Note, error) {
	if !validIDs(id, userID) {
		return nil, domain.ErrNoteNotFound
	}
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	row := db.QueryRow(ctx, `
		UPDATE notes
		SET    title = $3, content = $4, updated_at = NOW()
		WHERE  id = $1 AND user_id = $2
		RETURNING `+noteColumns, id, userID, title, content)
	return scanNote(row)
}

func (r *NoteRepository) Delete(ctx context.Context, id, userID string) error {
	if !validIDs(id, userID) {
		return domain.ErrNoteNotFound
	}
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	tag, err := db.Exec(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

// Malformed ids can't match any row; rejecting them here avoids a cast error from postgres.
func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

// pgx.Row and pgx.Rows both implement this.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*domain.Note, error) {
	var n domain.Note
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoteNotFound
		}
		return nil, fmt.Errorf("scan note: %w", err)
	}
	return &n, nil
}
