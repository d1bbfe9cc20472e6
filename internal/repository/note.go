package repository

import (
	"context"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
)

// NoteRepository scopes every lookup by owner; a note owned by someone else
// is reported as domain.ErrNoteNotFound.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) (*domain.Note, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Note, error)
	GetByID(ctx context.Context, id, userID string) (*domain.Note, error)
	Update(ctx context.Context, id, userID, title, content string) (*domain.Note, error)
	Delete(ctx context.Context, id, userID string) error
}
