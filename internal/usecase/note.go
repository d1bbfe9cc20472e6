package usecase

import (
	"context"
	"fmt"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/ErlanBelekov/hdnotes/internal/repository"
)

type NoteUsecase struct {
	repo repository.NoteRepository
}

func NewNoteUsecase(repo repository.NoteRepository) *NoteUsecase {
	return &NoteUsecase{repo: repo}
}

func (u *NoteUsecase) Create(ctx context.Context, userID, title, content string) (*domain.Note, error) {
	title, content, err := domain.ValidateNote(title, content)
	if err != nil {
		return nil, err
	}

	note, err := u.repo.Create(ctx, &domain.Note{
		UserID:  userID,
		Title:   title,
		Content: content,
	})
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

// List returns the user's notes, newest first.
func (u *NoteUsecase) List(ctx context.Context, userID string) ([]*domain.Note, error) {
	notes, err := u.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

func (u *NoteUsecase) Get(ctx context.Context, id, userID string) (*domain.Note, error) {
	note, err := u.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

func (u *NoteUsecase) Update(ctx context.Context, id, userID, title, content string) (*domain.Note, error) {
	title, content, err := domain.ValidateNote(title, content)
	if err != nil {
		return nil, err
	}

	note, err := u.repo.Update(ctx, id, userID, title, content)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return note, nil
}

func (u *NoteUsecase) Delete(ctx context.Context, id, userID string) error {
	if err := u.repo.Delete(ctx, id, userID); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}
