package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/gin-gonic/gin"
)

type noteUsecaser interface {
	Create(ctx context.Context, userID, title, content string) (*domain.Note, error)
	List(ctx context.Context, userID string) ([]*domain.Note, error)
	Get(ctx context.Context, id, userID string) (*domain.Note, error)
	Update(ctx context.Context, id, userID, title, content string) (*domain.Note, error)
	Delete(ctx context.Context, id, userID string) error
}

type NoteHandler struct {
	noteUsecase noteUsecaser
	logger      *slog.Logger
}

func NewNoteHandler(noteUsecase noteUsecaser, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{noteUsecase: noteUsecase, logger: logger.With("component", "note_handler")}
}

type noteRequest struct {
	Title   string `json:"title"   binding:"required"`
	Content string `json:"content" binding:"required"`
}

type noteResponse struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toNoteResponse(n *domain.Note) noteResponse {
	return noteResponse{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// GET /notes
func (h *NoteHandler) List(c *gin.Context) {
	notes, err := h.noteUsecase.List(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		h.internal(c, "list notes", err)
		return
	}

	resp := make([]noteResponse, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, toNoteResponse(n))
	}
	c.JSON(http.StatusOK, resp)
}

// POST /notes
func (h *NoteHandler) Create(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and content are required"})
		return
	}

	note, err := h.noteUsecase.Create(c.Request.Context(), c.GetString("userID"), req.Title, req.Content)
	if err != nil {
		h.noteError(c, "create note", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Note created successfully", "note": toNoteResponse(note)})
}

// GET /notes/:id
func (h *NoteHandler) GetByID(c *gin.Context) {
	note, err := h.noteUsecase.Get(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		h.noteError(c, "get note", err)
		return
	}
	c.JSON(http.StatusOK, toNoteResponse(note))
}

// PUT /notes/:id
func (h *NoteHandler) Update(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and content are required"})
		return
	}

	note, err := h.noteUsecase.Update(c.Request.Context(), c.Param("id"), c.GetString("userID"), req.Title, req.Content)
	if err != nil {
		h.noteError(c, "update note", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Note updated successfully", "note": toNoteResponse(note)})
}

// DELETE /notes/:id
func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.noteUsecase.Delete(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		h.noteError(c, "delete note", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Note deleted successfully"})
}

func (h *NoteHandler) noteError(c *gin.Context, op string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
	case errors.Is(err, domain.ErrNoteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errNoteNotFound})
	default:
		h.internal(c, op, err)
	}
}

func (h *NoteHandler) internal(c *gin.Context, op string, err error) {
	h.logger.ErrorContext(c.Request.Context(), op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
}
