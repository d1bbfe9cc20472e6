package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type noteDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"userId"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *noteDoc) toDomain() *domain.Note {
	return &domain.Note{
		ID:        d.ID.Hex(),
		UserID:    d.UserID.Hex(),
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type NoteRepository struct {
	db *Connector
}

func NewNoteRepository(db *Connector) *NoteRepository {
	return &NoteRepository{db: db}
}

// ownerFilter returns the (id, owner) filter, or false if either id is malformed.
func ownerFilter(id, userID string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "userId": uid}, true
}

func (r *NoteRepository) Create(ctx context.Context, note *domain.Note) (*domain.Note, error) {
	uid, err := primitive.ObjectIDFromHex(note.UserID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	coll, err := r.db.Collection(ctx, notesCollection)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := noteDoc{
		ID:        primitive.NewObjectID(),
		UserID:    uid,
		Title:     note.Title,
		Content:   note.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *NoteRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Note, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return []*domain.Note{}, nil
	}
	coll, err := r.db.Collection(ctx, notesCollection)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := coll.Find(ctx, bson.M{"userId": uid}, opts)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer cur.Close(ctx)

	notes := make([]*domain.Note, 0)
	for cur.Next(ctx) {
		var doc noteDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode note: %w", err)
		}
		notes = append(notes, doc.toDomain())
	}
	return notes, cur.Err()
}

func (r *NoteRepository) GetByID(ctx context.Context, id, userID string) (*domain.Note, error) {
	filter, ok := ownerFilter(id, userID)
	if !ok {
		return nil, domain.ErrNoteNotFound
	}
	coll, err := r.db.Collection(ctx, notesCollection)
	if err != nil {
		return nil, err
	}
	var doc noteDoc
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapNoteErr(err)
	}
	return doc.toDomain(), nil
}

func (r *NoteRepository) Update(ctx context.Context, id, userID, title, content string) (*domain.Note, error) {
	filter, ok := ownerFilter(id, userID)
	if !ok {
		return nil, domain.ErrNoteNotFound
	}
	coll, err := r.db.Collection(ctx, notesCollection)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{"title": title, "content": content, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc noteDoc
	if err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, mapNoteErr(err)
	}
	return doc.toDomain(), nil
}

func (r *NoteRepository) Delete(ctx context.Context, id, userID string) error {
	filter, ok := ownerFilter(id, userID)
	if !ok {
		return domain.ErrNoteNotFound
	}
	coll, err := r.db.Collection(ctx, notesCollection)
	if err != nil {
		return err
	}
	res, err := coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

func mapNoteErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNoteNotFound
	}
	return fmt.Errorf("find note: %w", err)
}
