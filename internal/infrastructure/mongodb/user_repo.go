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

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Name         string             `bson:"name"`
	Avatar       string             `bson:"avatar,omitempty"`
	IsVerified   bool               `bson:"isVerified"`
	AuthProvider string             `bson:"authProvider"`
	GoogleID     *string            `bson:"googleId,omitempty"`
	OTP          *string            `bson:"otp,omitempty"`
	OTPExpires   *time.Time         `bson:"otpExpires,omitempty"`
	LastLogin    *time.Time         `bson:"lastLogin,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		DisplayName:  d.Name,
		AvatarURL:    d.Avatar,
		IsVerified:   d.IsVerified,
		AuthProvider: domain.AuthProvider(d.AuthProvider),
		ExternalID:   d.GoogleID,
		OTPCodeHash:  d.OTP,
		OTPExpiresAt: d.OTPExpires,
		LastLoginAt:  d.LastLogin,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

var clearChallenge = bson.M{"otp": "", "otpExpires": ""}

type UserRepository struct {
	users func(ctx context.Context) (*mongo.Collection, error)
}

func NewUserRepository(db *Connector) *UserRepository {
	return &UserRepository{users: func(ctx context.Context) (*mongo.Collection, error) {
		return db.Collection(ctx, usersCollection)
	}}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindVerifiedByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email, "isVerified": true})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	coll, err := r.users(ctx)
	if err != nil {
		return nil, err
	}
	var doc userDoc
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapUserErr(err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) UpsertPending(ctx context.Context, p domain.PendingUser) (*domain.User, error) {
	coll, err := r.users(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	set := bson.M{
		"name":       p.DisplayName,
		"otp":        p.CodeHash,
		"otpExpires": p.ExpiresAt,
		"updatedAt":  now,
	}
	onInsert := bson.M{"createdAt": now}
	if p.ExternalID != nil {
		set["googleId"] = *p.ExternalID
		set["authProvider"] = string(p.Provider())
	} else {
		onInsert["authProvider"] = string(p.Provider())
	}

	// A verified owner falls outside the filter, so the upsert collides with
	// the unique email index instead of overwriting it.
	filter := bson.M{"email": p.Email, "isVerified": false}
	update := bson.M{"$set": set, "$setOnInsert": onInsert}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc userDoc
	err = coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// Either a verified owner exists or a concurrent first signup inserted
		// the pending document; only the retry can tell them apart.
		err = coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("upsert pending user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) SetChallenge(ctx context.Context, userID, codeHash string, expiresAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	coll, err := r.users(ctx)
	if err != nil {
		return err
	}
	res, err := coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"otp":        codeHash,
		"otpExpires": expiresAt,
		"updatedAt":  time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("set challenge: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ClearChallenge(ctx context.Context, userID, codeHash string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	coll, err := r.users(ctx)
	if err != nil {
		return err
	}
	_, err = coll.UpdateOne(ctx,
		bson.M{"_id": oid, "otp": codeHash},
		bson.M{"$unset": clearChallenge, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("clear challenge: %w", err)
	}
	return nil
}

func (r *UserRepository) ConsumeChallenge(ctx context.Context, email, codeHash string, now time.Time) (*domain.User, error) {
	coll, err := r.users(ctx)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"email":      email,
		"otp":        codeHash,
		"otpExpires": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"isVerified": true, "lastLogin": now, "updatedAt": now},
		"$unset": clearChallenge,
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	if err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOTPInvalid
		}
		return nil, fmt.Errorf("consume challenge: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) LinkOAuth(ctx context.Context, id domain.OAuthIdentity) (*domain.User, error) {
	coll, err := r.users(ctx)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"googleId":     id.ExternalID,
		"authProvider": string(id.Provider),
		"isVerified":   true,
		"lastLogin":    id.LoginAt,
		"updatedAt":    id.LoginAt,
	}
	if id.AvatarURL != "" {
		set["avatar"] = id.AvatarURL
	}
	update := bson.M{
		"$set":         set,
		"$unset":       clearChallenge,
		"$setOnInsert": bson.M{"name": id.DisplayName, "createdAt": id.LoginAt},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc userDoc
	err = coll.FindOneAndUpdate(ctx, bson.M{"email": id.Email}, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// Lost an insert race with a concurrent first login; the document exists now.
		err = coll.FindOneAndUpdate(ctx, bson.M{"email": id.Email}, update, opts).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("link oauth identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) PurgeExpiredChallenges(ctx context.Context, now time.Time) (int, error) {
	coll, err := r.users(ctx)
	if err != nil {
		return 0, err
	}
	res, err := coll.UpdateMany(ctx,
		bson.M{"otpExpires": bson.M{"$lte": now}},
		bson.M{"$unset": clearChallenge, "$set": bson.M{"updatedAt": now}},
	)
	if err != nil {
		return 0, fmt.Errorf("purge expired challenges: %w", err)
	}
	return int(res.ModifiedCount), nil
}

func mapUserErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrUserNotFound
	}
	return fmt.Errorf("find user: %w", err)
}
