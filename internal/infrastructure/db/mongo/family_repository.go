package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/familycircle/circle-api/internal/core/domain"
)

const familiesCollection = "families"

type FamilyRepository struct {
	coll *mongo.Collection
}

func NewFamilyRepository(db *mongo.Database) *FamilyRepository {
	return &FamilyRepository{coll: db.Collection(familiesCollection)}
}

type familyDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Name       string             `bson:"name"`
	InviteCode string             `bson:"invite_code"`
	CreatedBy  string             `bson:"created_by"`
	CreatedAt  time.Time          `bson:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at"`
}

func (d familyDoc) toDomain() *domain.Family {
	return &domain.Family{
		ID:         d.ID.Hex(),
		Name:       d.Name,
		InviteCode: d.InviteCode,
		CreatedBy:  d.CreatedBy,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

// Create inserts the family. The invite code index is the only unique index
// besides _id, so a duplicate key means the code is taken.
func (r *FamilyRepository) Create(ctx context.Context, family *domain.Family) (*domain.Family, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	doc := familyDoc{
		ID:         primitive.NewObjectID(),
		Name:       family.Name,
		InviteCode: family.InviteCode,
		CreatedBy:  family.CreatedBy,
		CreatedAt:  family.CreatedAt,
		UpdatedAt:  family.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateInviteCode
		}
		return nil, fmt.Errorf("insert family: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *FamilyRepository) FindByID(ctx context.Context, id string) (*domain.Family, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *FamilyRepository) FindByInviteCode(ctx context.Context, code string) (*domain.Family, error) {
	return r.findOne(ctx, bson.M{"invite_code": code})
}

func (r *FamilyRepository) findOne(ctx context.Context, filter bson.M) (*domain.Family, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var doc familyDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find family: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *FamilyRepository) Update(ctx context.Context, id string, update domain.FamilyUpdate) (*domain.Family, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrFamilyNotFound
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	doc := bson.M{"$currentDate": bson.M{"updated_at": true}}
	if update.Name != nil {
		doc["$set"] = bson.M{"name": *update.Name}
	}

	var updated familyDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, doc,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrFamilyNotFound
		}
		return nil, fmt.Errorf("update family: %w", err)
	}
	return updated.toDomain(), nil
}

func (r *FamilyRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete family: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique invite code index.
func (r *FamilyRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "invite_code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
	}
	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
