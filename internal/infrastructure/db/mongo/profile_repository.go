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

	"github.com/aurora-advisory/advisory-api/internal/core/domain"
)

type ProfileRepository struct {
	coll *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{coll: db.Collection(collectionProfiles)}
}

type mongoProfile struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	UserID           string             `bson:"user_id"`
	FirstName        string             `bson:"first_name"`
	LastName         string             `bson:"last_name"`
	DateOfBirth      *string            `bson:"date_of_birth"`
	Phone            *string            `bson:"phone"`
	Income           *int64             `bson:"income"`
	MainGoal         *string            `bson:"main_goal"`
	TimeHorizonYears *int               `bson:"time_horizon_years"`
	RiskProfile      *string            `bson:"risk_profile"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

func (mp mongoProfile) toDomain() *domain.ClientProfile {
	p := &domain.ClientProfile{
		ID:               mp.ID.Hex(),
		UserID:           mp.UserID,
		FirstName:        mp.FirstName,
		LastName:         mp.LastName,
		DateOfBirth:      mp.DateOfBirth,
		Phone:            mp.Phone,
		Income:           mp.Income,
		MainGoal:         mp.MainGoal,
		TimeHorizonYears: mp.TimeHorizonYears,
		UpdatedAt:        mp.UpdatedAt.UTC(),
	}
	if mp.RiskProfile != nil {
		risk := domain.RiskProfile(*mp.RiskProfile)
		p.RiskProfile = &risk
	}
	return p
}

// profileFields returns every mutable field; nil pointers are written as null so an
// upsert fully replaces the previous values.
func profileFields(p *domain.ClientProfile) bson.M {
	var risk *string
	if p.RiskProfile != nil {
		v := string(*p.RiskProfile)
		risk = &v
	}
	return bson.M{
		"user_id":            p.UserID,
		"first_name":         p.FirstName,
		"last_name":          p.LastName,
		"date_of_birth":      p.DateOfBirth,
		"phone":              p.Phone,
		"income":             p.Income,
		"main_goal":          p.MainGoal,
		"time_horizon_years": p.TimeHorizonYears,
		"risk_profile":       risk,
		"updated_at":         p.UpdatedAt.UTC(),
	}
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*domain.ClientProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mp mongoProfile
	if err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&mp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return mp.toDomain(), nil
}

// Upsert relies on the unique user_id index, so concurrent first writes for
// the same user converge on one document.
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.ClientProfile) (*domain.ClientProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{"$set": profileFields(p)}

	var mp mongoProfile
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"user_id": p.UserID}, update, opts).Decode(&mp)
	if mongo.IsDuplicateKeyError(err) {
		// lost the insert race; the document exists now, so retry as a plain update
		err = r.coll.FindOneAndUpdate(ctx, bson.M{"user_id": p.UserID}, update, opts).Decode(&mp)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return mp.toDomain(), nil
}

func (r *ProfileRepository) CreateIfAbsent(ctx context.Context, p *domain.ClientProfile) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$setOnInsert": profileFields(p)}
	_, err := r.coll.UpdateOne(ctx, bson.M{"user_id": p.UserID}, update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}
