package data

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/example/unimart/internal/models"
)

// UsersStore performs user collection operations.
type UsersStore struct {
	coll *mongo.Collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll}
}

// Create inserts a new user document and populates its ID.
func (s *UsersStore) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	result, err := s.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	user.ID = result.InsertedID.(bson.ObjectID)
	return nil
}

// FindByID returns the user with the given ID.
func (s *UsersStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns the user with the given email.
func (s *UsersStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmailOrStudentID returns an existing user holding either
// identifier. Registration uses it to report which field collides.
func (s *UsersStore) FindByEmailOrStudentID(ctx context.Context, email, studentID string) (*models.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"student_id": studentID},
	}}

	var user models.User
	err := s.coll.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ProfileFieldsTaken reports whether another user already holds the
// student ID or contact number. The exclude ID skips the caller's own
// record so re-submitting unchanged values passes.
func (s *UsersStore) ProfileFieldsTaken(ctx context.Context, studentID, contactNumber string, exclude bson.ObjectID) (bool, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"student_id": studentID},
			bson.M{"contact_number": contactNumber},
		},
		"_id": bson.M{"$ne": exclude},
	}

	count, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkVerified flags the user verified and discards the one-time code.
func (s *UsersStore) MarkVerified(ctx context.Context, id bson.ObjectID) error {
	update := bson.M{
		"$set":   bson.M{"is_verified": true},
		"$unset": bson.M{"otp": "", "otp_expires": ""},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// SetOTP stores a fresh one-time code and its expiry on the user.
func (s *UsersStore) SetOTP(ctx context.Context, id bson.ObjectID, otp string, expires time.Time) error {
	update := bson.M{"$set": bson.M{"otp": otp, "otp_expires": expires}}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// CompleteProfile fills in the registration fields for a social-login
// account and marks it verified in the same write.
func (s *UsersStore) CompleteProfile(ctx context.Context, id bson.ObjectID, studentID, contactNumber, avatar string) error {
	set := bson.M{
		"student_id":     studentID,
		"contact_number": contactNumber,
		"is_verified":    true,
	}
	if avatar != "" {
		set["avatar"] = avatar
	}
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAvatar replaces the user's avatar URL.
func (s *UsersStore) SetAvatar(ctx context.Context, id bson.ObjectID, url string) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"avatar": url}})
	return err
}

// SetLastLogout records the logout timestamp used to invalidate tokens
// issued before it.
func (s *UsersStore) SetLastLogout(ctx context.Context, id bson.ObjectID, at time.Time) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_logout": at}})
	return err
}

// FindBySocialID returns the user linked to the given provider identity.
func (s *UsersStore) FindBySocialID(ctx context.Context, providerField, providerID string) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{providerField: providerID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// LinkSocialID attaches a provider identity to an existing account.
func (s *UsersStore) LinkSocialID(ctx context.Context, id bson.ObjectID, providerField, providerID string) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{providerField: providerID}})
	return err
}

// FindManyByIDs loads users for the given IDs, keyed by hex ID.
func (s *UsersStore) FindManyByIDs(ctx context.Context, ids []bson.ObjectID) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*models.User
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	for _, u := range results {
		users[u.ID.Hex()] = u
	}
	return users, nil
}
