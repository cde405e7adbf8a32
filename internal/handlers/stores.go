package handlers

import (
	"context"
	"mime/multipart"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/example/unimart/internal/models"
)

// UserStore is the subset of the users store the auth handlers need.
// Declared here so handler tests can substitute fakes.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByEmailOrStudentID(ctx context.Context, email, studentID string) (*models.User, error)
	ProfileFieldsTaken(ctx context.Context, studentID, contactNumber string, exclude bson.ObjectID) (bool, error)
	MarkVerified(ctx context.Context, id bson.ObjectID) error
	SetOTP(ctx context.Context, id bson.ObjectID, otp string, expires time.Time) error
	CompleteProfile(ctx context.Context, id bson.ObjectID, studentID, contactNumber, avatar string) error
	SetAvatar(ctx context.Context, id bson.ObjectID, url string) error
	SetLastLogout(ctx context.Context, id bson.ObjectID, at time.Time) error
	FindBySocialID(ctx context.Context, providerField, providerID string) (*models.User, error)
	LinkSocialID(ctx context.Context, id bson.ObjectID, providerField, providerID string) error
}

// Mailer delivers one-time codes.
type Mailer interface {
	SendOTP(to, code string) error
}

// Uploader stores uploaded images and returns durable URLs.
type Uploader interface {
	UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error)
	UploadImages(ctx context.Context, files []*multipart.FileHeader, max int) ([]string, error)
}
