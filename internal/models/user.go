package models

import (
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User represents a marketplace account. Password is empty for accounts
// created through social login; OTP and OTPExpires are transient and
// unset once verification succeeds.
type User struct {
	ID            bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string        `bson:"name" json:"name"`
	Email         string        `bson:"email" json:"email"`
	StudentID     string        `bson:"student_id,omitempty" json:"student_id,omitempty"`
	ContactNumber string        `bson:"contact_number,omitempty" json:"contact_number,omitempty"`
	Password      string        `bson:"password,omitempty" json:"-"`
	GoogleID      string        `bson:"google_id,omitempty" json:"-"`
	GithubID      string        `bson:"github_id,omitempty" json:"-"`
	IsAdmin       bool          `bson:"is_admin" json:"is_admin"`
	Avatar        string        `bson:"avatar" json:"avatar"`
	IsVerified    bool          `bson:"is_verified" json:"is_verified"`
	OTP           string        `bson:"otp,omitempty" json:"-"`
	OTPExpires    time.Time     `bson:"otp_expires,omitempty" json:"-"`
	CreatedAt     time.Time     `bson:"created_at" json:"created_at"`
	LastLogout    time.Time     `bson:"last_logout,omitempty" json:"-"`
}

// ProfileComplete reports whether the account carries the fields collected
// at registration. Social-login users land without them and are routed to
// profile completion.
func (u *User) ProfileComplete() bool {
	return u.StudentID != "" && u.ContactNumber != ""
}

// DefaultAvatar returns a generated placeholder image URL for the name.
func DefaultAvatar(name string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=0b0e11&color=fff&size=128", url.QueryEscape(name))
}
