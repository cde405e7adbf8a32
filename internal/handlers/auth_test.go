package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/example/unimart/internal/config"
	"github.com/example/unimart/internal/data"
	"github.com/example/unimart/internal/models"
	"github.com/example/unimart/internal/utils"
)

type fakeUserStore struct {
	users       map[string]*models.User
	createCalls int
	lastLogouts map[string]time.Time
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:       make(map[string]*models.User),
		lastLogouts: make(map[string]time.Time),
	}
}

func (s *fakeUserStore) Create(_ context.Context, user *models.User) error {
	s.createCalls++
	if _, ok := s.users[user.Email]; ok {
		return data.ErrDuplicate
	}
	user.ID = bson.NewObjectID()
	s.users[user.Email] = user
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, data.ErrNotFound
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := s.users[email]; ok {
		return u, nil
	}
	return nil, data.ErrNotFound
}

func (s *fakeUserStore) FindByEmailOrStudentID(_ context.Context, email, studentID string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email || (studentID != "" && u.StudentID == studentID) {
			return u, nil
		}
	}
	return nil, data.ErrNotFound
}

func (s *fakeUserStore) ProfileFieldsTaken(_ context.Context, studentID, contactNumber string, exclude bson.ObjectID) (bool, error) {
	for _, u := range s.users {
		if u.ID == exclude {
			continue
		}
		if u.StudentID == studentID || u.ContactNumber == contactNumber {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) MarkVerified(_ context.Context, id bson.ObjectID) error {
	for _, u := range s.users {
		if u.ID == id {
			u.IsVerified = true
			u.OTP = ""
			return nil
		}
	}
	return data.ErrNotFound
}

func (s *fakeUserStore) SetOTP(_ context.Context, id bson.ObjectID, otp string, expires time.Time) error {
	for _, u := range s.users {
		if u.ID == id {
			u.OTP = otp
			u.OTPExpires = expires
			return nil
		}
	}
	return data.ErrNotFound
}

func (s *fakeUserStore) CompleteProfile(_ context.Context, id bson.ObjectID, studentID, contactNumber, avatar string) error {
	for _, u := range s.users {
		if u.ID == id {
			u.StudentID = studentID
			u.ContactNumber = contactNumber
			if avatar != "" {
				u.Avatar = avatar
			}
			u.IsVerified = true
			return nil
		}
	}
	return data.ErrNotFound
}

func (s *fakeUserStore) SetAvatar(_ context.Context, id bson.ObjectID, url string) error {
	for _, u := range s.users {
		if u.ID == id {
			u.Avatar = url
			return nil
		}
	}
	return data.ErrNotFound
}

func (s *fakeUserStore) SetLastLogout(_ context.Context, id bson.ObjectID, at time.Time) error {
	s.lastLogouts[id.Hex()] = at
	return nil
}

func (s *fakeUserStore) FindBySocialID(_ context.Context, providerField, providerID string) (*models.User, error) {
	for _, u := range s.users {
		switch providerField {
		case "google_id":
			if u.GoogleID == providerID {
				return u, nil
			}
		case "github_id":
			if u.GithubID == providerID {
				return u, nil
			}
		}
	}
	return nil, data.ErrNotFound
}

func (s *fakeUserStore) LinkSocialID(_ context.Context, id bson.ObjectID, providerField, providerID string) error {
	for _, u := range s.users {
		if u.ID == id {
			if providerField == "google_id" {
				u.GoogleID = providerID
			} else {
				u.GithubID = providerID
			}
			return nil
		}
	}
	return data.ErrNotFound
}

type fakeMailer struct {
	sent []string
	fail bool
}

func (m *fakeMailer) SendOTP(to, code string) error {
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, to)
	return nil
}

type fakeUploader struct{}

func (fakeUploader) UploadImage(context.Context, *multipart.FileHeader) (string, error) {
	return "https://images.example/fake.jpg", nil
}

func (fakeUploader) UploadImages(context.Context, []*multipart.FileHeader, int) ([]string, error) {
	return []string{"https://images.example/fake.jpg"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:    "test-secret",
		TokenExpires: time.Hour,
		EmailDomain:  "iut-dhaka.edu",
	}
}

func newAuthApp(store UserStore, mail Mailer) (*fiber.App, *AuthHandler) {
	cfg := testConfig()
	sessions := session.New()
	h := NewAuthHandler(store, mail, fakeUploader{}, sessions, cfg)

	app := fiber.New()
	app.Post("/api/auth/register", h.Register)
	app.Post("/api/auth/verify", h.Verify)
	app.Post("/api/auth/resend", h.Resend)
	app.Post("/api/auth/login", h.Login)
	app.Post("/api/auth/logout", h.Logout)
	return app, h
}

func postJSON(t *testing.T, app *fiber.App, path string, body map[string]string) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestRegister_Success(t *testing.T) {
	store := newFakeUserStore()
	mail := &fakeMailer{}
	app, _ := newAuthApp(store, mail)

	resp := postJSON(t, app, "/api/auth/register", map[string]string{
		"name":           "Rahim Uddin",
		"email":          "rahim@iut-dhaka.edu",
		"password":       "secret123",
		"student_id":     "190041234",
		"contact_number": "01712345678",
	})

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "verify", body["next"])
	assert.Equal(t, "sent", body["delivery"])

	user, ok := store.users["rahim@iut-dhaka.edu"]
	require.True(t, ok)
	assert.False(t, user.IsVerified)
	assert.Len(t, user.OTP, 6)
	assert.NotEqual(t, "secret123", user.Password, "password must be stored hashed")
	assert.NotEmpty(t, user.Avatar)
	assert.Equal(t, []string{"rahim@iut-dhaka.edu"}, mail.sent)
}

func TestRegister_RejectsForeignDomain(t *testing.T) {
	store := newFakeUserStore()
	app, _ := newAuthApp(store, &fakeMailer{})

	resp := postJSON(t, app, "/api/auth/register", map[string]string{
		"name":           "Outsider",
		"email":          "someone@gmail.com",
		"password":       "secret123",
		"student_id":     "190041234",
		"contact_number": "01712345678",
	})

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, store.createCalls, "no record may be created for a rejected domain")
}

func TestRegister_RejectsBadStudentID(t *testing.T) {
	store := newFakeUserStore()
	app, _ := newAuthApp(store, &fakeMailer{})

	for _, id := range []string{"12345", "19004123456", "19004abcd"} {
		resp := postJSON(t, app, "/api/auth/register", map[string]string{
			"name":           "Rahim",
			"email":          "rahim@iut-dhaka.edu",
			"password":       "secret123",
			"student_id":     id,
			"contact_number": "01712345678",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "student_id %q", id)
	}
	assert.Zero(t, store.createCalls)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	app, _ := newAuthApp(store, &fakeMailer{})

	body := map[string]string{
		"name":           "Rahim",
		"email":          "rahim@iut-dhaka.edu",
		"password":       "secret123",
		"student_id":     "190041234",
		"contact_number": "01712345678",
	}
	resp := postJSON(t, app, "/api/auth/register", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/api/auth/register", body)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestRegister_MailFailureKeepsAccount(t *testing.T) {
	store := newFakeUserStore()
	app, _ := newAuthApp(store, &fakeMailer{fail: true})

	resp := postJSON(t, app, "/api/auth/register", map[string]string{
		"name":           "Rahim",
		"email":          "rahim@iut-dhaka.edu",
		"password":       "secret123",
		"student_id":     "190041234",
		"contact_number": "01712345678",
	})

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "failed", body["delivery"])
	assert.Contains(t, store.users, "rahim@iut-dhaka.edu")
}

func seedUnverified(store *fakeUserStore, otp string, expires time.Time) *models.User {
	hash, _ := utils.HashPassword("secret123")
	user := &models.User{
		ID:            bson.NewObjectID(),
		Name:          "Rahim",
		Email:         "rahim@iut-dhaka.edu",
		StudentID:     "190041234",
		ContactNumber: "01712345678",
		Password:      hash,
		OTP:           otp,
		OTPExpires:    expires,
	}
	store.users[user.Email] = user
	return user
}

func TestVerify_Success(t *testing.T) {
	store := newFakeUserStore()
	seedUnverified(store, "123456", time.Now().Add(otpValidity))
	app, _ := newAuthApp(store, &fakeMailer{})

	resp := postJSON(t, app, "/api/auth/verify", map[string]string{
		"email": "rahim@iut-dhaka.edu",
		"otp":   "123456",
	})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "dashboard", body["next"])
	assert.True(t, store.users["rahim@iut-dhaka.edu"].IsVerified)

	var names []string
	for _, c := range resp.Cookies() {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "token")
	assert.Contains(t, names, "session_id")
}

func TestVerify_WrongCode(t *testing.T) {
	store := newFakeUserStore()
	seedUnverified(store, "123456", time.Now().Add(otpValidity))
	app, _ := newAuthApp(store, &fakeMailer{})

	resp := postJSON(t, app, "/api/auth/verify", map[string]string{
		"email": "rahim@iut-dhaka.edu",
		"otp":   "000000",
	})

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.False(t, store.users["rahim@iut-dhaka.edu"].IsVerified)
}

func TestVerify_ExpiredCodeRejectedEvenWhenMatching(t *testing.T) {
	store := newFakeUserStore()
	seedUnverified(store, "123456", time.Now().Add(-time.Minute))
	app, _ := newAuthApp(store, &fakeMailer{})

	resp := postJSON(t, app, "/api/auth/verify", map[string]string{
		"email": "rahim@iut-dhaka.edu",
		"otp":   "123456",
	})

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.False(t, store.users["rahim@iut-dhaka.edu"].IsVerified)
}

func TestVerify_AlreadyVerified(t *testing.T) {
	store := newFakeUserStore()
	user := seedUnverified(store, "", time.Time{})
	user.IsVerified = true
	app, _ := newAuthApp(store, &fakeMailer{})

	resp := postJSON(t, app, "/api/auth/verify", map[string]string{
		"email": "rahim@iut-dhaka.edu",
		"otp":   "999999",
	})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "login", body["next"])
}

func TestResend_RotatesCode(t *testing.T) {
	store := newFakeUserStore()
	seedUnverified(store, "123456", time.Now().Add(-time.Minute))
	mail := &fakeMailer{}
	app, _ := newAuthApp(store, mail)

	resp := postJSON(t, app, "/api/auth/resend", map[string]string{
		"email": "rahim@iut-dhaka.edu",
	})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	user := store.users["rahim@iut-dhaka.edu"]
	assert.NotEqual(t, "123456", user.OTP)
	assert.True(t, user.OTPExpires.After(time.Now()))
	assert.Len(t, mail.sent, 1)
}

func TestLogin_Success(t *testing.T) {
	store := newFakeUserStore()
	user := seedUnverified(store, "", time.Time{})
	user.IsVerified = true
	app, _ := newAuthApp(store, &fakeMailer{})

	resp := postJSON(t, app, "/api/auth/login", map[string]string{
		"email":    "Rahim@IUT-Dhaka.edu",
		"password": "secret123",
	})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "dashboard", body["next"])

	var names []string
	for _, c := range resp.Cookies() {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "token")
	assert.Contains(t, names, "session_id")
}

func TestLogin_InvalidPassword(t *testing.T) {
	store := newFakeUserStore()
	user := seedUnverified(store, "", time.Time{})
	user.IsVerified = true
	app, _ := newAuthApp(store, &fakeMailer{})

	resp := postJSON(t, app, "/api/auth/login", map[string]string{
		"email":    "rahim@iut-dhaka.edu",
		"password": "wrong",
	})

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_UnknownEmail(t *testing.T) {
	app, _ := newAuthApp(newFakeUserStore(), &fakeMailer{})

	resp := postJSON(t, app, "/api/auth/login", map[string]string{
		"email":    "nobody@iut-dhaka.edu",
		"password": "secret123",
	})

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_SocialOnlyAccount(t *testing.T) {
	store := newFakeUserStore()
	store.users["social@iut-dhaka.edu"] = &models.User{
		ID:         bson.NewObjectID(),
		Name:       "Social",
		Email:      "social@iut-dhaka.edu",
		GoogleID:   "g-123",
		IsVerified: true,
	}
	app, _ := newAuthApp(store, &fakeMailer{})

	resp := postJSON(t, app, "/api/auth/login", map[string]string{
		"email":    "social@iut-dhaka.edu",
		"password": "anything",
	})

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogin_UnverifiedAccount(t *testing.T) {
	store := newFakeUserStore()
	seedUnverified(store, "123456", time.Now().Add(otpValidity))
	app, _ := newAuthApp(store, &fakeMailer{})

	resp := postJSON(t, app, "/api/auth/login", map[string]string{
		"email":    "rahim@iut-dhaka.edu",
		"password": "secret123",
	})

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "verify", body["next"])
}

func TestLogout_IdempotentAndClearsCookies(t *testing.T) {
	store := newFakeUserStore()
	user := seedUnverified(store, "", time.Time{})
	user.IsVerified = true
	app, _ := newAuthApp(store, &fakeMailer{})

	cfg := testConfig()
	token, err := utils.GenerateToken(cfg.JWTSecret, user.ID, time.Hour)
	require.NoError(t, err)

	logout := func() *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := logout()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	cleared := map[string]bool{}
	for _, c := range resp.Cookies() {
		if c.Value == "" || c.Expires.Before(time.Now()) {
			cleared[c.Name] = true
		}
	}
	assert.True(t, cleared["token"])
	assert.True(t, cleared["session_id"])

	_, recorded := store.lastLogouts[user.ID.Hex()]
	assert.True(t, recorded, "logout must record the timestamp")

	// A second logout without live state still succeeds.
	resp = logout()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLogout_ForgedTokenDoesNotInvalidateSessions(t *testing.T) {
	store := newFakeUserStore()
	victim := seedUnverified(store, "", time.Time{})
	victim.IsVerified = true
	app, _ := newAuthApp(store, &fakeMailer{})

	// Signed with a key the server never used; naming the victim's ID
	// must not write their last-logout timestamp.
	forged, err := utils.GenerateToken("attacker-secret", victim.ID, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: forged})
	resp, err := app.Test(req)
	require.NoError(t, err)

	// Cookie clearing is still unconditional.
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, recorded := store.lastLogouts[victim.ID.Hex()]
	assert.False(t, recorded, "a forged token must not force a logout")
}
