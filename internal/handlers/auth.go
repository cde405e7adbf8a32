package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/example/unimart/internal/config"
	"github.com/example/unimart/internal/data"
	"github.com/example/unimart/internal/middleware"
	"github.com/example/unimart/internal/models"
	"github.com/example/unimart/internal/normalize"
	"github.com/example/unimart/internal/utils"
)

const otpValidity = 5 * time.Minute

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	users    UserStore
	mail     Mailer
	storage  Uploader
	sessions *session.Store
	cfg      *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users UserStore, mail Mailer, storage Uploader, sessions *session.Store, cfg *config.Config) *AuthHandler {
	return &AuthHandler{users: users, mail: mail, storage: storage, sessions: sessions, cfg: cfg}
}

type registerRequest struct {
	Name          string `json:"name" form:"name"`
	Email         string `json:"email" form:"email"`
	Password      string `json:"password" form:"password"`
	StudentID     string `json:"student_id" form:"student_id"`
	ContactNumber string `json:"contact_number" form:"contact_number"`
}

// Register creates a new unverified account and dispatches its OTP.
// The user record survives a failed mail delivery; the response tells
// the client to fall back to resend instead of rolling back.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = normalize.Email(req.Email)

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}
	if !utils.ValidInstitutionalEmail(req.Email, h.cfg.EmailDomain) {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("registration restricted to @%s emails only", h.cfg.EmailDomain))
	}
	if !utils.ValidStudentID(req.StudentID) {
		return fiber.NewError(fiber.StatusBadRequest, "student ID must be exactly 9 digits")
	}
	if !utils.ValidContactNumber(req.ContactNumber) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid contact number")
	}

	existing, err := h.users.FindByEmailOrStudentID(c.Context(), req.Email, req.StudentID)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		return err
	}
	if existing != nil {
		msg := "user already exists"
		if existing.Email == req.Email {
			msg = "email already registered"
		} else if existing.StudentID == req.StudentID {
			msg = "student ID already registered"
		}
		return fiber.NewError(fiber.StatusConflict, msg)
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	avatar := models.DefaultAvatar(req.Name)
	if file, err := c.FormFile("avatar"); err == nil && file != nil {
		url, err := h.storage.UploadImage(c.Context(), file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "image upload failed: "+err.Error())
		}
		avatar = url
	}

	otp, err := generateOTP()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate verification code")
	}

	user := &models.User{
		Name:          req.Name,
		Email:         req.Email,
		StudentID:     req.StudentID,
		ContactNumber: req.ContactNumber,
		Password:      passwordHash,
		Avatar:        avatar,
		IsVerified:    false,
		OTP:           otp,
		OTPExpires:    time.Now().Add(otpValidity),
	}

	if err := h.users.Create(c.Context(), user); err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			return fiber.NewError(fiber.StatusConflict, "user already exists")
		}
		return err
	}

	delivery := "sent"
	if err := h.mail.SendOTP(user.Email, otp); err != nil {
		// The account is already persisted; a resend recovers the code.
		log.Printf("OTP delivery to %s failed: %v", user.Email, err)
		delivery = "failed"
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"email":    user.Email,
		"next":     "verify",
		"delivery": delivery,
	})
}

type verifyRequest struct {
	Email string `json:"email" form:"email"`
	OTP   string `json:"otp" form:"otp"`
}

// Verify checks the submitted OTP, marks the account verified and opens
// the session.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.users.FindByEmail(c.Context(), normalize.Email(req.Email))
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	if user.IsVerified {
		return c.JSON(fiber.Map{"success": true, "next": "login"})
	}

	if req.OTP == "" || user.OTP != req.OTP {
		return fiber.NewError(fiber.StatusBadRequest, "invalid verification code")
	}

	if time.Now().After(user.OTPExpires) {
		return fiber.NewError(fiber.StatusBadRequest, "verification code expired")
	}

	if err := h.users.MarkVerified(c.Context(), user.ID); err != nil {
		return err
	}

	if err := h.issueSession(c, user); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"next":    nextStep(user),
	})
}

type resendRequest struct {
	Email string `json:"email" form:"email"`
}

// Resend regenerates the OTP for an unverified account and re-sends it.
func (h *AuthHandler) Resend(c *fiber.Ctx) error {
	var req resendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.users.FindByEmail(c.Context(), normalize.Email(req.Email))
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	if user.IsVerified {
		return c.JSON(fiber.Map{"success": true, "next": "login"})
	}

	otp, err := generateOTP()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate verification code")
	}

	if err := h.users.SetOTP(c.Context(), user.ID, otp, time.Now().Add(otpValidity)); err != nil {
		return err
	}

	delivery := "sent"
	if err := h.mail.SendOTP(user.Email, otp); err != nil {
		log.Printf("OTP delivery to %s failed: %v", user.Email, err)
		delivery = "failed"
	}

	return c.JSON(fiber.Map{"success": true, "delivery": delivery})
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Login authenticates an existing user by email and password.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "please provide an email and password")
	}

	user, err := h.users.FindByEmail(c.Context(), normalize.Email(req.Email))
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	if user.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "please login using your social account")
	}

	if !utils.CheckPassword(user.Password, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	if !user.IsVerified {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "account not verified",
			"email":   user.Email,
			"next":    "verify",
		})
	}

	if err := h.issueSession(c, user); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":     user.ID,
			"name":   user.Name,
			"email":  user.Email,
			"avatar": user.Avatar,
		},
		"next": nextStep(user),
	})
}

// Logout tears down both session artifacts. Every step is best-effort
// and independent: a failed timestamp write or session destroy never
// stops the cookie clearing that follows it.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := c.Cookies("token"); token != "" {
		if id, err := utils.ParseTokenAllowExpired(h.cfg.JWTSecret, token); err == nil {
			if err := h.users.SetLastLogout(c.Context(), id, time.Now()); err != nil {
				log.Printf("logout: failed to record last logout: %v", err)
			}
		}
	}

	h.clearCookie(c, "token")

	if sess, err := h.sessions.Get(c); err == nil {
		if err := sess.Destroy(); err != nil {
			log.Printf("logout: failed to destroy session: %v", err)
		}
	}

	h.clearCookie(c, "session_id")

	return c.JSON(fiber.Map{"success": true})
}

type completeProfileRequest struct {
	StudentID     string `json:"student_id" form:"student_id"`
	ContactNumber string `json:"contact_number" form:"contact_number"`
}

// CompleteProfile collects the student ID and contact number missing
// from social-login accounts, then reissues the session token.
func (h *AuthHandler) CompleteProfile(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	var req completeProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if !utils.ValidStudentID(req.StudentID) {
		return fiber.NewError(fiber.StatusBadRequest, "student ID must be exactly 9 digits")
	}
	if !utils.ValidContactNumber(req.ContactNumber) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid contact number")
	}

	taken, err := h.users.ProfileFieldsTaken(c.Context(), req.StudentID, req.ContactNumber, user.ID)
	if err != nil {
		return err
	}
	if taken {
		return fiber.NewError(fiber.StatusConflict, "student ID or contact number already in use")
	}

	avatar := ""
	if file, err := c.FormFile("avatar"); err == nil && file != nil {
		url, err := h.storage.UploadImage(c.Context(), file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "image upload failed: "+err.Error())
		}
		avatar = url
	}

	if err := h.users.CompleteProfile(c.Context(), user.ID, req.StudentID, req.ContactNumber, avatar); err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			return fiber.NewError(fiber.StatusConflict, "student ID or contact number already in use")
		}
		return err
	}

	user.StudentID = req.StudentID
	user.ContactNumber = req.ContactNumber
	user.IsVerified = true

	if err := h.issueSession(c, user); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "next": "dashboard"})
}

// issueSession produces both authentication artifacts in one place: the
// signed token cookie and the server-side session. Password logins, OTP
// verification and social callbacks all go through here.
func (h *AuthHandler) issueSession(c *fiber.Ctx, user *models.User) error {
	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	sess, err := h.sessions.Get(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to open session")
	}
	sess.Set(middleware.SessionUserKey, user.ID.Hex())
	if err := sess.Save(); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save session")
	}

	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.TokenExpires.Seconds()),
		HTTPOnly: true,
		Secure:   h.cfg.Production(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

func (h *AuthHandler) clearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.cfg.Production(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// nextStep routes freshly authenticated users: social accounts missing
// registration fields go to profile completion first.
func nextStep(user *models.User) string {
	if !user.ProfileComplete() {
		return "complete-profile"
	}
	return "dashboard"
}

func generateOTP() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
