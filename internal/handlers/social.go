package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/example/unimart/internal/config"
	"github.com/example/unimart/internal/data"
	"github.com/example/unimart/internal/models"
	"github.com/example/unimart/internal/normalize"
	"github.com/example/unimart/internal/utils"
)

const oauthStateKey = "oauth_state"

// SocialHandler runs the OAuth code flow for Google and GitHub logins.
// Accounts created here carry no password; profile completion collects
// the student ID and contact number afterwards.
type SocialHandler struct {
	users    UserStore
	auth     *AuthHandler
	sessions *session.Store
	cfg      *config.Config
}

// NewSocialHandler constructs a SocialHandler.
func NewSocialHandler(users UserStore, auth *AuthHandler, sessions *session.Store, cfg *config.Config) *SocialHandler {
	return &SocialHandler{users: users, auth: auth, sessions: sessions, cfg: cfg}
}

type socialProfile struct {
	providerID string
	field      string
	name       string
	email      string
	avatar     string
}

// Redirect starts the provider's authorization flow.
func (h *SocialHandler) Redirect(c *fiber.Ctx) error {
	conf, err := h.providerConfig(c.Params("provider"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate state")
	}
	state := hex.EncodeToString(stateBytes)

	sess, err := h.sessions.Get(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to open session")
	}
	sess.Set(oauthStateKey, state)
	if err := sess.Save(); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save session")
	}

	return c.Redirect(conf.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

// Callback exchanges the authorization code, resolves or creates the
// account and issues the usual dual session.
func (h *SocialHandler) Callback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	conf, err := h.providerConfig(provider)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	sess, err := h.sessions.Get(c)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to open session")
	}
	wantState, _ := sess.Get(oauthStateKey).(string)
	sess.Delete(oauthStateKey)
	_ = sess.Save()

	if wantState == "" || c.Query("state") != wantState {
		return fiber.NewError(fiber.StatusBadRequest, "invalid oauth state")
	}

	token, err := conf.Exchange(c.Context(), c.Query("code"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "code exchange failed")
	}

	profile, err := fetchProfile(c.Context(), conf, token, provider)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch profile: "+err.Error())
	}

	profile.email = normalize.Email(profile.email)
	if !utils.ValidInstitutionalEmail(profile.email, h.cfg.EmailDomain) {
		return fiber.NewError(fiber.StatusForbidden,
			fmt.Sprintf("registration restricted to @%s emails only", h.cfg.EmailDomain))
	}

	user, err := h.resolveUser(c, profile)
	if err != nil {
		return err
	}

	// Social identity proves email ownership, but the account only
	// counts as verified once the profile is complete.
	if user.ProfileComplete() && !user.IsVerified {
		if err := h.users.MarkVerified(c.Context(), user.ID); err != nil {
			return err
		}
		user.IsVerified = true
	}

	if err := h.auth.issueSession(c, user); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "next": nextStep(user)})
}

func (h *SocialHandler) resolveUser(c *fiber.Ctx, profile *socialProfile) (*models.User, error) {
	user, err := h.users.FindBySocialID(c.Context(), profile.field, profile.providerID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		return nil, err
	}

	// Link the provider to an existing account registered with the
	// same institutional email.
	user, err = h.users.FindByEmail(c.Context(), profile.email)
	if err == nil {
		if err := h.users.LinkSocialID(c.Context(), user.ID, profile.field, profile.providerID); err != nil {
			return nil, err
		}
		return user, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		return nil, err
	}

	avatar := profile.avatar
	if avatar == "" {
		avatar = models.DefaultAvatar(profile.name)
	}

	user = &models.User{
		Name:       profile.name,
		Email:      profile.email,
		Avatar:     avatar,
		IsVerified: false,
	}
	switch profile.field {
	case "google_id":
		user.GoogleID = profile.providerID
	case "github_id":
		user.GithubID = profile.providerID
	}

	if err := h.users.Create(c.Context(), user); err != nil {
		return nil, err
	}
	return user, nil
}

func (h *SocialHandler) providerConfig(provider string) (*oauth2.Config, error) {
	callback := fmt.Sprintf("%s/api/auth/%s/callback", h.cfg.OAuthCallbackBase, provider)

	switch provider {
	case "google":
		return &oauth2.Config{
			ClientID:     h.cfg.GoogleClientID,
			ClientSecret: h.cfg.GoogleClientSecret,
			RedirectURL:  callback,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		}, nil
	case "github":
		return &oauth2.Config{
			ClientID:     h.cfg.GithubClientID,
			ClientSecret: h.cfg.GithubClientSecret,
			RedirectURL:  callback,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

func fetchProfile(ctx context.Context, conf *oauth2.Config, token *oauth2.Token, provider string) (*socialProfile, error) {
	client := conf.Client(ctx, token)

	switch provider {
	case "google":
		return fetchGoogleProfile(client)
	case "github":
		return fetchGithubProfile(client)
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}

func fetchGoogleProfile(client *http.Client) (*socialProfile, error) {
	var info struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := getJSON(client, "https://www.googleapis.com/oauth2/v2/userinfo", &info); err != nil {
		return nil, err
	}

	return &socialProfile{
		providerID: info.ID,
		field:      "google_id",
		name:       info.Name,
		email:      info.Email,
		avatar:     info.Picture,
	}, nil
}

func fetchGithubProfile(client *http.Client) (*socialProfile, error) {
	var info struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(client, "https://api.github.com/user", &info); err != nil {
		return nil, err
	}

	email := info.Email
	if email == "" {
		// GitHub hides the address on the user resource when the
		// account keeps it private; the emails endpoint still lists it.
		var emails []struct {
			Email   string `json:"email"`
			Primary bool   `json:"primary"`
		}
		if err := getJSON(client, "https://api.github.com/user/emails", &emails); err != nil {
			return nil, err
		}
		for _, e := range emails {
			if e.Primary {
				email = e.Email
				break
			}
		}
	}

	name := info.Name
	if name == "" {
		name = info.Login
	}

	return &socialProfile{
		providerID: fmt.Sprintf("%d", info.ID),
		field:      "github_id",
		name:       name,
		email:      email,
		avatar:     info.AvatarURL,
	}, nil
}

func getJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
