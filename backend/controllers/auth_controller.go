package controllers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"lifeintheuk/backend/config"
	"lifeintheuk/backend/models"
	"lifeintheuk/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

const stateCookieName = "uk_oauth_state"

type AuthController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAuthController(db *gorm.DB, cfg *config.Config) *AuthController {
	return &AuthController{DB: db, Cfg: cfg}
}

func (ac *AuthController) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     ac.Cfg.GoogleClientID,
		ClientSecret: ac.Cfg.GoogleClientSecret,
		RedirectURL:  ac.Cfg.GoogleCallbackURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// GoogleLogin redirects to Google's consent screen. The state nonce is
// persisted in a short-lived cookie and checked on the way back.
func (ac *AuthController) GoogleLogin(c *fiber.Ctx) error {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not start login",
		})
	}
	state := hex.EncodeToString(buf)

	c.Cookie(&fiber.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})

	return c.Redirect(ac.oauthConfig().AuthCodeURL(state), fiber.StatusFound)
}

// GoogleCallback exchanges the authorization code, upserts the user and sets
// the session cookie before redirecting back to the client dashboard.
func (ac *AuthController) GoogleCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" || state != c.Cookies(stateCookieName) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid OAuth state",
		})
	}

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing authorization code",
		})
	}

	oauthCfg := ac.oauthConfig()
	token, err := oauthCfg.Exchange(c.Context(), code)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Could not exchange authorization code",
		})
	}

	profile, err := fetchGoogleProfile(oauthCfg, token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Could not fetch user profile",
		})
	}

	user, err := ac.upsertUser(profile)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save user",
		})
	}

	sessionToken, err := utils.GenerateSessionToken(user.ID, ac.Cfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create session",
		})
	}
	utils.SetSessionCookie(c, sessionToken)

	return c.Redirect(ac.Cfg.ClientURL+"/dashboard", fiber.StatusFound)
}

type googleProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func fetchGoogleProfile(cfg *oauth2.Config, token *oauth2.Token) (*googleProfile, error) {
	resp, err := cfg.Client(context.Background(), token).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		return nil, errors.New("userinfo request failed")
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (ac *AuthController) upsertUser(profile *googleProfile) (*models.User, error) {
	var user models.User
	err := ac.DB.Where("google_id = ?", profile.ID).First(&user).Error
	if err == nil {
		user.LastLogin = time.Now()
		if err := ac.DB.Save(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		GoogleID:  profile.ID,
		Email:     profile.Email,
		Name:      profile.Name,
		Picture:   profile.Picture,
		LastLogin: time.Now(),
	}
	if err := ac.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Check reports whether the request carries a valid session. Always 200; an
// anonymous caller is not an error here.
func (ac *AuthController) Check(c *fiber.Ctx) error {
	token := c.Cookies(utils.SessionCookieName)
	if token == "" {
		return c.JSON(fiber.Map{"authenticated": false})
	}

	userID, err := utils.ParseSessionToken(token, ac.Cfg)
	if err != nil {
		return c.JSON(fiber.Map{"authenticated": false})
	}

	var user models.User
	if err := ac.DB.First(&user, userID).Error; err != nil {
		return c.JSON(fiber.Map{"authenticated": false})
	}

	return c.JSON(fiber.Map{
		"authenticated": true,
		"user": fiber.Map{
			"id":      user.ID,
			"name":    user.Name,
			"email":   user.Email,
			"picture": user.Picture,
		},
	})
}

// Logout expires the session cookie.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	utils.ClearSessionCookie(c)
	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}
