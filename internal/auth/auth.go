package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shivemind/chasingCats-sub003/internal/config"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
	"github.com/shivemind/chasingCats-sub003/internal/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	DiscordAuthorizeEndpoint = "https://discord.com/api/oauth2/authorize"
	DiscordTokenEndpoint     = "https://discord.com/api/oauth2/token"
	DiscordUserAPI           = "https://discord.com/api/users/@me"
	DiscordUserGuildsAPI     = "https://discord.com/api/users/@me/guilds"

	CookieName    = "auth_token"
	TokenDuration = 24 * time.Hour
)

type AuthHandler struct {
	oauthConfig *oauth2.Config
	db          *gorm.DB
	cfg         *config.Config
	roles       RoleChecker
	log         *logger.Logger
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB, roles RoleChecker, log *logger.Logger) *AuthHandler {
	if roles == nil {
		roles = StaticRoleChecker{}
	}
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
			Scopes:       []string{"identify", "email", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  DiscordAuthorizeEndpoint,
				TokenURL: DiscordTokenEndpoint,
			},
		},
		db:    db,
		cfg:   cfg,
		roles: roles,
		log:   log.With("component", "auth"),
	}
}

type RedirectOutput struct {
	Status   int
	Location string `header:"Location"`
}

type SessionOutput struct {
	Status    int
	Location  string      `header:"Location"`
	SetCookie http.Cookie `header:"Set-Cookie"`
}

func (h *AuthHandler) HandleLogin(ctx context.Context, input *struct{}) (*RedirectOutput, error) {
	return &RedirectOutput{
		Status:   http.StatusTemporaryRedirect,
		Location: h.oauthConfig.AuthCodeURL("state", oauth2.AccessTypeOnline),
	}, nil
}

type CallbackInput struct {
	Code string `query:"code" required:"true" doc:"OAuth2 authorization code"`
}

type discordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

func (h *AuthHandler) HandleCallback(ctx context.Context, input *CallbackInput) (*SessionOutput, error) {
	token, err := h.oauthConfig.Exchange(ctx, input.Code)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to exchange token")
	}
	client := h.oauthConfig.Client(ctx, token)

	if h.cfg.DiscordGuildID != "" {
		member, err := isGuildMember(client, h.cfg.DiscordGuildID)
		if err != nil {
			h.log.Error("Guild lookup failed", "error", err)
			return nil, huma.Error502BadGateway("Failed to get user guilds")
		}
		if !member {
			return nil, huma.Error403Forbidden("Access denied: You are not a member of the required guild.")
		}
	}

	var du discordUser
	if err := getJSON(client, DiscordUserAPI, &du); err != nil {
		h.log.Error("Discord user lookup failed", "error", err)
		return nil, huma.Error502BadGateway("Failed to get user info")
	}

	user, err := h.upsertUser(ctx, du)
	if err != nil {
		h.log.Error("Failed to save user", "discord_id", du.ID, "error", err)
		return nil, huma.Error500InternalServerError("Failed to save user")
	}

	jwtToken, err := h.GenerateToken(user.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate token")
	}

	h.log.Info("User logged in", "user_id", user.ID)
	return &SessionOutput{
		Status:    http.StatusTemporaryRedirect,
		Location:  h.cfg.FrontendURL,
		SetCookie: sessionCookie(jwtToken),
	}, nil
}

func (h *AuthHandler) upsertUser(ctx context.Context, du discordUser) (*models.User, error) {
	var user models.User
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(models.User{DiscordID: du.ID}).FirstOrInit(&user).Error; err != nil {
			return err
		}
		user.Username = du.Username
		user.Email = du.Email
		user.Avatar = du.Avatar
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func isGuildMember(client *http.Client, guildID string) (bool, error) {
	var guilds []struct {
		ID string `json:"id"`
	}
	if err := getJSON(client, DiscordUserGuildsAPI, &guilds); err != nil {
		return false, err
	}
	for _, g := range guilds {
		if g.ID == guildID {
			return true, nil
		}
	}
	return false, nil
}

func getJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func sessionCookie(token string) http.Cookie {
	return http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  time.Now().Add(TokenDuration),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
}

func (h *AuthHandler) GenerateToken(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

var ErrInvalidToken = errors.New("invalid token")

// ParseToken validates an HS256 token and returns its user id and expiry.
func (h *AuthHandler) ParseToken(tokenString string) (uint, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, time.Time{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, time.Time{}, ErrInvalidToken
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return 0, time.Time{}, ErrInvalidToken
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, time.Time{}, ErrInvalidToken
	}
	return uint(userIDFloat), exp.Time, nil
}

// IsAdmin reports whether the user holds the admin role. The boundary calls
// it before privileged operations; the engine never does.
func (h *AuthHandler) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	var user models.User
	if err := h.db.WithContext(ctx).Select("id", "discord_id").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return h.roles.HasAdminRole(ctx, user.DiscordID)
}

type MeOutput struct {
	Body struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Avatar   string `json:"avatar"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *struct{}) (*MeOutput, error) {
	userID, ok := UserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	var user models.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("User not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load user")
	}

	res := &MeOutput{}
	res.Body.ID = user.ID
	res.Body.Username = user.Username
	res.Body.Email = user.Email
	res.Body.Avatar = user.Avatar
	return res, nil
}
