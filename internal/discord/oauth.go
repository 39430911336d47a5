package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"

	"capedash/internal/domain"
)

// Endpoint is Discord's OAuth2 endpoint. Credentials go in the form body.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/api/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Scopes requested at login.
var Scopes = []string{"identify", "guilds"}

// NewOAuthConfig builds the authorization-code configuration.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
	}
}

// IdentityFetcher resolves the user behind an OAuth access token.
type IdentityFetcher interface {
	Identity(ctx context.Context, token *oauth2.Token) (domain.SessionUser, error)
}

// BearerIdentity fetches /users/@me with a bearer-token session.
type BearerIdentity struct{}

// Identity implements IdentityFetcher.
func (BearerIdentity) Identity(ctx context.Context, token *oauth2.Token) (domain.SessionUser, error) {
	if token == nil || token.AccessToken == "" {
		return domain.SessionUser{}, errors.New("discord: access token is required")
	}
	session, err := discordgo.New("Bearer " + token.AccessToken)
	if err != nil {
		return domain.SessionUser{}, fmt.Errorf("discord: create bearer session: %w", err)
	}
	defer session.Close()
	user, err := session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return domain.SessionUser{}, fmt.Errorf("discord: fetch identity: %w", err)
	}
	discriminator := user.Discriminator
	if discriminator == "" {
		discriminator = "0"
	}
	return domain.SessionUser{
		ID:            user.ID,
		Username:      user.Username,
		Avatar:        user.Avatar,
		Discriminator: discriminator,
		Roles:         []string{},
	}, nil
}
