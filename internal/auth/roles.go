package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/bwmarrin/discordgo"
)

// RoleChecker decides whether a Discord account may run admin operations.
type RoleChecker interface {
	HasAdminRole(ctx context.Context, discordUserID string) (bool, error)
}

// DiscordRoleChecker asks the guild, through the bot, for the member's roles.
type DiscordRoleChecker struct {
	session     *discordgo.Session
	guildID     string
	adminRoleID string
}

func NewDiscordRoleChecker(botToken, guildID, adminRoleID string) (*DiscordRoleChecker, error) {
	if botToken == "" || guildID == "" || adminRoleID == "" {
		return nil, fmt.Errorf("discord role checker needs bot token, guild id and admin role id")
	}
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordRoleChecker{session: session, guildID: guildID, adminRoleID: adminRoleID}, nil
}

func (c *DiscordRoleChecker) HasAdminRole(ctx context.Context, discordUserID string) (bool, error) {
	if discordUserID == "" {
		return false, nil
	}
	member, err := c.session.GuildMember(c.guildID, discordUserID, discordgo.WithContext(ctx))
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("fetch guild member: %w", err)
	}
	return slices.Contains(member.Roles, c.adminRoleID), nil
}

// StaticRoleChecker grants admin to a fixed set of Discord ids. It backs
// deployments without a bot token and tests.
type StaticRoleChecker map[string]bool

func (s StaticRoleChecker) HasAdminRole(_ context.Context, discordUserID string) (bool, error) {
	return s[discordUserID], nil
}
