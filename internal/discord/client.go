package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"capedash/internal/infra"
)

// ErrNoToken indicates that no bot token was configured.
var ErrNoToken = errors.New("discord: bot token is required")

// Options configures the bot client.
type Options struct {
	Token              string
	MainGuildID        string
	AuthorizedGuildIDs []string
	StaffRoleIDs       []string
	StaffRoleNames     []string
	Logger             *infra.Logger
}

// GuildCounts holds the approximate member and presence counts of a guild.
type GuildCounts struct {
	Members int
	Online  int
}

// Client is the dashboard's handle on the Discord bot account. It is built
// once at startup and closed on shutdown.
type Client struct {
	session     *discordgo.Session
	mainGuildID string
	guildIDs    []string
	staff       staffRoles
	logger      *infra.Logger
}

// New creates a REST-only bot session. No gateway connection is opened: the
// dashboard only reads guild and member data.
func New(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, ErrNoToken
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	return &Client{
		session:     session,
		mainGuildID: opts.MainGuildID,
		guildIDs:    opts.AuthorizedGuildIDs,
		staff:       newStaffRoles(opts.StaffRoleIDs, opts.StaffRoleNames),
		logger:      infra.LoggerOrDiscard(opts.Logger),
	}, nil
}

// MainGuildID returns the guild whose counts are reported.
func (c *Client) MainGuildID() string { return c.mainGuildID }

// Verify checks the token by fetching the bot user.
func (c *Client) Verify(ctx context.Context) error {
	user, err := c.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: verify bot token: %w", err)
	}
	c.logger.Info().Str("bot_user", user.Username).Msg("discord: bot session ready")
	return nil
}

// GuildCounts returns approximate counts for the main guild.
func (c *Client) GuildCounts(ctx context.Context) (GuildCounts, error) {
	guild, err := c.session.GuildWithCounts(c.mainGuildID, discordgo.WithContext(ctx))
	if err != nil {
		return GuildCounts{}, fmt.Errorf("discord: guild %s: %w", c.mainGuildID, err)
	}
	members := guild.ApproximateMemberCount
	if members == 0 {
		members = guild.MemberCount
	}
	return GuildCounts{Members: members, Online: guild.ApproximatePresenceCount}, nil
}

// IsStaff reports whether the user holds a staff role in any authorised
// guild. Guilds the user is not a member of are skipped.
func (c *Client) IsStaff(ctx context.Context, userID string) (bool, error) {
	if c.staff.empty() {
		return false, nil
	}
	var lastErr error
	for _, guildID := range c.guildIDs {
		member, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			lastErr = err
			continue
		}
		roles, err := c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
		if err != nil {
			lastErr = err
			continue
		}
		if c.staff.matches(member.Roles, roles) {
			return true, nil
		}
	}
	if lastErr != nil {
		c.logger.Debug().Err(lastErr).Str("user_id", userID).Msg("discord: staff lookup incomplete")
	}
	return false, nil
}

// Close releases the session.
func (c *Client) Close() error {
	if c == nil || c.session == nil {
		return nil
	}
	return c.session.Close()
}

type staffRoles struct {
	ids   map[string]struct{}
	names map[string]struct{}
}

func newStaffRoles(ids, names []string) staffRoles {
	s := staffRoles{ids: map[string]struct{}{}, names: map[string]struct{}{}}
	for _, id := range ids {
		s.ids[strings.TrimSpace(id)] = struct{}{}
	}
	for _, name := range names {
		s.names[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return s
}

func (s staffRoles) empty() bool { return len(s.ids) == 0 && len(s.names) == 0 }

// matches checks member role ids against configured ids, and the names of
// those roles (case-insensitively) against configured names.
func (s staffRoles) matches(memberRoles []string, guildRoles []*discordgo.Role) bool {
	names := make(map[string]string, len(guildRoles))
	for _, r := range guildRoles {
		if r != nil {
			names[r.ID] = strings.ToLower(r.Name)
		}
	}
	for _, id := range memberRoles {
		if _, ok := s.ids[id]; ok {
			return true
		}
		if _, ok := s.names[names[id]]; ok && names[id] != "" {
			return true
		}
	}
	return false
}
