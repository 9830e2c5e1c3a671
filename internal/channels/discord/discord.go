// Package discord connects the bot to Discord via gateway events. DMs map
// to the direct peer kind, guild channels to group; the chat ID for the
// group allowlist is the Discord channel ID.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/yingbot/internal/bus"
	"github.com/nextlevelbuilder/yingbot/internal/channels"
	"github.com/nextlevelbuilder/yingbot/internal/config"
)

// Channel connects to Discord via the Bot API using gateway events.
type Channel struct {
	*channels.BaseChannel
	session   *discordgo.Session
	config    config.DiscordConfig
	botUserID string // populated on start
}

// New creates a new Discord channel from config.
func New(cfg config.DiscordConfig, msgBus *bus.MessageBus) (*Channel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &Channel{
		BaseChannel: channels.NewBaseChannel("discord", msgBus),
		session:     session,
		config:      cfg,
	}, nil
}

// Start opens the Discord gateway connection and begins receiving events.
func (c *Channel) Start(_ context.Context) error {
	slog.Info("starting discord bot")

	c.session.AddHandler(c.handleMessage)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	user, err := c.session.User("@me")
	if err != nil {
		c.session.Close()
		return fmt.Errorf("fetch discord bot identity: %w", err)
	}
	c.botUserID = user.ID

	c.SetRunning(true)
	slog.Info("discord bot connected", "username", user.Username, "id", user.ID)

	return nil
}

// Stop closes the Discord gateway connection.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping discord bot")
	c.SetRunning(false)
	return c.session.Close()
}

// Send delivers an outbound message to a Discord channel, chunking at the
// 2000-character message limit.
func (c *Channel) Send(_ context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord bot not running")
	}
	if msg.ChatID == "" {
		return fmt.Errorf("empty chat ID for discord send")
	}
	return c.sendChunked(msg.ChatID, msg.Content)
}

const maxMessageLen = 2000

func (c *Channel) sendChunked(channelID, content string) error {
	for _, chunk := range splitMessage(content) {
		if _, err := c.session.ChannelMessageSend(channelID, chunk); err != nil {
			return fmt.Errorf("discord send: %w", err)
		}
	}
	return nil
}

// splitMessage cuts content into Discord-sized chunks, preferring a newline
// break when one lands in the second half of a chunk.
func splitMessage(content string) []string {
	var chunks []string
	for len(content) > maxMessageLen {
		cutAt := maxMessageLen
		if idx := strings.LastIndexByte(content[:maxMessageLen], '\n'); idx > maxMessageLen/2 {
			cutAt = idx + 1
		}
		chunks = append(chunks, content[:cutAt])
		content = content[cutAt:]
	}
	if content != "" {
		chunks = append(chunks, content)
	}
	return chunks
}

// handleMessage processes incoming Discord messages.
func (c *Channel) handleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == c.botUserID || m.Author.Bot {
		return
	}
	if m.Content == "" {
		return
	}

	isDM := m.GuildID == ""
	peerKind := bus.PeerGroup
	if isDM {
		peerKind = bus.PeerDirect
	}

	mentioned := false
	for _, u := range m.Mentions {
		if u != nil && u.ID == c.botUserID {
			mentioned = true
			break
		}
	}

	slog.Debug("discord message received",
		"channel_id", m.ChannelID,
		"guild_id", m.GuildID,
		"user_id", m.Author.ID,
		"text_preview", channels.Truncate(m.Content, 60),
	)

	c.Bus().PublishInbound(bus.InboundMessage{
		Channel:   c.Name(),
		SenderID:  m.Author.ID,
		ChatID:    m.ChannelID,
		Content:   m.Content,
		PeerKind:  peerKind,
		Mentioned: mentioned,
		Command:   strings.HasPrefix(m.Content, "/"),
		Metadata: map[string]string{
			"message_id": m.ID,
			"username":   m.Author.Username,
			"guild_id":   m.GuildID,
		},
	})
}
