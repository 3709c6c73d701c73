// Package discord implements the messenger collaborator on top of a Discord
// bot account. Identities are Discord user ids.
package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/messenger"
)

// Messenger delivers direct messages through a Discord bot session.
type Messenger struct {
	session *discordgo.Session
}

// New creates a Messenger from a bot token. Open must be called before the
// first send.
func New(token string) (*Messenger, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Messenger{session: session}, nil
}

// Open connects the underlying websocket gateway.
func (m *Messenger) Open() error {
	if err := m.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// Close shuts down the gateway connection.
func (m *Messenger) Close() error {
	return m.session.Close()
}

// SendDirectMessage opens (or reuses) the DM channel for identity and sends
// text. Users with DMs disabled surface as messenger.ErrUnreachable.
func (m *Messenger) SendDirectMessage(ctx context.Context, identity, text string) error {
	channel, err := m.session.UserChannelCreate(identity, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm channel for %s: %w", identity, messenger.ErrUnreachable)
	}
	if _, err := m.session.ChannelMessageSend(channel.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send dm to %s: %w", identity, messenger.ErrUnreachable)
	}
	return nil
}

// DisplayName resolves the Discord username for identity, falling back to the
// raw id when the lookup fails.
func (m *Messenger) DisplayName(ctx context.Context, identity string) (string, error) {
	user, err := m.session.User(identity, discordgo.WithContext(ctx))
	if err != nil {
		return identity, fmt.Errorf("resolve user %s: %w", identity, err)
	}
	return user.Username, nil
}
