// Package gate decides whether an inbound message is eligible for
// processing at all. It is the first and cheapest stage of the pipeline
// and the only one that can reject a message outright.
package gate

import (
	"strings"

	"github.com/nextlevelbuilder/yingbot/internal/admins"
	"github.com/nextlevelbuilder/yingbot/internal/bus"
)

// Reason explains a rejection. Empty for accepted messages.
type Reason string

const (
	// ReasonNotAuthorizedPrivate: direct message from a non-admin.
	ReasonNotAuthorizedPrivate Reason = "not-authorized-private"
	// ReasonChannelNotAllowed: group chat absent from the allowlist.
	ReasonChannelNotAllowed Reason = "channel-not-allowed"
	// ReasonNotAddressed: allowed group, but the message was not directed
	// at the bot (no mention, no addressing prefix, no command token).
	ReasonNotAddressed Reason = "not-addressed"
)

// Result is the admission outcome for one message.
type Result struct {
	Accepted bool
	Reason   Reason
}

func accepted() Result              { return Result{Accepted: true} }
func rejected(reason Reason) Result { return Result{Reason: reason} }

// Gate evaluates the admission policy. It reads the admin registry and the
// static group allowlist; it never mutates either.
type Gate struct {
	admins        *admins.Registry
	allowedGroups map[string]bool
	prefix        string // addressing marker for group messages, e.g. "@盈盈"
}

// New creates a Gate. allowedGroups is loaded once at startup and is fixed
// for the process lifetime; granting a new group requires a restart.
func New(reg *admins.Registry, allowedGroups []string, addressingPrefix string) *Gate {
	groups := make(map[string]bool, len(allowedGroups))
	for _, id := range allowedGroups {
		if id != "" {
			groups[id] = true
		}
	}
	return &Gate{admins: reg, allowedGroups: groups, prefix: addressingPrefix}
}

// Admit applies the admission rules in order; the first matching rule
// decides. Direct chats are admin-only. Group chats must be allowlisted and
// the message must be addressed to the bot, which keeps the bot from
// answering (and paying for) unrelated chatter in busy groups.
func (g *Gate) Admit(msg bus.InboundMessage) Result {
	if msg.PeerKind == bus.PeerDirect {
		if !g.admins.IsAdmin(msg.SenderID) {
			return rejected(ReasonNotAuthorizedPrivate)
		}
		return accepted()
	}

	if !g.allowedGroups[msg.ChatID] {
		return rejected(ReasonChannelNotAllowed)
	}
	if !g.addressed(msg) {
		return rejected(ReasonNotAddressed)
	}
	return accepted()
}

// addressed reports whether a group message is directed at the bot.
func (g *Gate) addressed(msg bus.InboundMessage) bool {
	if msg.Mentioned || msg.Command {
		return true
	}
	if g.prefix != "" && strings.HasPrefix(strings.TrimSpace(msg.Content), g.prefix) {
		return true
	}
	return false
}
