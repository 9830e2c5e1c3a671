// Package router orchestrates the message pipeline: admission gate, FAQ
// short-circuit, quota-informed model selection, completion backend call,
// reply composition. One inbound message produces at most one reply.
package router

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/yingbot/internal/admins"
	"github.com/nextlevelbuilder/yingbot/internal/bus"
	"github.com/nextlevelbuilder/yingbot/internal/config"
	"github.com/nextlevelbuilder/yingbot/internal/gate"
	"github.com/nextlevelbuilder/yingbot/internal/knowledge"
	"github.com/nextlevelbuilder/yingbot/internal/providers"
	"github.com/nextlevelbuilder/yingbot/internal/quota"
)

// quotaWarnThreshold: append the remaining-quota notice once this few
// premium calls are left for the day, so the switch never surprises anyone.
const quotaWarnThreshold = 5

// Options wires the router's collaborators.
type Options struct {
	Bus       *bus.MessageBus
	Gate      *gate.Gate
	Knowledge *knowledge.Table
	Quota     *quota.Tracker
	Admins    *admins.Registry
	Provider  providers.Provider
	Models    config.ModelsConfig
	Timeout   time.Duration // bound on one completion backend call

	// ReplyOnReject sends the fixed not-authorized reply for rejected
	// direct-chat free text instead of staying silent. Commands always get
	// an explicit reply; group rejections are always silent.
	ReplyOnReject bool

	// Now overrides the clock in tests. nil means time.Now.
	Now func() time.Time
}

// Router consumes inbound bus messages and publishes replies.
type Router struct {
	bus           *bus.MessageBus
	gate          *gate.Gate
	faq           *knowledge.Table
	quota         *quota.Tracker
	admins        *admins.Registry
	provider      providers.Provider
	models        config.ModelsConfig
	timeout       time.Duration
	replyOnReject bool
	now           func() time.Time
	startedAt     time.Time
	inflight      sync.Map // identity → struct{}; one backend call per identity
}

// New creates a Router.
func New(opts Options) *Router {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Router{
		bus:           opts.Bus,
		gate:          opts.Gate,
		faq:           opts.Knowledge,
		quota:         opts.Quota,
		admins:        opts.Admins,
		provider:      opts.Provider,
		models:        opts.Models,
		timeout:       timeout,
		replyOnReject: opts.ReplyOnReject,
		now:           now,
		startedAt:     now(),
	}
}

// Run consumes inbound messages until ctx is done. Each message is handled
// on its own goroutine so one slow backend call never stalls other users.
func (r *Router) Run(ctx context.Context) error {
	slog.Info("router started")
	for {
		msg, ok := r.bus.ConsumeInbound(ctx)
		if !ok {
			slog.Info("router stopped")
			return nil
		}
		go r.Handle(ctx, msg)
	}
}

// Handle runs the full pipeline for one message. A panic in one message
// must not take the process down with it.
func (r *Router) Handle(ctx context.Context, msg bus.InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("message handler panicked",
				"channel", msg.Channel, "sender_id", msg.SenderID, "panic", rec)
		}
	}()

	reqID := uuid.NewString()[:8]
	log := slog.With("req_id", reqID, "channel", msg.Channel,
		"sender_id", msg.SenderID, "chat_id", msg.ChatID)

	res := r.gate.Admit(msg)
	if !res.Accepted {
		r.handleRejected(msg, res, log)
		return
	}

	if msg.Command {
		if handled := r.dispatchCommand(msg, log); handled {
			return
		}
		// Unrecognized command tokens fall through to the chat path.
	}

	// FAQ short-circuit: answered without touching the backend.
	if answer, ok := r.faq.Lookup(msg.Content); ok {
		log.Debug("faq hit")
		r.reply(msg, answer)
		return
	}

	// One in-flight completion per identity. A second message while the
	// first is outstanding gets a busy notice instead of blocking — and
	// is checked before the quota so it consumes nothing.
	if _, loaded := r.inflight.LoadOrStore(msg.SenderID, struct{}{}); loaded {
		log.Debug("identity already has an in-flight request")
		r.reply(msg, replyBusy)
		return
	}
	defer r.inflight.Delete(msg.SenderID)

	// The quota decision is finalized before the backend call so a slow
	// call from one identity cannot stall another identity's quota check.
	decision := r.quota.Select(msg.SenderID, r.now())
	model := r.models.Premium
	if decision.Tier == quota.TierStandard {
		model = r.models.Standard
	}
	log.Info("routing to completion backend",
		"tier", string(decision.Tier), "model", model,
		"remaining", decision.Remaining, "switched", decision.Switched)

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	completion, err := r.provider.Complete(callCtx, model, msg.Content)
	if err != nil {
		// Full detail for operators, generic apology for the user.
		if be, ok := providers.AsBackendError(err); ok {
			log.Error("completion backend failed",
				"kind", string(be.Kind), "provider", be.Provider, "error", be.Err)
		} else {
			log.Error("completion backend failed", "error", err)
		}
		r.reply(msg, replyBackendDown)
		return
	}

	r.reply(msg, completion+quotaNotice(decision))
}

// handleRejected implements the reject-path reply policy. A recognized
// admin command is answered explicitly so the sender learns the command
// exists but is closed to them; free-form chat is dropped silently (unless
// the deployment opts into explicit rejects) so the bot does not reveal its
// access policy. Group rejections never produce a reply.
func (r *Router) handleRejected(msg bus.InboundMessage, res gate.Result, log *slog.Logger) {
	log.Debug("message rejected", "reason", string(res.Reason))

	if res.Reason != gate.ReasonNotAuthorizedPrivate {
		return
	}
	if cmd, ok := parseCommand(msg.Content); ok && isKnownCommand(cmd) {
		r.reply(msg, notAuthorizedReply(cmd))
		return
	}
	if r.replyOnReject {
		r.reply(msg, replyNotAuthorized)
	}
}

func (r *Router) reply(msg bus.InboundMessage, text string) {
	r.bus.PublishOutbound(bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: text,
	})
}

// quotaNotice composes the usage suffix: always when the limit forced the
// standard tier, otherwise once remaining premium calls run low.
func quotaNotice(d quota.Decision) string {
	if d.Switched {
		return "\n\n" + noticeSwitched
	}
	if d.Remaining <= quotaWarnThreshold {
		return "\n\n" + noticeRemaining(d.Remaining)
	}
	return ""
}
