package router

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/yingbot/internal/admins"
	"github.com/nextlevelbuilder/yingbot/internal/bus"
)

// parseCommand extracts the leading command token, stripping the
// "@botname" suffix Telegram appends in groups. ok is false when the text
// is not a command.
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := strings.Fields(text)[0]
	cmd = strings.SplitN(cmd, "@", 2)[0]
	return strings.ToLower(cmd), true
}

func isKnownCommand(cmd string) bool {
	switch cmd {
	case "/start", "/help", "/status", "/grant", "/revoke", "/reload":
		return true
	}
	return false
}

// adminOnly commands require registry membership even after admission
// (group members in an allowed channel are admitted but not privileged).
func adminOnly(cmd string) bool {
	switch cmd {
	case "/status", "/grant", "/revoke", "/reload":
		return true
	}
	return false
}

// dispatchCommand handles a recognized command and returns true, or returns
// false to let unrecognized tokens flow into the chat path.
func (r *Router) dispatchCommand(msg bus.InboundMessage, log *slog.Logger) bool {
	cmd, ok := parseCommand(msg.Content)
	if !ok || !isKnownCommand(cmd) {
		return false
	}

	if adminOnly(cmd) && !r.admins.IsAdmin(msg.SenderID) {
		log.Info("admin command refused", "command", cmd)
		r.reply(msg, notAuthorizedReply(cmd))
		return true
	}

	args := strings.Fields(msg.Content)[1:]

	switch cmd {
	case "/start":
		r.reply(msg, replyGreeting)

	case "/help":
		r.reply(msg, replyHelp)

	case "/status":
		r.reply(msg, r.statusReport(msg.SenderID))

	case "/grant":
		r.reply(msg, r.grant(msg.SenderID, args, log))

	case "/revoke":
		r.reply(msg, r.revoke(msg.SenderID, args, log))

	case "/reload":
		if err := r.faq.Reload(); err != nil {
			log.Warn("faq reload failed", "error", err)
			r.reply(msg, replyReloadFailed)
			break
		}
		r.reply(msg, fmt.Sprintf(replyReloaded, r.faq.Len()))
	}
	return true
}

func (r *Router) statusReport(requester string) string {
	now := r.now()
	var b strings.Builder
	b.WriteString(replyStatusOK + "\n")
	fmt.Fprintf(&b, "运行时长：%s\n", now.Sub(r.startedAt).Round(time.Second))
	fmt.Fprintf(&b, "管理员：%d 人\n", len(r.admins.Members()))
	fmt.Fprintf(&b, "知识库条目：%d\n", r.faq.Len())
	fmt.Fprintf(&b, "今日高级模型用量：%d/%d\n", r.quota.Used(requester, now), r.quota.Limit())
	fmt.Fprintf(&b, "模型：%s（高级）/ %s（标准）", r.models.Premium, r.models.Standard)
	return b.String()
}

// grant/revoke malformed arguments reply with a usage hint and change no
// state.
func (r *Router) grant(requester string, args []string, log *slog.Logger) string {
	if len(args) != 1 {
		return usageHint("/grant <用户ID>")
	}
	target := args[0]
	if err := r.admins.Grant(requester, target); err != nil {
		log.Warn("grant failed", "target", target, "error", err)
		return adminErrReply(err)
	}
	log.Info("admin granted", "target", target)
	return fmt.Sprintf(replyGranted, target)
}

func (r *Router) revoke(requester string, args []string, log *slog.Logger) string {
	if len(args) != 1 {
		return usageHint("/revoke <用户ID>")
	}
	target := args[0]
	if err := r.admins.Revoke(requester, target); err != nil {
		log.Warn("revoke failed", "target", target, "error", err)
		return adminErrReply(err)
	}
	log.Info("admin revoked", "target", target)
	return fmt.Sprintf(replyRevoked, target)
}

func adminErrReply(err error) string {
	switch {
	case err == admins.ErrSuperAdmin:
		return replySuperAdmin
	case err == admins.ErrNotAuthorized:
		return replyNotAuthorized
	}
	return replyBackendDown
}
