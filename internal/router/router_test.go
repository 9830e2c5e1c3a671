package router

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nextlevelbuilder/yingbot/internal/admins"
	"github.com/nextlevelbuilder/yingbot/internal/bus"
	"github.com/nextlevelbuilder/yingbot/internal/config"
	"github.com/nextlevelbuilder/yingbot/internal/gate"
	"github.com/nextlevelbuilder/yingbot/internal/knowledge"
	"github.com/nextlevelbuilder/yingbot/internal/quota"
)

// fakeProvider records every completion call and returns a canned answer.
type fakeProvider struct {
	mu      sync.Mutex
	models  []string
	err     error
	blockCh chan struct{} // when set, Complete waits here after registering the call
	entered chan struct{}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Complete(ctx context.Context, model, promptText string) (string, error) {
	p.mu.Lock()
	p.models = append(p.models, model)
	p.mu.Unlock()
	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.blockCh != nil {
		<-p.blockCh
	}
	if p.err != nil {
		return "", p.err
	}
	return "回答：" + promptText, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.models)
}

type fixture struct {
	router   *Router
	bus      *bus.MessageBus
	provider *fakeProvider
	admins   *admins.Registry
	quota    *quota.Tracker
	faq      *knowledge.Table
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()

	reg := admins.NewRegistry("1", nil)
	tracker := quota.NewTracker(2)
	faq, err := knowledge.Load("")
	if err != nil {
		t.Fatalf("load faq: %v", err)
	}
	provider := &fakeProvider{}
	b := bus.New()

	opts := Options{
		Bus:       b,
		Gate:      gate.New(reg, []string{"100"}, ""),
		Knowledge: faq,
		Quota:     tracker,
		Admins:    reg,
		Provider:  provider,
		Models:    config.ModelsConfig{Standard: "std-model", Premium: "prem-model"},
		Timeout:   5 * time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}

	f := &fixture{
		router:   New(opts),
		bus:      opts.Bus,
		provider: provider,
		admins:   reg,
		quota:    tracker,
		faq:      opts.Knowledge,
	}
	return f
}

func (f *fixture) handle(msg bus.InboundMessage) {
	f.router.Handle(context.Background(), msg)
}

func (f *fixture) takeReply(t *testing.T) bus.OutboundMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, ok := f.bus.ConsumeOutbound(ctx)
	if !ok {
		t.Fatal("expected a reply, got none")
	}
	return out
}

func (f *fixture) expectNoReply(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if out, ok := f.bus.ConsumeOutbound(ctx); ok {
		t.Fatalf("expected silence, got reply %q", out.Content)
	}
}

func adminDM(content string) bus.InboundMessage {
	return bus.InboundMessage{
		Channel:  "telegram",
		SenderID: "1",
		ChatID:   "1",
		PeerKind: bus.PeerDirect,
		Content:  content,
		Command:  strings.HasPrefix(content, "/"),
	}
}

func TestChatRoutesThroughQuotaTiers(t *testing.T) {
	f := newFixture(t, nil)

	for i, wantSuffix := range []string{
		noticeRemaining(1),
		noticeRemaining(0),
		noticeSwitched,
		noticeSwitched,
	} {
		f.handle(adminDM("讲个笑话"))
		out := f.takeReply(t)
		if !strings.HasPrefix(out.Content, "回答：讲个笑话") {
			t.Fatalf("call %d: reply %q missing completion", i, out.Content)
		}
		if !strings.HasSuffix(out.Content, wantSuffix) {
			t.Errorf("call %d: reply %q, want suffix %q", i, out.Content, wantSuffix)
		}
	}

	f.provider.mu.Lock()
	models := append([]string(nil), f.provider.models...)
	f.provider.mu.Unlock()
	want := []string{"prem-model", "prem-model", "std-model", "std-model"}
	for i := range want {
		if models[i] != want[i] {
			t.Errorf("call %d routed to %q, want %q", i, models[i], want[i])
		}
	}
}

func TestUnauthorizedDirectChatIsSilent(t *testing.T) {
	f := newFixture(t, nil)

	msg := adminDM("你好")
	msg.SenderID, msg.ChatID = "7", "7"
	f.handle(msg)

	f.expectNoReply(t)
	if f.provider.calls() != 0 {
		t.Error("rejected message reached the backend")
	}
	if f.quota.Tracked("7") {
		t.Error("rejected message consumed quota")
	}
}

func TestUnauthorizedDirectChatWithReplyOnReject(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.ReplyOnReject = true })

	msg := adminDM("你好")
	msg.SenderID, msg.ChatID = "7", "7"
	f.handle(msg)

	if out := f.takeReply(t); out.Content != replyNotAuthorized {
		t.Errorf("reply = %q", out.Content)
	}
}

func TestUnauthorizedStatusCommandGetsExplicitDenial(t *testing.T) {
	f := newFixture(t, nil)

	msg := adminDM("/status")
	msg.SenderID, msg.ChatID = "7", "7"
	f.handle(msg)

	if out := f.takeReply(t); out.Content != replyStatusDenied {
		t.Errorf("reply = %q, want %q", out.Content, replyStatusDenied)
	}
	if f.provider.calls() != 0 {
		t.Error("command reached the backend")
	}
}

func TestGroupRejectionIsAlwaysSilent(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.ReplyOnReject = true })

	f.handle(bus.InboundMessage{
		Channel: "telegram", SenderID: "7", ChatID: "999",
		PeerKind: bus.PeerGroup, Content: "/status", Command: true,
	})
	f.expectNoReply(t)
}

func TestFAQShortCircuit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.json")
	if err := os.WriteFile(path, []byte(`[{"q": "VIP返水", "a": "VIP返水每日结算。"}]`), 0o644); err != nil {
		t.Fatalf("write faq: %v", err)
	}
	faq, err := knowledge.Load(path)
	if err != nil {
		t.Fatalf("load faq: %v", err)
	}
	f := newFixture(t, func(o *Options) { o.Knowledge = faq })

	// Addressed group message from a non-admin: FAQ answers it without
	// touching the backend or the quota.
	f.handle(bus.InboundMessage{
		Channel: "telegram", SenderID: "7", ChatID: "100",
		PeerKind: bus.PeerGroup, Content: "@bot VIP返水怎么算", Mentioned: true,
	})

	if out := f.takeReply(t); out.Content != "VIP返水每日结算。" {
		t.Errorf("reply = %q", out.Content)
	}
	if f.provider.calls() != 0 {
		t.Error("faq hit reached the backend")
	}
	if f.quota.Tracked("7") {
		t.Error("faq hit consumed quota")
	}
}

func TestBackendFailureProducesApology(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.err = errors.New("upstream 503")

	f.handle(adminDM("讲个笑话"))
	if out := f.takeReply(t); out.Content != replyBackendDown {
		t.Errorf("reply = %q, want %q", out.Content, replyBackendDown)
	}
}

func TestSecondMessageWhileInFlightGetsBusyNotice(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.blockCh = make(chan struct{})
	f.provider.entered = make(chan struct{}, 1)

	done := make(chan struct{})
	go func() {
		f.handle(adminDM("第一条"))
		close(done)
	}()
	<-f.provider.entered

	f.handle(adminDM("第二条"))
	if out := f.takeReply(t); out.Content != replyBusy {
		t.Errorf("reply = %q, want busy notice", out.Content)
	}
	// The busy path must not consume quota beyond the first call.
	if used := f.quota.Used("1", time.Now()); used != 1 {
		t.Errorf("used = %d after busy reject, want 1", used)
	}

	close(f.provider.blockCh)
	<-done
	f.takeReply(t) // first call's completion
}

func TestGrantAndRevokeCommands(t *testing.T) {
	f := newFixture(t, nil)

	f.handle(adminDM("/grant 55"))
	if out := f.takeReply(t); out.Content != "已添加管理员：55" {
		t.Errorf("grant reply = %q", out.Content)
	}
	if !f.admins.IsAdmin("55") {
		t.Error("55 not an admin after grant")
	}

	f.handle(adminDM("/revoke 55"))
	if out := f.takeReply(t); out.Content != "已移除管理员：55" {
		t.Errorf("revoke reply = %q", out.Content)
	}
	if f.admins.IsAdmin("55") {
		t.Error("55 still an admin after revoke")
	}

	f.handle(adminDM("/revoke 1"))
	if out := f.takeReply(t); out.Content != replySuperAdmin {
		t.Errorf("revoke super admin reply = %q", out.Content)
	}
	if !f.admins.IsAdmin("1") {
		t.Error("super admin lost membership")
	}

	f.handle(adminDM("/grant"))
	if out := f.takeReply(t); out.Content != usageHint("/grant <用户ID>") {
		t.Errorf("malformed grant reply = %q", out.Content)
	}
}

func TestStatusReport(t *testing.T) {
	f := newFixture(t, nil)
	f.handle(adminDM("讲个笑话"))
	f.takeReply(t)

	f.handle(adminDM("/status"))
	out := f.takeReply(t)
	if !strings.HasPrefix(out.Content, replyStatusOK) {
		t.Errorf("status missing health line: %q", out.Content)
	}
	if !strings.Contains(out.Content, "今日高级模型用量：1/2") {
		t.Errorf("status missing usage line: %q", out.Content)
	}
	if !strings.Contains(out.Content, "prem-model") || !strings.Contains(out.Content, "std-model") {
		t.Errorf("status missing models: %q", out.Content)
	}
}

func TestUnrecognizedCommandFallsThroughToChat(t *testing.T) {
	f := newFixture(t, nil)

	f.handle(adminDM("/weather 北京"))
	out := f.takeReply(t)
	if !strings.HasPrefix(out.Content, "回答：/weather 北京") {
		t.Errorf("reply = %q, want chat-path completion", out.Content)
	}
	if f.provider.calls() != 1 {
		t.Errorf("backend calls = %d, want 1", f.provider.calls())
	}
}

func TestReloadCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("write faq: %v", err)
	}
	faq, err := knowledge.Load(path)
	if err != nil {
		t.Fatalf("load faq: %v", err)
	}
	f := newFixture(t, func(o *Options) { o.Knowledge = faq })

	if err := os.WriteFile(path, []byte(`[{"q": "返水", "a": "说明"}]`), 0o644); err != nil {
		t.Fatalf("rewrite faq: %v", err)
	}
	f.handle(adminDM("/reload"))
	if out := f.takeReply(t); out.Content != "知识库已重新加载，共 1 条。" {
		t.Errorf("reload reply = %q", out.Content)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"/status", "/status", true},
		{"/STATUS@YingBot extra", "/status", true},
		{"  /help  ", "/help", true},
		{"hello /status", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := parseCommand(tt.text)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseCommand(%q) = %q, %t; want %q, %t", tt.text, got, ok, tt.want, tt.wantOK)
		}
	}
}
