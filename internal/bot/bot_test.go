package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vidyalinkco/studybot/internal/config"
	"github.com/vidyalinkco/studybot/internal/moderation"
	"github.com/vidyalinkco/studybot/internal/profile"
	"github.com/vidyalinkco/studybot/internal/tools"
)

type fakeTransport struct {
	sent       []string
	sentChats  []int64
	private    []string
	privateTo  []int64
	deleted    []int
	banned     []int64
	scheduled  []int
	sendErr    error
	nextMsgID  int
	privateErr error
}

func (f *fakeTransport) Send(_ context.Context, chatID int64, text string) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextMsgID++
	f.sent = append(f.sent, text)
	f.sentChats = append(f.sentChats, chatID)
	return f.nextMsgID, nil
}

func (f *fakeTransport) SendPrivate(_ context.Context, userID int64, text string) error {
	if f.privateErr != nil {
		return f.privateErr
	}
	f.private = append(f.private, text)
	f.privateTo = append(f.privateTo, userID)
	return nil
}

func (f *fakeTransport) Delete(_ context.Context, _ int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTransport) Ban(_ context.Context, _, userID int64) error {
	f.banned = append(f.banned, userID)
	return nil
}

func (f *fakeTransport) ScheduleDelete(_ int64, messageID int, _ time.Duration) {
	f.scheduled = append(f.scheduled, messageID)
}

type fakeModerator struct {
	verdict moderation.Verdict
	checked []string
}

func (f *fakeModerator) Check(_ context.Context, text string) moderation.Verdict {
	f.checked = append(f.checked, text)
	return f.verdict
}

type fakeEscalator struct {
	outcome moderation.Outcome
	calls   int
}

func (f *fakeEscalator) RecordViolation(_ context.Context, _, _ int64, _, _ string) moderation.Outcome {
	f.calls++
	return f.outcome
}

type fakeProfiles struct {
	prof    *profile.Profile
	getErr  error
	updated int
}

func (f *fakeProfiles) Get(_ context.Context, _ int64, _ string) (*profile.Profile, error) {
	return f.prof, f.getErr
}

func (f *fakeProfiles) Update(_ context.Context, _ int64, _ int, _ string) error {
	f.updated++
	return nil
}

type fakeAgent struct {
	reply string
	err   error
	seen  []string
	calls int
}

func (f *fakeAgent) Process(_ context.Context, userMessage string, _ int64, _ *profile.Profile, _ tools.ProfileUpdater, _ string) (string, error) {
	f.calls++
	f.seen = append(f.seen, userMessage)
	return f.reply, f.err
}

type fakeLog struct {
	routes []string
}

func (f *fakeLog) LogInteraction(_, _ int64, route, _, _ string) error {
	f.routes = append(f.routes, route)
	return nil
}

func groupFixture(mod *fakeModerator, esc *fakeEscalator, profs *fakeProfiles, ag *fakeAgent) (*GroupOrchestrator, *fakeTransport) {
	tr := &fakeTransport{}
	cfg := config.ModerationConfig{BanThreshold: 2, AutoDeleteDelay: 30}
	return NewGroupOrchestrator(tr, mod, esc, profs, ag, cfg), tr
}

func TestGroupViolationDeletedAndWarned(t *testing.T) {
	mod := &fakeModerator{verdict: moderation.Verdict{Flagged: true, Category: "content_violation"}}
	esc := &fakeEscalator{outcome: moderation.Outcome{Message: "warned"}}
	ag := &fakeAgent{}
	o, tr := groupFixture(mod, esc, &fakeProfiles{}, ag)

	o.HandleMessage(context.Background(), Message{
		UserID: 7, ChatID: 100, MessageID: 55, ChatKind: ChatKindGroup, Text: "spam spam",
	})

	if len(tr.deleted) != 1 || tr.deleted[0] != 55 {
		t.Fatalf("offending message not deleted: %v", tr.deleted)
	}
	if esc.calls != 1 {
		t.Fatalf("escalation calls = %d", esc.calls)
	}
	if len(tr.private) != 1 || tr.private[0] != "warned" || tr.privateTo[0] != 7 {
		t.Fatalf("warning DM not delivered: %v to %v", tr.private, tr.privateTo)
	}
	if len(tr.banned) != 0 {
		t.Fatal("ban must not run below threshold")
	}
	if ag.calls != 0 || len(tr.sent) != 0 {
		t.Fatal("flagged message must stop the pipeline")
	}
}

func TestGroupBanAtThreshold(t *testing.T) {
	mod := &fakeModerator{verdict: moderation.Verdict{Flagged: true}}
	esc := &fakeEscalator{outcome: moderation.Outcome{ShouldBan: true, Message: "banned"}}
	o, tr := groupFixture(mod, esc, &fakeProfiles{}, &fakeAgent{})

	o.HandleMessage(context.Background(), Message{UserID: 7, ChatID: 100, MessageID: 1, Text: "again"})

	if len(tr.banned) != 1 || tr.banned[0] != 7 {
		t.Fatalf("expected ban for user 7, got %v", tr.banned)
	}
}

func TestGroupViolationDMFailureStillBans(t *testing.T) {
	mod := &fakeModerator{verdict: moderation.Verdict{Flagged: true}}
	esc := &fakeEscalator{outcome: moderation.Outcome{ShouldBan: true, Message: "banned"}}
	o, tr := groupFixture(mod, esc, &fakeProfiles{}, &fakeAgent{})
	tr.privateErr = errors.New("user blocked the bot")

	o.HandleMessage(context.Background(), Message{UserID: 7, ChatID: 100, MessageID: 1, Text: "again"})

	if len(tr.banned) != 1 {
		t.Fatal("DM failure must not prevent the ban")
	}
}

func TestGroupNotMentionedStaysSilent(t *testing.T) {
	mod := &fakeModerator{}
	ag := &fakeAgent{}
	o, tr := groupFixture(mod, &fakeEscalator{}, &fakeProfiles{}, ag)

	o.HandleMessage(context.Background(), Message{
		UserID: 7, ChatID: 100, Text: "anyone has the timetable?", BotMention: "@studybot",
	})

	if len(mod.checked) != 1 {
		t.Fatal("every group message must be moderated")
	}
	if ag.calls != 0 || len(tr.sent) != 0 {
		t.Fatal("bot must stay silent without a mention")
	}
}

func TestGroupMentionStrippedBeforeModeration(t *testing.T) {
	mod := &fakeModerator{}
	ag := &fakeAgent{reply: "ok"}
	o, _ := groupFixture(mod, &fakeEscalator{}, &fakeProfiles{}, ag)

	o.HandleMessage(context.Background(), Message{
		UserID: 7, ChatID: 100, Text: "@studybot what is recursion?", BotMention: "@studybot",
	})

	if len(mod.checked) != 1 || mod.checked[0] != "what is recursion?" {
		t.Fatalf("moderator saw %q", mod.checked)
	}
}

func TestGroupBareMentionHelpPrompt(t *testing.T) {
	ag := &fakeAgent{}
	o, tr := groupFixture(&fakeModerator{}, &fakeEscalator{}, &fakeProfiles{}, ag)

	o.HandleMessage(context.Background(), Message{
		UserID: 7, ChatID: 100, Text: "@studybot", BotMention: "@studybot",
	})

	if ag.calls != 0 {
		t.Fatal("bare mention must not reach the agent")
	}
	if len(tr.sent) != 1 || tr.sent[0] != helpPrompt {
		t.Fatalf("sent = %v", tr.sent)
	}
	if len(tr.scheduled) != 1 {
		t.Fatal("help prompt must auto-delete")
	}
}

func TestGroupInsufficientContextRedirects(t *testing.T) {
	ag := &fakeAgent{}
	o, tr := groupFixture(&fakeModerator{}, &fakeEscalator{}, &fakeProfiles{}, ag)

	o.HandleMessage(context.Background(), Message{
		UserID: 7, ChatID: 100, ChatTitle: "Study Group",
		Text: "@studybot notes please", BotMention: "@studybot",
	})

	if ag.calls != 0 {
		t.Fatal("agent must not run without class/subject context")
	}
	if len(tr.sent) != 1 || !strings.Contains(tr.sent[0], "Need more details") {
		t.Fatalf("sent = %v", tr.sent)
	}
	if len(tr.scheduled) != 1 {
		t.Fatal("redirect notice must auto-delete")
	}
}

func TestGroupAgentReplyIsDurable(t *testing.T) {
	ag := &fakeAgent{reply: "📚 here you go"}
	o, tr := groupFixture(&fakeModerator{}, &fakeEscalator{}, &fakeProfiles{}, ag)

	o.HandleMessage(context.Background(), Message{
		UserID: 7, ChatID: 100, ChatTitle: "Class 12 AI Study",
		Text: "@studybot notes please", ReplyToText: "unit 3 is hard",
		BotMention: "@studybot",
	})

	if ag.calls != 1 {
		t.Fatalf("agent calls = %d", ag.calls)
	}
	want := "[Group context: Class 12 AI]\n[Replying to: unit 3 is hard]\nnotes please"
	if ag.seen[0] != want {
		t.Fatalf("enriched message = %q, want %q", ag.seen[0], want)
	}
	if len(tr.sent) != 1 || tr.sent[0] != "📚 here you go" {
		t.Fatalf("sent = %v", tr.sent)
	}
	if len(tr.scheduled) != 0 {
		t.Fatal("agent answers must stay visible")
	}
}

func TestGroupAgentErrorTransientApology(t *testing.T) {
	ag := &fakeAgent{reply: groupApology, err: errors.New("upstream down")}
	o, tr := groupFixture(&fakeModerator{}, &fakeEscalator{}, &fakeProfiles{}, ag)

	o.HandleMessage(context.Background(), Message{
		UserID: 7, ChatID: 100, Text: "@studybot hello there", BotMention: "@studybot",
	})

	if len(tr.sent) != 1 || tr.sent[0] != groupApology {
		t.Fatalf("sent = %v", tr.sent)
	}
	if len(tr.scheduled) != 1 {
		t.Fatal("apology must auto-delete")
	}
}

func TestDirectStartWelcome(t *testing.T) {
	tr := &fakeTransport{}
	ag := &fakeAgent{}
	r := NewDirectMessageRouter(tr, &fakeModerator{}, &fakeProfiles{}, ag, nil)

	r.Handle(context.Background(), Message{UserID: 7, ChatID: 7, Command: "start"})

	if ag.calls != 0 {
		t.Fatal("/start must not reach the agent")
	}
	if len(tr.sent) != 1 || !strings.Contains(tr.sent[0], "study buddy") {
		t.Fatalf("sent = %v", tr.sent)
	}
}

func TestDirectFlaggedGetsPlainWarning(t *testing.T) {
	tr := &fakeTransport{}
	ag := &fakeAgent{}
	logs := &fakeLog{}
	mod := &fakeModerator{verdict: moderation.Verdict{Flagged: true}}
	r := NewDirectMessageRouter(tr, mod, &fakeProfiles{}, ag, logs)

	r.Handle(context.Background(), Message{UserID: 7, ChatID: 7, Text: "abusive text"})

	if ag.calls != 0 {
		t.Fatal("flagged DM must not reach the agent")
	}
	if len(tr.sent) != 1 || tr.sent[0] != flaggedNotice {
		t.Fatalf("sent = %v", tr.sent)
	}
	if len(tr.deleted) != 0 || len(tr.banned) != 0 {
		t.Fatal("DMs carry no escalation")
	}
	if len(logs.routes) != 1 || logs.routes[0] != "moderation" {
		t.Fatalf("routes = %v", logs.routes)
	}
}

func TestDirectAgentReplyLogged(t *testing.T) {
	tr := &fakeTransport{}
	ag := &fakeAgent{reply: "answer"}
	logs := &fakeLog{}
	r := NewDirectMessageRouter(tr, &fakeModerator{}, &fakeProfiles{}, ag, logs)

	r.Handle(context.Background(), Message{UserID: 7, ChatID: 7, Text: "question"})

	if len(tr.sent) != 1 || tr.sent[0] != "answer" {
		t.Fatalf("sent = %v", tr.sent)
	}
	if len(logs.routes) != 1 || logs.routes[0] != "agent" {
		t.Fatalf("routes = %v", logs.routes)
	}
}

func TestDirectAgentErrorStillReplies(t *testing.T) {
	tr := &fakeTransport{}
	ag := &fakeAgent{reply: "Sorry, I encountered an error. Please try again.", err: errors.New("boom")}
	r := NewDirectMessageRouter(tr, &fakeModerator{}, &fakeProfiles{}, ag, nil)

	r.Handle(context.Background(), Message{UserID: 7, ChatID: 7, Text: "question"})

	if len(tr.sent) != 1 || !strings.Contains(tr.sent[0], "Sorry") {
		t.Fatalf("sent = %v", tr.sent)
	}
}

func TestRouterDispatch(t *testing.T) {
	mod := &fakeModerator{}
	ag := &fakeAgent{reply: "ok"}
	group, groupTr := groupFixture(mod, &fakeEscalator{}, &fakeProfiles{}, ag)

	directTr := &fakeTransport{}
	direct := NewDirectMessageRouter(directTr, mod, &fakeProfiles{}, ag, nil)

	r := NewRouter(group, direct)

	r.Handle(context.Background(), Message{ChatKind: ChatKindGroup, UserID: 1, ChatID: 2, Text: "hi"})
	if len(mod.checked) != 1 {
		t.Fatal("group message not moderated")
	}
	if len(groupTr.sent) != 0 {
		t.Fatal("unmentioned group message must be silent")
	}

	r.Handle(context.Background(), Message{ChatKind: ChatKindPrivate, UserID: 1, ChatID: 1, Text: "hi"})
	if len(directTr.sent) != 1 {
		t.Fatal("private message not answered")
	}

	// Empty updates (joins, stickers) are dropped.
	r.Handle(context.Background(), Message{ChatKind: ChatKindPrivate, UserID: 1, ChatID: 1})
	if len(directTr.sent) != 1 {
		t.Fatal("empty message must be ignored")
	}
}
