package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anthropics/feishu-promo-bot/internal/biz/domain"
)

type sentMessage struct {
	Recipient domain.Recipient
	Text      string
}

// mockSender records every delivery
type mockSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (m *mockSender) Deliver(ctx context.Context, recipient domain.Recipient, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{Recipient: recipient, Text: text})
}

func (m *mockSender) all() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

const adminID = "ou_admin"

func newTestInterpreter() (*CommandUsecase, *domain.Registry, *domain.Queue, *domain.BotState, *mockSender) {
	registry := domain.NewRegistry()
	queue := domain.NewQueue(0)
	state := domain.NewBotState("FY'S PROPERTY")
	sender := &mockSender{}
	uc := NewCommandUsecase(registry, queue, state, sender, nil, adminID)
	return uc, registry, queue, state, sender
}

func adminMsg(text string) *domain.InboundMessage {
	return &domain.InboundMessage{
		ChatID:   "oc_admin_chat",
		MsgID:    "m1",
		SenderID: adminID,
		Content:  text,
		ChatType: domain.ChatTypeP2P,
	}
}

func userMsg(sender, text string) *domain.InboundMessage {
	return &domain.InboundMessage{
		ChatID:   "oc_" + sender,
		MsgID:    "m2",
		SenderID: sender,
		Content:  text,
		ChatType: domain.ChatTypeP2P,
	}
}

func TestHandleMessage_GroupIgnored(t *testing.T) {
	uc, _, _, _, sender := newTestInterpreter()

	uc.HandleMessage(context.Background(), &domain.InboundMessage{
		ChatID:   "oc_group",
		SenderID: adminID,
		Content:  "admin",
		ChatType: domain.ChatTypeGroup,
	})

	if got := len(sender.all()); got != 0 {
		t.Errorf("Expected group message to be ignored, got %d sends", got)
	}
}

func TestHandleMessage_AdminList(t *testing.T) {
	uc, _, _, _, sender := newTestInterpreter()

	uc.HandleMessage(context.Background(), adminMsg("Admin"))

	sent := sender.all()
	if len(sent) != 1 {
		t.Fatalf("Expected exactly one reply, got %d", len(sent))
	}
	for _, cmd := range []string{"setapikey", "setname", "saveuser", "bulk", "schedule", "listusers", "removeuser", "chatbot"} {
		if !strings.Contains(sent[0].Text, cmd) {
			t.Errorf("Expected admin list to mention %q", cmd)
		}
	}
}

func TestHandleMessage_SetName(t *testing.T) {
	uc, _, _, state, sender := newTestInterpreter()

	uc.HandleMessage(context.Background(), adminMsg("setname  My Shop  "))

	if got := state.DisplayName(); got != "My Shop" {
		t.Errorf("Expected trimmed display name, got %q", got)
	}
	sent := sender.all()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "My Shop") {
		t.Errorf("Expected one confirmation naming the new name, got %v", sent)
	}
}

func TestHandleMessage_SetAPIKey(t *testing.T) {
	uc, _, _, state, sender := newTestInterpreter()

	uc.HandleMessage(context.Background(), adminMsg("setapikey sk-test-123"))

	if got := state.APIKey(); got != "sk-test-123" {
		t.Errorf("Expected stored credential, got %q", got)
	}
	if got := len(sender.all()); got != 1 {
		t.Errorf("Expected exactly one reply, got %d", got)
	}
}

func TestHandleMessage_SaveUser(t *testing.T) {
	uc, registry, _, _, sender := newTestInterpreter()
	ctx := context.Background()

	uc.HandleMessage(ctx, adminMsg("saveuser oc_customer"))
	uc.HandleMessage(ctx, adminMsg("saveuser oc_customer"))

	if got := registry.Len(); got != 1 {
		t.Errorf("Expected one stored recipient, got %d", got)
	}
	sent := sender.all()
	if len(sent) != 2 {
		t.Fatalf("Expected two replies, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Text, "saved successfully") {
		t.Errorf("Expected first reply to confirm save, got %q", sent[0].Text)
	}
	if !strings.Contains(sent[1].Text, "already saved") {
		t.Errorf("Expected second reply to report duplicate, got %q", sent[1].Text)
	}
}

func TestHandleMessage_BulkEmptyRegistry(t *testing.T) {
	uc, _, _, _, sender := newTestInterpreter()

	uc.HandleMessage(context.Background(), adminMsg("bulk hello everyone"))

	sent := sender.all()
	if len(sent) != 1 {
		t.Fatalf("Expected only the no-recipients reply, got %d sends", len(sent))
	}
	if !strings.Contains(sent[0].Text, "No saved users") {
		t.Errorf("Expected no-recipients reply, got %q", sent[0].Text)
	}
}

func TestHandleMessage_BulkSendsToSnapshot(t *testing.T) {
	uc, registry, _, _, sender := newTestInterpreter()
	registry.Add("A")
	registry.Add("B")

	uc.HandleMessage(context.Background(), adminMsg("bulk hi"))

	sent := sender.all()
	if len(sent) != 3 {
		t.Fatalf("Expected 2 recipient sends plus 1 reply, got %d", len(sent))
	}
	if sent[0].Recipient != "A" || sent[1].Recipient != "B" {
		t.Errorf("Expected sends to A then B, got %v", sent[:2])
	}
	if !strings.Contains(sent[2].Text, "2 users") {
		t.Errorf("Expected reply to report count 2, got %q", sent[2].Text)
	}
}

func TestHandleMessage_ScheduleValid(t *testing.T) {
	uc, _, queue, _, sender := newTestInterpreter()

	uc.HandleMessage(context.Background(), adminMsg("schedule 999 2099-01-01T00:00:00 hello"))

	if got := queue.Len(); got != 1 {
		t.Fatalf("Expected one queued entry, got %d", got)
	}
	due := queue.TakeDue(time.Date(2099, 1, 1, 0, 0, 0, 0, time.Local))
	if len(due) != 1 {
		t.Fatalf("Expected entry due at its timestamp, got %d", len(due))
	}
	entry := due[0]
	if entry.Recipient != "999" || entry.Text != "hello" {
		t.Errorf("Expected entry (999, hello), got (%s, %s)", entry.Recipient, entry.Text)
	}
	want := time.Date(2099, 1, 1, 0, 0, 0, 0, time.Local)
	if !entry.DueAt.Equal(want) {
		t.Errorf("Expected due time %v, got %v", want, entry.DueAt)
	}

	sent := sender.all()
	if len(sent) != 1 {
		t.Fatalf("Expected one confirmation reply, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Text, "999") || !strings.Contains(sent[0].Text, "2099") {
		t.Errorf("Expected confirmation to name recipient and time, got %q", sent[0].Text)
	}
}

func TestHandleMessage_ScheduleMultiWordText(t *testing.T) {
	uc, _, queue, _, _ := newTestInterpreter()

	uc.HandleMessage(context.Background(), adminMsg("schedule 999 2099-06-01T10:30:00 happy new year folks"))

	due := queue.TakeDue(time.Date(2100, 1, 1, 0, 0, 0, 0, time.Local))
	if len(due) != 1 {
		t.Fatalf("Expected one entry, got %d", len(due))
	}
	if due[0].Text != "happy new year folks" {
		t.Errorf("Expected joined message text, got %q", due[0].Text)
	}
}

func TestHandleMessage_ScheduleInvalidTimestamp(t *testing.T) {
	uc, _, queue, _, sender := newTestInterpreter()

	uc.HandleMessage(context.Background(), adminMsg("schedule 999 not-a-date hello"))

	if got := queue.Len(); got != 0 {
		t.Errorf("Expected no queue mutation, got %d entries", got)
	}
	sent := sender.all()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "Invalid date/time") {
		t.Errorf("Expected invalid-timestamp reply, got %v", sent)
	}
}

func TestHandleMessage_ScheduleMalformed(t *testing.T) {
	uc, _, queue, _, sender := newTestInterpreter()

	uc.HandleMessage(context.Background(), adminMsg("schedule 999 2099-01-01T00:00:00"))

	if got := queue.Len(); got != 0 {
		t.Errorf("Expected no queue mutation, got %d entries", got)
	}
	sent := sender.all()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "Invalid schedule format") {
		t.Errorf("Expected malformed-command reply, got %v", sent)
	}
}

func TestHandleMessage_ScheduleQueueFull(t *testing.T) {
	registry := domain.NewRegistry()
	queue := domain.NewQueue(1)
	state := domain.NewBotState("FY'S PROPERTY")
	sender := &mockSender{}
	uc := NewCommandUsecase(registry, queue, state, sender, nil, adminID)
	ctx := context.Background()

	uc.HandleMessage(ctx, adminMsg("schedule ou_first 2099-01-01T00:00:00 hello"))
	uc.HandleMessage(ctx, adminMsg("schedule ou_second 2099-01-01T00:00:00 hello"))

	if got := queue.Len(); got != 1 {
		t.Errorf("Expected the full queue to stay at 1 entry, got %d", got)
	}
	sent := sender.all()
	if len(sent) != 2 {
		t.Fatalf("Expected 2 replies, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Text, "Message scheduled") {
		t.Errorf("Expected first schedule to succeed, got %q", sent[0].Text)
	}
	if !strings.Contains(sent[1].Text, "queue is full") {
		t.Errorf("Expected queue-full reply, got %q", sent[1].Text)
	}
}

func TestHandleMessage_ListUsers(t *testing.T) {
	uc, registry, _, _, sender := newTestInterpreter()
	ctx := context.Background()

	uc.HandleMessage(ctx, adminMsg("listusers"))

	registry.Add("oc_first")
	registry.Add("oc_second")
	uc.HandleMessage(ctx, adminMsg("listusers"))

	sent := sender.all()
	if len(sent) != 2 {
		t.Fatalf("Expected two replies, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Text, "No saved users") {
		t.Errorf("Expected empty-list reply, got %q", sent[0].Text)
	}
	if !strings.Contains(sent[1].Text, "1. oc_first") || !strings.Contains(sent[1].Text, "2. oc_second") {
		t.Errorf("Expected 1-based enumeration, got %q", sent[1].Text)
	}
}

func TestHandleMessage_RemoveUser(t *testing.T) {
	uc, registry, _, _, sender := newTestInterpreter()
	registry.Add("oc_first")
	registry.Add("oc_second")

	uc.HandleMessage(context.Background(), adminMsg("removeuser 1"))

	sent := sender.all()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "oc_first") {
		t.Errorf("Expected removal reply naming oc_first, got %v", sent)
	}
	if got := registry.Len(); got != 1 {
		t.Errorf("Expected one remaining recipient, got %d", got)
	}
}

func TestHandleMessage_RemoveUserInvalidIndex(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
	}{
		{"not a number", "removeuser abc"},
		{"zero", "removeuser 0"},
		{"out of range", "removeuser 5"},
		{"negative", "removeuser -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, registry, _, _, sender := newTestInterpreter()
			registry.Add("oc_only")

			uc.HandleMessage(context.Background(), adminMsg(tt.cmd))

			sent := sender.all()
			if len(sent) != 1 || !strings.Contains(sent[0].Text, "Invalid index") {
				t.Errorf("Expected invalid-index reply, got %v", sent)
			}
			if got := registry.Len(); got != 1 {
				t.Errorf("Expected no mutation, got %d recipients", got)
			}
		})
	}
}

func TestHandleMessage_SupportEscalation(t *testing.T) {
	uc, _, _, _, sender := newTestInterpreter()

	uc.HandleMessage(context.Background(), userMsg("ou_visitor", "I need help me please"))

	sent := sender.all()
	if len(sent) != 2 {
		t.Fatalf("Expected exactly two sends (alert + ack), got %d", len(sent))
	}
	if sent[0].Recipient != adminID {
		t.Errorf("Expected alert sent to admin, got %s", sent[0].Recipient)
	}
	if !strings.Contains(sent[0].Text, "ou_visitor") {
		t.Errorf("Expected alert to contain requester id, got %q", sent[0].Text)
	}
	if sent[1].Recipient != "oc_ou_visitor" {
		t.Errorf("Expected ack sent back to requester chat, got %s", sent[1].Recipient)
	}
	if !strings.Contains(sent[1].Text, "support team has been alerted") {
		t.Errorf("Expected acknowledgment reply, got %q", sent[1].Text)
	}
}

func TestHandleMessage_DevHelp(t *testing.T) {
	uc, _, _, _, sender := newTestInterpreter()

	uc.HandleMessage(context.Background(), userMsg("ou_visitor", "DevHelp"))

	sent := sender.all()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "Development Support") {
		t.Errorf("Expected devhelp reply, got %v", sent)
	}
	if !strings.Contains(sent[0].Text, "FY'S PROPERTY") {
		t.Errorf("Expected devhelp reply to use current bot name, got %q", sent[0].Text)
	}
}

func TestHandleMessage_DefaultFallback(t *testing.T) {
	uc, _, _, _, sender := newTestInterpreter()

	uc.HandleMessage(context.Background(), userMsg("ou_visitor", "what do you sell?"))

	sent := sender.all()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "devhelp") {
		t.Errorf("Expected fallback reply, got %v", sent)
	}
}

func TestHandleMessage_AdminFallsThroughToUserFlow(t *testing.T) {
	uc, _, _, _, sender := newTestInterpreter()

	uc.HandleMessage(context.Background(), adminMsg("good morning"))

	sent := sender.all()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "Hi there") {
		t.Errorf("Expected admin with no command to get the fallback reply, got %v", sent)
	}
}

func TestHandleMessage_ChatbotModeSuspendsCommands(t *testing.T) {
	uc, registry, _, state, sender := newTestInterpreter()
	ctx := context.Background()

	uc.HandleMessage(ctx, adminMsg("chatbot on"))
	if !state.ChatbotMode() {
		t.Fatal("Expected chatbot mode on")
	}

	uc.HandleMessage(ctx, adminMsg("saveuser oc_should_not_save"))
	if got := registry.Len(); got != 0 {
		t.Errorf("Expected commands suspended, but recipient was saved (%d)", got)
	}

	// The toggle itself still works.
	uc.HandleMessage(ctx, adminMsg("chatbot off"))
	if state.ChatbotMode() {
		t.Fatal("Expected chatbot mode off")
	}

	uc.HandleMessage(ctx, adminMsg("saveuser oc_saved_again"))
	if got := registry.Len(); got != 1 {
		t.Errorf("Expected commands active again, got %d recipients", got)
	}

	sent := sender.all()
	if len(sent) != 4 {
		t.Errorf("Expected one reply per message, got %d", len(sent))
	}
}

func TestHandleMessage_ChatbotModeScopedToAdmin(t *testing.T) {
	uc, _, _, _, sender := newTestInterpreter()
	ctx := context.Background()

	uc.HandleMessage(ctx, adminMsg("chatbot on"))
	uc.HandleMessage(ctx, userMsg("ou_visitor", "devhelp"))

	sent := sender.all()
	if len(sent) != 2 {
		t.Fatalf("Expected two replies, got %d", len(sent))
	}
	if !strings.Contains(sent[1].Text, "Development Support") {
		t.Errorf("Expected ordinary user flow to keep working during chatbot mode, got %q", sent[1].Text)
	}
}

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"zone-less ISO", "2099-01-01T00:00:00", false},
		{"minutes only", "2099-01-01T09:30", false},
		{"rfc3339", "2099-01-01T00:00:00Z", false},
		{"garbage", "not-a-date", true},
		{"date only", "2099-01-01", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseScheduleTime(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseScheduleTime(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}
