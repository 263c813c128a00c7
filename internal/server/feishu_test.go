package server

import (
	"context"
	"strings"
	"testing"

	"github.com/anthropics/feishu-promo-bot/feishu"
	"github.com/anthropics/feishu-promo-bot/internal/biz/domain"
	"github.com/anthropics/feishu-promo-bot/internal/biz/usecase"
)

type recordingSender struct {
	sent []string
}

func (r *recordingSender) Deliver(ctx context.Context, recipient domain.Recipient, text string) {
	r.sent = append(r.sent, text)
}

func newTestServer(sender usecase.Sender) *FeishuServer {
	registry := domain.NewRegistry()
	queue := domain.NewQueue(0)
	state := domain.NewBotState("TestBot")
	uc := usecase.NewCommandUsecase(registry, queue, state, sender, nil, "ou_admin")
	return NewFeishuServer(feishu.NewClient("", ""), uc, nil, false)
}

func TestHandleMessageDeduplicates(t *testing.T) {
	sender := &recordingSender{}
	srv := newTestServer(sender)

	msg := &feishu.Message{
		ChatID:   "oc_chat",
		MsgID:    "om_1",
		ChatType: "p2p",
		Content:  "listusers",
		Sender:   &feishu.Sender{SenderID: "ou_admin"},
	}

	srv.handleMessage(msg)
	srv.handleMessage(msg)

	if len(sender.sent) != 1 {
		t.Errorf("expected redelivered message to be processed once, got %d replies", len(sender.sent))
	}
}

func TestHandleMessageIgnoresGroupChats(t *testing.T) {
	sender := &recordingSender{}
	srv := newTestServer(sender)

	srv.handleMessage(&feishu.Message{
		ChatID:   "oc_chat",
		MsgID:    "om_2",
		ChatType: "group",
		Content:  "listusers",
		Sender:   &feishu.Sender{SenderID: "ou_admin"},
	})

	if len(sender.sent) != 0 {
		t.Errorf("expected group message to be ignored, got %d replies", len(sender.sent))
	}
}

func TestHandleMessageMapsSender(t *testing.T) {
	sender := &recordingSender{}
	srv := newTestServer(sender)

	srv.handleMessage(&feishu.Message{
		ChatID:   "oc_chat",
		MsgID:    "om_3",
		ChatType: "p2p",
		Content:  "hello there",
		Sender:   &feishu.Sender{SenderID: "ou_visitor"},
	})

	if len(sender.sent) != 1 {
		t.Fatalf("expected one reply, got %d", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0], "devhelp") {
		t.Errorf("expected non-admin fallback reply, got %q", sender.sent[0])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 50); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	long := strings.Repeat("a", 60)
	if got := truncate(long, 50); got != long[:50]+"..." {
		t.Errorf("expected truncated string, got %q", got)
	}
}
