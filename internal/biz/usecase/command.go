package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/feishu-promo-bot/internal/biz/domain"
	"github.com/anthropics/feishu-promo-bot/internal/biz/repo"
)

// Sender delivers a branded outbound message. Delivery failures are
// recovered inside the sender and never reported back here.
type Sender interface {
	Deliver(ctx context.Context, recipient domain.Recipient, text string)
}

// Timestamp layouts accepted by the schedule command. RFC 3339 first,
// then the zone-less ISO form interpreted in local time.
var scheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Replies used while chatbot mode is on. Picked at random; this is
// deliberately rule-based, not generated.
var chatbotReplies = []string{
	"That sounds interesting! Tell me more 😊",
	"Got it! Anything else on your mind?",
	"Nice one! I'm all ears 👂",
	"Hmm, let me think about that... done! What's next?",
	"I hear you! Keep it coming 🚀",
}

// CommandUsecase is the command interpreter: it classifies every
// inbound one-to-one message into an administrative command, a user
// intent, or free-form fallback, and resolves it to exactly one reply
// or side-effect-plus-reply.
type CommandUsecase struct {
	registry *domain.Registry
	queue    *domain.Queue
	state    *domain.BotState
	sender   Sender
	store    repo.StateRepo // optional; nil disables persistence
	adminID  string
	rng      *rand.Rand
}

// NewCommandUsecase creates a command interpreter. store may be nil.
func NewCommandUsecase(
	registry *domain.Registry,
	queue *domain.Queue,
	state *domain.BotState,
	sender Sender,
	store repo.StateRepo,
	adminID string,
) *CommandUsecase {
	return &CommandUsecase{
		registry: registry,
		queue:    queue,
		state:    state,
		sender:   sender,
		store:    store,
		adminID:  adminID,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// HandleMessage processes one inbound message. Every branch resolves
// to at most one reply; nothing here propagates an error upward, so a
// bad command can never take down the intake loop.
func (uc *CommandUsecase) HandleMessage(ctx context.Context, msg *domain.InboundMessage) {
	if !msg.IsOneToOne() {
		// Group conversations are ignored entirely.
		return
	}

	body := strings.TrimSpace(msg.Content)

	if uc.isAdmin(msg.SenderID) {
		uc.handleAdmin(ctx, msg, body)
		return
	}
	uc.handleUser(ctx, msg, body)
}

func (uc *CommandUsecase) isAdmin(senderID string) bool {
	return uc.adminID != "" && senderID == uc.adminID
}

func (uc *CommandUsecase) reply(ctx context.Context, msg *domain.InboundMessage, text string) {
	uc.sender.Deliver(ctx, domain.Recipient(msg.ChatID), text)
}

// handleAdmin routes messages from the administrator. The `admin`
// listing and the chatbot toggles always work; every other command is
// suspended while chatbot mode is on.
func (uc *CommandUsecase) handleAdmin(ctx context.Context, msg *domain.InboundMessage, body string) {
	switch strings.ToLower(body) {
	case "admin":
		uc.reply(ctx, msg, uc.adminHelp())
		return
	case "chatbot on":
		uc.state.SetChatbotMode(true)
		uc.reply(ctx, msg, "🤖 Chatbot mode is ON. I'll chat with you now. Type 'chatbot off' to get your commands back.")
		return
	case "chatbot off":
		uc.state.SetChatbotMode(false)
		uc.reply(ctx, msg, "✅ Chatbot mode is OFF. Admin commands are active again.")
		return
	}

	if uc.state.ChatbotMode() {
		uc.reply(ctx, msg, chatbotReplies[uc.rng.Intn(len(chatbotReplies))])
		return
	}

	if uc.dispatchAdminCommand(ctx, msg, body) {
		return
	}

	// No admin command matched; the admin gets the regular user flow.
	uc.handleUser(ctx, msg, body)
}

// dispatchAdminCommand executes one admin command, returning false
// when body matches none of them.
func (uc *CommandUsecase) dispatchAdminCommand(ctx context.Context, msg *domain.InboundMessage, body string) bool {
	switch {
	case strings.HasPrefix(body, "setapikey "):
		key := strings.TrimSpace(strings.TrimPrefix(body, "setapikey "))
		uc.state.SetAPIKey(key)
		uc.persistSetting(ctx, repo.SettingAPIKey, key)
		uc.reply(ctx, msg, "✅ API key updated successfully!")

	case strings.HasPrefix(body, "setname "):
		name := strings.TrimSpace(strings.TrimPrefix(body, "setname "))
		uc.state.SetDisplayName(name)
		uc.persistSetting(ctx, repo.SettingDisplayName, name)
		uc.reply(ctx, msg, fmt.Sprintf("✅ Bot name updated successfully! Now it's %q", name))

	case strings.HasPrefix(body, "saveuser "):
		uc.saveUser(ctx, msg, body)

	case strings.HasPrefix(body, "bulk "):
		uc.bulkSend(ctx, msg, body)

	case strings.HasPrefix(body, "schedule "):
		uc.schedule(ctx, msg, body)

	case body == "listusers":
		uc.listUsers(ctx, msg)

	case strings.HasPrefix(body, "removeuser "):
		uc.removeUser(ctx, msg, body)

	default:
		return false
	}
	return true
}

func (uc *CommandUsecase) saveUser(ctx context.Context, msg *domain.InboundMessage, body string) {
	id := domain.Recipient(strings.TrimSpace(strings.TrimPrefix(body, "saveuser ")))
	if !uc.registry.Add(id) {
		uc.reply(ctx, msg, fmt.Sprintf("ℹ️ User %s is already saved.", id))
		return
	}
	if uc.store != nil {
		if err := uc.store.SaveRecipient(ctx, id); err != nil {
			fmt.Printf("[Command] Failed to persist recipient %s: %v\n", id, err)
		}
	}
	uc.reply(ctx, msg, fmt.Sprintf("✅ User %s saved successfully!", id))
}

// bulkSend messages every recipient saved at invocation time.
// Recipients added while the sends are in flight are not included.
func (uc *CommandUsecase) bulkSend(ctx context.Context, msg *domain.InboundMessage, body string) {
	text := strings.TrimSpace(strings.TrimPrefix(body, "bulk "))

	snapshot := uc.registry.List()
	if len(snapshot) == 0 {
		uc.reply(ctx, msg, "ℹ️ No saved users to message.")
		return
	}

	for _, recipient := range snapshot {
		uc.sender.Deliver(ctx, recipient, text)
	}
	uc.reply(ctx, msg, fmt.Sprintf("✅ Bulk message sent to %d users.", len(snapshot)))
}

func (uc *CommandUsecase) schedule(ctx context.Context, msg *domain.InboundMessage, body string) {
	parts := strings.Fields(body)
	if len(parts) < 4 {
		uc.reply(ctx, msg, "❌ Invalid schedule format. Use: schedule <user> <ISO dateTime> <message>")
		return
	}

	recipient := domain.Recipient(parts[1])
	dueAt, err := parseScheduleTime(parts[2])
	if err != nil {
		uc.reply(ctx, msg, "❌ Invalid date/time format. Please use ISO format (YYYY-MM-DDTHH:mm:ss)")
		return
	}

	entry := domain.NewScheduledEntry(recipient, strings.Join(parts[3:], " "), dueAt)
	if err := uc.queue.Enqueue(entry); err != nil {
		uc.reply(ctx, msg, "❌ The schedule queue is full. Try again after pending messages go out.")
		return
	}
	if uc.store != nil {
		if err := uc.store.SaveEntry(ctx, entry); err != nil {
			fmt.Printf("[Command] Failed to persist scheduled entry %s: %v\n", entry.ID, err)
		}
	}
	uc.reply(ctx, msg, fmt.Sprintf("✅ Message scheduled for %s at %s", recipient, dueAt.Format(time.RFC1123)))
}

func (uc *CommandUsecase) listUsers(ctx context.Context, msg *domain.InboundMessage) {
	snapshot := uc.registry.List()
	if len(snapshot) == 0 {
		uc.reply(ctx, msg, "ℹ️ No saved users.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 Saved Users:\n")
	for i, id := range snapshot {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, id))
	}
	sb.WriteString("\nTo remove a user, type: removeuser <number>")
	uc.reply(ctx, msg, sb.String())
}

func (uc *CommandUsecase) removeUser(ctx context.Context, msg *domain.InboundMessage, body string) {
	arg := strings.TrimSpace(strings.TrimPrefix(body, "removeuser "))
	index, err := strconv.Atoi(arg)
	if err != nil {
		uc.reply(ctx, msg, "❌ Invalid index provided.")
		return
	}

	removed, err := uc.registry.Remove(index)
	if err != nil {
		uc.reply(ctx, msg, "❌ Invalid index provided.")
		return
	}
	if uc.store != nil {
		if err := uc.store.DeleteRecipient(ctx, removed); err != nil {
			fmt.Printf("[Command] Failed to delete recipient %s: %v\n", removed, err)
		}
	}
	uc.reply(ctx, msg, fmt.Sprintf("✅ Removed user: %s", removed))
}

// handleUser routes non-admin messages (and admin messages that match
// no command).
func (uc *CommandUsecase) handleUser(ctx context.Context, msg *domain.InboundMessage, body string) {
	lower := strings.ToLower(body)

	if lower == "devhelp" {
		uc.reply(ctx, msg, fmt.Sprintf(
			"💡 Welcome to %s Development Support!\n\nSend your development queries, and I'll try to help you build amazing apps. For support, type 'contact support'.",
			uc.state.DisplayName()))
		return
	}

	// Substring intent match. Known to misfire on unrelated text that
	// happens to contain these phrases.
	if strings.Contains(lower, "contact support") ||
		strings.Contains(lower, "help me") ||
		strings.Contains(lower, "support") {
		uc.sender.Deliver(ctx, domain.Recipient(uc.adminID),
			fmt.Sprintf("⚠️ User %s is requesting support. Please reach out to them soon!", msg.SenderID))
		uc.reply(ctx, msg, "🙏 Thanks for reaching out! Our support team has been alerted and will contact you shortly.")
		return
	}

	uc.reply(ctx, msg, "🤖 Hi there! I'm here to help you develop amazing apps. Type 'devhelp' for assistance or 'contact support' if you need human help.")
}

func (uc *CommandUsecase) adminHelp() string {
	return strings.Join([]string{
		"📜 Admin Commands:",
		"admin - Show this list",
		"setapikey <key> - Update the external API key",
		"setname <name> - Change the bot display name",
		"saveuser <id> - Save a recipient",
		"bulk <text> - Message every saved recipient",
		"schedule <id> <YYYY-MM-DDTHH:mm:ss> <text> - Schedule a one-off message",
		"listusers - List saved recipients",
		"removeuser <number> - Remove a recipient by list position",
		"chatbot on|off - Toggle conversational mode",
	}, "\n")
}

func (uc *CommandUsecase) persistSetting(ctx context.Context, key, value string) {
	if uc.store == nil {
		return
	}
	if err := uc.store.SaveSetting(ctx, key, value); err != nil {
		fmt.Printf("[Command] Failed to persist setting %s: %v\n", key, err)
	}
}

// parseScheduleTime parses the schedule command's timestamp argument.
func parseScheduleTime(value string) (time.Time, error) {
	for _, layout := range scheduleLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, value); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", value)
}
