package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anthropics/feishu-promo-bot/internal/biz/domain"
	"github.com/anthropics/feishu-promo-bot/internal/biz/repo"
)

// DefaultSendTimeout bounds one outbound send attempt.
const DefaultSendTimeout = 10 * time.Second

// Formatter wraps outbound text in the bot's branded presentation and
// delivers it. Deliver tries a rich promo post first and degrades to a
// plain text send; the caller never sees the original failure.
type Formatter struct {
	messageRepo repo.MessageRepo
	state       *domain.BotState
	promoLink   string
	imagePath   string
	sendTimeout time.Duration

	// Lazily uploaded promo image key. Upload is retried on the next
	// Deliver until it succeeds once.
	imageMu  sync.Mutex
	imageKey string
}

// NewFormatter creates a formatter. imagePath may be empty, in which
// case every delivery goes out as plain text.
func NewFormatter(messageRepo repo.MessageRepo, state *domain.BotState, promoLink, imagePath string, sendTimeout time.Duration) *Formatter {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Formatter{
		messageRepo: messageRepo,
		state:       state,
		promoLink:   promoLink,
		imagePath:   imagePath,
		sendTimeout: sendTimeout,
	}
}

// Format appends the branding footer to text. Pure function of the
// current bot state and the input.
func (f *Formatter) Format(text string) string {
	return fmt.Sprintf("%s\n\n🔥 Check this out: %s - %s 🚀✨", text, f.state.DisplayName(), f.promoLink)
}

// Deliver sends the branded message to recipient. Each attempt is
// bounded by the send timeout; a rich-send failure falls back to plain
// text, and a plain-text failure is logged, never returned.
func (f *Formatter) Deliver(ctx context.Context, recipient domain.Recipient, text string) {
	ctx, cancel := context.WithTimeout(ctx, f.sendTimeout)
	defer cancel()

	chatID := string(recipient)
	caption := f.Format(text)

	if key := f.promoImageKey(ctx); key != "" {
		err := f.messageRepo.SendPromoPost(ctx, chatID, f.state.DisplayName(), caption, key)
		if err == nil {
			return
		}
		fmt.Printf("[Formatter] Rich send to %s failed, falling back to text: %v\n", chatID, err)
	}

	if err := f.messageRepo.SendText(ctx, chatID, caption); err != nil {
		fmt.Printf("[Formatter] Failed to send to %s: %v\n", chatID, err)
	}
}

// promoImageKey returns the uploaded promo image key, uploading the
// configured image on first use. An upload failure degrades this
// delivery to text only.
func (f *Formatter) promoImageKey(ctx context.Context) string {
	if f.imagePath == "" {
		return ""
	}

	f.imageMu.Lock()
	defer f.imageMu.Unlock()

	if f.imageKey != "" {
		return f.imageKey
	}

	key, err := f.messageRepo.UploadImage(ctx, f.imagePath)
	if err != nil {
		fmt.Printf("[Formatter] Promo image upload failed: %v\n", err)
		return ""
	}
	f.imageKey = key
	return key
}
