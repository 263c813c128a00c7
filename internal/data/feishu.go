package data

import (
	"context"

	"github.com/anthropics/feishu-promo-bot/feishu"
	"github.com/anthropics/feishu-promo-bot/internal/biz/repo"
)

// feishuRepo implements the outbound message repository
type feishuRepo struct {
	client *feishu.Client
}

// NewFeishuRepo creates a new Feishu repository
func NewFeishuRepo(client *feishu.Client) repo.MessageRepo {
	return &feishuRepo{client: client}
}

// SendText sends a text message
func (r *feishuRepo) SendText(ctx context.Context, chatID, text string) error {
	return r.client.SendText(ctx, chatID, text)
}

// SendPromoPost sends a rich post message with an uploaded image
func (r *feishuRepo) SendPromoPost(ctx context.Context, chatID, title, text, imageKey string) error {
	return r.client.SendPost(ctx, chatID, title, text, imageKey)
}

// UploadImage uploads a local image file and returns its image key
func (r *feishuRepo) UploadImage(ctx context.Context, path string) (string, error) {
	return r.client.UploadImage(ctx, path)
}
