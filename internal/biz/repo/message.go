package repo

import "context"

// MessageRepo is the outbound message repository interface
// Responsible for delivering messages through the Feishu API
type MessageRepo interface {
	// SendText sends a plain text message to a chat
	SendText(ctx context.Context, chatID, text string) error

	// SendPromoPost sends a rich post message (caption plus an
	// uploaded image) to a chat
	SendPromoPost(ctx context.Context, chatID, title, text, imageKey string) error

	// UploadImage uploads a local image file and returns its image key
	UploadImage(ctx context.Context, path string) (string, error)
}
