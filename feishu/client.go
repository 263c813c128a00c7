package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
)

// Message represents a received Feishu message
type Message struct {
	ChatID   string
	MsgID    string
	ChatType string // p2p (private), group
	Content  string // text content
	Sender   *Sender
}

// Sender represents the message sender
type Sender struct {
	SenderID   string // open_id
	SenderType string // user, app
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// eventBuffer bounds the inbound event queue between the WebSocket
// ACK path and the single dispatch worker.
const eventBuffer = 64

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	events    chan *larkim.P2MessageReceiveV1
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Start connects to Feishu via WebSocket and listens for messages.
// Blocks until Stop is called or the connection fails.
func (c *Client) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.larkCli = lark.NewClient(c.appID, c.appSecret)
	c.events = make(chan *larkim.P2MessageReceiveV1, eventBuffer)

	// The handler must return quickly so the SDK can send its ACK,
	// otherwise Feishu retries the event. Events are queued here and
	// drained by one worker, so messages keep their arrival order.
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			select {
			case c.events <- event:
			case <-c.ctx.Done():
			}
			return nil
		})

	go c.dispatchLoop()

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	fmt.Println("[Feishu] Starting WebSocket connection...")

	return c.wsCli.Start(c.ctx)
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// dispatchLoop delivers queued events to the handler one at a time.
func (c *Client) dispatchLoop() {
	for {
		select {
		case event := <-c.events:
			c.handleMessage(event)
		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming Feishu messages
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	rawMsg := event.Event.Message
	if rawMsg == nil {
		return
	}

	// Filter out messages sent by the bot itself to prevent loops
	if event.Event.Sender != nil && event.Event.Sender.SenderType != nil {
		if *event.Event.Sender.SenderType == "app" {
			return
		}
	}

	// Only text messages are interpreted
	if rawMsg.MessageType == nil || *rawMsg.MessageType != "text" {
		return
	}

	var textContent struct {
		Text string `json:"text"`
	}
	if rawMsg.Content == nil {
		return
	}
	if err := json.Unmarshal([]byte(*rawMsg.Content), &textContent); err != nil {
		fmt.Printf("[Feishu] Failed to parse content: %v\n", err)
		return
	}

	msg := &Message{
		ChatID:  *rawMsg.ChatId,
		MsgID:   *rawMsg.MessageId,
		Content: textContent.Text,
	}
	if rawMsg.ChatType != nil {
		msg.ChatType = *rawMsg.ChatType
	}
	if event.Event.Sender != nil {
		msg.Sender = &Sender{}
		if event.Event.Sender.SenderId != nil && event.Event.Sender.SenderId.OpenId != nil {
			msg.Sender.SenderID = *event.Event.Sender.SenderId.OpenId
		}
		if event.Event.Sender.SenderType != nil {
			msg.Sender.SenderType = *event.Event.Sender.SenderType
		}
	}

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// receiveIDType derives the receive_id_type from the identifier
// prefix. The message create API rejects a receive_id whose shape
// doesn't match the declared type, and the bot sends both to chats
// (oc_, reply targets) and directly to users (ou_, the admin alert
// and saved recipients).
func receiveIDType(id string) string {
	switch {
	case strings.HasPrefix(id, "ou_"):
		return larkim.ReceiveIdTypeOpenId
	case strings.HasPrefix(id, "on_"):
		return larkim.ReceiveIdTypeUnionId
	default:
		return larkim.ReceiveIdTypeChatId
	}
}

// SendText sends a text message to a chat or directly to a user
func (c *Client) SendText(ctx context.Context, receiveID, text string) error {
	content := map[string]string{"text": text}
	contentJSON, _ := json.Marshal(content)

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType(receiveID)).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(larkim.MsgTypeText).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}

	fmt.Printf("[Feishu] Message sent to %s\n", receiveID)
	return nil
}

// SendPost sends a rich post message: the caption text followed by an
// uploaded image.
func (c *Client) SendPost(ctx context.Context, receiveID, title, text, imageKey string) error {
	content := map[string]interface{}{
		"zh_cn": map[string]interface{}{
			"title": title,
			"content": [][]map[string]interface{}{
				{{"tag": "text", "text": text}},
				{{"tag": "img", "image_key": imageKey}},
			},
		},
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("marshal post content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType(receiveID)).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(larkim.MsgTypePost).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send post failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send post error: %s", resp.Msg)
	}

	fmt.Printf("[Feishu] Post sent to %s\n", receiveID)
	return nil
}

// UploadImage uploads a local image file for use in messages
func (c *Client) UploadImage(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	req := larkim.NewCreateImageReqBuilder().
		Body(larkim.NewCreateImageReqBodyBuilder().
			ImageType(larkim.ImageTypeMessage).
			Image(file).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Image.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("upload image failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("upload image error: %s", resp.Msg)
	}
	if resp.Data == nil || resp.Data.ImageKey == nil {
		return "", fmt.Errorf("upload image: empty image key")
	}

	return *resp.Data.ImageKey, nil
}
