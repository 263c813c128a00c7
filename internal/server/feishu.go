package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anthropics/feishu-promo-bot/feishu"
	"github.com/anthropics/feishu-promo-bot/internal/biz/domain"
	"github.com/anthropics/feishu-promo-bot/internal/biz/usecase"
	"github.com/anthropics/feishu-promo-bot/internal/service"
)

// FeishuServer connects the Feishu client to the command interpreter
// and drives the sweep runner alongside it.
type FeishuServer struct {
	feishuClient *feishu.Client
	commandUC    *usecase.CommandUsecase
	sweeper      *service.SweepRunner
	debug        bool // log every inbound message

	// Inbound messages are interpreted one at a time, in arrival order.
	handleMu sync.Mutex

	// Message deduplication cache
	seenMsgsMu sync.RWMutex
	seenMsgs   map[string]time.Time // msgID -> timestamp
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(feishuClient *feishu.Client, commandUC *usecase.CommandUsecase, sweeper *service.SweepRunner, debug bool) *FeishuServer {
	return &FeishuServer{
		feishuClient: feishuClient,
		commandUC:    commandUC,
		sweeper:      sweeper,
		debug:        debug,
		seenMsgs:     make(map[string]time.Time),
	}
}

// Start starts the sweep loop and the Feishu connection. Blocks until
// the connection ends.
func (s *FeishuServer) Start() error {
	if s.sweeper != nil {
		s.sweeper.Start()
	}

	s.feishuClient.OnMessage(s.handleMessage)
	return s.feishuClient.Start()
}

// Stop stops the server
func (s *FeishuServer) Stop() {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	s.feishuClient.Stop()
}

// handleMessage handles one Feishu message
func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	if s.debug {
		fmt.Printf("[Server] Received message from %s (chatType=%s): %s\n",
			msg.ChatID, msg.ChatType, truncate(msg.Content, 50))
	}

	// Feishu redelivers events it considers unacknowledged; process
	// each message once.
	if s.isMessageSeen(msg.MsgID) {
		fmt.Printf("[Server] Duplicate message ignored: %s\n", msg.MsgID)
		return
	}
	s.markMessageSeen(msg.MsgID)

	chatType := domain.ChatTypeP2P
	if msg.ChatType == "group" {
		chatType = domain.ChatTypeGroup
	}

	senderID := ""
	if msg.Sender != nil {
		senderID = msg.Sender.SenderID
	}

	req := &domain.InboundMessage{
		ChatID:   msg.ChatID,
		MsgID:    msg.MsgID,
		SenderID: senderID,
		Content:  msg.Content,
		ChatType: chatType,
	}

	s.handleMu.Lock()
	defer s.handleMu.Unlock()
	s.commandUC.HandleMessage(context.Background(), req)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// isMessageSeen checks if a message has been processed
func (s *FeishuServer) isMessageSeen(msgID string) bool {
	s.seenMsgsMu.RLock()
	defer s.seenMsgsMu.RUnlock()
	_, exists := s.seenMsgs[msgID]
	return exists
}

// markMessageSeen marks a message as processed
func (s *FeishuServer) markMessageSeen(msgID string) {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	s.seenMsgs[msgID] = time.Now()

	// Drop records older than 5 minutes so the cache stays bounded
	cutoff := time.Now().Add(-5 * time.Minute)
	for id, ts := range s.seenMsgs {
		if ts.Before(cutoff) {
			delete(s.seenMsgs, id)
		}
	}
}
