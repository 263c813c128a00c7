package domain

import "sync"

// BotState is the mutable process-wide bot configuration. It is
// initialized at startup, mutated only by administrator commands, and
// read by every outbound send, so reads take a shared lock.
type BotState struct {
	mu          sync.RWMutex
	displayName string
	apiKey      string
	chatbotMode bool
}

// NewBotState creates a state with the given display name.
func NewBotState(displayName string) *BotState {
	return &BotState{displayName: displayName}
}

// DisplayName returns the current bot display name.
func (s *BotState) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayName
}

// SetDisplayName updates the bot display name.
func (s *BotState) SetDisplayName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayName = name
}

// APIKey returns the stored external-service credential.
func (s *BotState) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey
}

// SetAPIKey stores the external-service credential. The value is
// opaque: an empty string is accepted and the previous value is
// overwritten without validation.
func (s *BotState) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
}

// ChatbotMode reports whether conversational mode is on.
func (s *BotState) ChatbotMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatbotMode
}

// SetChatbotMode flips conversational mode.
func (s *BotState) SetChatbotMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatbotMode = on
}
