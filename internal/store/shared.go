package store

import (
	"sync"
	"time"
)

// SharedStore holds process-wide state not scoped to any agent.
type SharedStore struct {
	mu sync.Mutex

	learnedTopics []string
	topicSet      map[string]struct{}
	researchNotes []ResearchNote
	securityLog   []SecurityEvent
	skillsLog     []SkillsLogEntry

	telegramChats map[int64]string // chat id -> username (registry of seen chats)
	telegramLinks map[int64]string // chat id -> agent id
	botUsername   string

	syncedTopicHashes map[string]struct{}
	logSyncWatermark  time.Time
}

// NewSharedStore creates an empty shared store.
func NewSharedStore() *SharedStore {
	return &SharedStore{
		topicSet:          make(map[string]struct{}),
		telegramChats:     make(map[int64]string),
		telegramLinks:     make(map[int64]string),
		syncedTopicHashes: make(map[string]struct{}),
	}
}

// AddTopic appends a learned topic unless it is already known. The topic list
// is capped; eviction removes the oldest topic from both the list and the
// dedup set.
func (s *SharedStore) AddTopic(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.topicSet[topic]; dup {
		return false
	}
	s.learnedTopics = append(s.learnedTopics, topic)
	s.topicSet[topic] = struct{}{}
	for len(s.learnedTopics) > MaxLearnedTopics {
		delete(s.topicSet, s.learnedTopics[0])
		s.learnedTopics = s.learnedTopics[1:]
	}
	return true
}

// KnowsTopic reports whether topic was already learned.
func (s *SharedStore) KnowsTopic(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.topicSet[topic]
	return ok
}

// RecentTopics returns up to the last n learned topics in insertion order.
func (s *SharedStore) RecentTopics(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tail := capTail(s.learnedTopics, n)
	out := make([]string, len(tail))
	copy(out, tail)
	return out
}

// TopicCount returns the learned topic count.
func (s *SharedStore) TopicCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.learnedTopics)
}

// LatestTopic returns the most recently learned topic, if any.
func (s *SharedStore) LatestTopic() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.learnedTopics) == 0 {
		return "", false
	}
	return s.learnedTopics[len(s.learnedTopics)-1], true
}

// AppendResearch appends a research note, evicting the oldest past the cap.
func (s *SharedStore) AppendResearch(n ResearchNote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.researchNotes = capTail(append(s.researchNotes, n), MaxResearchNotes)
}

// RecentResearch returns up to the last n research notes in insertion order.
func (s *SharedStore) RecentResearch(n int) []ResearchNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	tail := capTail(s.researchNotes, n)
	out := make([]ResearchNote, len(tail))
	copy(out, tail)
	return out
}

// ResearchCount returns the research note count.
func (s *SharedStore) ResearchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.researchNotes)
}

// RecordSecurityEvent appends to the append-only security log.
func (s *SharedStore) RecordSecurityEvent(ev SecurityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.securityLog = append(s.securityLog, ev)
}

// SecurityEventCount returns the total blocked-content events.
func (s *SharedStore) SecurityEventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.securityLog)
}

// RecentSecurityEvents returns up to the last n security events.
func (s *SharedStore) RecentSecurityEvents(n int) []SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	tail := capTail(s.securityLog, n)
	out := make([]SecurityEvent, len(tail))
	copy(out, tail)
	return out
}

// AppendSkillsLog appends one heartbeat-cycle entry, evicting the oldest past
// the cap.
func (s *SharedStore) AppendSkillsLog(entry SkillsLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skillsLog = capTail(append(s.skillsLog, entry), MaxSkillsLogEntries)
}

// RecentSkillsLog returns up to the last n cycle entries.
func (s *SharedStore) RecentSkillsLog(n int) []SkillsLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	tail := capTail(s.skillsLog, n)
	out := make([]SkillsLogEntry, len(tail))
	copy(out, tail)
	return out
}

// LastHeartbeat returns the timestamp of the latest cycle entry, if any.
func (s *SharedStore) LastHeartbeat() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.skillsLog) == 0 {
		return time.Time{}, false
	}
	return s.skillsLog[len(s.skillsLog)-1].Timestamp, true
}

// SkillsLogCount returns the cycle entry count.
func (s *SharedStore) SkillsLogCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.skillsLog)
}

// UnsyncedSkillsLog returns up to max of the most recent cycle entries not yet
// mirrored, oldest first. Cycle timestamps are monotonic, so a watermark is
// enough to track sync state across evictions.
func (s *SharedStore) UnsyncedSkillsLog(max int) []SkillsLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SkillsLogEntry
	for _, e := range capTail(s.skillsLog, max) {
		if e.Timestamp.After(s.logSyncWatermark) {
			out = append(out, e)
		}
	}
	return out
}

// MarkSkillsLogSynced advances the mirror watermark to ts.
func (s *SharedStore) MarkSkillsLogSynced(ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ts.After(s.logSyncWatermark) {
		s.logSyncWatermark = ts
	}
}

// RegisterTelegramChat records a chat id seen on the webhook.
func (s *SharedStore) RegisterTelegramChat(chatID int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telegramChats[chatID] = username
}

// LinkTelegramChat binds a chat to an agent id.
func (s *SharedStore) LinkTelegramChat(chatID int64, agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telegramLinks[chatID] = agentID
}

// AgentForChat returns the agent linked to a chat, if any.
func (s *SharedStore) AgentForChat(chatID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agentID, ok := s.telegramLinks[chatID]
	return agentID, ok
}

// ChatsForAgent returns every chat id linked to agentID.
func (s *SharedStore) ChatsForAgent(agentID string) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var chats []int64
	for chatID, linked := range s.telegramLinks {
		if linked == agentID {
			chats = append(chats, chatID)
		}
	}
	return chats
}

// TelegramLinks returns a snapshot of the link table.
func (s *SharedStore) TelegramLinks() map[int64]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]string, len(s.telegramLinks))
	for k, v := range s.telegramLinks {
		out[k] = v
	}
	return out
}

// SetBotUsername records the bot username fetched from the Telegram API.
func (s *SharedStore) SetBotUsername(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.botUsername = name
}

// BotUsername returns the recorded bot username.
func (s *SharedStore) BotUsername() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.botUsername
}

// MarkTopicSynced records a topic content hash as mirrored.
func (s *SharedStore) MarkTopicSynced(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncedTopicHashes[hash] = struct{}{}
}

// TopicSynced reports whether a topic content hash was already mirrored.
func (s *SharedStore) TopicSynced(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.syncedTopicHashes[hash]
	return ok
}
