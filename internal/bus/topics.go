package bus

// Activity event topics. The gateway's SSE and WebSocket streams subscribe to
// the "activity." prefix and relay every event to connected clients.
const (
	TopicSkillResult    = "activity.skill_result"
	TopicHeartbeatCycle = "activity.heartbeat_cycle"
	TopicChatMessage    = "activity.chat_message"
	TopicSecurityBlock  = "activity.security_block"
	TopicProactiveSent  = "activity.proactive_sent"
)

// SkillResultEvent is published once per skill result at the end of a
// heartbeat cycle.
type SkillResultEvent struct {
	EventID string `json:"event_id"`
	Skill   string `json:"skill"`
	AgentID string `json:"agent_id,omitempty"`
	OK      bool   `json:"ok"`
	Detail  string `json:"detail"`
}

// HeartbeatCycleEvent is published when a heartbeat cycle finishes.
type HeartbeatCycleEvent struct {
	EventID     string `json:"event_id"`
	Timestamp   string `json:"timestamp"`
	AgentsCount int    `json:"agents_count"`
	Results     int    `json:"results"`
	Failures    int    `json:"failures"`
}

// ChatMessageEvent is published after each handled chat exchange.
type ChatMessageEvent struct {
	EventID  string `json:"event_id"`
	AgentID  string `json:"agent_id"`
	Channel  string `json:"channel"`
	Language string `json:"language"`
	Fallback bool   `json:"fallback"`
}

// SecurityBlockEvent is published when the content filter blocks a message.
type SecurityBlockEvent struct {
	EventID string `json:"event_id"`
	AgentID string `json:"agent_id"`
	Reason  string `json:"reason"`
}

// ProactiveSentEvent is published when a proactive message is delivered to a
// linked Telegram chat.
type ProactiveSentEvent struct {
	EventID string `json:"event_id"`
	AgentID string `json:"agent_id"`
	ChatID  int64  `json:"chat_id"`
}
