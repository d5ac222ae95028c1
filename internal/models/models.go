package models

import "time"

const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

const (
	ComplexitySimple  = "simple"
	ComplexityMedium  = "medium"
	ComplexityComplex = "complex"
)

const (
	SenderClient = "client"
	SenderAI     = "ai"
)

const (
	MessageText     = "text"
	MessageAudio    = "audio"
	MessageImage    = "image"
	MessageDocument = "document"
)

const (
	ConversationOngoing   = "ongoing"
	ConversationCompleted = "completed"
	ConversationAbandoned = "abandoned"
)

const (
	DecisionPending  = "pending"
	DecisionAccepted = "accepted"
	DecisionRejected = "rejected"
)

const (
	RoleLawyer = "lawyer"
	RoleAdmin  = "admin"
)

const (
	UserActive   = "active"
	UserInactive = "inactive"
)

type Case struct {
	ID             string         `json:"id" bson:"_id"`
	LawyerID       string         `json:"lawyerId" bson:"lawyerId"`
	ClientInfo     ClientInfo     `json:"clientInfo" bson:"clientInfo"`
	CaseDetails    CaseDetails    `json:"caseDetails" bson:"caseDetails"`
	AIAnalysis     *CaseAnalysis  `json:"aiAnalysis" bson:"aiAnalysis,omitempty"`
	Conversation   Conversation   `json:"conversation" bson:"conversation"`
	LawyerDecision LawyerDecision `json:"lawyerDecision" bson:"lawyerDecision"`
	CreatedAt      time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt" bson:"updatedAt"`
}

type ClientInfo struct {
	Name     string `json:"name" bson:"name"`
	Phone    string `json:"phone" bson:"phone"`
	Email    string `json:"email" bson:"email"`
	Location string `json:"location" bson:"location"`
}

type CaseDetails struct {
	Type           string     `json:"type" bson:"type"`
	Description    string     `json:"description" bson:"description"`
	Urgency        string     `json:"urgency" bson:"urgency"`
	EstimatedValue float64    `json:"estimatedValue" bson:"estimatedValue"`
	Documents      []Document `json:"documents" bson:"documents"`
	Timeline       string     `json:"timeline" bson:"timeline"`
}

type Document struct {
	Name string `json:"name" bson:"name"`
	URL  string `json:"url" bson:"url"`
}

// CaseAnalysis is the structured assessment returned by the analysis prompt.
// The jsonschema tags drive the response schema sent to the LLM provider.
type CaseAnalysis struct {
	Summary            string   `json:"summary" bson:"summary" jsonschema:"description=Concise summary identifying the parties and the main conflict"`
	Strengths          []string `json:"strengths" bson:"strengths" jsonschema:"description=Points that favour the client"`
	Weaknesses         []string `json:"weaknesses" bson:"weaknesses" jsonschema:"description=Risks or weak points for the client"`
	Recommendations    string   `json:"recommendations" bson:"recommendations" jsonschema:"description=Strategic recommendations and next steps"`
	SuccessProbability int      `json:"successProbability" bson:"successProbability" jsonschema:"minimum=0,maximum=100,description=Estimated probability of success as a percentage"`
	EstimatedDuration  string   `json:"estimatedDuration" bson:"estimatedDuration" jsonschema:"description=Estimated duration in months or years"`
	Complexity         string   `json:"complexity" bson:"complexity" jsonschema:"enum=simple,enum=medium,enum=complex"`
}

type Conversation struct {
	Messages []Message `json:"messages" bson:"messages"`
	Status   string    `json:"status" bson:"status"`
}

type Message struct {
	Sender    string    `json:"sender" bson:"sender"`
	Message   string    `json:"message" bson:"message"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Type      string    `json:"type" bson:"type"`
}

type LawyerDecision struct {
	Status    string     `json:"status" bson:"status"`
	Decision  string     `json:"decision" bson:"decision"`
	Timestamp *time.Time `json:"timestamp" bson:"timestamp,omitempty"`
	Notes     string     `json:"notes" bson:"notes"`
}

type User struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Phone     string    `json:"phone" bson:"phone"`
	Role      string    `json:"role" bson:"role"`
	Status    string    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// JudicialCredentials holds court-portal logins. Passwords are sealed before
// they reach the store and are never serialized back to clients.
type JudicialCredentials struct {
	UserID      string    `json:"-" bson:"_id"`
	MEVUser     string    `json:"mevUser" bson:"mevUser"`
	MEVPassword string    `json:"-" bson:"mevPassword"`
	PJNUser     string    `json:"pjnUser" bson:"pjnUser"`
	PJNPassword string    `json:"-" bson:"pjnPassword"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

type MonitorRun struct {
	ID           string    `json:"id" bson:"_id"`
	UserID       string    `json:"userId" bson:"userId"`
	Status       string    `json:"status" bson:"status"`
	Message      string    `json:"message" bson:"message"`
	CheckedCases int       `json:"checkedCases" bson:"checkedCases"`
	NewUpdates   int       `json:"newUpdates" bson:"newUpdates"`
	CheckedAt    time.Time `json:"checkedAt" bson:"checkedAt"`
}

type CaseFilter struct {
	Status string
	Limit  int
	Offset int
}

type StatusCounts struct {
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

// NewCase opens an intake case for a client reaching us for the first time.
func NewCase(id, phone, name string, now time.Time) Case {
	return Case{
		ID: id,
		ClientInfo: ClientInfo{
			Name:  name,
			Phone: phone,
		},
		CaseDetails: CaseDetails{
			Urgency:   UrgencyMedium,
			Documents: []Document{},
		},
		Conversation: Conversation{
			Messages: []Message{},
			Status:   ConversationOngoing,
		},
		LawyerDecision: LawyerDecision{Status: DecisionPending},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func ValidComplexity(v string) bool {
	switch v {
	case ComplexitySimple, ComplexityMedium, ComplexityComplex:
		return true
	}
	return false
}

func (s *StatusCounts) Add(status string, n int) {
	switch status {
	case DecisionPending:
		s.Pending += n
	case DecisionAccepted:
		s.Accepted += n
	case DecisionRejected:
		s.Rejected += n
	}
	s.Total += n
}
