package model

import "time"

// MemoryType classifies a memory as one-way or two-way.
// Questions and requests may later receive a response; information never does.
type MemoryType string

const (
	TypeQuestion    MemoryType = "question"
	TypeRequest     MemoryType = "request"
	TypeInformation MemoryType = "information"
)

// Valid reports whether t is a known memory type.
func (t MemoryType) Valid() bool {
	switch t {
	case TypeQuestion, TypeRequest, TypeInformation:
		return true
	}
	return false
}

// Visibility is the three-level access class governing read access.
// The empty value is legal on stored records that predate visibility and is
// treated as public everywhere.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityShared  Visibility = "shared"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether v is a known visibility level.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityShared, VisibilityPublic:
		return true
	}
	return false
}

// Memory is one stored fact, question or request.
type Memory struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Type        MemoryType `json:"type"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	Owner       string     `json:"owner,omitempty"`
	Visibility  Visibility `json:"visibility,omitempty"`
	SharedWith  []string   `json:"sharedWith,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	References  []string   `json:"references,omitempty"`
	Response    *string    `json:"response,omitempty"`
	RespondedBy *string    `json:"respondedBy,omitempty"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

// ResolvedOwner returns the actor with mutation rights: the explicit owner,
// falling back to createdBy. Empty when neither was supplied; such records
// are mutable only via admin override.
func (m *Memory) ResolvedOwner() string {
	if m.Owner != "" {
		return m.Owner
	}
	return m.CreatedBy
}

// VisibilityContext carries the acting identity asserted for one request.
// It is never persisted.
type VisibilityContext struct {
	Actor         string `json:"actor"`
	AdminOverride bool   `json:"adminOverride"`
}

// CreateMemoryRequest captures input to the create operation. Owner and
// visibility are resolved at creation when absent.
type CreateMemoryRequest struct {
	Content    string     `json:"content"`
	Type       MemoryType `json:"type"`
	CreatedBy  string     `json:"createdBy,omitempty"`
	Owner      string     `json:"owner,omitempty"`
	Visibility Visibility `json:"visibility,omitempty"`
	SharedWith []string   `json:"sharedWith,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	References []string   `json:"references,omitempty"`
}

// SearchRequest combines a similarity query with structured filters.
// Tags and references filter with OR semantics after results materialize.
type SearchRequest struct {
	Query      string             `json:"query,omitempty"`
	Type       MemoryType         `json:"type,omitempty"`
	CreatedBy  string             `json:"createdBy,omitempty"`
	Tags       []string           `json:"tags,omitempty"`
	References []string           `json:"references,omitempty"`
	Since      *time.Time         `json:"since,omitempty"`
	Until      *time.Time         `json:"until,omitempty"`
	Limit      int                `json:"limit,omitempty"`
	Context    *VisibilityContext `json:"-"`
}

// SearchResult pairs a memory with its rank-proxy score. Scores decrease by
// position, they are not calibrated similarities; see search.Engine.
type SearchResult struct {
	Memory Memory  `json:"memory"`
	Score  float64 `json:"score"`
}
