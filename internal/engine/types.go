package engine

import (
	"time"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
)

// EntityType classifies which kind of organizational entity a user
// represents. It is always derived from role/affiliation rows, never
// stored, so it cannot drift from the underlying data.
type EntityType string

const (
	EntitySystem           EntityType = "system"
	EntityLaborOfficeAdmin EntityType = "labor_office_admin"
	EntityCompanyAdmin     EntityType = "company_admin"
	EntityUser             EntityType = "user"
)

// AffiliationType identifies which kind of organization a user belongs to
type AffiliationType string

const (
	AffiliationLaborOffice AffiliationType = "labor_office"
	AffiliationCompany     AffiliationType = "company"
	AffiliationNone        AffiliationType = "none"
	AffiliationTerminated  AffiliationType = "terminated"
	AffiliationUnknown     AffiliationType = "unknown"
)

// Display names surfaced to end users for the synthetic affiliations
const (
	NameTerminated   = "퇴사자"
	NameUnaffiliated = "소속 없음"
	NameUnresolved   = "확인 불가"
)

// Affiliation is the resolved link between a user and their organization
type Affiliation struct {
	Type           AffiliationType `json:"type"`
	OrganizationID string          `json:"organizationId,omitempty"`
	Name           string          `json:"name"`
	Status         domain.Status   `json:"status"`
}

// Organization reports whether the affiliation points at a real organization
func (a Affiliation) Organization() bool {
	return a.Type == AffiliationLaborOffice || a.Type == AffiliationCompany
}

// Classification is the outcome of entity-type classification,
// carrying the role that decided it
type Classification struct {
	EntityType   EntityType
	RoleCode     string
	RoleCategory string
}

// EffectiveStatus is the computed status of a user after applying
// the organizational hierarchy. It is recomputed on every
// authorization-relevant request and never cached across requests.
type EffectiveStatus struct {
	EntityType      EntityType    `json:"entityType"`
	DirectStatus    domain.Status `json:"directStatus"`
	EffectiveStatus domain.Status `json:"effectiveStatus"`
	EntityName      string        `json:"entityName"`
	RoleCategory    string        `json:"roleCategory"`
	RoleCode        string        `json:"roleCode"`
	Message         string        `json:"message"`
}

// Active reports whether the user should be treated as fully usable
func (e EffectiveStatus) Active() bool {
	return e.EffectiveStatus == domain.StatusActive
}

// AffectedEntity is one dependent entity a cascade would touch
type AffectedEntity struct {
	Type   string        `json:"type"` // "staff" | "worker"
	ID     string        `json:"id"`
	UserID string        `json:"userId,omitempty"`
	Name   string        `json:"name"`
	Status domain.Status `json:"status"`
}

// ImpactSummary counts affected entities by kind for confirmation prompts
type ImpactSummary struct {
	Users     int `json:"users"`
	Workers   int `json:"workers"`
	Companies int `json:"companies"`
}

// Impact is the full cascade impact of a proposed status transition
type Impact struct {
	AffectedEntities []AffectedEntity `json:"affectedEntities"`
	Summary          ImpactSummary    `json:"summary"`
}

// TransitionRequest is a validated request to change a user's status
type TransitionRequest struct {
	UserID        string
	ActingUserID  string
	NewStatus     domain.Status
	Reason        string
	EffectiveDate *time.Time
	IsRestore     bool
	Confirm       bool
}

// UserSummary is the caller-facing slice of the mutated user row
type UserSummary struct {
	ID              string        `json:"id"`
	Username        string        `json:"username"`
	Email           string        `json:"email"`
	IsActive        bool          `json:"isActive"`
	LifecycleStatus domain.Status `json:"lifecycleStatus"`
}

// RoleUpdateResult reports the outcome of one role-activation write
// in degraded-mode execution
type RoleUpdateResult struct {
	UserRoleID string `json:"userRoleId"`
	RoleCode   string `json:"roleCode,omitempty"`
	Active     bool   `json:"active"`
	Error      string `json:"error,omitempty"`
}

// CascadeResult describes what happened to dependent entities.
// Enabled is false whenever the fallback path executed, so callers can
// detect degraded-mode results.
type CascadeResult struct {
	Enabled         bool               `json:"enabled"`
	Reason          string             `json:"reason,omitempty"`
	AffectedUsers   int                `json:"affectedUsers"`
	AffectedWorkers int                `json:"affectedWorkers"`
	RoleUpdates     []RoleUpdateResult `json:"roleUpdates,omitempty"`
}

// SpecialProcessing flags the lifecycle special cases a transition applied
type SpecialProcessing struct {
	Terminated       bool `json:"terminated"`
	Restored         bool `json:"restored"`
	Anonymized       bool `json:"anonymized,omitempty"`
	ReactivatedRoles int  `json:"reactivatedRoles,omitempty"`
}

// TerminationData mirrors the termination metadata after the transition
type TerminationData struct {
	TerminationDate   *time.Time `json:"termination_date"`
	TerminationReason *string    `json:"termination_reason"`
}

// TransitionResult is the uniform outcome of both execution paths
type TransitionResult struct {
	Success           bool               `json:"success"`
	Message           string             `json:"message"`
	User              *UserSummary       `json:"user,omitempty"`
	EntityInfo        *EffectiveStatus   `json:"entityInfo,omitempty"`
	CascadeResults    *CascadeResult     `json:"cascadeResults,omitempty"`
	SpecialProcessing *SpecialProcessing `json:"specialProcessing,omitempty"`
	TerminationData   *TerminationData   `json:"terminationData,omitempty"`
	Debug             map[string]any     `json:"debug,omitempty"`

	// ExecutionPath names the path that produced this result
	// ("atomic" or "fallback"); not part of the response body
	ExecutionPath string `json:"-"`
}
