package types

import (
	"strings"
	"time"
)

// ProjectStatus is the lifecycle state of a project
type ProjectStatus int

const (
	ProjectActive   ProjectStatus = 1
	ProjectClosed   ProjectStatus = 5
	ProjectArchived ProjectStatus = 9
)

func (s ProjectStatus) String() string {
	switch s {
	case ProjectActive:
		return "active"
	case ProjectClosed:
		return "closed"
	case ProjectArchived:
		return "archived"
	default:
		return "unknown"
	}
}

// Project is the record a project query returns
type Project struct {
	ID          int64
	Name        string
	Identifier  string
	Description string
	Status      ProjectStatus
	IsPublic    bool
	ParentID    int64 // 0 for root projects
	ParentName  string
	CreatedOn   time.Time
	UpdatedOn   time.Time
}

const shortDescriptionLength = 255

// ShortDescription returns the first paragraph of the description,
// truncated to a displayable length
func (p Project) ShortDescription() string {
	desc := strings.TrimSpace(p.Description)
	if i := strings.Index(desc, "\n\n"); i >= 0 {
		desc = strings.TrimSpace(desc[:i])
	}
	if r := []rune(desc); len(r) > shortDescriptionLength {
		desc = string(r[:shortDescriptionLength]) + "..."
	}
	return desc
}

// Tracker is an issue category; one last-issue-date field exists per tracker
type Tracker struct {
	ID       int64
	Name     string
	Position int
}

// Role is a membership role. Builtin roles (non member, anonymous) never
// get their own column.
type Role struct {
	ID       int64
	Name     string
	Position int
	Builtin  int
}

// Function is a membership function of the limited visibility extension
type Function struct {
	ID       int64
	Name     string
	Position int
}

// PrincipalType distinguishes users from groups
type PrincipalType string

const (
	PrincipalUser      PrincipalType = "User"
	PrincipalGroup     PrincipalType = "Group"
	PrincipalAnonymous PrincipalType = "AnonymousUser"
)

// PrincipalStatus is the account state of a principal
type PrincipalStatus int

const (
	StatusActive     PrincipalStatus = 1
	StatusRegistered PrincipalStatus = 2
	StatusLocked     PrincipalStatus = 3
)

// Principal is a user or group that can be a project member
type Principal struct {
	ID             int64
	Type           PrincipalType
	Login          string
	Firstname      string
	Lastname       string
	Status         PrincipalStatus
	OrganizationID int64
}

// Name returns the display name of the principal
func (p Principal) Name() string {
	if p.Type == PrincipalGroup {
		return p.Lastname
	}
	name := strings.TrimSpace(p.Firstname + " " + p.Lastname)
	if name == "" {
		return p.Login
	}
	return name
}

// Actor is the principal on whose behalf a query runs.
// The zero value is the anonymous actor.
type Actor struct {
	ID int64
}

// LoggedIn reports whether the actor is an authenticated user
func (a Actor) LoggedIn() bool {
	return a.ID > 0
}

// IssueCounts holds the number of open and closed issues of a project
type IssueCounts struct {
	Open   int
	Closed int
}
