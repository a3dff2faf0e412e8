package api

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Permission is a user's access level on a project
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
)

// Tokens is the JWT pair issued by the token endpoint
type Tokens struct {
	Access  string `json:"access,omitempty"`
	Refresh string `json:"refresh,omitempty"`
}

// Empty reports whether no access token is present
func (t Tokens) Empty() bool {
	return t.Access == ""
}

// Credentials are the login form fields
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// User is the identity returned by the identity endpoint. The zero value is
// the anonymous identity.
type User struct {
	Username           string                `json:"username"`
	CreateProjects     bool                  `json:"create_projects"`
	ProjectPermissions map[string]Permission `json:"project_permissions"`
}

// LoggedIn reports whether the identity names a user
func (u User) LoggedIn() bool {
	return u.Username != ""
}

// PermissionFor returns the user's permission on a project, if any
func (u User) PermissionFor(projectID int) (Permission, bool) {
	p, ok := u.ProjectPermissions[strconv.Itoa(projectID)]
	return p, ok
}

// CanWrite reports whether the user may add documents to or delete from a project
func (u User) CanWrite(projectID int) bool {
	p, ok := u.PermissionFor(projectID)
	return ok && p == PermissionWrite
}

// DocumentProperties is the document summary embedded in project listings
type DocumentProperties struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is a full document including its text and tagged markup
type Document struct {
	DocumentProperties
	Project    int    `json:"project,omitempty"`
	Text       string `json:"text"`
	TaggedText string `json:"tagged_text"`
}

// Tagged reports whether background tagging has finished
func (d Document) Tagged() bool {
	return d.TaggedText != ""
}

// Project is a project with its document summaries
type Project struct {
	ID        int                  `json:"id"`
	Name      string               `json:"name"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	Documents []DocumentProperties `json:"documents"`
}

// Event is one entry of the recent activity feed
type Event struct {
	Type       string    `json:"type"`
	DocumentID *int      `json:"document_id"`
	ProjectID  int       `json:"project_id"`
	Name       string    `json:"name"`
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
}

// CreatedDocument is the reply to a document submission
type CreatedDocument struct {
	ProjectID int       `json:"project_id"`
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// CreatedProject is the reply to a project submission
type CreatedProject struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// TaggedDocument is the reply of the tag endpoint
type TaggedDocument struct {
	TaggedText string `json:"tagged_text"`
}

// Message is the reply of delete endpoints
type Message struct {
	Message string `json:"message"`
}

// Validation errors for submission forms
var (
	ErrMissingFields            = errors.New("please fill in all fields")
	ErrInvalidCustomPermissions = errors.New("custom permissions must be in the format '<username>:<r/w>,<username>:<r/w>'")
	ErrTextTooLong              = errors.New("text must be between 1 and 5000 characters")
)

// MaxTagLength is the largest text the tag endpoint accepts
const MaxTagLength = 5000

// Validate checks that both login fields are present
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return ErrMissingFields
	}
	return nil
}

// NewDocument is a document submission
type NewDocument struct {
	Project string `json:"project"`
	Name    string `json:"name"`
	Text    string `json:"text"`
}

// Validate checks that every field is filled in
func (d NewDocument) Validate() error {
	if d.Project == "" || strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Text) == "" {
		return ErrMissingFields
	}
	return nil
}

// ProjectVisibility controls which other users get access to a new project
type ProjectVisibility string

const (
	VisibilityNone   ProjectVisibility = "none"
	VisibilityRead   ProjectVisibility = "read"
	VisibilityWrite  ProjectVisibility = "write"
	VisibilityCustom ProjectVisibility = "custom"
)

// NewProject is a project submission
type NewProject struct {
	Name              string                `json:"name"`
	Permissions       ProjectVisibility     `json:"permissions"`
	CustomPermissions map[string]Permission `json:"custom_permissions"`
}

// Validate checks the name and, for custom visibility, the permission map
func (p NewProject) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrMissingFields
	}
	if p.Permissions == VisibilityCustom && len(p.CustomPermissions) == 0 {
		return ErrInvalidCustomPermissions
	}
	return nil
}

// ParsePermissions parses "user1:r,user2:w" into a permission map. Any
// malformed entry makes the whole result empty.
func ParsePermissions(s string) map[string]Permission {
	perms := make(map[string]Permission)
	if strings.TrimSpace(s) == "" {
		return perms
	}
	for _, entry := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 2 || parts[0] == "" {
			return map[string]Permission{}
		}
		switch parts[1] {
		case "w":
			perms[parts[0]] = PermissionWrite
		case "r":
			perms[parts[0]] = PermissionRead
		default:
			return map[string]Permission{}
		}
	}
	return perms
}
