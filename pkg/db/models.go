package db

import "time"

// Role is a collaborator's access level on a list.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// ProfileSummary is the public part of a user profile embedded in
// comments and collaborator rows.
type ProfileSummary struct {
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// Profile represents a row in the profiles table
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// ListCounts holds the aggregate counts shown on list cards
type ListCounts struct {
	Services      int `json:"services"`
	Votes         int `json:"votes"`
	Collaborators int `json:"collaborators"`
}

// List represents a user-owned collection of services under evaluation
type List struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	OwnerID     string      `json:"owner_id"`
	Categories  []string    `json:"categories"`
	IsPublic    bool        `json:"is_public"`
	Counts      *ListCounts `json:"_count,omitempty"`
}

// ListDetail is a list together with its services and collaborators
type ListDetail struct {
	List
	Services      []*Service      `json:"services"`
	Collaborators []*Collaborator `json:"collaborators"`
}

// NewList holds the fields supplied when creating a list
type NewList struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	OwnerID     string   `json:"owner_id"`
	Categories  []string `json:"categories"`
	IsPublic    bool     `json:"is_public"`
}

// ListUpdate represents partial updates to a list. Pointer fields
// allow distinguishing between "not provided" (nil) and "set to empty".
type ListUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Categories  *[]string `json:"categories,omitempty"`
	IsPublic    *bool     `json:"is_public,omitempty"`
}

// ServiceCounts holds per-service vote and comment counts
type ServiceCounts struct {
	Votes    int `json:"votes"`
	Comments int `json:"comments"`
}

// Service represents an item within a list
type Service struct {
	ID          string         `json:"id"`
	ListID      string         `json:"list_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Features    []string       `json:"features"`
	Pricing     string         `json:"pricing"`
	LogoURL     string         `json:"logo_url,omitempty"`
	VideoURL    string         `json:"video_url,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CreatedBy   string         `json:"created_by"`
	Votes       []*Vote        `json:"votes,omitempty"`
	Comments    []*Comment     `json:"comments,omitempty"`
	Counts      *ServiceCounts `json:"_count,omitempty"`
}

// NewService holds the fields supplied when creating a service
type NewService struct {
	ListID      string   `json:"list_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Pricing     string   `json:"pricing"`
	LogoURL     string   `json:"logo_url,omitempty"`
	VideoURL    string   `json:"video_url,omitempty"`
	CreatedBy   string   `json:"created_by"`
}

// ServiceUpdate represents partial updates to a service.
type ServiceUpdate struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Features    *[]string `json:"features,omitempty"`
	Pricing     *string   `json:"pricing,omitempty"`
	LogoURL     *string   `json:"logo_url,omitempty"`
	VideoURL    *string   `json:"video_url,omitempty"`
}

// Vote is a signed unit vote by one user on one service
type Vote struct {
	ID        string    `json:"id"`
	ServiceID string    `json:"service_id"`
	UserID    string    `json:"user_id"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment represents a user comment on a service
type Comment struct {
	ID        string          `json:"id"`
	ServiceID string          `json:"service_id"`
	UserID    string          `json:"user_id"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Author    *ProfileSummary `json:"user,omitempty"`
}

// Collaborator grants a user access to a list
type Collaborator struct {
	ListID    string          `json:"list_id"`
	UserID    string          `json:"user_id"`
	Role      Role            `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
	User      *ProfileSummary `json:"user,omitempty"`
}
