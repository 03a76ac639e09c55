package db

import "context"

// IListStore is the data-access contract for lists
type IListStore interface {
	// ListLists returns every list, most recently updated first.
	ListLists(ctx context.Context) ([]*List, error)
	// GetList returns a list with its services and collaborators.
	GetList(ctx context.Context, id string) (*ListDetail, error)
	// CreateList inserts the list and its owner collaborator row.
	CreateList(ctx context.Context, list *NewList) (*List, error)
	UpdateList(ctx context.Context, id string, updates *ListUpdate) (*List, error)
	DeleteList(ctx context.Context, id string) error
	// SearchLists matches query case-insensitively against title and description.
	SearchLists(ctx context.Context, query string) ([]*List, error)
}

// IServiceStore is the data-access contract for services
type IServiceStore interface {
	// ListServices returns the services of a list, newest first, with
	// their votes and comments attached.
	ListServices(ctx context.Context, listID string) ([]*Service, error)
	GetService(ctx context.Context, id string) (*Service, error)
	CreateService(ctx context.Context, service *NewService) (*Service, error)
	UpdateService(ctx context.Context, id string, updates *ServiceUpdate) (*Service, error)
	DeleteService(ctx context.Context, id string) error
}

// ICommentStore is the data-access contract for comments
type ICommentStore interface {
	// ListComments returns a service's comments, oldest first.
	ListComments(ctx context.Context, serviceID string) ([]*Comment, error)
	CreateComment(ctx context.Context, serviceID, userID, content string) (*Comment, error)
	// UpdateComment replaces the content and bumps updated_at.
	UpdateComment(ctx context.Context, id, content string) (*Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// IVoteStore is the data-access contract for votes
type IVoteStore interface {
	// UpsertVote records value for the (serviceID, userID) pair, replacing
	// any earlier vote by the same user on the same service.
	UpsertVote(ctx context.Context, serviceID, userID string, value int) (*Vote, error)
}

// ICollaboratorStore is the data-access contract for collaborators
type ICollaboratorStore interface {
	ListCollaborators(ctx context.Context, listID string) ([]*Collaborator, error)
	// InviteCollaborator resolves email to a profile and adds it to the list.
	InviteCollaborator(ctx context.Context, listID, email string, role Role) (*Collaborator, error)
	UpdateCollaboratorRole(ctx context.Context, listID, userID string, role Role) (*Collaborator, error)
	RemoveCollaborator(ctx context.Context, listID, userID string) error
}

// IProfileStore is the data-access contract for user profiles
type IProfileStore interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)
	// UpsertProfile creates or replaces the profile keyed by p.ID.
	UpsertProfile(ctx context.Context, p *Profile) (*Profile, error)
}

// IStore aggregates every data-access contract the handlers depend on
type IStore interface {
	IProfileStore
	IListStore
	IServiceStore
	ICommentStore
	IVoteStore
	ICollaboratorStore
}

// ValidateVote checks that value is a signed unit vote.
func ValidateVote(value int) error {
	if value != 1 && value != -1 {
		return ErrInvalidVote
	}
	return nil
}

// ValidateInviteRole checks that role may be granted through an invite
// or a role change. The owner role is reserved for the list creator.
func ValidateInviteRole(role Role) error {
	if role == RoleOwner {
		return ErrOwnerRole
	}
	if !role.Valid() {
		return ErrInvalidRole
	}
	return nil
}
