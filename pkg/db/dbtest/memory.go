// Package dbtest provides an in-memory db.IStore for tests.
package dbtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"collab-lists/pkg/db"
)

// MemoryStore implements db.IStore on maps. It mirrors the constraints the
// Postgres schema enforces: one vote per (service, user), one owner per
// list, cascading deletes.
type MemoryStore struct {
	mu            sync.Mutex
	seq           int
	clock         time.Time
	profiles      map[string]*db.Profile
	lists         map[string]*db.List
	services      map[string]*db.Service
	votes         map[voteKey]*db.Vote
	comments      map[string]*db.Comment
	collaborators map[collabKey]*db.Collaborator

	// Err, when set, is returned by every operation.
	Err error
}

type voteKey struct{ serviceID, userID string }

type collabKey struct{ listID, userID string }

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clock:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		profiles:      make(map[string]*db.Profile),
		lists:         make(map[string]*db.List),
		services:      make(map[string]*db.Service),
		votes:         make(map[voteKey]*db.Vote),
		comments:      make(map[string]*db.Comment),
		collaborators: make(map[collabKey]*db.Collaborator),
	}
}

// AddProfile registers a user that invites can resolve.
func (m *MemoryStore) AddProfile(p db.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = &p
}

func (m *MemoryStore) GetProfile(ctx context.Context, id string) (*db.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *MemoryStore) UpsertProfile(ctx context.Context, in *db.Profile) (*db.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.profiles {
		if p.ID != in.ID && strings.EqualFold(p.Email, in.Email) {
			return nil, db.ErrConflict
		}
	}
	p := *in
	m.profiles[p.ID] = &p
	out := p
	return &out, nil
}

// VoteRows returns the stored vote rows for a (service, user) pair.
func (m *MemoryStore) VoteRows(serviceID, userID string) []db.Vote {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []db.Vote
	for k, v := range m.votes {
		if k.serviceID == serviceID && k.userID == userID {
			rows = append(rows, *v)
		}
	}
	return rows
}

// tick returns a strictly increasing timestamp so orderings are stable.
func (m *MemoryStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *MemoryStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *MemoryStore) summary(userID string) *db.ProfileSummary {
	p, ok := m.profiles[userID]
	if !ok {
		return nil
	}
	return &db.ProfileSummary{FullName: p.FullName, AvatarURL: p.AvatarURL}
}

func (m *MemoryStore) listWithCounts(l *db.List) *db.List {
	out := *l
	out.Categories = append([]string{}, l.Categories...)
	counts := &db.ListCounts{}
	for _, s := range m.services {
		if s.ListID != l.ID {
			continue
		}
		counts.Services++
		for k := range m.votes {
			if k.serviceID == s.ID {
				counts.Votes++
			}
		}
	}
	for k := range m.collaborators {
		if k.listID == l.ID {
			counts.Collaborators++
		}
	}
	out.Counts = counts
	return &out
}

func (m *MemoryStore) sortedLists(match func(*db.List) bool) []*db.List {
	lists := []*db.List{}
	for _, l := range m.lists {
		if match(l) {
			lists = append(lists, m.listWithCounts(l))
		}
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].UpdatedAt.After(lists[j].UpdatedAt) })
	return lists
}

func (m *MemoryStore) ListLists(ctx context.Context) ([]*db.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.sortedLists(func(*db.List) bool { return true }), nil
}

func (m *MemoryStore) SearchLists(ctx context.Context, query string) ([]*db.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []*db.List{}, nil
	}
	return m.sortedLists(func(l *db.List) bool {
		return strings.Contains(strings.ToLower(l.Title), q) ||
			strings.Contains(strings.ToLower(l.Description), q)
	}), nil
}

func (m *MemoryStore) GetList(ctx context.Context, id string) (*db.ListDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	l, ok := m.lists[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	detail := &db.ListDetail{List: *m.listWithCounts(l), Services: []*db.Service{}}
	for _, s := range m.servicesOf(id) {
		svc := *s
		svc.Counts = &db.ServiceCounts{}
		for k := range m.votes {
			if k.serviceID == s.ID {
				svc.Counts.Votes++
			}
		}
		for _, c := range m.comments {
			if c.ServiceID == s.ID {
				svc.Counts.Comments++
			}
		}
		detail.Services = append(detail.Services, &svc)
	}
	detail.Collaborators = m.collaboratorsOf(id)
	return detail, nil
}

func (m *MemoryStore) CreateList(ctx context.Context, in *db.NewList) (*db.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if _, ok := m.profiles[in.OwnerID]; !ok {
		return nil, db.ErrProfileRequired
	}
	now := m.tick()
	l := &db.List{
		ID:          m.nextID("list"),
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
		OwnerID:     in.OwnerID,
		Categories:  append([]string{}, in.Categories...),
		IsPublic:    in.IsPublic,
	}
	m.lists[l.ID] = l
	m.collaborators[collabKey{l.ID, in.OwnerID}] = &db.Collaborator{
		ListID: l.ID, UserID: in.OwnerID, Role: db.RoleOwner, CreatedAt: now,
	}
	return m.listWithCounts(l), nil
}

func (m *MemoryStore) UpdateList(ctx context.Context, id string, u *db.ListUpdate) (*db.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	l, ok := m.lists[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	changed := false
	if u.Title != nil {
		l.Title, changed = *u.Title, true
	}
	if u.Description != nil {
		l.Description, changed = *u.Description, true
	}
	if u.Categories != nil {
		l.Categories, changed = append([]string{}, *u.Categories...), true
	}
	if u.IsPublic != nil {
		l.IsPublic, changed = *u.IsPublic, true
	}
	if changed {
		l.UpdatedAt = m.tick()
	}
	return m.listWithCounts(l), nil
}

func (m *MemoryStore) DeleteList(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.lists[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.lists, id)
	for _, s := range m.servicesOf(id) {
		m.deleteServiceLocked(s.ID)
	}
	for k := range m.collaborators {
		if k.listID == id {
			delete(m.collaborators, k)
		}
	}
	return nil
}

func (m *MemoryStore) servicesOf(listID string) []*db.Service {
	services := []*db.Service{}
	for _, s := range m.services {
		if s.ListID == listID {
			services = append(services, s)
		}
	}
	sort.Slice(services, func(i, j int) bool { return services[i].CreatedAt.After(services[j].CreatedAt) })
	return services
}

func (m *MemoryStore) commentsOf(serviceID string) []*db.Comment {
	comments := []*db.Comment{}
	for _, c := range m.comments {
		if c.ServiceID == serviceID {
			out := *c
			out.Author = m.summary(c.UserID)
			comments = append(comments, &out)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments
}

func (m *MemoryStore) ListServices(ctx context.Context, listID string) ([]*db.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []*db.Service{}
	for _, s := range m.servicesOf(listID) {
		svc := *s
		svc.Votes = []*db.Vote{}
		for k, v := range m.votes {
			if k.serviceID == s.ID {
				vote := *v
				svc.Votes = append(svc.Votes, &vote)
			}
		}
		sort.Slice(svc.Votes, func(i, j int) bool { return svc.Votes[i].CreatedAt.Before(svc.Votes[j].CreatedAt) })
		svc.Comments = m.commentsOf(s.ID)
		svc.Counts = &db.ServiceCounts{Votes: len(svc.Votes), Comments: len(svc.Comments)}
		out = append(out, &svc)
	}
	return out, nil
}

func (m *MemoryStore) GetService(ctx context.Context, id string) (*db.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.services[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	out := *s
	out.Features = append([]string{}, s.Features...)
	return &out, nil
}

func (m *MemoryStore) CreateService(ctx context.Context, in *db.NewService) (*db.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if _, ok := m.lists[in.ListID]; !ok {
		return nil, db.ErrNotFound
	}
	now := m.tick()
	s := &db.Service{
		ID:          m.nextID("service"),
		ListID:      in.ListID,
		Name:        in.Name,
		Description: in.Description,
		Features:    append([]string{}, in.Features...),
		Pricing:     in.Pricing,
		LogoURL:     in.LogoURL,
		VideoURL:    in.VideoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   in.CreatedBy,
	}
	m.services[s.ID] = s
	out := *s
	return &out, nil
}

func (m *MemoryStore) UpdateService(ctx context.Context, id string, u *db.ServiceUpdate) (*db.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.services[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.Features != nil {
		s.Features = append([]string{}, *u.Features...)
	}
	if u.Pricing != nil {
		s.Pricing = *u.Pricing
	}
	if u.LogoURL != nil {
		s.LogoURL = *u.LogoURL
	}
	if u.VideoURL != nil {
		s.VideoURL = *u.VideoURL
	}
	s.UpdatedAt = m.tick()
	out := *s
	return &out, nil
}

func (m *MemoryStore) DeleteService(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.services[id]; !ok {
		return db.ErrNotFound
	}
	m.deleteServiceLocked(id)
	return nil
}

func (m *MemoryStore) deleteServiceLocked(id string) {
	delete(m.services, id)
	for k := range m.votes {
		if k.serviceID == id {
			delete(m.votes, k)
		}
	}
	for cid, c := range m.comments {
		if c.ServiceID == id {
			delete(m.comments, cid)
		}
	}
}

func (m *MemoryStore) ListComments(ctx context.Context, serviceID string) ([]*db.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.commentsOf(serviceID), nil
}

func (m *MemoryStore) CreateComment(ctx context.Context, serviceID, userID, content string) (*db.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if _, ok := m.services[serviceID]; !ok {
		return nil, db.ErrNotFound
	}
	now := m.tick()
	c := &db.Comment{
		ID:        m.nextID("comment"),
		ServiceID: serviceID,
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.comments[c.ID] = c
	out := *c
	out.Author = m.summary(userID)
	return &out, nil
}

func (m *MemoryStore) UpdateComment(ctx context.Context, id, content string) (*db.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	c, ok := m.comments[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	c.Content = content
	c.UpdatedAt = m.tick()
	out := *c
	out.Author = m.summary(c.UserID)
	return &out, nil
}

func (m *MemoryStore) DeleteComment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.comments[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

func (m *MemoryStore) UpsertVote(ctx context.Context, serviceID, userID string, value int) (*db.Vote, error) {
	if err := db.ValidateVote(value); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if _, ok := m.services[serviceID]; !ok {
		return nil, db.ErrNotFound
	}
	key := voteKey{serviceID, userID}
	v, ok := m.votes[key]
	if !ok {
		v = &db.Vote{ID: m.nextID("vote"), ServiceID: serviceID, UserID: userID, CreatedAt: m.tick()}
		m.votes[key] = v
	}
	v.Value = value
	out := *v
	return &out, nil
}

func (m *MemoryStore) collaboratorsOf(listID string) []*db.Collaborator {
	out := []*db.Collaborator{}
	for k, c := range m.collaborators {
		if k.listID == listID {
			collab := *c
			collab.User = m.summary(c.UserID)
			out = append(out, &collab)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *MemoryStore) ListCollaborators(ctx context.Context, listID string) ([]*db.Collaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.collaboratorsOf(listID), nil
}

func (m *MemoryStore) InviteCollaborator(ctx context.Context, listID, email string, role db.Role) (*db.Collaborator, error) {
	if err := db.ValidateInviteRole(role); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var profile *db.Profile
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, strings.TrimSpace(email)) {
			profile = p
			break
		}
	}
	if profile == nil {
		return nil, db.ErrUserNotFound
	}
	key := collabKey{listID, profile.ID}
	if _, exists := m.collaborators[key]; exists {
		return nil, db.ErrConflict
	}
	c := &db.Collaborator{ListID: listID, UserID: profile.ID, Role: role, CreatedAt: m.tick()}
	m.collaborators[key] = c
	out := *c
	out.User = m.summary(profile.ID)
	return &out, nil
}

func (m *MemoryStore) UpdateCollaboratorRole(ctx context.Context, listID, userID string, role db.Role) (*db.Collaborator, error) {
	if err := db.ValidateInviteRole(role); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	c, ok := m.collaborators[collabKey{listID, userID}]
	if !ok {
		return nil, db.ErrNotFound
	}
	if c.Role == db.RoleOwner {
		return nil, db.ErrOwnerRole
	}
	c.Role = role
	out := *c
	out.User = m.summary(userID)
	return &out, nil
}

func (m *MemoryStore) RemoveCollaborator(ctx context.Context, listID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	key := collabKey{listID, userID}
	c, ok := m.collaborators[key]
	if !ok {
		return db.ErrNotFound
	}
	if c.Role == db.RoleOwner {
		return db.ErrOwnerRole
	}
	delete(m.collaborators, key)
	return nil
}

var _ db.IStore = (*MemoryStore)(nil)
