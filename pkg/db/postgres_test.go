package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	store := newPostgresStore(conn)
	store.now = func() time.Time { return fixedNow }
	store.newID = func() string { return "generated-id" }
	return store, mock
}

var listRowColumns = []string{
	"id", "title", "description", "created_at", "updated_at", "owner_id",
	"categories", "is_public", "services", "votes", "collaborators",
}

func TestUpsertVoteReplacesPreviousValue(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	columns := []string{"id", "service_id", "user_id", "value", "created_at"}
	upsert := `INSERT INTO votes .* ON CONFLICT \(service_id, user_id\) DO UPDATE SET value = EXCLUDED.value`

	mock.ExpectQuery(upsert).
		WithArgs("generated-id", "svc-1", "user-1", 1, fixedNow).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("vote-1", "svc-1", "user-1", 1, fixedNow))
	mock.ExpectQuery(upsert).
		WithArgs("generated-id", "svc-1", "user-1", -1, fixedNow).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("vote-1", "svc-1", "user-1", -1, fixedNow))

	first, err := store.UpsertVote(ctx, "svc-1", "user-1", 1)
	require.NoError(t, err)
	second, err := store.UpsertVote(ctx, "svc-1", "user-1", -1)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, -1, second.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertVoteRejectsInvalidValue(t *testing.T) {
	store, mock := newMockStore(t)

	for _, v := range []int{0, 2, -2} {
		_, err := store.UpsertVote(context.Background(), "svc-1", "user-1", v)
		assert.ErrorIs(t, err, ErrInvalidVote)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchListsMatchesTitleAndDescription(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE l.title ILIKE \$1 OR l.description ILIKE \$1 ORDER BY l.updated_at DESC`).
		WithArgs("%cloud%").
		WillReturnRows(sqlmock.NewRows(listRowColumns).
			AddRow("list-1", "Cloud Storage Solutions", "Comparing providers", fixedNow, fixedNow, "user-1", "{storage,cloud}", true, 2, 5, 1))

	lists, err := store.SearchLists(context.Background(), "  cloud ")
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "Cloud Storage Solutions", lists[0].Title)
	assert.Equal(t, []string{"storage", "cloud"}, lists[0].Categories)
	assert.Equal(t, &ListCounts{Services: 2, Votes: 5, Collaborators: 1}, lists[0].Counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchListsBlankQuerySkipsBackend(t *testing.T) {
	store, mock := newMockStore(t)

	lists, err := store.SearchLists(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, lists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%tools%", likePattern("tools"))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%c:\\d%`, likePattern(`c:\d`))
}

func TestListListsOrdersByUpdatedAt(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM lists l ORDER BY l.updated_at DESC`).
		WillReturnRows(sqlmock.NewRows(listRowColumns).
			AddRow("list-2", "Design Tools", "Tools for designers", fixedNow, fixedNow, "user-1", "{}", false, 0, 0, 1).
			AddRow("list-1", "Email Marketing Tools", "Newsletters", fixedNow, fixedNow.Add(-time.Hour), "user-2", "{email}", true, 1, 0, 1))

	lists, err := store.ListLists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, "list-2", lists[0].ID)
	assert.Equal(t, []string{}, lists[0].Categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateListAddsOwnerCollaborator(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO lists`).
		WithArgs("generated-id", "Design Tools", "Tools for designers", fixedNow, fixedNow, "user-1", sqlmock.AnyArg(), false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO collaborators`).
		WithArgs("generated-id", "user-1", RoleOwner, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	list, err := store.CreateList(context.Background(), &NewList{
		Title:       "Design Tools",
		Description: "Tools for designers",
		OwnerID:     "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "generated-id", list.ID)
	assert.Equal(t, []string{}, list.Categories)
	assert.Equal(t, 1, list.Counts.Collaborators)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateListRollsBackWhenOwnerInsertFails(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO lists`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO collaborators`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := store.CreateList(context.Background(), &NewList{Title: "t", Description: "description", OwnerID: "u"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateListBuildsPartialSet(t *testing.T) {
	store, mock := newMockStore(t)
	title := "New title"

	mock.ExpectQuery(`UPDATE lists l SET title = \$1, updated_at = \$2 WHERE l.id = \$3 RETURNING`).
		WithArgs(title, fixedNow, "list-1").
		WillReturnRows(sqlmock.NewRows(listRowColumns).
			AddRow("list-1", title, "desc", fixedNow, fixedNow, "user-1", "{}", false, 0, 0, 1))

	list, err := store.UpdateList(context.Background(), "list-1", &ListUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, list.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateListNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	public := true

	mock.ExpectQuery(`UPDATE lists l SET is_public = \$1`).
		WillReturnRows(sqlmock.NewRows(listRowColumns))

	_, err := store.UpdateList(context.Background(), "missing", &ListUpdate{IsPublic: &public})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM lists WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM services WHERE id = \$1`).
		WithArgs("svc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.ErrorIs(t, store.DeleteList(context.Background(), "missing"), ErrNotFound)
	assert.NoError(t, store.DeleteService(context.Background(), "svc-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

var commentRowColumns = []string{
	"id", "service_id", "user_id", "content", "created_at", "updated_at",
	"profile_id", "full_name", "avatar_url",
}

func TestUpdateCommentBumpsUpdatedAt(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE comments SET content = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs("edited", fixedNow, "comment-1").
		WillReturnRows(sqlmock.NewRows(commentRowColumns).
			AddRow("comment-1", "svc-1", "user-1", "edited", fixedNow.Add(-time.Hour), fixedNow, "user-1", "Ada", "https://example.com/a.png"))

	c, err := store.UpdateComment(context.Background(), "comment-1", "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", c.Content)
	assert.Equal(t, fixedNow, c.UpdatedAt)
	require.NotNil(t, c.Author)
	assert.Equal(t, "Ada", c.Author.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCommentsWithoutProfile(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE c.service_id = \$1 ORDER BY c.created_at ASC`).
		WithArgs("svc-1").
		WillReturnRows(sqlmock.NewRows(commentRowColumns).
			AddRow("comment-1", "svc-1", "user-9", "first", fixedNow, fixedNow, nil, nil, nil))

	comments, err := store.ListComments(context.Background(), "svc-1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Nil(t, comments[0].Author)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var collaboratorRowColumns = []string{
	"list_id", "user_id", "role", "created_at", "profile_id", "full_name", "avatar_url",
}

func TestInviteCollaboratorUnknownEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO collaborators .* FROM profiles p WHERE lower\(p.email\) = lower\(\$4\)`).
		WithArgs("list-1", RoleEditor, fixedNow, "nobody@example.com").
		WillReturnRows(sqlmock.NewRows(collaboratorRowColumns))

	_, err := store.InviteCollaborator(context.Background(), "list-1", " nobody@example.com ", RoleEditor)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteCollaboratorDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO collaborators`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.InviteCollaborator(context.Background(), "list-1", "ada@example.com", RoleViewer)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteCollaboratorRejectsOwnerRole(t *testing.T) {
	store, mock := newMockStore(t)

	_, err := store.InviteCollaborator(context.Background(), "list-1", "ada@example.com", RoleOwner)
	assert.ErrorIs(t, err, ErrOwnerRole)
	_, err = store.InviteCollaborator(context.Background(), "list-1", "ada@example.com", Role("admin"))
	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveCollaboratorOwnerIsRejected(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM collaborators WHERE list_id = \$1 AND user_id = \$2 AND role <> 'owner'`).
		WithArgs("list-1", "owner-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT role FROM collaborators`).
		WithArgs("list-1", "owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("owner"))

	err := store.RemoveCollaborator(context.Background(), "list-1", "owner-1")
	assert.ErrorIs(t, err, ErrOwnerRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCollaboratorRoleMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE collaborators SET role = \$1`).
		WithArgs(RoleViewer, "list-1", "user-2").
		WillReturnRows(sqlmock.NewRows(collaboratorRowColumns))
	mock.ExpectQuery(`SELECT role FROM collaborators`).
		WithArgs("list-1", "user-2").
		WillReturnRows(sqlmock.NewRows([]string{"role"}))

	_, err := store.UpdateCollaboratorRole(context.Background(), "list-1", "user-2", RoleViewer)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateLeavesOtherErrors(t *testing.T) {
	other := errors.New("connection reset")
	assert.Same(t, other, translate(other))
	assert.ErrorIs(t, translate(&pq.Error{Code: "23505"}), ErrConflict)
	assert.NotErrorIs(t, translate(&pq.Error{Code: "23503"}), ErrConflict)
}

func TestTranslateForeignKeyViolation(t *testing.T) {
	assert.ErrorIs(t, translate(&pq.Error{Code: "23503"}), ErrNotFound)
	assert.NotErrorIs(t, translate(&pq.Error{Code: "23514"}), ErrNotFound)
}

func TestUpsertVoteMissingService(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO votes`).
		WithArgs("generated-id", "missing", "user-1", 1, fixedNow).
		WillReturnError(&pq.Error{Code: "23503"})

	_, err := store.UpsertVote(context.Background(), "missing", "user-1", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateListWithoutOwnerProfile(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO lists`).WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	_, err := store.CreateList(context.Background(), &NewList{Title: "Design Tools", Description: "Tools for designers", OwnerID: "ghost"})
	assert.ErrorIs(t, err, ErrProfileRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var profileRowColumns = []string{"id", "email", "full_name", "avatar_url"}

func TestUpsertProfile(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO profiles .* ON CONFLICT \(id\) DO UPDATE SET email = EXCLUDED.email`).
		WithArgs("user-1", "ada@example.com", "Ada", "").
		WillReturnRows(sqlmock.NewRows(profileRowColumns).AddRow("user-1", "ada@example.com", "Ada", ""))

	p, err := store.UpsertProfile(context.Background(), &Profile{ID: "user-1", Email: "ada@example.com", FullName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertProfileEmailTaken(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO profiles`).WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.UpsertProfile(context.Background(), &Profile{ID: "user-2", Email: "ada@example.com"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfileNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, email, full_name, avatar_url FROM profiles WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(profileRowColumns))

	_, err := store.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var serviceRowColumns = []string{
	"id", "list_id", "name", "description", "features", "pricing",
	"logo_url", "video_url", "created_at", "updated_at", "created_by",
}

var voteRowColumns = []string{"id", "service_id", "user_id", "value", "created_at"}

func serviceSummaryRows() *sqlmock.Rows {
	return sqlmock.NewRows(append(append([]string{}, serviceRowColumns...), "votes", "comments")).
		AddRow("svc-2", "list-1", "Sketch", "Vector design", "{}", "Paid", "", "", fixedNow, fixedNow, "user-1", 0, 0).
		AddRow("svc-1", "list-1", "Figma", "Collaborative design", "{prototyping,plugins}", "Free", "", "", fixedNow.Add(-time.Hour), fixedNow.Add(-time.Hour), "user-1", 2, 1)
}

func TestListServicesGroupsNestedRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM services s WHERE s.list_id = \$1 ORDER BY s.created_at DESC`).
		WithArgs("list-1").
		WillReturnRows(serviceSummaryRows())
	mock.ExpectQuery(`FROM votes v JOIN services s ON s.id = v.service_id WHERE s.list_id = \$1 ORDER BY v.created_at ASC`).
		WithArgs("list-1").
		WillReturnRows(sqlmock.NewRows(voteRowColumns).
			AddRow("vote-1", "svc-1", "user-1", 1, fixedNow.Add(-time.Minute)).
			AddRow("vote-2", "svc-1", "user-2", -1, fixedNow))
	mock.ExpectQuery(`FROM comments c JOIN services s ON s.id = c.service_id LEFT JOIN profiles p ON p.id = c.user_id WHERE s.list_id = \$1 ORDER BY c.created_at ASC`).
		WithArgs("list-1").
		WillReturnRows(sqlmock.NewRows(commentRowColumns).
			AddRow("comment-1", "svc-1", "user-2", "Great for teams", fixedNow, fixedNow, "user-2", "Bob", ""))
	mock.ExpectCommit()

	services, err := store.ListServices(context.Background(), "list-1")
	require.NoError(t, err)
	require.Len(t, services, 2)

	sketch, figma := services[0], services[1]
	assert.Equal(t, "svc-2", sketch.ID)
	assert.Equal(t, []*Vote{}, sketch.Votes)
	assert.Equal(t, []*Comment{}, sketch.Comments)
	assert.Equal(t, []string{}, sketch.Features)
	assert.Equal(t, &ServiceCounts{}, sketch.Counts)

	assert.Equal(t, "svc-1", figma.ID)
	assert.Equal(t, []string{"prototyping", "plugins"}, figma.Features)
	require.Len(t, figma.Votes, 2)
	assert.Equal(t, "vote-1", figma.Votes[0].ID)
	assert.Equal(t, -1, figma.Votes[1].Value)
	require.Len(t, figma.Comments, 1)
	assert.Equal(t, "Bob", figma.Comments[0].Author.FullName)
	assert.Equal(t, &ServiceCounts{Votes: 2, Comments: 1}, figma.Counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListServicesEmptyList(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM services s WHERE s.list_id = \$1`).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, serviceRowColumns...), "votes", "comments")))
	mock.ExpectQuery(`FROM votes v`).WillReturnRows(sqlmock.NewRows(voteRowColumns))
	mock.ExpectQuery(`FROM comments c`).WillReturnRows(sqlmock.NewRows(commentRowColumns))
	mock.ExpectCommit()

	services, err := store.ListServices(context.Background(), "list-1")
	require.NoError(t, err)
	assert.Equal(t, []*Service{}, services)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetListNestsServicesAndCollaborators(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM lists l WHERE l.id = \$1`).
		WithArgs("list-1").
		WillReturnRows(sqlmock.NewRows(listRowColumns).
			AddRow("list-1", "Design Tools", "Tools for designers", fixedNow, fixedNow, "user-1", "{design}", true, 2, 2, 2))
	mock.ExpectQuery(`FROM services s WHERE s.list_id = \$1 ORDER BY s.created_at DESC`).
		WithArgs("list-1").
		WillReturnRows(serviceSummaryRows())
	mock.ExpectQuery(`FROM collaborators c LEFT JOIN profiles p ON p.id = c.user_id WHERE c.list_id = \$1`).
		WithArgs("list-1").
		WillReturnRows(sqlmock.NewRows(collaboratorRowColumns).
			AddRow("list-1", "user-1", "owner", fixedNow, "user-1", "Ada", "").
			AddRow("list-1", "user-2", "editor", fixedNow, nil, nil, nil))
	mock.ExpectCommit()

	detail, err := store.GetList(context.Background(), "list-1")
	require.NoError(t, err)
	assert.Equal(t, "Design Tools", detail.Title)
	assert.Equal(t, &ListCounts{Services: 2, Votes: 2, Collaborators: 2}, detail.Counts)

	require.Len(t, detail.Services, 2)
	assert.Equal(t, "svc-2", detail.Services[0].ID)
	assert.Equal(t, &ServiceCounts{Votes: 2, Comments: 1}, detail.Services[1].Counts)

	require.Len(t, detail.Collaborators, 2)
	assert.Equal(t, RoleOwner, detail.Collaborators[0].Role)
	assert.Equal(t, "Ada", detail.Collaborators[0].User.FullName)
	assert.Nil(t, detail.Collaborators[1].User)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetListNotFoundRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM lists l WHERE l.id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(listRowColumns))
	mock.ExpectRollback()

	_, err := store.GetList(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
