package forms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var fe *Error
	require.ErrorAs(t, err, &fe)
	return fe.Fields
}

func validServiceForm() ServiceForm {
	return ServiceForm{
		Name:        "Figma",
		Description: "Collaborative interface design tool",
		Features:    "Realtime editing\n\n  Prototyping  \nPlugins\n",
		Pricing:     "Free tier, $12/editor",
	}
}

func TestServiceFormParse(t *testing.T) {
	in, err := validServiceForm().Parse()
	require.NoError(t, err)

	assert.Equal(t, []string{"Realtime editing", "Prototyping", "Plugins"}, in.Features)
	assert.Empty(t, in.LogoURL)
}

func TestServiceFormFeaturesEmpty(t *testing.T) {
	f := validServiceForm()
	f.Features = ""

	in, err := f.Parse()
	require.NoError(t, err)
	assert.Equal(t, []string{}, in.Features)
}

func TestServiceFormErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServiceForm)
		field  string
		msg    string
	}{
		{"missing name", func(f *ServiceForm) { f.Name = "" }, "name", "Service name is required"},
		{"long name", func(f *ServiceForm) { f.Name = strings.Repeat("x", 101) }, "name", "Service name must be at most 100 characters"},
		{"short description", func(f *ServiceForm) { f.Description = "short" }, "description", "Description must be at least 10 characters"},
		{"long description", func(f *ServiceForm) { f.Description = strings.Repeat("x", 501) }, "description", "Description must be at most 500 characters"},
		{"missing pricing", func(f *ServiceForm) { f.Pricing = "" }, "pricing", "Pricing information is required"},
		{"bad logo", func(f *ServiceForm) { f.Logo = "not a url" }, "logo", "Logo must be a valid URL"},
		{"bad video", func(f *ServiceForm) { f.VideoURL = "nope" }, "videoUrl", "Video URL must be a valid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validServiceForm()
			tt.mutate(&f)

			_, err := f.Parse()

			fields := fieldErrors(t, err)
			assert.Equal(t, tt.msg, fields[tt.field])
			assert.Len(t, fields, 1)
		})
	}
}

func TestServiceFormAcceptsURLs(t *testing.T) {
	f := validServiceForm()
	f.Logo = "https://cdn.example.com/logo.png"
	f.VideoURL = "https://video.example.com/watch?v=1"

	in, err := f.Parse()
	require.NoError(t, err)
	assert.Equal(t, f.Logo, in.LogoURL)
	assert.Equal(t, f.VideoURL, in.VideoURL)
}

func TestListFormParse(t *testing.T) {
	in, err := ListForm{
		Title:       "Design Tools",
		Description: "Tools we are evaluating",
		Categories:  " design, ,ux ,,  prototyping",
	}.Parse()
	require.NoError(t, err)

	assert.Equal(t, []string{"design", "ux", "prototyping"}, in.Categories)
}

func TestListFormErrors(t *testing.T) {
	_, err := ListForm{Title: "", Description: "tiny"}.Parse()

	fields := fieldErrors(t, err)
	assert.Equal(t, "List title is required", fields["title"])
	assert.Equal(t, "Description must be at least 10 characters", fields["description"])
	assert.Contains(t, err.Error(), "title: List title is required")
}

func TestInviteForm(t *testing.T) {
	assert.NoError(t, InviteForm{Email: "ada@example.com", Role: "editor"}.Validate())
	assert.NoError(t, InviteForm{Email: "ada@example.com", Role: "viewer"}.Validate())

	fields := fieldErrors(t, InviteForm{Email: "not-an-email", Role: "owner"}.Validate())
	assert.Equal(t, "Email must be a valid email address", fields["email"])
	assert.Equal(t, "Role must be one of: editor, viewer", fields["role"])
}

func TestCommentForm(t *testing.T) {
	assert.NoError(t, CommentForm{Content: "Looks good"}.Validate())

	fields := fieldErrors(t, CommentForm{Content: "   "}.Validate())
	assert.Equal(t, "Comment cannot be empty", fields["content"])
}

func TestProfileForm(t *testing.T) {
	p, err := ProfileForm{Email: "ada@example.com", FullName: "  Ada Lovelace "}.Profile("user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.ID)
	assert.Equal(t, "Ada Lovelace", p.FullName)

	fields := fieldErrors(t, ProfileForm{AvatarURL: "not a url"}.Validate())
	assert.Equal(t, "Email is required", fields["email"])
	assert.Equal(t, "Avatar URL must be a valid URL", fields["avatar_url"])
}
