// Package forms validates and normalizes user-submitted form input
// before it reaches the data-access layer.
package forms

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"collab-lists/pkg/db"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Error carries per-field messages for inline display.
type Error struct {
	Fields map[string]string `json:"fields"`
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// ServiceForm is the raw add/edit service form
type ServiceForm struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"min=10,max=500"`
	Features    string `json:"features"`
	Pricing     string `json:"pricing" validate:"required"`
	Logo        string `json:"logo" validate:"omitempty,url"`
	VideoURL    string `json:"videoUrl" validate:"omitempty,url"`
}

// ServiceInput is a validated ServiceForm
type ServiceInput struct {
	Name        string
	Description string
	Features    []string
	Pricing     string
	LogoURL     string
	VideoURL    string
}

// Parse validates the form and splits features on newlines.
func (f ServiceForm) Parse() (*ServiceInput, error) {
	if err := check(f); err != nil {
		return nil, err
	}
	return &ServiceInput{
		Name:        f.Name,
		Description: f.Description,
		Features:    splitNonEmpty(f.Features, "\n"),
		Pricing:     f.Pricing,
		LogoURL:     f.Logo,
		VideoURL:    f.VideoURL,
	}, nil
}

// ListForm is the raw create/edit list form
type ListForm struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"min=10,max=500"`
	Categories  string `json:"categories"`
	IsPublic    bool   `json:"is_public"`
}

// ListInput is a validated ListForm
type ListInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	IsPublic    bool     `json:"is_public"`
}

// Parse validates the form and splits categories on commas.
func (f ListForm) Parse() (*ListInput, error) {
	if err := check(f); err != nil {
		return nil, err
	}
	in := f.Input()
	return &in, nil
}

// Input normalizes the form without validating it, for drafts that are
// still being edited.
func (f ListForm) Input() ListInput {
	return ListInput{
		Title:       f.Title,
		Description: f.Description,
		Categories:  splitNonEmpty(f.Categories, ","),
		IsPublic:    f.IsPublic,
	}
}

// InviteForm is the collaborator invite form
type InviteForm struct {
	Email string  `json:"email" validate:"required,email"`
	Role  db.Role `json:"role" validate:"oneof=editor viewer"`
}

// Validate checks the email and that the role is grantable.
func (f InviteForm) Validate() error {
	return check(f)
}

// RoleForm is the change-role form
type RoleForm struct {
	Role db.Role `json:"role" validate:"oneof=editor viewer"`
}

func (f RoleForm) Validate() error {
	return check(f)
}

// CommentForm is the add/edit comment form
type CommentForm struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (f CommentForm) Validate() error {
	if strings.TrimSpace(f.Content) == "" {
		return &Error{Fields: map[string]string{"content": "Comment cannot be empty"}}
	}
	return check(f)
}

// ProfileForm is the edit-profile form
type ProfileForm struct {
	Email     string `json:"email" validate:"required,email"`
	FullName  string `json:"full_name" validate:"max=100"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

func (f ProfileForm) Validate() error {
	return check(f)
}

// Profile validates the form and builds the profile row for userID.
func (f ProfileForm) Profile(userID string) (*db.Profile, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &db.Profile{
		ID:        userID,
		Email:     strings.TrimSpace(f.Email),
		FullName:  strings.TrimSpace(f.FullName),
		AvatarURL: f.AvatarURL,
	}, nil
}

// splitNonEmpty splits s on sep, trims every part and drops empty ones.
func splitNonEmpty(s, sep string) []string {
	out := []string{}
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := &Error{Fields: make(map[string]string, len(verrs))}
	for _, v := range verrs {
		name := jsonName(v.StructField())
		if _, seen := fe.Fields[name]; !seen {
			fe.Fields[name] = message(v)
		}
	}
	return fe
}

var fieldLabels = map[string]string{
	"Name":        "Service name",
	"Title":       "List title",
	"Description": "Description",
	"Pricing":     "Pricing information",
	"Logo":        "Logo",
	"VideoURL":    "Video URL",
	"Email":       "Email",
	"Role":        "Role",
	"Content":     "Comment",
	"FullName":    "Full name",
	"AvatarURL":   "Avatar URL",
}

var jsonNames = map[string]string{
	"VideoURL":  "videoUrl",
	"FullName":  "full_name",
	"AvatarURL": "avatar_url",
}

func jsonName(field string) string {
	if n, ok := jsonNames[field]; ok {
		return n
	}
	return strings.ToLower(field)
}

func message(v validator.FieldError) string {
	label := fieldLabels[v.StructField()]
	if label == "" {
		label = v.StructField()
	}
	switch v.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, v.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, v.Param())
	case "url":
		return label + " must be a valid URL"
	case "email":
		return label + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(v.Param(), " ", ", "))
	}
	return label + " is invalid"
}
