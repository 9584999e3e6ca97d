// Package forms binds submitted HTML forms and turns validator failures into
// per-field messages that templates render inline.
package forms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// PostForm carries the user-editable fields of a post. The author is never
// bound from the request.
type PostForm struct {
	Text  string `form:"text" binding:"required"`
	Group string `form:"group"`
}

func (f *PostForm) Clean() error {
	f.Text = strings.TrimSpace(f.Text)
	f.Group = strings.TrimSpace(f.Group)
	if f.Text == "" {
		return Invalid("text", "This field is required.")
	}
	return nil
}

type CommentForm struct {
	Text string `form:"text" binding:"required,max=200"`
}

func (f *CommentForm) Clean() error {
	f.Text = strings.TrimSpace(f.Text)
	if f.Text == "" {
		return Invalid("text", "This field is required.")
	}
	return nil
}

type GroupForm struct {
	Title       string `form:"title" binding:"required,max=200"`
	Slug        string `form:"slug" binding:"required,max=50,slug"`
	Description string `form:"description" binding:"required"`
}

func (f *GroupForm) Clean() error {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	if f.Title == "" {
		return Invalid("title", "This field is required.")
	}
	return nil
}

type SignupForm struct {
	Username        string `form:"username" binding:"required,max=150,username"`
	Email           string `form:"email" binding:"omitempty,email"`
	Password        string `form:"password" binding:"required,min=8"`
	PasswordConfirm string `form:"password_confirm" binding:"required,eqfield=Password"`
}

type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// ValidationError maps form field names to a human readable message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Invalid builds a single-field validation error.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

type cleaner interface {
	Clean() error
}

// Bind fills dst from the request form and returns a *ValidationError when
// any field fails its rules.
func Bind(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBind(dst); err != nil {
		return FromError(err)
	}
	if cl, ok := dst.(cleaner); ok {
		return cl.Clean()
	}
	return nil
}

// Validate checks a struct filled outside a request, e.g. from CLI flags,
// with the same rules Bind applies.
func Validate(dst interface{}) error {
	if err := binding.Validator.ValidateStruct(dst); err != nil {
		return FromError(err)
	}
	if cl, ok := dst.(cleaner); ok {
		return cl.Clean()
	}
	return nil
}

// FromError converts binding errors to a *ValidationError, leaving other
// errors untouched.
func FromError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		name := formName(fe)
		if _, exists := out.Fields[name]; !exists {
			out.Fields[name] = message(fe)
		}
	}
	return out
}

// Messages returns the field messages carried by err, or nil.
func Messages(err error) map[string]string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}

func formName(fe validator.FieldError) string {
	switch fe.Field() {
	case "PasswordConfirm":
		return "password_confirm"
	default:
		return strings.ToLower(fe.Field())
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "The two password fields didn't match."
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "username":
		return "Enter a valid username. Letters, digits and @/./+/-/_ only."
	default:
		return "Enter a valid value."
	}
}
