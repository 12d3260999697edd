package services

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"cloud-backend/internal/dto"

	"github.com/hashicorp/go-multierror"
)

const (
	maxUsernameLength = 150
	maxFilenameLength = 100
	maxCommentLength  = 255
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

type validator struct {
	errs *multierror.Error
}

func (v *validator) check(ok bool, field, message string) {
	if !ok {
		v.errs = multierror.Append(v.errs, &FieldError{Field: field, Message: message})
	}
}

func (v *validator) err() error {
	if v.errs == nil {
		return nil
	}
	return &ValidationError{errs: v.errs}
}

func (v *validator) username(username string) {
	v.check(username != "", "username", "this field is required")
	v.check(utf8.RuneCountInString(username) <= maxUsernameLength, "username", "must be at most 150 characters")
	if username != "" {
		v.check(usernamePattern.MatchString(username), "username", "may contain only letters, digits and @/./+/-/_")
		v.check(username != "." && username != "..", "username", "is reserved")
	}
}

func (v *validator) email(email string) {
	v.check(email != "", "email", "this field is required")
	if email != "" {
		addr, err := mail.ParseAddress(email)
		v.check(err == nil && addr.Address == email, "email", "enter a valid email address")
	}
}

func (v *validator) filename(field, name string) {
	v.check(name != "", field, "this field is required")
	v.check(utf8.RuneCountInString(name) <= maxFilenameLength, field, "file name must be at most 100 characters")
	if name != "" {
		v.check(!strings.ContainsAny(name, `/\`), field, "file name must not contain path separators")
		v.check(name != "." && name != "..", field, "file name is reserved")
		v.check(strings.IndexFunc(name, unicode.IsControl) < 0, field, "file name contains invalid characters")
	}
}

func (v *validator) comment(comment string) {
	v.check(utf8.RuneCountInString(comment) <= maxCommentLength, "comment", "must be at most 255 characters")
}

func validateRegistration(req *dto.RegisterUserRequest) error {
	v := &validator{}
	v.username(req.Username)
	v.email(req.Email)
	v.check(req.Password != "", "password", "this field is required")
	return v.err()
}

func validateUserUpdate(req *dto.UpdateUserRequest) error {
	v := &validator{}
	if req.Email != nil {
		v.email(*req.Email)
	}
	if req.Password != nil {
		v.check(*req.Password != "", "password", "must not be empty")
	}
	if req.Role != nil {
		v.check(req.Role.Valid(), "role", "must be either user or admin")
	}
	return v.err()
}

func validateFileUpdate(req *dto.UpdateFileRequest) error {
	v := &validator{}
	if req.Filename != nil {
		v.filename("filename", *req.Filename)
	}
	if req.Comment != nil {
		v.comment(*req.Comment)
	}
	if req.ExternalLinkKey != nil {
		v.check(*req.ExternalLinkKey == "", "external_link_key", "can only be cleared; use the link endpoint to generate one")
	}
	return v.err()
}
