package users

import (
	"regexp"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/saas-dashboard/dashboard/internal/identity"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

type createForm struct {
	Username   string `validate:"required,username"`
	Email      string `validate:"required,email,max=255"`
	Password   string `validate:"required,min=8,max=128,password"`
	Role       string `validate:"required,role"`
	IsActive   bool
	Submission string
}

type editForm struct {
	Role     string `validate:"required,role"`
	IsActive bool
}

var fieldMessages = map[string]string{
	"Username": "Username must be 3-50 characters: letters, digits, underscore or dash.",
	"Email":    "Enter a valid email address.",
	"Password": "Password must be at least 8 characters with an uppercase letter, a lowercase letter and a digit.",
	"Role":     "Choose a role from the list.",
}

// AssignableRoles lists the role names an administrator can pick.
func AssignableRoles() []string {
	return identity.RoleNames(identity.AllRoles())
}

// StrongPassword reports whether p has an uppercase letter, a lowercase
// letter and a digit. Length is checked separately.
func StrongPassword(p string) bool {
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return identity.ParseRole(fl.Field().String()).Known()
	})
	return v
}

func validationErrors(v *validator.Validate, form any) map[string]string {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	errs := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["general"] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		if msg, ok := fieldMessages[fe.Field()]; ok {
			errs[fe.Field()] = msg
			continue
		}
		errs[fe.Field()] = fe.Error()
	}
	return errs
}
