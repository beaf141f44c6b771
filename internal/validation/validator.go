package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

// DefaultMaxImageBytes matches the "up to 10MB" upload limit.
const DefaultMaxImageBytes int64 = 10 << 20

// Errors maps a form field to its message. A missing key means the field is valid.
type Errors map[string]string

// Valid reports whether no field failed.
func (e Errors) Valid() bool {
	return len(e) == 0
}

// Clear drops the error of one field after the user edits it; siblings keep
// theirs until the next full validation.
func (e Errors) Clear(field string) {
	delete(e, field)
}

// Err converts the map into a VALIDATION_FAILED error, or nil when valid.
func (e Errors) Err() error {
	if e.Valid() {
		return nil
	}
	return apperrors.NewFieldErrors(e)
}

// TextTicketForm is the text submission form.
type TextTicketForm struct {
	Subject       string `json:"subject" validate:"notblank,min=5"`
	Body          string `json:"body" validate:"notblank,min=10"`
	AdminSolution string `json:"admin_solution"`
}

// ImageTicketForm is the screenshot submission form. The image rule needs the
// configured size limit and is checked at struct level.
type ImageTicketForm struct {
	Subject       string              `json:"subject" validate:"notblank"`
	Body          string              `json:"body" validate:"notblank"`
	AdminSolution string              `json:"admin_solution"`
	Image         *domain.ImageUpload `json:"image" validate:"-"`
}

// LoginForm is the login form.
type LoginForm struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

// SignupForm is the registration form.
type SignupForm struct {
	Username string `json:"username" validate:"notblank"`
	Email    string `json:"email" validate:"notblank,email"`
	Password string `json:"password" validate:"notblank"`
	Role     string `json:"role" validate:"required,oneof=user admin"`
}

var labels = map[string]string{
	"subject":  "Subject",
	"body":     "Description",
	"image":    "Screenshot",
	"username": "Username",
	"email":    "Email",
	"password": "Password",
	"role":     "Role",
}

// Validator runs the form rules.
type Validator struct {
	validate      *validator.Validate
	maxImageBytes int64
}

// New builds a validator. maxImageBytes <= 0 uses DefaultMaxImageBytes.
func New(maxImageBytes int64) *Validator {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validateNotBlank)
	_ = v.RegisterValidation("imagetype", validateImageType)

	cv := &Validator{validate: v, maxImageBytes: maxImageBytes}
	v.RegisterStructValidation(cv.validateImageForm, ImageTicketForm{})
	return cv
}

// MaxImageBytes is the configured upload ceiling.
func (v *Validator) MaxImageBytes() int64 {
	return v.maxImageBytes
}

// TextTicket checks subject and description lengths.
func (v *Validator) TextTicket(in domain.TextTicketInput) Errors {
	return v.run(TextTicketForm{Subject: in.Subject, Body: in.Body, AdminSolution: in.AdminSolution})
}

// ImageTicket checks subject, description and the attached screenshot.
func (v *Validator) ImageTicket(in domain.ImageTicketInput) Errors {
	return v.run(ImageTicketForm{Subject: in.Subject, Body: in.Body, AdminSolution: in.AdminSolution, Image: in.Image})
}

// Login checks that both credentials are present.
func (v *Validator) Login(creds domain.Credentials) Errors {
	return v.run(LoginForm{Username: creds.Username, Password: creds.Password})
}

// Signup checks the registration payload.
func (v *Validator) Signup(in domain.Signup) Errors {
	return v.run(SignupForm{Username: in.Username, Email: in.Email, Password: in.Password, Role: string(in.Role)})
}

func (v *Validator) run(form interface{}) Errors {
	errs := Errors{}
	err := v.validate.Struct(form)
	if err == nil {
		return errs
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs["_form"] = err.Error()
		return errs
	}
	for _, fe := range fieldErrs {
		if _, seen := errs[fe.Field()]; seen {
			continue
		}
		errs[fe.Field()] = message(fe.Field(), fe.Tag(), fe.Param())
	}
	return errs
}

func (v *Validator) validateImageForm(sl validator.StructLevel) {
	form := sl.Current().Interface().(ImageTicketForm)
	img := form.Image
	switch {
	case img == nil || len(img.Data) == 0:
		sl.ReportError(form.Image, "image", "Image", "required", "")
	case v.validate.Var(img.ContentType, "imagetype") != nil:
		sl.ReportError(form.Image, "image", "Image", "imagetype", "")
	case img.Size() > v.maxImageBytes:
		sl.ReportError(form.Image, "image", "Image", "maxbytes", humanBytes(v.maxImageBytes))
	}
}

func message(field, tag, param string) string {
	label, ok := labels[field]
	if !ok {
		label = field
	}
	switch tag {
	case "required", "notblank":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, param)
	case "email":
		return label + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(param, " ", ", "))
	case "imagetype":
		return label + " must be an image file"
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s", label, param)
	default:
		return label + " is invalid"
	}
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateImageType(fl validator.FieldLevel) bool {
	contentType := strings.ToLower(strings.TrimSpace(fl.Field().String()))
	return strings.HasPrefix(contentType, "image/")
}

func humanBytes(n int64) string {
	const mb = 1 << 20
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
