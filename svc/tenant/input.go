package tenant

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/pillar/pkg/tenant"
)

// CreateInput describes a new tenant. An empty Slug is derived from Name.
type CreateInput struct {
	Slug             string          `json:"slug" validate:"omitempty,slug"`
	Name             string          `json:"name" validate:"required,max=200"`
	DatabaseName     string          `json:"database_name" validate:"omitempty,dbname"`
	ConnectionString string          `json:"connection_string" validate:"omitempty,max=2048"`
	ContactEmail     string          `json:"contact_email" validate:"omitempty,email"`
	ContactName      string          `json:"contact_name" validate:"omitempty,max=200"`
	ContactPhone     string          `json:"contact_phone" validate:"omitempty,max=50"`
	Configuration    json.RawMessage `json:"configuration" validate:"omitempty,jsonobject"`
	IsDemo           bool            `json:"is_demo"`
	Branding         *BrandingInput  `json:"branding"`
	// Provision runs provisioning synchronously after the tenant is stored.
	Provision bool `json:"provision"`
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Slug             *string         `json:"slug"`
	Name             *string         `json:"name" validate:"omitnil,min=1,max=200"`
	DatabaseName     *string         `json:"database_name" validate:"omitempty,dbname"`
	ConnectionString *string         `json:"connection_string" validate:"omitempty,max=2048"`
	ContactEmail     *string         `json:"contact_email" validate:"omitempty,email"`
	ContactName      *string         `json:"contact_name" validate:"omitempty,max=200"`
	ContactPhone     *string         `json:"contact_phone" validate:"omitempty,max=50"`
	Configuration    json.RawMessage `json:"configuration" validate:"omitempty,jsonobject"`
	IsDemo           *bool           `json:"is_demo"`
	Branding         *BrandingInput  `json:"branding"`
}

// BrandingInput replaces a tenant's branding.
type BrandingInput struct {
	PrimaryColor   string `json:"primary_color" validate:"omitempty,hexcolor"`
	SecondaryColor string `json:"secondary_color" validate:"omitempty,hexcolor"`
	AccentColor    string `json:"accent_color" validate:"omitempty,hexcolor"`
	LogoURL        string `json:"logo_url" validate:"omitempty,url"`
	FaviconURL     string `json:"favicon_url" validate:"omitempty,url"`
	BackgroundURL  string `json:"background_url" validate:"omitempty,url"`
	CustomCSS      string `json:"custom_css" validate:"omitempty,max=65536"`
}

func (b *BrandingInput) apply(cur *tenant.Branding) *tenant.Branding {
	out := &tenant.Branding{
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		AccentColor:    b.AccentColor,
		LogoURL:        b.LogoURL,
		FaviconURL:     b.FaviconURL,
		BackgroundURL:  b.BackgroundURL,
		CustomCSS:      b.CustomCSS,
	}
	if cur != nil {
		out.ID = cur.ID
	}
	return out
}

var dbNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		_, err := tenant.ValidateSlug(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("dbname", func(fl validator.FieldLevel) bool {
		return dbNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("jsonobject", func(fl validator.FieldLevel) bool {
		raw := fl.Field().Bytes()
		var obj map[string]any
		return json.Unmarshal(raw, &obj) == nil
	})
	return v
}

// validationError flattens validator output into one ErrInvalidInput.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Join(ErrInvalidInput, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(parts, "; "))
}
