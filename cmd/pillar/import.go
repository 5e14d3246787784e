package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/pillar/pkg/logger"
	tenantsvc "github.com/dmitrymomot/pillar/svc/tenant"
)

// tenantFixture is one entry of a tenant import file:
//
//	tenants:
//	  - slug: acme
//	    name: Acme Corp
//	    contact_email: owner@acme.test
//	    configuration: {locale: en}
//	    branding: {primary_color: "#0044ff"}
type tenantFixture struct {
	Slug          string         `yaml:"slug"`
	Name          string         `yaml:"name"`
	DatabaseName  string         `yaml:"database_name"`
	ContactEmail  string         `yaml:"contact_email"`
	ContactName   string         `yaml:"contact_name"`
	ContactPhone  string         `yaml:"contact_phone"`
	IsDemo        bool           `yaml:"is_demo"`
	Configuration map[string]any `yaml:"configuration"`
	Branding      *struct {
		PrimaryColor   string `yaml:"primary_color"`
		SecondaryColor string `yaml:"secondary_color"`
		AccentColor    string `yaml:"accent_color"`
		LogoURL        string `yaml:"logo_url"`
		FaviconURL     string `yaml:"favicon_url"`
		BackgroundURL  string `yaml:"background_url"`
		CustomCSS      string `yaml:"custom_css"`
	} `yaml:"branding"`
}

type tenantFile struct {
	Tenants []tenantFixture `yaml:"tenants"`
}

func (f tenantFixture) input(provision bool) (tenantsvc.CreateInput, error) {
	in := tenantsvc.CreateInput{
		Slug:         f.Slug,
		Name:         f.Name,
		DatabaseName: f.DatabaseName,
		ContactEmail: f.ContactEmail,
		ContactName:  f.ContactName,
		ContactPhone: f.ContactPhone,
		IsDemo:       f.IsDemo,
		Provision:    provision,
	}
	if len(f.Configuration) > 0 {
		raw, err := json.Marshal(f.Configuration)
		if err != nil {
			return in, fmt.Errorf("tenant %q configuration: %w", f.Name, err)
		}
		in.Configuration = raw
	}
	if b := f.Branding; b != nil {
		in.Branding = &tenantsvc.BrandingInput{
			PrimaryColor:   b.PrimaryColor,
			SecondaryColor: b.SecondaryColor,
			AccentColor:    b.AccentColor,
			LogoURL:        b.LogoURL,
			FaviconURL:     b.FaviconURL,
			BackgroundURL:  b.BackgroundURL,
			CustomCSS:      b.CustomCSS,
		}
	}
	return in, nil
}

func readTenantFile(r io.Reader) ([]tenantFixture, error) {
	var f tenantFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse tenant file: %w", err)
	}
	return f.Tenants, nil
}

func newTenantImportCmd() *cobra.Command {
	var provision bool
	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create tenants listed in a YAML file, skipping existing slugs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			fixtures, err := readTenantFile(file)
			if err != nil {
				return err
			}

			return withApp(cmd, func(a *app) error {
				ctx := cmd.Context()
				var errs []error
				for _, f := range fixtures {
					in, err := f.input(provision)
					if err != nil {
						errs = append(errs, err)
						continue
					}
					t, err := a.tenants.Create(ctx, in)
					switch {
					case errors.Is(err, tenantsvc.ErrSlugTaken):
						a.log.InfoContext(ctx, "tenant exists, skipped", logger.TenantSlug(f.Slug))
					case err != nil:
						errs = append(errs, fmt.Errorf("tenant %q: %w", f.Name, err))
					default:
						a.log.InfoContext(ctx, "tenant imported",
							logger.TenantID(t.ID), logger.TenantSlug(t.Slug))
					}
				}
				return errors.Join(errs...)
			})
		},
	}
	cmd.Flags().BoolVar(&provision, "provision", false, "provision each created tenant")
	return cmd
}
