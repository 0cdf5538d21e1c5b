package controller

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/mail"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/imaging"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/gartstein/companies/internal/pkg/utils"
	"github.com/google/uuid"
)

const maxLogoBaseName = 64

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// validate normalizes in and checks every field, collecting all violations
// before returning. A valid logo comes back decoded. excludeID leaves that
// company out of the email uniqueness check.
func (s *CompanyService) validate(ctx context.Context, in *models.CompanyInput, excludeID uint) (image.Image, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Website = utils.NilIfBlank(in.Website)

	ve := e.NewValidationError()

	if in.Name == "" {
		ve.Add("name", "The name field is required.")
	}

	switch {
	case in.Email == "":
		ve.Add("email", "The email field is required.")
	case !isValidEmail(in.Email):
		ve.Add("email", "The email must be a valid email address.")
	default:
		taken, err := s.repo.CompanyEmailTaken(ctx, in.Email, excludeID)
		if err != nil {
			return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
		}
		if taken {
			ve.Add("email", "The email has already been taken.")
		}
	}

	if in.Website != nil && !isValidURL(*in.Website) {
		ve.Add("website", "The website must be a valid URL.")
	}

	var logo image.Image
	if in.Logo != nil {
		img, err := imaging.DecodePNG(in.Logo.Data)
		switch {
		case errors.Is(err, imaging.ErrNotPNG):
			ve.Add("logo", "The logo must be a file of type: png.")
		case errors.Is(err, imaging.ErrTooLarge):
			ve.Add("logo", "The logo has invalid image dimensions.")
		case err != nil:
			ve.Add("logo", "The logo must be an image.")
			ve.Add("logo", "The logo must be a file of type: png.")
		default:
			logo = img
		}
	}

	return logo, ve.ErrorOrNil()
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1
}

func isValidURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// logoFilename builds a collision-resistant blob name from the upload time,
// a random token and the sanitized client filename.
func (s *CompanyService) logoFilename(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Trim(unsafeFilenameChars.ReplaceAllString(base, "-"), "-.")
	if len(base) > maxLogoBaseName {
		base = base[:maxLogoBaseName]
	}
	if base == "" {
		base = "logo"
	}
	return fmt.Sprintf("%d_%s_%s.png", s.now().Unix(), uuid.NewString(), base)
}
