package handlers

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gartstein/companies/internal/company/controller"
	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/models"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	msgCreated        = "A company has been created successfully"
	msgUpdated        = "The selected company has been updated successfully"
	msgDeleted        = "The selected company has been deleted"
	msgUpdateNotFound = "The selected company cannot be found - update has failed!"
	msgDeleteNotFound = "The selected company cannot be found"
	msgLogoNotFound   = "The requested logo cannot be found"
	msgConflict       = "The company conflicts with an existing record."
	msgServerError    = "Server Error"
)

type operation string

const (
	opList   operation = "list"
	opCreate operation = "create"
	opUpdate operation = "update"
	opDelete operation = "delete"
	opLogo   operation = "logo"
)

// failure is the transport-neutral outcome of a failed service call.
type failure struct {
	status  int
	message string
	fields  map[string][]string
}

// classify decides status and message for err. Not-found depends on the
// operation: update answers 422 and everything else 404.
func classify(err error, op operation) (failure, bool) {
	var ve *e.ValidationError
	if errors.As(err, &ve) {
		return failure{status: http.StatusUnprocessableEntity, message: ve.Error(), fields: ve.Fields}, true
	}
	if code, msg, ok := e.StatusOf(err); ok {
		return failure{status: code, message: msg}, true
	}

	switch {
	case errors.Is(err, e.ErrNotFound):
		switch op {
		case opUpdate:
			return failure{status: http.StatusUnprocessableEntity, message: msgUpdateNotFound}, true
		case opLogo:
			return failure{status: http.StatusNotFound, message: msgLogoNotFound}, true
		default:
			return failure{status: http.StatusNotFound, message: msgDeleteNotFound}, true
		}
	case errors.Is(err, e.ErrConflict):
		return failure{status: http.StatusConflict, message: msgConflict}, true
	}
	return failure{status: http.StatusInternalServerError, message: msgServerError}, false
}

// mapServiceError maps domain or repository errors to gRPC status codes.
func (h *CompanyHandler) mapServiceError(err error, op operation) error {
	f, known := classify(err, op)
	if !known {
		h.logger.Error("Internal server error", zap.String("operation", string(op)), zap.Error(err))
	}
	code := grpcCode(f.status)
	if errors.Is(err, e.ErrNotFound) {
		code = codes.NotFound
	}
	return status.Error(code, f.message)
}

func grpcCode(httpStatus int) codes.Code {
	switch httpStatus {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.AlreadyExists
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusServiceUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

func fieldsToInput(id uint, f *CompanyFields) *models.CompanyInput {
	in := &models.CompanyInput{
		ID:      id,
		Name:    f.Name,
		Email:   f.Email,
		Website: f.Website,
	}
	if f.Logo != nil {
		in.Logo = &models.LogoUpload{Filename: f.Logo.Filename, Data: f.Logo.Data}
	}
	return in
}

func formToInput(id uint, values url.Values, logo *models.LogoUpload) *models.CompanyInput {
	in := &models.CompanyInput{
		ID:    id,
		Name:  values.Get("name"),
		Email: values.Get("email"),
		Logo:  logo,
	}
	if website, ok := values["website"]; ok && len(website) > 0 {
		in.Website = &website[0]
	}
	return in
}

func idRequired() error {
	ve := e.NewValidationError()
	ve.Add("id", "The id field is required.")
	return ve
}

func idNotInteger() error {
	ve := e.NewValidationError()
	ve.Add("id", "The id must be an integer.")
	return ve
}

// parseID reads a positive company id from a form or query value.
func parseID(raw string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, idRequired()
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 || id > math.MaxUint32 {
		return 0, idNotInteger()
	}
	return uint(id), nil
}

func idFromUint64(id uint64) (uint, error) {
	if id == 0 {
		return 0, idRequired()
	}
	if id > math.MaxUint32 {
		return 0, idNotInteger()
	}
	return uint(id), nil
}

// parsePaging reads the optional limit and page query parameters.
func parsePaging(query url.Values) (limit, page int, err error) {
	ve := e.NewValidationError()
	read := func(field string) int {
		raw := strings.TrimSpace(query.Get(field))
		if raw == "" {
			return 0
		}
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 1 {
			ve.Add(field, "The "+field+" must be a positive integer.")
			return 0
		}
		return n
	}
	limit = read("limit")
	if limit > controller.MaxPageSize {
		ve.Add("limit", "The limit may not be greater than "+strconv.Itoa(controller.MaxPageSize)+".")
		limit = 0
	}
	page = read("page")
	return limit, page, ve.ErrorOrNil()
}
