package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// DefaultMaxUploadBytes bounds a single logo upload.
const DefaultMaxUploadBytes = 5 << 20

// formOverhead is the room left in a request body for fields next to the logo.
const formOverhead = 1 << 20

// CompanyController defines the business logic interface
// that the gRPC/HTTP handlers will invoke.
type CompanyController interface {
	ListCompanies(ctx context.Context, pageSize, page int) (*models.CompanyPage, error)
	CreateCompany(ctx context.Context, in *models.CompanyInput) (*models.Company, error)
	UpdateCompany(ctx context.Context, in *models.CompanyInput) (*models.Company, error)
	DeleteCompany(ctx context.Context, id uint) error
	OpenLogo(ctx context.Context, name string) (io.ReadCloser, error)
}

// HTTPHandler serves the REST company routes.
type HTTPHandler struct {
	service        CompanyController
	logger         *zap.Logger
	maxUploadBytes int64
}

// NewHTTPHandler constructs an HTTPHandler. A non-positive maxUploadBytes
// selects DefaultMaxUploadBytes.
func NewHTTPHandler(service CompanyController, logger *zap.Logger, maxUploadBytes int64) *HTTPHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &HTTPHandler{
		service:        service,
		logger:         logger.Named("http_handler"),
		maxUploadBytes: maxUploadBytes,
	}
}

// Register attaches every route to mux.
func (h *HTTPHandler) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		pattern string
		handle  runtime.HandlerFunc
	}{
		{http.MethodGet, "/company", h.listCompanies},
		{http.MethodPost, "/company", h.createCompany},
		{http.MethodPut, "/company", h.updateCompany},
		{http.MethodPatch, "/company", h.updateCompany},
		{http.MethodDelete, "/company", h.deleteCompany},
		{http.MethodGet, "/company/logo/{filename}", h.getLogo},
		{http.MethodGet, "/health", h.health},
	}
	for _, route := range routes {
		if err := mux.HandlePath(route.method, route.pattern, route.handle); err != nil {
			return fmt.Errorf("failed to register %s %s: %w", route.method, route.pattern, err)
		}
	}
	return nil
}

func (h *HTTPHandler) listCompanies(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	limit, page, err := parsePaging(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, err, opList)
		return
	}

	result, err := h.service.ListCompanies(r.Context(), limit, page)
	if err != nil {
		h.writeServiceError(w, err, opList)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) createCompany(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	values, logo, err := h.readForm(w, r)
	if err != nil {
		h.writeServiceError(w, err, opCreate)
		return
	}

	if _, err := h.service.CreateCompany(r.Context(), formToInput(0, values, logo)); err != nil {
		h.writeServiceError(w, err, opCreate)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: msgCreated})
}

func (h *HTTPHandler) updateCompany(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	values, logo, err := h.readForm(w, r)
	if err != nil {
		h.writeServiceError(w, err, opUpdate)
		return
	}
	id, err := parseID(values.Get("id"))
	if err != nil {
		h.writeServiceError(w, err, opUpdate)
		return
	}

	if _, err := h.service.UpdateCompany(r.Context(), formToInput(id, values, logo)); err != nil {
		h.writeServiceError(w, err, opUpdate)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: msgUpdated})
}

func (h *HTTPHandler) deleteCompany(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	values, _, err := h.readForm(w, r)
	if err != nil {
		h.writeServiceError(w, err, opDelete)
		return
	}
	id, err := parseID(values.Get("id"))
	if err != nil {
		h.writeServiceError(w, err, opDelete)
		return
	}

	if err := h.service.DeleteCompany(r.Context(), id); err != nil {
		h.writeServiceError(w, err, opDelete)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgDeleted})
}

func (h *HTTPHandler) getLogo(w http.ResponseWriter, r *http.Request, params map[string]string) {
	rc, err := h.service.OpenLogo(r.Context(), params["filename"])
	if err != nil {
		h.writeServiceError(w, err, opLogo)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("Failed to stream logo", zap.String("logo", params["filename"]), zap.Error(err))
	}
}

func (h *HTTPHandler) health(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readForm collects request fields from a multipart, urlencoded or JSON body
// for any method. Query parameters fill in fields the body does not carry.
func (h *HTTPHandler) readForm(w http.ResponseWriter, r *http.Request) (url.Values, *models.LogoUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+formOverhead)

	values := url.Values{}
	var logo *models.LogoUpload

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			return nil, nil, bodyError(err)
		}
		for k, v := range r.MultipartForm.Value {
			values[k] = v
		}
		var err error
		if logo, err = h.readLogo(r); err != nil {
			return nil, nil, err
		}
	case "application/json":
		if err := decodeJSONFields(r.Body, values); err != nil {
			return nil, nil, bodyError(err)
		}
	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, bodyError(err)
		}
		parsed, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, nil, bodyError(err)
		}
		values = parsed
	}

	for k, v := range r.URL.Query() {
		if _, ok := values[k]; !ok {
			values[k] = v
		}
	}
	return values, logo, nil
}

func (h *HTTPHandler) readLogo(r *http.Request) (*models.LogoUpload, error) {
	file, header, err := r.FormFile("logo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, bodyError(err)
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		return nil, logoTooLarge(h.maxUploadBytes)
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, bodyError(err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, logoTooLarge(h.maxUploadBytes)
	}
	return &models.LogoUpload{Filename: header.Filename, Data: data}, nil
}

func logoTooLarge(limit int64) error {
	ve := e.NewValidationError()
	ve.Add("logo", fmt.Sprintf("The logo may not be greater than %d kilobytes.", limit/1024))
	return ve
}

// decodeJSONFields flattens a JSON object of scalars into values. Null
// members are treated as absent.
func decodeJSONFields(body io.Reader, values url.Values) error {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
		case string:
			values.Set(k, val)
		case json.Number:
			values.Set(k, val.String())
		case bool:
			values.Set(k, strconv.FormatBool(val))
		default:
			return fmt.Errorf("field %q must be a scalar", k)
		}
	}
	return nil
}

// bodyError turns an unreadable request body into a status the client can act on.
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &e.StatusError{Status: http.StatusRequestEntityTooLarge, Message: "The request body is too large."}
	}
	if errors.Is(err, multipart.ErrMessageTooLarge) {
		return &e.StatusError{Status: http.StatusRequestEntityTooLarge, Message: "The request body is too large."}
	}
	return &e.StatusError{Status: http.StatusBadRequest, Message: "The request body could not be parsed."}
}

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, err error, op operation) {
	f, known := classify(err, op)
	if !known {
		h.logger.Error("Request failed", zap.String("operation", string(op)), zap.Error(err))
	}
	if f.fields != nil {
		writeJSON(w, f.status, validationResponse{Message: f.message, Errors: f.fields})
		return
	}
	writeJSON(w, f.status, messageResponse{Message: f.message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
