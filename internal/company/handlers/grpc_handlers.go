package handlers

import (
	"context"

	"github.com/gartstein/companies/internal/company/models"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const serviceName = "company.v1.CompanyService"

// LogoFile is an uploaded logo; Data travels base64 encoded.
type LogoFile struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

// CompanyFields are the writable fields of a company.
type CompanyFields struct {
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Website *string   `json:"website,omitempty"`
	Logo    *LogoFile `json:"logo,omitempty"`
}

type ListCompaniesRequest struct {
	Limit int32 `json:"limit,omitempty"`
	Page  int32 `json:"page,omitempty"`
}

type ListCompaniesResponse struct {
	Page *models.CompanyPage `json:"page"`
}

type CreateCompanyRequest struct {
	Company *CompanyFields `json:"company"`
}

type CreateCompanyResponse struct {
	Message string          `json:"message"`
	Company *models.Company `json:"company"`
}

type UpdateCompanyRequest struct {
	ID      uint64         `json:"id"`
	Company *CompanyFields `json:"company"`
}

type UpdateCompanyResponse struct {
	Message string          `json:"message"`
	Company *models.Company `json:"company"`
}

type DeleteCompanyRequest struct {
	ID uint64 `json:"id"`
}

type DeleteCompanyResponse struct {
	Message string `json:"message"`
}

// CompanyServiceServer is the server API for CompanyService.
type CompanyServiceServer interface {
	ListCompanies(context.Context, *ListCompaniesRequest) (*ListCompaniesResponse, error)
	CreateCompany(context.Context, *CreateCompanyRequest) (*CreateCompanyResponse, error)
	UpdateCompany(context.Context, *UpdateCompanyRequest) (*UpdateCompanyResponse, error)
	DeleteCompany(context.Context, *DeleteCompanyRequest) (*DeleteCompanyResponse, error)
}

// CompanyServiceDesc describes CompanyService for grpc.Server.RegisterService.
var CompanyServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CompanyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListCompanies", Handler: unaryMethod("ListCompanies", CompanyServiceServer.ListCompanies)},
		{MethodName: "CreateCompany", Handler: unaryMethod("CreateCompany", CompanyServiceServer.CreateCompany)},
		{MethodName: "UpdateCompany", Handler: unaryMethod("UpdateCompany", CompanyServiceServer.UpdateCompany)},
		{MethodName: "DeleteCompany", Handler: unaryMethod("DeleteCompany", CompanyServiceServer.DeleteCompany)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "company/v1/company.json",
}

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

// unaryMethod adapts a typed server method to grpc.MethodHandler, running the
// configured interceptor chain around it.
func unaryMethod[Req, Resp any](
	name string,
	call func(CompanyServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CompanyServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CompanyServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CompanyServiceClient calls CompanyService over a JSON-codec connection.
type CompanyServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCompanyServiceClient(cc grpc.ClientConnInterface) *CompanyServiceClient {
	return &CompanyServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CompanyServiceClient) ListCompanies(ctx context.Context, in *ListCompaniesRequest, opts ...grpc.CallOption) (*ListCompaniesResponse, error) {
	return invoke[ListCompaniesResponse](ctx, c.cc, "ListCompanies", in, opts)
}

func (c *CompanyServiceClient) CreateCompany(ctx context.Context, in *CreateCompanyRequest, opts ...grpc.CallOption) (*CreateCompanyResponse, error) {
	return invoke[CreateCompanyResponse](ctx, c.cc, "CreateCompany", in, opts)
}

func (c *CompanyServiceClient) UpdateCompany(ctx context.Context, in *UpdateCompanyRequest, opts ...grpc.CallOption) (*UpdateCompanyResponse, error) {
	return invoke[UpdateCompanyResponse](ctx, c.cc, "UpdateCompany", in, opts)
}

func (c *CompanyServiceClient) DeleteCompany(ctx context.Context, in *DeleteCompanyRequest, opts ...grpc.CallOption) (*DeleteCompanyResponse, error) {
	return invoke[DeleteCompanyResponse](ctx, c.cc, "DeleteCompany", in, opts)
}

// CompanyHandler serves CompanyService on top of a CompanyController.
type CompanyHandler struct {
	service CompanyController
	logger  *zap.Logger
}

// NewCompanyHandler constructs a new CompanyHandler with the given service and logger.
func NewCompanyHandler(service CompanyController, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{
		service: service,
		logger:  logger.Named("grpc_handler"),
	}
}

// ListCompanies returns one page of companies.
func (h *CompanyHandler) ListCompanies(ctx context.Context, req *ListCompaniesRequest) (*ListCompaniesResponse, error) {
	page, err := h.service.ListCompanies(ctx, int(req.Limit), int(req.Page))
	if err != nil {
		return nil, h.mapServiceError(err, opList)
	}
	return &ListCompaniesResponse{Page: page}, nil
}

// CreateCompany processes a CreateCompanyRequest, creating a new Company in the system.
func (h *CompanyHandler) CreateCompany(ctx context.Context, req *CreateCompanyRequest) (*CreateCompanyResponse, error) {
	if req.Company == nil {
		return nil, status.Error(codes.InvalidArgument, "company data required")
	}

	created, err := h.service.CreateCompany(ctx, fieldsToInput(0, req.Company))
	if err != nil {
		return nil, h.mapServiceError(err, opCreate)
	}
	return &CreateCompanyResponse{Message: msgCreated, Company: created}, nil
}

// UpdateCompany overwrites the company named by req.ID.
func (h *CompanyHandler) UpdateCompany(ctx context.Context, req *UpdateCompanyRequest) (*UpdateCompanyResponse, error) {
	if req.Company == nil {
		return nil, status.Error(codes.InvalidArgument, "company data required")
	}
	id, err := idFromUint64(req.ID)
	if err != nil {
		return nil, h.mapServiceError(err, opUpdate)
	}

	updated, err := h.service.UpdateCompany(ctx, fieldsToInput(id, req.Company))
	if err != nil {
		return nil, h.mapServiceError(err, opUpdate)
	}
	return &UpdateCompanyResponse{Message: msgUpdated, Company: updated}, nil
}

// DeleteCompany removes a Company and its employees given its ID.
func (h *CompanyHandler) DeleteCompany(ctx context.Context, req *DeleteCompanyRequest) (*DeleteCompanyResponse, error) {
	id, err := idFromUint64(req.ID)
	if err != nil {
		return nil, h.mapServiceError(err, opDelete)
	}

	if err := h.service.DeleteCompany(ctx, id); err != nil {
		return nil, h.mapServiceError(err, opDelete)
	}
	return &DeleteCompanyResponse{Message: msgDeleted}, nil
}
