// Package models defines the core domain models for the Company and
// Employee entities, together with the inputs and result pages the
// company service works with.
package models

import (
	"time"
)

// Company defines the domain model for a company entity.
type Company struct {
	// ID is the system-generated identifier of the company.
	ID uint `json:"id"`
	// Name is the company's display name.
	Name string `json:"name"`
	// Email is the company's contact address, unique across companies.
	Email string `json:"email"`
	// Website is the optional company homepage.
	Website *string `json:"website"`
	// Logo is the blob store filename of the company logo, nil when none.
	Logo *string `json:"logo"`
	// CreatedAt records the timestamp when the company was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt records the timestamp when the company was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// HasLogo reports whether the company references a stored logo.
func (c *Company) HasLogo() bool {
	return c.Logo != nil && *c.Logo != ""
}

// Employee belongs to exactly one company.
type Employee struct {
	ID        uint      `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CompanyID uint      `json:"company_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LogoUpload is a logo image as received from the caller, before resizing.
type LogoUpload struct {
	// Filename is the client-side name of the uploaded file.
	Filename string
	// Data holds the raw encoded image.
	Data []byte
}

// CompanyInput carries the fields accepted by create and update.
// ID is ignored on create.
type CompanyInput struct {
	ID      uint
	Name    string
	Email   string
	Website *string
	Logo    *LogoUpload
}

// CompanyPage is one page of companies plus paginator metadata.
type CompanyPage struct {
	CurrentPage int        `json:"current_page"`
	Data        []*Company `json:"data"`
	From        *int       `json:"from"`
	LastPage    int        `json:"last_page"`
	PerPage     int        `json:"per_page"`
	To          *int       `json:"to"`
	Total       int64      `json:"total"`
}
