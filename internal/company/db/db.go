package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	rows "github.com/gartstein/companies/internal/company/db/models"
	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the SQLite database file or DSN, used when Driver is sqlite.
	Path string
}

func NewRepository(cfg *Config) (*Repository, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// A single connection keeps in-memory databases alive and serialises
		// writers the way SQLite expects.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access database pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db}
	if err := repo.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

func dialectorFor(cfg *Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		return postgres.Open(dsn), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite driver requires a database path")
		}
		return sqlite.Open(withForeignKeys(cfg.Path)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// withForeignKeys turns on SQLite foreign key enforcement, which is off by
// default for every new connection.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	return dsn + "?_foreign_keys=on"
}

// Migrate creates or updates the company and employee tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&rows.Company{}, &rows.Employee{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (r *Repository) ListCompanies(ctx context.Context, offset, limit int) ([]*models.Company, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&rows.Company{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var found []rows.Company
	result := r.db.WithContext(ctx).
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&found)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	companies := make([]*models.Company, 0, len(found))
	for i := range found {
		companies = append(companies, toCompany(&found[i]))
	}
	return companies, total, nil
}

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	row := fromCompany(company)
	result := r.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		return translate(result.Error)
	}
	*company = *toCompany(row)
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id uint) (*models.Company, error) {
	var row rows.Company
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return toCompany(&row), nil
}

// UpdateCompany overwrites every mutable column, nil optionals included.
func (r *Repository) UpdateCompany(ctx context.Context, company *models.Company) error {
	row := fromCompany(company)
	row.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).Model(&rows.Company{ID: company.ID}).
		Select("name", "email", "website", "logo", "updated_at").
		UpdateColumns(row)

	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	company.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) SetCompanyLogo(ctx context.Context, id uint, logo string) error {
	result := r.db.WithContext(ctx).Model(&rows.Company{}).
		Where("id = ?", id).
		Update("logo", logo)

	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteCompany(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&rows.Company{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// CompanyEmailTaken reports whether another company already uses email.
// A non-zero excludeID leaves that company's own row out of the check.
func (r *Repository) CompanyEmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&rows.Company{}).
		Where("email = ?", email)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	result := query.Limit(1).Count(&count)
	return count > 0, result.Error
}

func (r *Repository) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	row := fromEmployee(employee)
	result := r.db.WithContext(ctx).Omit("Company").Create(row)
	if result.Error != nil {
		return translate(result.Error)
	}
	*employee = *toEmployee(row)
	return nil
}

func (r *Repository) GetEmployee(ctx context.Context, id uint) (*models.Employee, error) {
	var row rows.Employee
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return toEmployee(&row), nil
}

// DeleteEmployeesByCompany removes every employee of companyID and returns
// how many rows went.
func (r *Repository) DeleteEmployeesByCompany(ctx context.Context, companyID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("company_id = ?", companyID).Delete(&rows.Employee{})
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// translate maps driver errors onto the service error taxonomy. Drivers
// without error translation are caught by their constraint messages.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return e.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", e.ErrConflict, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "foreign key constraint") {
		return fmt.Errorf("%w: %v", e.ErrConflict, err)
	}
	return err
}

func toCompany(row *rows.Company) *models.Company {
	return &models.Company{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Website:   row.Website,
		Logo:      row.Logo,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func fromCompany(company *models.Company) *rows.Company {
	return &rows.Company{
		ID:        company.ID,
		Name:      company.Name,
		Email:     company.Email,
		Website:   company.Website,
		Logo:      company.Logo,
		CreatedAt: company.CreatedAt,
		UpdatedAt: company.UpdatedAt,
	}
}

func toEmployee(row *rows.Employee) *models.Employee {
	return &models.Employee{
		ID:        row.ID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Email:     row.Email,
		Phone:     row.Phone,
		CompanyID: row.CompanyID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func fromEmployee(employee *models.Employee) *rows.Employee {
	return &rows.Employee{
		ID:        employee.ID,
		FirstName: employee.FirstName,
		LastName:  employee.LastName,
		Email:     employee.Email,
		Phone:     employee.Phone,
		CompanyID: employee.CompanyID,
		CreatedAt: employee.CreatedAt,
		UpdatedAt: employee.UpdatedAt,
	}
}
