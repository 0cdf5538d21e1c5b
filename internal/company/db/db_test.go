package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/gartstein/companies/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SetupTestDB initializes a private in-memory SQLite database for testing.
func SetupTestDB(t *testing.T) *Repository {
	repo, err := NewRepository(&Config{
		Driver: DriverSQLite,
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newCompany(name, email string) *models.Company {
	return &models.Company{Name: name, Email: email}
}

// TestCreateCompany tests the creation of a company record.
func TestCreateCompany(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	company := newCompany("Acme", "a@acme.com")
	err := repo.CreateCompany(ctx, company)
	require.NoError(t, err, "CreateCompany should not return an error")
	assert.NotZero(t, company.ID, "CreateCompany should assign an ID")
	assert.False(t, company.CreatedAt.IsZero(), "CreatedAt should be set")

	retrieved, err := repo.GetCompany(ctx, company.ID)
	require.NoError(t, err, "GetCompany should retrieve the created company")
	assert.Equal(t, "Acme", retrieved.Name)
	assert.Equal(t, "a@acme.com", retrieved.Email)
	assert.Nil(t, retrieved.Website, "Website should stay null")
	assert.Nil(t, retrieved.Logo, "Logo should stay null")
}

// TestCreateCompanyDuplicateEmail relies on the unique index, not a pre-check.
func TestCreateCompanyDuplicateEmail(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateCompany(ctx, newCompany("First", "dup@acme.com")))

	err := repo.CreateCompany(ctx, newCompany("Second", "dup@acme.com"))
	assert.ErrorIs(t, err, e.ErrConflict, "duplicate email should surface as a conflict")

	_, total, err := repo.ListCompanies(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "no second row should be persisted")
}

// TestGetCompanyNotFound verifies error handling when the company does not exist.
func TestGetCompanyNotFound(t *testing.T) {
	repo := SetupTestDB(t)

	_, err := repo.GetCompany(context.Background(), 4242)
	assert.ErrorIs(t, err, e.ErrNotFound, "GetCompany should return ErrNotFound for non-existent company")
}

func TestListCompanies(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.CreateCompany(ctx, newCompany(fmt.Sprintf("Company %d", i), fmt.Sprintf("c%d@example.com", i))))
	}

	page, total, err := repo.ListCompanies(ctx, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, "Company 3", page[0].Name, "rows should come back in id order")
	assert.Equal(t, "Company 4", page[1].Name)

	page, _, err = repo.ListCompanies(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page, "offset past the end should return no rows")
}

// TestUpdateCompany checks that every mutable column is overwritten.
func TestUpdateCompany(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	company := &models.Company{
		Name:    "Old Name",
		Email:   "old@acme.com",
		Website: utils.Ptr("https://old.example.com"),
		Logo:    utils.Ptr("old.png"),
	}
	require.NoError(t, repo.CreateCompany(ctx, company), "CreateCompany should succeed")

	createdAt := company.UpdatedAt
	company.Name = "New Name"
	company.Email = "new@acme.com"
	company.Website = nil
	company.Logo = utils.Ptr("new.png")
	company.UpdatedAt = time.Unix(0, 0)
	err := repo.UpdateCompany(ctx, company)
	require.NoError(t, err, "UpdateCompany should not return an error")
	assert.False(t, company.UpdatedAt.Before(createdAt), "UpdatedAt should be refreshed on the caller's company")

	updated, err := repo.GetCompany(ctx, company.ID)
	require.NoError(t, err, "GetCompany should succeed")
	assert.Equal(t, "New Name", updated.Name, "Company name should be updated")
	assert.Equal(t, "new@acme.com", updated.Email)
	assert.Nil(t, updated.Website, "a nil website should clear the column")
	require.NotNil(t, updated.Logo)
	assert.Equal(t, "new.png", *updated.Logo)
	assert.WithinDuration(t, updated.UpdatedAt, company.UpdatedAt, time.Millisecond,
		"returned UpdatedAt should match the stored one")
}

// TestUpdateCompanyNotFound tests updating a non-existing company.
func TestUpdateCompanyNotFound(t *testing.T) {
	repo := SetupTestDB(t)

	err := repo.UpdateCompany(context.Background(), &models.Company{ID: 99, Name: "Ghost", Email: "ghost@acme.com"})
	assert.ErrorIs(t, err, e.ErrNotFound, "UpdateCompany should return ErrNotFound for missing company")
}

func TestSetCompanyLogo(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	company := newCompany("Logo Co", "logo@acme.com")
	require.NoError(t, repo.CreateCompany(ctx, company))

	require.NoError(t, repo.SetCompanyLogo(ctx, company.ID, "1700000000_logo.png"))
	got, err := repo.GetCompany(ctx, company.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Logo)
	assert.Equal(t, "1700000000_logo.png", *got.Logo)

	assert.ErrorIs(t, repo.SetCompanyLogo(ctx, company.ID+100, "x.png"), e.ErrNotFound)
}

// TestDeleteCompany ensures companies are deleted correctly.
func TestDeleteCompany(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	company := newCompany("To Be Deleted", "bye@acme.com")
	require.NoError(t, repo.CreateCompany(ctx, company), "CreateCompany should succeed")

	err := repo.DeleteCompany(ctx, company.ID)
	assert.NoError(t, err, "DeleteCompany should not return an error")

	_, err = repo.GetCompany(ctx, company.ID)
	assert.ErrorIs(t, err, e.ErrNotFound, "Deleted company should not be found")
}

// TestDeleteCompanyNotFound checks behavior when trying to delete a non-existent company.
func TestDeleteCompanyNotFound(t *testing.T) {
	repo := SetupTestDB(t)

	err := repo.DeleteCompany(context.Background(), 77)
	assert.ErrorIs(t, err, e.ErrNotFound, "DeleteCompany should return ErrNotFound for missing company")
}

// TestDeleteCompanyWithEmployeesRestricted proves the foreign key is enforced.
func TestDeleteCompanyWithEmployeesRestricted(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	company := newCompany("Employer", "hr@acme.com")
	require.NoError(t, repo.CreateCompany(ctx, company))
	require.NoError(t, repo.CreateEmployee(ctx, &models.Employee{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@acme.com", Phone: "555-0100", CompanyID: company.ID,
	}))

	err := repo.DeleteCompany(ctx, company.ID)
	assert.ErrorIs(t, err, e.ErrConflict, "deleting a referenced company must be rejected")

	deleted, err := repo.DeleteEmployeesByCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	assert.NoError(t, repo.DeleteCompany(ctx, company.ID))
}

func TestCreateEmployee(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	company := newCompany("Employer", "jobs@acme.com")
	require.NoError(t, repo.CreateCompany(ctx, company))

	employee := &models.Employee{
		FirstName: "Grace", LastName: "Hopper", Email: "grace@acme.com", Phone: "555-0101", CompanyID: company.ID,
	}
	require.NoError(t, repo.CreateEmployee(ctx, employee))
	assert.NotZero(t, employee.ID)

	got, err := repo.GetEmployee(ctx, employee.ID)
	require.NoError(t, err)
	assert.Equal(t, company.ID, got.CompanyID)

	t.Run("duplicate phone", func(t *testing.T) {
		err := repo.CreateEmployee(ctx, &models.Employee{
			FirstName: "Other", LastName: "Person", Email: "other@acme.com", Phone: "555-0101", CompanyID: company.ID,
		})
		assert.ErrorIs(t, err, e.ErrConflict)
	})

	t.Run("unknown company", func(t *testing.T) {
		err := repo.CreateEmployee(ctx, &models.Employee{
			FirstName: "No", LastName: "Home", Email: "nohome@acme.com", Phone: "555-0199", CompanyID: company.ID + 50,
		})
		assert.ErrorIs(t, err, e.ErrConflict, "a dangling company_id should violate the foreign key")
	})
}

// TestCompanyEmailTaken verifies the uniqueness check and its self exclusion.
func TestCompanyEmailTaken(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	taken, err := repo.CompanyEmailTaken(ctx, "free@acme.com", 0)
	assert.NoError(t, err, "CompanyEmailTaken should not return an error")
	assert.False(t, taken, "unused email should not be taken")

	company := newCompany("Existing Company", "used@acme.com")
	require.NoError(t, repo.CreateCompany(ctx, company), "CreateCompany should succeed")

	taken, err = repo.CompanyEmailTaken(ctx, "used@acme.com", 0)
	assert.NoError(t, err)
	assert.True(t, taken, "existing email should be taken")

	taken, err = repo.CompanyEmailTaken(ctx, "used@acme.com", company.ID)
	assert.NoError(t, err)
	assert.False(t, taken, "a company's own email should not count against it")
}

// TestWithTransaction ensures transactions commit and roll back correctly.
func TestWithTransaction(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	err := repo.WithTransaction(ctx, func(txRepo *Repository) error {
		return txRepo.CreateCompany(ctx, newCompany("Transactional Company", "tx@acme.com"))
	})
	assert.NoError(t, err, "WithTransaction should execute successfully")

	taken, _ := repo.CompanyEmailTaken(ctx, "tx@acme.com", 0)
	assert.True(t, taken, "Company should exist after transaction")

	err = repo.WithTransaction(ctx, func(txRepo *Repository) error {
		if err := txRepo.CreateCompany(ctx, newCompany("Rolled Back", "rollback@acme.com")); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	assert.Error(t, err)

	taken, _ = repo.CompanyEmailTaken(ctx, "rollback@acme.com", 0)
	assert.False(t, taken, "Company should not exist after rollback")
}

func TestSeedCompanies(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	seeded, err := repo.SeedCompanies(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, seeded, 10)

	_, total, err := repo.ListCompanies(ctx, 0, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 10, total)
	for _, c := range seeded {
		assert.NotZero(t, c.ID)
		assert.Nil(t, c.Logo)
	}
}

func TestWithForeignKeys(t *testing.T) {
	assert.Equal(t, "file::memory:?_foreign_keys=on", withForeignKeys(":memory:"))
	assert.Equal(t, "file:x?mode=memory&_foreign_keys=on", withForeignKeys("file:x?mode=memory"))
	assert.Equal(t, "file:app.db?_fk=1", withForeignKeys("file:app.db?_fk=1"))
}
