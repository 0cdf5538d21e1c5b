package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/gartstein/companies/internal/company/models"
	"github.com/gartstein/companies/internal/pkg/utils"
	"github.com/google/uuid"
)

var seedNames = []string{
	"Acme", "Globex", "Initech", "Umbrella", "Hooli",
	"Vandelay", "Stark", "Wayne", "Wonka", "Soylent",
}

// SeedCompanies inserts count placeholder companies without logos, inside a
// single transaction.
func (r *Repository) SeedCompanies(ctx context.Context, count int) ([]*models.Company, error) {
	if count <= 0 {
		return nil, nil
	}

	seeded := make([]*models.Company, 0, count)
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		for i := 0; i < count; i++ {
			name := seedNames[i%len(seedNames)]
			slug := strings.ToLower(name) + "-" + strings.Split(uuid.NewString(), "-")[0]
			company := &models.Company{
				Name:    fmt.Sprintf("%s %d", name, i+1),
				Email:   fmt.Sprintf("contact@%s.example.com", slug),
				Website: utils.Ptr(fmt.Sprintf("https://%s.example.com", slug)),
			}
			if err := tx.CreateCompany(ctx, company); err != nil {
				return fmt.Errorf("failed to seed company %d: %w", i+1, err)
			}
			seeded = append(seeded, company)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return seeded, nil
}
