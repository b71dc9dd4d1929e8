// ABOUTME: Company repository on the SQL store
// ABOUTME: Named-parameter inserts and read-modify-write updates inside a transaction
package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
	"github.com/jmoiron/sqlx"
)

const companyColumns = `id, name, industry, website, notes, created_at, updated_at`

type companyRepo struct {
	d *DB
}

func (r *companyRepo) GetAll(ctx context.Context) ([]models.Company, error) {
	companies := []models.Company{}
	err := r.d.x.SelectContext(ctx, &companies,
		`SELECT `+companyColumns+` FROM companies ORDER BY seq`)
	if err != nil {
		return nil, dbErr(err)
	}
	return companies, nil
}

func (r *companyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return getCompany(ctx, r.d.x, id)
}

func getCompany(ctx context.Context, q queryer, id uuid.UUID) (*models.Company, error) {
	var c models.Company
	err := sqlx.GetContext(ctx, q, &c,
		q.Rebind(`SELECT `+companyColumns+` FROM companies WHERE id = ?`), id)
	if err != nil {
		return nil, dbErr(err)
	}
	return &c, nil
}

func (r *companyRepo) Create(ctx context.Context, company *models.Company) (*models.Company, error) {
	c := *company
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.d.stamp(&c.CreatedAt, &c.UpdatedAt)
	c.CreatedAt, c.UpdatedAt = c.CreatedAt.UTC(), c.UpdatedAt.UTC()

	_, err := r.d.x.NamedExecContext(ctx, `
		INSERT INTO companies (`+companyColumns+`)
		VALUES (:id, :name, :industry, :website, :notes, :created_at, :updated_at)
	`, &c)
	if err != nil {
		return nil, dbErr(err)
	}
	return &c, nil
}

func (r *companyRepo) Update(ctx context.Context, id uuid.UUID, patch models.CompanyPatch) (*models.Company, error) {
	var out *models.Company
	err := r.d.withTx(ctx, func(tx *sqlx.Tx) error {
		c, err := getCompany(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(c)
		c.UpdatedAt = r.d.now().UTC()

		if _, err := tx.NamedExecContext(ctx, `
			UPDATE companies
			SET name = :name, industry = :industry, website = :website, notes = :notes, updated_at = :updated_at
			WHERE id = :id
		`, c); err != nil {
			return dbErr(err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *companyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.d.x.ExecContext(ctx, r.d.x.Rebind(`DELETE FROM companies WHERE id = ?`), id)
	if err != nil {
		return dbErr(err)
	}
	return requireAffected(res)
}
