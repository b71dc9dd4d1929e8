// ABOUTME: Contact repository on the SQL store
// ABOUTME: Company references are nullable weak links, never foreign keys
package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
	"github.com/jmoiron/sqlx"
)

const contactColumns = `id, first_name, last_name, email, phone, role, company_id, created_at, updated_at`

type contactRepo struct {
	d *DB
}

func (r *contactRepo) GetAll(ctx context.Context) ([]models.Contact, error) {
	contacts := []models.Contact{}
	err := r.d.x.SelectContext(ctx, &contacts,
		`SELECT `+contactColumns+` FROM contacts ORDER BY seq`)
	if err != nil {
		return nil, dbErr(err)
	}
	return contacts, nil
}

func (r *contactRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	return getContact(ctx, r.d.x, id)
}

func getContact(ctx context.Context, q queryer, id uuid.UUID) (*models.Contact, error) {
	var c models.Contact
	err := sqlx.GetContext(ctx, q, &c,
		q.Rebind(`SELECT `+contactColumns+` FROM contacts WHERE id = ?`), id)
	if err != nil {
		return nil, dbErr(err)
	}
	return &c, nil
}

func (r *contactRepo) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	c := contact.Clone()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.d.stamp(&c.CreatedAt, &c.UpdatedAt)
	c.CreatedAt, c.UpdatedAt = c.CreatedAt.UTC(), c.UpdatedAt.UTC()

	_, err := r.d.x.NamedExecContext(ctx, `
		INSERT INTO contacts (`+contactColumns+`)
		VALUES (:id, :first_name, :last_name, :email, :phone, :role, :company_id, :created_at, :updated_at)
	`, &c)
	if err != nil {
		return nil, dbErr(err)
	}
	return &c, nil
}

func (r *contactRepo) Update(ctx context.Context, id uuid.UUID, patch models.ContactPatch) (*models.Contact, error) {
	var out *models.Contact
	err := r.d.withTx(ctx, func(tx *sqlx.Tx) error {
		c, err := getContact(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(c)
		c.UpdatedAt = r.d.now().UTC()

		if _, err := tx.NamedExecContext(ctx, `
			UPDATE contacts
			SET first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
				role = :role, company_id = :company_id, updated_at = :updated_at
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

func (r *contactRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.d.x.ExecContext(ctx, r.d.x.Rebind(`DELETE FROM contacts WHERE id = ?`), id)
	if err != nil {
		return dbErr(err)
	}
	return requireAffected(res)
}
