// ABOUTME: Deal repository on the SQL store
// ABOUTME: Contact links live in an ordered deal_contacts join table
package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/models"
	"github.com/jmoiron/sqlx"
)

const dealColumns = `id, title, value, stage, company_id, notes, created_at, updated_at, closed_at`

type dealRepo struct {
	d *DB
}

type dealContactRow struct {
	DealID    uuid.UUID `db:"deal_id"`
	ContactID uuid.UUID `db:"contact_id"`
}

func (r *dealRepo) GetAll(ctx context.Context) ([]models.Deal, error) {
	deals := []models.Deal{}
	if err := r.d.x.SelectContext(ctx, &deals,
		`SELECT `+dealColumns+` FROM deals ORDER BY seq`); err != nil {
		return nil, dbErr(err)
	}

	var links []dealContactRow
	if err := r.d.x.SelectContext(ctx, &links,
		`SELECT deal_id, contact_id FROM deal_contacts ORDER BY deal_id, position`); err != nil {
		return nil, dbErr(err)
	}
	byDeal := make(map[uuid.UUID][]uuid.UUID, len(deals))
	for _, l := range links {
		byDeal[l.DealID] = append(byDeal[l.DealID], l.ContactID)
	}

	for i := range deals {
		ids := byDeal[deals[i].ID]
		if ids == nil {
			ids = []uuid.UUID{}
		}
		deals[i].ContactIDs = ids
	}
	return deals, nil
}

func (r *dealRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	return getDeal(ctx, r.d.x, id)
}

func getDeal(ctx context.Context, q queryer, id uuid.UUID) (*models.Deal, error) {
	var d models.Deal
	if err := sqlx.GetContext(ctx, q, &d,
		q.Rebind(`SELECT `+dealColumns+` FROM deals WHERE id = ?`), id); err != nil {
		return nil, dbErr(err)
	}

	d.ContactIDs = []uuid.UUID{}
	if err := sqlx.SelectContext(ctx, q, &d.ContactIDs,
		q.Rebind(`SELECT contact_id FROM deal_contacts WHERE deal_id = ? ORDER BY position`), id); err != nil {
		return nil, dbErr(err)
	}
	return &d, nil
}

func writeDealContacts(ctx context.Context, tx *sqlx.Tx, dealID uuid.UUID, contactIDs []uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM deal_contacts WHERE deal_id = ?`), dealID); err != nil {
		return dbErr(err)
	}
	for i, cid := range contactIDs {
		if _, err := tx.ExecContext(ctx,
			tx.Rebind(`INSERT INTO deal_contacts (deal_id, contact_id, position) VALUES (?, ?, ?)`),
			dealID, cid, i); err != nil {
			return dbErr(err)
		}
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (r *dealRepo) Create(ctx context.Context, deal *models.Deal) (*models.Deal, error) {
	d := deal.Clone()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.ContactIDs == nil {
		d.ContactIDs = []uuid.UUID{}
	}
	r.d.stamp(&d.CreatedAt, &d.UpdatedAt)
	d.CreatedAt, d.UpdatedAt = d.CreatedAt.UTC(), d.UpdatedAt.UTC()
	d.ClosedAt = utcPtr(d.ClosedAt)

	err := r.d.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO deals (`+dealColumns+`)
			VALUES (:id, :title, :value, :stage, :company_id, :notes, :created_at, :updated_at, :closed_at)
		`, &d); err != nil {
			return dbErr(err)
		}
		return writeDealContacts(ctx, tx, d.ID, d.ContactIDs)
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *dealRepo) Update(ctx context.Context, id uuid.UUID, patch models.DealPatch) (*models.Deal, error) {
	var out *models.Deal
	err := r.d.withTx(ctx, func(tx *sqlx.Tx) error {
		d, err := getDeal(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(d)
		d.UpdatedAt = r.d.now().UTC()
		d.ClosedAt = utcPtr(d.ClosedAt)

		if _, err := tx.NamedExecContext(ctx, `
			UPDATE deals
			SET title = :title, value = :value, stage = :stage, company_id = :company_id,
				notes = :notes, updated_at = :updated_at, closed_at = :closed_at
			WHERE id = :id
		`, d); err != nil {
			return dbErr(err)
		}
		if patch.ContactIDs != nil {
			if err := writeDealContacts(ctx, tx, id, d.ContactIDs); err != nil {
				return err
			}
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dealRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.d.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM deal_contacts WHERE deal_id = ?`), id); err != nil {
			return dbErr(err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM deals WHERE id = ?`), id)
		if err != nil {
			return dbErr(err)
		}
		return requireAffected(res)
	})
}
