package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shreelaxmi/site/internal/models"
)

type ContactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

var _ ContactStore = (*ContactRepository)(nil)

const contactColumns = `id, full_name, email, phone, message, status, created_at, updated_at`

func (r *ContactRepository) Create(ctx context.Context, contact models.Contact) error {
	const query = `
		INSERT INTO contacts (
			id, full_name, email, phone, message, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`
	_, err := r.pool.Exec(ctx, query,
		contact.ID,
		contact.FullName,
		contact.Email,
		contact.Phone,
		contact.Message,
		contact.Status,
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	return err
}

func (r *ContactRepository) GetByID(ctx context.Context, id string) (models.Contact, error) {
	const query = `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	contact, err := scanContact(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Contact{}, ErrContactNotFound
		}
		return models.Contact{}, err
	}
	return contact, nil
}

func (r *ContactRepository) List(ctx context.Context, filter ContactFilter) ([]models.Contact, error) {
	const query = `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) UpdateStatus(ctx context.Context, id string, status models.ContactStatus) (models.Contact, error) {
	const query = `
		UPDATE contacts
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + contactColumns

	contact, err := scanContact(r.pool.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Contact{}, ErrContactNotFound
		}
		return models.Contact{}, err
	}
	return contact, nil
}

func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

func (r *ContactRepository) CountByStatus(ctx context.Context) (map[models.ContactStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM contacts GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.ContactStatus]int)
	for rows.Next() {
		var (
			status models.ContactStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *ContactRepository) PurgeClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM contacts WHERE status = 'closed' AND updated_at < $1`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanContact(row pgx.Row) (models.Contact, error) {
	var contact models.Contact
	err := row.Scan(
		&contact.ID,
		&contact.FullName,
		&contact.Email,
		&contact.Phone,
		&contact.Message,
		&contact.Status,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	return contact, err
}
