package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shreelaxmi/site/internal/models"
)

type TeamRepository struct {
	pool *pgxpool.Pool
}

func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

var _ TeamStore = (*TeamRepository)(nil)

const teamColumns = `id, name, position, experience, photo, specialization, is_active, created_at, updated_at`

func (r *TeamRepository) Create(ctx context.Context, member models.TeamMember) error {
	const query = `
		INSERT INTO team_members (
			id, name, position, experience, photo, specialization, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`
	_, err := r.pool.Exec(ctx, query,
		member.ID,
		member.Name,
		member.Position,
		member.Experience,
		member.Photo,
		member.Specialization,
		member.IsActive,
		member.CreatedAt,
		member.UpdatedAt,
	)
	return err
}

func (r *TeamRepository) Update(ctx context.Context, member models.TeamMember) error {
	const query = `
		UPDATE team_members
		SET name = $2,
		    position = $3,
		    experience = $4,
		    photo = $5,
		    specialization = $6,
		    is_active = $7,
		    updated_at = $8
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		member.ID,
		member.Name,
		member.Position,
		member.Experience,
		member.Photo,
		member.Specialization,
		member.IsActive,
		member.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTeamMemberNotFound
	}
	return nil
}

func (r *TeamRepository) GetByID(ctx context.Context, id string) (models.TeamMember, error) {
	const query = `SELECT ` + teamColumns + ` FROM team_members WHERE id = $1`

	member, err := scanTeamMember(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TeamMember{}, ErrTeamMemberNotFound
		}
		return models.TeamMember{}, err
	}
	return member, nil
}

func (r *TeamRepository) ListActive(ctx context.Context) ([]models.TeamMember, error) {
	const query = `
		SELECT ` + teamColumns + `
		FROM team_members
		WHERE is_active
		ORDER BY created_at DESC
	`
	return r.list(ctx, query)
}

func (r *TeamRepository) ListAll(ctx context.Context) ([]models.TeamMember, error) {
	const query = `
		SELECT ` + teamColumns + `
		FROM team_members
		ORDER BY created_at DESC
	`
	return r.list(ctx, query)
}

func (r *TeamRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE team_members SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTeamMemberNotFound
	}
	return nil
}

func (r *TeamRepository) list(ctx context.Context, query string) ([]models.TeamMember, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.TeamMember{}
	for rows.Next() {
		member, err := scanTeamMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func scanTeamMember(row pgx.Row) (models.TeamMember, error) {
	var member models.TeamMember
	err := row.Scan(
		&member.ID,
		&member.Name,
		&member.Position,
		&member.Experience,
		&member.Photo,
		&member.Specialization,
		&member.IsActive,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	return member, err
}
