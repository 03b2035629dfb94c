package postgres

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/models"
)

const jobColumns = `id, group_id, organization_id, external_job_id, title, description, location,
	is_deleted, created_at, updated_at`

func scanJob(row interface{ Scan(...interface{}) error }) (*models.Job, error) {
	var j models.Job
	var org sql.NullString
	if err := row.Scan(&j.ID, &j.GroupID, &org, &j.ExternalJobID, &j.Title, &j.Description, &j.Location,
		&j.IsDeleted, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.OrganizationID = stringPtr(org)
	return &j, nil
}

// UpsertJob inserts or updates a job keyed by (group_id, external_job_id). j.ID
// is replaced with the stored id.
func (s *Store) UpsertJob(ctx context.Context, j *models.Job) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO jobs (id, group_id, organization_id, external_job_id, title, description, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (group_id, external_job_id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			is_deleted = FALSE,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		j.ID, j.GroupID, nullString(j.OrganizationID), j.ExternalJobID, j.Title, j.Description, j.Location,
	).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return apperrors.NewDatabaseError("upsert_job", err)
	}
	j.IsDeleted = false
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "Job", fmt.Sprintf("jobId: %s", id), "get_job")
	}
	return j, nil
}

func (s *Store) GetJobByExternalID(ctx context.Context, groupID, externalJobID string) (*models.Job, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE group_id = $1 AND external_job_id = $2 AND NOT is_deleted`,
		groupID, externalJobID))
	if err != nil {
		return nil, notFoundOr(err, "Job", fmt.Sprintf("externalJobId: %s", externalJobID), "get_job_by_external_id")
	}
	return j, nil
}

// SoftDeleteJob flags the job deleted and reports whether a live row matched.
func (s *Store) SoftDeleteJob(ctx context.Context, groupID, externalJobID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET is_deleted = TRUE, updated_at = NOW()
		WHERE group_id = $1 AND external_job_id = $2 AND NOT is_deleted`, groupID, externalJobID)
	if err != nil {
		return false, apperrors.NewDatabaseError("delete_job", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

const applicantColumns = `id, group_id, organization_id, job_id, external_applicant_id, first_name, last_name,
	email, phone, is_deleted, created_at, updated_at`

func scanApplicant(row interface{ Scan(...interface{}) error }) (*models.Applicant, error) {
	var a models.Applicant
	var org sql.NullString
	if err := row.Scan(&a.ID, &a.GroupID, &org, &a.JobID, &a.ExternalApplicantID, &a.FirstName, &a.LastName,
		&a.Email, &a.Phone, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.OrganizationID = stringPtr(org)
	return &a, nil
}

// UpsertApplicant inserts or updates an applicant keyed by group, organization
// and external id.
func (s *Store) UpsertApplicant(ctx context.Context, a *models.Applicant) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO applicants (id, group_id, organization_id, job_id, external_applicant_id,
			first_name, last_name, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (group_id, COALESCE(organization_id, '00000000-0000-0000-0000-000000000000'::uuid), external_applicant_id)
		DO UPDATE SET
			job_id = EXCLUDED.job_id,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			is_deleted = FALSE,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		a.ID, a.GroupID, nullString(a.OrganizationID), a.JobID, a.ExternalApplicantID,
		a.FirstName, a.LastName, a.Email, a.Phone,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return apperrors.NewDatabaseError("upsert_applicant", err)
	}
	a.IsDeleted = false
	return nil
}

func (s *Store) GetApplicant(ctx context.Context, id string) (*models.Applicant, error) {
	a, err := scanApplicant(s.db.QueryRowContext(ctx, `SELECT `+applicantColumns+` FROM applicants WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "Applicant", fmt.Sprintf("applicantId: %s", id), "get_applicant")
	}
	return a, nil
}

func (s *Store) GetApplicantByExternalID(ctx context.Context, groupID, externalApplicantID string) (*models.Applicant, error) {
	a, err := scanApplicant(s.db.QueryRowContext(ctx, `
		SELECT `+applicantColumns+` FROM applicants
		WHERE group_id = $1 AND external_applicant_id = $2 AND NOT is_deleted
		ORDER BY updated_at DESC LIMIT 1`, groupID, externalApplicantID))
	if err != nil {
		return nil, notFoundOr(err, "Applicant", fmt.Sprintf("externalApplicantId: %s", externalApplicantID), "get_applicant_by_external_id")
	}
	return a, nil
}

// GetAgent returns the local persona for an agent id, if one is stored.
func (s *Store) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	var a models.Agent
	var org sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, organization_id, name, voice, prompt, is_deleted, created_at
		FROM agents WHERE id::text = $1`, id,
	).Scan(&a.ID, &a.GroupID, &org, &a.Name, &a.Voice, &a.Prompt, &a.IsDeleted, &a.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "Agent", fmt.Sprintf("agentId: %s", id), "get_agent")
	}
	a.OrganizationID = stringPtr(org)
	return &a, nil
}

// ListGuideQuestions returns a guide's questions ordered by position.
func (s *Store) ListGuideQuestions(ctx context.Context, guideID string) ([]models.GuideQuestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guide_id, position, text FROM guide_questions
		WHERE guide_id::text = $1 ORDER BY position ASC`, guideID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list_guide_questions", err)
	}
	defer rows.Close()

	var out []models.GuideQuestion
	for rows.Next() {
		var q models.GuideQuestion
		if err := rows.Scan(&q.ID, &q.GuideID, &q.Position, &q.Text); err != nil {
			return nil, apperrors.NewDatabaseError("list_guide_questions", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list_guide_questions", err)
	}
	return out, nil
}
