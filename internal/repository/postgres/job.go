package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jobbsy/jobsletter/internal/domain"
	"github.com/lib/pq"
)

// LastWeek is the look-back window of the weekly letter.
const LastWeek = 7 * 24 * time.Hour

// JobRepo reads published jobs from PostgreSQL.
type JobRepo struct{ db *sql.DB }

// NewJobRepo creates a Postgres-backed job repository.
func NewJobRepo(db *sql.DB) *JobRepo { return &JobRepo{db: db} }

// FindLastWeekJobs returns the jobs published during the seven days before
// now, pinned jobs first, then newest first.
func (r *JobRepo) FindLastWeekJobs(ctx context.Context, now time.Time) ([]domain.Job, error) {
	from := now.Add(-LastWeek)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, organization, COALESCE(location, ''),
		       employment_type, remote_option, tags, COALESCE(url, ''),
		       COALESCE(pinned_until > $2, false), published_at
		FROM job
		WHERE published_at IS NOT NULL
		  AND published_at >= $1
		  AND published_at < $2
		ORDER BY 9 DESC, published_at DESC
	`, from, now)
	if err != nil {
		return nil, fmt.Errorf("find last week jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		var (
			j              domain.Job
			employmentType string
			remoteOption   string
			tags           pq.StringArray
		)
		if err := rows.Scan(
			&j.ID, &j.Title, &j.Organization, &j.Location,
			&employmentType, &remoteOption, &tags, &j.URL,
			&j.Pinned, &j.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.EmploymentType = domain.EmploymentType(employmentType)
		j.RemoteOption = domain.RemoteOption(remoteOption)
		j.Tags = []string(tags)
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}
