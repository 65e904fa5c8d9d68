package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jobbsy/jobsletter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jobColumns = []string{
	"id", "title", "organization", "location",
	"employment_type", "remote_option", "tags", "url",
	"pinned", "published_at",
}

func TestJobRepo_FindLastWeekJobs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 6, 15, 12, 40, 0, 0, time.UTC)
	published := now.Add(-48 * time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM job WHERE published_at IS NOT NULL").
		WithArgs(now.Add(-LastWeek), now).
		WillReturnRows(sqlmock.NewRows(jobColumns).
			AddRow("job-1", "Lead Symfony developer", "Acme", "Lyon",
				"full_time", "partial", `{symfony,"api platform"}`, "https://acme.test/careers/1",
				true, published).
			AddRow("job-2", "PHP backend engineer", "Globex", "",
				"contract", "full", `{}`, "",
				false, published.Add(-time.Hour)))

	jobs, err := NewJobRepo(db).FindLastWeekJobs(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "Lead Symfony developer", jobs[0].Title)
	assert.Equal(t, domain.EmploymentFullTime, jobs[0].EmploymentType)
	assert.Equal(t, domain.RemotePartial, jobs[0].RemoteOption)
	assert.Equal(t, []string{"symfony", "api platform"}, jobs[0].Tags)
	assert.True(t, jobs[0].Pinned)
	assert.Equal(t, published, jobs[0].PublishedAt)

	assert.Equal(t, domain.RemoteFull, jobs[1].RemoteOption)
	assert.Empty(t, jobs[1].Tags)
	assert.False(t, jobs[1].Pinned)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepo_FindLastWeekJobs_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM job").
		WillReturnRows(sqlmock.NewRows(jobColumns))

	jobs, err := NewJobRepo(db).FindLastWeekJobs(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestJobRepo_FindLastWeekJobs_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM job").
		WillReturnError(errors.New("connection reset by peer"))

	_, err = NewJobRepo(db).FindLastWeekJobs(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find last week jobs")
}
