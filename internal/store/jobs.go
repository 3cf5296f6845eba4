package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/adityabisht-lab/reddit-video-generator/internal/types"
)

const jobColumns = `id, owner_id, source_ref, max_comments, title, status,
	error_detail, artifact_ref, created_at, updated_at`

// Update carries the optional fields written alongside a status transition.
type Update struct {
	Title       string
	ErrorDetail string
	ArtifactRef string
}

// CreateJob inserts a new job in the pending state.
func (s *Store) CreateJob(job *types.Job) error {
	now := time.Now().UTC()
	job.Status = types.StatusPending
	job.CreatedAt = now
	job.UpdatedAt = now
	_, err := s.db.Exec(`insert into jobs
		(id, owner_id, source_ref, max_comments, title, status, created_at, updated_at)
		values (?,?,?,?,?,?,?,?)`,
		job.ID, job.OwnerID, job.SourceRef, job.MaxComments, job.Title,
		job.Status, job.CreatedAt, job.UpdatedAt)
	return err
}

// GetJob returns the job with the given id, or ErrNotFound.
func (s *Store) GetJob(id string) (*types.Job, error) {
	row := s.db.QueryRow(`select `+jobColumns+` from jobs where id = ?`, id)
	return scanJob(row)
}

// GetJobForOwner returns the job only if it belongs to ownerID.
func (s *Store) GetJobForOwner(id string, ownerID int64) (*types.Job, error) {
	row := s.db.QueryRow(`select `+jobColumns+` from jobs where id = ? and owner_id = ?`,
		id, ownerID)
	return scanJob(row)
}

// GetJobByArtifact resolves an artifact reference back to its job.
func (s *Store) GetJobByArtifact(ref string) (*types.Job, error) {
	row := s.db.QueryRow(`select `+jobColumns+` from jobs where artifact_ref = ?`, ref)
	return scanJob(row)
}

// ListJobs returns all jobs owned by ownerID, newest first.
func (s *Store) ListJobs(ownerID int64) ([]types.Job, error) {
	rows, err := s.db.Query(`select `+jobColumns+` from jobs
		where owner_id = ? order by created_at desc, id desc`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// TryClaim atomically transitions a pending job to fetching. Exactly one
// caller wins; everyone else gets ErrAlreadyClaimed.
func (s *Store) TryClaim(id string) (*types.Job, error) {
	res, err := s.db.Exec(`update jobs set status = ?, updated_at = ?
		where id = ? and status = ?`,
		types.StatusFetching, time.Now().UTC(), id, types.StatusPending)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := s.GetJob(id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyClaimed
	}
	return s.GetJob(id)
}

// ClaimNext claims the oldest pending job, or returns nil if none is
// available. The select and the compare-and-swap update run in one
// transaction so two workers can never both claim the same job.
func (s *Store) ClaimNext() (*types.Job, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`select id from jobs where status = ?
		order by created_at asc limit 1`, types.StatusPending)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	res, err := tx.Exec(`update jobs set status = ?, updated_at = ?
		where id = ? and status = ?`,
		types.StatusFetching, time.Now().UTC(), id, types.StatusPending)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetJob(id)
}

// Advance moves a job to the next status and writes the accompanying fields.
// Transitions that are not forward-legal are rejected with
// ErrIllegalTransition, including any transition out of a terminal status.
func (s *Store) Advance(id string, next types.Status, upd Update) (*types.Job, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var current types.Status
	row := tx.QueryRow(`select status from jobs where id = ?`, id)
	if err := row.Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !current.CanAdvanceTo(next) {
		return nil, ErrIllegalTransition
	}

	// artifact_ref is written iff the job completes; error_detail iff it errors
	artifact := ""
	detail := ""
	switch next {
	case types.StatusCompleted:
		artifact = upd.ArtifactRef
	case types.StatusError:
		detail = upd.ErrorDetail
	}

	if upd.Title != "" {
		_, err = tx.Exec(`update jobs set status = ?, title = ?, error_detail = ?,
			artifact_ref = ?, updated_at = ? where id = ?`,
			next, upd.Title, detail, artifact, time.Now().UTC(), id)
	} else {
		_, err = tx.Exec(`update jobs set status = ?, error_detail = ?,
			artifact_ref = ?, updated_at = ? where id = ?`,
			next, detail, artifact, time.Now().UTC(), id)
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetJob(id)
}

// ReclaimStale re-queues in-flight jobs whose claim went quiet for longer
// than the staleness window, so an orchestrator crash never strands a job in
// a non-terminal status forever. Returns how many jobs were re-queued.
func (s *Store) ReclaimStale(staleBefore time.Time) (int64, error) {
	res, err := s.db.Exec(`update jobs set status = ?, updated_at = ?
		where status in (?,?,?) and updated_at <= ?`,
		types.StatusPending, time.Now().UTC(),
		types.StatusFetching, types.StatusComposing, types.StatusRendering,
		staleBefore.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByStatus returns all jobs in the given status, oldest first.
func (s *Store) ListByStatus(status types.Status) ([]types.Job, error) {
	rows, err := s.db.Query(`select `+jobColumns+` from jobs
		where status = ? order by created_at asc`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Stats returns the number of jobs per status.
func (s *Store) Stats() (map[types.Status]int, error) {
	rows, err := s.db.Query(`select status, count(*) from jobs group by status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[types.Status]int)
	for rows.Next() {
		var status types.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*types.Job, error) {
	var job types.Job
	err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.SourceRef,
		&job.MaxComments,
		&job.Title,
		&job.Status,
		&job.ErrorDetail,
		&job.ArtifactRef,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}
