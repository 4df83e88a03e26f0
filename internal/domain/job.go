package domain

import (
	"time"
)

// JobID is a unique identifier for an upload job.
type JobID string

// String returns the string representation of the JobID.
func (id JobID) String() string {
	return string(id)
}

// JobStatus represents the current state of an upload job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusSkipped    JobStatus = "skipped"
	JobStatusFailed     JobStatus = "failed"
)

// Job is one unit of upload work: a downloaded source item waiting for
// transfer to the hosting platform. Retry of individual transfer chunks
// happens inside the uploader, not at the job level.
type Job struct {
	ID        JobID
	Item      Item
	LocalPath string
	Status    JobStatus
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob creates a queued upload job for a downloaded item.
func NewJob(id JobID, item Item, localPath string) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		Item:      item,
		LocalPath: localPath,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkProcessing updates the job status to processing.
func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now()
}

// MarkCompleted updates the job status to completed.
func (j *Job) MarkCompleted() {
	j.Status = JobStatusCompleted
	j.UpdatedAt = time.Now()
}

// MarkSkipped updates the job status to skipped.
func (j *Job) MarkSkipped() {
	j.Status = JobStatusSkipped
	j.UpdatedAt = time.Now()
}

// MarkFailed updates the job status to failed with an error message.
func (j *Job) MarkFailed(err string) {
	j.Status = JobStatusFailed
	j.LastError = err
	j.UpdatedAt = time.Now()
}
