package domain

import "errors"

// Domain errors.
var (
	// ErrNoJobs is returned when there are no upload jobs to process.
	ErrNoJobs = errors.New("no jobs available")

	// ErrJobNotFound is returned when a job cannot be found.
	ErrJobNotFound = errors.New("job not found")

	// ErrRecordNotFound is returned when a ledger record cannot be found.
	ErrRecordNotFound = errors.New("upload record not found")

	// ErrUnsupportedMedia is returned when the hosting platform rejects
	// the media type of an upload.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrStorageFull is returned when there is insufficient disk space
	// to download an attachment.
	ErrStorageFull = errors.New("insufficient storage space")

	// ErrRateLimited is returned when rate limited by external services.
	ErrRateLimited = errors.New("rate limited")
)

// StorageError wraps a ledger failure. A failing ledger must never be
// read as "not yet uploaded", so callers treat it as fatal for the item.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "ledger " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err with the failing ledger operation.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// DownloadError wraps a failure to materialize an attachment locally.
type DownloadError struct {
	Path string
	Err  error
}

func (e *DownloadError) Error() string {
	return "download " + e.Path + ": " + e.Err.Error()
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// UploadError wraps an upload failure. Fatal means the retry ceiling was
// exceeded or the failure cannot succeed on retry.
type UploadError struct {
	Attempts int
	Fatal    bool
	Err      error
}

func (e *UploadError) Error() string {
	if e.Fatal {
		return "upload failed permanently: " + e.Err.Error()
	}
	return "upload failed: " + e.Err.Error()
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err originates in the ledger.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
