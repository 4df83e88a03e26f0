package domain

// OutcomeStatus is the terminal state of one pipeline run for an item.
type OutcomeStatus string

const (
	OutcomeSkipped  OutcomeStatus = "skipped"
	OutcomeUploaded OutcomeStatus = "uploaded"
	OutcomeFailed   OutcomeStatus = "failed"
)

// Outcome is the explicit result of processing one item. Skips are
// expected, frequent results (not a video, already handled, unsupported
// media) and are modeled as values rather than errors.
type Outcome struct {
	Status OutcomeStatus

	// Reason explains a skip in human terms.
	Reason string

	// VideoID is the hosting platform id, set only for OutcomeUploaded.
	VideoID string

	// Err is set only for OutcomeFailed.
	Err error
}

// Skipped builds a skip outcome with a reason.
func Skipped(reason string) Outcome {
	return Outcome{Status: OutcomeSkipped, Reason: reason}
}

// Uploaded builds a success outcome carrying the confirmed video id.
func Uploaded(videoID string) Outcome {
	return Outcome{Status: OutcomeUploaded, VideoID: videoID}
}

// Failed builds a failure outcome.
func Failed(err error) Outcome {
	return Outcome{Status: OutcomeFailed, Err: err}
}
