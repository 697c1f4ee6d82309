package session

import "errors"

var (
	// ErrClipListUnavailable means the clip list could not be fetched; the
	// session cannot start.
	ErrClipListUnavailable = errors.New("clip list unavailable")
	// ErrNoClips means the backend assigned no clips.
	ErrNoClips = errors.New("no clips assigned")
	// ErrNotReady means at least one box is unrated.
	ErrNotReady = errors.New("not every group is rated")
	// ErrSubmitInProgress means a submission is already outstanding.
	ErrSubmitInProgress = errors.New("submission already in progress")
	// ErrSubmitFailed means the backend did not accept the record.
	ErrSubmitFailed = errors.New("submission failed")
	// ErrNotStarted means Start has not completed.
	ErrNotStarted = errors.New("session not started")
	// ErrAlreadyStarted means Start was called twice.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrCompleted means every clip has been submitted.
	ErrCompleted = errors.New("session completed")
)

// User-facing alert texts.
const (
	MessageNotReady       = "Please rate all groups before submitting, or delete boxes to skip this clip"
	MessageNoClips        = "No clip folders found! Please add clip folders to the videos directory."
	MessageClipListFailed = "Error loading clips. Please check the logs."
	MessageSubmitFailed   = "Error saving annotation. Your boxes are kept; please try submitting again."
	MessageFrameFailed    = "Could not load frame %d; showing the previous frame."
	MessageSummaryFailed  = "Session finished but the summary could not be saved."
)
