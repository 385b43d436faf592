package domain

import "errors"

var (
	// ErrDocumentNotFound signals a missing or soft-deleted document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidRequest signals a malformed request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPublishFailed signals that a command could not be handed to the queue.
	ErrPublishFailed = errors.New("publish failed")
	// ErrApplyFailed signals that a consumed command could not be applied to the index.
	ErrApplyFailed = errors.New("apply failed")
	// ErrSearchEngine signals a search engine failure.
	ErrSearchEngine = errors.New("search engine error")
)
