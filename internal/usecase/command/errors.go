package command

import (
	"fmt"

	"github.com/kailas-cloud/docgate/internal/domain"
	domcmd "github.com/kailas-cloud/docgate/internal/domain/command"
)

// PublishError reports a command the queue did not accept.
type PublishError struct {
	Kind       domcmd.Kind
	DocumentID string
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s command for %s: %v", e.Kind, e.DocumentID, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *PublishError) Unwrap() []error { return []error{domain.ErrPublishFailed, e.Err} }

// ApplyError reports a consumed command that could not be applied to the index.
type ApplyError struct {
	Kind      domcmd.Kind
	CommandID string
	Err       error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %s command %s: %v", e.Kind, e.CommandID, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *ApplyError) Unwrap() []error { return []error{domain.ErrApplyFailed, e.Err} }
