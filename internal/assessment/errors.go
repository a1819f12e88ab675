package assessment

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput marks caller mistakes that are never recovered.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamUnavailable indicates the model is not configured or the call failed.
	ErrUpstreamUnavailable = errors.New("upstream generation unavailable")
	// ErrMalformedResponse indicates upstream text could not be repaired.
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrInsufficientContent indicates too little resume text survived sanitising.
	ErrInsufficientContent = errors.New("insufficient resume content")
	// ErrArtifactFetch indicates the stored resume artifact could not be read.
	ErrArtifactFetch = errors.New("resume artifact fetch failed")
)

// MissingAnswersError lists the questions left unanswered at submission.
type MissingAnswersError struct {
	QuestionIDs []string
}

func (e *MissingAnswersError) Error() string {
	return fmt.Sprintf("%d question(s) unanswered: %s", len(e.QuestionIDs), strings.Join(e.QuestionIDs, ", "))
}

// Is lets errors.Is(err, ErrInvalidInput) match.
func (e *MissingAnswersError) Is(target error) bool {
	return target == ErrInvalidInput
}
