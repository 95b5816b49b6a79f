package assessment

import (
	"context"
)

type SubmissionRepository interface {
	Create(ctx context.Context, s *Submission) error
	// List returns submissions newest first together with the total count.
	List(ctx context.Context, limit, offset int) ([]*Submission, int, error)
}
