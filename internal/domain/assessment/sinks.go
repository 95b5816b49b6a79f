package assessment

import (
	"context"

	"github.com/tascvd/cvrisk/internal/platform/dispatch"
	"github.com/tascvd/cvrisk/internal/platform/sheets"
)

// RowAppender appends a spreadsheet row. *sheets.Client satisfies it.
type RowAppender interface {
	Append(ctx context.Context, row sheets.Row) error
}

// SheetsSink delivers submissions to the spreadsheet web app.
func SheetsSink(a RowAppender) dispatch.Sink[*Submission] {
	return dispatch.SinkFunc[*Submission]{
		SinkName: "sheets",
		Fn: func(ctx context.Context, s *Submission) error {
			return a.Append(ctx, s.Row())
		},
	}
}

// RepositorySink stores submissions.
func RepositorySink(repo SubmissionRepository) dispatch.Sink[*Submission] {
	return dispatch.SinkFunc[*Submission]{
		SinkName: "repository",
		Fn:       repo.Create,
	}
}
