package assessment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tascvd/cvrisk/internal/domain/riskmodel"
	"github.com/tascvd/cvrisk/internal/platform/geo"
)

// CoordsSource returns coordinates already known for a session. It must not
// prompt the user.
type CoordsSource interface {
	Cached(ctx context.Context, sessionID string) geo.Coords
}

// HostResolver finds the page the widget is embedded in.
type HostResolver interface {
	BestHostURL(ctx context.Context, sessionID, referrer, hostQuery string) string
}

// Submitter hands a submission off for background delivery. It must not
// block.
type Submitter interface {
	Submit(s *Submission) error
}

// Recorder counts computed assessments.
type Recorder interface {
	AssessmentComputed(band string)
}

// Result is returned for every valid form.
type Result struct {
	Input        riskmodel.Input  `json:"input"`
	Mode         riskmodel.Mode   `json:"mode"`
	Output       riskmodel.Output `json:"output"`
	Report       Report           `json:"report"`
	SubmissionID *uuid.UUID       `json:"submission_id,omitempty"`
}

type Service struct {
	repo      SubmissionRepository
	renderer  *Renderer
	submitter Submitter
	coords    CoordsSource
	hosts     HostResolver
	recorder  Recorder
	logger    zerolog.Logger
	now       func() time.Time
	loc       *time.Location
}

type ServiceOption func(*Service)

func WithSubmitter(sub Submitter) ServiceOption {
	return func(s *Service) { s.submitter = sub }
}

func WithCoords(c CoordsSource) ServiceOption {
	return func(s *Service) { s.coords = c }
}

func WithHostResolver(h HostResolver) ServiceOption {
	return func(s *Service) { s.hosts = h }
}

func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the timezone of the local date and time columns.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewService(repo SubmissionRepository, renderer *Renderer, opts ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		renderer: renderer,
		logger:   zerolog.Nop(),
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Assess scores f, renders the report and queues the submission. Only
// validation errors are returned; delivery problems are logged.
func (s *Service) Assess(ctx context.Context, sessionID string, f Form) (*Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	in := f.RiskInput()
	out := riskmodel.Compute(in)
	res := &Result{
		Input:  in,
		Mode:   in.Mode(),
		Output: out,
		Report: s.renderer.Render(f.Lang, f, out),
	}
	if s.recorder != nil {
		s.recorder.AssessmentComputed(string(res.Report.Band))
	}

	if res.Report.Band == BandNone {
		s.logger.Debug().Int("age", f.Age).Int("sbp", f.SystolicBP).Msg("no predicted risk; submission not logged")
		return res, nil
	}
	if s.submitter == nil {
		return res, nil
	}

	coords := geo.Blank()
	if s.coords != nil {
		coords = s.coords.Cached(ctx, sessionID)
	}
	host := ""
	if s.hosts != nil {
		host = s.hosts.BestHostURL(ctx, sessionID, f.Referrer, f.HostQuery)
	}

	sub := NewSubmission(f, out.PredictedRisk, host, coords, s.now(), s.loc)
	if err := s.submitter.Submit(sub); err != nil {
		s.logger.Warn().Err(err).Str("submission_id", sub.ID.String()).Msg("submission not queued")
		return res, nil
	}
	res.SubmissionID = &sub.ID
	return res, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Submission, int, error) {
	return s.repo.List(ctx, limit, offset)
}

const exportPageSize = 500

// Export renders every stored submission as an xlsx workbook.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	var all []*Submission
	for offset := 0; ; offset += exportPageSize {
		page, total, err := s.repo.List(ctx, exportPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list submissions: %w", err)
		}
		all = append(all, page...)
		if len(page) == 0 || offset+len(page) >= total {
			break
		}
	}
	return WriteWorkbook(all)
}
