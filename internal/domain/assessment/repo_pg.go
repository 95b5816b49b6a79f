package assessment

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tascvd/cvrisk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type submissionRepoPG struct{ pool *pgxpool.Pool }

func NewSubmissionRepoPG(pool *pgxpool.Pool) SubmissionRepository {
	return &submissionRepoPG{pool: pool}
}

func (r *submissionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const submissionCols = `id, created_at, date_local, time_local, app_url, host_url,
	age, sex, smoke, dm, sbp, blood_mode,
	tc_mgdl, wc_inch, wc_cm, bdh_cm,
	risk_fraction, risk_percent, risk_band, lat, lon`

func (r *submissionRepoPG) scanRow(row pgx.Row) (*Submission, error) {
	var s Submission
	var mode, band string
	err := row.Scan(&s.ID, &s.CreatedAt, &s.DateLocal, &s.TimeLocal, &s.AppURL, &s.HostURL,
		&s.Age, &s.Sex, &s.Smoke, &s.DM, &s.SBP, &mode,
		&s.TCMgDL, &s.WaistInch, &s.WaistCm, &s.HeightCm,
		&s.RiskFraction, &s.RiskPercent, &band, &s.Lat, &s.Lon)
	s.BloodMode = BloodMode(mode)
	s.RiskBand = Band(band)
	return &s, err
}

func (r *submissionRepoPG) Create(ctx context.Context, s *Submission) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO submission (`+submissionCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		ON CONFLICT (id) DO NOTHING`,
		s.ID, s.CreatedAt, s.DateLocal, s.TimeLocal, s.AppURL, s.HostURL,
		s.Age, s.Sex, s.Smoke, s.DM, s.SBP, string(s.BloodMode),
		s.TCMgDL, s.WaistInch, s.WaistCm, s.HeightCm,
		s.RiskFraction, s.RiskPercent, string(s.RiskBand), s.Lat, s.Lon)
	return err
}

func (r *submissionRepoPG) List(ctx context.Context, limit, offset int) ([]*Submission, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM submission`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+submissionCols+` FROM submission ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Submission
	for rows.Next() {
		s, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
