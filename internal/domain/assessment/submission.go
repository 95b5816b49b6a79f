package assessment

import (
	"time"

	"github.com/google/uuid"

	"github.com/tascvd/cvrisk/internal/platform/geo"
	"github.com/tascvd/cvrisk/internal/platform/sheets"
)

// Local date and time layouts, e.g. "17 Oct 2026" and "15:04:05".
const (
	DateLayout = "02 Jan 2006"
	TimeLayout = "15:04:05"
)

// Submission is the log record of one scored form. Pointer fields are nil
// when they do not apply to the blood mode or when no position is known.
type Submission struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	DateLocal string    `json:"date_local"`
	TimeLocal string    `json:"time_local"`
	AppURL    string    `json:"app_url"`
	HostURL   string    `json:"host_url"`

	Age       int       `json:"age"`
	Sex       int       `json:"sex"`
	Smoke     int       `json:"smoke"`
	DM        int       `json:"dm"`
	SBP       int       `json:"sbp"`
	BloodMode BloodMode `json:"blood_mode"`

	TCMgDL    *int     `json:"tc_mgdl"`
	WaistInch *float64 `json:"wc_inch"`
	WaistCm   *int     `json:"wc_cm"`
	HeightCm  *int     `json:"bdh_cm"`

	RiskFraction float64 `json:"risk_fraction"`
	RiskPercent  float64 `json:"risk_percent"`
	RiskBand     Band    `json:"risk_band"`

	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// NewSubmission builds the record for f scored at risk. at is converted to
// loc for the local date and time columns.
func NewSubmission(f Form, risk float64, hostURL string, coords geo.Coords, at time.Time, loc *time.Location) *Submission {
	local := at.In(loc)
	s := &Submission{
		ID:           uuid.New(),
		CreatedAt:    at.UTC(),
		DateLocal:    local.Format(DateLayout),
		TimeLocal:    local.Format(TimeLayout),
		AppURL:       f.AppURL,
		HostURL:      hostURL,
		Age:          f.Age,
		Sex:          flag(f.Male()),
		Smoke:        flag(f.Smoker),
		DM:           flag(f.Diabetic),
		SBP:          f.SystolicBP,
		BloodMode:    f.BloodMode,
		RiskFraction: risk,
		RiskPercent:  risk * 100,
		RiskBand:     BandFor(risk),
	}
	switch f.BloodMode {
	case BloodOn:
		tc := f.TotalCholesterolMgDL
		s.TCMgDL = &tc
	case BloodOff:
		wi, wc, h := f.WaistInches, f.WaistCm(), f.HeightCm
		s.WaistInch, s.WaistCm, s.HeightCm = &wi, &wc, &h
	}
	if !coords.IsBlank() {
		lat, lon := *coords.Lat, *coords.Lon
		s.Lat, s.Lon = &lat, &lon
	}
	return s
}

// Row is the spreadsheet representation. The column names are what the
// sheet's web app expects.
func (s *Submission) Row() sheets.Row {
	return sheets.Row{
		"id":              s.ID.String(),
		"date_bangkok_en": s.DateLocal,
		"time_bangkok_en": s.TimeLocal,
		"app_url":         s.AppURL,
		"host_url":        s.HostURL,
		"age":             s.Age,
		"sex":             s.Sex,
		"smoke":           s.Smoke,
		"dm":              s.DM,
		"sbp":             s.SBP,
		"blood_mode":      string(s.BloodMode),
		"tc_mgdl":         s.TCMgDL,
		"wc_inch":         s.WaistInch,
		"wc_cm":           s.WaistCm,
		"bdh_cm":          s.HeightCm,
		"risk_fraction":   s.RiskFraction,
		"risk_percent":    s.RiskPercent,
		"risk_band":       string(s.RiskBand),
		"lat":             s.Lat,
		"lon":             s.Lon,
	}
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
