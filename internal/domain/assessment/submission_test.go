package assessment

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tascvd/cvrisk/internal/platform/geo"
	"github.com/tascvd/cvrisk/internal/platform/sheets"
)

func TestNewSubmission_BloodOn(t *testing.T) {
	f := validForm()
	f.WaistInches = 40
	s := NewSubmission(f, 0.05, "https://host.example", geo.Blank(), fixedNow, time.UTC)

	if s.TCMgDL == nil || *s.TCMgDL != 200 {
		t.Errorf("expected tc 200, got %v", s.TCMgDL)
	}
	if s.WaistInch != nil || s.WaistCm != nil || s.HeightCm != nil {
		t.Error("waist fields must be nil in blood_on mode")
	}
	if s.Sex != 1 || s.Smoke != 0 || s.DM != 0 {
		t.Errorf("unexpected flags sex=%d smoke=%d dm=%d", s.Sex, s.Smoke, s.DM)
	}
	if s.RiskBand != BandLow || s.RiskPercent != 5 {
		t.Errorf("unexpected risk %v %s", s.RiskPercent, s.RiskBand)
	}
	if s.Lat != nil || s.Lon != nil {
		t.Error("expected nil coordinates")
	}
}

func TestNewSubmission_BloodOff(t *testing.T) {
	f := validForm()
	f.Sex = SexFemale
	f.BloodMode = BloodOff
	f.WaistInches = 33.9
	f.HeightCm = 160
	f.TotalCholesterolMgDL = 250
	s := NewSubmission(f, 0.12, "", geo.At(7.88, 98.39), fixedNow, time.UTC)

	if s.TCMgDL != nil {
		t.Error("tc must be nil in blood_off mode")
	}
	if *s.WaistInch != 33.9 || *s.WaistCm != 84 || *s.HeightCm != 160 {
		t.Errorf("unexpected waist fields %v %v %v", *s.WaistInch, *s.WaistCm, *s.HeightCm)
	}
	if s.Sex != 0 {
		t.Errorf("expected female = 0, got %d", s.Sex)
	}
	if *s.Lat != 7.88 || *s.Lon != 98.39 {
		t.Errorf("unexpected coords %v %v", *s.Lat, *s.Lon)
	}
}

func TestSubmission_RowJSON(t *testing.T) {
	s := NewSubmission(validForm(), 0.25, "https://host.example", geo.Blank(), fixedNow, time.UTC)
	b, err := json.Marshal(s.Row())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]interface{}
	json.Unmarshal(b, &got)

	for _, key := range []string{"date_bangkok_en", "time_bangkok_en", "app_url", "age", "sex", "smoke", "dm",
		"sbp", "blood_mode", "tc_mgdl", "wc_inch", "wc_cm", "bdh_cm", "risk_percent", "risk_band", "lat", "lon"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing column %s", key)
		}
	}
	if got["wc_cm"] != nil || got["lat"] != nil {
		t.Error("inapplicable columns must be null")
	}
	if got["risk_band"] != "high" || got["risk_percent"] != 25.0 {
		t.Errorf("unexpected risk columns %v %v", got["risk_band"], got["risk_percent"])
	}
	if got["date_bangkok_en"] != "17 Oct 2026" {
		t.Errorf("unexpected date %v", got["date_bangkok_en"])
	}
}

func TestSheetsSink(t *testing.T) {
	var rows []sheets.Row
	appender := appenderFunc(func(_ context.Context, row sheets.Row) error {
		rows = append(rows, row)
		return nil
	})
	s := NewSubmission(validForm(), 0.05, "", geo.Blank(), fixedNow, time.UTC)
	sink := SheetsSink(appender)
	if sink.Name() != "sheets" {
		t.Errorf("unexpected sink name %s", sink.Name())
	}
	if err := sink.Write(context.Background(), s); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != s.ID.String() {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestRepositorySink(t *testing.T) {
	repo := NewMemoryRepository()
	s := NewSubmission(validForm(), 0.05, "", geo.Blank(), fixedNow, time.UTC)
	if err := RepositorySink(repo).Write(context.Background(), s); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Replays of the same submission are ignored.
	RepositorySink(repo).Write(context.Background(), s)
	if _, total, _ := repo.List(context.Background(), 10, 0); total != 1 {
		t.Errorf("expected 1 stored submission, got %d", total)
	}
}

func TestMemoryRepository_ListBounds(t *testing.T) {
	repo := NewMemoryRepository()
	for i := 0; i < 3; i++ {
		repo.Create(context.Background(), NewSubmission(validForm(), 0.05, "", geo.Blank(), fixedNow, time.UTC))
	}
	items, total, _ := repo.List(context.Background(), 10, 5)
	if total != 3 || len(items) != 0 {
		t.Errorf("expected empty page past the end, got %d of %d", len(items), total)
	}
	items, _, _ = repo.List(context.Background(), 2, 2)
	if len(items) != 1 {
		t.Errorf("expected 1 item on the last page, got %d", len(items))
	}
}

func TestWriteWorkbook(t *testing.T) {
	f := validForm()
	f.BloodMode = BloodOff
	f.WaistInches = 36
	f.HeightCm = 170
	s := NewSubmission(f, 0.1276, "https://host.example", geo.At(13.75, 100.5), fixedNow, time.UTC)

	data, err := WriteWorkbook([]*Submission{s})
	if err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}
	rows := readWorkbookRows(t, data)
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	if rows[0][0] != "ID" || len(rows[0]) != len(ExportHeader) {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != s.ID.String() || rows[1][10] != "blood_off" {
		t.Errorf("unexpected row %v", rows[1])
	}
	if rows[1][11] != "" {
		t.Errorf("tc cell must be empty in blood_off mode, got %q", rows[1][11])
	}
	if rows[1][13] != "90" {
		t.Errorf("expected waist 90 cm, got %q", rows[1][13])
	}
}

type appenderFunc func(ctx context.Context, row sheets.Row) error

func (f appenderFunc) Append(ctx context.Context, row sheets.Row) error { return f(ctx, row) }

func readWorkbookRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	return rows
}
