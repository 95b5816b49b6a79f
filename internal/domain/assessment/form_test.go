package assessment

import (
	"errors"
	"math"
	"testing"

	"github.com/tascvd/cvrisk/internal/domain/riskmodel"
)

func validForm() Form {
	return Form{
		Age:                  55,
		Sex:                  SexMale,
		SystolicBP:           120,
		BloodMode:            BloodOn,
		TotalCholesterolMgDL: 200,
		ConsentAck:           true,
	}
}

func TestForm_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Form)
		want   error
	}{
		{"valid", func(*Form) {}, nil},
		{"no consent", func(f *Form) { f.ConsentAck = false }, ErrConsentRequired},
		{"bad sex", func(f *Form) { f.Sex = "x" }, ErrInvalidSex},
		{"empty sex", func(f *Form) { f.Sex = "" }, ErrInvalidSex},
		{"bad blood mode", func(f *Form) { f.BloodMode = "maybe" }, ErrInvalidBloodMode},
		{"numeric domain not checked", func(f *Form) { f.Age = -4; f.SystolicBP = 0 }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			err := f.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("expected a ValidationError, got %T", err)
			}
		})
	}
}

func TestForm_RiskInput_BloodOn(t *testing.T) {
	f := validForm()
	f.WaistInches = 40
	f.HeightCm = 170
	in := f.RiskInput()
	if in.TotalCholesterol != 200 {
		t.Errorf("expected TC 200, got %v", in.TotalCholesterol)
	}
	if in.WaistCircumferenceCm != 0 || in.WaistHipRatio != 0 {
		t.Error("blood_on must populate only cholesterol")
	}
	if in.Mode() != riskmodel.ModeCholesterol {
		t.Errorf("expected cholesterol mode, got %s", in.Mode())
	}
}

func TestForm_RiskInput_BloodOff(t *testing.T) {
	f := validForm()
	f.BloodMode = BloodOff
	f.WaistInches = 33.9
	f.HeightCm = 168
	in := f.RiskInput()
	// 33.9 * 2.5 = 84.75, truncated.
	if in.WaistCircumferenceCm != 84 {
		t.Errorf("expected 84 cm, got %v", in.WaistCircumferenceCm)
	}
	if in.WaistHipRatio != 0.5 {
		t.Errorf("expected ratio 84/168 = 0.5, got %v", in.WaistHipRatio)
	}
	if in.TotalCholesterol != 0 {
		t.Error("blood_off must not populate cholesterol")
	}
	if in.Mode() != riskmodel.ModeWaistHipRatio {
		t.Errorf("expected waist-hip ratio mode, got %s", in.Mode())
	}
}

func TestForm_RiskInput_BloodOffWithoutHeight(t *testing.T) {
	f := validForm()
	f.BloodMode = BloodOff
	f.WaistInches = 33.9
	in := f.RiskInput()
	if in.WaistCircumferenceCm != 84 || in.WaistHipRatio != 0 {
		t.Errorf("unexpected measurements %+v", in)
	}
	if in.Mode() != riskmodel.ModeWaistCircumference {
		t.Errorf("expected waist mode, got %s", in.Mode())
	}
}

func TestForm_RiskInput_WaistHeightRisk(t *testing.T) {
	f := validForm()
	f.SystolicBP = 130
	f.BloodMode = BloodOff
	f.WaistInches = 36
	f.HeightCm = 170

	out := riskmodel.Compute(f.RiskInput())
	if math.Abs(out.PredictedRisk-0.1061985) > 1e-6 {
		t.Errorf("expected risk 0.1061985 from the waist-hip ratio branch, got %v", out.PredictedRisk)
	}
}

func TestForm_WaistCmTruncates(t *testing.T) {
	tests := []struct {
		inches float64
		cm     int
	}{
		{0, 0},
		{32, 80},
		{32.3, 80},
		{38.39, 95},
		{38.4, 96},
	}
	for _, tt := range tests {
		f := Form{WaistInches: tt.inches}
		if got := f.WaistCm(); got != tt.cm {
			t.Errorf("WaistCm(%v) = %d, want %d", tt.inches, got, tt.cm)
		}
	}
}

func TestForm_RiskInputFlags(t *testing.T) {
	f := validForm()
	f.Sex = SexFemale
	f.Smoker = true
	f.Diabetic = true
	in := f.RiskInput()
	if in.Male || !in.Smoker || !in.Diabetic {
		t.Errorf("unexpected flags %+v", in)
	}
}
