// Package assessment turns a submitted risk form into a scored, banded and
// localized result, and records each scored submission.
package assessment

import (
	"errors"
	"fmt"
	"math"

	"github.com/tascvd/cvrisk/internal/domain/riskmodel"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// BloodMode says whether a blood test result is available.
type BloodMode string

const (
	// BloodOn scores with total cholesterol.
	BloodOn BloodMode = "blood_on"
	// BloodOff scores with waist circumference, or with the waist to height
	// ratio when a height is given.
	BloodOff BloodMode = "blood_off"
)

// CmPerInch is the conversion factor used by the form. The waist is entered
// in inches and truncated to whole centimetres.
const CmPerInch = 2.5

var (
	ErrConsentRequired  = errors.New("consent must be acknowledged before submitting")
	ErrInvalidSex       = errors.New("sex must be male or female")
	ErrInvalidBloodMode = errors.New("blood_mode must be blood_on or blood_off")
)

// ValidationError wraps a form problem the caller can fix.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Form is the risk questionnaire as submitted by the widget.
type Form struct {
	Age        int       `json:"age"`
	Sex        Sex       `json:"sex"`
	Smoker     bool      `json:"smoke"`
	Diabetic   bool      `json:"dm"`
	SystolicBP int       `json:"sbp"`
	BloodMode  BloodMode `json:"blood_mode"`

	TotalCholesterolMgDL int     `json:"tc_mgdl"`
	WaistInches          float64 `json:"wc_inch"`
	HeightCm             int     `json:"bdh_cm"`

	ConsentAck bool   `json:"consent_ack"`
	Lang       string `json:"lang"`

	AppURL    string `json:"app_url"`
	Referrer  string `json:"referrer"`
	HostQuery string `json:"host"`
}

// Validate checks what the model itself cannot: consent and the enumerated
// choices. Numeric ranges are left to the model, which is total.
func (f Form) Validate() error {
	if !f.ConsentAck {
		return &ValidationError{Err: ErrConsentRequired}
	}
	if f.Sex != SexMale && f.Sex != SexFemale {
		return &ValidationError{Err: fmt.Errorf("%w: %q", ErrInvalidSex, f.Sex)}
	}
	if f.BloodMode != BloodOn && f.BloodMode != BloodOff {
		return &ValidationError{Err: fmt.Errorf("%w: %q", ErrInvalidBloodMode, f.BloodMode)}
	}
	return nil
}

func (f Form) Male() bool { return f.Sex == SexMale }

// WaistCm converts the entered waist to centimetres, truncating toward zero.
func (f Form) WaistCm() int {
	return int(math.Trunc(f.WaistInches * CmPerInch))
}

// RiskInput maps the form onto the model input. blood_on populates only the
// cholesterol. blood_off populates the waist in cm and, when a height is also
// given, WaistHipRatio as waist cm / height cm, which the model prefers.
func (f Form) RiskInput() riskmodel.Input {
	in := riskmodel.Input{
		Age:        f.Age,
		Male:       f.Male(),
		Smoker:     f.Smoker,
		Diabetic:   f.Diabetic,
		SystolicBP: f.SystolicBP,
	}
	switch f.BloodMode {
	case BloodOn:
		in.TotalCholesterol = float64(f.TotalCholesterolMgDL)
	case BloodOff:
		wc := f.WaistCm()
		in.WaistCircumferenceCm = float64(wc)
		if wc > 0 && f.HeightCm > 0 {
			in.WaistHipRatio = float64(wc) / float64(f.HeightCm)
		}
	}
	return in
}
