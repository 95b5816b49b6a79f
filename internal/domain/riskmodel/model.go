// Package riskmodel implements the Thai cardiovascular risk score: a fitted
// log-linear survival model that estimates the probability of a
// cardiovascular event from a handful of clinical inputs, together with the
// risk of a synthetic reference profile of the same sex and age.
//
// Compute is pure. It does no I/O, holds no state and is safe to call from
// any number of goroutines.
package riskmodel

import (
	"math"
	"strconv"
)

// SurvivalRoot is the baseline survival probability shared by every branch.
const SurvivalRoot = 0.964588

// Input holds the clinical values for a single computation. Exactly one of
// TotalCholesterol, WaistHipRatio and WaistCircumferenceCm is expected to be
// positive; it selects the regression branch.
type Input struct {
	Age                  int     `json:"age"`
	Male                 bool    `json:"male"`
	Smoker               bool    `json:"smoker"`
	Diabetic             bool    `json:"diabetic"`
	SystolicBP           int     `json:"systolic_bp"`
	TotalCholesterol     float64 `json:"total_cholesterol,omitempty"`
	WaistHipRatio        float64 `json:"waist_hip_ratio,omitempty"`
	WaistCircumferenceCm float64 `json:"waist_circumference_cm,omitempty"`
}

// Output is the model result. A zero Output means the activation gate was
// not met or no measurement was supplied.
type Output struct {
	RawScore       float64 `json:"raw_score"`
	PredictedRisk  float64 `json:"predicted_risk"`
	ReferenceScore float64 `json:"reference_score"`
	ReferenceRisk  float64 `json:"reference_risk"`
}

// IsZero reports whether o is the all-zero result.
func (o Output) IsZero() bool {
	return o == Output{}
}

// Mode identifies the regression branch.
type Mode string

const (
	ModeNone               Mode = ""
	ModeCholesterol        Mode = "cholesterol"
	ModeWaistHipRatio      Mode = "waist_hip_ratio"
	ModeWaistCircumference Mode = "waist_circumference"
)

// Mode returns the branch Compute will use for in, in priority order.
func (in Input) Mode() Mode {
	switch {
	case in.TotalCholesterol > 0:
		return ModeCholesterol
	case in.WaistHipRatio > 0:
		return ModeWaistHipRatio
	case in.WaistCircumferenceCm > 0:
		return ModeWaistCircumference
	}
	return ModeNone
}

// branch holds the fitted coefficients of one measurement mode.
type branch struct {
	age, sex, sbp, diabetes, measurement, smoker float64
	intercept                                    float64
}

var (
	cholesterolBranch = branch{
		age: 0.08183, sex: 0.39499, sbp: 0.02084, diabetes: 0.69974,
		measurement: 0.00212, smoker: 0.41916, intercept: 7.04423,
	}
	waistHipBranch = branch{
		age: 0.079, sex: 0.128, sbp: 0.019350987, diabetes: 0.58454,
		measurement: 3.512566, smoker: 0.459, intercept: 7.712325,
	}
	waistBranch = branch{
		age: 0.08372, sex: 0.05988, sbp: 0.02034, diabetes: 0.59953,
		measurement: 0.01283, smoker: 0.459, intercept: 7.31047,
	}
)

// score sums the weighted features left to right. The float64 conversions
// keep every product individually rounded; the compiler may not fuse them
// into multiply-add instructions.
func (b branch) score(age, sex, sbp, diabetes, measurement, smoker float64) float64 {
	s := float64(b.age * age)
	s += float64(b.sex * sex)
	s += float64(b.sbp * sbp)
	s += float64(b.diabetes * diabetes)
	s += float64(b.measurement * measurement)
	s += float64(b.smoker * smoker)
	return s
}

func (b branch) risk(score float64) float64 {
	return 1 - math.Pow(SurvivalRoot, math.Exp(score-b.intercept))
}

// Compute runs the model. It never fails: inputs outside the activation gate
// (Age <= 1 or SystolicBP < 70) or without a measurement yield a zero Output,
// and out-of-domain numbers propagate through the arithmetic unchanged.
func Compute(in Input) Output {
	if in.Age <= 1 || in.SystolicBP < 70 {
		return Output{}
	}

	ref := Reference(in.Male, in.Age)
	age := float64(in.Age)
	sex := indicator(in.Male)
	sbp := float64(in.SystolicBP)
	dm := indicator(in.Diabetic)
	smoke := indicator(in.Smoker)

	var (
		b           branch
		measurement float64
		refMeasure  float64
	)
	switch in.Mode() {
	case ModeCholesterol:
		b, measurement, refMeasure = cholesterolBranch, in.TotalCholesterol, ref.TotalCholesterol
	case ModeWaistHipRatio:
		b, measurement, refMeasure = waistHipBranch, in.WaistHipRatio, ref.WaistHipRatio
	case ModeWaistCircumference:
		b, measurement, refMeasure = waistBranch, in.WaistCircumferenceCm, ref.WaistCircumferenceCm
	default:
		return Output{}
	}

	full := b.score(age, sex, sbp, dm, measurement, smoke)
	compare := b.score(age, sex, float64(ref.SystolicBP), 0, refMeasure, 0)
	return Output{
		RawScore:       full,
		PredictedRisk:  b.risk(full),
		ReferenceScore: compare,
		ReferenceRisk:  b.risk(compare),
	}
}

// Ratio returns PredictedRisk / ReferenceRisk rounded to one decimal place.
// It is a display value; a zero reference risk yields 0.
func Ratio(o Output) float64 {
	if o.ReferenceRisk == 0 {
		return 0
	}
	r, _ := strconv.ParseFloat(strconv.FormatFloat(o.PredictedRisk/o.ReferenceRisk, 'f', 1, 64), 64)
	return r
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
