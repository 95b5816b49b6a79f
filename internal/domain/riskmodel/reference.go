package riskmodel

// ReferenceProfile is the synthetic average individual of a given sex and age
// bracket. The reference individual never smokes and is never diabetic.
type ReferenceProfile struct {
	SystolicBP           int     `json:"systolic_bp"`
	TotalCholesterol     float64 `json:"total_cholesterol"`
	WaistHipRatio        float64 `json:"waist_hip_ratio"`
	WaistCircumferenceCm float64 `json:"waist_circumference_cm"`
	// HDL is kept for completeness; no branch uses it.
	HDL int `json:"hdl"`
}

// ReferenceTotalCholesterol is the fixed cholesterol of the reference profile.
const ReferenceTotalCholesterol = 200

// Reference returns the reference profile for the given sex and age. The age
// bracket boundary is inclusive: 60 belongs to the younger bracket.
func Reference(male bool, age int) ReferenceProfile {
	p := ReferenceProfile{
		SystolicBP:           120,
		TotalCholesterol:     ReferenceTotalCholesterol,
		WaistHipRatio:        0.52667,
		WaistCircumferenceCm: 79,
		HDL:                  44,
	}
	if male {
		p.WaistHipRatio = 0.58125
		p.WaistCircumferenceCm = 93
		if age > 60 {
			p.SystolicBP = 132
		}
		return p
	}

	p.HDL = 49
	if age <= 60 {
		p.SystolicBP = 115
	} else {
		p.SystolicBP = 130
	}
	return p
}
