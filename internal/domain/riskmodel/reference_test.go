package riskmodel

import (
	"math"
	"testing"
)

func TestReference_SystolicBP(t *testing.T) {
	tests := []struct {
		male bool
		age  int
		want int
	}{
		{false, 40, 115},
		{false, 60, 115},
		{false, 61, 130},
		{true, 40, 120},
		{true, 60, 120},
		{true, 61, 132},
	}
	for _, tt := range tests {
		if got := Reference(tt.male, tt.age).SystolicBP; got != tt.want {
			t.Errorf("Reference(male=%v, age=%d).SystolicBP = %d, want %d", tt.male, tt.age, got, tt.want)
		}
	}
}

func TestReference_Measurements(t *testing.T) {
	m := Reference(true, 50)
	if m.WaistHipRatio != 0.58125 || m.WaistCircumferenceCm != 93 || m.HDL != 44 {
		t.Errorf("unexpected male profile: %+v", m)
	}
	f := Reference(false, 50)
	if f.WaistHipRatio != 0.52667 || f.WaistCircumferenceCm != 79 || f.HDL != 49 {
		t.Errorf("unexpected female profile: %+v", f)
	}
	if m.TotalCholesterol != 200 || f.TotalCholesterol != 200 {
		t.Error("reference cholesterol must be 200 for both sexes")
	}
}

func TestReference_AgeBoundaryFlowsIntoCompute(t *testing.T) {
	at60 := Compute(Input{Age: 60, SystolicBP: 130, TotalCholesterol: 200})
	want60 := 0.08183*60 + 0.02084*115 + 0.00212*200
	if math.Abs(at60.ReferenceScore-want60) > 1e-12 {
		t.Errorf("age 60 female ReferenceScore = %v, want %v", at60.ReferenceScore, want60)
	}
	at61 := Compute(Input{Age: 61, SystolicBP: 130, TotalCholesterol: 200})
	want61 := 0.08183*61 + 0.02084*130 + 0.00212*200
	if math.Abs(at61.ReferenceScore-want61) > 1e-12 {
		t.Errorf("age 61 female ReferenceScore = %v, want %v", at61.ReferenceScore, want61)
	}
}
