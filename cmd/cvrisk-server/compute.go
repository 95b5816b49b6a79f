package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tascvd/cvrisk/internal/domain/assessment"
	"github.com/tascvd/cvrisk/internal/domain/riskmodel"
)

type computeResult struct {
	Input         riskmodel.Input       `json:"input"`
	Mode          riskmodel.Mode        `json:"mode"`
	Output        riskmodel.Output      `json:"output"`
	Band          assessment.Band       `json:"band"`
	Percent       string                `json:"percent,omitempty"`
	PercentCapped bool                  `json:"percent_capped"`
	Ratio         string                `json:"ratio"`
	Comparison    assessment.Comparison `json:"comparison"`
}

func evaluate(in riskmodel.Input) computeResult {
	out := riskmodel.Compute(in)
	ratio := riskmodel.Ratio(out)
	percent, capped := assessment.DisplayPercent(out.PredictedRisk)
	return computeResult{
		Input:         in,
		Mode:          in.Mode(),
		Output:        out,
		Band:          assessment.BandFor(out.PredictedRisk),
		Percent:       percent,
		PercentCapped: capped,
		Ratio:         assessment.FormatRatio(ratio),
		Comparison:    assessment.ComparisonFor(ratio),
	}
}

func computeCmd() *cobra.Command {
	var (
		in  riskmodel.Input
		sex string
	)
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute the risk for one set of inputs and print it as JSON",
		Example: "  cvrisk-server compute --age 55 --sex male --sbp 120 --tc 200\n" +
			"  cvrisk-server compute --age 60 --sex female --sbp 140 --smoker --wc 90",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch assessment.Sex(sex) {
			case assessment.SexMale:
				in.Male = true
			case assessment.SexFemale:
				in.Male = false
			default:
				return fmt.Errorf("--sex must be male or female, got %q", sex)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(evaluate(in))
		},
	}

	f := cmd.Flags()
	f.IntVar(&in.Age, "age", 0, "age in years")
	f.StringVar(&sex, "sex", "male", "male or female")
	f.BoolVar(&in.Smoker, "smoker", false, "current smoker")
	f.BoolVar(&in.Diabetic, "diabetic", false, "diagnosed diabetes")
	f.IntVar(&in.SystolicBP, "sbp", 0, "systolic blood pressure (mmHg)")
	f.Float64Var(&in.TotalCholesterol, "tc", 0, "total cholesterol (mg/dL)")
	f.Float64Var(&in.WaistHipRatio, "whr", 0, "waist-hip ratio")
	f.Float64Var(&in.WaistCircumferenceCm, "wc", 0, "waist circumference (cm)")
	for _, name := range []string{"age", "sbp"} {
		cobra.CheckErr(cmd.MarkFlagRequired(name))
	}
	return cmd
}
