package assessment

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/tascvd/cvrisk/internal/domain/riskmodel"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Thresholds that trigger a lifestyle suggestion.
const (
	SuggestSBP              = 140
	SuggestTotalCholesterol = 220
	SuggestWaistCmMale      = 38
	SuggestWaistCmFemale    = 32
)

// Report is the localized, display-ready part of a result.
type Report struct {
	Lang           string     `json:"lang"`
	Band           Band       `json:"band"`
	BandLabel      string     `json:"band_label"`
	Percent        string     `json:"percent"`
	PercentCapped  bool       `json:"percent_capped"`
	Ratio          float64    `json:"ratio"`
	Comparison     Comparison `json:"comparison"`
	ComparisonText string     `json:"comparison_text"`
	Suggestions    []string   `json:"suggestions"`
	Advice         string     `json:"advice"`
}

// Renderer produces Reports in the languages found under locales/.
type Renderer struct {
	bundle    *i18n.Bundle
	supported []language.Tag
	matcher   language.Matcher
}

// NewRenderer loads the embedded message files. defaultLang is used for
// requests in any language without a message file.
func NewRenderer(defaultLang string) (*Renderer, error) {
	def, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse default language %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(def)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	var loaded []language.Tag
	for _, e := range entries {
		name := path.Join("locales", e.Name())
		data, err := localeFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		mf, err := bundle.ParseMessageFileBytes(data, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		loaded = append(loaded, mf.Tag)
	}

	supported := []language.Tag{def}
	found := false
	for _, t := range loaded {
		if t == def {
			found = true
			continue
		}
		supported = append(supported, t)
	}
	if !found {
		return nil, fmt.Errorf("no messages for default language %s", def)
	}

	return &Renderer{
		bundle:    bundle,
		supported: supported,
		matcher:   language.NewMatcher(supported),
	}, nil
}

// Languages lists the supported languages, default first.
func (r *Renderer) Languages() []string {
	out := make([]string, len(r.supported))
	for i, t := range r.supported {
		out[i] = t.String()
	}
	return out
}

// resolve picks the supported language for an Accept-Language style value.
func (r *Renderer) resolve(lang string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(tags) == 0 {
		return r.supported[0]
	}
	_, idx, conf := r.matcher.Match(tags...)
	if conf == language.No {
		return r.supported[0]
	}
	return r.supported[idx]
}

// Render builds the report for a scored form.
func (r *Renderer) Render(lang string, f Form, out riskmodel.Output) Report {
	tag := r.resolve(lang)
	loc := i18n.NewLocalizer(r.bundle, tag.String())

	risk := out.PredictedRisk
	band := BandFor(risk)
	ratio := riskmodel.Ratio(out)
	cmp := ComparisonFor(ratio)

	rep := Report{
		Lang:        tag.String(),
		Band:        band,
		Ratio:       ratio,
		Comparison:  cmp,
		Suggestions: []string{},
	}

	rep.Percent, rep.PercentCapped = DisplayPercent(risk)
	if rep.PercentCapped {
		rep.Percent = r.localize(loc, "PercentCapped", nil)
	}

	ratioData := map[string]string{"Ratio": FormatRatio(ratio)}
	switch cmp {
	case ComparisonHigher:
		rep.ComparisonText = r.localize(loc, "ComparisonHigher", ratioData)
	case ComparisonLower:
		rep.ComparisonText = r.localize(loc, "ComparisonLower", ratioData)
	default:
		rep.ComparisonText = r.localize(loc, "ComparisonSimilar", nil)
	}

	for _, id := range suggestionIDs(f) {
		rep.Suggestions = append(rep.Suggestions, r.localize(loc, id, nil))
	}
	var sug strings.Builder
	for _, s := range rep.Suggestions {
		sug.WriteString(" ")
		sug.WriteString(s)
	}

	labelID, adviceID := bandMessages(band)
	rep.BandLabel = r.localize(loc, labelID, nil)
	rep.Advice = r.localize(loc, adviceID, map[string]string{"Suggestions": sug.String()})
	return rep
}

// suggestionIDs returns the lifestyle suggestions that apply, in display
// order. Cholesterol only counts with a blood test and waist only without.
// The waist is compared in whole centimetres.
func suggestionIDs(f Form) []string {
	var ids []string
	if f.Smoker {
		ids = append(ids, "SuggestQuitSmoking")
	}
	if f.Diabetic {
		ids = append(ids, "SuggestBloodSugar")
	}
	if f.SystolicBP >= SuggestSBP {
		ids = append(ids, "SuggestBloodPressure")
	}
	if f.BloodMode == BloodOn && f.TotalCholesterolMgDL >= SuggestTotalCholesterol {
		ids = append(ids, "SuggestCholesterol")
	}
	if f.BloodMode == BloodOff {
		wc := f.WaistCm()
		if (f.Male() && wc >= SuggestWaistCmMale) || (!f.Male() && wc > SuggestWaistCmFemale) {
			ids = append(ids, "SuggestWeight")
		}
	}
	return ids
}

func bandMessages(b Band) (label, advice string) {
	switch b {
	case BandLow:
		return "BandLow", "AdviceLow"
	case BandMedium:
		return "BandMedium", "AdviceMedium"
	case BandHigh:
		return "BandHigh", "AdviceHigh"
	case BandVeryHigh:
		return "BandVeryHigh", "AdviceHigh"
	default:
		return "BandNone", "AdviceNone"
	}
}

func (r *Renderer) localize(loc *i18n.Localizer, id string, data interface{}) string {
	s, err := loc.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		return id
	}
	return s
}
