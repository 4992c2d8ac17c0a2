package scan

import "strings"

// ValidateScore applies the range policy: out-of-range scores are rejected, never clamped.
func ValidateScore(score float64) bool {
	return score >= MinScore && score <= MaxScore
}

// ValidateDraft checks the fields every stored record must carry.
func ValidateDraft(d Draft) error {
	verr := &ValidationError{}

	if !ValidateScore(d.Score.Score) {
		verr.Invalid = append(verr.Invalid, "score")
	}
	if d.Context.DetectedLabels == nil {
		verr.Missing = append(verr.Missing, "detected_labels")
	}
	if strings.TrimSpace(d.Context.PackagingType) == "" {
		verr.Missing = append(verr.Missing, "packaging_type")
	}
	if strings.TrimSpace(d.Context.MaterialHints) == "" {
		verr.Missing = append(verr.Missing, "material_hints")
	}
	switch {
	case d.Action == "":
		verr.Missing = append(verr.Missing, "action")
	case !d.Action.Valid():
		verr.Invalid = append(verr.Invalid, "action")
	}

	return verr.OrNil()
}
