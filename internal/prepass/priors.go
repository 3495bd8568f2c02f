package prepass

import "github.com/studioforge/asset-cli/internal/model"

// DeriveRawPriors converts canonical features into soft category plausibility
// scores, clamped to [0,1] but not rescaled. Deterministic: equal features
// always yield equal priors.
func DeriveRawPriors(f model.PrepassFeatures) model.PriorVector {
	p := model.ZeroPriors()

	if f.PrimarySubject == model.SubjectHuman {
		p[model.CategoryCharacter] += 0.45
	}

	if f.BackgroundType == model.BackgroundPlain || f.BackgroundType == model.BackgroundTransparent {
		p[model.CategoryLocation] -= 0.25
		if p[model.CategoryLocation] < 0 {
			p[model.CategoryLocation] = 0
		}
	}

	if f.HasSubject(model.SubjectEnvironment) {
		if f.Counts.Humans == 0 {
			p[model.CategoryLocation] += 0.40
		} else {
			p[model.CategoryScene] += 0.35
		}
	}

	switch f.ImageKind {
	case model.ImageKindReferenceSheet, model.ImageKindLineart, model.ImageKindManga:
		if f.Notes.IsSingleCharacterFullbody {
			p[model.CategoryCharacter] += 0.20
		}
	}

	for _, c := range model.PriorCategories {
		p[c] = model.Clamp01(p[c])
	}
	return p
}

// DerivePriors derives the prior vector and L1-rescales it so the values
// never sum above 1. Use DeriveRawPriors for the unrescaled vector.
func DerivePriors(f model.PrepassFeatures) model.PriorVector {
	p := DeriveRawPriors(f)

	var sum float64
	for _, c := range model.PriorCategories {
		sum += p[c]
	}
	if sum > 1 {
		for _, c := range model.PriorCategories {
			p[c] /= sum
		}
	}
	return p
}
