package model

// Subject identifies a coarse subject class detected in an image.
type Subject string

const (
	SubjectHuman       Subject = "human"
	SubjectAnimal      Subject = "animal"
	SubjectObject      Subject = "object"
	SubjectEnvironment Subject = "environment"
	SubjectText        Subject = "text"
	SubjectLogo        Subject = "logo"
	SubjectMixed       Subject = "mixed"
	SubjectUnknown     Subject = "unknown"
)

// AllowedSubjects is the closed set for subjects_present. "mixed" and
// "unknown" are valid only as a primary subject, never as a set member.
var AllowedSubjects = []Subject{
	SubjectHuman, SubjectAnimal, SubjectObject,
	SubjectEnvironment, SubjectText, SubjectLogo,
}

// ImageKind classifies the rendering style of an image.
type ImageKind string

const (
	ImageKindPhoto          ImageKind = "photo"
	ImageKindIllustration   ImageKind = "illustration"
	ImageKindLineart        ImageKind = "lineart"
	ImageKindManga          ImageKind = "manga"
	ImageKindRender3D       ImageKind = "3d_render"
	ImageKindReferenceSheet ImageKind = "reference_sheet"
	ImageKindScreenshot     ImageKind = "screenshot"
	ImageKindUnknown        ImageKind = "unknown"
)

// BackgroundType classifies the image background.
type BackgroundType string

const (
	BackgroundPlain       BackgroundType = "plain"
	BackgroundTransparent BackgroundType = "transparent"
	BackgroundScene       BackgroundType = "scene"
	BackgroundGradient    BackgroundType = "gradient"
	BackgroundPattern     BackgroundType = "pattern"
	BackgroundUnknown     BackgroundType = "unknown"
)

// ApparentAge is the coarse age bracket for detected humans.
type ApparentAge string

const (
	AgeChild   ApparentAge = "child"
	AgeTeen    ApparentAge = "teen"
	AgeAdult   ApparentAge = "adult"
	AgeElderly ApparentAge = "elderly"
	AgeUnknown ApparentAge = "unknown"
)

// GenderPresentation is the apparent gender presentation of detected humans.
type GenderPresentation string

const (
	GenderMasculine GenderPresentation = "masculine"
	GenderFeminine  GenderPresentation = "feminine"
	GenderMixed     GenderPresentation = "mixed"
	GenderUnknown   GenderPresentation = "unknown"
)

// SubjectCounts holds per-class subject counts. Always non-negative.
type SubjectCounts struct {
	Humans  int `json:"humans"`
	Animals int `json:"animals"`
	Objects int `json:"objects"`
}

// HumanAttributes describes detected humans, if any.
type HumanAttributes struct {
	Present            bool               `json:"present"`
	ApparentAge        ApparentAge        `json:"apparent_age"`
	GenderPresentation GenderPresentation `json:"gender_presentation"`
}

// FeatureNotes holds boolean observations used by the prior rules.
type FeatureNotes struct {
	IsSingleCharacterFullbody bool `json:"is_single_character_fullbody"`
	HasVisibleText            bool `json:"has_visible_text"`
	IsCloseUp                 bool `json:"is_close_up"`
}

// FeatureConfidence holds per-aspect extraction confidence in [0,1].
type FeatureConfidence struct {
	Overall        float64 `json:"overall"`
	PrimarySubject float64 `json:"primary_subject"`
}

// PrepassFeatures is the canonical, always-valid feature description of an
// asset image. After normalization every field holds a member of its declared
// domain; downstream code relies on that unconditionally.
type PrepassFeatures struct {
	PrimarySubject  Subject           `json:"primary_subject"`
	SubjectsPresent []Subject         `json:"subjects_present"`
	Counts          SubjectCounts     `json:"counts"`
	HumanAttributes HumanAttributes   `json:"human_attributes"`
	ImageKind       ImageKind         `json:"image_kind"`
	BackgroundType  BackgroundType    `json:"background_type"`
	Notes           FeatureNotes      `json:"notes"`
	FreeCaption     string            `json:"free_caption"`
	Confidence      FeatureConfidence `json:"confidence"`
}

// HasSubject reports whether s appears in SubjectsPresent.
func (f PrepassFeatures) HasSubject(s Subject) bool {
	for _, p := range f.SubjectsPresent {
		if p == s {
			return true
		}
	}
	return false
}

// FallbackPrepassFeatures returns the safe all-unknown feature set used when
// an extraction run fails. Every field is within its domain so callers never
// see a partial or nil feature set.
func FallbackPrepassFeatures() PrepassFeatures {
	return PrepassFeatures{
		PrimarySubject:  SubjectUnknown,
		SubjectsPresent: []Subject{},
		HumanAttributes: HumanAttributes{
			ApparentAge:        AgeUnknown,
			GenderPresentation: GenderUnknown,
		},
		ImageKind:      ImageKindUnknown,
		BackgroundType: BackgroundUnknown,
	}
}

// CategoryKey is one of the small closed set of domain categories that
// entity-type names map onto.
type CategoryKey string

const (
	CategoryCharacter  CategoryKey = "character"
	CategoryLocation   CategoryKey = "location"
	CategoryScene      CategoryKey = "scene"
	CategoryProp       CategoryKey = "prop"
	CategoryEffect     CategoryKey = "effect"
	CategoryCreature   CategoryKey = "creature"
	CategoryItem       CategoryKey = "item"
	CategoryBackground CategoryKey = "background"
	CategoryCustom     CategoryKey = "project_custom"
)

// PriorVector maps the five scored categories to soft plausibility in [0,1].
// It is a pure function of PrepassFeatures; see prepass.DerivePriors.
type PriorVector map[CategoryKey]float64

// PriorCategories lists the categories a PriorVector always carries.
var PriorCategories = []CategoryKey{
	CategoryCharacter, CategoryLocation, CategoryScene, CategoryProp, CategoryEffect,
}

// ZeroPriors returns a PriorVector with every category at 0.0.
func ZeroPriors() PriorVector {
	p := make(PriorVector, len(PriorCategories))
	for _, c := range PriorCategories {
		p[c] = 0.0
	}
	return p
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
