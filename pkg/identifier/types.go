// Package identifier classifies, validates and cross-converts the opaque
// content identifiers the rest of the pipeline operates on.
package identifier

// Type is the tagged variant of a detected identifier family.
type Type string

const (
	TypeIMDb        Type = "imdb"
	TypeIMDbEpisode Type = "imdb-series"
	TypeKitsu       Type = "kitsu"
	TypeMAL         Type = "mal"
	TypeAniList     Type = "anilist"
	TypeAniDB       Type = "anidb"
	TypeNumeric     Type = "numeric"
	TypeUnknown     Type = "unknown"
)

// IsAnimeFamily reports whether t belongs to one of the anime ID namespaces.
func (t Type) IsAnimeFamily() bool {
	switch t {
	case TypeKitsu, TypeMAL, TypeAniList, TypeAniDB:
		return true
	default:
		return false
	}
}

// IsIMDbFamily reports whether t is one of the IMDb ID namespaces.
func (t Type) IsIMDbFamily() bool {
	return t == TypeIMDb || t == TypeIMDbEpisode
}

// Detection is the outcome of classifying a raw identifier string.
type Detection struct {
	Type         Type
	OriginalID   string
	NormalizedID string
	Confidence   float64
	IsValid      bool
	Error        string
}

// ValidationResult is the outcome of DynamicValidator.Validate.
type ValidationResult struct {
	Valid          bool
	Recommendation string
	Err            error
}

// ConversionResult is the outcome of UnifiedIdService.Convert.
type ConversionResult struct {
	Success     bool
	ConvertedID string
	Method      string
	Err         error
}
