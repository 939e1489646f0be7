package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIMDbStrict(t *testing.T) {
	v := NewValidator()
	det := Detection{Type: TypeIMDb, NormalizedID: "tt0", IsValid: true}
	res := v.Validate(det, ContextAPIEndpoint)
	assert.Error(t, res.Err)

	det2 := Detection{Type: TypeIMDb, NormalizedID: "tt0133093", IsValid: true}
	res2 := v.Validate(det2, ContextAPIEndpoint)
	assert.NoError(t, res2.Err)
	assert.True(t, res2.Valid)
}

func TestValidateIMDbEpisode(t *testing.T) {
	v := NewValidator()
	det := Detection{Type: TypeIMDbEpisode, NormalizedID: "tt0903747:3:9", IsValid: true}
	res := v.Validate(det, ContextStreamRequest)
	assert.NoError(t, res.Err)

	badSeason := Detection{Type: TypeIMDbEpisode, NormalizedID: "tt0903747:101:9", IsValid: true}
	res2 := v.Validate(badSeason, ContextStreamRequest)
	assert.Error(t, res2.Err)
}

func TestValidateSoftBoundNonStrict(t *testing.T) {
	v := NewValidator()
	det := Detection{Type: TypeMAL, NormalizedID: "mal:70000", IsValid: true}
	res := v.Validate(det, ContextStreamRequest)
	assert.NoError(t, res.Err)
	assert.True(t, res.Valid)
	assert.NotEmpty(t, res.Recommendation)
}

func TestValidateSoftBoundStrictFails(t *testing.T) {
	v := NewValidator()
	det := Detection{Type: TypeMAL, NormalizedID: "mal:70000", IsValid: true}
	res := v.Validate(det, ContextAPIEndpoint)
	assert.Error(t, res.Err)
}

func TestValidateKitsuHardBound(t *testing.T) {
	v := NewValidator()
	det := Detection{Type: TypeKitsu, NormalizedID: "kitsu:5000000", IsValid: true}
	res := v.Validate(det, ContextStreamRequest)
	assert.Error(t, res.Err)
}

func TestValidateRejectsInvalidDetection(t *testing.T) {
	v := NewValidator()
	det := Detection{Type: TypeUnknown, IsValid: false}
	res := v.Validate(det, ContextStreamRequest)
	assert.Error(t, res.Err)
}
