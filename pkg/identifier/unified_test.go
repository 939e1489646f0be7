package identifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeMapping struct {
	calls     int32
	converted string
	err       error
}

func (f *fakeMapping) Convert(ctx context.Context, fromType Type, id string, targetType Type) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.converted, f.err
}

func TestConvertIdentityShortCircuits(t *testing.T) {
	svc := NewUnifiedIdService(nil, zap.NewNop())
	res := svc.Convert(context.Background(), TypeIMDb, "tt123", TypeIMDb)
	assert.True(t, res.Success)
	assert.Equal(t, "tt123", res.ConvertedID)
}

func TestConvertNilMappingFailsGracefully(t *testing.T) {
	svc := NewUnifiedIdService(nil, zap.NewNop())
	res := svc.Convert(context.Background(), TypeKitsu, "kitsu:1", TypeIMDb)
	assert.False(t, res.Success)
}

func TestConvertMemoizes(t *testing.T) {
	fm := &fakeMapping{converted: "tt0133093"}
	svc := NewUnifiedIdService(fm, zap.NewNop())

	res1 := svc.Convert(context.Background(), TypeKitsu, "kitsu:11665", TypeIMDb)
	assert.True(t, res1.Success)
	assert.Equal(t, "tt0133093", res1.ConvertedID)

	res2 := svc.Convert(context.Background(), TypeKitsu, "kitsu:11665", TypeIMDb)
	assert.True(t, res2.Success)
	assert.EqualValues(t, 1, atomic.LoadInt32(&fm.calls))
}

func TestConvertPersistentFailureReturnsUnsuccessful(t *testing.T) {
	fm := &fakeMapping{err: errors.New("mapping unreachable")}
	svc := NewUnifiedIdService(fm, zap.NewNop(), WithRetryPolicy(1, 0, 0))

	res := svc.Convert(context.Background(), TypeKitsu, "kitsu:99999999", TypeIMDb)
	assert.False(t, res.Success)
	assert.NoError(t, res.Err)
}

func TestConvertRoundTrip(t *testing.T) {
	fm := &roundTripMapping{}
	svc := NewUnifiedIdService(fm, zap.NewNop())

	first := svc.Convert(context.Background(), TypeKitsu, "kitsu:11665", TypeIMDb)
	assert.True(t, first.Success)

	second := svc.Convert(context.Background(), TypeIMDb, first.ConvertedID, TypeKitsu)
	assert.True(t, second.Success)
	assert.Equal(t, "kitsu:11665", second.ConvertedID)
}

type roundTripMapping struct{}

func (r *roundTripMapping) Convert(ctx context.Context, fromType Type, id string, targetType Type) (string, error) {
	if fromType == TypeKitsu && targetType == TypeIMDb {
		return "tt0133093", nil
	}
	if fromType == TypeIMDb && targetType == TypeKitsu {
		return "kitsu:11665", nil
	}
	return "", errors.New("no mapping")
}
