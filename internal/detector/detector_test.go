package detector

import (
	"context"
	"errors"
	"testing"

	"github.com/ashureev/assembly-coach/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type countingBackend struct {
	calls   int
	objects []domain.DetectedObject
	err     error
}

func (b *countingBackend) Detect(_ context.Context, _ domain.Frame, frameIndex int) ([]domain.DetectedObject, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	out := make([]domain.DetectedObject, len(b.objects))
	for i, obj := range b.objects {
		obj.FrameIndex = frameIndex
		out[i] = obj
	}
	return out, nil
}

func scene() []domain.DetectedObject {
	return []domain.DetectedObject{
		{ClassName: "hole_empty", Box: domain.BBox{0, 0, 10, 10}},
		{ClassName: "frame_horn", Box: domain.BBox{5, 5, 20, 20}},
		{ClassName: "hole_green", Box: domain.BBox{50, 0, 60, 10}},
	}
}

func TestCachedRunsBackendOncePerFrame(t *testing.T) {
	t.Parallel()

	backend := &countingBackend{objects: scene()}
	det := NewCached(backend)
	ctx := context.Background()

	holes, err := det.DetectByCategories(ctx, domain.Frame{}, []string{"hole_empty", "hole_green"}, 1)
	require.NoError(t, err)
	require.Len(t, holes, 2)
	assert.Equal(t, "hole_empty", holes[0].ClassName)
	assert.Equal(t, "hole_green", holes[1].ClassName)

	horn, err := det.DetectByCategories(ctx, domain.Frame{}, []string{"frame_horn"}, 1)
	require.NoError(t, err)
	require.Len(t, horn, 1)

	all, err := det.AllDetections(ctx, domain.Frame{}, 1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 1, backend.calls)

	_, err = det.AllDetections(ctx, domain.Frame{}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls)
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	backend := &countingBackend{err: ErrUnavailable}
	det := NewCached(backend)

	_, err := det.AllDetections(context.Background(), domain.Frame{}, 1)
	require.ErrorIs(t, err, ErrUnavailable)

	backend.err = nil
	backend.objects = scene()
	all, err := det.AllDetections(context.Background(), domain.Frame{}, 1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 2, backend.calls)
}

func TestStaticDetector(t *testing.T) {
	t.Parallel()

	det := NewStatic(scene()...)
	ctx := context.Background()

	got, err := det.DetectByCategories(ctx, domain.Frame{}, []string{"frame_horn"}, 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].FrameIndex)
	assert.Equal(t, 1, det.Queries())

	det.Fail(errors.New("boom"))
	_, err = det.AllDetections(ctx, domain.Frame{}, 8)
	assert.Error(t, err)
}

func TestDecodeDetections(t *testing.T) {
	t.Parallel()

	resp, err := structpb.NewStruct(map[string]interface{}{
		"detections": []interface{}{
			map[string]interface{}{
				"class_name": "thin_wheel_side",
				"bbox":       []interface{}{1.0, 2.0, 30.0, 40.0},
				"score":      0.9,
			},
		},
	})
	require.NoError(t, err)

	objects, err := decodeDetections(resp, 12)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, domain.DetectedObject{
		ClassName:  "thin_wheel_side",
		Box:        domain.BBox{1, 2, 30, 40},
		FrameIndex: 12,
		Score:      0.9,
	}, objects[0])
}

func TestDecodeDetectionsEmpty(t *testing.T) {
	t.Parallel()

	objects, err := decodeDetections(&structpb.Struct{}, 1)
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestDecodeDetectionsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		detection map[string]interface{}
	}{
		{"missing class", map[string]interface{}{"bbox": []interface{}{1.0, 2.0, 3.0, 4.0}}},
		{"short bbox", map[string]interface{}{"class_name": "gear_on_axle", "bbox": []interface{}{1.0, 2.0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := structpb.NewStruct(map[string]interface{}{
				"detections": []interface{}{tt.detection},
			})
			require.NoError(t, err)

			_, err = decodeDetections(resp, 1)
			assert.ErrorIs(t, err, errMalformedResponse)
		})
	}
}
