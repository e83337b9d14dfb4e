package mock

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedText(ctx, "volga")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "volga")
	require.NoError(t, err)
	c, err := m.EmbedText(ctx, "danube")
	require.NoError(t, err)

	assert.Len(t, a, DefaultDimensions)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	batch, err := m.EmbedTexts(ctx, []string{"danube", "volga"})
	require.NoError(t, err)
	assert.Equal(t, c, batch[0])
	assert.Equal(t, a, batch[1])

	assert.Equal(t, 4, m.CallCount())
	assert.Equal(t, 5, m.TextCount())
}

func TestMockEmbedder_UnitLength(t *testing.T) {
	m := &MockEmbedder{Dimensions: 16}
	v, err := m.EmbedText(context.Background(), "any text")
	require.NoError(t, err)
	require.Len(t, v, 16)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder_InjectedBehavior(t *testing.T) {
	m := NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}

	v, err := m.EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, v)

	m.Reset()
	assert.Zero(t, m.CallCount())
	v, err = m.EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimensions)
}

func TestMockEmbedder_ConcurrentUse(t *testing.T) {
	m := NewMockEmbedder()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.EmbedTexts(context.Background(), []string{"a", "b"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, m.CallCount())
	assert.Equal(t, 40, m.TextCount())
}
