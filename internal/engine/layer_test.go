package engine

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/piwi3910/Palletizer/internal/logging"
	"github.com/piwi3910/Palletizer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayerBuilder(iterations, workers, alternates int) *LayerBuilder {
	s := model.DefaultSettings()
	s.PalletWidth, s.PalletDepth = 100, 100
	s.Iterations = iterations
	s.Workers = workers
	s.Alternates = alternates
	return NewLayerBuilder(s, logging.Discard())
}

func mixedCluster(n int) Cluster {
	rng := rand.New(rand.NewSource(42))
	c := Cluster{Height: 10}
	for i := 0; i < n; i++ {
		b := model.NewBox(fmt.Sprintf("b%02d", i), 10+rng.Intn(40), 10+rng.Intn(40), 10, 1)
		c.Boxes = append(c.Boxes, b)
		c.Area += b.Dims.FootprintArea()
	}
	return c
}

func assertLayerValid(t *testing.T, l model.Layer) {
	t.Helper()
	for i, a := range l.Placements {
		ra := rect{a.Position.X, a.Position.Y, a.Box.Dims.Width, a.Box.Dims.Depth}
		assert.True(t, containsRect(rect{0, 0, l.Width, l.Depth}, ra), "box %s outside footprint", a.Box.ID)
		assert.LessOrEqual(t, a.Box.Dims.Height, l.Height)
		for _, b := range l.Placements[i+1:] {
			rb := rect{b.Position.X, b.Position.Y, b.Box.Dims.Width, b.Box.Dims.Depth}
			assert.False(t, rectsOverlap(ra, rb), "boxes %s and %s overlap", a.Box.ID, b.Box.ID)
		}
	}
}

func TestLayerBuilder_FillsFootprint(t *testing.T) {
	c := Cluster{Height: 10}
	for i := 0; i < 4; i++ {
		c.Boxes = append(c.Boxes, model.NewBox(fmt.Sprintf("q%d", i), 50, 50, 10, 1))
	}

	layers, err := testLayerBuilder(10, 1, 0).Build(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, 4, layers[0].NumberOfBoxes())
	assert.Equal(t, 10000, layers[0].UsedArea())
	assert.Equal(t, 0, layers[0].FreeArea())
	assertLayerValid(t, layers[0])
}

func TestLayerBuilder_NoOverlaps(t *testing.T) {
	layers, err := testLayerBuilder(200, 2, 0).Build(context.Background(), mixedCluster(25))
	require.NoError(t, err)
	require.NotEmpty(t, layers)
	assert.Greater(t, layers[0].NumberOfBoxes(), 0)
	assertLayerValid(t, layers[0])
}

func TestLayerBuilder_Deterministic(t *testing.T) {
	c := mixedCluster(20)
	a, err := testLayerBuilder(120, 3, 1).Build(context.Background(), c)
	require.NoError(t, err)
	b, err := testLayerBuilder(120, 3, 1).Build(context.Background(), c)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("layers differ between identical runs (-first +second):\n%s", diff)
	}
}

func TestLayerBuilder_AlternatesHaveDistinctBoxSets(t *testing.T) {
	c := Cluster{Height: 10}
	for i := 0; i < 6; i++ {
		c.Boxes = append(c.Boxes, model.NewBox(fmt.Sprintf("big%d", i), 60, 60, 10, 1))
	}

	layers, err := testLayerBuilder(50, 1, 2).Build(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, layers, 3)

	seen := make(map[string]bool)
	for _, l := range layers {
		require.Equal(t, 1, l.NumberOfBoxes())
		key := boxSetKey(l)
		assert.False(t, seen[key], "duplicate alternate %q", key)
		seen[key] = true
	}
}

func TestLayerBuilder_StopsBeforeBudget(t *testing.T) {
	c := Cluster{Height: 10, Boxes: []model.Box{model.NewBox("only", 30, 30, 10, 1)}}

	t.Run("area ceiling", func(t *testing.T) {
		lb := testLayerBuilder(1<<40, 1, 0)
		lb.Patience = 0
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		layers, err := lb.Build(ctx, c)
		require.NoError(t, err)
		require.Len(t, layers, 1)
		assert.Equal(t, 900, layers[0].UsedArea())
	})

	t.Run("patience", func(t *testing.T) {
		lb := testLayerBuilder(1<<40, 2, 1)
		lb.Patience = 5
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		layers, err := lb.Build(ctx, c)
		require.NoError(t, err)
		require.Len(t, layers, 1)
	})
}

func TestLayerBuilder_EmptyCluster(t *testing.T) {
	layers, err := testLayerBuilder(10, 1, 0).Build(context.Background(), Cluster{Height: 10})
	require.NoError(t, err)
	assert.Empty(t, layers)
}

func TestLayerBuilder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testLayerBuilder(100, 2, 0).Build(ctx, mixedCluster(10))
	assert.ErrorIs(t, err, context.Canceled)
}

func halfLayer() model.Layer {
	l := model.NewLayer(10, 100, 100)
	return l.With(model.Placement{Box: model.NewBox("base", 50, 100, 10, 1)})
}

func TestEnhanceLayer_SimpleAddsWithoutMovingBoxes(t *testing.T) {
	l := halfLayer()
	out, ok := EnhanceLayer(l, model.NewBox("new", 50, 100, 8, 1), EnhanceSimple, nil)
	require.True(t, ok)

	assert.Equal(t, 2, out.NumberOfBoxes())
	assert.Equal(t, 10000, out.UsedArea())
	assert.Equal(t, l.Placements[0], out.Placements[0], "existing placement must not move")
	p, found := out.Placement("new")
	require.True(t, found)
	assert.Equal(t, model.Position{X: 50, Y: 0}, p.Position)
	assertLayerValid(t, out)

	assert.Equal(t, 1, l.NumberOfBoxes(), "input layer must be unchanged")
}

func TestEnhanceLayer_Rejections(t *testing.T) {
	l := halfLayer()

	_, ok := EnhanceLayer(l, model.NewBox("tall", 10, 10, 11, 1), EnhanceSimple, nil)
	assert.False(t, ok, "taller than the layer")

	_, ok = EnhanceLayer(l, model.NewBox("base", 10, 10, 5, 1), EnhanceSimple, nil)
	assert.False(t, ok, "already in the layer")

	_, ok = EnhanceLayer(l, model.NewBox("wide", 60, 100, 5, 1), EnhanceSimple, nil)
	assert.False(t, ok, "footprint larger than free area")

	full, ok := EnhanceLayer(l, model.NewBox("fill", 50, 100, 10, 1), EnhanceSimple, nil)
	require.True(t, ok)
	_, ok = EnhanceLayer(full, model.NewBox("more", 1, 1, 1, 1), EnhanceSimple, nil)
	assert.False(t, ok, "no free area left")
}

func TestEnhanceLayer_ShuffleFindsTurnedFootprint(t *testing.T) {
	l := halfLayer()
	// Only fits when turned to 50x100.
	out, ok := EnhanceLayer(l, model.NewBox("turn", 100, 50, 10, 1), EnhanceShuffle, rand.New(rand.NewSource(1)))
	require.True(t, ok)

	p, _ := out.Placement("turn")
	assert.Equal(t, model.Cuboid{Width: 50, Depth: 100, Height: 10}, p.Box.Dims)
	assert.GreaterOrEqual(t, out.UsedArea(), l.UsedArea())
	assertLayerValid(t, out)
}

func TestEnhanceMode_String(t *testing.T) {
	assert.Equal(t, "simple", EnhanceSimple.String())
	assert.Equal(t, "shuffle", EnhanceShuffle.String())
}
