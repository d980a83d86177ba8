package cluster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bindery-cli/internal/core/domain"
)

// twoBlobs is a fixed dataset with two well-separated groups.
func twoBlobs() []Point {
	return []Point{
		{ID: "a1", Vector: []float32{0.0, 0.1}},
		{ID: "a2", Vector: []float32{0.1, 0.0}},
		{ID: "a3", Vector: []float32{0.1, 0.1}},
		{ID: "b1", Vector: []float32{5.0, 5.1}},
		{ID: "b2", Vector: []float32{5.1, 5.0}},
		{ID: "b3", Vector: []float32{5.1, 5.1}},
	}
}

func TestKMeans_EmptyInput(t *testing.T) {
	clusters, err := KMeans(nil, 3, nil)
	require.NoError(t, err)
	assert.Nil(t, clusters)
}

func TestKMeans_InvalidClusterCount(t *testing.T) {
	_, err := KMeans(twoBlobs(), 0, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestKMeans_DimensionMismatch(t *testing.T) {
	points := []Point{
		{ID: "a", Vector: []float32{1, 2}},
		{ID: "b", Vector: []float32{1, 2, 3}},
	}
	_, err := KMeans(points, 2, nil)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestKMeans_SingletonsWhenKAtLeastCount(t *testing.T) {
	points := twoBlobs()

	clusters, err := KMeans(points, len(points), nil)
	require.NoError(t, err)
	require.Len(t, clusters, len(points))
	for i, c := range clusters {
		assert.Equal(t, []string{points[i].ID}, c.Items)
		assert.Equal(t, points[i].Vector, c.Centroid)
	}
}

func TestKMeans_SeparatesObviousBlobs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	clusters, err := KMeans(twoBlobs(), 2, rng)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	grouped := make(map[string][]string)
	for _, c := range clusters {
		for _, id := range c.Items {
			grouped[id[:1]] = append(grouped[id[:1]], id)
		}
	}
	// Each prefix family lands together.
	for _, c := range clusters {
		prefix := c.Items[0][:1]
		for _, id := range c.Items {
			assert.Equal(t, prefix, id[:1])
		}
	}
	assert.Len(t, grouped["a"], 3)
	assert.Len(t, grouped["b"], 3)
}

func TestKMeans_PartitionIsExact(t *testing.T) {
	points := twoBlobs()

	for k := 1; k <= len(points); k++ {
		clusters, err := KMeans(points, k, rand.New(rand.NewSource(7)))
		require.NoError(t, err)

		seen := make(map[string]int)
		for _, c := range clusters {
			require.NotEmpty(t, c.Items, "k=%d produced an empty cluster", k)
			for _, id := range c.Items {
				seen[id]++
			}
		}
		require.Len(t, seen, len(points), "k=%d lost points", k)
		for id, count := range seen {
			assert.Equal(t, 1, count, "k=%d duplicated %s", k, id)
		}
	}
}

func TestKMeans_DeterministicWithSeededSource(t *testing.T) {
	first, err := KMeans(twoBlobs(), 2, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	second, err := KMeans(twoBlobs(), 2, rand.New(rand.NewSource(99)))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRefinement_ObjectiveNeverIncreases(t *testing.T) {
	points := twoBlobs()
	rng := rand.New(rand.NewSource(3))

	centroids := seed(points, 2, rng)
	assignment := make([]int, len(points))

	assign(points, centroids, assignment)
	previous := withinClusterSS(points, centroids, assignment)

	for iter := 0; iter < MaxIterations; iter++ {
		recompute(points, centroids, assignment)
		assign(points, centroids, assignment)

		current := withinClusterSS(points, centroids, assignment)
		assert.LessOrEqual(t, current, previous, "iteration %d", iter)
		if current == previous {
			break
		}
		previous = current
	}
}

func TestSeed_CoincidentPoints(t *testing.T) {
	// All points identical: d^2 totals zero, seeding must still
	// produce k centroids.
	points := []Point{
		{ID: "a", Vector: []float32{1, 1}},
		{ID: "b", Vector: []float32{1, 1}},
		{ID: "c", Vector: []float32{1, 1}},
	}

	centroids := seed(points, 2, rand.New(rand.NewSource(1)))
	require.Len(t, centroids, 2)

	clusters, err := KMeans(append(points, Point{ID: "d", Vector: []float32{1, 1}}), 2, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	total := 0
	for _, c := range clusters {
		total += len(c.Items)
	}
	assert.Equal(t, 4, total)
}
