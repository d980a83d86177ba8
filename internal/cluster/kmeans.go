// Package cluster partitions embedding vectors into k groups using
// k-means with k-means++ seeding. The random source is injectable so
// callers can make runs deterministic.
package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/custodia-labs/bindery-cli/internal/core/domain"
)

// MaxIterations bounds the refinement loop.
const MaxIterations = 100

// Point is one input vector with its owning chunk id.
type Point struct {
	// ID is the chunk id.
	ID string

	// Vector is the embedding. All points must share one length.
	Vector []float32
}

// Cluster is one non-empty output partition.
type Cluster struct {
	// Items are the member chunk ids, in input order.
	Items []string

	// Centroid is the coordinate-wise mean of the members.
	Centroid []float32
}

// KMeans partitions points into at most k clusters. Empty partitions
// are dropped, so k is a ceiling, not a guarantee. With count <= k
// each point becomes its own singleton cluster. A nil rng falls back
// to a time-seeded source.
func KMeans(points []Point, k int, rng *rand.Rand) ([]Cluster, error) {
	if len(points) == 0 {
		return nil, nil
	}
	if k < 1 {
		return nil, fmt.Errorf("cluster count %d: %w", k, domain.ErrInvalidInput)
	}

	dim := len(points[0].Vector)
	for _, p := range points {
		if len(p.Vector) != dim {
			return nil, fmt.Errorf("point %s has %d dimensions, want %d: %w",
				p.ID, len(p.Vector), dim, domain.ErrDimensionMismatch)
		}
	}

	// Degenerate case: one singleton per point avoids empty clusters
	// and zero-member centroid means.
	if len(points) <= k {
		clusters := make([]Cluster, 0, len(points))
		for _, p := range points {
			centroid := make([]float32, dim)
			copy(centroid, p.Vector)
			clusters = append(clusters, Cluster{
				Items:    []string{p.ID},
				Centroid: centroid,
			})
		}
		return clusters, nil
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	centroids := seed(points, k, rng)
	assignment := make([]int, len(points))
	previous := make([]int, len(points))
	for i := range previous {
		previous[i] = -1
	}

	for iter := 0; iter < MaxIterations; iter++ {
		assign(points, centroids, assignment)
		if equalAssignments(assignment, previous) {
			break
		}
		copy(previous, assignment)
		recompute(points, centroids, assignment)
	}

	return collect(points, centroids, assignment), nil
}

// seed picks k initial centroids via k-means++: the first uniformly
// at random, each subsequent one sampled with probability
// proportional to the squared distance from its nearest chosen
// centroid.
func seed(points []Point, k int, rng *rand.Rand) [][]float32 {
	centroids := make([][]float32, 0, k)

	first := points[rng.Intn(len(points))]
	centroids = append(centroids, cloneVector(first.Vector))

	d2 := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			nearest := math.Inf(1)
			for _, c := range centroids {
				if d := squaredDistance(p.Vector, c); d < nearest {
					nearest = d
				}
			}
			d2[i] = nearest
			total += nearest
		}

		var next int
		if total == 0 {
			// All remaining points coincide with a centroid.
			next = rng.Intn(len(points))
		} else {
			target := rng.Float64() * total
			var cum float64
			for i := range points {
				cum += d2[i]
				if cum >= target {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, cloneVector(points[next].Vector))
	}

	return centroids
}

// assign maps every point to its nearest centroid by Euclidean
// distance, ties broken by the first-encountered centroid index.
func assign(points []Point, centroids [][]float32, assignment []int) {
	for i, p := range points {
		best := 0
		bestDist := math.Inf(1)
		for j, c := range centroids {
			if d := squaredDistance(p.Vector, c); d < bestDist {
				bestDist = d
				best = j
			}
		}
		assignment[i] = best
	}
}

// recompute replaces each centroid with the coordinate-wise mean of
// its assigned points. A centroid with zero assigned points is left
// unchanged this round.
func recompute(points []Point, centroids [][]float32, assignment []int) {
	dim := len(centroids[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for j := range sums {
		sums[j] = make([]float64, dim)
	}

	for i, p := range points {
		j := assignment[i]
		counts[j]++
		for d, v := range p.Vector {
			sums[j][d] += float64(v)
		}
	}

	for j := range centroids {
		if counts[j] == 0 {
			continue
		}
		for d := range centroids[j] {
			centroids[j][d] = float32(sums[j][d] / float64(counts[j]))
		}
	}
}

// collect emits one cluster per non-empty partition, dropping empty
// partitions silently.
func collect(points []Point, centroids [][]float32, assignment []int) []Cluster {
	members := make(map[int][]string)
	for i, p := range points {
		members[assignment[i]] = append(members[assignment[i]], p.ID)
	}

	clusters := make([]Cluster, 0, len(members))
	for j := range centroids {
		items, ok := members[j]
		if !ok {
			continue
		}
		clusters = append(clusters, Cluster{
			Items:    items,
			Centroid: centroids[j],
		})
	}
	return clusters
}

// withinClusterSS is the total squared distance of points to their
// assigned centroids.
func withinClusterSS(points []Point, centroids [][]float32, assignment []int) float64 {
	var total float64
	for i, p := range points {
		total += squaredDistance(p.Vector, centroids[assignment[i]])
	}
	return total
}

func equalAssignments(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func squaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
