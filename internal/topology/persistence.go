package topology

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// DistanceFunc measures the distance between two embedded points.
type DistanceFunc func(a, b r2.Vec) float64

func distanceByName(name string) DistanceFunc {
	switch name {
	case "manhattan":
		return func(a, b r2.Vec) float64 {
			return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y)
		}
	case "chebyshev":
		return func(a, b r2.Vec) float64 {
			return math.Max(math.Abs(a.X-b.X), math.Abs(a.Y-b.Y))
		}
	default:
		return func(a, b r2.Vec) float64 {
			return math.Hypot(a.X-b.X, a.Y-b.Y)
		}
	}
}

// PersistencePair is one feature of a persistence diagram.
type PersistencePair struct {
	Birth float64
	Death float64
}

// Diagram holds the persistence pairs of a single homology dimension.
type Diagram struct {
	Dimension int
	Pairs     []PersistencePair
}

// Summary condenses persistence diagrams into the scalar quantities the
// detector consumes. Degraded marks a computation that was absorbed into a
// zeroed result instead of propagating a fault.
type Summary struct {
	Diagrams         []Diagram
	TotalPersistence float64
	NumFeatures      int
	MaxPersistence   float64
	Degraded         bool
	Reason           string
}

// maxPersistencePoints bounds the filtration size. The reduction enumerates
// every C(n, maxDim+2) vertex subset, so clouds past this ceiling degrade to
// a zeroed summary instead of exhausting memory.
const maxPersistencePoints = 64

// Persistence computes Vietoris-Rips persistent homology of the point cloud
// for dimensions 0..MaxDimension. Fewer than 3 points yields the zero
// summary. Internal faults never propagate: they produce a zeroed summary
// with Degraded set.
func (a *Analyzer) Persistence(points []r2.Vec) (summary Summary) {
	if len(points) < 3 {
		return Summary{}
	}
	if len(points) > maxPersistencePoints {
		return Summary{
			Degraded: true,
			Reason:   fmt.Sprintf("point cloud exceeds %d points", maxPersistencePoints),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			summary = Summary{Degraded: true, Reason: fmt.Sprintf("persistence computation failed: %v", r)}
		}
	}()

	dist, diameter, ok := distanceMatrix(points, a.dist)
	if !ok {
		return Summary{Degraded: true, Reason: "non-finite pairwise distance"}
	}

	return summarize(ripsDiagrams(dist, diameter, a.maxDimension))
}

func distanceMatrix(points []r2.Vec, dist DistanceFunc) ([][]float64, float64, bool) {
	n := len(points)
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	var diameter float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := dist(points[i], points[j])
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, 0, false
			}
			d[i][j] = v
			d[j][i] = v
			if v > diameter {
				diameter = v
			}
		}
	}
	return d, diameter, true
}

type simplex struct {
	verts []int
	dim   int
	filt  float64
}

// ripsDiagrams runs the standard boundary-matrix reduction over Z/2 on the
// Rips filtration. Simplices are enumerated up to dimension maxDim+1 so
// deaths in dimension maxDim are visible. Essential classes are assigned a
// death at the cloud diameter, keeping every bar finite; zero-persistence
// pairs are dropped.
func ripsDiagrams(dist [][]float64, diameter float64, maxDim int) []Diagram {
	n := len(dist)
	maxSize := maxDim + 2
	if maxSize > n {
		maxSize = n
	}

	var simplices []simplex
	for i := 0; i < n; i++ {
		simplices = append(simplices, simplex{verts: []int{i}, dim: 0})
	}
	for size := 2; size <= maxSize; size++ {
		enumerate(n, size, func(verts []int) {
			var filt float64
			for i := 0; i < len(verts); i++ {
				for j := i + 1; j < len(verts); j++ {
					if d := dist[verts[i]][verts[j]]; d > filt {
						filt = d
					}
				}
			}
			simplices = append(simplices, simplex{
				verts: append([]int(nil), verts...),
				dim:   size - 1,
				filt:  filt,
			})
		})
	}

	// Faces sort before cofaces: strictly smaller filtration value, or
	// equal value and strictly smaller dimension.
	sort.Slice(simplices, func(i, j int) bool {
		a, b := simplices[i], simplices[j]
		if a.filt != b.filt {
			return a.filt < b.filt
		}
		if a.dim != b.dim {
			return a.dim < b.dim
		}
		for k := range a.verts {
			if a.verts[k] != b.verts[k] {
				return a.verts[k] < b.verts[k]
			}
		}
		return false
	})

	index := make(map[string]int, len(simplices))
	for i, s := range simplices {
		index[vertKey(s.verts)] = i
	}

	columns := make([][]int, len(simplices))
	positive := make([]bool, len(simplices))
	killed := make([]bool, len(simplices))
	lowInv := make(map[int]int)
	bars := make([][]PersistencePair, maxDim+1)

	for j, s := range simplices {
		if s.dim == 0 {
			positive[j] = true
			continue
		}
		col := boundary(s, index)
		for len(col) > 0 {
			low := col[len(col)-1]
			k, ok := lowInv[low]
			if !ok {
				break
			}
			col = addZ2(col, columns[k])
		}
		if len(col) == 0 {
			positive[j] = true
			continue
		}
		low := col[len(col)-1]
		lowInv[low] = j
		columns[j] = col
		killed[low] = true

		birth := simplices[low]
		if s.filt > birth.filt {
			bars[birth.dim] = append(bars[birth.dim], PersistencePair{Birth: birth.filt, Death: s.filt})
		}
	}

	for i, s := range simplices {
		if s.dim > maxDim || !positive[i] || killed[i] {
			continue
		}
		if diameter > s.filt {
			bars[s.dim] = append(bars[s.dim], PersistencePair{Birth: s.filt, Death: diameter})
		}
	}

	diagrams := make([]Diagram, maxDim+1)
	for dim := range diagrams {
		diagrams[dim] = Diagram{Dimension: dim, Pairs: bars[dim]}
	}
	return diagrams
}

func summarize(diagrams []Diagram) Summary {
	s := Summary{Diagrams: diagrams}
	for _, dgm := range diagrams {
		for _, pair := range dgm.Pairs {
			persistence := pair.Death - pair.Birth
			s.TotalPersistence += persistence
			s.NumFeatures++
			if persistence > s.MaxPersistence {
				s.MaxPersistence = persistence
			}
		}
	}
	return s
}

// enumerate visits every size-k subset of 0..n-1 in lexicographic order.
func enumerate(n, k int, visit func([]int)) {
	verts := make([]int, k)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == k {
			visit(verts)
			return
		}
		for v := start; v <= n-(k-depth); v++ {
			verts[depth] = v
			rec(v+1, depth+1)
		}
	}
	rec(0, 0)
}

// boundary returns the sorted column of facet indices of the simplex.
func boundary(s simplex, index map[string]int) []int {
	facet := make([]int, 0, len(s.verts)-1)
	col := make([]int, 0, len(s.verts))
	for omit := range s.verts {
		facet = facet[:0]
		for i, v := range s.verts {
			if i != omit {
				facet = append(facet, v)
			}
		}
		col = append(col, index[vertKey(facet)])
	}
	sort.Ints(col)
	return col
}

// addZ2 is symmetric difference of two sorted index columns.
func addZ2(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func vertKey(verts []int) string {
	buf := make([]byte, 0, len(verts)*4)
	for _, v := range verts {
		buf = append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return string(buf)
}
