package conquest

import "fmt"

// GridSize is the number of cells along each side of the square board.
type GridSize int

const (
	Small  GridSize = 8
	Medium GridSize = 10
	Large  GridSize = 12
)

// ParseGridSize maps a map-size name to its GridSize.
func ParseGridSize(name string) (GridSize, error) {
	switch name {
	case "small":
		return Small, nil
	case "medium":
		return Medium, nil
	case "large":
		return Large, nil
	}
	return 0, fmt.Errorf("%w: unknown map size %q", ErrInvalidSetup, name)
}

func (g GridSize) String() string {
	switch g {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	default:
		return fmt.Sprintf("grid(%d)", int(g))
	}
}

func (g GridSize) valid() bool {
	return g == Small || g == Medium || g == Large
}

// Orientation tells whether an edge runs along the x axis or the y axis.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// CellState is the claim state of a cell.
type CellState string

const (
	CellEmpty   CellState = "empty"
	CellClaimed CellState = "claimed"
)

// EdgeState is the draw state of an edge.
type EdgeState string

const (
	EdgeEmpty EdgeState = "empty"
	EdgeDrawn EdgeState = "drawn"
)

// NoPlayer marks an unowned cell or edge.
const NoPlayer = -1

// Point is a cell coordinate or a grid point, depending on context.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Cell is one grid square, the unit of territory.
type Cell struct {
	X       int       `json:"x"`
	Y       int       `json:"y"`
	State   CellState `json:"state"`
	Owner   int       `json:"owner"`
	Armies  int       `json:"armies"`
	Element Element   `json:"element,omitempty"`
}

// Pos returns the cell's coordinate.
func (c Cell) Pos() Point { return Point{c.X, c.Y} }

// Edge is a segment between two adjacent grid points. X,Y is the first
// endpoint; the second is (X+1,Y) for horizontal and (X,Y+1) for vertical edges.
type Edge struct {
	Orientation Orientation `json:"orientation"`
	X           int         `json:"x"`
	Y           int         `json:"y"`
	State       EdgeState   `json:"state"`
	Owner       int         `json:"owner"`
}

// Endpoints returns the two grid points joined by the edge.
func (e Edge) Endpoints() (Point, Point) {
	if e.Orientation == Horizontal {
		return Point{e.X, e.Y}, Point{e.X + 1, e.Y}
	}
	return Point{e.X, e.Y}, Point{e.X, e.Y + 1}
}

// Board holds the cells and both edge lattices. Cells are stored row-major,
// horizontal edges as (N+1) rows of N, vertical edges as N rows of N+1.
type Board struct {
	Size       GridSize `json:"size"`
	Cells      []Cell   `json:"cells"`
	Horizontal []Edge   `json:"horizontal"`
	Vertical   []Edge   `json:"vertical"`
}

// NewBoard returns an empty board of the given size.
func NewBoard(size GridSize) *Board {
	n := int(size)
	b := &Board{
		Size:       size,
		Cells:      make([]Cell, 0, n*n),
		Horizontal: make([]Edge, 0, (n+1)*n),
		Vertical:   make([]Edge, 0, n*(n+1)),
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			b.Cells = append(b.Cells, Cell{X: x, Y: y, State: CellEmpty, Owner: NoPlayer})
		}
	}
	for y := 0; y <= n; y++ {
		for x := 0; x < n; x++ {
			b.Horizontal = append(b.Horizontal, Edge{Orientation: Horizontal, X: x, Y: y, State: EdgeEmpty, Owner: NoPlayer})
		}
	}
	for y := 0; y < n; y++ {
		for x := 0; x <= n; x++ {
			b.Vertical = append(b.Vertical, Edge{Orientation: Vertical, X: x, Y: y, State: EdgeEmpty, Owner: NoPlayer})
		}
	}
	return b
}

// N returns the number of cells per side.
func (b *Board) N() int { return int(b.Size) }

func (b *Board) cellIndex(x, y int) (int, error) {
	n := b.N()
	if x < 0 || y < 0 || x >= n || y >= n {
		return 0, fmt.Errorf("%w: cell %d,%d on %dx%d board", ErrOutOfBounds, x, y, n, n)
	}
	return y*n + x, nil
}

func (b *Board) edgeIndex(o Orientation, x, y int) (int, error) {
	n := b.N()
	switch o {
	case Horizontal:
		if x < 0 || y < 0 || x >= n || y > n {
			return 0, fmt.Errorf("%w: horizontal edge %d,%d", ErrOutOfBounds, x, y)
		}
		return y*n + x, nil
	case Vertical:
		if x < 0 || y < 0 || x > n || y >= n {
			return 0, fmt.Errorf("%w: vertical edge %d,%d", ErrOutOfBounds, x, y)
		}
		return y*(n+1) + x, nil
	}
	return 0, fmt.Errorf("%w: unknown orientation %q", ErrOutOfBounds, o)
}

// CellAt returns the cell at x,y.
func (b *Board) CellAt(x, y int) (Cell, error) {
	i, err := b.cellIndex(x, y)
	if err != nil {
		return Cell{}, err
	}
	return b.Cells[i], nil
}

func (b *Board) cell(p Point) *Cell {
	i, err := b.cellIndex(p.X, p.Y)
	if err != nil {
		return nil
	}
	return &b.Cells[i]
}

// EdgeAt returns the edge with the given orientation and first endpoint.
func (b *Board) EdgeAt(o Orientation, x, y int) (Edge, error) {
	e := b.edge(o, x, y)
	if e == nil {
		_, err := b.edgeIndex(o, x, y)
		return Edge{}, err
	}
	return *e, nil
}

func (b *Board) edge(o Orientation, x, y int) *Edge {
	i, err := b.edgeIndex(o, x, y)
	if err != nil {
		return nil
	}
	if o == Horizontal {
		return &b.Horizontal[i]
	}
	return &b.Vertical[i]
}

// CellsAdjacentToEdge returns the one (boundary) or two (interior) cells an edge borders.
func (b *Board) CellsAdjacentToEdge(o Orientation, x, y int) ([]Cell, error) {
	pts, err := b.edgeCells(o, x, y)
	if err != nil {
		return nil, err
	}
	cells := make([]Cell, 0, len(pts))
	for _, p := range pts {
		cells = append(cells, *b.cell(p))
	}
	return cells, nil
}

func (b *Board) edgeCells(o Orientation, x, y int) ([]Point, error) {
	if _, err := b.edgeIndex(o, x, y); err != nil {
		return nil, err
	}
	var candidates [2]Point
	if o == Horizontal {
		candidates = [2]Point{{x, y - 1}, {x, y}}
	} else {
		candidates = [2]Point{{x - 1, y}, {x, y}}
	}
	pts := make([]Point, 0, 2)
	for _, p := range candidates {
		if b.cell(p) != nil {
			pts = append(pts, p)
		}
	}
	return pts, nil
}

// BoundingEdges returns the top, bottom, left and right edges of the cell at x,y.
func (b *Board) BoundingEdges(x, y int) ([4]Edge, error) {
	if _, err := b.cellIndex(x, y); err != nil {
		return [4]Edge{}, err
	}
	return [4]Edge{
		*b.edge(Horizontal, x, y),
		*b.edge(Horizontal, x, y+1),
		*b.edge(Vertical, x, y),
		*b.edge(Vertical, x+1, y),
	}, nil
}

// complete reports whether all four bounding edges of an in-bounds cell are drawn.
func (b *Board) complete(p Point) bool {
	edges, err := b.BoundingEdges(p.X, p.Y)
	if err != nil {
		return false
	}
	for _, e := range edges {
		if e.State != EdgeDrawn {
			return false
		}
	}
	return true
}

var directions = [4]Point{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}

// NeighborsOf returns the up-to-four cells sharing an edge with the cell at x,y.
func (b *Board) NeighborsOf(x, y int) ([]Cell, error) {
	if _, err := b.cellIndex(x, y); err != nil {
		return nil, err
	}
	cells := make([]Cell, 0, 4)
	for _, d := range directions {
		if c := b.cell(Point{x + d.X, y + d.Y}); c != nil {
			cells = append(cells, *c)
		}
	}
	return cells, nil
}

// Adjacent reports whether two cells share an edge.
func Adjacent(a, b Point) bool {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx+dy*dy == 1
}

// EdgeCount returns the total number of edges, 2·N·(N+1).
func (b *Board) EdgeCount() int {
	return len(b.Horizontal) + len(b.Vertical)
}

// DrawnEdgeCount returns how many edges have been drawn.
func (b *Board) DrawnEdgeCount() int {
	count := 0
	for _, e := range b.Horizontal {
		if e.State == EdgeDrawn {
			count++
		}
	}
	for _, e := range b.Vertical {
		if e.State == EdgeDrawn {
			count++
		}
	}
	return count
}

// Full reports whether every edge has been drawn.
func (b *Board) Full() bool {
	return b.DrawnEdgeCount() == b.EdgeCount()
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	c := &Board{Size: b.Size}
	c.Cells = append([]Cell(nil), b.Cells...)
	c.Horizontal = append([]Edge(nil), b.Horizontal...)
	c.Vertical = append([]Edge(nil), b.Vertical...)
	return c
}
