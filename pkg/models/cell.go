package models

// DefaultCellCode is the placeholder code of a freshly added cell.
const DefaultCellCode = "// Enter your code here"

// CellField names an editable field of a cell.
type CellField string

const (
	CellFieldCode         CellField = "code"
	CellFieldDependencies CellField = "dependencies"
	CellFieldServer       CellField = "server"
	CellFieldService      CellField = "service"
	CellFieldOutput       CellField = "output"
)

// Cell is a single code snippet of a flow bound to a server and one of its services.
type Cell struct {
	ID           int64   `json:"id"`
	Code         string  `json:"code"`
	Dependencies string  `json:"dependencies"` // Free-form description of upstream data needs
	Server       string  `json:"server"`
	Service      string  `json:"service"`
	Output       *string `json:"output,omitempty"` // Last execution result
}

// CellTemplate seeds the content of a new cell.
type CellTemplate struct {
	Code         string `json:"code"`
	Dependencies string `json:"dependencies"`
}

// WithOutput returns a copy of the cell carrying output.
func (c Cell) WithOutput(output string) Cell {
	c.Output = &output

	return c
}

func (c Cell) clone() Cell {
	if c.Output != nil {
		output := *c.Output
		c.Output = &output
	}

	return c
}

func cloneCells(cells []Cell) []Cell {
	out := make([]Cell, len(cells))
	for i, cell := range cells {
		out[i] = cell.clone()
	}

	return out
}

func maxCellID(cells []Cell) int64 {
	var highest int64

	for _, cell := range cells {
		if cell.ID > highest {
			highest = cell.ID
		}
	}

	return highest
}
