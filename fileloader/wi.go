// Package fileloader parses the .wi world-file format used to seed a
// CellGrid at startup: a plain-text width/height header followed by exactly
// height rows of width characters, in the idiom of grid_world.Convert's
// row/column character-grid parsing.
package fileloader

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"wireworld/cellgrid"
)

// ParseError describes a failure at a specific line of a .wi file.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fileloader: %s:%d: %s", e.Path, e.Line, e.Msg)
}

// charState maps a .wi character to its CellState. Anything not matched is
// Empty, including the conventional '.' filler character.
func charState(c byte) cellgrid.CellState {
	switch c {
	case '#':
		return cellgrid.Wire
	case '~':
		return cellgrid.Dead
	case '@':
		return cellgrid.Alive
	default:
		return cellgrid.Empty
	}
}

func stateChar(s cellgrid.CellState) byte {
	switch s {
	case cellgrid.Wire:
		return '#'
	case cellgrid.Dead:
		return '~'
	case cellgrid.Alive:
		return '@'
	default:
		return '.'
	}
}

// LoadFile opens path and parses it as a .wi world file.
func LoadFile(path string) (*cellgrid.CellGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fileloader: open %s: %w", path, err)
	}
	defer f.Close()

	grid, err := Load(path, f)
	if err != nil {
		return nil, err
	}
	return grid, nil
}

// Load parses a .wi stream. path is used only for error messages.
func Load(path string, r io.Reader) (*cellgrid.CellGrid, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		return nil, &ParseError{Path: path, Line: 1, Msg: "missing width/height header"}
	}
	var width, height int
	if _, err := fmt.Sscanf(scanner.Text(), "%d %d", &width, &height); err != nil {
		return nil, &ParseError{Path: path, Line: 1, Msg: "header must be \"width height\""}
	}
	if width <= 0 || height <= 0 {
		return nil, &ParseError{Path: path, Line: 1, Msg: "width and height must be positive"}
	}

	grid := cellgrid.New()
	for y := 0; y < height; y++ {
		lineNum := y + 2
		if !scanner.Scan() {
			return nil, &ParseError{Path: path, Line: lineNum, Msg: "missing row"}
		}
		row := scanner.Text()
		if len(row) < width {
			return nil, &ParseError{Path: path, Line: lineNum, Msg: "row shorter than declared width"}
		}
		for x := 0; x < width; x++ {
			if s := charState(row[x]); s != cellgrid.Empty {
				grid.Set(cellgrid.Point{X: int32(x), Y: int32(y)}, s)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fileloader: %s: %w", path, err)
	}

	return grid, nil
}

// Write serializes the rectangle (0,0)-(width,height) of grid out in .wi
// format, for round-tripping and for operator-generated test fixtures.
func Write(w io.Writer, grid *cellgrid.CellGrid, width, height int32) error {
	if _, err := fmt.Fprintf(w, "%d %d\n", width, height); err != nil {
		return err
	}
	buf := make([]byte, width)
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			buf[x] = stateChar(grid.Get(cellgrid.Point{X: x, Y: y}))
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return err
		}
	}
	return nil
}
