// Package csv is the default implementation of the graph-spec parser
// boundary (C7): it reads the tabular format documented in spec §4.7/§6 and
// produces a bundle.GraphSpec. Any other representation producing the same
// shape is an equally valid input to the rest of the pipeline; this package
// is the only place that format's column layout is known.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agentmap/agentmap-core/bundle"
)

// Column headers recognized in the tabular spec (spec §4.7/§6). Matching is
// case-insensitive and order-independent; unknown columns are ignored.
const (
	colGraphName    = "graphname"
	colNode         = "node"
	colAgentType    = "agenttype"
	colContext      = "context"
	colPrompt       = "prompt"
	colInputFields  = "input_fields"
	colOutputField  = "output_field"
	colDescription  = "description"
	colEdge         = "edge"
	colSuccessNext  = "success_next"
	colFailureNext  = "failure_next"
)

// inputFieldSeparator delimits Input_Fields entries (spec §6).
const inputFieldSeparator = "|"

// funcEdgePrefix marks an Edge column value as function-routed rather than
// an unconditional default edge (spec §4.12 step 3, §6).
const funcEdgePrefix = "func:"

// Parser implements bundle.Parser by reading a comma-separated tabular spec
// whose Input_Fields column is pipe-delimited.
type Parser struct{}

// New returns the default CSV-backed graph-spec parser.
func New() *Parser { return &Parser{} }

var _ bundle.Parser = (*Parser)(nil)

// Parse reads the tabular spec at path and produces a bundle.GraphSpec.
func (p *Parser) Parse(path string) (*bundle.GraphSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("bundle/csv: spec file not found: %s", path)
		}
		return nil, fmt.Errorf("bundle/csv: open spec file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("bundle/csv: read header: %w", err)
	}
	columnIndex := indexHeader(header)

	spec := &bundle.GraphSpec{Graphs: make(map[string][]bundle.Node)}
	rowNum := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bundle/csv: read row %d: %w", rowNum, err)
		}
		rowNum++

		node, graphName, err := parseRow(record, columnIndex, rowNum)
		if err != nil {
			return nil, err
		}
		if graphName == "" {
			return nil, fmt.Errorf("bundle/csv: row %d: GraphName is empty", rowNum)
		}

		if _, exists := spec.Graphs[graphName]; !exists {
			spec.Order = append(spec.Order, graphName)
		}
		spec.Graphs[graphName] = append(spec.Graphs[graphName], node)
	}

	return spec, nil
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(col))
		idx[key] = i
	}
	return idx
}

func field(record []string, columnIndex map[string]int, name string) string {
	i, ok := columnIndex[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseRow(record []string, columnIndex map[string]int, rowNum int) (bundle.Node, string, error) {
	graphName := field(record, columnIndex, colGraphName)
	name := field(record, columnIndex, colNode)
	if name == "" {
		return bundle.Node{}, graphName, fmt.Errorf("bundle/csv: row %d: Node is empty", rowNum)
	}

	var inputs []string
	if raw := field(record, columnIndex, colInputFields); raw != "" {
		for _, part := range strings.Split(raw, inputFieldSeparator) {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				inputs = append(inputs, trimmed)
			}
		}
	}

	node := bundle.Node{
		Name:        name,
		AgentType:   field(record, columnIndex, colAgentType),
		Inputs:      inputs,
		Output:      field(record, columnIndex, colOutputField),
		Prompt:      field(record, columnIndex, colPrompt),
		Description: field(record, columnIndex, colDescription),
		Success:     field(record, columnIndex, colSuccessNext),
		Failure:     field(record, columnIndex, colFailureNext),
	}
	node.Context = bundle.ParseContext(field(record, columnIndex, colContext))

	edge := field(record, columnIndex, colEdge)
	if strings.HasPrefix(edge, funcEdgePrefix) {
		node.Func = strings.TrimSpace(strings.TrimPrefix(edge, funcEdgePrefix))
	} else {
		node.Default = edge
	}

	return node, graphName, nil
}
