package query

import (
	"fmt"
	"strings"

	"github.com/foxtrot9/fa20-moocbase/catalog"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/stats"
	"github.com/foxtrot9/fa20-moocbase/storage"
)

// ProjectOperator narrows each record of its source to the listed columns, in list order.
type ProjectOperator struct {
	operatorBase
	columns []string
	indices []int
}

// NewProjectOperator resolves every column against the source schema; a column may be listed
// more than once.
func NewProjectOperator(source Operator, columns []string) (*ProjectOperator, error) {
	if len(columns) == 0 {
		return nil, common.NewError(common.InvalidOperationError, "projection needs at least one column")
	}
	p := &ProjectOperator{
		operatorBase: operatorBase{opType: ProjectOp, source: source},
		columns:      make([]string, len(columns)),
		indices:      make([]int, len(columns)),
	}
	for i, column := range columns {
		name, idx, err := CheckSchemaForColumn(source.OutputSchema(), column)
		if err != nil {
			return nil, err
		}
		p.columns[i], p.indices[i] = name, idx
	}
	if err := finish(p, &p.operatorBase); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ProjectOperator) ComputeSchema() (*catalog.Schema, error) {
	return p.source.OutputSchema().Project(p.indices), nil
}

func (p *ProjectOperator) EstimateStats() (*stats.TableStats, error) {
	return p.source.Stats().CopyWithProject(p.indices), nil
}

func (p *ProjectOperator) EstimateIOCost() int {
	return p.source.IOCost()
}

func (p *ProjectOperator) Iterator() (RecordIterator, error) {
	src, err := p.source.Iterator()
	if err != nil {
		return nil, err
	}
	return &projectIterator{src: src, indices: p.indices}, nil
}

func (p *ProjectOperator) describe() string {
	return fmt.Sprintf("%s\ncolumns: [%s]", p.operatorBase.describe(), strings.Join(p.columns, ", "))
}

func (p *ProjectOperator) String() string {
	return render(p)
}

type projectIterator struct {
	src     RecordIterator
	indices []int
	current storage.Tuple
}

func (it *projectIterator) Next() bool {
	if !it.src.Next() {
		return false
	}
	tup := it.src.Current()
	values := make([]common.Value, len(it.indices))
	for i, idx := range it.indices {
		values[i] = tup.GetValue(idx)
	}
	it.current = storage.FromValues(values...)
	return true
}

func (it *projectIterator) Current() storage.Tuple {
	return it.current
}

func (it *projectIterator) Error() error {
	return it.src.Error()
}

func (it *projectIterator) Close() error {
	return it.src.Close()
}
