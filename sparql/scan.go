package sparql

import (
	"database/sql"
	"strconv"
)

type termCells struct {
	kind                  sql.NullInt64
	value, datatype, lang sql.NullString
}

func (c *termCells) toValue() Value {
	if !c.kind.Valid {
		return Unbound
	}
	return Bound(Term{
		Kind:     TermKind(c.kind.Int64),
		Value:    c.value.String,
		Datatype: c.datatype.String,
		Lang:     c.lang.String,
	})
}

// ScanRow decodes the current row of a SELECT plan. scan is normally
// (*sql.Rows).Scan.
func (p *Plan) ScanRow(scan func(dest ...any) error) (Row, error) {
	var u sql.NullInt64
	dest := []any{&u}
	cells := make([]*termCells, len(p.columns))
	counts := make([]*sql.NullInt64, len(p.columns))
	for i, col := range p.columns {
		if col.agg {
			counts[i] = new(sql.NullInt64)
			dest = append(dest, counts[i])
			continue
		}
		cells[i] = &termCells{}
		dest = append(dest, &cells[i].kind, &cells[i].value, &cells[i].datatype, &cells[i].lang)
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}

	row := make(Row, len(p.columns))
	for i, col := range p.columns {
		if col.agg {
			if counts[i].Valid {
				row[col.name] = Bound(Literal(strconv.FormatInt(counts[i].Int64, 10), XSDInteger))
			} else {
				row[col.name] = Unbound
			}
			continue
		}
		row[col.name] = cells[i].toValue()
	}
	return row, nil
}
