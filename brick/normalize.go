package brick

import (
	"go.uber.org/zap"

	"github.com/buildsys/brick-api/logger"
	"github.com/buildsys/brick-api/sparql"
)

// normalizer turns result rows into records. Rows without a required
// binding are skipped and logged; they never fail the whole list.
type normalizer struct {
	log *zap.SugaredLogger
}

func (n normalizer) skip(kind string, row sparql.Row, missing string) {
	n.log.Debugw("skipping row", "record", kind, "missing", missing, "row", rowText(row))
}

// name returns the label when bound, else the entity's local id.
func name(row sparql.Row, id string) string {
	if label, ok := row.Term("name"); ok {
		return label.Value
	}
	return id
}

func (n normalizer) buildings(res *sparql.Result) []Building {
	out := []Building{}
	seen := map[string]bool{}
	for _, row := range res.Rows {
		iri, ok := row.IRI("id")
		if !ok {
			n.skip("building", row, "id")
			continue
		}
		if seen[iri] {
			continue
		}
		seen[iri] = true
		id := LocalID(iri)
		out = append(out, Building{ID: id, Name: name(row, id)})
	}
	return out
}

func (n normalizer) floors(res *sparql.Result, buildingID string) []Floor {
	out := []Floor{}
	seen := map[string]bool{}
	for _, row := range res.Rows {
		iri, ok := row.IRI("id")
		if !ok {
			n.skip("floor", row, "id")
			continue
		}
		if seen[iri] {
			continue
		}
		seen[iri] = true
		id := LocalID(iri)
		out = append(out, Floor{ID: id, Name: name(row, id), BuildingID: buildingID})
	}
	return out
}

// parentIndex maps a child IRI to the IRIs that directly have it as a part.
type parentIndex map[string]map[string]bool

func (n normalizer) parents(res *sparql.Result) parentIndex {
	idx := parentIndex{}
	for _, row := range res.Rows {
		parent, ok := row.IRI("parent")
		if !ok {
			continue
		}
		child, ok := row.IRI("child")
		if !ok {
			continue
		}
		if idx[child] == nil {
			idx[child] = map[string]bool{}
		}
		idx[child][parent] = true
	}
	return idx
}

// devices collapses rows to one record per device, in row order. Rows are
// ordered by id then type, so the first row fixes the type. When floorID is
// set it is used as every device's location; otherwise the location is the
// smallest candidate location that directly contains the device.
func (n normalizer) devices(res *sparql.Result, parents parentIndex, floorID *string) []Device {
	out := []Device{}
	index := map[string]int{}
	candidates := map[string][]string{}
	for _, row := range res.Rows {
		iri, ok := row.IRI("id")
		if !ok {
			n.skip("device", row, "id")
			continue
		}
		typ, ok := row.IRI("type")
		if !ok {
			n.skip("device", row, "type")
			continue
		}
		if loc, ok := row.IRI("location"); ok && loc != iri {
			candidates[iri] = append(candidates[iri], loc)
		}
		if _, dup := index[iri]; dup {
			continue
		}
		id := LocalID(iri)
		index[iri] = len(out)
		out = append(out, Device{
			ID:     id,
			Type:   LocalID(typ),
			Name:   name(row, id),
			Points: []string{},
		})
	}

	for iri, i := range index {
		if floorID != nil {
			loc := *floorID
			out[i].Location = &loc
			continue
		}
		out[i].Location = nearest(candidates[iri], parents[iri])
	}
	return out
}

func nearest(candidates []string, direct map[string]bool) *string {
	var best string
	for _, c := range candidates {
		if !direct[c] {
			continue
		}
		if best == "" || c < best {
			best = c
		}
	}
	if best == "" {
		return nil
	}
	loc := LocalID(best)
	return &loc
}

// points converts point rows. When device is nil the owning device is read
// from the row's ?device binding.
func (n normalizer) points(res *sparql.Result, device *string) []Point {
	out := []Point{}
	seen := map[string]bool{}
	for _, row := range res.Rows {
		iri, ok := row.IRI("id")
		if !ok {
			n.skip("point", row, "id")
			continue
		}
		typ, ok := row.IRI("type")
		if !ok {
			n.skip("point", row, "type")
			continue
		}
		owner := device
		if owner == nil {
			if d, ok := row.IRI("device"); ok {
				local := LocalID(d)
				owner = &local
			}
		}
		key := iri
		if owner != nil {
			key = *owner + " " + iri
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		id := LocalID(iri)
		out = append(out, Point{ID: id, Type: LocalID(typ), Name: name(row, id), Device: owner})
	}
	return out
}

// raw renders every variable of every row as a string or nil. ASK results
// become a single {"result": bool} row.
func raw(res *sparql.Result) RawResult {
	if res.Ask {
		return RawResult{Results: []map[string]any{{"result": res.Boolean}}}
	}
	out := RawResult{Results: make([]map[string]any, 0, len(res.Rows))}
	for _, row := range res.Rows {
		m := make(map[string]any, len(res.Vars))
		for _, v := range res.Vars {
			if text, ok := row.Text(v); ok {
				m[v] = text
			} else {
				m[v] = nil
			}
		}
		out.Results = append(out.Results, m)
	}
	return out
}

func rowText(row sparql.Row) map[string]string {
	m := make(map[string]string, len(row))
	for k, v := range row {
		if v.Bound {
			m[k] = v.Term.String()
		}
	}
	return m
}

func newNormalizer() normalizer {
	return normalizer{log: logger.Named("brick")}
}
