package generator

import (
	"strconv"
	"strings"

	"github.com/buildsys/brick-api/brick"
	"github.com/buildsys/brick-api/config"
	"github.com/buildsys/brick-api/graph"
	"github.com/buildsys/brick-api/sparql"
)

// ChillerID is the local id of the generated chiller. AHUs that name it in
// fed_by link to it.
const ChillerID = "chiller1"

type builder struct {
	g     *Graph
	ns    string
	brick func(local string) sparql.Term
}

func (b *builder) entity(local string) sparql.Term {
	return sparql.IRI(b.ns + local)
}

func (b *builder) typed(s sparql.Term, classes ...string) {
	for _, c := range classes {
		b.g.Add(s, rdfType, b.brick(c))
	}
}

func (b *builder) label(s sparql.Term, text string) {
	b.g.Add(s, rdfsLabel, sparql.Literal(text, ""))
}

var (
	rdfType   = sparql.IRI(sparql.RDFType)
	rdfsLabel = sparql.IRI(graph.RDFSNS + "label")
)

// Generate builds the model of a validated layout. Entity IRIs are
// <base>/<building>#<local>, the scheme the brick service resolves ids
// against. An empty base uses the default.
func Generate(l *Layout, base string) *Graph {
	if base == "" {
		base = config.DefaultBaseURI
	}
	building := l.BuildingName
	b := &builder{
		g:     NewGraph(),
		ns:    strings.TrimSuffix(brick.BuildingIRI(base, building), building),
		brick: func(local string) sparql.Term { return sparql.IRI(graph.BrickNS + local) },
	}
	b.g.Bind("brick", graph.BrickNS)
	b.g.Bind("rdfs", graph.RDFSNS)
	b.g.Bind("unit", graph.UnitNS)
	b.g.Bind("xsd", graph.XSDNS)
	b.g.Bind("bldg", b.ns)

	hasPart := b.brick("hasPart")
	isPartOf := b.brick("isPartOf")
	hasPoint := b.brick("hasPoint")
	feeds := b.brick("feeds")
	isFedBy := b.brick("isFedBy")

	site := b.entity(building)
	b.typed(site, "Building")
	if l.Area > 0 {
		area := sparql.Blank(building + "_area")
		b.g.Add(site, b.brick("area"), area)
		b.g.Add(area, b.brick("value"), sparql.Literal(strconv.Itoa(l.Area), sparql.XSDInteger))
		b.g.Add(area, b.brick("hasUnit"), sparql.IRI(graph.UnitNS+"FT2"))
	}

	for _, f := range l.Floors {
		floor := b.entity("floor" + f)
		b.typed(floor, "Floor")
		b.label(floor, "Floor "+f)
		b.g.Add(site, hasPart, floor)
	}

	points := func(owner sparql.Term, ownerID string, templates []pointTemplate) {
		for _, pt := range templates {
			p := b.entity(ownerID + "_" + pt.Name)
			b.typed(p, pt.Types...)
			b.label(p, ownerID+" "+pt.Label)
			b.g.Add(owner, hasPoint, p)
		}
	}

	if l.Chiller {
		chiller := b.entity(ChillerID)
		b.typed(chiller, "Chiller")
		b.g.Add(site, hasPart, chiller)
		points(chiller, ChillerID, chillerPoints)
	}

	for _, a := range l.AHUs {
		ahuID := "AHU" + a.ID
		ahu := b.entity(ahuID)
		b.typed(ahu, "Air_Handler_Unit")
		b.g.Add(site, hasPart, ahu)
		points(ahu, ahuID, ahuPoints)
		if a.FedBy != "" {
			b.g.Add(ahu, isFedBy, b.entity(a.FedBy))
		}

		for _, vavID := range a.FeedsVAVs {
			room := roomID(vavID)
			vav := b.entity(vavID)
			b.typed(vav, "VAV")
			b.g.Add(ahu, feeds, vav)
			b.g.Add(vav, isFedBy, ahu)
			points(vav, vavID, vavPoints)

			damper := b.entity("damper" + vavID)
			b.typed(damper, "Damper")
			b.g.Add(damper, isPartOf, vav)
			b.g.Add(vav, hasPart, damper)

			roomNode := b.entity("RM" + room + "_room")
			b.typed(roomNode, "Room")
			b.g.Add(b.entity("floor"+l.floorFor(a, room)), hasPart, roomNode)
			b.g.Add(roomNode, hasPart, vav)

			zone := b.entity("RM" + room)
			b.typed(zone, "HVAC_Zone")
			b.g.Add(zone, hasPart, roomNode)
			b.g.Add(vav, feeds, zone)
		}
	}
	return b.g
}
