package brick

import (
	"fmt"

	"github.com/buildsys/brick-api/graph"
)

// Query text for each domain operation. Every query declares the prefixes
// it uses so the text also runs against stores with other bindings.

var prologue = fmt.Sprintf("PREFIX brick: <%s>\nPREFIX rdfs: <%s>\n", graph.BrickNS, graph.RDFSNS)

const equipmentFilter = `FILTER EXISTS { ?type rdfs:subClassOf* brick:Equipment }`

const pointFilter = `FILTER EXISTS { ?type rdfs:subClassOf* brick:Point }`

// BuildingsQuery lists every brick:Building with its optional label.
func BuildingsQuery() string {
	return prologue + `
SELECT ?id ?name WHERE {
    ?id a brick:Building .
    OPTIONAL { ?id rdfs:label ?name }
}`
}

// BuildingFloorsQuery lists the floors a building directly has as parts.
func BuildingFloorsQuery(base, buildingID string) (string, error) {
	if err := ValidateID("building", buildingID); err != nil {
		return "", err
	}
	return prologue + fmt.Sprintf(`
SELECT ?id ?name WHERE {
    ?id a brick:Floor .
    <%s> brick:hasPart ?id .
    OPTIONAL { ?id rdfs:label ?name }
}
ORDER BY ?id`, BuildingIRI(base, buildingID)), nil
}

// BuildingDevicesQuery lists equipment contained in a building at any
// depth, together with every location on the way down. The zero-hop case
// matches equipment attached to the building itself.
func BuildingDevicesQuery(base, buildingID string) (string, error) {
	if err := ValidateID("building", buildingID); err != nil {
		return "", err
	}
	return prologue + fmt.Sprintf(`
SELECT ?id ?type ?name ?location WHERE {
    <%s> brick:hasPart* ?location .
    ?location brick:hasPart* ?id .
    ?id a ?type .
    %s
    OPTIONAL { ?id rdfs:label ?name }
}
ORDER BY ?id ?type ?location`, BuildingIRI(base, buildingID), equipmentFilter), nil
}

// FloorDevicesQuery lists equipment contained in a floor at any depth.
func FloorDevicesQuery(base, buildingID, floorID string) (string, error) {
	if err := ValidateID("building", buildingID); err != nil {
		return "", err
	}
	if err := ValidateID("floor", floorID); err != nil {
		return "", err
	}
	return prologue + fmt.Sprintf(`
SELECT ?id ?type ?name WHERE {
    <%s> brick:hasPart* ?id .
    ?id a ?type .
    %s
    OPTIONAL { ?id rdfs:label ?name }
}
ORDER BY ?id ?type`, EntityIRI(base, buildingID, floorID), equipmentFilter), nil
}

// ContainmentQuery lists the direct brick:hasPart edges below a building.
func ContainmentQuery(base, buildingID string) (string, error) {
	if err := ValidateID("building", buildingID); err != nil {
		return "", err
	}
	return prologue + fmt.Sprintf(`
SELECT ?parent ?child WHERE {
    <%s> brick:hasPart* ?parent .
    ?parent brick:hasPart ?child .
}
ORDER BY ?child ?parent`, BuildingIRI(base, buildingID)), nil
}

// BuildingPointsQuery lists the points of every entity in a building.
func BuildingPointsQuery(base, buildingID string) (string, error) {
	if err := ValidateID("building", buildingID); err != nil {
		return "", err
	}
	return prologue + fmt.Sprintf(`
SELECT ?id ?type ?name ?device WHERE {
    <%s> brick:hasPart* ?device .
    ?device brick:hasPoint ?id .
    ?id a ?type .
    %s
    OPTIONAL { ?id rdfs:label ?name }
}
ORDER BY ?device ?id ?type`, BuildingIRI(base, buildingID), pointFilter), nil
}

// DevicePointsQuery lists the points of one device.
func DevicePointsQuery(base, buildingID, deviceID string) (string, error) {
	if err := ValidateID("building", buildingID); err != nil {
		return "", err
	}
	if err := ValidateID("device", deviceID); err != nil {
		return "", err
	}
	return prologue + fmt.Sprintf(`
SELECT ?id ?type ?name WHERE {
    <%s> brick:hasPoint ?id .
    ?id a ?type .
    %s
    OPTIONAL { ?id rdfs:label ?name }
}
ORDER BY ?id ?type`, EntityIRI(base, buildingID, deviceID), pointFilter), nil
}
