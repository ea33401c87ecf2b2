package graph

import _ "embed"

// brickSchema is the foundational Brick class and relationship hierarchy
// loaded ahead of instance data.
//
//go:embed schema/brick.ttl
var brickSchema []byte

// embeddedSchemaName labels the embedded schema in load errors and logs.
const embeddedSchemaName = "embedded:brick.ttl"
