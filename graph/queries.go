package graph

// Storage layout. Terms are dictionary encoded; datatype and lang use ''
// for "none" so the unique lookup index covers every term.
const createTables = `
CREATE TABLE IF NOT EXISTS terms (
    id INTEGER PRIMARY KEY,
    kind INTEGER NOT NULL,
    value TEXT NOT NULL,
    datatype TEXT NOT NULL DEFAULT '',
    lang TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS triples (
    s INTEGER NOT NULL,
    p INTEGER NOT NULL,
    o INTEGER NOT NULL,
    PRIMARY KEY (s, p, o)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS namespaces (
    prefix TEXT PRIMARY KEY,
    uri TEXT NOT NULL
);
`

// Indexes are created after the bulk insert.
const createIndexes = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_terms_lookup ON terms(kind, value, datatype, lang);
CREATE INDEX IF NOT EXISTS idx_triples_pos ON triples(p, o, s);
CREATE INDEX IF NOT EXISTS idx_triples_osp ON triples(o, s, p);
`

const (
	insertTerm      = `INSERT INTO terms (id, kind, value, datatype, lang) VALUES (?, ?, ?, ?, ?)`
	insertTriple    = `INSERT OR IGNORE INTO triples (s, p, o) VALUES (?, ?, ?)`
	insertNamespace = `INSERT OR IGNORE INTO namespaces (prefix, uri) VALUES (?, ?)`

	queryTermID      = `SELECT id FROM terms WHERE kind = ? AND value = ? AND datatype = ? AND lang = ?`
	queryTripleCount = `SELECT COUNT(*) FROM triples`
	queryNamespaces  = `SELECT prefix, uri FROM namespaces ORDER BY prefix`

	selectAllTerms   = `SELECT id, kind, value, datatype, lang FROM terms ORDER BY id`
	selectAllTriples = `SELECT s, p, o FROM triples`
)
