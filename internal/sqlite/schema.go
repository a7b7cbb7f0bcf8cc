package sqlite

// Schema DDL. SQLite is a query cache rebuilt from the JSONL files on every
// Attach.
const (
	createCharacters = `CREATE TABLE characters (
    character_id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    chronicle TEXT NOT NULL DEFAULT '',
    fields TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createXPLog = `CREATE TABLE xp_log (
    character_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    date TEXT NOT NULL,
    type TEXT NOT NULL,
    amount INTEGER NOT NULL,
    reason TEXT NOT NULL,
    PRIMARY KEY (character_id, position),
    FOREIGN KEY (character_id) REFERENCES characters(character_id) ON DELETE CASCADE
);`
)

// Index DDL.
const (
	idxCharactersOwner = `CREATE INDEX idx_characters_owner ON characters(owner_id);`
	idxXPLogCharacter  = `CREATE INDEX idx_xp_log_character ON xp_log(character_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createCharacters,
	createXPLog,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxCharactersOwner,
	idxXPLogCharacter,
}
