package sqlite

import "encoding/json"

// JSONL file names in DataDir.
const (
	charactersJSONL = "characters.jsonl"
	xpLogJSONL      = "xp_log.jsonl"
)

// characterJSON is one line of characters.jsonl. Fields holds every scalar
// and collection of the record except the experience log, keyed by wire
// name.
type characterJSON struct {
	CharacterID string          `json:"character_id"`
	OwnerID     string          `json:"owner_id"`
	Name        string          `json:"name"`
	Chronicle   string          `json:"chronicle"`
	Fields      json.RawMessage `json:"fields"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// xpEntryJSON is one line of xp_log.jsonl.
type xpEntryJSON struct {
	CharacterID string `json:"character_id"`
	Position    int    `json:"position"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Amount      int    `json:"amount"`
	Reason      string `json:"reason"`
}
