package types

import (
	"context"
	"sort"
	"time"
)

// Access modes. The mode is chosen when an editing session is constructed
// and travels with every store call; there is no process-wide switch.
const (
	ModeOwner       = "owner"
	ModeStoryteller = "storyteller"
)

// Access identifies who is reading or writing and through which path.
// Owners see only their own characters; storytellers see every character.
type Access struct {
	Mode   string
	UserID string
}

// Owner returns an owner-mode Access for userID.
func Owner(userID string) Access {
	return Access{Mode: ModeOwner, UserID: userID}
}

// Storyteller returns a storyteller-mode Access for userID.
func Storyteller(userID string) Access {
	return Access{Mode: ModeStoryteller, UserID: userID}
}

// CanAccess reports whether a holds rights over a character owned by ownerID.
func (a Access) CanAccess(ownerID string) bool {
	if a.Mode == ModeStoryteller {
		return true
	}
	return a.UserID != "" && a.UserID == ownerID
}

// Payload kinds.
const (
	PayloadFull  = "full"
	PayloadDelta = "delta"
)

// Payload is what the autosave engine transmits. Fields is keyed by wire
// field name. A full payload carries every registered field; a delta payload
// carries the dirty scalars and any dirty collection in full.
type Payload struct {
	Kind   string
	Fields map[string]any
}

// Names returns the payload's field names in sorted order.
func (p Payload) Names() []string {
	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary is the listing view of a stored character.
type Summary struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Chronicle string    `json:"chronicle"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence collaborator the autosave engine depends on.
//
// Create must reject invalid payloads with a *ValidationError carrying
// per-field messages. Update accepts full or delta payloads; collections in a
// payload replace the stored collection wholesale. Concurrent writers are
// resolved last-write-wins. Delete removes the character together with its
// experience log; like Get, it reports ErrNotFound for characters outside
// the caller's access.
type Store interface {
	Create(ctx context.Context, access Access, p Payload) (string, error)
	Update(ctx context.Context, access Access, id string, p Payload) error
	Get(ctx context.Context, access Access, id string) (*Character, error)
	List(ctx context.Context, access Access) ([]Summary, error)
	Delete(ctx context.Context, access Access, id string) error
}

// AssetStore accepts a binary asset out of band and returns the URL under
// which it is served. The returned URL is stored verbatim. Delete removes
// the asset behind a URL returned by Put; an asset that is already gone is
// not an error.
type AssetStore interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}
