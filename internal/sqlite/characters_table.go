// Character persistence: create, update, hydrate and list.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/charsheet/pkg/types"
)

const timeLayout = time.RFC3339Nano

// nowFunc stamps created_at and updated_at; tests may replace it.
var nowFunc = time.Now

// Create validates a full payload, assigns a UUID v7 and stores the new
// character under access.UserID. In owner mode the per-owner limit applies
// and is reported as a validation error on character_count.
func (b *Backend) Create(ctx context.Context, access types.Access, p types.Payload) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return "", types.ErrStoreClosed
	}
	if err := checkAccess(access); err != nil {
		return "", err
	}
	if p.Kind != types.PayloadFull {
		return "", &types.ValidationError{Fields: []types.FieldError{
			{Field: "payload", Message: "create requires a full payload"},
		}}
	}
	if access.Mode == types.ModeOwner {
		n, err := b.countOwned(ctx, access.UserID)
		if err != nil {
			return "", &types.TransportError{Op: "create", Err: err}
		}
		if limit := b.config.Limit(); n >= limit {
			return "", &types.ValidationError{Fields: []types.FieldError{
				{Field: "character_count", Message: fmt.Sprintf("limit of %d characters reached", limit)},
			}}
		}
	}

	c, err := types.Hydrate("", p.Fields)
	if err != nil {
		return "", err
	}
	now := nowFunc().UTC()
	c.ID = generateUUID()
	c.OwnerID = access.UserID
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := b.save(ctx, c, true); err != nil {
		return "", &types.TransportError{Op: "create", Err: err}
	}
	b.logger.Info("character created", "id", c.ID, "owner", c.OwnerID, "mode", access.Mode)
	return c.ID, nil
}

// Update applies a full or delta payload onto the stored character. A
// collection in the payload replaces the stored one wholesale. Writers are
// not versioned: the last update wins.
func (b *Backend) Update(ctx context.Context, access types.Access, id string, p types.Payload) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreClosed
	}
	if id == "" {
		return types.ErrInvalidID
	}
	if err := checkAccess(access); err != nil {
		return err
	}
	c, err := b.load(ctx, access, id)
	if err != nil {
		return err
	}
	if err := c.Apply(p.Fields); err != nil {
		return err
	}
	c.UpdatedAt = nowFunc().UTC()
	if err := b.save(ctx, c, false); err != nil {
		return &types.TransportError{Op: "update", Err: err}
	}
	b.logger.Debug("character updated", "id", id, "kind", p.Kind, "fields", len(p.Fields))
	return nil
}

// Delete removes a character and its experience log. Access follows Get: a
// character outside the caller's access reads as ErrNotFound.
func (b *Backend) Delete(ctx context.Context, access types.Access, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreClosed
	}
	if id == "" {
		return types.ErrInvalidID
	}
	if err := checkAccess(access); err != nil {
		return err
	}
	c, err := b.load(ctx, access, id)
	if err != nil {
		return err
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.TransportError{Op: "delete", Err: fmt.Errorf("beginning transaction: %w", err)}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM xp_log WHERE character_id = ?", id); err != nil {
		return &types.TransportError{Op: "delete", Err: fmt.Errorf("clearing xp log: %w", err)}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM characters WHERE character_id = ?", id); err != nil {
		return &types.TransportError{Op: "delete", Err: fmt.Errorf("deleting character: %w", err)}
	}
	if err := b.commitWithJSONL(ctx, tx); err != nil {
		return &types.TransportError{Op: "delete", Err: err}
	}
	b.logger.Info("character deleted", "id", id, "owner", c.OwnerID, "mode", access.Mode)
	return nil
}

// Get hydrates a stored character. Characters outside the caller's access
// read as ErrNotFound.
func (b *Backend) Get(ctx context.Context, access types.Access, id string) (*types.Character, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreClosed
	}
	if id == "" {
		return nil, types.ErrInvalidID
	}
	if err := checkAccess(access); err != nil {
		return nil, err
	}
	return b.load(ctx, access, id)
}

// List returns the characters visible to access, ordered by name.
func (b *Backend) List(ctx context.Context, access types.Access) ([]types.Summary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreClosed
	}
	if err := checkAccess(access); err != nil {
		return nil, err
	}

	query := "SELECT character_id, owner_id, name, chronicle, updated_at FROM characters"
	var args []any
	if access.Mode == types.ModeOwner {
		query += " WHERE owner_id = ?"
		args = append(args, access.UserID)
	}
	query += " ORDER BY name, character_id"

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	defer rows.Close()

	var out []types.Summary
	for rows.Next() {
		var (
			s       types.Summary
			updated string
		)
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Chronicle, &updated); err != nil {
			return nil, fmt.Errorf("scanning character: %w", err)
		}
		s.UpdatedAt, _ = time.Parse(timeLayout, updated)
		out = append(out, s)
	}
	return out, rows.Err()
}

func checkAccess(access types.Access) error {
	switch access.Mode {
	case types.ModeStoryteller:
		return nil
	case types.ModeOwner:
		if access.UserID == "" {
			return fmt.Errorf("%w: owner mode requires a user", types.ErrForbidden)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown mode %q", types.ErrForbidden, access.Mode)
	}
}

func (b *Backend) countOwned(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM characters WHERE owner_id = ?", ownerID).Scan(&n)
	return n, err
}

// load reads and hydrates one character. The caller must hold b.mu.
func (b *Backend) load(ctx context.Context, access types.Access, id string) (*types.Character, error) {
	var owner, fieldsJSON, created, updated string
	err := b.db.QueryRowContext(ctx,
		"SELECT owner_id, fields, created_at, updated_at FROM characters WHERE character_id = ?", id,
	).Scan(&owner, &fieldsJSON, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting character %s: %w", id, err)
	}
	if !access.CanAccess(owner) {
		return nil, types.ErrNotFound
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		return nil, fmt.Errorf("%w: character %s: %v", types.ErrInvalidData, id, err)
	}
	entries, err := b.loadXPLog(ctx, id)
	if err != nil {
		return nil, err
	}
	fields["xp_log"] = entries

	c, err := types.Hydrate(id, fields)
	if err != nil {
		return nil, fmt.Errorf("%w: character %s: %v", types.ErrInvalidData, id, err)
	}
	c.OwnerID = owner
	c.CreatedAt, _ = time.Parse(timeLayout, created)
	c.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return c, nil
}

func (b *Backend) loadXPLog(ctx context.Context, id string) ([]types.LedgerEntry, error) {
	rows, err := b.db.QueryContext(ctx,
		"SELECT date, type, amount, reason FROM xp_log WHERE character_id = ? ORDER BY position", id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting xp log for %s: %w", id, err)
	}
	defer rows.Close()

	entries := []types.LedgerEntry{}
	for rows.Next() {
		var e types.LedgerEntry
		if err := rows.Scan(&e.Date, &e.Kind, &e.Amount, &e.Reason); err != nil {
			return nil, fmt.Errorf("scanning xp entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// save writes c to SQLite and rewrites the JSONL files from the same
// transaction before it commits. Any error leaves both the database and the
// files as they were. The experience log is replaced wholesale. The caller
// must hold b.mu for writing.
func (b *Backend) save(ctx context.Context, c *types.Character, create bool) error {
	fields := c.Fields()
	delete(fields, "xp_log")
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	created := c.CreatedAt.UTC().Format(timeLayout)
	updated := c.UpdatedAt.UTC().Format(timeLayout)
	chronicle := c.Text["chronicle"]
	if create {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO characters (character_id, owner_id, name, chronicle, fields, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			c.ID, c.OwnerID, c.Name, chronicle, string(raw), created, updated,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE characters SET name = ?, chronicle = ?, fields = ?, updated_at = ? WHERE character_id = ?",
			c.Name, chronicle, string(raw), updated, c.ID,
		)
	}
	if err != nil {
		return fmt.Errorf("persisting character: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM xp_log WHERE character_id = ?", c.ID); err != nil {
		return fmt.Errorf("clearing xp log: %w", err)
	}
	for i, e := range c.Ledger.Entries() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO xp_log (character_id, position, date, type, amount, reason) VALUES (?, ?, ?, ?, ?, ?)",
			c.ID, i, e.Date, e.Kind, e.Amount, e.Reason,
		); err != nil {
			return fmt.Errorf("persisting xp entry %d: %w", i, err)
		}
	}

	return b.commitWithJSONL(ctx, tx)
}

// commitWithJSONL writes the JSONL files from tx's view and then commits.
// When the commit fails the previous file contents are put back.
func (b *Backend) commitWithJSONL(ctx context.Context, tx *sql.Tx) error {
	restore, err := b.persistJSONL(ctx, tx)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		restore()
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// persistJSONL rewrites both JSONL files from q. It returns a func that puts
// back the contents the files had before the call. If the second file fails
// to write, the first is put back before the error is returned.
func (b *Backend) persistJSONL(ctx context.Context, q queryer) (func(), error) {
	var characters []characterJSON
	rows, err := q.QueryContext(ctx,
		"SELECT character_id, owner_id, name, chronicle, fields, created_at, updated_at FROM characters ORDER BY created_at, character_id",
	)
	if err != nil {
		return nil, fmt.Errorf("reading characters: %w", err)
	}
	for rows.Next() {
		var (
			rec    characterJSON
			fields string
		)
		if err := rows.Scan(&rec.CharacterID, &rec.OwnerID, &rec.Name, &rec.Chronicle, &fields, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning character: %w", err)
		}
		rec.Fields = json.RawMessage(fields)
		characters = append(characters, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var entries []xpEntryJSON
	rows, err = q.QueryContext(ctx,
		"SELECT character_id, position, date, type, amount, reason FROM xp_log ORDER BY character_id, position",
	)
	if err != nil {
		return nil, fmt.Errorf("reading xp log: %w", err)
	}
	for rows.Next() {
		var e xpEntryJSON
		if err := rows.Scan(&e.CharacterID, &e.Position, &e.Date, &e.Type, &e.Amount, &e.Reason); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning xp entry: %w", err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	characterRecords, err := marshalRecords(characters)
	if err != nil {
		return nil, err
	}
	entryRecords, err := marshalRecords(entries)
	if err != nil {
		return nil, err
	}

	var snaps []fileSnapshot
	restore := func() {
		for i := len(snaps) - 1; i >= 0; i-- {
			if err := snaps[i].restore(); err != nil {
				b.logger.Error("restoring JSONL file", "path", snaps[i].path, "error", err)
			}
		}
	}
	for _, out := range []struct {
		file    string
		records []json.RawMessage
	}{
		{charactersJSONL, characterRecords},
		{xpLogJSONL, entryRecords},
	} {
		p := filepath.Join(b.dataDir, out.file)
		snap, err := snapshotFile(p)
		if err != nil {
			restore()
			return nil, fmt.Errorf("persisting %s: %w", out.file, err)
		}
		if err := writeJSONL(p, out.records); err != nil {
			restore()
			return nil, fmt.Errorf("persisting %s: %w", out.file, err)
		}
		snaps = append(snaps, snap)
	}
	return restore, nil
}
