package types

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Ledger entry kinds.
const (
	LedgerAdd   = "add"
	LedgerSpend = "spend"
)

// ledgerDateLayout is the date format written on new entries.
const ledgerDateLayout = "2006-01-02"

// ledgerClock stamps new entries; tests may replace it.
var ledgerClock = time.Now

// LedgerEntry is one experience grant or expenditure. Entries are immutable
// once appended.
type LedgerEntry struct {
	Date   string `json:"date"`
	Kind   string `json:"type"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// Ledger keeps experience totals and the append-only audit log. Available
// is derived, so Available == Total - Spent holds by construction.
type Ledger struct {
	total   int
	spent   int
	entries []LedgerEntry
}

// LedgerResult is the answer to a ledger change proposal.
type LedgerResult struct {
	Entry     LedgerEntry
	Total     int
	Spent     int
	Available int
}

// RestoreLedger rebuilds a ledger from stored totals and entries.
func RestoreLedger(total, spent int, entries []LedgerEntry) (Ledger, error) {
	if total < 0 || spent < 0 {
		return Ledger{}, fmt.Errorf("%w: negative experience", ErrOutOfRange)
	}
	if spent > total {
		return Ledger{}, fmt.Errorf("%w: spent %d exceeds total %d", ErrOutOfRange, spent, total)
	}
	for i, e := range entries {
		if err := validateEntry(e); err != nil {
			return Ledger{}, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return Ledger{total: total, spent: spent, entries: append([]LedgerEntry(nil), entries...)}, nil
}

// Total returns the experience ever granted.
func (l *Ledger) Total() int { return l.total }

// Spent returns the experience spent.
func (l *Ledger) Spent() int { return l.spent }

// Available returns Total - Spent.
func (l *Ledger) Available() int { return l.total - l.spent }

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns a copy of the log in append order.
func (l *Ledger) Entries() []LedgerEntry {
	return append([]LedgerEntry(nil), l.entries...)
}

// Add grants amount experience.
func (l *Ledger) Add(amount int, reason string) (LedgerEntry, error) {
	if amount <= 0 {
		return LedgerEntry{}, ErrInvalidAmount
	}
	if err := checkReason(reason); err != nil {
		return LedgerEntry{}, err
	}
	e := l.append(LedgerAdd, amount, reason)
	l.total += amount
	return e, nil
}

// Spend deducts amount from the available experience. It returns an
// *InsufficientFundsError and leaves the ledger untouched when amount exceeds
// Available.
func (l *Ledger) Spend(amount int, reason string) (LedgerEntry, error) {
	if amount <= 0 {
		return LedgerEntry{}, ErrInvalidAmount
	}
	if err := checkReason(reason); err != nil {
		return LedgerEntry{}, err
	}
	if amount > l.Available() {
		return LedgerEntry{}, &InsufficientFundsError{Requested: amount, Available: l.Available()}
	}
	e := l.append(LedgerSpend, amount, reason)
	l.spent += amount
	return e, nil
}

// Propose applies a change of the given kind and reports the resulting
// totals. It is the request/response form of Add and Spend.
func (l *Ledger) Propose(kind string, amount int, reason string) (LedgerResult, error) {
	var (
		e   LedgerEntry
		err error
	)
	switch kind {
	case LedgerAdd:
		e, err = l.Add(amount, reason)
	case LedgerSpend:
		e, err = l.Spend(amount, reason)
	default:
		return LedgerResult{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if err != nil {
		return LedgerResult{}, err
	}
	return LedgerResult{Entry: e, Total: l.total, Spent: l.spent, Available: l.Available()}, nil
}

func (l *Ledger) append(kind string, amount int, reason string) LedgerEntry {
	e := LedgerEntry{
		Date:   ledgerClock().UTC().Format(ledgerDateLayout),
		Kind:   kind,
		Amount: amount,
		Reason: reason,
	}
	l.entries = append(l.entries, e)
	return e
}

// ReasonMaxLen caps the length of a ledger entry's reason.
const ReasonMaxLen = 200

// checkReason requires a non-blank reason of at most ReasonMaxLen runes.
func checkReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrInvalidReason
	}
	if n := utf8.RuneCountInString(reason); n > ReasonMaxLen {
		return fmt.Errorf("%w: %d characters exceeds %d", ErrInvalidReason, n, ReasonMaxLen)
	}
	return nil
}

func validateEntry(e LedgerEntry) error {
	if e.Kind != LedgerAdd && e.Kind != LedgerSpend {
		return fmt.Errorf("%w: %q", ErrInvalidKind, e.Kind)
	}
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	if err := checkReason(e.Reason); err != nil {
		return err
	}
	if e.Date == "" {
		return fmt.Errorf("%w: missing date", ErrInvalidData)
	}
	return nil
}

func (l Ledger) clone() Ledger {
	return Ledger{total: l.total, spent: l.spent, entries: append([]LedgerEntry(nil), l.entries...)}
}
