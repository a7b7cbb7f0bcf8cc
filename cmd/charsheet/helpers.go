// Shared helpers for charsheet CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/charsheet/internal/assets"
	"github.com/mesh-intelligence/charsheet/internal/autosave"
	"github.com/mesh-intelligence/charsheet/internal/editor"
	"github.com/mesh-intelligence/charsheet/pkg/sqlite"
	"github.com/mesh-intelligence/charsheet/pkg/types"
)

// attachBackend resolves the data directory and attaches a SQLite backend.
// The caller must defer backend.Detach().
func (a *app) attachBackend() (*sqlite.Backend, string, error) {
	dataDir, err := a.resolveDataDir()
	if err != nil {
		return nil, "", sysErr(fmt.Errorf("resolve data dir: %w", err))
	}
	cfg := types.Config{
		Backend:        a.settings.Backend,
		DataDir:        dataDir,
		CharacterLimit: a.settings.CharacterLimit,
	}
	backend, err := sqlite.Open(cfg, a.logger)
	if err != nil {
		return nil, "", sysErr(fmt.Errorf("attach backend: %w", err))
	}
	return backend, dataDir, nil
}

// editorOptions wires an editor session to backend and the portrait store.
func (a *app) editorOptions(backend types.Store, dataDir string) editor.Options {
	return editor.Options{
		Store:  backend,
		Assets: assets.NewFileStore(dataDir, a.logger),
		Access: a.access(),
		Sync:   a.settings.Sync,
		Logger: a.logger,
	}
}

// outcome is what an edit reports back for printing.
type outcome struct {
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// editResult is the JSON shape printed after an edit.
type editResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	outcome
}

// edit opens the character id, runs fn against the session and closes it,
// which synchronizes every change fn made before the command returns.
func (a *app) edit(cmd *cobra.Command, id string, fn func(ed *editor.Editor) (outcome, error)) error {
	backend, dataDir, err := a.attachBackend()
	if err != nil {
		return err
	}
	defer backend.Detach()

	ed, err := editor.Open(ctxOf(cmd), id, a.editorOptions(backend, dataDir))
	if err != nil {
		return err
	}
	return a.finish(cmd, ed, fn)
}

// finish runs fn, closes the session and prints the outcome with the save
// status.
func (a *app) finish(cmd *cobra.Command, ed *editor.Editor, fn func(ed *editor.Editor) (outcome, error)) error {
	out, err := fn(ed)
	if cerr := ed.Close(ctxOf(cmd)); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return printJSON(w, editResult{ID: ed.ID(), Status: string(ed.Status()), outcome: out})
	}
	if out.Message != "" {
		fmt.Fprintln(w, out.Message)
	}
	fmt.Fprintf(w, "%s %s\n", ed.ID(), statusColor(ed.Status()))
	return nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysErr(fmt.Errorf("marshal JSON: %w", err))
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func statusColor(s autosave.Status) string {
	switch s {
	case autosave.StatusSaved:
		return color.GreenString(string(s))
	case autosave.StatusSaving:
		return color.YellowString(string(s))
	case autosave.StatusError:
		return color.New(color.FgRed, color.Bold).Sprint(string(s))
	default:
		return color.HiBlackString(string(s))
	}
}

func gaugeColor(level string) string {
	switch level {
	case types.GaugeCritical:
		return color.New(color.FgRed, color.Bold).Sprint(level)
	case types.GaugeCaution:
		return color.YellowString(level)
	default:
		return color.GreenString(level)
	}
}

// parseInt parses a positional integer argument.
func parseInt(name, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

// reportMessage renders an advisory selection report.
func reportMessage(r types.SelectionReport) string {
	if r.Valid {
		return "selection: " + color.GreenString("valid")
	}
	msg := "selection: " + color.YellowString("incomplete")
	for _, v := range r.Violations {
		msg += "\n  - " + v
	}
	return msg
}
