package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/charsheet/internal/paths"
	"github.com/mesh-intelligence/charsheet/pkg/types"
)

// cliEnv is one isolated configuration and data directory pair.
type cliEnv struct {
	configDir string
	dataDir   string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	t.Setenv(paths.EnvConfigDir, "")
	t.Setenv(paths.EnvDataDir, "")
	dir := t.TempDir()
	return cliEnv{
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
	}
}

// run executes one command in-process and returns its stdout.
func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "charsheet %s", strings.Join(args, " "))
	return out
}

// create makes a character and returns its id.
func (e cliEnv) create(t *testing.T, name string) string {
	t.Helper()
	var res editResult
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "--json", "new", "--name", name)), &res))
	require.NotEmpty(t, res.ID)
	assert.Equal(t, "saved", res.Status)
	return res.ID
}

func (e cliEnv) sheet(t *testing.T, id string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "--json", "show", id)), &m))
	return m
}

func (e cliEnv) writeConfig(t *testing.T, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, configFileExt), []byte(body), 0o644))
}

func TestVersion(t *testing.T) {
	out := newCLIEnv(t).mustRun(t, "version")
	assert.Contains(t, out, "charsheet ")
	assert.Contains(t, out, modulePath)
}

func TestInit(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun(t, "init")
	assert.Contains(t, out, "charsheet initialized")

	assert.FileExists(t, filepath.Join(env.configDir, configFileExt))
	assert.FileExists(t, filepath.Join(env.dataDir, "characters.jsonl"))

	v, err := loadConfig(env.configDir)
	require.NoError(t, err)
	assert.Equal(t, env.dataDir, v.GetString(cfgKeyDataDir))
}

func TestNewListShow(t *testing.T) {
	env := newCLIEnv(t)
	id := env.create(t, "Ada Vance")

	var list []types.Summary
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "--json", "list")), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "Ada Vance", list[0].Name)
	assert.Equal(t, defaultUser, list[0].OwnerID)

	sheet := env.sheet(t, id)
	assert.Equal(t, "Ada Vance", sheet["name"])
	assert.EqualValues(t, 6, sheet["health_max"])

	text := env.mustRun(t, "show", id)
	assert.Contains(t, text, "Ada Vance")
	assert.Contains(t, text, "Attributes:")

	yml := env.mustRun(t, "show", "--yaml", id)
	assert.Contains(t, yml, "name: Ada Vance")
}

func TestNew_RequiresName(t *testing.T) {
	_, err := newCLIEnv(t).run(t, "new")
	assert.Error(t, err)
}

func TestShow_NotFound(t *testing.T) {
	_, err := newCLIEnv(t).run(t, "show", "no-such-id")
	require.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestAttr_RaisesDerived(t *testing.T) {
	env := newCLIEnv(t)
	id := env.create(t, "Ada")

	env.mustRun(t, "attr", id, "stamina", "4")
	sheet := env.sheet(t, id)
	assert.EqualValues(t, 4, sheet["stamina"])
	assert.EqualValues(t, 7, sheet["health_max"])

	_, err := env.run(t, "attr", id, "stamina", "9")
	assert.ErrorIs(t, err, types.ErrOutOfRange)
}

func TestSet(t *testing.T) {
	env := newCLIEnv(t)
	id := env.create(t, "Ada")

	env.mustRun(t, "set", id, "creed", "Protect the block")
	assert.Equal(t, "Protect the block", env.sheet(t, id)["creed"])

	_, err := env.run(t, "set", id, "strenght", "3")
	require.ErrorIs(t, err, types.ErrUnknownField)
	assert.Contains(t, err.Error(), "did you mean strength")

	_, err = env.run(t, "set", id, "touchstones", "[]")
	assert.ErrorIs(t, err, types.ErrUnknownField)

	_, err = env.run(t, "set", id, "exp_total", "100")
	assert.ErrorIs(t, err, types.ErrReadOnlyField)
	assert.EqualValues(t, 0, env.sheet(t, id)["exp_total"])
}

func TestXP(t *testing.T) {
	env := newCLIEnv(t)
	id := env.create(t, "Ada")

	env.mustRun(t, "xp", id, "add", "10", "first", "session")
	out := env.mustRun(t, "xp", id, "spend", "4", "dots")
	assert.Contains(t, out, "10 total, 4 spent, 6 available")

	_, err := env.run(t, "xp", id, "spend", "7", "too", "much")
	var insufficient *types.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 6, insufficient.Available)

	sheet := env.sheet(t, id)
	assert.EqualValues(t, 6, sheet["exp_available"])
	assert.Len(t, sheet["xp_log"], 2)
}

func TestCycleAndGauge(t *testing.T) {
	env := newCLIEnv(t)
	id := env.create(t, "Ada")

	var res struct {
		Result struct {
			Clicked string   `json:"clicked"`
			Boxes   []string `json:"boxes"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "--json", "cycle", id, "health", "1")), &res))
	assert.Equal(t, types.BoxFilled, res.Result.Clicked)
	require.Len(t, res.Result.Boxes, types.TrackerBound)
	assert.Equal(t, types.BoxSuperficial, res.Result.Boxes[5])
	assert.EqualValues(t, 1, env.sheet(t, id)["health_superficial"])

	out := env.mustRun(t, "gauge", id, "danger", "12")
	assert.Contains(t, out, types.GaugeCaution)

	_, err := env.run(t, "gauge", id, "danger", "21")
	assert.ErrorIs(t, err, types.ErrOutOfRange)
	_, err = env.run(t, "cycle", id, "health", "0")
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange)
	_, err = env.run(t, "cycle", id, "stamina", "1")
	assert.ErrorIs(t, err, errUsage)
}

func TestEdgesAndPerks(t *testing.T) {
	env := newCLIEnv(t)
	id := env.create(t, "Ada")

	out := env.mustRun(t, "edge", id, "add", "arsenal")
	assert.Contains(t, out, "incomplete")

	env.mustRun(t, "perk", id, "add", "arsenal", "exotics")
	out = env.mustRun(t, "perk", id, "add", "arsenal", "untraceable")
	assert.Contains(t, out, "valid")
	assert.NotContains(t, out, "incomplete")

	_, err := env.run(t, "perk", id, "remove", "arsenal", "exotic")
	require.ErrorIs(t, err, types.ErrUnknownSelection)
	assert.Contains(t, err.Error(), "did you mean exotics")

	out = env.mustRun(t, "edge", id, "config", types.EdgeConfigTwoEdgesOnePerk)
	assert.Contains(t, out, "incomplete")
}

func TestCollections(t *testing.T) {
	env := newCLIEnv(t)
	id := env.create(t, "Ada")

	env.mustRun(t, "advantage", id, "add", "Resources", "3")
	env.mustRun(t, "flaw", id, "add", "Enemy", "2", "--description", "old partner")
	env.mustRun(t, "touchstone", id, "add", "Maya", "--conviction", "never abandon family")
	env.mustRun(t, "equipment", id, "add", "Crowbar")
	env.mustRun(t, "skill", id, "melee", "2")
	env.mustRun(t, "specialty", id, "add", "melee", "crowbars")

	_, err := env.run(t, "advantage", id, "add", "Allies", "5")
	assert.ErrorIs(t, err, types.ErrDotBudgetExceeded)

	sheet := env.sheet(t, id)
	assert.Len(t, sheet["advantages"], 1)
	assert.Len(t, sheet["flaws"], 1)
	assert.Len(t, sheet["touchstones"], 1)
	assert.Len(t, sheet["equipment"], 1)

	env.mustRun(t, "advantage", id, "remove", "0")
	assert.Empty(t, env.sheet(t, id)["advantages"])
}

func TestDelete(t *testing.T) {
	env := newCLIEnv(t)
	id := env.create(t, "Ada")
	kept := env.create(t, "Bo")
	env.mustRun(t, "xp", id, "add", "5", "session one")

	img := filepath.Join(t.TempDir(), "face.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG fake"), 0o644))
	env.mustRun(t, "portrait", id, "face", img)
	url, ok := env.sheet(t, id)["portrait_face"].(string)
	require.True(t, ok)
	file := filepath.Join(env.dataDir, strings.TrimPrefix(url, "/"))
	require.FileExists(t, file)

	var res deleteResult
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "--json", "delete", id)), &res))
	assert.Equal(t, id, res.ID)
	assert.Equal(t, "deleted", res.Status)
	assert.Equal(t, []string{url}, res.Portraits)
	assert.NoFileExists(t, file)

	_, err := env.run(t, "show", id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = env.run(t, "delete", id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, exitUserError, exitCode(err))

	out := env.mustRun(t, "list")
	assert.Contains(t, out, kept)
	assert.NotContains(t, out, id)
	xp, err := os.ReadFile(filepath.Join(env.dataDir, "xp_log.jsonl"))
	require.NoError(t, err)
	assert.NotContains(t, string(xp), id)
}

func TestDeleteRespectsOwnership(t *testing.T) {
	env := newCLIEnv(t)
	env.writeConfig(t, "backend: sqlite\nuser: alice\n")
	id := env.create(t, "Ada")

	env.writeConfig(t, "backend: sqlite\nuser: bob\n")
	_, err := env.run(t, "delete", id)
	assert.ErrorIs(t, err, types.ErrNotFound)

	out := env.mustRun(t, "--storyteller", "delete", id)
	assert.Contains(t, out, "deleted Ada")
	_, err = env.run(t, "--storyteller", "show", id)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestPortrait(t *testing.T) {
	env := newCLIEnv(t)
	id := env.create(t, "Ada")

	img := filepath.Join(t.TempDir(), "face.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG fake"), 0o644))

	out := env.mustRun(t, "portrait", id, "face", img)
	assert.Contains(t, out, "face = /portraits/")
	url, ok := env.sheet(t, id)["portrait_face"].(string)
	require.True(t, ok)
	first := filepath.Join(env.dataDir, strings.TrimPrefix(url, "/"))
	assert.FileExists(t, first)

	env.mustRun(t, "portrait", id, "face", img)
	replaced, ok := env.sheet(t, id)["portrait_face"].(string)
	require.True(t, ok)
	assert.NotEqual(t, url, replaced)
	assert.FileExists(t, filepath.Join(env.dataDir, strings.TrimPrefix(replaced, "/")))
	assert.NoFileExists(t, first)

	bad := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(bad, []byte("text"), 0o644))
	_, err := env.run(t, "portrait", id, "face", bad)
	assert.ErrorIs(t, err, types.ErrInvalidAsset)
}

func TestCharacterLimit(t *testing.T) {
	env := newCLIEnv(t)
	env.writeConfig(t, "backend: sqlite\nuser: hunter\ncharacter_limit: 2\n")
	env.create(t, "One")
	env.create(t, "Two")

	_, err := env.run(t, "new", "--name", "Three")
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("character_count"))
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestStorytellerSeesEveryone(t *testing.T) {
	env := newCLIEnv(t)
	env.writeConfig(t, "backend: sqlite\nuser: alice\n")
	id := env.create(t, "Alice's hunter")

	env.writeConfig(t, "backend: sqlite\nuser: bob\n")
	assert.Contains(t, env.mustRun(t, "list"), "no characters")
	_, err := env.run(t, "show", id)
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.Contains(t, env.mustRun(t, "--storyteller", "list"), "Alice's hunter")
	env.mustRun(t, "--storyteller", "set", id, "chronicle", "Night Shift")

	var sheet map[string]any
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "--json", "--storyteller", "show", id)), &sheet))
	assert.Equal(t, "Night Shift", sheet["chronicle"])
	assert.Equal(t, "alice", sheet["owner_id"])
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"validation", &types.ValidationError{Fields: []types.FieldError{{Field: "name"}}}, exitUserError},
		{"not found", fmt.Errorf("get: %w", types.ErrNotFound), exitUserError},
		{"transport", &types.TransportError{Op: "update", Err: errors.New("disk full")}, exitSysError},
		{"system", sysErr(errors.New("attach")), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
