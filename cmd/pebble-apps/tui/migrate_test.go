package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marshallshelly/pebble-apps/pkg/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	ran    []string
	failOn string
	locks  int
}

func (f *fakeRunner) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	f.locks++
	return fn(ctx)
}

func (f *fakeRunner) Apply(_ context.Context, m migration.Migration, _ bool) error {
	return f.run("up " + m.Version)
}

func (f *fakeRunner) Rollback(_ context.Context, m migration.Migration, _ bool) error {
	return f.run("down " + m.Version)
}

func (f *fakeRunner) run(what string) error {
	if f.failOn == what {
		return errors.New("boom")
	}
	f.ran = append(f.ran, what)
	return nil
}

func fixture(statuses ...migration.MigrationStatus) ([]migration.Migration, []migration.MigrationRecord) {
	var migs []migration.Migration
	var records []migration.MigrationRecord
	for i, s := range statuses {
		version := []string{"20250101000000", "20250201000000", "20250301000000"}[i]
		migs = append(migs, migration.Migration{Version: version, Name: "step"})
		records = append(records, migration.MigrationRecord{Version: version, Name: "step", Status: s})
	}
	return migs, records
}

var (
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
)

func send(t *testing.T, m MigrateModel, msgs ...tea.Msg) (MigrateModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(MigrateModel)
	}
	return m, cmd
}

func TestMigrateModel_UpRunsMarkedInOrder(t *testing.T) {
	runner := &fakeRunner{}
	migs, status := fixture(migration.StatusPending, migration.StatusApplied, migration.StatusPending)
	m := NewMigrateModel(context.Background(), ActionUp, runner, migs, status)

	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	// Mark the first, skip the applied one, mark the third.
	m, _ = send(t, m, keySpace, keyDown, keySpace, keyDown, keySpace)
	assert.Equal(t, []int{0, 2}, m.chosen())

	m, _ = send(t, m, keyEnter)
	require.Equal(t, ModeConfirm, m.mode)

	m, cmd := send(t, m, keyLeft, keyEnter)
	require.Equal(t, ModeExecuting, m.mode)
	require.NotNil(t, cmd)

	m, _ = send(t, m, cmd())
	assert.Equal(t, 1, m.progress.Current)
	m, _ = send(t, m, m.runCmd(m.queue[1])())

	assert.Equal(t, ModeComplete, m.mode)
	assert.Equal(t, []string{"up 20250101000000", "up 20250301000000"}, runner.ran)
	assert.Equal(t, 2, runner.locks, "each migration runs under the lock")
	assert.Equal(t, migration.StatusApplied, m.status[2].Status)
}

func TestMigrateModel_DownDefaultsToHighlighted(t *testing.T) {
	runner := &fakeRunner{}
	migs, status := fixture(migration.StatusApplied, migration.StatusApplied)
	m := NewMigrateModel(context.Background(), ActionDown, runner, migs, status)

	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40}, keyDown, keyEnter)
	assert.Equal(t, []int{1}, m.queue)

	m, _ = send(t, m, keyEnter)
	assert.Equal(t, ModeList, m.mode, "No is preselected")
	assert.Empty(t, runner.ran)
}

func TestMigrateModel_FailureStops(t *testing.T) {
	runner := &fakeRunner{failOn: "up 20250101000000"}
	migs, status := fixture(migration.StatusFailed, migration.StatusPending)
	m := NewMigrateModel(context.Background(), ActionUp, runner, migs, status)

	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40}, keySpace, keyDown, keySpace, keyEnter, keyLeft)
	m, cmd := send(t, m, keyEnter)
	m, _ = send(t, m, cmd())

	assert.Equal(t, ModeError, m.mode)
	assert.EqualError(t, m.Err(), "boom")
	assert.Empty(t, runner.ran)
}

func TestFormatProgressBar(t *testing.T) {
	assert.Contains(t, FormatProgressBar(1, 2, 10), "1/2")
	assert.NotPanics(t, func() { FormatProgressBar(3, 2, 10) })
}
