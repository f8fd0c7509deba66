// Package tui is the interactive migration picker behind migrate up -i and migrate down -i.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/marshallshelly/pebble-apps/pkg/migration"
)

// Action is the direction the UI migrates in.
type Action string

const (
	ActionUp   Action = "up"
	ActionDown Action = "down"
)

// Runner applies and rolls back migrations. *migration.Executor is one.
type Runner interface {
	WithLock(ctx context.Context, fn func(ctx context.Context) error) error
	Apply(ctx context.Context, m migration.Migration, dryRun bool) error
	Rollback(ctx context.Context, m migration.Migration, dryRun bool) error
}

// MigrateMode represents the current mode of the migration UI
type MigrateMode int

const (
	ModeList MigrateMode = iota
	ModeConfirm
	ModeExecuting
	ModeComplete
	ModeError
)

// MigrateModel lists migrations, lets the user mark the ones to run and runs
// them one at a time, each under the migration lock.
type MigrateModel struct {
	ctx        context.Context
	action     Action
	runner     Runner
	migrations []migration.Migration
	status     []migration.MigrationRecord
	index      map[string]int
	marked     map[int]bool
	queue      []int

	mode         MigrateMode
	list         list.Model
	confirmation ConfirmationDialog
	progress     ProgressView
	logs         LogView
	err          error
	width        int
	height       int
}

// NewMigrateModel builds the UI over migrations and their status, both in
// version order as returned by Generator.LoadAll and Executor.GetStatus.
func NewMigrateModel(ctx context.Context, action Action, runner Runner, migrations []migration.Migration, status []migration.MigrationRecord) MigrateModel {
	m := MigrateModel{
		ctx:        ctx,
		action:     action,
		runner:     runner,
		migrations: migrations,
		status:     status,
		index:      make(map[string]int, len(migrations)),
		marked:     make(map[int]bool),
		mode:       ModeList,
		logs:       NewLogView(10),
	}
	items := make([]list.Item, len(status))
	for i := range status {
		m.index[status[i].Version] = i
		items[i] = m.item(i)
	}

	l := list.New(items, MigrationItemDelegate{}, 0, 0)
	l.Title = fmt.Sprintf("Migrations (%s)", action)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	m.list = l
	return m
}

func (m MigrateModel) item(i int) MigrationItem {
	s := m.status[i]
	item := MigrationItem{Version: s.Version, Name: s.Name, Status: string(s.Status), Marked: m.marked[i]}
	if s.AppliedAt != nil {
		item.AppliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
	}
	return item
}

// runnable reports whether migration i can move in the UI's direction.
func (m MigrateModel) runnable(i int) bool {
	if m.action == ActionUp {
		return m.status[i].Status != migration.StatusApplied
	}
	return m.status[i].Status == migration.StatusApplied
}

// current is the position of the highlighted migration, -1 when none.
func (m MigrateModel) current() int {
	item, ok := m.list.SelectedItem().(MigrationItem)
	if !ok {
		return -1
	}
	i, ok := m.index[item.Version]
	if !ok {
		return -1
	}
	return i
}

// chosen returns the marked migrations, or the highlighted one when none is
// marked, oldest first going up and newest first going down.
func (m MigrateModel) chosen() []int {
	var out []int
	for i, marked := range m.marked {
		if marked && m.runnable(i) {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		if i := m.current(); i >= 0 && m.runnable(i) {
			out = append(out, i)
		}
	}
	slices.Sort(out)
	if m.action == ActionDown {
		slices.Reverse(out)
	}
	return out
}

// Init initializes the model
func (m MigrateModel) Init() tea.Cmd {
	return nil
}

type migrationExecutedMsg struct {
	index int
	err   error
}

func (m MigrateModel) runCmd(i int) tea.Cmd {
	mig := m.migrations[i]
	return func() tea.Msg {
		err := m.runner.WithLock(m.ctx, func(ctx context.Context) error {
			if m.action == ActionUp {
				return m.runner.Apply(ctx, mig, false)
			}
			return m.runner.Rollback(ctx, mig, false)
		})
		return migrationExecutedMsg{index: i, err: err}
	}
}

func (m MigrateModel) describe(i int) string {
	return fmt.Sprintf("%s - %s", m.migrations[i].Version, m.migrations[i].Name)
}

// Update handles messages
func (m MigrateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case migrationExecutedMsg:
		return m.executed(msg)

	case tea.KeyMsg:
		switch m.mode {
		case ModeList:
			if m.list.FilterState() == list.Filtering {
				break
			}
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case " ":
				i := m.current()
				if i < 0 || !m.runnable(i) {
					return m, nil
				}
				m.marked[i] = !m.marked[i]
				return m, m.list.SetItem(i, m.item(i))
			case "enter":
				m.queue = m.chosen()
				if len(m.queue) == 0 {
					return m, nil
				}
				names := make([]string, len(m.queue))
				for j, i := range m.queue {
					names[j] = "  " + m.describe(i)
				}
				m.confirmation = NewConfirmationDialog(
					fmt.Sprintf("Confirm Migration %s", strings.ToUpper(string(m.action))),
					fmt.Sprintf("Run %s on %d migration(s):\n%s", m.action, len(m.queue), strings.Join(names, "\n")),
				)
				m.mode = ModeConfirm
				return m, nil
			}

		case ModeConfirm:
			switch msg.String() {
			case "ctrl+c", "q", "esc":
				m.mode = ModeList
				return m, nil
			}
			done, confirmed := m.confirmation.Update(msg)
			if !done {
				return m, nil
			}
			if !confirmed {
				m.mode = ModeList
				return m, nil
			}
			m.mode = ModeExecuting
			m.progress = ProgressView{Total: len(m.queue), Message: "Executing: " + m.describe(m.queue[0])}
			return m, m.runCmd(m.queue[0])

		case ModeExecuting:
			return m, nil

		case ModeComplete, ModeError:
			switch msg.String() {
			case "ctrl+c", "q", "enter":
				return m, tea.Quit
			}
			return m, nil
		}
	}

	if m.mode == ModeList {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m MigrateModel) executed(msg migrationExecutedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.mode = ModeError
		m.err = msg.err
		m.logs.AddLog(dangerStyle.Render("Failed: " + m.describe(msg.index)))
		return m, nil
	}

	if m.action == ActionUp {
		m.status[msg.index].Status = migration.StatusApplied
	} else {
		m.status[msg.index].Status = migration.StatusPending
		m.status[msg.index].AppliedAt = nil
	}
	m.marked[msg.index] = false
	setItem := m.list.SetItem(msg.index, m.item(msg.index))
	m.logs.AddLog(successStyle.Render("✓ " + m.describe(msg.index)))
	m.progress.Current++

	if m.progress.Current >= m.progress.Total {
		m.mode = ModeComplete
		return m, setItem
	}
	next := m.queue[m.progress.Current]
	m.progress.Message = "Executing: " + m.describe(next)
	return m, tea.Batch(setItem, m.runCmd(next))
}

// Err is the failure that stopped the run, if any.
func (m MigrateModel) Err() error {
	return m.err
}

// View renders the UI
func (m MigrateModel) View() string {
	center := func(s string) string {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
	}

	switch m.mode {
	case ModeList:
		help := helpStyle.Render(
			FormatKey("↑/↓", "navigate") + " • " +
				FormatKey("space", "mark") + " • " +
				FormatKey("enter", "run") + " • " +
				FormatKey("/", "filter") + " • " +
				FormatKey("q", "quit"),
		)
		return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), help)

	case ModeConfirm:
		return center(m.confirmation.View())

	case ModeExecuting:
		return center(lipgloss.JoinVertical(lipgloss.Left, m.progress.View(), "\n", m.logs.View()))

	case ModeComplete:
		return center(boxStyle.Render(
			titleStyle.Render("Migration Complete") + "\n\n" +
				successStyle.Render(fmt.Sprintf("Ran %s on %d migration(s)", m.action, m.progress.Total)) + "\n\n" +
				helpStyle.Render(FormatKey("enter/q", "exit"))))

	case ModeError:
		return center(boxStyle.Render(
			titleStyle.Render("Migration Failed") + "\n\n" +
				dangerStyle.Render(m.err.Error()) + "\n\n" +
				m.logs.View() + "\n" +
				helpStyle.Render(FormatKey("enter/q", "exit"))))
	}
	return "Unknown mode"
}

// RunMigrateUI runs the interactive picker until the user quits. It returns
// the migration failure, if one stopped the run.
func RunMigrateUI(ctx context.Context, action Action, runner Runner, migrations []migration.Migration, status []migration.MigrationRecord) error {
	p := tea.NewProgram(
		NewMigrateModel(ctx, action, runner, migrations, status),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(MigrateModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
