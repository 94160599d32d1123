package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/raphaelgruber/contentmill/internal/models"
)

const pollInterval = 500 * time.Millisecond

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// batchFetcher loads the current state of a batch.
type batchFetcher func(ctx context.Context, id string) (*models.BulkUpdateBatch, error)

type tickMsg time.Time

type batchUpdateMsg struct {
	batch   *models.BulkUpdateBatch
	drained bool
	err     error
}

// progressModel is the bubbletea model for batch progress.
type progressModel struct {
	fetch    batchFetcher
	batchID  string
	batch    *models.BulkUpdateBatch
	drained  <-chan struct{}
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newProgressModel(fetch batchFetcher, batch *models.BulkUpdateBatch, drained <-chan struct{}) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return progressModel{
		fetch:    fetch,
		batchID:  batch.ID,
		batch:    batch,
		drained:  drained,
		progress: prog,
		theme:    defaultTheme,
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchBatch()

	case batchUpdateMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch batch: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}
		m.batch = msg.batch
		if batchSettled(m.batch) || msg.drained {
			m.done = true
			return m, tea.Quit
		}
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}
	if m.batch == nil {
		return "Loading batch status...\n"
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.batch.Status))
	bar := m.progress.ViewAs(m.batch.Percent())
	counts := fmt.Sprintf("%d/%d documents", m.batch.UpdatedCount+m.batch.FailedCount, m.batch.AffectedCount)
	hint := m.theme.hintStyle().Render("Press q to stop watching")

	return fmt.Sprintf("%s %s %s\n%s\n", status, bar, counts, hint)
}

func (m progressModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nStopped watching batch %s.\nUse 'contentmill bulk-update status %s' to check it.\n",
			m.batchID, m.batchID)
		return m.theme.hintStyle().Render(msg)
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s\n", m.err))
	}
	return batchSummary(m.theme, m.batch)
}

func (m progressModel) fetchBatch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		drained := isClosed(m.drained)
		batch, err := m.fetch(ctx, m.batchID)
		if err == nil && batch == nil {
			err = fmt.Errorf("batch %s disappeared", m.batchID)
		}
		return batchUpdateMsg{batch: batch, drained: drained, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func batchSettled(b *models.BulkUpdateBatch) bool {
	return b.Status == models.BatchCompleted || b.Status == models.BatchCancelled
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func batchSummary(theme Theme, b *models.BulkUpdateBatch) string {
	var out string
	switch b.Status {
	case models.BatchCompleted:
		out += theme.completedStyle().Render("✓ Completed") + "\n\n"
	case models.BatchCancelled:
		out += theme.errorStyle().Render("✗ Cancelled") + "\n\n"
	default:
		out += theme.statusStyle().Render(fmt.Sprintf("[%s]", b.Status)) + "\n\n"
	}
	out += fmt.Sprintf("  Batch:    %s\n", b.ID)
	out += fmt.Sprintf("  Variable: %s (%q → %q)\n", b.VariableKey, b.OldValue, b.NewValue)
	out += fmt.Sprintf("  Affected: %d\n", b.AffectedCount)
	out += fmt.Sprintf("  Updated:  %d\n", b.UpdatedCount)
	out += fmt.Sprintf("  Failed:   %d\n", b.FailedCount)
	if b.FailedCount > 0 && b.Status != models.BatchCancelled {
		out += theme.hintStyle().Render(fmt.Sprintf("\nRun 'contentmill bulk-update retry %s' to retry failed documents.", b.ID)) + "\n"
	}
	return out
}

// RunBatchProgress shows batch progress until the batch settles or drained is closed.
// Outside a terminal it prints a plain line whenever the counts change.
func RunBatchProgress(ctx context.Context, fetch batchFetcher, batch *models.BulkUpdateBatch, drained <-chan struct{}) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return watchPlain(ctx, os.Stdout, fetch, batch, drained)
	}

	p := tea.NewProgram(newProgressModel(fetch, batch, drained))
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}
	if m, ok := finalModel.(progressModel); ok && !m.quitting {
		return m.err
	}
	return nil
}

func watchPlain(ctx context.Context, w io.Writer, fetch batchFetcher, batch *models.BulkUpdateBatch, drained <-chan struct{}) error {
	last := -1
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		// sampled before the fetch so the final summary is never older than the drain
		wasDrained := isClosed(drained)
		next, err := fetch(ctx, batch.ID)
		if err != nil {
			return fmt.Errorf("fetch batch: %w", err)
		}
		if next == nil {
			return fmt.Errorf("batch %s disappeared", batch.ID)
		}
		batch = next

		if settled := batch.UpdatedCount + batch.FailedCount; settled != last {
			last = settled
			fmt.Fprintf(w, "batch %s [%s] %d/%d (%.0f%%)\n",
				batch.ID, batch.Status, settled, batch.AffectedCount, batch.Percent()*100)
		}
		if batchSettled(batch) || wasDrained {
			fmt.Fprint(w, batchSummary(Theme{}, batch))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
