package sink

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/claude-code-metrics/internal/models"
	"github.com/j-veylop/claude-code-metrics/internal/ui/styles"
)

const maxDimensionsWidth = 72

// Console renders every batch as a table instead of publishing it.
type Console struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	mu       sync.Mutex
	batches  int
}

// NewConsole creates a sink that writes to w. Colors are only emitted when w
// is a terminal.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, renderer: lipgloss.NewRenderer(w)}
}

// PutMetricData renders records.
func (c *Console) PutMetricData(_ context.Context, namespace string, records []models.MetricRecord) error {
	if err := checkBatch(records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches++

	r := c.renderer
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.Border(r)).
		Headers("METRIC", "VALUE", "UNIT", "TIMESTAMP", "DIMENSIONS")

	for _, rec := range records {
		t.Row(
			string(rec.MetricName),
			strconv.FormatFloat(rec.Value, 'f', -1, 64),
			string(rec.Unit),
			rec.Timestamp.UTC().Format(time.RFC3339Nano),
			formatDimensions(rec.Dimensions),
		)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return styles.TableHeader(r)
		case col == 0 && row >= 0 && row < len(records):
			return styles.MetricCell(r, string(records[row].MetricName))
		default:
			return styles.Cell(r)
		}
	})

	title := styles.Title(r).Render(fmt.Sprintf("%s · batch %d · %d records", namespace, c.batches, len(records)))
	if _, err := fmt.Fprintf(c.w, "%s\n%s\n", title, t.String()); err != nil {
		return fmt.Errorf("failed to write metric batch: %w", err)
	}
	return nil
}

func formatDimensions(dims []models.Dimension) string {
	parts := make([]string, 0, len(dims))
	for _, d := range dims {
		parts = append(parts, d.Name+"="+d.Value)
	}
	return ansi.Truncate(strings.Join(parts, " "), maxDimensionsWidth, "…")
}
