// Package report turns gateway state into persisted report documents.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/onlymatt/gateway/internal/explorer"
	"github.com/onlymatt/gateway/internal/model"
	registrystore "github.com/onlymatt/gateway/internal/registry/store"
)

// Generator builds report bodies from the store and the file explorer
// and persists them.
type Generator struct {
	store    registrystore.GatewayStore
	explorer *explorer.Explorer
}

// NewGenerator creates a Generator. The explorer may be nil, in which
// case folder reports fail validation.
func NewGenerator(store registrystore.GatewayStore, exp *explorer.Explorer) *Generator {
	return &Generator{store: store, explorer: exp}
}

// Generate builds and persists a report of the given type. path is only
// consulted for folder reports.
func (g *Generator) Generate(ctx context.Context, reportType model.ReportType, path string) (*model.Report, error) {
	if !reportType.Valid() {
		return nil, &registrystore.ValidationError{Field: "type", Message: "must be daily, folder, activity, or summary"}
	}

	now := time.Now().UTC()
	var title, content string
	var err error

	switch reportType {
	case model.ReportDaily:
		title = "Daily report " + now.Format("2006-01-02")
		content, err = g.statsBody(ctx, now)
	case model.ReportSummary:
		title = "Summary report"
		content, err = g.statsBody(ctx, now)
	case model.ReportActivity:
		title = "Activity report"
		content, err = g.activityBody(ctx, now)
	case model.ReportFolder:
		if path == "" {
			title = "Folder report"
		} else {
			title = "Folder report: " + path
		}
		content, err = g.folderBody(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	return g.store.CreateReport(ctx, reportType, title, content)
}

func (g *Generator) statsBody(ctx context.Context, now time.Time) (string, error) {
	stats, err := g.store.Stats(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Generated at %s\n\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "Memories:        %d\n", stats.Memories)
	fmt.Fprintf(&b, "Tasks pending:   %d\n", stats.TasksPending)
	fmt.Fprintf(&b, "Tasks completed: %d\n", stats.TasksCompleted)
	fmt.Fprintf(&b, "Reports:         %d\n", stats.Reports)
	fmt.Fprintf(&b, "Chat exchanges:  %d\n", stats.ChatExchanges)
	return b.String(), nil
}

func (g *Generator) activityBody(ctx context.Context, now time.Time) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Generated at %s\n", now.Format(time.RFC3339))

	tasks, err := g.store.ListTasks(ctx)
	if err != nil {
		return "", err
	}
	b.WriteString("\nTasks:\n")
	if len(tasks) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, task := range tasks {
		fmt.Fprintf(&b, "  [%s] %s (%s)\n", task.Status, task.Title, task.Priority)
	}

	exchanges, err := g.store.ListChatExchanges(ctx, 10)
	if err != nil {
		return "", err
	}
	b.WriteString("\nRecent chat:\n")
	if len(exchanges) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, exchange := range exchanges {
		fmt.Fprintf(&b, "  %s  %s\n", exchange.CreatedAt.Format("2006-01-02 15:04"), firstLine(exchange.UserMessage, 80))
	}
	return b.String(), nil
}

func (g *Generator) folderBody(ctx context.Context, path string) (string, error) {
	if g.explorer == nil {
		return "", &registrystore.ValidationError{Field: "type", Message: "folder reports require a configured files root"}
	}
	listing, err := g.explorer.List(ctx, path, explorer.ListOptions{Recursive: true})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Listing of %q: %d entries\n\n", listing.Path, listing.Total)
	for _, entry := range listing.Entries {
		if entry.IsDir {
			fmt.Fprintf(&b, "  %s/\n", entry.Path)
		} else {
			fmt.Fprintf(&b, "  %s (%d bytes)\n", entry.Path, entry.Size)
		}
	}
	if listing.Truncated {
		fmt.Fprintf(&b, "\n(truncated at %d entries)\n", len(listing.Entries))
	}
	return b.String(), nil
}

func firstLine(s string, max int) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
