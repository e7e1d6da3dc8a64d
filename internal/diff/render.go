package diff

import (
	"fmt"
	"strings"
)

// Progress lines printed while a changeset is applied.

func UpdatedLine(u ModelUpdate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✏️ Updated %s:", u.FileName)
	for _, c := range u.Changes {
		fmt.Fprintf(&b, "\n  - %s", c)
	}
	return b.String()
}

func UnchangedLine(m ModelChange) string {
	return fmt.Sprintf("✅ No changes needed for %s", m.FileName)
}

func CreatedLine(m ModelChange) string {
	return fmt.Sprintf("➕ Created new file %s", m.FileName)
}

func DeletedLine(m ModelChange) string {
	return fmt.Sprintf("🗑️ Deleted %s (model no longer exists in API)", m.FileName)
}

func SkippedLine(s Skip) string {
	return fmt.Sprintf("⚠️ Skipped %s: %s", s.ID, s.Reason)
}

// RenderSummary describes what applying cs would do, one progress line per
// model, in apply order.
func RenderSummary(cs *ChangeSet) string {
	var lines []string
	for _, u := range cs.Updated {
		lines = append(lines, UpdatedLine(u))
	}
	for _, m := range cs.Unchanged {
		lines = append(lines, UnchangedLine(m))
	}
	for _, m := range cs.Deleted {
		lines = append(lines, DeletedLine(m))
	}
	for _, m := range cs.New {
		lines = append(lines, CreatedLine(m))
	}
	for _, s := range cs.Skipped {
		lines = append(lines, SkippedLine(s))
	}
	lines = append(lines, fmt.Sprintf("%d new, %d updated, %d deleted, %d unchanged, %d skipped",
		len(cs.New), len(cs.Updated), len(cs.Deleted), len(cs.Unchanged), len(cs.Skipped)))
	return strings.Join(lines, "\n")
}

// RenderPRBody generates the markdown body of a catalog update pull request.
func RenderPRBody(cs *ChangeSet) string {
	var b strings.Builder

	b.WriteString("Automated sync of model definitions with the provider catalog.\n\n")
	fmt.Fprintf(&b, "**%d** new, **%d** updated, **%d** deleted, **%d** unchanged\n\n",
		len(cs.New), len(cs.Updated), len(cs.Deleted), len(cs.Unchanged))

	if len(cs.New) > 0 {
		b.WriteString("### New models\n\n")
		b.WriteString("| Model | File | Context | Input | Output |\n")
		b.WriteString("|-------|------|---------|-------|--------|\n")
		for _, m := range cs.New {
			d := m.Definition
			fmt.Fprintf(&b, "| `%s` | `%s` | %d | %s | %s |\n",
				m.ID, m.FileName, d.ModelProperties.ContextSize, d.Pricing.Input, d.Pricing.Output)
		}
		b.WriteString("\n")
	}

	if len(cs.Updated) > 0 {
		b.WriteString("### Updated models\n\n")
		for _, u := range cs.Updated {
			fmt.Fprintf(&b, "- `%s` (`%s`)\n", u.ID, u.FileName)
			for _, c := range u.Changes {
				fmt.Fprintf(&b, "  - %s\n", c)
			}
		}
		b.WriteString("\n")
	}

	if len(cs.Deleted) > 0 {
		b.WriteString("### Deleted models\n\n")
		for _, m := range cs.Deleted {
			fmt.Fprintf(&b, "- `%s` (`%s`)\n", m.ID, m.FileName)
		}
		b.WriteString("\n")
	}

	if len(cs.Skipped) > 0 {
		b.WriteString("<details>\n<summary>Skipped models</summary>\n\n")
		for _, s := range cs.Skipped {
			fmt.Fprintf(&b, "- `%s`: %s\n", s.ID, s.Reason)
		}
		b.WriteString("\n</details>\n")
	}

	return b.String()
}
