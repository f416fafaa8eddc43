package wizard

import (
	"fmt"
	"strings"

	"github.com/compozy/groupops/engine/batch"
	"github.com/compozy/groupops/engine/flow"
	"github.com/compozy/groupops/engine/group"
	"github.com/compozy/groupops/engine/phone"
	"github.com/compozy/groupops/engine/surface"
	"github.com/compozy/groupops/pkg/pagination"
)

const progressLogLines = 10

func choice(label string, a Action) surface.Choice {
	return surface.Choice{Label: label, Data: a.Encode()}
}

var (
	menuRow   = []surface.Choice{choice("👥 Admin menu", Action{Kind: ActionMenu})}
	cancelRow = []surface.Choice{choice("❌ Cancel", Action{Kind: ActionCancel})}
)

func menuView(header string) surface.View {
	text := "👥 Admin Management\n\nChoose an operation:"
	if header != "" {
		text = header + "\n\n" + text
	}
	return surface.View{
		Text: text,
		Choices: [][]surface.Choice{
			{choice("➕ Add & promote admins", Action{Kind: ActionStartAddPromote})},
			{choice("⬇️ Demote all admins", Action{Kind: ActionStartDemoteAll})},
		},
	}
}

func errorView(message string) surface.View {
	return surface.View{Text: "❌ " + message, Choices: [][]surface.Choice{menuRow}}
}

func loadingView() surface.View {
	return surface.View{Text: "⏳ Loading groups..."}
}

func searchPromptView(s *flow.State) surface.View {
	subject := "group names"
	if s.Kind == flow.KindDemoteAll {
		subject = "base names"
	}
	return surface.View{
		Text: fmt.Sprintf("🔍 Send a search query to filter %s.", subject),
		Choices: [][]surface.Choice{
			{choice("♻️ Reset search", Action{Kind: ActionResetSearch})},
			cancelRow,
		},
	}
}

func navRow(step flow.Step, p pagination.Page) []surface.Choice {
	var row []surface.Choice
	if p.HasPrev {
		row = append(row, choice("⬅️ Prev", Action{Kind: ActionSelectPage, Step: step, Page: p.CurrentPage - 1}))
	}
	if p.HasNext {
		row = append(row, choice("Next ➡️", Action{Kind: ActionSelectPage, Step: step, Page: p.CurrentPage + 1}))
	}
	return row
}

func searchRow(s *flow.State) []surface.Choice {
	row := []surface.Choice{choice("🔍 Search", Action{Kind: ActionSearch})}
	if s.SearchQuery != "" {
		row = append(row, choice("♻️ Reset search", Action{Kind: ActionResetSearch}))
	}
	return row
}

func groupLabel(s *flow.State, g group.Group) string {
	mark := "⭕"
	if s.Selected.Has(g.ID) {
		mark = "✅"
	}
	role := "👤"
	if g.IsAdmin {
		role = "👑"
	}
	return fmt.Sprintf("%s %s %s", mark, role, g.Name)
}

func pageHeader(title string, p pagination.Page, s *flow.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (page %d of %d)\n", title, p.CurrentPage+1, p.TotalPages)
	fmt.Fprintf(&b, "Selected: %d", s.Selected.Len())
	if s.SearchQuery != "" {
		fmt.Fprintf(&b, "\n🔍 Search: %q", s.SearchQuery)
	}
	return b.String()
}

// groupListView renders select_groups and select_groups_in_base. The page
// is clamped and written back to the state.
func groupListView(s *flow.State, pageSize int) surface.View {
	groups := s.VisibleGroups()
	p := pagination.New(s.CurrentPage, len(groups), pageSize)
	s.CurrentPage = p.CurrentPage

	title := "📋 Select groups"
	if s.Kind == flow.KindDemoteAll {
		title = fmt.Sprintf("📁 %s: select groups", s.SelectedBaseName)
	}
	text := pageHeader(title, p, s)
	if len(groups) == 0 {
		text += "\n\nNo groups match."
	}

	var rows [][]surface.Choice
	for _, g := range pagination.Slice(groups, p) {
		rows = append(rows, []surface.Choice{choice(groupLabel(s, g), Action{Kind: ActionToggleGroup, GroupID: g.ID})})
	}
	if nav := navRow(s.Step, p); len(nav) > 0 {
		rows = append(rows, nav)
	}
	if s.Kind == flow.KindDemoteAll {
		rows = append(rows, []surface.Choice{choice("⬅️ Back", Action{Kind: ActionBack})})
	} else {
		rows = append(rows, searchRow(s))
	}
	if s.Selected.Len() > 0 {
		rows = append(rows, []surface.Choice{choice(fmt.Sprintf("✔️ Done (%d)", s.Selected.Len()), Action{Kind: ActionFinishSelection})})
	}
	rows = append(rows, cancelRow)
	return surface.View{Text: text, Choices: rows}
}

func baseListView(s *flow.State, pageSize int) surface.View {
	names := s.VisibleBaseNames()
	p := pagination.New(s.CurrentPage, len(names), pageSize)
	s.CurrentPage = p.CurrentPage

	var b strings.Builder
	fmt.Fprintf(&b, "📁 Select a base name (page %d of %d)", p.CurrentPage+1, p.TotalPages)
	if s.SearchQuery != "" {
		fmt.Fprintf(&b, "\n🔍 Search: %q", s.SearchQuery)
	}
	if len(names) == 0 {
		b.WriteString("\n\nNo base names match.")
	}

	var rows [][]surface.Choice
	for _, name := range pagination.Slice(names, p) {
		label := fmt.Sprintf("📁 %s (%d)", name, len(s.Grouped[name]))
		rows = append(rows, []surface.Choice{choice(label, Action{Kind: ActionToggleBase, BaseName: name})})
	}
	if nav := navRow(s.Step, p); len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, searchRow(s), cancelRow)
	return surface.View{Text: b.String(), Choices: rows}
}

// listView renders whichever list the state currently shows.
func listView(s *flow.State, pageSize int) surface.View {
	if s.Step == flow.StepSelectBaseNames {
		return baseListView(s, pageSize)
	}
	return groupListView(s, pageSize)
}

func numbersPromptView(s *flow.State, problems []string) surface.View {
	var b strings.Builder
	if len(problems) > 0 {
		b.WriteString("❌ Some numbers are invalid:\n")
		for _, p := range problems {
			b.WriteString("• " + p + "\n")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "📱 Send the admin numbers for %d selected group(s).\n\n%s", s.Selected.Len(), phone.FormatHint)
	return surface.View{Text: b.String(), Choices: [][]surface.Choice{cancelRow}}
}

func confirmRows() [][]surface.Choice {
	return [][]surface.Choice{
		{choice("✅ Confirm", Action{Kind: ActionConfirm})},
		cancelRow,
	}
}

func confirmAddPromoteView(s *flow.State) surface.View {
	groups := s.SelectedGroups()
	var b strings.Builder
	b.WriteString("📝 Confirm add & promote\n\nNumbers:\n")
	for _, n := range s.AdminNumbers {
		b.WriteString("• " + n + "\n")
	}
	b.WriteString("\nGroups:\n")
	for _, g := range groups {
		b.WriteString("• " + g.Name + "\n")
	}
	fmt.Fprintf(&b, "\nTotal operations: %d", len(groups)*len(s.AdminNumbers))
	return surface.View{Text: surface.Truncate(b.String()), Choices: confirmRows()}
}

func confirmDemoteView(s *flow.State) surface.View {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ Confirm demote all admins\n\nBase: %s\nGroups:\n", s.SelectedBaseName)
	for _, g := range s.SelectedGroups() {
		mark := "👑"
		if !g.IsAdmin {
			mark = "⚠️ not admin, will be skipped:"
		}
		fmt.Fprintf(&b, "• %s %s\n", mark, g.Name)
	}
	b.WriteString("\nEvery regular admin in these groups will be demoted. Owners are kept. " +
		"This cannot be undone and needs admin rights in each group.")
	return surface.View{Text: surface.Truncate(b.String()), Choices: confirmRows()}
}

func confirmView(s *flow.State) surface.View {
	if s.Kind == flow.KindDemoteAll {
		return confirmDemoteView(s)
	}
	return confirmAddPromoteView(s)
}

func kindTitle(kind flow.Kind) string {
	if kind == flow.KindDemoteAll {
		return "Demote all admins"
	}
	return "Add & promote"
}

func tally(b *strings.Builder, res *batch.Result) {
	fmt.Fprintf(b, "✅ Succeeded: %d\n❌ Failed: %d\n📊 Groups processed: %d", res.SuccessCount, res.FailureCount, res.GroupsProcessed)
}

func startingView(kind flow.Kind) surface.View {
	return surface.View{Text: fmt.Sprintf("⏳ %s starting...", kindTitle(kind))}
}

func progressView(p batch.Progress) surface.View {
	var b strings.Builder
	pct := 0
	if p.Total > 0 {
		pct = p.Done * 100 / p.Total
	}
	fmt.Fprintf(&b, "⏳ %s in progress\n\nProgress: %d/%d (%d%%)\n", kindTitle(p.Kind), p.Done, p.Total, pct)
	if p.Result != nil {
		tally(&b, p.Result)
		log := p.Result.Log
		if len(log) > progressLogLines {
			log = log[len(log)-progressLogLines:]
		}
		if len(log) > 0 {
			b.WriteString("\n\n" + strings.Join(log, "\n"))
		}
	}
	return surface.View{Text: surface.Truncate(b.String())}
}

// resultView is the terminal message of a run. A failed run still shows
// the partial tally and log.
func resultView(kind flow.Kind, res *batch.Result, runErr error) surface.View {
	var b strings.Builder
	if runErr != nil {
		fmt.Fprintf(&b, "❌ %s stopped: %v\n\n", kindTitle(kind), runErr)
	} else {
		fmt.Fprintf(&b, "🎉 %s finished!\n\n", kindTitle(kind))
	}
	if res != nil {
		tally(&b, res)
		if len(res.Log) > 0 {
			b.WriteString("\n\nDetails:\n" + strings.Join(res.Log, "\n"))
		}
	}
	return surface.View{Text: surface.Truncate(b.String()), Choices: [][]surface.Choice{menuRow}}
}
