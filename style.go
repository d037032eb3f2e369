package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/application"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/config"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/persistence"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/stats"
)

type replayRow struct {
	path  string
	index int
	hand  *handhistory.Hand
	err   error
}

// renderHand prints one hand street by street with its result.
func renderHand(h *handhistory.Hand) {
	var b strings.Builder
	m := h.Metadata
	fmt.Fprintf(&b, "%s  blinds %d/%d", m.TableID, m.SmallBlind, m.BigBlind)
	if m.Ante > 0 {
		fmt.Fprintf(&b, " ante %d", m.Ante)
	}
	b.WriteString("\n")
	for _, s := range h.Seats {
		marker := "  "
		if s.IsButton {
			marker = pterm.LightYellow("D ")
		}
		fmt.Fprintf(&b, "%sseat %d %-10s %6d\n", marker, s.SeatNo, s.PlayerUID, s.StartingStack)
	}

	for _, street := range handhistory.Streets {
		st := h.Streets[street]
		if st == nil || (len(st.Actions) == 0 && len(st.Board) == 0) {
			continue
		}
		b.WriteString("\n" + pterm.LightCyan(strings.ToUpper(string(street))))
		if len(st.Board) > 0 {
			b.WriteString("  [" + cards.Join(st.Board) + "]")
		}
		b.WriteString("\n")
		for _, a := range st.Actions {
			if a.Actor == nil {
				continue
			}
			fmt.Fprintf(&b, "  %-10s %s", *a.Actor, a.Kind)
			if a.Amount > 0 {
				fmt.Fprintf(&b, " %d", a.Amount)
			}
			if a.ToAmount > 0 && (a.Kind == handhistory.ActionBet || a.Kind == handhistory.ActionRaise) {
				fmt.Fprintf(&b, " (to %d)", a.ToAmount)
			}
			if a.AllIn {
				b.WriteString(pterm.LightRed(" all-in"))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	for _, e := range h.Showdown {
		fmt.Fprintf(&b, "%-10s [%s] %s\n", e.PlayerUID, cards.Join(e.HoleCards), e.Description)
	}
	for i, p := range h.Pots {
		name := "main pot"
		if i > 0 {
			name = fmt.Sprintf("side pot %d", i)
		}
		fmt.Fprintf(&b, "%s %d:", name, p.Amount)
		for _, uid := range sortedKeys(p.Shares) {
			fmt.Fprintf(&b, " %s %s", pterm.LightGreen(uid), strconv.Itoa(p.Shares[uid]))
		}
		b.WriteString("\n")
	}

	pterm.DefaultBox.WithTitle(pterm.LightYellow("|" + m.HandID + "|")).WithTitleTopCenter().Println(strings.TrimRight(b.String(), "\n"))
}

func renderReplay(rows []replayRow) error {
	data := pterm.TableData{{"File", "#", "Hand", "Pot", "Result"}}
	failed := 0
	for _, r := range rows {
		handID, pot := "-", "-"
		if r.hand != nil {
			handID = r.hand.Metadata.HandID
			pot = strconv.Itoa(r.hand.TotalPot())
		}
		result := pterm.LightGreen("ok")
		if r.err != nil {
			failed++
			result = pterm.LightRed(r.err.Error())
		}
		data = append(data, []string{r.path, strconv.Itoa(r.index), handID, pot, result})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d hands failed to replay", failed, len(rows))
	}
	pterm.Success.Printfln("%d hands replayed", len(rows))
	return nil
}

func renderImport(reports []application.ImportReport) {
	data := pterm.TableData{{"File", "Hands", "New", "Updated", "Rejected", "Note"}}
	var hands, inserted, updated, rejected int
	for _, r := range reports {
		note := ""
		switch {
		case r.Unchanged:
			note = "unchanged"
		case r.Err != nil:
			note = pterm.LightRed(firstLine(r.Err.Error()))
		}
		data = append(data, []string{
			r.Path,
			strconv.Itoa(r.Hands),
			strconv.Itoa(r.Inserted),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Rejected),
			note,
		})
		hands += r.Hands
		inserted += r.Inserted
		updated += r.Updated
		rejected += r.Rejected
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Info.Printfln("%d files, %d hands: %d new, %d updated, %d rejected",
		len(reports), hands, inserted, updated, rejected)
}

func renderSimulation(cfg config.Config, hands []*handhistory.Hand) error {
	net := map[string]int{}
	won := map[string]int{}
	showdowns := 0
	for _, h := range hands {
		for uid, r := range h.Results() {
			net[uid] += r.Net
			if r.Won > 0 {
				won[uid]++
			}
		}
		if h.WentToShowdown() {
			showdowns++
		}
	}
	data := pterm.TableData{{"Player", "Start", "Net", "Hands won"}}
	for _, s := range cfg.Seats {
		data = append(data, []string{
			s.UID,
			strconv.Itoa(s.Stack),
			signed(net[s.UID]),
			strconv.Itoa(won[s.UID]),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	pterm.Info.Printfln("%d hands, %d went to showdown", len(hands), showdowns)
	return nil
}

func renderHands(sums []persistence.HandSummary, total int, totals []persistence.PlayerTotal, player string) error {
	header := []string{"Started", "Table", "Hand", "Players", "Pot", "Board", "Winners"}
	if player != "" {
		header = append(header, "Net")
	}
	data := pterm.TableData{header}
	for _, s := range sums {
		row := []string{
			s.StartTime.Local().Format("2006-01-02 15:04:05"),
			s.TableID,
			shortID(s.HandID),
			strconv.Itoa(s.NumPlayers),
			strconv.Itoa(s.TotalPot),
			s.Board,
			strings.Join(s.Winners, ","),
		}
		if player != "" {
			row = append(row, signed(s.NetChips))
		}
		data = append(data, row)
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	pterm.Info.Printfln("showing %d of %d hands", len(sums), total)

	data = pterm.TableData{{"Player", "Hands", "Won", "Net"}}
	for _, t := range totals {
		data = append(data, []string{t.PlayerUID, strconv.Itoa(t.Hands), strconv.Itoa(t.HandsWon), signed(t.NetChips)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// renderStats prints one row per player; metrics below their sample
// threshold are dimmed.
func renderStats(all []*stats.Stats) error {
	defs := stats.Definitions()
	header := []string{"Player", "Hands", "Net"}
	for _, d := range defs {
		header = append(header, d.Label)
	}
	data := pterm.TableData{header}
	for _, s := range all {
		row := []string{s.PlayerUID, strconv.Itoa(s.TotalHands), signed(s.NetChips)}
		for _, d := range defs {
			row = append(row, formatMetric(s.Metric(d.ID)))
		}
		data = append(data, row)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func formatMetric(v stats.MetricValue) string {
	var out string
	switch v.Format {
	case stats.MetricFormatPercent:
		out = fmt.Sprintf("%.1f%%", v.Rate)
	case stats.MetricFormatDiff:
		out = fmt.Sprintf("%+.1f", v.Rate)
	case stats.MetricFormatBBPer100:
		out = fmt.Sprintf("%+.2f", v.Rate)
	default:
		out = fmt.Sprintf("%.2f", v.Rate)
	}
	if !v.Confident {
		return pterm.Gray(out)
	}
	return out
}

func signed(n int) string {
	switch {
	case n > 0:
		return pterm.LightGreen("+" + strconv.Itoa(n))
	case n < 0:
		return pterm.LightRed(strconv.Itoa(n))
	}
	return "0"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
