package decision

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

func strPtr(s string) *string { return &s }

func flopSnapshot(currentBet, bobBet int) engine.Snapshot {
	return engine.Snapshot{
		Street:     handhistory.StreetFlop,
		CurrentBet: currentBet,
		Players: []engine.PlayerView{
			{UID: "alice", Stack: 500, CurrentBet: currentBet},
			{UID: "bob", Stack: 500, CurrentBet: bobBet},
		},
	}
}

func flopHand(actions ...handhistory.Action) *handhistory.Hand {
	h := handhistory.New(handhistory.HandMetadata{BigBlind: 10}, nil)
	h.Append(handhistory.Action{Street: handhistory.StreetPreflop, Actor: strPtr("alice"), Kind: handhistory.ActionPostSmallBlind, Amount: 5, ToAmount: 5})
	h.Append(handhistory.Action{Street: handhistory.StreetFlop, Kind: handhistory.ActionDeal, Note: "2c 3d 4h"})
	for _, a := range actions {
		h.Append(a)
	}
	return h
}

func TestReplaySkipsPostsAndDeals(t *testing.T) {
	t.Parallel()

	r := NewReplay(flopHand(handhistory.Action{Street: handhistory.StreetFlop, Actor: strPtr("bob"), Kind: handhistory.ActionCheck}))
	if r.Remaining() != 1 {
		t.Fatalf("remaining=%d, want 1", r.Remaining())
	}
	d, err := r.Decide("bob", flopSnapshot(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != engine.ActionCheck {
		t.Fatalf("kind=%s, want check", d.Kind)
	}
	if r.HasDecisionFor("bob") {
		t.Fatal("replay should be exhausted")
	}
}

func TestReplayTranslatesAmounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		action     handhistory.Action
		currentBet int
		bobBet     int
		want       engine.Decision
	}{
		{
			name:   "bet from incremental amount",
			action: handhistory.Action{Kind: handhistory.ActionBet, Amount: 40, ToAmount: 40},
			want:   engine.Decision{Kind: engine.ActionBet, ToAmount: 40},
		},
		{
			name:       "raise adds to existing street bet",
			action:     handhistory.Action{Kind: handhistory.ActionRaise, Amount: 90, ToAmount: 120},
			currentBet: 60, bobBet: 30,
			want: engine.Decision{Kind: engine.ActionRaise, ToAmount: 120},
		},
		{
			name:   "raise with nothing open becomes a bet",
			action: handhistory.Action{Kind: handhistory.ActionRaise, Amount: 20, ToAmount: 20},
			want:   engine.Decision{Kind: engine.ActionBet, ToAmount: 20},
		},
		{
			name:       "bet facing a bet becomes a raise",
			action:     handhistory.Action{Kind: handhistory.ActionBet, Amount: 80, ToAmount: 80},
			currentBet: 20,
			want:       engine.Decision{Kind: engine.ActionRaise, ToAmount: 80},
		},
		{
			name:   "total only",
			action: handhistory.Action{Kind: handhistory.ActionBet, ToAmount: 25},
			want:   engine.Decision{Kind: engine.ActionBet, ToAmount: 25},
		},
		{
			name:       "call matches amount owed",
			action:     handhistory.Action{Kind: handhistory.ActionCall, Amount: 30, ToAmount: 40},
			currentBet: 40, bobBet: 10,
			want: engine.Decision{Kind: engine.ActionCall},
		},
		{
			name:   "call with nothing owed is a check",
			action: handhistory.Action{Kind: handhistory.ActionCall},
			want:   engine.Decision{Kind: engine.ActionCheck},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := tt.action
			a.Street = handhistory.StreetFlop
			a.Actor = strPtr("bob")
			r := NewReplay(flopHand(a))
			got, err := r.Decide("bob", flopSnapshot(tt.currentBet, tt.bobBet))
			if err != nil {
				t.Fatalf("decide: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestReplayHasDecisionForNextActorOnly(t *testing.T) {
	t.Parallel()

	r := NewReplay(flopHand(
		handhistory.Action{Street: handhistory.StreetFlop, Actor: strPtr("bob"), Kind: handhistory.ActionCheck},
		handhistory.Action{Street: handhistory.StreetFlop, Actor: strPtr("alice"), Kind: handhistory.ActionCheck},
	))
	if !r.HasDecisionFor("bob") {
		t.Fatal("bob acts next")
	}
	if r.HasDecisionFor("alice") {
		t.Fatal("alice is not next")
	}
	if _, err := r.Decide("bob", flopSnapshot(0, 0)); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if r.HasDecisionFor("bob") || !r.HasDecisionFor("alice") {
		t.Fatal("alice should be next after bob")
	}
}

func TestReplayOutOfSync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		action handhistory.Action
		uid    string
		snap   engine.Snapshot
	}{
		{
			name:   "wrong player",
			action: handhistory.Action{Street: handhistory.StreetFlop, Actor: strPtr("bob"), Kind: handhistory.ActionCheck},
			uid:    "alice",
			snap:   flopSnapshot(0, 0),
		},
		{
			name:   "check facing a bet",
			action: handhistory.Action{Street: handhistory.StreetFlop, Actor: strPtr("bob"), Kind: handhistory.ActionCheck},
			uid:    "bob",
			snap:   flopSnapshot(20, 0),
		},
		{
			name:   "call with nothing owed records chips",
			action: handhistory.Action{Street: handhistory.StreetFlop, Actor: strPtr("bob"), Kind: handhistory.ActionCall, Amount: 20, ToAmount: 20},
			uid:    "bob",
			snap:   flopSnapshot(0, 0),
		},
		{
			name:   "call amount differs from amount owed",
			action: handhistory.Action{Street: handhistory.StreetFlop, Actor: strPtr("bob"), Kind: handhistory.ActionCall, Amount: 15, ToAmount: 40},
			uid:    "bob",
			snap:   flopSnapshot(40, 0),
		},
		{
			name:   "inconsistent totals",
			action: handhistory.Action{Street: handhistory.StreetFlop, Actor: strPtr("bob"), Kind: handhistory.ActionRaise, Amount: 50, ToAmount: 70},
			uid:    "bob",
			snap:   flopSnapshot(40, 0),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewReplay(flopHand(tt.action))
			if _, err := r.Decide(tt.uid, tt.snap); !errors.Is(err, ErrOutOfSync) {
				t.Fatalf("err=%v, want ErrOutOfSync", err)
			}
			if r.Remaining() != 1 {
				t.Fatalf("cursor advanced on error")
			}
		})
	}
}

func TestParseScript(t *testing.T) {
	t.Parallel()

	s, err := ParseScript("alice raise 30; bob call ;alice check")
	if err != nil {
		t.Fatal(err)
	}
	want := []Step{
		{PlayerUID: "alice", Decision: engine.Decision{Kind: engine.ActionRaise, ToAmount: 30}},
		{PlayerUID: "bob", Decision: engine.Decision{Kind: engine.ActionCall}},
		{PlayerUID: "alice", Decision: engine.Decision{Kind: engine.ActionCheck}},
	}
	if !reflect.DeepEqual(s.steps, want) {
		t.Fatalf("steps=%+v want %+v", s.steps, want)
	}
	if _, err := s.Decide("bob", engine.Snapshot{}); err == nil {
		t.Fatal("expected error for out-of-turn script step")
	}
	for _, bad := range []string{"alice", "alice shove", "alice raise lots", "alice raise 1 2"} {
		if _, err := ParseScript(bad); err == nil {
			t.Fatalf("ParseScript(%q) accepted", bad)
		}
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	facing := engine.LegalActions{
		Actions:    []engine.ActionKind{engine.ActionFold, engine.ActionCall, engine.ActionRaise},
		CallAmount: 10, MinRaiseTo: 20, MaxRaiseTo: 300,
	}
	tests := []struct {
		in      string
		want    engine.Decision
		wantErr bool
	}{
		{in: "f", want: engine.Decision{Kind: engine.ActionFold}},
		{in: "CALL", want: engine.Decision{Kind: engine.ActionCall}},
		{in: "x", want: engine.Decision{Kind: engine.ActionCheck}},
		{in: "raise 45", want: engine.Decision{Kind: engine.ActionRaise, ToAmount: 45}},
		{in: "allin", want: engine.Decision{Kind: engine.ActionRaise, ToAmount: 300}},
		{in: "raise", wantErr: true},
		{in: "b -3", wantErr: true},
		{in: "", wantErr: true},
		{in: "dance", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCommand(tt.in, facing)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseCommand(%q) accepted", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseCommand(%q)=%+v,%v want %+v", tt.in, got, err, tt.want)
		}
	}
}

func TestPromptRetriesUntilValid(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := NewPrompt(strings.NewReader("bogus\nbet 40\n"), &out, "alice")
	if !p.HasDecisionFor("alice") || p.HasDecisionFor("bob") {
		t.Fatal("prompt should answer for alice only")
	}
	snap := flopSnapshot(0, 0)
	snap.Legal = engine.LegalActions{
		Actions:    []engine.ActionKind{engine.ActionFold, engine.ActionCheck, engine.ActionBet},
		MinRaiseTo: 10, MaxRaiseTo: 500,
	}
	d, err := p.Decide("alice", snap)
	if err != nil {
		t.Fatal(err)
	}
	if d != (engine.Decision{Kind: engine.ActionBet, ToAmount: 40}) {
		t.Fatalf("decision=%+v", d)
	}
	if !strings.Contains(out.String(), "unknown command") {
		t.Fatalf("output missing retry hint:\n%s", out.String())
	}
	if _, err := p.Decide("alice", snap); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err=%v, want io.ErrUnexpectedEOF", err)
	}
}

func TestCheckCall(t *testing.T) {
	t.Parallel()

	check := engine.Snapshot{Legal: engine.LegalActions{Actions: []engine.ActionKind{engine.ActionFold, engine.ActionCheck, engine.ActionBet}}}
	call := engine.Snapshot{Legal: engine.LegalActions{Actions: []engine.ActionKind{engine.ActionFold, engine.ActionCall}}}
	if d, _ := (CheckCall{}).Decide("a", check); d.Kind != engine.ActionCheck {
		t.Fatalf("got %s, want check", d.Kind)
	}
	if d, _ := (CheckCall{}).Decide("a", call); d.Kind != engine.ActionCall {
		t.Fatalf("got %s, want call", d.Kind)
	}
}

func TestRandomIsSeededAndLegal(t *testing.T) {
	t.Parallel()

	snap := engine.Snapshot{Legal: engine.LegalActions{
		Actions:    []engine.ActionKind{engine.ActionFold, engine.ActionCall, engine.ActionRaise},
		CallAmount: 10, MinRaiseTo: 20, MaxRaiseTo: 200,
	}}
	a, b := NewRandom(9), NewRandom(9)
	for i := 0; i < 200; i++ {
		da, _ := a.Decide("p", snap)
		db, _ := b.Decide("p", snap)
		if da != db {
			t.Fatalf("step %d: %+v vs %+v", i, da, db)
		}
		if !snap.Legal.Allows(da.Kind) {
			t.Fatalf("illegal %s", da.Kind)
		}
		if da.Kind == engine.ActionRaise && (da.ToAmount < 20 || da.ToAmount > 200) {
			t.Fatalf("raise to %d outside [20, 200]", da.ToAmount)
		}
	}
}

func TestMuxRoutesBySeat(t *testing.T) {
	t.Parallel()

	m := Mux{
		Seats:   map[string]engine.DecisionSource{"hero": NewScripted(Step{PlayerUID: "hero", Decision: engine.Decision{Kind: engine.ActionFold}})},
		Default: CheckCall{},
	}
	snap := engine.Snapshot{Legal: engine.LegalActions{Actions: []engine.ActionKind{engine.ActionFold, engine.ActionCheck}}}
	if d, _ := m.Decide("hero", snap); d.Kind != engine.ActionFold {
		t.Fatalf("hero got %s", d.Kind)
	}
	if m.HasDecisionFor("hero") {
		t.Fatal("hero script should be exhausted")
	}
	if d, _ := m.Decide("villain", snap); d.Kind != engine.ActionCheck {
		t.Fatalf("villain got %s", d.Kind)
	}
}
