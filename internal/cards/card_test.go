package cards

import (
	"encoding/json"
	"testing"
)

func TestParseRoundTripsEveryCard(t *testing.T) {
	t.Parallel()

	d := NewDeck()
	if d.Len() != 52 {
		t.Fatalf("deck size = %d, want 52", d.Len())
	}
	seen := make(map[string]bool)
	for _, c := range d.Remaining() {
		s := c.String()
		if len(s) != 2 {
			t.Fatalf("card %v renders as %q", c, s)
		}
		got, err := Parse(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if got != c {
			t.Fatalf("parse %q = %v, want %v", s, got, c)
		}
		if seen[s] {
			t.Fatalf("duplicate card %q", s)
		}
		seen[s] = true
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "A", "10h", "1h", "Ax", "Zs", "Ahh"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
		}
	}
}

func TestCardJSON(t *testing.T) {
	t.Parallel()

	in := []Card{MustParse("Ah"), MustParse("Td"), MustParse("2c")}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `["Ah","Td","2c"]` {
		t.Fatalf("json = %s", b)
	}
	var out []Card
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 3 || out[1] != in[1] {
		t.Fatalf("round trip = %v, want %v", out, in)
	}
	if err := json.Unmarshal([]byte(`["Zz"]`), &out); err == nil {
		t.Fatal("expected error for out-of-range card")
	}
}

func TestShuffledDeckIsDeterministic(t *testing.T) {
	t.Parallel()

	a := NewShuffledDeck(42).Remaining()
	b := NewShuffledDeck(42).Remaining()
	c := NewShuffledDeck(43).Remaining()
	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("seed 42 differs at %d: %v vs %v", i, a[i], b[i])
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Fatal("different seeds produced identical decks")
	}
}

func TestDrawExhaustsDeck(t *testing.T) {
	t.Parallel()

	d := NewStackedDeck(MustParseList("Ah Kd"))
	got, err := d.Draw(2)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if Join(got) != "Ah Kd" {
		t.Fatalf("drawn = %q", Join(got))
	}
	if _, err := d.Draw(1); err == nil {
		t.Fatal("expected error drawing from empty deck")
	}
}
