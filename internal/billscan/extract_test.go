package billscan

import "testing"

func TestExtract(t *testing.T) {
	raw := "Apple 45.00\nBread - 30.5\ngarbled###line\nMilk 20"
	got := Extract(raw)

	want := []struct {
		name  string
		cents int64
	}{
		{"Apple", 4500},
		{"Bread", 3050},
		{"Milk", 2000},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d items, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Price.Cents != w.cents {
			t.Fatalf("item %d = (%q, %d), want (%q, %d)", i, got[i].Name, got[i].Price.Cents, w.name, w.cents)
		}
	}
}

func TestExtractEmpty(t *testing.T) {
	if got := Extract(""); len(got) != 0 {
		t.Fatalf("empty input: got %+v, want empty", got)
	}
}

func TestExtractNoMatches(t *testing.T) {
	// A whole garbled page is a valid, silent outcome.
	raw := "####\n12345678\n...\n\n"
	if got := Extract(raw); len(got) != 0 {
		t.Fatalf("garbled input: got %+v, want empty", got)
	}
}

func TestExtractTrailingNumberIsPrice(t *testing.T) {
	// Quantity before price: the last number-like token wins.
	got := Extract("Eggs 12 60.00")
	if len(got) != 1 {
		t.Fatalf("got %d items, want 1", len(got))
	}
	if got[0].Name != "Eggs" || got[0].Price.Cents != 6000 {
		t.Fatalf("got (%q, %d), want (Eggs, 6000)", got[0].Name, got[0].Price.Cents)
	}
}

func TestExtractMultiWordName(t *testing.T) {
	got := Extract("Brown Bread Loaf 52.50")
	if len(got) != 1 || got[0].Name != "Brown Bread Loaf" {
		t.Fatalf("got %+v, want one item named 'Brown Bread Loaf'", got)
	}
}

func TestExtractLineOrderPreserved(t *testing.T) {
	got := Extract("Zed 1\nAlpha 2\nMid 3")
	if len(got) != 3 {
		t.Fatalf("got %d items, want 3", len(got))
	}
	names := []string{"Zed", "Alpha", "Mid"}
	for i, n := range names {
		if got[i].Name != n {
			t.Fatalf("item %d = %q, want %q (scan order)", i, got[i].Name, n)
		}
	}
}

func TestExtractPriceWithoutName(t *testing.T) {
	// A bare total line has no letter run before the number.
	if got := Extract("45.00"); len(got) != 0 {
		t.Fatalf("bare price produced an item: %+v", got)
	}
}

func TestExtractThreeFractionDigits(t *testing.T) {
	// Three fraction digits is not a price token; the line is dropped.
	if got := Extract("Juice 10.505"); len(got) != 0 {
		t.Fatalf("over-precise price accepted: %+v", got)
	}
}
