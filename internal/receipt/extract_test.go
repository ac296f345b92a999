package receipt

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n", " \t \n  "} {
		if _, err := Extract(in); err != ErrNoTextExtracted {
			t.Errorf("Extract(%q): expected ErrNoTextExtracted, got %v", in, err)
		}
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	text := "Joe's Cafe\nCoffee 1 260\nTea 2 120\nTotal 380\nDate: 25/12/2023"
	first, err := Extract(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Extract(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated extraction differs: %+v vs %+v", first, second)
	}
}

func TestAmountFromTotalLine(t *testing.T) {
	c, err := Extract("Total: 149.50\nThank you")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Amount != "149.50" {
		t.Errorf("amount = %q, want 149.50", c.Amount)
	}
}

func TestAmountLeadingDigitArtifact(t *testing.T) {
	// OCR read a currency glyph as a leading "1"; the corrected total stays
	// below the plausibility ceiling.
	c, err := Extract("Total 1149.50")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Amount != "149.50" {
		t.Errorf("amount = %q, want 149.50", c.Amount)
	}
}

func TestAmountCurrencyFallback(t *testing.T) {
	c, err := Extract("Corner Store\nPaid 320.00 Rs\nCome again")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Amount != "320.00" {
		t.Errorf("amount = %q, want 320.00", c.Amount)
	}
}

func TestAmountUndetected(t *testing.T) {
	c, err := Extract("Some Shop\nNo numbers here")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Amount != "0.00" {
		t.Errorf("amount = %q, want 0.00", c.Amount)
	}
}

func TestMerchantSkipsBoilerplate(t *testing.T) {
	c, err := Extract("Receipt\nJoe's Cafe\nTotal: 10.00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Merchant != "Joe's Cafe" {
		t.Errorf("merchant = %q, want Joe's Cafe", c.Merchant)
	}
}

func TestMerchantSkipsPriceRows(t *testing.T) {
	c, err := Extract("Samosa 2 40\nSharma Snacks\nTotal 40")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Merchant != "Sharma Snacks" {
		t.Errorf("merchant = %q, want Sharma Snacks", c.Merchant)
	}
}

func TestMerchantFallsBackToFirstLine(t *testing.T) {
	c, err := Extract("Tax Invoice\nTotal 99")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Merchant != "Tax Invoice" {
		t.Errorf("merchant = %q, want Tax Invoice", c.Merchant)
	}
}

func TestMerchantStripsTrailingDigits(t *testing.T) {
	c, err := Extract("Green Valley Store 402 118\nTotal 300")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Merchant != "Green Valley Store" {
		t.Errorf("merchant = %q, want Green Valley Store", c.Merchant)
	}
}

func TestItemLineQuantityStripping(t *testing.T) {
	c, err := Extract("Coffee 1 260\nTotal 260")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Items) != 1 {
		t.Fatalf("items = %+v, want exactly one", c.Items)
	}
	if c.Items[0].Name != "Coffee" {
		t.Errorf("item name = %q, want Coffee", c.Items[0].Name)
	}
	if c.Items[0].Price != "260.00" {
		t.Errorf("item price = %q, want 260.00", c.Items[0].Price)
	}
}

func TestItemLinesExcludeSummaryRows(t *testing.T) {
	text := strings.Join([]string{
		"Hilltop Diner",
		"Paneer Tikka 180",
		"Naan 2 60",
		"Subtotal 240",
		"CGST 6.00",
		"SGST 6.00",
		"Grand Total 252.00",
	}, "\n")
	c, err := Extract(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Item{
		{Name: "Paneer Tikka", Price: "180.00"},
		{Name: "Naan", Price: "60.00"},
	}
	if !reflect.DeepEqual(c.Items, want) {
		t.Errorf("items = %+v, want %+v", c.Items, want)
	}
	// First keyword line wins, so the subtotal is the detected amount here.
	if c.Amount != "240.00" {
		t.Errorf("amount = %q, want 240.00", c.Amount)
	}
}

func TestItemPriceArtifactCorrection(t *testing.T) {
	// "₹180" misread as "2180": the item price is corrected against the
	// receipt total rather than kept implausibly large.
	c, err := Extract("Dosa 2180\nTotal 200")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Items) != 1 || c.Items[0].Price != "180.00" {
		t.Errorf("items = %+v, want one item priced 180.00", c.Items)
	}
}

func TestSyntheticItemWhenNoneDetected(t *testing.T) {
	c, err := Extract("Receipt\nJoe's Cafe\nTotal: 10.00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Items) != 1 {
		t.Fatalf("items = %+v, want exactly one synthetic item", c.Items)
	}
	if c.Items[0].Name != "Joe's Cafe" || c.Items[0].Price != "10.00" {
		t.Errorf("synthetic item = %+v", c.Items[0])
	}
}

func TestDateFormats(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Date: 25/12/2023", "2023-12-25"},
		{"Date: 25/12/23", "2023-12-25"},
		{"2023-12-25 14:02", "2023-12-25"},
		{"Date 25-12-2023", "2023-12-25"},
		{"25 Dec 2023", "2023-12-25"},
		{"Dec 25, 2023", "2023-12-25"},
		{"no date here", ""},
	}
	for _, tc := range cases {
		c, err := Extract("Shop\n" + tc.text + "\nTotal 10")
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.text, err)
		}
		if c.Date != tc.want {
			t.Errorf("%q: date = %q, want %q", tc.text, c.Date, tc.want)
		}
	}
}

func TestDateRejectsImpossibleCalendarDates(t *testing.T) {
	c, err := Extract("Shop\n31/02/2023\nTotal 10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Date != "" {
		t.Errorf("date = %q, want undetected for 31/02", c.Date)
	}
}

func TestExtractAlwaysProducesValidCandidate(t *testing.T) {
	inputs := []string{
		"x",
		"???\n###\n!!!",
		"1234567890",
		"Total",
		"a\nb\nc\nd\ne\nf\ng\nh",
	}
	for _, in := range inputs {
		c, err := Extract(in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if len(c.Items) == 0 {
			t.Errorf("%q: empty items", in)
		}
		if !strings.Contains(c.Amount, ".") || len(c.Amount)-strings.Index(c.Amount, ".") != 3 {
			t.Errorf("%q: amount %q is not a 2-decimal string", in, c.Amount)
		}
	}
}
