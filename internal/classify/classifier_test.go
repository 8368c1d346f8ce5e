package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

type fakeRemote struct {
	labels []string
	err    error
	calls  int
}

func (f *fakeRemote) ClassifyBatch(_ context.Context, reqs []RemoteRequest) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.labels != nil {
		return f.labels, nil
	}
	out := make([]string, len(reqs))
	for i := range out {
		out[i] = "Miscellaneous"
	}
	return out, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClassify_KeywordLayer(t *testing.T) {
	remote := &fakeRemote{}
	c := New(remote)

	tests := []struct {
		name         string
		description  string
		counterparty string
		amount       string
		want         Category
		wantTier     Tier
	}{
		{
			name:        "groceries keyword",
			description: "TESCO SUPERMARKET LONDON",
			amount:      "-45.80",
			want:        Groceries,
			wantTier:    TierKeyword,
		},
		{
			name:         "restaurant via counterparty",
			counterparty: "Starbucks Coffee",
			amount:       "-4.50",
			want:         Restaurants,
			wantTier:     TierKeyword,
		},
		{
			name:        "market matches groceries before shopping",
			description: "BOROUGH MARKET STALL",
			amount:      "-12.00",
			want:        Groceries,
			wantTier:    TierKeyword,
		},
		{
			name:        "uber eats is dining not transport",
			description: "UBER EATS ORDER",
			amount:      "-18.30",
			want:        Restaurants,
			wantTier:    TierKeyword,
		},
		{
			name:        "plain uber is transport",
			description: "UBER TRIP HELSINKI",
			amount:      "-9.40",
			want:        Transport,
			wantTier:    TierKeyword,
		},
		{
			name:        "atm withdrawal",
			description: "ATM WITHDRAWAL 0184",
			amount:      "-100.00",
			want:        BankTransfer,
			wantTier:    TierKeyword,
		},
		{
			name:        "salary keyword beats income default",
			description: "ACME GMBH SALARY MARCH",
			amount:      "2500.00",
			want:        Income,
			wantTier:    TierKeyword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(context.Background(), Input{
				Description:  tt.description,
				Counterparty: tt.counterparty,
				Amount:       dec(tt.amount),
			})
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Category != tt.want || got.Tier != tt.wantTier {
				t.Errorf("Classify() = (%s, %s), want (%s, %s)", got.Category, got.Tier, tt.want, tt.wantTier)
			}
		})
	}

	if remote.calls != 0 {
		t.Errorf("remote classifier called %d times; keyword matches must never reach it", remote.calls)
	}
}

func TestClassify_IncomeDefault(t *testing.T) {
	c := New(&fakeRemote{})

	got, err := c.Classify(context.Background(), Input{
		Description: "XJ-22 REF 9911",
		Amount:      dec("2500.00"),
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Category != Income || got.Tier != TierDefault {
		t.Errorf("Classify() = (%s, %s), want (Income, default)", got.Category, got.Tier)
	}
}

func TestClassify_HintLayer(t *testing.T) {
	remote := &fakeRemote{}
	c := New(remote)

	tests := []struct {
		name string
		in   Input
		want Category
		tier Tier
	}{
		{
			name: "high confidence detailed hint wins over keywords",
			in: Input{
				Description: "TESCO SUPERMARKET",
				Amount:      dec("-10.00"),
				Hint:        &Hint{Primary: "FOOD_AND_DRINK", Detailed: "FOOD_AND_DRINK_RESTAURANT", Confidence: ConfidenceVeryHigh},
			},
			want: Restaurants,
			tier: TierHint,
		},
		{
			name: "primary hint used when detailed unmapped",
			in: Input{
				Description: "SOMETHING",
				Amount:      dec("-10.00"),
				Hint:        &Hint{Primary: "TRAVEL", Detailed: "TRAVEL_OTHER_TRAVEL", Confidence: ConfidenceHigh},
			},
			want: Travel,
			tier: TierHint,
		},
		{
			name: "low confidence hint falls through to keywords",
			in: Input{
				Description: "TESCO SUPERMARKET",
				Amount:      dec("-10.00"),
				Hint:        &Hint{Primary: "TRAVEL", Confidence: ConfidenceLow},
			},
			want: Groceries,
			tier: TierKeyword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Category != tt.want || got.Tier != tt.tier {
				t.Errorf("Classify() = (%s, %s), want (%s, %s)", got.Category, got.Tier, tt.want, tt.tier)
			}
		})
	}
}

func TestClassify_RemoteFallback(t *testing.T) {
	remote := &fakeRemote{labels: []string{"grocery store purchases"}}
	c := New(remote)

	got, err := c.Classify(context.Background(), Input{
		Description: "ZZKX 99817 POS",
		Amount:      dec("-33.10"),
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Category != Groceries || got.Tier != TierRemote {
		t.Errorf("Classify() = (%s, %s), want (Groceries, remote)", got.Category, got.Tier)
	}
	if remote.calls != 1 {
		t.Errorf("remote calls = %d, want 1", remote.calls)
	}
}

func TestClassify_RemoteFailureSurfacesError(t *testing.T) {
	remote := &fakeRemote{err: errors.New("deadline exceeded")}
	c := New(remote)

	got, err := c.Classify(context.Background(), Input{
		Description: "ZZKX 99817 POS",
		Amount:      dec("-33.10"),
	})
	if err == nil {
		t.Fatal("expected error from failed remote tier")
	}
	if got.Category != Uncategorized {
		t.Errorf("degraded category = %s, want Uncategorized", got.Category)
	}
}

func TestClassify_NoRemoteConfigured(t *testing.T) {
	c := New(nil)

	got, err := c.Classify(context.Background(), Input{
		Description: "ZZKX 99817 POS",
		Amount:      dec("-33.10"),
	})
	if err == nil {
		t.Fatal("expected error when nothing matches and no remote is configured")
	}
	if got.Category != Uncategorized {
		t.Errorf("category = %s, want Uncategorized", got.Category)
	}
}

func TestMatchLabel(t *testing.T) {
	tests := []struct {
		input string
		want  Category
	}{
		{"Groceries", Groceries},
		{"groceries", Groceries},
		{"grocery store", Groceries},
		{"Restaurant", Restaurants},
		{"fast food", Restaurants},
		{"public transit", Transport},
		{"utilities and rent", Utilities},
		{"Health & Medical", Health},
		{"misc.", Miscellaneous},
		{"", Uncategorized},
		{"quantum flux", Uncategorized},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := MatchLabel(tt.input); got != tt.want {
				t.Errorf("MatchLabel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `["Groceries"]`, `["Groceries"]`},
		{"fenced", "```json\n[\"Groceries\"]\n```", `["Groceries"]`},
		{"chatty", "Sure! Here you go: [\"Groceries\"] hope that helps", `["Groceries"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.input); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
