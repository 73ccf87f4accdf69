package tasks

import (
	"context"
	"slices"
	"testing"

	"github.com/desertthunder/ytcurate/internal/models"
	tu "github.com/desertthunder/ytcurate/internal/testing"
)

func TestReplayLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("successful replay clears the pending list", func(t *testing.T) {
		f := newFixture(t, models.FailureLedger{
			"PLwl":     {Name: "Watch Later", Failure: []string{"v1", "v2"}},
			"PLbanger": {Name: "Banger Radar", Failure: []string{"v3"}},
		})

		rc, _ := newRC()
		result, err := f.curator.ReplayLedger(ctx, rc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Playlists != 2 || result.Replayed != 3 || result.Failed != 0 {
			t.Errorf("unexpected result: %+v", result)
		}
		if got := f.api.InsertedInto("PLwl"); !slices.Equal(got, []string{"v1", "v2"}) {
			t.Errorf("expected v1, v2 replayed into watch later, got %v", got)
		}
		if f.ledger.saves != 1 {
			t.Errorf("expected the ledger to be saved once, got %d", f.ledger.saves)
		}
		if pending := f.ledger.saved.Pending(); pending != 0 {
			t.Errorf("expected nothing pending, got %d", pending)
		}
		for _, e := range f.events.events {
			if e.Kind != models.LedgerReplayed || e.RunID != "test-run" {
				t.Errorf("unexpected event %+v", e)
			}
		}
		if len(f.events.events) != 3 {
			t.Errorf("expected 3 replay events, got %d", len(f.events.events))
		}
	})

	t.Run("ids failing again stay pending", func(t *testing.T) {
		f := newFixture(t, models.FailureLedger{
			"PLwl": {Name: "Watch Later", Failure: []string{"v1", "v2"}},
		})
		f.api.Errors["insert:PLwl:v2"] = tu.QuotaError()

		rc, _ := newRC()
		result, err := f.curator.ReplayLedger(ctx, rc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Replayed != 1 || result.Failed != 1 {
			t.Errorf("unexpected result: %+v", result)
		}

		entry := f.ledger.saved["PLwl"]
		if !slices.Equal(entry.Failure, []string{"v2"}) || entry.Name != "Watch Later" {
			t.Errorf("expected v2 pending under its name, got %+v", entry)
		}
	})

	t.Run("empty ledger does nothing", func(t *testing.T) {
		f := newFixture(t, models.FailureLedger{
			"PLwl": {Name: "Watch Later", Failure: []string{}},
		})

		rc, _ := newRC()
		result, err := f.curator.ReplayLedger(ctx, rc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Playlists != 0 || f.ledger.saves != 0 || len(f.api.Inserted) != 0 {
			t.Errorf("expected no work, got %+v with %d saves", result, f.ledger.saves)
		}
	})
}
