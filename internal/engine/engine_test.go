package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/Egg3901/corpgame-sub003/internal/config"
	"github.com/Egg3901/corpgame-sub003/internal/sectors"
)

func TestEvaluate_Errors(t *testing.T) {
	e := testEngine(t)
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"unknown sector", Request{Sector: "Atlantis", Unit: sectors.UnitRetail, UnitCount: 1}, ErrUnknownSector},
		{"disabled unit", Request{Sector: "Retail", Unit: sectors.UnitService, UnitCount: 1}, ErrUnitDisabled},
		{"unknown state", Request{Sector: "Retail", Unit: sectors.UnitRetail, State: "Narnia", UnitCount: 1}, ErrUnknownState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Evaluate(tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Evaluate err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEvaluate_PrecomputedFlow(t *testing.T) {
	e := testEngine(t)
	flow := NewFlow([]sectors.FlowEntry{prodFlow("Consumer Goods", 2)}, nil)
	got, err := e.Evaluate(Request{Sector: "Retail", Unit: sectors.UnitRetail, UnitCount: 1, Flow: &flow})
	if err != nil {
		t.Fatal(err)
	}
	if got.CostPerHour != 1800 || got.RevenuePerHour != 1800 {
		t.Errorf("cost/revenue = %v/%v, want 1800/1800", got.CostPerHour, got.RevenuePerHour)
	}
}

func TestEvaluateAll_PreservesOrderAndPerItemErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := testEngine(t)
	reqs := []Request{
		{Sector: "Mining", Unit: sectors.UnitExtraction, UnitCount: 1},
		{Sector: "Atlantis", Unit: sectors.UnitRetail, UnitCount: 1},
		{Sector: "Services", Unit: sectors.UnitService, UnitCount: 2},
		{Sector: "Retail", Unit: sectors.UnitRetail, State: "Texas", UnitCount: 1},
	}
	out, err := e.EvaluateAll(context.Background(), reqs)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(reqs) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(reqs))
	}
	for i, o := range out {
		if diff := cmp.Diff(reqs[i], o.Request); diff != "" {
			t.Errorf("out[%d].Request mismatch:\n%s", i, diff)
		}
		want, wantErr := e.Evaluate(reqs[i])
		if (o.Err == nil) != (wantErr == nil) {
			t.Errorf("out[%d].Err = %v, want %v", i, o.Err, wantErr)
		}
		if diff := cmp.Diff(want, o.Result); diff != "" {
			t.Errorf("out[%d].Result differs from Evaluate:\n%s", i, diff)
		}
	}
	if !errors.Is(out[1].Err, ErrUnknownSector) {
		t.Errorf("out[1].Err = %v, want ErrUnknownSector", out[1].Err)
	}
	if out[2].Result.RevenuePerHour != 160 {
		t.Errorf("out[2] revenue = %v, want 160", out[2].Result.RevenuePerHour)
	}
}

func TestEvaluateAll_SingleWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := config.Default()
	s.BatchWorkers = 0
	cat := testCatalog(t)
	e := New(cat, NewPriceBook(cat, testFeed()), s)
	reqs := e.SectorRequests("Mining", "", map[sectors.UnitType]int{sectors.UnitExtraction: 3})
	out, err := e.EvaluateAll(context.Background(), reqs)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Result.RevenuePerHour != 630 {
		t.Errorf("out = %+v, want one Mining result with revenue 630", out)
	}
}

func TestEvaluateAll_CancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := testEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.EvaluateAll(ctx, []Request{{Sector: "Mining", Unit: sectors.UnitExtraction, UnitCount: 1}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestEvaluateAll_Empty(t *testing.T) {
	out, err := testEngine(t).EvaluateAll(context.Background(), nil)
	if err != nil || len(out) != 0 {
		t.Errorf("EvaluateAll(nil) = %v, %v; want empty, nil", out, err)
	}
}

func TestSectorRequests(t *testing.T) {
	e := testEngine(t)
	got := e.SectorRequests("Retail", "Ohio", map[sectors.UnitType]int{sectors.UnitRetail: 2, sectors.UnitService: 9})
	want := []Request{{Sector: "Retail", Unit: sectors.UnitRetail, State: "Ohio", UnitCount: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SectorRequests mismatch (-want +got):\n%s", diff)
	}
	if got := e.SectorRequests("Closed", "", nil); len(got) != 0 {
		t.Errorf("SectorRequests(Closed) = %v, want none", got)
	}
}

func TestEngine_ConcurrentEvaluate(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := testEngine(t)
	req := Request{Sector: "Light Industry", Unit: sectors.UnitProduction, UnitCount: 2}
	want, err := e.Evaluate(req)
	if err != nil {
		t.Fatal(err)
	}
	reqs := make([]Request, 64)
	for i := range reqs {
		reqs[i] = req
	}
	out, err := e.EvaluateAll(context.Background(), reqs)
	if err != nil {
		t.Fatal(err)
	}
	for i, o := range out {
		if Fingerprint(o.Result) != Fingerprint(want) {
			t.Errorf("out[%d] fingerprint differs from sequential result", i)
		}
	}
}
