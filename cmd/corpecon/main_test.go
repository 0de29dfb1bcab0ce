package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Egg3901/corpgame-sub003/internal/engine"
	"github.com/Egg3901/corpgame-sub003/internal/sectors"
)

const snapshotYAML = `
sectors:
  - name: Mining
    can_extract: true
    primary_resource: Oil
  - name: Defense
    produced_product: Defense Equipment
  - name: Retail
    base_capacity: 10
    product_demands:
      - product: Consumer Goods
        rate: 1
units:
  - sector: Mining
    unit: extraction
    base_cost: 50
    output_rate: 2
  - sector: Defense
    unit: retail
    base_revenue: 100
    base_cost: 40
  - sector: Retail
    unit: retail
    base_revenue: 500
    base_cost: 200
  - sector: Retail
    unit: service
    base_revenue: 80
    base_cost: 30
    enabled: false
flows:
  - sector: Mining
    unit: extraction
    outputs:
      - {commodity: Oil, kind: resource, rate: 2}
  - sector: Defense
    unit: retail
    inputs:
      - {commodity: Defense Equipment, kind: product, rate: 0.2}
products:
  - {name: Defense Equipment, reference_value: 15000, min_price: 1500}
  - {name: Consumer Goods, reference_value: 900, min_price: 90}
resources:
  - {name: Oil, base_price: 50}
states:
  - {name: Texas, capacity_multiplier: 1.5, growth_factor: 2}
`

type workspace struct {
	dir      string
	snapshot string
	prices   string
	db       string
	config   string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		dir:      dir,
		snapshot: filepath.Join(dir, "snapshot.yaml"),
		prices:   filepath.Join(dir, "prices.yaml"),
		db:       filepath.Join(dir, "corpecon.db"),
		config:   filepath.Join(dir, "corpecon.yaml"),
	}
	require.NoError(t, os.WriteFile(ws.snapshot, []byte(snapshotYAML), 0o644))
	require.NoError(t, os.WriteFile(ws.prices, []byte("Oil:\n  current_price: 80\n"), 0o644))
	require.NoError(t, os.WriteFile(ws.config, []byte("logging:\n  level: error\n"), 0o644))
	return ws
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, ws workspace, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", ws.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}

func TestEconomics_FromSnapshotAndPriceFile(t *testing.T) {
	ws := newWorkspace(t)

	out, err := run(t, ws, "--snapshot", ws.snapshot, "--prices", ws.prices, "economics", "Mining", "extraction")
	require.NoError(t, err)
	res := decode[economicsOutput](t, out)
	assert.Equal(t, 210.0, res.RevenuePerHour)
	assert.Equal(t, 50.0, res.CostPerHour)
	assert.Equal(t, 160.0, res.ProfitPerHour)
	assert.Len(t, res.Fingerprint, 64)
	assert.Nil(t, res.Projection)
}

func TestEconomics_DefenseDiscountAndProjection(t *testing.T) {
	ws := newWorkspace(t)

	out, err := run(t, ws, "-s", ws.snapshot, "economics", "Defense", "RETAIL", "--project")
	require.NoError(t, err)
	res := decode[economicsOutput](t, out)
	assert.InDelta(t, 2400, res.CostPerHour, 1e-6)
	assert.InDelta(t, 2400, res.RevenuePerHour, 1e-6)
	require.NotNil(t, res.Projection)
	assert.Equal(t, 96, res.ProjectionHours)
	assert.InDelta(t, 2400*96, res.Projection.CostPerHour, 1e-6)
}

func TestEconomics_Errors(t *testing.T) {
	ws := newWorkspace(t)

	_, err := run(t, ws, "-s", ws.snapshot, "economics", "Atlantis", "retail")
	assert.ErrorIs(t, err, engine.ErrUnknownSector)

	_, err = run(t, ws, "-s", ws.snapshot, "economics", "Retail", "service")
	assert.ErrorIs(t, err, engine.ErrUnitDisabled)

	_, err = run(t, ws, "-s", ws.snapshot, "economics", "Retail", "warehouse")
	assert.ErrorIs(t, err, sectors.ErrInvalidConfiguration)

	_, err = run(t, ws, "-s", ws.snapshot, "economics", "Mining")
	assert.Error(t, err)
}

func TestFlow(t *testing.T) {
	ws := newWorkspace(t)

	out, err := run(t, ws, "-s", ws.snapshot, "flow", "Retail", "retail", "-n", "3")
	require.NoError(t, err)
	got := decode[struct {
		Flow   engine.ResolvedFlow `json:"flow"`
		Totals engine.ResolvedFlow `json:"totals"`
	}](t, out)
	require.Len(t, got.Flow.Inputs.Products, 1)
	assert.Equal(t, "Consumer Goods", got.Flow.Inputs.Products[0].Commodity)
	assert.Equal(t, 1.0, got.Flow.Inputs.Products[0].Rate)
	assert.Equal(t, 3.0, got.Totals.Inputs.Products[0].Rate)
}

func TestCapacity(t *testing.T) {
	ws := newWorkspace(t)

	out, err := run(t, ws, "-s", ws.snapshot, "capacity", "Retail", "--state", "Texas", "--count", "retail=12", "--count", "service=3")
	require.NoError(t, err)
	report := decode[engine.CapacityReport](t, out)
	assert.Equal(t, 15, report.Capacity)
	assert.Equal(t, 12, report.Units, "disabled service units do not count")
	assert.Equal(t, engine.CapacityNear, report.Status)

	_, err = run(t, ws, "-s", ws.snapshot, "capacity", "Retail", "--count", "warehouse=1")
	assert.ErrorIs(t, err, sectors.ErrInvalidConfiguration)
}

func TestPortfolio(t *testing.T) {
	ws := newWorkspace(t)

	out, err := run(t, ws, "-s", ws.snapshot, "-p", ws.prices, "portfolio", "Mining", "Retail", "--count", "extraction=2,retail=1")
	require.NoError(t, err)
	got := decode[struct {
		Results []engine.EconomicsResult `json:"results"`
		Summary engine.Summary           `json:"summary"`
	}](t, out)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "Mining", got.Results[0].Sector)
	assert.Equal(t, "Retail", got.Results[1].Sector)
	assert.Equal(t, 3, got.Summary.Units)
	assert.InDelta(t, 420+900, got.Summary.RevenuePerHour, 1e-6)
}

func TestPrice(t *testing.T) {
	ws := newWorkspace(t)

	out, err := run(t, ws, "-s", ws.snapshot, "-p", ws.prices, "price", "Oil")
	require.NoError(t, err)
	p := decode[engine.CommodityPrice](t, out)
	assert.Equal(t, 80.0, p.CurrentPrice)
	assert.Equal(t, engine.SourceLive, p.Source)

	out, err = run(t, ws, "-s", ws.snapshot, "price", "Steel")
	require.NoError(t, err)
	p = decode[engine.CommodityPrice](t, out)
	assert.Equal(t, engine.SourceDefault, p.Source)

	_, err = run(t, ws, "-s", ws.snapshot, "price", "Unobtainium")
	assert.ErrorIs(t, err, engine.ErrUnknownCommodity)
}

func TestValidate(t *testing.T) {
	ws := newWorkspace(t)

	out, err := run(t, ws, "validate", ws.snapshot)
	require.NoError(t, err)
	c := decode[counts](t, out)
	assert.True(t, c.Valid)
	assert.Equal(t, 3, c.Sectors)
	assert.Equal(t, 4, c.Units)

	bad := filepath.Join(ws.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("sectors:\n  - name: A\n  - name: A\nunits:\n  - sector: B\n    unit: retail\n"), 0o644))
	_, err = run(t, ws, "validate", bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, sectors.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), `sector "A": duplicate`)
	assert.Contains(t, err.Error(), `unknown sector "B"`)
}

func TestDatabaseWorkflow(t *testing.T) {
	ws := newWorkspace(t)

	out, err := run(t, ws, "--db", ws.db, "import", ws.snapshot)
	require.NoError(t, err)
	assert.Equal(t, 3, decode[counts](t, out).Sectors)

	// No quotes yet: Oil is priced from configuration.
	out, err = run(t, ws, "--db", ws.db, "economics", "Mining", "extraction")
	require.NoError(t, err)
	assert.Equal(t, 50.0+50*2, decode[economicsOutput](t, out).RevenuePerHour)

	_, err = run(t, ws, "--db", ws.db, "record", "Oil", "10", "--at", "2026-03-01T00:00:00Z")
	require.NoError(t, err)
	_, err = run(t, ws, "--db", ws.db, "record", "Oil", "20", "--at", "2026-03-01T01:00:00Z")
	require.NoError(t, err)

	// The latest quote feeds the price book.
	out, err = run(t, ws, "--db", ws.db, "economics", "Mining", "extraction")
	require.NoError(t, err)
	assert.Equal(t, 50.0+20*2, decode[economicsOutput](t, out).RevenuePerHour)

	out, err = run(t, ws, "--db", ws.db, "trend", "Oil")
	require.NoError(t, err)
	trend := decode[struct {
		Points        int     `json:"points"`
		ChangePercent float64 `json:"change_percent"`
		Window        int     `json:"window"`
	}](t, out)
	assert.Equal(t, 2, trend.Points)
	assert.Equal(t, 100.0, trend.ChangePercent)
	assert.Equal(t, 4, trend.Window)

	_, err = run(t, ws, "--db", ws.db, "record", "Oil", "-5")
	assert.Error(t, err)
}

func TestTrend_RequiresDatabase(t *testing.T) {
	ws := newWorkspace(t)
	_, err := run(t, ws, "-s", ws.snapshot, "trend", "Oil")
	assert.ErrorIs(t, err, errNeedsDatabase)
}

func TestRecord_PruneBefore(t *testing.T) {
	ws := newWorkspace(t)
	_, err := run(t, ws, "--db", ws.db, "import", ws.snapshot)
	require.NoError(t, err)

	for _, obs := range []struct{ price, at string }{
		{"10", "2026-03-01T00:00:00Z"},
		{"20", "2026-03-02T00:00:00Z"},
	} {
		_, err = run(t, ws, "--db", ws.db, "record", "Oil", obs.price, "--at", obs.at)
		require.NoError(t, err)
	}

	out, err := run(t, ws, "--db", ws.db, "record", "Oil", "30", "--at", "2026-03-03T00:00:00Z", "--prune-before", "2026-03-02T00:00:00Z")
	require.NoError(t, err)
	rec := decode[struct {
		Pruned int64 `json:"pruned"`
	}](t, out)
	assert.Equal(t, int64(1), rec.Pruned)

	out, err = run(t, ws, "--db", ws.db, "trend", "Oil")
	require.NoError(t, err)
	trend := decode[struct {
		Points        int     `json:"points"`
		ChangePercent float64 `json:"change_percent"`
	}](t, out)
	assert.Equal(t, 2, trend.Points)
	assert.Equal(t, 50.0, trend.ChangePercent)

	_, err = run(t, ws, "--db", ws.db, "record", "Oil", "30", "--prune-before", "yesterday")
	assert.Error(t, err)
}
