package excel

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"goelicit/domain/core"
	"goelicit/domain/design"
	"goelicit/domain/profile"
	"goelicit/internal"
	"goelicit/internal/optimizer"
	"goelicit/internal/profiles"
)

const space = `
attributes:
  - name: wage
    label: Salary
    type: ordered
    coding: linear
    levels:
      - {id: low, label: "30k", value: 30000}
      - {id: high, label: "60k", value: 60000}
  - name: remote
    label: Remote work
    type: categorical
    coding: dummy
    base_level_id: office
    levels:
      - {id: office, label: Office}
      - {id: remote, label: Remote}
model:
  parameters:
    - {name: financial, attribute: wage, prior: {distribution: normal, mean: 0.5, sd: 1}}
    - {name: work_environment, attribute: remote, prior: {distribution: normal, mean: 0, sd: 1}}
`

func plan(t *testing.T) (*profiles.Generator, *design.Battery) {
	t.Helper()
	g, err := profiles.Parse([]byte(space), internal.NewNopLogger())
	require.NoError(t, err)
	pool, err := g.GenerateAllProfiles(0)
	require.NoError(t, err)

	o := optimizer.NewOptimizer(g, optimizer.WithLogger(internal.NewNopLogger()))
	b, e, err := o.SelectStaticVignettes(context.Background(), pool, 4, 2, g.PriorMean(), 0.5)
	require.NoError(t, err)
	battery := &design.Battery{ID: core.NewBatteryID(), Fingerprint: g.Fingerprint(), Beginning: b, End: e}
	battery.Stats, err = o.OptimizationStatistics(battery.All(), g.PriorMean(), 0.5)
	require.NoError(t, err)
	return g, battery
}

func TestBatteryWriter_RoundTrip(t *testing.T) {
	g, battery := plan(t)
	path := filepath.Join(t.TempDir(), "battery.xlsx")

	require.NoError(t, NewBatteryWriter(g, internal.NewNopLogger()).Save(battery, path))

	rows, err := NewDataReader(path, internal.NewNopLogger()).ReadBattery()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, design.PhaseBeginning, rows[0].Phase)
	assert.Equal(t, design.PhaseBeginning, rows[1].Phase)
	assert.Equal(t, design.PhaseEnd, rows[2].Phase)
	assert.Equal(t, 3, rows[2].Round)

	vignettes, err := ResolveVignettes(rows, g)
	require.NoError(t, err)
	want := battery.All()
	for i := range want {
		assert.Equal(t, want[i].Key(), vignettes[i].Key())
	}
}

func TestBatteryWriter_Sheets(t *testing.T) {
	g, battery := plan(t)

	var buf bytes.Buffer
	require.NoError(t, NewBatteryWriter(g, internal.NewNopLogger()).WriteTo(battery, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(BatterySheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, append(append([]string(nil), batteryHeaders...), "d:financial", "d:work_environment"), rows[0])
	assert.Equal(t, g.ProfileToString(battery.Beginning[0].A), rows[1][2])

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"battery_id", battery.ID.String()}, summary[0])
	assert.Equal(t, "d_efficiency", summary[5][0])
}

func TestBatteryWriter_RejectsForeignProfile(t *testing.T) {
	g, battery := plan(t)
	battery.End[0].A = profile.NewProfile("other", []int{0, 1})

	var buf bytes.Buffer
	err := NewBatteryWriter(g, internal.NewNopLogger()).WriteTo(battery, &buf)
	assert.ErrorIs(t, err, core.ErrForeignProfile)
	assert.Zero(t, buf.Len())
}

func TestDataReader_CSV(t *testing.T) {
	g, _ := plan(t)
	path := filepath.Join(t.TempDir(), "battery.csv")
	csv := "round,phase,key_a,key_b\n1,beginning,0-0,1-1\n2,end,0-1,1-0\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	rows, err := NewDataReader(path, nil).ReadBattery()
	require.NoError(t, err)
	assert.Equal(t, []BatteryRow{
		{Round: 1, Phase: design.PhaseBeginning, KeyA: "0-0", KeyB: "1-1"},
		{Round: 2, Phase: design.PhaseEnd, KeyA: "0-1", KeyB: "1-0"},
	}, rows)

	vignettes, err := ResolveVignettes(rows, g)
	require.NoError(t, err)
	assert.Equal(t, "0-0|1-1", vignettes[0].Key())
}

func TestDataReader_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewDataReader(filepath.Join(dir, "missing.xlsx"), nil).ReadBattery()
	assert.True(t, core.IsNotFoundError(err))

	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	_, err = NewDataReader(write("header.csv", "round,phase,key_a,key_b\n"), nil).ReadBattery()
	assert.Error(t, err)

	_, err = NewDataReader(write("cols.csv", "round,phase\n1,end\n"), nil).ReadBattery()
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = NewDataReader(write("phase.csv", "round,phase,key_a,key_b\n1,middle,0-0,1-1\n"), nil).ReadBattery()
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = NewDataReader(write("round.csv", "round,phase,key_a,key_b\nx,end,0-0,1-1\n"), nil).ReadBattery()
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	g, _ := plan(t)
	_, err = ResolveVignettes([]BatteryRow{{Round: 1, KeyA: "9-9", KeyB: "0-0"}}, g)
	assert.Error(t, err)
}
