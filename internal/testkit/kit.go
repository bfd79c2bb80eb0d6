// Package testkit provides shared fixtures and fakes for package tests
package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"goelicit/domain/design"
	"goelicit/domain/posterior"
	"goelicit/internal"
	"goelicit/internal/config"
	"goelicit/internal/profiles"
)

// SmallSpace is a 12-profile, three-dimension attribute configuration
const SmallSpace = `
attributes:
  - name: wage
    label: Salary
    type: ordered
    coding: linear
    levels:
      - {id: low, label: "40k", value: 40000}
      - {id: mid, label: "55k", value: 55000}
      - {id: high, label: "70k", value: 70000}
  - name: work_setting
    label: Work setting
    type: categorical
    coding: dummy
    base_level_id: onsite
    levels:
      - {id: onsite, label: On-site}
      - {id: remote, label: Remote}
  - name: contract
    label: Contract
    type: categorical
    coding: dummy
    base_level_id: temporary
    levels:
      - {id: temporary, label: Temporary}
      - {id: permanent, label: Permanent}
model:
  parameters:
    - {name: financial, attribute: wage, prior: {distribution: normal, mean: 0.5, sd: 0.7}}
    - {name: work_life_balance, attribute: work_setting, level_id: remote, prior: {distribution: normal, mean: 0.2, sd: 0.7}}
    - {name: job_security, attribute: contract, prior: {distribution: normal, mean: 0.3, sd: 0.7}}
attribute_directions:
  wage: positive
  work_setting: positive
  contract: positive
`

// Generator parses SmallSpace
func Generator(t testing.TB) *profiles.Generator {
	t.Helper()
	g, err := profiles.Parse([]byte(SmallSpace), internal.NewNopLogger())
	require.NoError(t, err)
	return g
}

// EngineConfig returns defaults sized for SmallSpace
func EngineConfig() config.EngineConfig {
	cfg := config.Default().Engine
	cfg.NumStatic = 4
	cfg.NumBeginning = 2
	cfg.Workers = 2
	return cfg
}

// BeliefUpdaterMock is a testify mock of ports.BeliefUpdaterPort
type BeliefUpdaterMock struct {
	mock.Mock
}

func (m *BeliefUpdaterMock) Update(ctx context.Context, prior posterior.Distribution, vignette design.Vignette, choice design.Choice) (posterior.Distribution, error) {
	args := m.Called(ctx, prior, vignette, choice)
	return args.Get(0).(posterior.Distribution), args.Error(1)
}

// Shrunk returns post with every variance (and covariance) scaled by f
func Shrunk(post posterior.Distribution, f float64) posterior.Distribution {
	out := posterior.Distribution{
		Dimensions: append([]string(nil), post.Dimensions...),
		Mean:       append([]float64(nil), post.Mean...),
		Covariance: make([][]float64, len(post.Covariance)),
	}
	for i, row := range post.Covariance {
		out.Covariance[i] = make([]float64, len(row))
		for j, v := range row {
			out.Covariance[i][j] = v * f
		}
	}
	return out
}
