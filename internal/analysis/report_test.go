package analysis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/newthinker/tsdash/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	defaults, err := core.NewDateRange("2018-01-01", "2022-12-31")
	require.NoError(t, err)

	req, err := NewRequest("AAPL", "", "", defaults)
	require.NoError(t, err)
	assert.Equal(t, defaults, req.Range())

	req, err = NewRequest("AAPL", "2020-03-01", "", defaults)
	require.NoError(t, err)
	assert.Equal(t, date(2020, 3, 1), req.Start)
	assert.Equal(t, defaults.End, req.End)

	_, err = NewRequest("AAPL", "03/01/2020", "", defaults)
	assert.True(t, errors.Is(err, core.ErrInvalidRange))
}

func TestReport_JSON(t *testing.T) {
	a, _, _ := newTestAnalyzer(t)

	req := Request{Ticker: "AAPL", Start: date(2022, 1, 1), End: date(2022, 12, 31)}
	report, err := a.Analyze(t.Context(), req)
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "AAPL", decoded["ticker"])
	assert.NotContains(t, decoded, "decomposition")
	assert.Contains(t, decoded["decomposition_error"], "INSUFFICIENT_DATA")

	rolling := decoded["rolling_std"].(map[string]any)["points"].([]any)
	assert.Nil(t, rolling[0].(map[string]any)["value"])
	assert.NotNil(t, rolling[11].(map[string]any)["value"])
}
