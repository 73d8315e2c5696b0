package timeseries

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries_JSONNaNAsNull(t *testing.T) {
	s := series(1.5, math.NaN())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value":null`)
	assert.Contains(t, string(data), `"value":1.5`)

	var back Series
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "test", back.Name)
	assert.Equal(t, 1.5, back.Values[0])
	assert.True(t, math.IsNaN(back.Values[1]))
	assert.True(t, s.Timestamps[1].Equal(back.Timestamps[1]))
}

func TestStats_JSON(t *testing.T) {
	data, err := json.Marshal((&Series{}).Summary())
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":0,"min":null,"max":null,"mean":null}`, string(data))

	data, err = json.Marshal(series(1, 3).Summary())
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":2,"min":1,"max":3,"mean":2}`, string(data))
}
