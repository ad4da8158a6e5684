package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RG-FIDES/square-one-coffee/internal/opendata"
)

func TestSelectDatasets(t *testing.T) {
	t.Run("all flag returns the registry", func(t *testing.T) {
		specs, err := selectDatasets(nil, true)
		require.NoError(t, err)
		assert.Len(t, specs, len(opendata.Registry()))
	})

	t.Run("named subset", func(t *testing.T) {
		specs, err := selectDatasets([]string{"transit_stops", "population"}, false)
		require.NoError(t, err)
		require.Len(t, specs, 2)
		assert.Equal(t, "transit_stops", specs[0].Name)
		assert.Equal(t, "population", specs[1].Name)
	})

	t.Run("unknown dataset", func(t *testing.T) {
		_, err := selectDatasets([]string{"parking_tickets"}, false)
		assert.Error(t, err)
	})

	t.Run("nothing selected", func(t *testing.T) {
		_, err := selectDatasets(nil, false)
		assert.Error(t, err)
	})
}

func TestApplyOverrides(t *testing.T) {
	one := []opendata.DatasetSpec{{Name: "population", Endpoint: "https://example.org/p.csv", LimitParam: "$limit", Format: opendata.FormatCSV}}

	t.Run("no overrides passes through", func(t *testing.T) {
		specs, err := applyOverrides(one, "", "")
		require.NoError(t, err)
		assert.Equal(t, one, specs)
	})

	t.Run("endpoint and format replace the registry entry", func(t *testing.T) {
		specs, err := applyOverrides(one, "ftp://mirror.example.org/pop.xlsx", "xlsx")
		require.NoError(t, err)
		require.Len(t, specs, 1)
		assert.Equal(t, "ftp://mirror.example.org/pop.xlsx", specs[0].Endpoint)
		assert.Equal(t, opendata.FormatXLSX, specs[0].Format)
		assert.Empty(t, specs[0].LimitParam, "mirror URLs are taken verbatim")
	})

	t.Run("rejected for multiple datasets", func(t *testing.T) {
		two := append([]opendata.DatasetSpec{}, one[0], one[0])
		_, err := applyOverrides(two, "https://example.org/x.csv", "")
		assert.Error(t, err)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := applyOverrides(one, "", "parquet")
		assert.Error(t, err)
	})
}

func TestDatasetNamesSorted(t *testing.T) {
	names := datasetNames()
	require.Len(t, names, len(opendata.Registry()))
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}
