package stopdb

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stopmatcher.onebusaway.org/internal/matching"
)

func TestParsePopulation(t *testing.T) {
	pop, err := ParsePopulation("feed")
	require.NoError(t, err)
	assert.Equal(t, PopulationFeed, pop)

	_, err = ParsePopulation("stations")
	assert.ErrorIs(t, err, ErrUnknownPopulation)
}

func TestQueries_UnknownPopulation(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Queries.ListStops(ctx, Population("stations"))
	assert.ErrorIs(t, err, ErrUnknownPopulation)
	_, err = client.Queries.CountStops(ctx, Population("stations"))
	assert.ErrorIs(t, err, ErrUnknownPopulation)
	assert.ErrorIs(t, client.Queries.ClearPopulation(ctx, Population("")), ErrUnknownPopulation)
}

func TestCreateAndGetStop(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	err := client.Queries.CreateStop(ctx, PopulationSource, CreateStopParams{
		ID:            "n1",
		Name:          sql.NullString{String: "Hauptbahnhof", Valid: true},
		Lat:           48.7841,
		Lon:           9.1814,
		Mode:          sql.NullString{String: "trainish", Valid: true},
		ReferenceCode: sql.NullString{String: "de:08111:6115", Valid: true},
		ServedLines:   sql.NullString{String: "s1;s2", Valid: true},
	})
	require.NoError(t, err)

	stop, err := client.Queries.GetStop(ctx, PopulationSource, "n1")
	require.NoError(t, err)
	assert.Equal(t, "Hauptbahnhof", stop.Name.String)
	assert.Equal(t, 48.7841, stop.Lat)

	_, err = client.Queries.GetStop(ctx, PopulationFeed, "n1")
	assert.ErrorIs(t, err, sql.ErrNoRows, "populations are stored separately")
}

func TestReplaceAndLoadStops(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	stops := []matching.Stop{
		{ID: "8000096", Name: "Stuttgart Hbf", Lat: 48.7841, Lon: 9.1814, Mode: matching.ModeTrainish, ReferenceCode: "de:08111:6115", Lines: []string{"s1", "s2"}},
		{ID: "371300", Lat: 48.7885, Lon: 9.1725},
		{ID: "371400", Name: "Bus stop", Lat: 48.7885, Lon: 9.1724, Mode: matching.ModeBus},
	}

	require.NoError(t, client.ReplaceStops(ctx, PopulationFeed, stops))

	loaded, err := client.LoadStops(ctx, PopulationFeed)
	require.NoError(t, err)
	assert.Equal(t, stops, loaded)

	// A second import replaces the first.
	require.NoError(t, client.ReplaceStops(ctx, PopulationFeed, stops[:1]))
	count, err := client.Queries.CountStops(ctx, PopulationFeed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReplaceStops_DuplicateIDKeepsFirst(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.ReplaceStops(ctx, PopulationSource, []matching.Stop{
		{ID: "n1", Name: "first", Lat: 1, Lon: 1},
		{ID: "n1", Name: "second", Lat: 2, Lon: 2},
	}))

	loaded, err := client.LoadStops(ctx, PopulationSource)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "first", loaded[0].Name)
}

func TestBulkInsertStops(t *testing.T) {
	client := newTestClient(t)
	client.config.BulkInsertBatchSize = 100
	ctx := context.Background()

	testCases := []struct {
		name  string
		count int
	}{
		{"Empty batch", 0},
		{"Single record", 1},
		{"Exact batch size", 100},
		{"Just over batch size", 101},
		{"Multiple batches", 350},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stops := make([]matching.Stop, tc.count)
			for i := range stops {
				stops[i] = matching.Stop{ID: fmt.Sprintf("stop_%04d", i), Lat: float64(i) / 1000, Lon: 9}
			}

			require.NoError(t, client.ReplaceStops(ctx, PopulationFeed, stops))

			loaded, err := client.LoadStops(ctx, PopulationFeed)
			require.NoError(t, err)
			require.Len(t, loaded, tc.count)
			if tc.count > 0 {
				assert.Equal(t, "stop_0000", loaded[0].ID)
				assert.Equal(t, fmt.Sprintf("stop_%04d", tc.count-1), loaded[tc.count-1].ID)
			}
		})
	}
}
