package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasafe/aquasafe/pkg/hmpi"
	"github.com/aquasafe/aquasafe/pkg/models"
)

var baseTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func testSample(location string, metals models.MetalConcentrations, offset time.Duration) *models.WaterSample {
	index, status := hmpi.Score(metals)
	created := baseTime.Add(offset)
	return &models.WaterSample{
		ID:                  uuid.New(),
		Location:            location,
		Latitude:            28.61,
		Longitude:           77.21,
		SampleDate:          models.SampleDay(created),
		CollectedBy:         uuid.New(),
		MetalConcentrations: metals,
		IndexValue:          index,
		Status:              status,
		CreatedAt:           created,
		UpdatedAt:           created,
	}
}

func floatPtr(v float64) *float64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

// seed inserts three safe, two marginal and one high sample
func seed(t *testing.T, st Store) []*models.WaterSample {
	t.Helper()
	samples := []*models.WaterSample{
		testSample("Yamuna Ghat, Delhi", models.MetalConcentrations{Cu: 1, Zn: 1}, 0),
		testSample("Ganga Barrage, Kanpur", models.MetalConcentrations{Cu: 2, Pb: 0.1, Cd: 0.005, Zn: 1}, time.Hour),
		testSample("Delhi Cantonment", models.MetalConcentrations{Zn: 2}, 2*time.Hour),
		testSample("Okhla, Delhi", models.MetalConcentrations{Cu: 2, Pb: 0.1, Cd: 0.005, Zn: 4}, 24*time.Hour),
		testSample("Varanasi", models.MetalConcentrations{Pb: 0.8}, 48*time.Hour),
		testSample("Najafgarh Drain, DELHI", models.MetalConcentrations{Cd: 0.2}, 72*time.Hour),
	}
	ctx := context.Background()
	for _, s := range samples {
		require.NoError(t, st.InsertOne(ctx, s))
	}
	return samples
}

func forEachStore(t *testing.T, fn func(t *testing.T, st Store)) {
	for name, st := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, st)
		})
	}
}

func TestStore_InsertAndFindByID(t *testing.T) {
	forEachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		s := testSample("Yamuna Ghat", models.MetalConcentrations{Cu: 2, Pb: 0.1, Cd: 0.005, Zn: 4}, 0)
		s.Notes = "upstream of outfall"
		s.ExtendedParameters = map[string]float64{"ph": 7.2, "tds": 310}
		require.NoError(t, st.InsertOne(ctx, s))

		got, err := st.FindByID(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, *s, *got)
	})
}

func TestStore_FindByID_Missing(t *testing.T) {
	forEachStore(t, func(t *testing.T, st Store) {
		got, err := st.FindByID(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestStore_FindMany_Filters(t *testing.T) {
	forEachStore(t, func(t *testing.T, st Store) {
		seed(t, st)
		ctx := context.Background()
		sort := models.Sort{Field: "created_at", Direction: models.SortAsc}

		testCases := []struct {
			name   string
			filter models.SampleFilter
			want   []string
		}{
			{"no filter", models.SampleFilter{}, []string{
				"Yamuna Ghat, Delhi", "Ganga Barrage, Kanpur", "Delhi Cantonment",
				"Okhla, Delhi", "Varanasi", "Najafgarh Drain, DELHI",
			}},
			{"status", models.SampleFilter{Status: models.StatusMarginal}, []string{"Okhla, Delhi", "Varanasi"}},
			{"location case-insensitive", models.SampleFilter{Location: "delhi"}, []string{
				"Yamuna Ghat, Delhi", "Delhi Cantonment", "Okhla, Delhi", "Najafgarh Drain, DELHI",
			}},
			{"status and location", models.SampleFilter{Status: models.StatusHigh, Location: "Delhi"}, []string{"Najafgarh Drain, DELHI"}},
			{"hmpi range inclusive", models.SampleFilter{HMPIMin: floatPtr(40), HMPIMax: floatPtr(80)}, []string{
				"Ganga Barrage, Kanpur", "Okhla, Delhi", "Varanasi",
			}},
			{"date range", models.SampleFilter{
				DateFrom: timePtr(models.SampleDay(baseTime.Add(24 * time.Hour))),
				DateTo:   timePtr(models.SampleDay(baseTime.Add(48 * time.Hour))),
			}, []string{"Okhla, Delhi", "Varanasi"}},
			{"like wildcards are literal", models.SampleFilter{Location: "%"}, nil},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				got, err := st.FindMany(ctx, tc.filter, sort, 0, 0)
				require.NoError(t, err)

				var names []string
				for _, s := range got {
					names = append(names, s.Location)
				}
				assert.Equal(t, tc.want, names)

				n, err := st.Count(ctx, tc.filter)
				require.NoError(t, err)
				assert.Equal(t, len(tc.want), n)
			})
		}
	})
}

func TestStore_FindMany_SortAndPage(t *testing.T) {
	forEachStore(t, func(t *testing.T, st Store) {
		seed(t, st)
		ctx := context.Background()

		byIndex := models.Sort{Field: "hmpi_value", Direction: models.SortDesc}
		all, err := st.FindMany(ctx, models.SampleFilter{}, byIndex, 0, 0)
		require.NoError(t, err)
		require.Len(t, all, 6)
		for i := 1; i < len(all); i++ {
			assert.GreaterOrEqual(t, all[i-1].IndexValue, all[i].IndexValue)
		}

		page, err := st.FindMany(ctx, models.SampleFilter{}, byIndex, 2, 3)
		require.NoError(t, err)
		require.Len(t, page, 3)
		assert.Equal(t, all[2].ID, page[0].ID)
		assert.Equal(t, all[4].ID, page[2].ID)

		rest, err := st.FindMany(ctx, models.SampleFilter{}, byIndex, 4, 0)
		require.NoError(t, err)
		assert.Len(t, rest, 2)

		past, err := st.FindMany(ctx, models.SampleFilter{}, byIndex, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, past)

		negative, err := st.FindMany(ctx, models.SampleFilter{}, byIndex, -40, 2)
		require.NoError(t, err)
		require.Len(t, negative, 2)
		assert.Equal(t, all[0].ID, negative[0].ID)
	})
}

func TestStore_FindMany_TiesBrokenByID(t *testing.T) {
	forEachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		for i := 0; i < 8; i++ {
			require.NoError(t, st.InsertOne(ctx, testSample(fmt.Sprintf("Site %d", i), models.MetalConcentrations{Cu: 1}, 0)))
		}

		sort := models.Sort{Field: "status", Direction: models.SortAsc}
		all, err := st.FindMany(ctx, models.SampleFilter{}, sort, 0, 0)
		require.NoError(t, err)
		require.Len(t, all, 8)
		for i := 1; i < len(all); i++ {
			assert.Less(t, all[i-1].ID.String(), all[i].ID.String())
		}

		var paged []models.WaterSample
		for skip := 0; skip < 8; skip += 3 {
			page, err := st.FindMany(ctx, models.SampleFilter{}, sort, skip, 3)
			require.NoError(t, err)
			paged = append(paged, page...)
		}
		assert.Equal(t, all, paged)
	})
}

func TestStore_FindMany_UnknownSortField(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.FindMany(context.Background(), models.SampleFilter{}, models.Sort{Field: "id; DROP TABLE users"}, 0, 0)
	assert.Error(t, err)
}

func TestStore_UpdateByID(t *testing.T) {
	forEachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		s := testSample("Okhla", models.MetalConcentrations{Cu: 1}, 0)
		require.NoError(t, st.InsertOne(ctx, s))

		updated := s.Clone()
		updated.Notes = "resampled"
		updated.Pb = 1
		updated.IndexValue, updated.Status = hmpi.Score(updated.MetalConcentrations)
		updated.UpdatedAt = s.UpdatedAt.Add(time.Minute)

		found, err := st.UpdateByID(ctx, &updated)
		require.NoError(t, err)
		assert.True(t, found)

		got, err := st.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, updated, *got)

		ghost := testSample("Nowhere", models.MetalConcentrations{}, 0)
		found, err = st.UpdateByID(ctx, ghost)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestStore_DeleteByID(t *testing.T) {
	forEachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		s := testSample("Okhla", models.MetalConcentrations{Cu: 1}, 0)
		require.NoError(t, st.InsertOne(ctx, s))

		deleted, err := st.DeleteByID(ctx, s.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = st.DeleteByID(ctx, s.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		got, err := st.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestSQLStore_Summarize(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	empty, err := st.Summarize(ctx, models.SampleFilter{})
	require.NoError(t, err)
	assert.Equal(t, models.Statistics{}, empty)

	seed(t, st)

	stats, err := st.Summarize(ctx, models.SampleFilter{})
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 3, stats.Safe)
	assert.Equal(t, 2, stats.Marginal)
	assert.Equal(t, 1, stats.High)
	assert.InDelta(t, (15.0+40+10+55+80+200)/6, stats.AvgHMPI, 1e-9)
	assert.InDelta(t, 5.0/6, stats.AvgCu, 1e-9)

	delhi, err := st.Summarize(ctx, models.SampleFilter{Location: "delhi"})
	require.NoError(t, err)
	assert.Equal(t, 4, delhi.Total)
	assert.Equal(t, 1, delhi.High)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	s := testSample("Okhla", models.MetalConcentrations{Cu: 1}, 0)
	s.ExtendedParameters = map[string]float64{"ph": 7}
	require.NoError(t, st.InsertOne(ctx, s))

	s.ExtendedParameters["ph"] = 1
	got, err := st.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 7.0, got.ExtendedParameters["ph"])

	got.Location = "changed"
	again, err := st.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Okhla", again.Location)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	st := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := st.InsertOne(ctx, testSample("Okhla", models.MetalConcentrations{}, 0))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = st.Count(ctx, models.SampleFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}
