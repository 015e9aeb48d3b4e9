package api

import (
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/ghanalytics/traffic-tracker/common"
	"github.com/ghanalytics/traffic-tracker/testsCommon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func startTestServer(t *testing.T, storage Storage) *server {
	s, err := NewServer(ArgsWebServer{
		ListenAddress: "127.0.0.1:0",
		Storage:       storage,
	})
	require.Nil(t, err)

	s.Start()
	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func doGet(t *testing.T, s *server, path string) (int, []byte) {
	resp, err := http.Get(fmt.Sprintf("http://%s%s", s.Address(), path))
	require.Nil(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	require.Nil(t, err)

	return resp.StatusCode, body
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	t.Run("nil storage should error", func(t *testing.T) {
		t.Parallel()

		s, err := NewServer(ArgsWebServer{ListenAddress: ":0"})
		assert.Nil(t, s)
		assert.True(t, s.IsInterfaceNil())
		assert.Equal(t, "nil storage", err.Error())
	})
	t.Run("should work", func(t *testing.T) {
		t.Parallel()

		s, err := NewServer(ArgsWebServer{
			ListenAddress: ":0",
			Storage:       &testsCommon.StorageStub{},
		})
		assert.NotNil(t, s)
		assert.False(t, s.IsInterfaceNil())
		assert.Nil(t, err)
	})
}

func TestServer_handleSummary(t *testing.T) {
	t.Parallel()

	t.Run("should return the summary with the default trailing year", func(t *testing.T) {
		t.Parallel()

		var receivedStart, receivedEnd time.Time
		storage := &testsCommon.StorageStub{
			SummaryStatisticsCalled: func(owner string, repo string, start time.Time, end time.Time) (common.SummaryStatistics, error) {
				receivedStart, receivedEnd = start, end
				assert.Equal(t, "a", owner)
				assert.Equal(t, "b", repo)
				return common.SummaryStatistics{TotalViews: 60, DaysWithData: 3}, nil
			},
		}

		s := startTestServer(t, storage)
		status, body := doGet(t, s, "/api/repos/a/b/summary")

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, int64(60), gjson.GetBytes(body, "total_views").Int())
		assert.Equal(t, int64(3), gjson.GetBytes(body, "days_with_data").Int())
		assert.InDelta(t, float64(defaultRangeDays), receivedEnd.Sub(receivedStart).Hours()/24, 1.5)
	})
	t.Run("explicit range is forwarded", func(t *testing.T) {
		t.Parallel()

		storage := &testsCommon.StorageStub{
			SummaryStatisticsCalled: func(owner string, repo string, start time.Time, end time.Time) (common.SummaryStatistics, error) {
				assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), start)
				assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), end)
				return common.SummaryStatistics{}, nil
			},
		}

		s := startTestServer(t, storage)
		status, _ := doGet(t, s, "/api/repos/a/b/summary?start=2026-08-01&end=2026-08-24")

		assert.Equal(t, http.StatusOK, status)
	})
	t.Run("malformed start date should return 400", func(t *testing.T) {
		t.Parallel()

		s := startTestServer(t, &testsCommon.StorageStub{})
		status, body := doGet(t, s, "/api/repos/a/b/summary?start=24-08-2026")

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, gjson.GetBytes(body, "error").String(), "invalid start date")
	})
	t.Run("storage failure should return 500", func(t *testing.T) {
		t.Parallel()

		storage := &testsCommon.StorageStub{
			SummaryStatisticsCalled: func(owner string, repo string, start time.Time, end time.Time) (common.SummaryStatistics, error) {
				return common.SummaryStatistics{}, fmt.Errorf("disk gone")
			},
		}

		s := startTestServer(t, storage)
		status, body := doGet(t, s, "/api/repos/a/b/summary")

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "disk gone", gjson.GetBytes(body, "error").String())
	})
}

func TestServer_handleDaily(t *testing.T) {
	t.Parallel()

	storage := &testsCommon.StorageStub{
		GetDailyRangeCalled: func(owner string, repo string, start time.Time, end time.Time) ([]common.DailyMetrics, error) {
			return []common.DailyMetrics{
				{Date: "2026-08-20", Views: 10, UniqueVisitors: 4},
				{Date: "2026-08-21", Views: 30, UniqueVisitors: 6},
			}, nil
		},
	}

	s := startTestServer(t, storage)
	status, body := doGet(t, s, "/api/repos/a/b/daily")

	require.Equal(t, http.StatusOK, status)
	daily := gjson.GetBytes(body, "daily").Array()
	require.Len(t, daily, 2)
	assert.Equal(t, "2026-08-20", daily[0].Get("date").String())
	assert.Equal(t, int64(30), daily[1].Get("views").Int())
}

func TestServer_handleMonthly(t *testing.T) {
	t.Parallel()

	t.Run("should forward the year and return aggregates", func(t *testing.T) {
		t.Parallel()

		storage := &testsCommon.StorageStub{
			MonthlyAggregatesCalled: func(owner string, repo string, year int) (map[string]common.MonthlyAggregate, error) {
				assert.Equal(t, 2026, year)
				return map[string]common.MonthlyAggregate{
					"2026-08": {Views: 50, DaysCount: 2},
				}, nil
			},
		}

		s := startTestServer(t, storage)
		status, body := doGet(t, s, "/api/repos/a/b/monthly/2026")

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, int64(50), gjson.GetBytes(body, "monthly.2026-08.views").Int())
	})
	t.Run("non-numeric year should return 400", func(t *testing.T) {
		t.Parallel()

		s := startTestServer(t, &testsCommon.StorageStub{})
		status, body := doGet(t, s, "/api/repos/a/b/monthly/last")

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid year", gjson.GetBytes(body, "error").String())
	})
}

func TestServer_handleReferrers(t *testing.T) {
	t.Parallel()

	storage := &testsCommon.StorageStub{
		GetReferrersCalled: func(owner string, repo string) (map[string]map[string]int, error) {
			return map[string]map[string]int{
				"2026-08": {"github.com": 8},
			}, nil
		},
	}

	s := startTestServer(t, storage)
	status, body := doGet(t, s, "/api/repos/a/b/referrers")

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(8), gjson.GetBytes(body, "referrers.2026-08.github\\.com").Int())
}

func TestServer_handleDashboard(t *testing.T) {
	t.Parallel()

	t.Run("should default to 30 days", func(t *testing.T) {
		t.Parallel()

		storage := &testsCommon.StorageStub{
			DashboardDataCalled: func(owner string, repo string, days int) (common.DashboardData, error) {
				assert.Equal(t, defaultDashboardDays, days)
				return common.DashboardData{Repository: "a/b", PeriodDays: days}, nil
			},
		}

		s := startTestServer(t, storage)
		status, body := doGet(t, s, "/api/repos/a/b/dashboard")

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "a/b", gjson.GetBytes(body, "repository").String())
		assert.Equal(t, int64(30), gjson.GetBytes(body, "period_days").Int())
	})
	t.Run("custom days parameter is forwarded", func(t *testing.T) {
		t.Parallel()

		storage := &testsCommon.StorageStub{
			DashboardDataCalled: func(owner string, repo string, days int) (common.DashboardData, error) {
				assert.Equal(t, 7, days)
				return common.DashboardData{PeriodDays: days}, nil
			},
		}

		s := startTestServer(t, storage)
		status, _ := doGet(t, s, "/api/repos/a/b/dashboard?days=7")

		assert.Equal(t, http.StatusOK, status)
	})
	t.Run("invalid days parameter should return 400", func(t *testing.T) {
		t.Parallel()

		s := startTestServer(t, &testsCommon.StorageStub{})

		status, _ := doGet(t, s, "/api/repos/a/b/dashboard?days=soon")
		assert.Equal(t, http.StatusBadRequest, status)

		status, _ = doGet(t, s, "/api/repos/a/b/dashboard?days=-3")
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestServer_handleExportCSV(t *testing.T) {
	t.Parallel()

	storage := &testsCommon.StorageStub{
		ExportCSVCalled: func(owner string, repo string, start time.Time, end time.Time) (string, error) {
			return "Date,Views,Unique Visitors,Clones,Unique Cloners\n2026-08-20,10,4,2,1\n", nil
		},
	}

	s := startTestServer(t, storage)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/repos/a/b/export.csv", s.Address()))
	require.Nil(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	require.Nil(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "traffic.csv")
	assert.Contains(t, string(body), "2026-08-20,10,4,2,1")
}

func TestServer_Close(t *testing.T) {
	t.Parallel()

	s := startTestServer(t, &testsCommon.StorageStub{})

	status, _ := doGet(t, s, "/api/repos/a/b/summary")
	require.Equal(t, http.StatusOK, status)

	err := s.Close()
	assert.Nil(t, err)

	_, err = http.Get(fmt.Sprintf("http://%s/api/repos/a/b/summary", s.Address()))
	assert.Error(t, err)
}
