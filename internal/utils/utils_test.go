package utils

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestGetSortedKeys(t *testing.T) {
	m := map[time.Time]int{
		date("2020-06-01"): 1,
		date("2020-04-01"): 2,
		date("2020-05-01"): 3,
	}
	assert.Equal(t, []time.Time{date("2020-04-01"), date("2020-05-01"), date("2020-06-01")}, GetSortedKeys(m, true))
	assert.Equal(t, []time.Time{date("2020-06-01"), date("2020-05-01"), date("2020-04-01")}, GetSortedKeys(m, false))
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("MST", -7*3600)
	assert.Equal(t, date("2020-05-17"), Day(time.Date(2020, 5, 17, 23, 30, 0, 0, loc)))
}

func TestWithGDAL(t *testing.T) {
	var wg sync.WaitGroup
	active, peak := 0, 0
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = WithGDAL(func() error {
				active++
				peak = max(peak, active)
				time.Sleep(time.Millisecond)
				active--
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak)

	boom := errors.New("boom")
	assert.ErrorIs(t, WithGDAL(func() error { return boom }), boom)
}
