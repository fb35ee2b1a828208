package store

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutRejectsDuplicate(t *testing.T) {
	s := NewOrderStore()
	require.NoError(t, s.Put(&model.Order{CorrelationID: "00000001", Symbol: "AAPL"}))

	err := s.Put(&model.Order{CorrelationID: "00000001", Symbol: "MSFT"})
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	got, ok := s.Get("00000001")
	require.True(t, ok)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, 1, s.Len())
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewOrderStore()
	order := &model.Order{CorrelationID: "00000001"}
	require.NoError(t, s.Put(order))

	order.Symbol = "mutated"
	got, _ := s.Get("00000001")
	assert.Empty(t, got.Symbol)

	got.VenueOrderID = "X"
	again, _ := s.Get("00000001")
	assert.Empty(t, again.VenueOrderID)
}

func TestSetVenueOrderIDFirstWriteWins(t *testing.T) {
	s := NewOrderStore()
	require.NoError(t, s.Put(&model.Order{CorrelationID: "00000001"}))

	set, err := s.SetVenueOrderID("00000001", "")
	require.NoError(t, err)
	assert.False(t, set)

	set, err = s.SetVenueOrderID("00000001", "V1")
	require.NoError(t, err)
	assert.True(t, set)

	set, err = s.SetVenueOrderID("00000001", "V2")
	require.NoError(t, err)
	assert.False(t, set)

	got, _ := s.Get("00000001")
	assert.Equal(t, "V1", got.VenueOrderID)

	_, err = s.SetVenueOrderID("missing", "V3")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRandomID(t *testing.T) {
	s := NewOrderStore()
	r := rand.New(rand.NewSource(1))

	_, ok := s.RandomID(r)
	assert.False(t, ok)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Put(&model.Order{CorrelationID: fmt.Sprintf("%08d", i)}))
	}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id, ok := s.RandomID(r)
		require.True(t, ok)
		_, found := s.Get(id)
		assert.True(t, found)
		seen[id] = true
	}
	assert.Len(t, seen, 3)
}

func TestConcurrentPutAndPick(t *testing.T) {
	s := NewOrderStore()
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = s.Put(&model.Order{CorrelationID: fmt.Sprintf("%08d", i)})
		}
	}()
	go func() {
		defer wg.Done()
		r := rand.New(rand.NewSource(2))
		for i := 0; i < 1000; i++ {
			if id, ok := s.RandomID(r); ok {
				_, _ = s.SetVenueOrderID(id, "V"+id)
				order, found := s.Get(id)
				assert.True(t, found)
				assert.Equal(t, id, order.CorrelationID)
			}
		}
	}()
	wg.Wait()

	assert.Equal(t, 1000, s.Len())
}
