package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreGetMissing(t *testing.T) {
	s := NewStore()
	require.Nil(t, s.Get(42))
}

func TestStoreSetGet(t *testing.T) {
	s := NewStore()
	s.Set(1, &Session{State: StateWaitingPhoto})

	got := s.Get(1)
	require.NotNil(t, got)
	require.Equal(t, StateWaitingPhoto, got.State)
	require.Nil(t, s.Get(2))
}

func TestStoreOverwrite(t *testing.T) {
	s := NewStore()
	s.Set(1, &Session{
		State:           StateSegmenting,
		DetectedClasses: []string{"человек"},
		ClassCounts:     map[string]int{"человек": 2},
	})

	// новая сессия затирает все поля предыдущей
	s.Set(1, &Session{State: StateWaitingPhoto})

	got := s.Get(1)
	require.Equal(t, StateWaitingPhoto, got.State)
	require.Empty(t, got.DetectedClasses)
	require.Empty(t, got.ClassCounts)
	require.Nil(t, got.ImageBytes)
}

func TestStoreConcurrentUsers(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Set(id, &Session{State: StateWaitingPhoto})
			require.NotNil(t, s.Get(id))
		}(int64(i))
	}
	wg.Wait()
}

func TestWithLockSerializesPerUser(t *testing.T) {
	s := NewStore()
	s.Set(7, &Session{State: StateWaitingPhoto, ClassCounts: map[string]int{}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.WithLock(7, func() {
				sess := s.Get(7)
				sess.ClassCounts["человек"]++
			})
		}()
	}
	wg.Wait()

	require.Equal(t, 50, s.Get(7).ClassCounts["человек"])
}
