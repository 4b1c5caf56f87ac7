package dispatch_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bivex/storekit-manager/internal/infrastructure/dispatch"
)

func TestSerialQueue(t *testing.T) {
	t.Run("runs work in submission order", func(t *testing.T) {
		q := dispatch.NewSerialQueue(nil)

		var got []int
		for i := 0; i < 100; i++ {
			i := i
			assert.True(t, q.Async(func() { got = append(got, i) }))
		}
		q.Close()

		assert.Len(t, got, 100)
		for i, v := range got {
			assert.Equal(t, i, v)
		}
	})

	t.Run("work may schedule more work", func(t *testing.T) {
		q := dispatch.NewSerialQueue(nil)

		var wg sync.WaitGroup
		wg.Add(1)
		var order []string
		q.Async(func() {
			order = append(order, "outer")
			q.Async(func() {
				order = append(order, "inner")
				wg.Done()
			})
		})
		wg.Wait()
		q.Close()

		assert.Equal(t, []string{"outer", "inner"}, order)
	})

	t.Run("rejects work after close", func(t *testing.T) {
		q := dispatch.NewSerialQueue(nil)
		q.Close()

		assert.False(t, q.Async(func() {}))
		q.Close()
	})

	t.Run("survives panicking work", func(t *testing.T) {
		q := dispatch.NewSerialQueue(nil)

		ran := false
		q.Async(func() { panic("boom") })
		q.Async(func() { ran = true })
		q.Close()

		assert.True(t, ran)
	})
}

func TestInlineQueue(t *testing.T) {
	ran := false
	assert.True(t, dispatch.InlineQueue{}.Async(func() { ran = true }))
	assert.True(t, ran)
}
