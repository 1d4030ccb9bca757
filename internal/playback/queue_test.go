/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue()
	q.PushBack(Item{ID: "a"})
	q.PushBack(Item{ID: "b"})
	q.PushBack(Item{ID: "c"})

	require.Equal(t, 3, q.Length())

	item, ok := q.PopFront()
	require.True(t, ok)
	assert.Equal(t, "a", item.ID)

	item, ok = q.PopFront()
	require.True(t, ok)
	assert.Equal(t, "b", item.ID)
}

func TestQueuePushFrontTakesPriority(t *testing.T) {
	q := NewQueue()
	q.PushBack(Item{ID: "song"})
	q.PushFront(Item{ID: "announcement"})

	item, ok := q.PopFront()
	require.True(t, ok)
	assert.Equal(t, "announcement", item.ID)

	item, ok = q.PopFront()
	require.True(t, ok)
	assert.Equal(t, "song", item.ID)
}

func TestQueuePushFrontPairIsAtomic(t *testing.T) {
	q := NewQueue()
	q.PushBack(Item{ID: "next-song"})
	q.PushFrontPair(Item{ID: "intro"}, Item{ID: "song"})

	first, _ := q.PopFront()
	second, _ := q.PopFront()
	third, _ := q.PopFront()

	assert.Equal(t, "intro", first.ID)
	assert.Equal(t, "song", second.ID)
	assert.Equal(t, "next-song", third.ID)
}

func TestQueuePeekFrontDoesNotRemove(t *testing.T) {
	q := NewQueue()
	q.PushBack(Item{ID: "a"})

	peeked, ok := q.PeekFront()
	require.True(t, ok)
	assert.Equal(t, "a", peeked.ID)
	assert.Equal(t, 1, q.Length())
}

func TestQueuePopFrontEmpty(t *testing.T) {
	q := NewQueue()
	_, ok := q.PopFront()
	assert.False(t, ok)
}

func TestQueueClear(t *testing.T) {
	q := NewQueue()
	q.PushBack(Item{ID: "a"})
	q.PushBack(Item{ID: "b"})
	q.Clear()
	assert.Equal(t, 0, q.Length())
}
