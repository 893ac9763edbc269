package taskloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBareTask(key Tick) *Task {
	return &Task{phKey: key}
}

func TestTaskQueuePushPopOrdering(t *testing.T) {
	q := NewTaskQueue()
	keys := []Tick{30, 10, 50, 20, 40}
	for _, k := range keys {
		q.Push(newBareTask(k))
	}
	require.Equal(t, 5, q.Len())

	var got []Tick
	for !q.Empty() {
		got = append(got, q.Pop().phKey)
	}
	assert.Equal(t, []Tick{10, 20, 30, 40, 50}, got)
}

func TestTaskQueuePeekDoesNotRemove(t *testing.T) {
	q := NewTaskQueue()
	q.Push(newBareTask(5))
	q.Push(newBareTask(1))
	require.Equal(t, Tick(1), q.Peek().phKey)
	require.Equal(t, 2, q.Len())
	require.Equal(t, Tick(1), q.Peek().phKey)
}

func TestTaskQueueEmptyPopReturnsNil(t *testing.T) {
	q := NewTaskQueue()
	assert.Nil(t, q.Pop())
	assert.Nil(t, q.Peek())
}

func TestTaskQueueRemoveRoot(t *testing.T) {
	q := NewTaskQueue()
	a := newBareTask(10)
	b := newBareTask(20)
	c := newBareTask(30)
	q.Push(a)
	q.Push(b)
	q.Push(c)

	q.Remove(a) // a happens to be the root (smallest key)
	require.Equal(t, 2, q.Len())

	var got []Tick
	for !q.Empty() {
		got = append(got, q.Pop().phKey)
	}
	assert.Equal(t, []Tick{20, 30}, got)
}

func TestTaskQueueRemoveNonRoot(t *testing.T) {
	q := NewTaskQueue()
	tasks := make([]*Task, 8)
	for i := range tasks {
		tasks[i] = newBareTask(Tick(i * 10))
		q.Push(tasks[i])
	}

	// Remove a handful of non-root nodes, including ones that end up as
	// both first and non-first children of their parent.
	q.Remove(tasks[3])
	q.Remove(tasks[5])
	q.Remove(tasks[7])
	require.Equal(t, 5, q.Len())

	var got []Tick
	for !q.Empty() {
		got = append(got, q.Pop().phKey)
	}
	assert.Equal(t, []Tick{0, 10, 20, 40, 60}, got)
}

func TestTaskQueueRemoveAllThenPush(t *testing.T) {
	q := NewTaskQueue()
	a, b := newBareTask(1), newBareTask(2)
	q.Push(a)
	q.Push(b)
	q.Remove(a)
	q.Remove(b)
	assert.True(t, q.Empty())

	q.Push(newBareTask(99))
	assert.Equal(t, Tick(99), q.Peek().phKey)
}

func TestMeldNilHandling(t *testing.T) {
	a := newBareTask(1)
	assert.Same(t, a, meld(nil, a))
	assert.Same(t, a, meld(a, nil))
	assert.Nil(t, meld(nil, nil))
}

func TestMeldKeepsSmallerAtRoot(t *testing.T) {
	lo := newBareTask(1)
	hi := newBareTask(2)
	assert.Same(t, lo, meld(lo, hi))
	assert.Same(t, lo, meld(hi, lo))
}

func TestTaskQueueEqualKeysPopInPushOrder(t *testing.T) {
	q := NewTaskQueue()
	a := newBareTask(5)
	b := newBareTask(5)
	c := newBareTask(5)
	q.Push(a)
	q.Push(b)
	q.Push(c)

	assert.Same(t, a, q.Pop())
	assert.Same(t, b, q.Pop())
	assert.Same(t, c, q.Pop())
}

func TestTaskQueueEqualKeysManyPopInPushOrder(t *testing.T) {
	q := NewTaskQueue()
	tasks := make([]*Task, 20)
	for i := range tasks {
		tasks[i] = newBareTask(7)
		q.Push(tasks[i])
	}

	for _, want := range tasks {
		assert.Same(t, want, q.Pop())
	}
}
