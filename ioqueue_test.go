package taskloop

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func nonblockingPipe(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(int(r.Fd()), true))
	require.NoError(t, unix.SetNonblock(int(w.Fd()), true))
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return r, w
}

func TestAwaitReadWakesWhenPipeBecomesReadable(t *testing.T) {
	loop, err := NewLoop()
	require.NoError(t, err)
	defer loop.Close()

	r, w := nonblockingPipe(t)

	var readErr error
	var n int
	buf := make([]byte, 16)

	reader := loop.CreateTask(Func(func(c *Control) (any, error) {
		if err := c.AwaitRead(int(r.Fd())); err != nil {
			return nil, err
		}
		n, readErr = r.Read(buf)
		return nil, nil
	}), "reader")

	writer := loop.CreateTask(Func(func(c *Control) (any, error) {
		if err := c.Sleep(20); err != nil {
			return nil, err
		}
		_, werr := w.Write([]byte("hello"))
		return nil, werr
	}), "writer")

	_, err = loop.RunUntilComplete(context.Background(), writer)
	require.NoError(t, err)
	_, err = loop.RunUntilComplete(context.Background(), reader)
	require.NoError(t, err)

	require.NoError(t, readErr)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestAwaitWriteWakesWhenPipeBecomesWritable(t *testing.T) {
	loop, err := NewLoop()
	require.NoError(t, err)
	defer loop.Close()

	_, w := nonblockingPipe(t)

	var writeErr error
	writer := loop.CreateTask(Func(func(c *Control) (any, error) {
		if err := c.AwaitWrite(int(w.Fd())); err != nil {
			return nil, err
		}
		_, writeErr = w.Write([]byte("x"))
		return nil, nil
	}), "writer")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = loop.RunUntilComplete(ctx, writer)
	require.NoError(t, err)
	require.NoError(t, writeErr)
}

func TestCancelDuringAwaitReadRemovesRegistration(t *testing.T) {
	loop, err := NewLoop()
	require.NoError(t, err)
	defer loop.Close()

	r, _ := nonblockingPipe(t)

	var waitErr error
	waiter := loop.CreateTask(Func(func(c *Control) (any, error) {
		waitErr = c.AwaitRead(int(r.Fd()))
		return nil, waitErr
	}), "waiter")

	canceller := loop.CreateTask(Func(func(c *Control) (any, error) {
		if err := c.Sleep(5); err != nil {
			return nil, err
		}
		_, cerr := waiter.Cancel("no longer needed")
		return nil, cerr
	}), "canceller")

	_, err = loop.RunUntilComplete(context.Background(), canceller)
	require.NoError(t, err)
	_, _ = loop.RunUntilComplete(context.Background(), waiter)

	assert.True(t, isCancelledErr(waitErr))
	assert.True(t, loop.io.Empty())
}
