package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLock_AcquireRelease(t *testing.T) {
	dir := t.TempDir()
	l := newStoreLock(dir)

	require.NoError(t, l.acquire())
	_, err := os.Stat(l.path)
	assert.NoError(t, err)

	require.NoError(t, l.release())
}

func TestStoreLock_ReleaseWithoutAcquire_NoError(t *testing.T) {
	l := newStoreLock(t.TempDir())
	assert.NoError(t, l.release())
}

func TestStoreLock_SecondAcquire_Fails(t *testing.T) {
	dir := t.TempDir()
	first := newStoreLock(dir)
	require.NoError(t, first.acquire())
	defer first.release()

	second := newStoreLock(dir)
	err := second.acquire()
	assert.Error(t, err)
}
