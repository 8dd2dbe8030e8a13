package platform

import (
	"errors"
	"net"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDirPrefersUserConfigDir(t *testing.T) {
	service := &platformService{
		userConfigDir: func() (string, error) { return "/cfg", nil },
		userHomeDir:   func() (string, error) { return "/home/me", nil },
	}
	dir, err := service.GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/cfg", dir)
}

func TestGetConfigDirFallsBackToHome(t *testing.T) {
	service := &platformService{
		userConfigDir: func() (string, error) { return "", errors.New("unset") },
		userHomeDir:   func() (string, error) { return "/home/me", nil },
	}
	dir, err := service.GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, fallbackConfigDir(runtime.GOOS, "/home/me"), dir)
}

func TestGetConfigDirFailsWithoutHome(t *testing.T) {
	service := &platformService{
		userConfigDir: func() (string, error) { return "", errors.New("unset") },
		userHomeDir:   func() (string, error) { return "", errors.New("no home") },
	}
	_, err := service.GetConfigDir()
	assert.ErrorContains(t, err, "unset")
}

func TestFallbackConfigDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/h", ".config"), fallbackConfigDir("linux", "/h"))
	assert.Equal(t, filepath.Join("/h", "Library", "Application Support"), fallbackConfigDir("darwin", "/h"))
	assert.Equal(t, filepath.Join("/h", "AppData", "Roaming"), fallbackConfigDir("windows", "/h"))
}

func TestLockPortIsStableAndInRange(t *testing.T) {
	port := LockPort("EyeNav")
	assert.Equal(t, port, LockPort("EyeNav"))
	assert.GreaterOrEqual(t, port, minLockPort)
	assert.LessOrEqual(t, port, maxLockPort)
}

func TestSingleInstanceGuard(t *testing.T) {
	name := "eyenav-test-" + t.Name()
	guard, err := AcquireSingleInstance(name)
	if err != nil {
		t.Skipf("lock port unavailable: %v", err)
	}
	assert.NotEmpty(t, guard.Address())

	_, err = AcquireSingleInstance(name)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, guard.Release())
	assert.Empty(t, guard.Address())
	assert.NoError(t, guard.Release())
}

func TestSecondInstanceRaisesTheFirst(t *testing.T) {
	name := "eyenav-test-" + t.Name()
	guard, err := AcquireSingleInstance(name)
	if err != nil {
		t.Skipf("lock port unavailable: %v", err)
	}
	defer guard.Release()

	raised := make(chan struct{}, 1)
	served := make(chan error, 1)
	go func() {
		served <- guard.Serve(func() { raised <- struct{}{} })
	}()

	_, err = AcquireSingleInstance(name)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.NotContains(t, err.Error(), "raise")

	select {
	case <-raised:
	case <-time.After(2 * time.Second):
		t.Fatal("running instance was not raised")
	}

	require.NoError(t, guard.Release())
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after release")
	}
}

func TestRaiseIgnoresUnknownCommands(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	guard := &InstanceGuard{listener: listener}

	raised := make(chan struct{}, 1)
	go func() { _ = guard.Serve(func() { raised <- struct{}{} }) }()

	conn, err := net.Dial("tcp", guard.Address())
	require.NoError(t, err)
	_, err = conn.Write([]byte("quit\n"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.NoError(t, requestRaise(guard.Address()))
	select {
	case <-raised:
	case <-time.After(2 * time.Second):
		t.Fatal("raise request was not handled")
	}
	assert.Empty(t, raised)
	require.NoError(t, guard.Release())
}

func TestServeOnReleasedGuard(t *testing.T) {
	var guard *InstanceGuard
	assert.NoError(t, guard.Serve(nil))
	assert.Empty(t, guard.Address())
}
