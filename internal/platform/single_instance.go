package platform

import (
	"bufio"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"strings"
	"sync"
	"time"
)

// ErrAlreadyRunning indicates another instance already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

const (
	minLockPort = 20000
	maxLockPort = 39999

	raiseCommand = "show"
	raiseTimeout = time.Second
)

// InstanceGuard holds the single-instance lock: a listener on a port derived
// from the application name. Later instances use the same port to ask the
// holder to show itself.
type InstanceGuard struct {
	mu       sync.Mutex
	listener net.Listener
}

// AcquireSingleInstance binds the lock port for appName on localhost. When the
// port is taken, the running instance is asked to raise its window and
// ErrAlreadyRunning is returned.
func AcquireSingleInstance(appName string) (*InstanceGuard, error) {
	address := fmt.Sprintf("127.0.0.1:%d", LockPort(appName))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		if raiseErr := requestRaise(address); raiseErr != nil {
			return nil, fmt.Errorf("%w: %s: raise: %v", ErrAlreadyRunning, address, raiseErr)
		}
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, address)
	}
	return &InstanceGuard{listener: listener}, nil
}

// Serve calls onRaise for every raise request until Release. It returns nil
// once the lock is released.
func (guard *InstanceGuard) Serve(onRaise func()) error {
	listener := guard.current()
	if listener == nil {
		return nil
	}
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept raise request: %w", err)
		}
		go handleRaise(conn, onRaise)
	}
}

// Release frees the lock. Safe on a nil guard.
func (guard *InstanceGuard) Release() error {
	if guard == nil {
		return nil
	}
	guard.mu.Lock()
	defer guard.mu.Unlock()
	if guard.listener == nil {
		return nil
	}
	err := guard.listener.Close()
	guard.listener = nil
	return err
}

// Address returns the bound address, or "" when released.
func (guard *InstanceGuard) Address() string {
	listener := guard.current()
	if listener == nil {
		return ""
	}
	return listener.Addr().String()
}

func (guard *InstanceGuard) current() net.Listener {
	if guard == nil {
		return nil
	}
	guard.mu.Lock()
	defer guard.mu.Unlock()
	return guard.listener
}

// LockPort returns the deterministic lock port for appName.
func LockPort(appName string) int {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(appName))
	return minLockPort + int(hash.Sum32()%uint32(maxLockPort-minLockPort+1))
}

func handleRaise(conn net.Conn, onRaise func()) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(raiseTimeout))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}
	if strings.TrimSpace(line) == raiseCommand && onRaise != nil {
		onRaise()
	}
}

func requestRaise(address string) error {
	conn, err := net.DialTimeout("tcp", address, raiseTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(raiseTimeout))
	_, err = conn.Write([]byte(raiseCommand + "\n"))
	return err
}
