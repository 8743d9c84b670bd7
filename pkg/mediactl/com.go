package mediactl

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	ole "github.com/go-ole/go-ole"
	"go.uber.org/zap"
)

const (
	// hresult for "already initialized on this thread"
	sFalse = 0x1

	// RPC_E_CHANGED_MODE, the thread already belongs to an apartment of the other kind
	rpcEChangedMode = 0x80010106
)

// comThread owns one OS thread that is joined to the component object runtime. Objects
// created on it are only ever touched from it, which keeps apartment threaded mode valid.
type comThread struct {
	logger *zap.SugaredLogger
	mode   CoinitMode

	initialize   func(CoinitMode) error
	uninitialize func()

	calls chan func()
	done  chan struct{}

	once   sync.Once
	err    error
	joined bool

	closeOnce sync.Once
}

func newComThread(logger *zap.SugaredLogger, mode CoinitMode) *comThread {
	c := &comThread{
		logger:       logger.Named("com"),
		mode:         mode,
		initialize:   coInitialize,
		uninitialize: ole.CoUninitialize,
		calls:        make(chan func()),
		done:         make(chan struct{}),
	}

	go c.loop()

	return c
}

func (c *comThread) loop() {
	// never unlocked: the thread exits with the goroutine and takes its apartment along
	runtime.LockOSThread()
	defer close(c.done)

	for call := range c.calls {
		call()
	}

	if c.joined {
		c.uninitialize()
		c.logger.Debug("Left component object runtime")
	}
}

// Do runs f on the runtime thread and waits for it. A panic in f is re-raised in the caller.
// Do must not be called from f, or after Close.
func (c *comThread) Do(f func()) {
	finished := make(chan struct{})
	var recovered interface{}

	c.calls <- func() {
		defer func() {
			recovered = recover()
			close(finished)
		}()

		f()
	}

	<-finished

	if recovered != nil {
		panic(recovered)
	}
}

// Ensure joins the runtime thread on first use and returns the outcome of that attempt.
// It must run on the runtime thread, i.e. from within Do.
func (c *comThread) Ensure() error {
	c.once.Do(func() {
		if err := c.initialize(c.mode); err != nil {
			c.err = foreignError("CoInitializeEx", fmt.Errorf("mode %s: %w", c.mode, err))
			return
		}

		c.joined = true
		c.logger.Debugw("Initialized component object runtime", "mode", c.mode)
	})

	return c.err
}

// Close stops the runtime thread after pending calls finish.
func (c *comThread) Close() {
	c.closeOnce.Do(func() {
		close(c.calls)
		<-c.done
	})
}

func coInitialize(mode CoinitMode) error {
	joined, err := coinitOutcome(ole.CoInitializeEx(0, mode.oleFlag()))
	if err == nil && !joined {
		return errors.New("thread already joined with the other threading model")
	}
	return err
}

// joinMultithreaded makes sure the calling OS thread can talk to the runtime. The caller must
// hold runtime.LockOSThread until it calls the returned leave func.
func joinMultithreaded() (leave func(), err error) {
	joined, err := coinitOutcome(ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED))
	if err != nil {
		return nil, foreignError("CoInitializeEx", err)
	}

	if !joined {
		// the thread is an apartment of someone else's, usable as is
		return func() {}, nil
	}

	return ole.CoUninitialize, nil
}

// coinitOutcome reports whether a CoInitializeEx result has to be balanced with
// CoUninitialize, and whether the thread is usable at all.
func coinitOutcome(err error) (joined bool, _ error) {
	if err == nil {
		return true, nil
	}

	var oleErr *ole.OleError
	if errors.As(err, &oleErr) {
		switch uint32(oleErr.Code()) {
		case sFalse:
			return true, nil
		case rpcEChangedMode:
			return false, nil
		}
	}

	return false, err
}
