//go:build windows

package mediactl

import (
	"errors"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"go.uber.org/zap"
)

const sessionManagerClass = "Windows.Media.Control.GlobalSystemMediaTransportControlsSessionManager"

var (
	iidSessionManagerStatics = ole.NewGUID("{2050C4EE-11A0-57DE-AED7-C97C70338245}")
	iidAsyncInfo             = ole.NewGUID("{00000036-0000-0000-C000-000000000046}")
)

// vtable slots. Runtime interfaces start after the three IUnknown and three IInspectable methods.
const (
	slotQueryInterface = 0
	slotRelease        = 2

	slotStaticsRequestAsync = 6

	slotAsyncInfoStatus          = 7
	slotAsyncOperationGetResults = 8

	slotManagerGetCurrentSession = 6

	slotSessionTryGetMediaPropertiesAsync = 7
	slotSessionGetPlaybackInfo            = 9
	slotSessionTryPlayAsync               = 10
	slotSessionTryPauseAsync              = 11
	slotSessionTryStopAsync               = 12
	slotSessionTrySkipNextAsync           = 16
	slotSessionTrySkipPreviousAsync       = 17

	slotPropertiesTitle       = 6
	slotPropertiesAlbumArtist = 8
	slotPropertiesArtist      = 9
	slotPropertiesAlbumTitle  = 10
	slotPropertiesThumbnail   = 15

	slotPlaybackInfoStatus = 7
)

const (
	asyncStarted   = 0
	asyncCompleted = 1
	asyncCanceled  = 2
)

const (
	asyncTimeout      = 2 * time.Second
	asyncPollInterval = 5 * time.Millisecond
)

var (
	errNoMediaSession = errors.New("no current media session")
	errAsyncCanceled  = errors.New("async operation canceled")
	errAsyncFailed    = errors.New("async operation failed")
	errAsyncTimeout   = errors.New("async operation timed out")
)

// runtimeObject is a raw pointer to a Windows Runtime interface.
type runtimeObject struct {
	ptr unsafe.Pointer
}

func (o runtimeObject) call(slot int, args ...uintptr) error {
	vtable := *(*unsafe.Pointer)(o.ptr)
	method := *(*uintptr)(unsafe.Add(vtable, uintptr(slot)*unsafe.Sizeof(uintptr(0))))

	hr, _, _ := syscall.SyscallN(method, append([]uintptr{uintptr(o.ptr)}, args...)...)
	if int32(hr) < 0 {
		return ole.NewError(hr)
	}
	return nil
}

func (o runtimeObject) release() {
	if o.ptr == nil {
		return
	}

	vtable := *(*unsafe.Pointer)(o.ptr)
	method := *(*uintptr)(unsafe.Add(vtable, uintptr(slotRelease)*unsafe.Sizeof(uintptr(0))))
	syscall.SyscallN(method, uintptr(o.ptr))
}

// object calls a getter returning an interface pointer. The result may be nil.
func (o runtimeObject) object(slot int) (runtimeObject, error) {
	var out unsafe.Pointer
	if err := o.call(slot, uintptr(unsafe.Pointer(&out))); err != nil {
		return runtimeObject{}, err
	}
	return runtimeObject{ptr: out}, nil
}

func (o runtimeObject) queryInterface(iid *ole.GUID) (runtimeObject, error) {
	var out unsafe.Pointer
	if err := o.call(slotQueryInterface, uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out))); err != nil {
		return runtimeObject{}, err
	}
	return runtimeObject{ptr: out}, nil
}

func (o runtimeObject) int32Value(slot int) (int32, error) {
	var value int32
	err := o.call(slot, uintptr(unsafe.Pointer(&value)))
	return value, err
}

func (o runtimeObject) stringValue(slot int) (string, error) {
	var value ole.HString
	if err := o.call(slot, uintptr(unsafe.Pointer(&value))); err != nil {
		return "", err
	}
	defer ole.DeleteHString(value)

	return value.String(), nil
}

// await blocks until an async operation leaves the started state.
func (o runtimeObject) await() error {
	info, err := o.queryInterface(iidAsyncInfo)
	if err != nil {
		return err
	}
	defer info.release()

	deadline := time.Now().Add(asyncTimeout)

	for {
		status, err := info.int32Value(slotAsyncInfoStatus)
		if err != nil {
			return err
		}

		switch status {
		case asyncStarted:
		case asyncCompleted:
			return nil
		case asyncCanceled:
			return errAsyncCanceled
		default:
			return errAsyncFailed
		}

		if time.Now().After(deadline) {
			return errAsyncTimeout
		}
		time.Sleep(asyncPollInterval)
	}
}

// awaitObject runs an async method returning an interface pointer and waits for its result.
func (o runtimeObject) awaitObject(slot int) (runtimeObject, error) {
	operation, err := o.object(slot)
	if err != nil {
		return runtimeObject{}, err
	}
	defer operation.release()

	if err := operation.await(); err != nil {
		return runtimeObject{}, err
	}

	return operation.object(slotAsyncOperationGetResults)
}

// awaitBool runs an async method returning a boolean and waits for its result.
func (o runtimeObject) awaitBool(slot int) (bool, error) {
	operation, err := o.object(slot)
	if err != nil {
		return false, err
	}
	defer operation.release()

	if err := operation.await(); err != nil {
		return false, err
	}

	var result uint8
	if err := operation.call(slotAsyncOperationGetResults, uintptr(unsafe.Pointer(&result))); err != nil {
		return false, err
	}

	return result != 0, nil
}

// sessionTransport talks to the current system media session, the one the volume flyout shows.
type sessionTransport struct {
	logger *zap.SugaredLogger
}

func newSessionTransport(logger *zap.SugaredLogger) *sessionTransport {
	return &sessionTransport{logger: logger.Named("media_session")}
}

// withSession resolves the current session on a thread joined to the multithreaded apartment.
func (t *sessionTransport) withSession(f func(session runtimeObject) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	leave, err := joinMultithreaded()
	if err != nil {
		return err
	}
	defer leave()

	statics, err := ole.RoGetActivationFactory(sessionManagerClass, iidSessionManagerStatics)
	if err != nil {
		return foreignError("get session manager factory", errors.Join(ErrMediaUnavailable, err))
	}

	factory := runtimeObject{ptr: unsafe.Pointer(statics)}
	defer factory.release()

	manager, err := factory.awaitObject(slotStaticsRequestAsync)
	if err != nil {
		return foreignError("request session manager", err)
	}
	defer manager.release()

	session, err := manager.object(slotManagerGetCurrentSession)
	if err != nil {
		return foreignError("get current session", err)
	}
	if session.ptr == nil {
		return errNoMediaSession
	}
	defer session.release()

	return f(session)
}

func (t *sessionTransport) CurrentMedia() (MediaInfo, bool) {
	var info MediaInfo

	err := t.withSession(func(session runtimeObject) error {
		properties, err := session.awaitObject(slotSessionTryGetMediaPropertiesAsync)
		if err != nil {
			return foreignError("get media properties", err)
		}
		defer properties.release()

		for slot, field := range map[int]*string{
			slotPropertiesTitle:       &info.Title,
			slotPropertiesArtist:      &info.Artist,
			slotPropertiesAlbumTitle:  &info.Album,
			slotPropertiesAlbumArtist: &info.AlbumArtist,
		} {
			if *field, err = properties.stringValue(slot); err != nil {
				return foreignError("read media property", err)
			}
		}

		thumbnail, err := properties.object(slotPropertiesThumbnail)
		if err == nil && thumbnail.ptr != nil {
			info.HasThumbnail = true
			thumbnail.release()
		}

		playback, err := session.object(slotSessionGetPlaybackInfo)
		if err != nil {
			return foreignError("get playback info", err)
		}
		defer playback.release()

		status, err := playback.int32Value(slotPlaybackInfoStatus)
		if err != nil {
			return foreignError("get playback status", err)
		}
		info.PlaybackStatus = sessionPlaybackStatus(status)

		return nil
	})

	if err != nil {
		if !errors.Is(err, errNoMediaSession) {
			t.logger.Debugw("Failed to read current media", "error", err)
		}
		return MediaInfo{}, false
	}

	return info, true
}

func (t *sessionTransport) command(name string, slot int) bool {
	var delivered bool

	err := t.withSession(func(session runtimeObject) (err error) {
		delivered, err = session.awaitBool(slot)
		return err
	})

	if err != nil {
		if !errors.Is(err, errNoMediaSession) {
			t.logger.Debugw("Failed to send transport command", "command", name, "error", err)
		}
		return false
	}

	t.logger.Debugw("Sent transport command", "command", name, "delivered", delivered)
	return delivered
}

func (t *sessionTransport) Play() bool     { return t.command("play", slotSessionTryPlayAsync) }
func (t *sessionTransport) Pause() bool    { return t.command("pause", slotSessionTryPauseAsync) }
func (t *sessionTransport) Next() bool     { return t.command("next", slotSessionTrySkipNextAsync) }
func (t *sessionTransport) Previous() bool { return t.command("previous", slotSessionTrySkipPreviousAsync) }
func (t *sessionTransport) Stop() bool     { return t.command("stop", slotSessionTryStopAsync) }
