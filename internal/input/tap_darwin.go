//go:build darwin

package input

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices
#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>
#include <stdbool.h>

CGEventRef keyoverlayTapCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon);

typedef struct {
    CFMachPortRef port;
    CFRunLoopSourceRef source;
    CFRunLoopRef loop;
} tapRefs;

static inline int installTap(uintptr_t refcon, tapRefs *out) {
    CGEventMask mask = CGEventMaskBit(kCGEventLeftMouseDown) |
        CGEventMaskBit(kCGEventRightMouseDown) |
        CGEventMaskBit(kCGEventKeyDown) |
        CGEventMaskBit(kCGEventKeyUp) |
        CGEventMaskBit(kCGEventFlagsChanged);

    CFMachPortRef port = CGEventTapCreate(
        kCGHIDEventTap,
        kCGHeadInsertEventTap,
        kCGEventTapOptionListenOnly,
        mask,
        keyoverlayTapCallback,
        (void*)refcon
    );
    if (port == NULL) {
        return 0;
    }

    out->port = port;
    out->source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, port, 0);
    out->loop = CFRunLoopGetCurrent();
    CFRunLoopAddSource(out->loop, out->source, kCFRunLoopCommonModes);
    CGEventTapEnable(port, true);
    return 1;
}

static inline void removeTap(tapRefs *refs) {
    CGEventTapEnable(refs->port, false);
    CFRunLoopRemoveSource(refs->loop, refs->source, kCFRunLoopCommonModes);
    CFRelease(refs->source);
    CFMachPortInvalidate(refs->port);
    CFRelease(refs->port);
}

static inline void enableTap(tapRefs *refs) {
    CGEventTapEnable(refs->port, true);
}

static inline void stopLoop(tapRefs *refs) {
    CFRunLoopStop(refs->loop);
}

// runSlice runs the current loop in the default mode for at most seconds.
static inline void runSlice(double seconds) {
    CFRunLoopRunInMode(kCFRunLoopDefaultMode, seconds, false);
}

static inline bool preflightListen(void) {
    return CGPreflightListenEventAccess();
}

static inline bool requestListen(void) {
    return CGRequestListenEventAccess();
}
*/
import "C"

import (
	"runtime"
	"runtime/cgo"
	"sync"
	"time"
	"unsafe"

	"github.com/rs/zerolog/log"

	"keyoverlay/internal/keys"
)

const metaName = keys.Command

// CGEventFlags bits for the four tracked modifiers.
const (
	flagShift   = 0x00020000
	flagControl = 0x00040000
	flagOption  = 0x00080000
	flagCommand = 0x00100000
)

// CGEventType values delivered to the callback.
const (
	typeLeftMouseDown          = 1
	typeRightMouseDown         = 3
	typeKeyDown                = 10
	typeKeyUp                  = 11
	typeFlagsChanged           = 12
	typeTapDisabledByTimeout   = 0xFFFFFFFE
	typeTapDisabledByUserInput = 0xFFFFFFFF
)

// loopSlice bounds how long a stop requested before the run loop is
// entered can go unnoticed.
const loopSlice = 250 * time.Millisecond

type darwinTap struct {
	mu      sync.Mutex
	refs    C.tapRefs
	running bool
	// stopping is set by Stop and checked between run loop slices. A
	// CFRunLoopStop that lands before the loop is entered is otherwise lost.
	stopping bool

	handler Handler
}

func newTap() Tap {
	return &darwinTap{}
}

// Run owns the callback context: the cgo handle passed as refcon is only
// deleted after the tap has been removed from the run loop.
func (t *darwinTap) Run(h Handler, installed func()) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	t.handler = h
	handle := cgo.NewHandle(t)
	defer handle.Delete()

	var refs C.tapRefs
	if C.installTap(C.uintptr_t(handle), &refs) == 0 {
		return ErrPermissionDenied
	}

	t.mu.Lock()
	t.refs = refs
	t.running = true
	t.stopping = false
	t.mu.Unlock()

	log.Info().Str("component", "input").Msg("CGEventTap active (listen-only)")
	installed()

	for !t.stopRequested() {
		C.runSlice(C.double(loopSlice.Seconds()))
	}

	t.mu.Lock()
	t.running = false
	t.mu.Unlock()
	C.removeTap(&refs)

	log.Info().Str("component", "input").Msg("CGEventTap stopped")
	return nil
}

func (t *darwinTap) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return false
	}
	t.stopping = true
	C.stopLoop(&t.refs)
	return true
}

func (t *darwinTap) stopRequested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopping
}

//export keyoverlayTapCallback
func keyoverlayTapCallback(proxy C.CGEventTapProxy, eventType C.CGEventType, event C.CGEventRef, refcon unsafe.Pointer) C.CGEventRef {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("component", "input").Interface("panic", r).Msg("Recovered panic in tap callback")
		}
	}()

	t := cgo.Handle(uintptr(refcon)).Value().(*darwinTap)

	switch uint32(eventType) {
	case typeTapDisabledByTimeout, typeTapDisabledByUserInput:
		log.Warn().Str("component", "input").Msg("CGEventTap disabled by the system, re-enabling")
		C.enableTap(&t.refs)

	case typeKeyDown, typeKeyUp:
		code := uint16(C.CGEventGetIntegerValueField(event, C.kCGKeyboardEventKeycode))
		kind := KeyDown
		if uint32(eventType) == typeKeyUp {
			kind = KeyUp
		}
		deliver(t.handler, Event{Kind: kind, Key: keys.Darwin(code)})

	case typeFlagsChanged:
		deliver(t.handler, Event{Kind: FlagsChanged, Modifiers: modifiersFromFlags(uint64(C.CGEventGetFlags(event)))})

	case typeLeftMouseDown:
		deliver(t.handler, Event{Kind: MouseDown, Key: keys.LeftClick})

	case typeRightMouseDown:
		deliver(t.handler, Event{Kind: MouseDown, Key: keys.RightClick})
	}

	return event
}

func modifiersFromFlags(flags uint64) keys.Modifiers {
	var m keys.Modifiers
	if flags&flagCommand != 0 {
		m |= keys.ModMeta
	}
	if flags&flagControl != 0 {
		m |= keys.ModCtrl
	}
	if flags&flagOption != 0 {
		m |= keys.ModAlt
	}
	if flags&flagShift != 0 {
		m |= keys.ModShift
	}
	return m
}

func preflight() bool {
	return bool(C.preflightListen())
}

func requestAccess() bool {
	return bool(C.requestListen())
}
