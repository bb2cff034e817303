//go:build windows

package input

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/windows"

	"keyoverlay/internal/keys"
)

const metaName = keys.Win

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmQuit        = 0x0012
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmLButtonDown = 0x0201
	wmRButtonDown = 0x0204
)

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    syscall.Handle
	Message uint32
	Wparam  uintptr
	Lparam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// Low-level hook procedures carry no user data, so they find their tap by
// the id of the thread that installed the hook and pumps its messages.
var (
	hooks sync.Map // uint32 thread id -> *windowsTap

	keyboardProc = syscall.NewCallback(keyboardHook)
	mouseProc    = syscall.NewCallback(mouseHook)
)

type windowsTap struct {
	mu      sync.Mutex
	tid     uint32
	running bool

	handler Handler
}

func newTap() Tap {
	return &windowsTap{}
}

// Run registers the tap for this thread before installing the hooks and
// unregisters it only after both hooks are removed.
func (t *windowsTap) Run(h Handler, installed func()) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	t.handler = h
	tid := windows.GetCurrentThreadId()
	hooks.Store(tid, t)
	defer hooks.Delete(tid)

	hMod, _, _ := procGetModuleHandle.Call(0)

	kb, _, err := procSetWindowsHookEx.Call(whKeyboardLL, keyboardProc, hMod, 0)
	if kb == 0 {
		return fmt.Errorf("%w: keyboard hook: %v", ErrHookFailed, err)
	}
	ms, _, err := procSetWindowsHookEx.Call(whMouseLL, mouseProc, hMod, 0)
	if ms == 0 {
		procUnhookWindowsHookEx.Call(kb)
		return fmt.Errorf("%w: mouse hook: %v", ErrHookFailed, err)
	}

	t.mu.Lock()
	t.tid = tid
	t.running = true
	t.mu.Unlock()

	log.Info().Str("component", "input").Uint32("thread", tid).Msg("Windows hooks active (keyboard + mouse)")
	installed()

	var m msg
	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}

	t.mu.Lock()
	t.running = false
	t.tid = 0
	t.mu.Unlock()

	procUnhookWindowsHookEx.Call(kb)
	procUnhookWindowsHookEx.Call(ms)

	log.Info().Str("component", "input").Msg("Windows hooks stopped")
	return nil
}

func (t *windowsTap) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return false
	}
	procPostThreadMessage.Call(uintptr(t.tid), wmQuit, 0, 0)
	return true
}

func current() *windowsTap {
	v, ok := hooks.Load(windows.GetCurrentThreadId())
	if !ok {
		return nil
	}
	return v.(*windowsTap)
}

func keyboardHook(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode >= 0 {
		observeKey(wParam, lParam)
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func mouseHook(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode >= 0 {
		observeMouse(wParam)
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func observeKey(wParam, lParam uintptr) {
	defer recoverHook()

	t := current()
	if t == nil {
		return
	}

	var kind Kind
	switch wParam {
	case wmKeyDown, wmSysKeyDown:
		kind = KeyDown
	case wmKeyUp, wmSysKeyUp:
		kind = KeyUp
	default:
		return
	}
	kbd := (*kbdllHookStruct)(unsafe.Pointer(lParam))
	deliver(t.handler, Event{Kind: kind, Key: keys.Windows(kbd.VkCode)})
}

func observeMouse(wParam uintptr) {
	defer recoverHook()

	t := current()
	if t == nil {
		return
	}

	switch wParam {
	case wmLButtonDown:
		deliver(t.handler, Event{Kind: MouseDown, Key: keys.LeftClick})
	case wmRButtonDown:
		deliver(t.handler, Event{Kind: MouseDown, Key: keys.RightClick})
	}
}

func recoverHook() {
	if r := recover(); r != nil {
		log.Error().Str("component", "input").Interface("panic", r).Msg("Recovered panic in hook procedure")
	}
}

// Low-level hooks need no special permission.
func preflight() bool { return true }

func requestAccess() bool { return true }
