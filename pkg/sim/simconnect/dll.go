//go:build windows

// Package simconnect binds SimConnect.dll for Microsoft Flight Simulator.
package simconnect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"unsafe"
)

// DLL and procedure handles
var (
	dll                          *syscall.LazyDLL
	procOpen                     *syscall.LazyProc
	procClose                    *syscall.LazyProc
	procAddToDataDefinition      *syscall.LazyProc
	procClearDataDefinition      *syscall.LazyProc
	procRequestDataOnSimObject   *syscall.LazyProc
	procGetNextDispatch          *syscall.LazyProc
	procMapClientEventToSimEvent *syscall.LazyProc
	procTransmitClientEvent      *syscall.LazyProc
	procSubscribeToSystemEvent   *syscall.LazyProc
)

// Error codes
const (
	SOK   = 0
	EFAIL = 0x80004005
)

var errNotLoaded = errors.New("SimConnect DLL not loaded")

// FindDLL returns the path to SimConnect.dll. An explicit path wins, then
// the executable directory, then the SDK locations.
func FindDLL(explicit string) (string, error) {
	var paths []string
	if explicit != "" {
		paths = append(paths, explicit)
	}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), "SimConnect.dll"))
	}
	if sdkPath := os.Getenv("MSFS_SDK"); sdkPath != "" {
		paths = append(paths, filepath.Join(sdkPath, "SimConnect SDK", "lib", "SimConnect.dll"))
	}
	paths = append(paths,
		`C:\MSFS 2024 SDK\SimConnect SDK\lib\SimConnect.dll`,
		`C:\MSFS SDK\SimConnect SDK\lib\SimConnect.dll`,
		`C:\Program Files (x86)\Microsoft Flight Simulator SDK\SimConnect SDK\lib\SimConnect.dll`,
	)

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("SimConnect.dll not found in %d locations", len(paths))
}

// LoadDLL loads the SimConnect.dll from the specified path.
func LoadDLL(path string) error {
	dll = syscall.NewLazyDLL(path)
	if err := dll.Load(); err != nil {
		return fmt.Errorf("failed to load SimConnect.dll: %w", err)
	}

	procOpen = dll.NewProc("SimConnect_Open")
	procClose = dll.NewProc("SimConnect_Close")
	procAddToDataDefinition = dll.NewProc("SimConnect_AddToDataDefinition")
	procClearDataDefinition = dll.NewProc("SimConnect_ClearDataDefinition")
	procRequestDataOnSimObject = dll.NewProc("SimConnect_RequestDataOnSimObject")
	procGetNextDispatch = dll.NewProc("SimConnect_GetNextDispatch")
	procMapClientEventToSimEvent = dll.NewProc("SimConnect_MapClientEventToSimEvent")
	procTransmitClientEvent = dll.NewProc("SimConnect_TransmitClientEvent")
	procSubscribeToSystemEvent = dll.NewProc("SimConnect_SubscribeToSystemEvent")
	return nil
}

// IsLoaded returns true if the SimConnect DLL and procedures are loaded.
func IsLoaded() bool {
	return dll != nil && procOpen != nil
}

func cString(s string) []byte {
	return append([]byte(s), 0)
}

func hresult(name string, r1 uintptr, err error) error {
	if int32(r1) < 0 {
		return fmt.Errorf("SimConnect_%s failed: %v (0x%x)", name, err, uint32(r1))
	}
	return nil
}

// Open establishes a connection to SimConnect and returns its handle.
func Open(name string) (uintptr, error) {
	if !IsLoaded() {
		return 0, errNotLoaded
	}
	var handle uintptr
	namePtr := cString(name)

	r1, _, err := procOpen.Call(
		uintptr(unsafe.Pointer(&handle)),
		uintptr(unsafe.Pointer(&namePtr[0])),
		0, // hWnd
		0, // UserEventWin32
		0, // EventHandle
		0, // ConfigIndex
	)
	if err := hresult("Open", r1, err); err != nil {
		return 0, err
	}
	return handle, nil
}

// Close terminates the SimConnect connection.
func Close(handle uintptr) error {
	if !IsLoaded() {
		return nil
	}
	r1, _, err := procClose.Call(handle)
	return hresult("Close", r1, err)
}

// AddToDataDefinition adds a variable to a data definition.
func AddToDataDefinition(handle uintptr, defineID uint32, datumName, unitsName string, datumType uint32) error {
	if !IsLoaded() {
		return errNotLoaded
	}
	namePtr := cString(datumName)
	var unitsArg uintptr
	var unitsPtr []byte
	if unitsName != "" {
		unitsPtr = cString(unitsName)
		unitsArg = uintptr(unsafe.Pointer(&unitsPtr[0]))
	}

	r1, _, err := procAddToDataDefinition.Call(
		handle,
		uintptr(defineID),
		uintptr(unsafe.Pointer(&namePtr[0])),
		unitsArg,
		uintptr(datumType),
		uintptr(0), // fEpsilon
		uintptr(UNUSED),
	)
	if err := hresult("AddToDataDefinition", r1, err); err != nil {
		return fmt.Errorf("%s: %w", datumName, err)
	}
	return nil
}

// ClearDataDefinition removes every datum of a definition.
func ClearDataDefinition(handle uintptr, defineID uint32) error {
	if !IsLoaded() {
		return errNotLoaded
	}
	r1, _, err := procClearDataDefinition.Call(handle, uintptr(defineID))
	return hresult("ClearDataDefinition", r1, err)
}

// RequestDataOnSimObject requests data updates for a sim object.
func RequestDataOnSimObject(handle uintptr, requestID, defineID, objectID, period, flags uint32) error {
	if !IsLoaded() {
		return errNotLoaded
	}
	r1, _, err := procRequestDataOnSimObject.Call(
		handle,
		uintptr(requestID),
		uintptr(defineID),
		uintptr(objectID),
		uintptr(period),
		uintptr(flags),
		0, // origin
		0, // interval
		0, // limit
	)
	return hresult("RequestDataOnSimObject", r1, err)
}

// GetNextDispatch retrieves the next message from SimConnect.
// Returns nil, 0, nil if no message is available.
func GetNextDispatch(handle uintptr) (ppData unsafe.Pointer, cbData uint32, err error) {
	if !IsLoaded() {
		return nil, 0, errNotLoaded
	}
	r1, _, _ := procGetNextDispatch.Call(
		handle,
		uintptr(unsafe.Pointer(&ppData)),
		uintptr(unsafe.Pointer(&cbData)),
	)
	if uint32(r1) == EFAIL {
		return nil, 0, nil
	}
	if int32(r1) < 0 {
		return nil, 0, fmt.Errorf("SimConnect_GetNextDispatch failed: 0x%x", uint32(r1))
	}
	return ppData, cbData, nil
}

// MapClientEventToSimEvent binds a client event id to a simulator event.
func MapClientEventToSimEvent(handle uintptr, eventID uint32, eventName string) error {
	if !IsLoaded() {
		return errNotLoaded
	}
	namePtr := cString(eventName)
	r1, _, err := procMapClientEventToSimEvent.Call(
		handle,
		uintptr(eventID),
		uintptr(unsafe.Pointer(&namePtr[0])),
	)
	if err := hresult("MapClientEventToSimEvent", r1, err); err != nil {
		return fmt.Errorf("%s: %w", eventName, err)
	}
	return nil
}

// TransmitClientEvent sends a mapped event to the user aircraft.
func TransmitClientEvent(handle uintptr, eventID, data uint32) error {
	if !IsLoaded() {
		return errNotLoaded
	}
	r1, _, err := procTransmitClientEvent.Call(
		handle,
		uintptr(OBJECT_ID_USER),
		uintptr(eventID),
		uintptr(data),
		uintptr(GROUP_PRIORITY_HIGHEST),
		uintptr(EVENT_FLAG_GROUPID_IS_PRIORITY),
	)
	return hresult("TransmitClientEvent", r1, err)
}

// SubscribeToSystemEvent subscribes to a system event like "SimStart" or "SimStop".
func SubscribeToSystemEvent(handle uintptr, clientEventID uint32, eventName string) error {
	if !IsLoaded() {
		return errNotLoaded
	}
	namePtr := cString(eventName)
	r1, _, err := procSubscribeToSystemEvent.Call(
		handle,
		uintptr(clientEventID),
		uintptr(unsafe.Pointer(&namePtr[0])),
	)
	if err := hresult("SubscribeToSystemEvent", r1, err); err != nil {
		return fmt.Errorf("%s: %w", eventName, err)
	}
	return nil
}
