// Package winapi binds the monitor's OS boundary (process memory, windows,
// window event hooks and input state) to the Win32 API.
//
// On other platforms every constructor succeeds but operations fail with
// domain.ErrNotSupported, so the rest of the module builds and tests anywhere.
package winapi
