// Package swapscratch implements the scratch-based image swap engine of an
// embedded MCU bootloader: it atomically exchanges the contents of a
// primary and a secondary flash slot through a small fixed-size scratch
// region, journaling progress to flash so the swap can resume after an
// arbitrary power loss or reset.
//
// The package does not implement flash I/O, image verification, or swap
// policy; those are supplied by the caller through the FlashArea
// interface. See MemFlash for an in-memory reference implementation
// suitable for tests.
package swapscratch
