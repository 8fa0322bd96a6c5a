// Package group batches register access to many servos into one bus
// exchange using the SYNC_WRITE and SYNC_READ instructions.
//
// A session covers one register window (start address and length) shared by
// every servo in it. Entries are kept in ascending id order, which is the
// order they are serialised on the wire.
//
// Sessions are not safe for concurrent mutation; the packet handler they use
// is.
package group
