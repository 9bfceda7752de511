// Package fsutil wraps the filesystem calls used by sprite processing with a
// bounded fixed-delay retry for transient contention errors (locked files,
// permission races with editors and sync clients).
package fsutil
