// Package storage writes finished exports to disk.
//
// Files are written to a temporary name and renamed into place so a crash
// never leaves a half-written export behind. The file name comes from a
// pattern where {date} expands to YYYY-MM-DD and {timestamp} to a compact
// UTC timestamp. An existing file is never replaced unless overwrite is
// enabled; a numeric suffix is added instead.
//
//	manager, err := storage.NewManager("./exports", storage.DefaultPattern)
//	if err != nil {
//	    return err
//	}
//	path, err := manager.Save(ctx, export.Build(tracks, export.Options{}))
package storage
