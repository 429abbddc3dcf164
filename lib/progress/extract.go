package progress

import (
	"context"

	"github.com/cartvfs/n3ds/internal/hostfs"
	"github.com/cartvfs/n3ds/lib/vfs"
)

// rom is the slice of *vfs.Rom this package depends on, kept narrow so
// extraction can be unit tested against a fake.
type rom interface {
	GetFiles(dir, pattern string, topDirectoryOnly bool) ([]string, error)
	ReadAllBytes(path string) ([]byte, error)
	GetFileLength(path string) (int64, error)
}

var _ rom = (*vfs.Rom)(nil)

// Extract copies every file under src (recursively) into dst, publishing
// one Token to publish per file as it completes, honoring ctx cancellation
// between files. It is the one example consumer of Aggregator.Track —
// most callers will want their own extraction loop shaped around their own
// UI, but this is the common "copy the whole ROM out to disk" case.
func Extract(ctx context.Context, r rom, dst hostfs.FS, publish func(Token)) error {
	files, err := r.GetFiles("/", "*", false)
	if err != nil {
		return err
	}

	var total int64
	lengths := make(map[string]int64, len(files))
	for _, f := range files {
		n, err := r.GetFileLength(f)
		if err != nil {
			return err
		}
		lengths[f] = n
		total += n
	}

	var processed int64
	publish(Token{Processed: 0, Total: total})

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := r.ReadAllBytes(f)
		if err != nil {
			return err
		}
		if err := dst.WriteAllBytes(f, data); err != nil {
			return err
		}
		processed += lengths[f]
		publish(Token{Processed: processed, Total: total})
	}
	return nil
}
