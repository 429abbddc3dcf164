package accessor

import "github.com/cartvfs/n3ds/lib/vfserr"

var errNotMutable = vfserr.New(vfserr.NotSupported, "", "accessor is read-only", nil)

// fileBacking is the minimal capability a file-backed accessor needs from
// its underlying store: random-access read, and optionally write.
type fileBacking interface {
	ReadAt(p []byte, off int64) (int, error)
}

type fileBackingWriter interface {
	fileBacking
	WriteAt(p []byte, off int64) (int, error)
}

// FileAccessor is a byte accessor backed by a file (or anything
// implementing io.ReaderAt, optionally io.WriterAt), windowed to
// [base, base+len) within it.
type FileAccessor struct {
	r    fileBacking
	w    fileBackingWriter // nil if read-only
	base int64
	len  int64
}

// NewFile wraps r as a read-only root FileAccessor covering
// [base, base+length). Use NewFileRW when the backing also supports
// WriteAt.
func NewFile(r fileBacking, base, length int64) *FileAccessor {
	return &FileAccessor{r: r, base: base, len: length}
}

// NewFileRW wraps rw (supporting both ReadAt and WriteAt) as a root mutable
// FileAccessor covering [base, base+length).
func NewFileRW(rw fileBackingWriter, base, length int64) *FileAccessor {
	return &FileAccessor{r: rw, w: rw, base: base, len: length}
}

func (f *FileAccessor) Len() int64 { return f.len }

func (f *FileAccessor) ReadAt(p []byte, off int64) (int, error) {
	if err := checkBounds(f.len, off, int64(len(p))); err != nil {
		return 0, err
	}
	return f.r.ReadAt(p, f.base+off)
}

func (f *FileAccessor) WriteAt(p []byte, off int64) (int, error) {
	if f.w == nil {
		return 0, errNotMutable
	}
	if err := checkBounds(f.len, off, int64(len(p))); err != nil {
		return 0, err
	}
	return f.w.WriteAt(p, f.base+off)
}

func (f *FileAccessor) Write(off int64, data []byte) error {
	_, err := f.WriteAt(data, off)
	return err
}

func (f *FileAccessor) Read(off, n int64) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := f.ReadAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

func (f *FileAccessor) ReadU8LE(off int64) (uint8, error) {
	v, err := readLE(f, off, 1)
	return uint8(v), err
}

func (f *FileAccessor) ReadU16LE(off int64) (uint16, error) {
	v, err := readLE(f, off, 2)
	return uint16(v), err
}

func (f *FileAccessor) ReadU32LE(off int64) (uint32, error) {
	v, err := readLE(f, off, 4)
	return uint32(v), err
}

func (f *FileAccessor) ReadU64LE(off int64) (uint64, error) {
	return readLE(f, off, 8)
}

func (f *FileAccessor) ReadString(off, n int64) (string, error) {
	buf, err := f.Read(off, n)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func (f *FileAccessor) Slice(off, n int64) (Accessor, error) {
	if err := checkBounds(f.len, off, n); err != nil {
		return nil, err
	}
	return &FileAccessor{r: f.r, w: f.w, base: f.base + off, len: n}, nil
}

func (f *FileAccessor) SliceMutable(off, n int64) (MutableAccessor, error) {
	if f.w == nil {
		return nil, errNotMutable
	}
	if err := checkBounds(f.len, off, n); err != nil {
		return nil, err
	}
	return &FileAccessor{r: f.r, w: f.w, base: f.base + off, len: n}, nil
}

var (
	_ Accessor        = (*FileAccessor)(nil)
	_ MutableAccessor = (*FileAccessor)(nil)
)
