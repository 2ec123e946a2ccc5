package palette

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/okian/huematch/internal/domain/model"
)

const filePermission = 0o644

// Encode writes records as a palette image in the requested format version.
func Encode(w io.Writer, records []model.ColorRecord, version uint32) error {
	if uint64(len(records)) > math.MaxUint32 {
		return fmt.Errorf("too many records: %d", len(records))
	}
	h := header{magic: Magic, version: version, count: uint32(len(records))}
	var encode func(*bytes.Buffer, model.ColorRecord)
	switch version {
	case Version1:
		encode = encodeV1
	case Version2:
		h.recordSize = RecordSizeV2
		encode = encodeV2
	default:
		return fmt.Errorf("unsupported palette version %d", version)
	}

	var buf bytes.Buffer
	buf.Write(h.encode())
	for _, rec := range records {
		encode(&buf, rec)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteFile encodes records to path. The file is written to a temporary
// sibling first and renamed into place so readers never see a partial file.
func WriteFile(path string, records []model.ColorRecord, version uint32) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, records, version); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err = os.Chmod(tmp.Name(), filePermission); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
