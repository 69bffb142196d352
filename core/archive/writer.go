package archive

import (
	"bytes"
	"io"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/kilianp07/evload/core/model"
)

// Write stores files as deflated zip entries in the given order.
func Write(w io.Writer, files ...model.ExtractedFile) error {
	zw := zip.NewWriter(w)
	for _, f := range files {
		hdr := &zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: time.Now()}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			_ = zw.Close()
			return err
		}
		if _, err := io.WriteString(fw, f.Content); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

// Bytes is Write into a fresh buffer.
func Bytes(files ...model.ExtractedFile) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, files...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
