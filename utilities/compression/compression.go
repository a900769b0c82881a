package compression

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// CompressImage RLE8-encodes a raw FAT32 volume image, then gzips the
// result at the highest compression level, writing the combined output to
// output. Used by fixture-preparation tooling, not by the mount/format
// core itself. The returned count is only valid when err is nil.
func CompressImage(input io.Reader, output io.Writer) (int64, error) {
	writer := byteCountingWriter{Writer: output}

	gzWriter, err := gzip.NewWriterLevel(&writer, gzip.BestCompression)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	_, err = CompressRLE8(input, gzWriter)
	closeErr := gzWriter.Close()
	if err != nil {
		err = fmt.Errorf("RLE8 compression error: %w", err)
	} else if closeErr != nil {
		err = fmt.Errorf("gzip compression error: %w", closeErr)
	}
	return writer.BytesWritten, err
}

// DecompressImage reverses CompressImage: input is gzipped RLE8 data, and
// the expanded volume image is written to output.
func DecompressImage(input io.Reader, output io.Writer) (int64, error) {
	gzReader, err := gzip.NewReader(input)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()
	return DecompressRLE8(gzReader, output)
}

// DecompressImageToBytes wraps DecompressImage, returning the expanded
// volume image as a byte slice instead of writing to an io.Writer. This is
// what fat32test uses to expand an embedded golden fixture at test time.
func DecompressImageToBytes(input io.Reader) ([]byte, error) {
	buffer := bytes.Buffer{}
	writer := bufio.NewWriter(&buffer)
	_, err := DecompressImage(input, writer)
	if err != nil {
		return nil, err
	}

	writer.Flush()

	outputSlice := make([]byte, buffer.Len())
	copy(outputSlice, buffer.Bytes())
	return outputSlice, nil
}

// byteCountingWriter tallies bytes successfully written to an io.Writer,
// which gzip.Writer otherwise gives no way to recover.
type byteCountingWriter struct {
	Writer       io.Writer
	BytesWritten int64
}

func (w *byteCountingWriter) Write(b []byte) (int, error) {
	n, err := w.Writer.Write(b)
	if err == nil {
		w.BytesWritten += int64(n)
	}
	return n, err
}
