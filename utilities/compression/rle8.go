package compression

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// CompressRLE8 reads input to exhaustion and writes its RLE8 encoding to
// output, returning the number of bytes written (valid only when err is
// nil).
func CompressRLE8(input io.Reader, output io.Writer) (int64, error) {
	grouper := NewRLEGrouper(input)

	totalBytesWritten := int64(0)
	for {
		run, getRunErr := grouper.GetNextRun()
		if getRunErr != nil && !errors.Is(getRunErr, io.EOF) {
			return totalBytesWritten, getRunErr
		}

		for run.RunLength >= 2 {
			var repeatCount int
			if run.RunLength > 257 {
				repeatCount = 255
			} else {
				repeatCount = run.RunLength - 2
			}

			n, err := output.Write([]byte{run.Byte, run.Byte, byte(repeatCount)})
			if err != nil {
				return totalBytesWritten, err
			}
			totalBytesWritten += int64(n)
			run.RunLength -= repeatCount + 2
		}

		if run.RunLength == 1 {
			n, err := output.Write([]byte{run.Byte})
			if err != nil {
				return totalBytesWritten, err
			}
			totalBytesWritten += int64(n)
		}

		// getRunErr is either nil (loop again) or io.EOF (we're done) —
		// anything else already returned above.
		if getRunErr != nil {
			return totalBytesWritten, nil
		}
	}
}

// DecompressRLE8 reverses CompressRLE8: reads an RLE8 stream from input and
// writes the expanded bytes to output, returning the expanded byte count.
func DecompressRLE8(input io.Reader, output io.Writer) (int64, error) {
	source := bufio.NewReader(input)
	lastByteRead := -1
	totalBytesWritten := int64(0)

	for {
		currentByte, err := source.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return totalBytesWritten, nil
			}
			return totalBytesWritten, fmt.Errorf("error reading input: %w", err)
		}

		var currentOutput []byte
		if int(currentByte) == lastByteRead {
			// Two identical bytes in a row: the next byte is a repeat count.
			repeatCountByte, err := source.ReadByte()
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = fmt.Errorf(
						"%w: missing repeat count after two %02x bytes",
						io.ErrUnexpectedEOF,
						uint(lastByteRead),
					)
				}
				return totalBytesWritten, fmt.Errorf("error reading input: %w", err)
			}

			// +1, not +2: the previous loop iteration already wrote one copy.
			currentOutput = bytes.Repeat([]byte{currentByte}, int(repeatCountByte)+1)

			// Reset so a run of 258+ bytes (split across groups on encode)
			// doesn't get treated as one continuous run on decode.
			lastByteRead = -1
		} else {
			lastByteRead = int(currentByte)
			currentOutput = []byte{currentByte}
		}

		n, err := output.Write(currentOutput)
		if err != nil {
			return totalBytesWritten, fmt.Errorf("failed to write to output: %w", err)
		}
		totalBytesWritten += int64(n)
	}
}
