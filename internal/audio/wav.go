package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// WriteWAV writes a buffer to a 32-bit float mono WAV file.
// Intermediate stage files use float so that repeated round-trips through
// the filter graph do not accumulate quantisation error.
func WriteWAV(path string, buf *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}
	if err := writeWAV(f, buf); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close WAV file: %w", err)
	}
	return nil
}

// writeWAV writes a mono IEEE-float WAV stream (format tag 3).
func writeWAV(f *os.File, buf *Buffer) error {
	const (
		numChannels   = 1
		bitsPerSample = 32
		formatFloat   = 3
	)

	byteRate := buf.SampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := len(buf.Samples) * 4
	fileSize := 36 + dataSize

	w := bufio.NewWriter(f)

	// RIFF header
	if _, err := w.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(fileSize)); err != nil {
		return err
	}
	if _, err := w.Write([]byte("WAVE")); err != nil {
		return err
	}

	// fmt subchunk
	if _, err := w.Write([]byte("fmt ")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(formatFloat)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(numChannels)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(buf.SampleRate)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(byteRate)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(blockAlign)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(bitsPerSample)); err != nil {
		return err
	}

	// data subchunk
	if _, err := w.Write([]byte("data")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(dataSize)); err != nil {
		return err
	}

	for _, s := range buf.Samples {
		if err := binary.Write(w, binary.LittleEndian, float32(s)); err != nil {
			return err
		}
	}

	return w.Flush()
}
