package paging

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

// SwapFile is a fixed-page-size, page-addressable backing store for
// swapped-out String values (§4.J: "a file pre-allocated to a fixed
// page size and page count; objects are serialized into one or more
// whole pages"). Each write is prefixed with its own length so a
// value that doesn't fill its last page doesn't need to be read back
// padded.
type SwapFile struct {
	mu       sync.Mutex
	f        *os.File
	pageSize int
	bmp      *bitmap
}

const lengthPrefixSize = 4

// Open creates (or truncates) the swap file at path, sized to hold
// numPages pages of pageSize bytes each.
func Open(path string, pageSize, numPages int) (*SwapFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("paging: open swap file: %w", err)
	}
	if err := f.Truncate(int64(pageSize) * int64(numPages)); err != nil {
		f.Close()
		return nil, fmt.Errorf("paging: size swap file: %w", err)
	}
	return &SwapFile{f: f, pageSize: pageSize, bmp: newBitmap(numPages)}, nil
}

func (sf *SwapFile) Close() error { return sf.f.Close() }

// PagesFor returns the number of whole pages needed to hold n bytes
// plus the length prefix.
func (sf *SwapFile) PagesFor(n int) int {
	total := n + lengthPrefixSize
	return (total + sf.pageSize - 1) / sf.pageSize
}

// Write serializes data into freshly allocated pages and returns their
// starting page index and count. Returns an error if the file has no
// run of free pages long enough.
func (sf *SwapFile) Write(data []byte) (start, count int, err error) {
	count = sf.PagesFor(len(data))

	sf.mu.Lock()
	start, ok := sf.bmp.alloc(count)
	sf.mu.Unlock()
	if !ok {
		return 0, 0, fmt.Errorf("paging: swap file full (need %d pages)", count)
	}

	buf := make([]byte, count*sf.pageSize)
	binary.BigEndian.PutUint32(buf[:lengthPrefixSize], uint32(len(data)))
	copy(buf[lengthPrefixSize:], data)

	if _, err := sf.f.WriteAt(buf, int64(start)*int64(sf.pageSize)); err != nil {
		sf.mu.Lock()
		sf.bmp.free(start, count)
		sf.mu.Unlock()
		return 0, 0, fmt.Errorf("paging: write pages: %w", err)
	}
	return start, count, nil
}

// Read loads the value written at [start, start+count) pages.
func (sf *SwapFile) Read(start, count int) ([]byte, error) {
	buf := make([]byte, count*sf.pageSize)
	if _, err := sf.f.ReadAt(buf, int64(start)*int64(sf.pageSize)); err != nil {
		return nil, fmt.Errorf("paging: read pages: %w", err)
	}
	n := binary.BigEndian.Uint32(buf[:lengthPrefixSize])
	if int(n) > len(buf)-lengthPrefixSize {
		return nil, fmt.Errorf("paging: corrupt page header at page %d", start)
	}
	out := make([]byte, n)
	copy(out, buf[lengthPrefixSize:lengthPrefixSize+int(n)])
	return out, nil
}

// Free releases pages back to the allocator, e.g. after a completed
// load or a canceled swap-out write.
func (sf *SwapFile) Free(start, count int) {
	sf.mu.Lock()
	sf.bmp.free(start, count)
	sf.mu.Unlock()
}
