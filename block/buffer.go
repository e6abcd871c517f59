// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package block cycles a fixed pool of sample blocks between a producer and
// a consumer over two lock-free SPSC queues.
//
// The producer fills the current write block and publishes it on the filled
// queue once it is full. The consumer drains blocks from the filled queue and
// hands each one back on the free queue. Block memory is allocated once; the
// queues carry only block indices, so neither side allocates or copies more
// than the samples it writes or reads.
//
//	capture callback --Write--> [filled] --Read--> processing
//	                 <---------- [free] <---------
//
// Buffer[byte] implements io.Reader and io.Writer with non-blocking
// semantics: short writes and empty reads return spsc.ErrWouldBlock.
package block

import (
	"errors"
	"fmt"
	"io"
	"math"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spsc"
	"golang.org/x/sys/cpu"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("block: invalid config")

// Config describes the block pool.
type Config struct {
	// BlockSize is the number of samples per block.
	BlockSize int
	// BlockCount is the number of blocks in the pool.
	BlockCount int
}

// DefaultConfig returns 8 blocks of 512 samples.
func DefaultConfig() Config {
	return Config{BlockSize: 512, BlockCount: 8}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BlockSize < 1 {
		return fmt.Errorf("%w: block size %d", ErrInvalidConfig, c.BlockSize)
	}
	if c.BlockCount < 1 || c.BlockCount > math.MaxInt32 {
		return fmt.Errorf("%w: block count %d", ErrInvalidConfig, c.BlockCount)
	}
	if c.BlockSize > math.MaxInt/c.BlockCount {
		return fmt.Errorf("%w: %d blocks of %d samples overflow", ErrInvalidConfig, c.BlockCount, c.BlockSize)
	}
	return nil
}

// span is a published block: its index and the number of valid samples.
type span struct {
	idx int32
	n   int32
}

// Buffer is a pool of fixed-size sample blocks shared by one producer and
// one consumer.
//
// Write, WriteBlock, Commit and Flush belong to the producer goroutine.
// Read, ReadBlock and Release belong to the consumer goroutine.
// FilledBlocks, FreeBlocks, Len, Cap and Stats may be called from anywhere
// and are advisory. Reset and Resize are not safe for concurrent use.
type Buffer[S any] struct {
	samples []S
	size    int
	count   int
	free    *spsc.Queue[int32] // consumer → producer
	filled  *spsc.Queue[span]  // producer → consumer

	_        cpu.CacheLinePad
	wIdx     int32 // current write block, -1 if none
	wPos     int
	written  atomix.Uint64
	overruns atomix.Uint64

	_         cpu.CacheLinePad
	rIdx      int32 // current read block, -1 if none
	rPos      int
	rLen      int
	read      atomix.Uint64
	underruns atomix.Uint64
	_         cpu.CacheLinePad
}

var _ io.ReadWriter = (*Buffer[byte])(nil)

// New creates a Buffer with every block free.
func New[S any](cfg Config) (*Buffer[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	free, err := spsc.NewQueue[int32](cfg.BlockCount)
	if err != nil {
		return nil, err
	}
	filled, err := spsc.NewQueue[span](cfg.BlockCount)
	if err != nil {
		return nil, err
	}

	b := &Buffer[S]{free: free, filled: filled}
	b.alloc(cfg)
	return b, nil
}

func (b *Buffer[S]) alloc(cfg Config) {
	b.samples = make([]S, cfg.BlockSize*cfg.BlockCount)
	b.size = cfg.BlockSize
	b.count = cfg.BlockCount
	b.Reset()
}

// block returns the full storage of block idx.
func (b *Buffer[S]) block(idx int32) []S {
	off := int(idx) * b.size
	return b.samples[off : off+b.size : off+b.size]
}

// =============================================================================
// Producer side
// =============================================================================

func (b *Buffer[S]) acquireWrite() bool {
	if b.wIdx >= 0 {
		return true
	}
	idx, err := b.free.Dequeue()
	if err != nil {
		return false
	}
	b.wIdx = idx
	b.wPos = 0
	return true
}

func (b *Buffer[S]) publish() {
	sp := span{idx: b.wIdx, n: int32(b.wPos)}
	// At most count blocks exist and the queue holds at least count.
	if err := b.filled.Enqueue(&sp); err != nil {
		panic("block: filled queue overflow")
	}
	b.wIdx = -1
	b.wPos = 0
}

// Write copies samples into the pool, publishing every block it fills.
//
// If no free block is left, Write returns the number of samples copied so
// far and spsc.ErrWouldBlock. The rest is the caller's to drop or retry.
func (b *Buffer[S]) Write(samples []S) (int, error) {
	n := 0
	for n < len(samples) {
		if !b.acquireWrite() {
			b.written.Add(uint64(n))
			b.overruns.Add(1)
			return n, spsc.ErrWouldBlock
		}
		c := copy(b.block(b.wIdx)[b.wPos:], samples[n:])
		b.wPos += c
		n += c
		if b.wPos == b.size {
			b.publish()
		}
	}
	b.written.Add(uint64(n))
	return n, nil
}

// WriteBlock returns the unfilled tail of the current write block for the
// producer to fill in place. Call Commit with the number of samples stored.
// Returns spsc.ErrWouldBlock if no free block is left.
func (b *Buffer[S]) WriteBlock() ([]S, error) {
	if !b.acquireWrite() {
		b.overruns.Add(1)
		return nil, spsc.ErrWouldBlock
	}
	return b.block(b.wIdx)[b.wPos:], nil
}

// Commit marks n samples of the slice returned by WriteBlock as written,
// publishing the block once it is full.
func (b *Buffer[S]) Commit(n int) {
	if b.wIdx < 0 || n <= 0 {
		return
	}
	if n > b.size-b.wPos {
		n = b.size - b.wPos
	}
	b.wPos += n
	b.written.Add(uint64(n))
	if b.wPos == b.size {
		b.publish()
	}
}

// Flush publishes the current write block even if it is only partially
// filled. It does nothing if the block is empty.
func (b *Buffer[S]) Flush() {
	if b.wIdx >= 0 && b.wPos > 0 {
		b.publish()
	}
}

// =============================================================================
// Consumer side
// =============================================================================

func (b *Buffer[S]) acquireRead() bool {
	if b.rIdx >= 0 {
		return true
	}
	sp, err := b.filled.Dequeue()
	if err != nil {
		return false
	}
	b.rIdx = sp.idx
	b.rPos = 0
	b.rLen = int(sp.n)
	return true
}

func (b *Buffer[S]) recycle() {
	idx := b.rIdx
	if err := b.free.Enqueue(&idx); err != nil {
		panic("block: free queue overflow")
	}
	b.rIdx = -1
	b.rPos = 0
	b.rLen = 0
}

// Read copies published samples into dst, returning drained blocks to the
// producer. Returns (0, spsc.ErrWouldBlock) if nothing is published.
func (b *Buffer[S]) Read(dst []S) (int, error) {
	n := 0
	for n < len(dst) {
		if !b.acquireRead() {
			break
		}
		c := copy(dst[n:], b.block(b.rIdx)[b.rPos:b.rLen])
		b.rPos += c
		n += c
		if b.rPos == b.rLen {
			b.recycle()
		}
	}
	if n == 0 && len(dst) > 0 {
		b.underruns.Add(1)
		return 0, spsc.ErrWouldBlock
	}
	b.read.Add(uint64(n))
	return n, nil
}

// ReadBlock returns the unread samples of the oldest published block
// without copying. The slice stays valid until Release.
// Returns spsc.ErrWouldBlock if nothing is published.
func (b *Buffer[S]) ReadBlock() ([]S, error) {
	if !b.acquireRead() {
		b.underruns.Add(1)
		return nil, spsc.ErrWouldBlock
	}
	return b.block(b.rIdx)[b.rPos:b.rLen], nil
}

// Release hands the block returned by ReadBlock back to the producer.
func (b *Buffer[S]) Release() {
	if b.rIdx < 0 {
		return
	}
	b.read.Add(uint64(b.rLen - b.rPos))
	b.recycle()
}

// =============================================================================
// Diagnostics and non-concurrent control
// =============================================================================

// FilledBlocks returns the number of published blocks waiting to be read.
func (b *Buffer[S]) FilledBlocks() int {
	return b.filled.Len()
}

// FreeBlocks returns the number of blocks waiting to be written.
func (b *Buffer[S]) FreeBlocks() int {
	return b.free.Len()
}

// Len is FilledBlocks. Together with Cap it lets a Buffer be observed like
// a queue.
func (b *Buffer[S]) Len() int {
	return b.FilledBlocks()
}

// Cap returns the number of blocks in the pool.
func (b *Buffer[S]) Cap() int {
	return b.count
}

// BlockSize returns the number of samples per block.
func (b *Buffer[S]) BlockSize() int {
	return b.size
}

// Stats is a snapshot of the buffer counters.
type Stats struct {
	Written   uint64 // Samples accepted by the producer side
	Read      uint64 // Samples handed to the consumer side
	Overruns  uint64 // Producer calls that found no free block
	Underruns uint64 // Consumer calls that found no published block
}

// Stats returns a snapshot of the counters. Advisory.
func (b *Buffer[S]) Stats() Stats {
	return Stats{
		Written:   b.written.LoadAcquire(),
		Read:      b.read.LoadAcquire(),
		Overruns:  b.overruns.LoadAcquire(),
		Underruns: b.underruns.LoadAcquire(),
	}
}

// Reset discards all written and unread samples and marks every block
// free. Counters are kept.
//
// Not safe for concurrent use.
func (b *Buffer[S]) Reset() {
	b.free.Clear()
	b.filled.Clear()
	for i := range b.count {
		idx := int32(i)
		if err := b.free.Enqueue(&idx); err != nil {
			panic("block: free queue overflow")
		}
	}
	b.wIdx, b.wPos = -1, 0
	b.rIdx, b.rPos, b.rLen = -1, 0, 0
}

// Resize reallocates the pool for cfg, discarding all samples.
// On error the buffer is unchanged.
//
// Not safe for concurrent use.
func (b *Buffer[S]) Resize(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.BlockSize == b.size && cfg.BlockCount == b.count {
		b.Reset()
		return nil
	}
	if err := b.free.Resize(cfg.BlockCount); err != nil {
		return err
	}
	if err := b.filled.Resize(cfg.BlockCount); err != nil {
		return err
	}
	b.alloc(cfg)
	return nil
}
