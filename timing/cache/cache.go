// Package cache provides a tag-only cache model using Akita cache components.
// It tracks which blocks would be resident in a write-back, write-allocate
// cache and reports hit/miss latencies; data always lives in the bus.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `toml:"size"`
	// Associativity (number of ways)
	Associativity int `toml:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `toml:"block_size"`
	// HitLatency in cycles
	HitLatency uint64 `toml:"hit_latency"`
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64 `toml:"miss_latency"`
}

// DefaultL1IConfig returns the default L1 instruction cache configuration.
func DefaultL1IConfig() Config {
	return Config{
		Size:          16 * 1024, // 16KB
		Associativity: 4,
		BlockSize:     64,
		HitLatency:    0, // overlapped with execute
		MissLatency:   20,
	}
}

// DefaultL1DConfig returns the default L1 data cache configuration.
func DefaultL1DConfig() Config {
	return Config{
		Size:          16 * 1024, // 16KB
		Associativity: 4,
		BlockSize:     64,
		HitLatency:    1,
		MissLatency:   20,
	}
}

// NumSets returns the number of sets described by the configuration.
func (c Config) NumSets() int {
	if c.Associativity <= 0 || c.BlockSize <= 0 {
		return 0
	}
	return c.Size / (c.Associativity * c.BlockSize)
}

// Validate checks that the geometry describes a real cache.
func (c Config) Validate() error {
	if c.BlockSize <= 0 || c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("block_size must be a power of two, got %d", c.BlockSize)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0, got %d", c.Associativity)
	}
	if c.Size <= 0 || c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("size %d is not a multiple of associativity*block_size", c.Size)
	}
	if c.MissLatency < c.HitLatency {
		return fmt.Errorf("miss_latency must be >= hit_latency")
	}
	return nil
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the block address of the evicted block.
	EvictedAddr uint32
	// Writeback is true if the evicted block was dirty.
	Writeback bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// HitRate returns hits / accesses, or 0 before the first access.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a single cache level backed by an Akita directory.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	stats     Statistics
}

// New creates a new cache with the given configuration.
func New(config Config) *Cache {
	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets(),
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockAddr(addr uint32) uint64 {
	return uint64(addr) &^ uint64(c.config.BlockSize-1)
}

// Read performs a cache read.
func (c *Cache) Read(addr uint32) AccessResult {
	return c.Access(addr, false)
}

// Write performs a cache write. Misses allocate the block.
func (c *Cache) Write(addr uint32) AccessResult {
	return c.Access(addr, true)
}

// Access looks up addr, allocating the block on a miss.
func (c *Cache) Access(addr uint32, write bool) AccessResult {
	if write {
		c.stats.Writes++
	} else {
		c.stats.Reads++
	}

	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		if write {
			block.IsDirty = true
		}

		return AccessResult{Hit: true, Latency: c.config.HitLatency}
	}

	c.stats.Misses++
	return c.handleMiss(blockAddr, write)
}

func (c *Cache) handleMiss(blockAddr uint64, write bool) AccessResult {
	result := AccessResult{Latency: c.config.MissLatency}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag)

		if victim.IsDirty {
			c.stats.Writebacks++
			result.Writeback = true
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = write
	c.directory.Visit(victim)

	return result
}

// Contains reports whether the block holding addr is resident.
func (c *Cache) Contains(addr uint32) bool {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	return block != nil && block.IsValid
}

// Invalidate drops the block holding addr without writeback.
func (c *Cache) Invalidate(addr uint32) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty blocks and invalidates every block. It returns
// the number of writebacks.
func (c *Cache) Flush() uint64 {
	var writebacks uint64

	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}

	c.stats.Writebacks += writebacks
	return writebacks
}

// Reset invalidates all cache lines without writeback and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
