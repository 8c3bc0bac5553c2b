// Package cache provides a generic set-associative, write-back cache used
// to instrument memory-access traces without participating in program
// correctness.
package cache

import "encoding/binary"

// BackingStore is the next level of the memory hierarchy a Cache fetches
// from on a miss and writes back to on eviction or flush.
type BackingStore interface {
	Read(addr uint64, size int) []byte
	Write(addr uint64, data []byte)
}

// Config describes a cache's geometry and timing.
type Config struct {
	Size          int
	Associativity int
	BlockSize     int
	HitLatency    uint64
	MissLatency   uint64
}

// DefaultL1IConfig returns a representative L1 instruction cache
// configuration.
func DefaultL1IConfig() Config {
	return Config{Size: 192 * 1024, Associativity: 6, BlockSize: 64, HitLatency: 3, MissLatency: 100}
}

// DefaultL1DConfig returns a representative L1 data cache configuration.
func DefaultL1DConfig() Config {
	return Config{Size: 128 * 1024, Associativity: 8, BlockSize: 64, HitLatency: 4, MissLatency: 100}
}

// DefaultL2Config returns a representative shared L2 cache configuration.
func DefaultL2Config() Config {
	return Config{Size: 16 * 1024 * 1024, Associativity: 16, BlockSize: 128, HitLatency: 12, MissLatency: 200}
}

// DefaultL2PerCoreConfig returns a representative per-core L2 cache
// configuration.
func DefaultL2PerCoreConfig() Config {
	return Config{Size: 512 * 1024, Associativity: 8, BlockSize: 128, HitLatency: 10, MissLatency: 150}
}

// Stats accumulates lifetime access counters for a Cache.
type Stats struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// Result reports the outcome of a single Read or Write.
type Result struct {
	Hit     bool
	Evicted bool
	Latency uint64
	Data    uint64
}

// line is one way of a cache set.
type line struct {
	valid     bool
	dirty     bool
	tag       uint64
	blockBase uint64
	data      []byte
	lastUsed  uint64
}

// Cache is a set-associative, write-back, write-allocate cache sitting in
// front of a BackingStore.
type Cache struct {
	config      Config
	backing     BackingStore
	sets        [][]line
	numSets     int
	accessClock uint64
	stats       Stats
}

// New builds a Cache with the given configuration backed by store.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.BlockSize * config.Associativity)
	if numSets < 1 {
		numSets = 1
	}
	sets := make([][]line, numSets)
	for i := range sets {
		sets[i] = make([]line, config.Associativity)
	}
	return &Cache{
		config:  config,
		backing: backing,
		sets:    sets,
		numSets: numSets,
	}
}

// Stats returns a snapshot of the cache's lifetime counters.
func (c *Cache) Stats() Stats {
	return c.stats
}

// split decomposes addr into its containing block's base address, the
// byte offset within that block, the set index, and the tag.
func (c *Cache) split(addr uint64) (blockBase uint64, offset int, index int, tag uint64) {
	blockSize := uint64(c.config.BlockSize)
	blockBase = (addr / blockSize) * blockSize
	offset = int(addr - blockBase)
	blockNum := blockBase / blockSize
	index = int(blockNum % uint64(c.numSets))
	tag = blockNum / uint64(c.numSets)
	return
}

// find returns the way index of the cached line for (index, tag), or -1.
func (c *Cache) find(index int, tag uint64) int {
	for i, l := range c.sets[index] {
		if l.valid && l.tag == tag {
			return i
		}
	}
	return -1
}

// allocate returns a way index to place a new line into, evicting the
// least-recently-used valid line if the set is full. It reports whether an
// eviction occurred.
func (c *Cache) allocate(index int) (way int, evicted bool) {
	set := c.sets[index]
	for i, l := range set {
		if !l.valid {
			return i, false
		}
	}

	lru := 0
	for i, l := range set {
		if l.lastUsed < set[lru].lastUsed {
			lru = i
		}
		_ = l
	}

	evictLine := &set[lru]
	if evictLine.dirty {
		c.backing.Write(evictLine.blockBase, evictLine.data)
		c.stats.Writebacks++
	}
	c.stats.Evictions++
	return lru, true
}

func (c *Cache) touch(l *line) {
	c.accessClock++
	l.lastUsed = c.accessClock
}

// Read fetches size bytes (up to 8) starting at addr.
func (c *Cache) Read(addr uint64, size int) Result {
	c.stats.Reads++
	blockBase, offset, index, tag := c.split(addr)

	if way := c.find(index, tag); way != -1 {
		l := &c.sets[index][way]
		c.touch(l)
		c.stats.Hits++
		return Result{Hit: true, Latency: c.config.HitLatency, Data: readLE(l.data, offset, size)}
	}

	c.stats.Misses++
	data := c.backing.Read(blockBase, c.config.BlockSize)
	way, evicted := c.allocate(index)
	l := &c.sets[index][way]
	*l = line{valid: true, tag: tag, blockBase: blockBase, data: data}
	c.touch(l)

	return Result{Hit: false, Evicted: evicted, Latency: c.config.MissLatency, Data: readLE(data, offset, size)}
}

// Write stores size bytes (up to 8) of value starting at addr,
// write-allocating on a miss.
func (c *Cache) Write(addr uint64, size int, value uint64) Result {
	c.stats.Writes++
	blockBase, offset, index, tag := c.split(addr)

	if way := c.find(index, tag); way != -1 {
		l := &c.sets[index][way]
		writeLE(l.data, offset, size, value)
		l.dirty = true
		c.touch(l)
		c.stats.Hits++
		return Result{Hit: true, Latency: c.config.HitLatency}
	}

	c.stats.Misses++
	data := c.backing.Read(blockBase, c.config.BlockSize)
	way, evicted := c.allocate(index)
	l := &c.sets[index][way]
	*l = line{valid: true, tag: tag, blockBase: blockBase, data: data}
	writeLE(l.data, offset, size, value)
	l.dirty = true
	c.touch(l)

	return Result{Hit: false, Evicted: evicted, Latency: c.config.MissLatency}
}

// Flush writes back every dirty line to the backing store without
// evicting it from the cache.
func (c *Cache) Flush() {
	for _, set := range c.sets {
		for i := range set {
			l := &set[i]
			if l.valid && l.dirty {
				c.backing.Write(l.blockBase, l.data)
				c.stats.Writebacks++
				l.dirty = false
			}
		}
	}
}

func readLE(data []byte, offset, size int) uint64 {
	buf := make([]byte, 8)
	copy(buf, data[offset:offset+size])
	return binary.LittleEndian.Uint64(buf)
}

func writeLE(data []byte, offset, size int, value uint64) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)
	copy(data[offset:offset+size], buf[:size])
}
