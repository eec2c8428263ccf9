package bounded

import "hash/crc32"

// checksum tracks a CRC32 digest over a collection's live elements. It is
// recomputed on every mutation (update) and compared against on verify;
// "rolling" here means it always reflects the collection's current contents
// rather than needing a separate full-collection pass to discover drift —
// not an incremental/streaming CRC construction, since removals make true
// incremental CRC subtraction impractical for an open-addressed or
// circular-buffer layout.
type checksum struct {
	value uint32
	valid bool
}

// update recomputes the checksum over the given element byte contributions,
// concatenated in iteration order.
func (c *checksum) update(contributions [][]byte) {
	h := crc32.NewIEEE()
	for _, b := range contributions {
		h.Write(b) //nolint:errcheck // hash.Hash.Write never returns an error
	}
	c.value = h.Sum32()
	c.valid = true
}

// verify recomputes the checksum over contributions and reports whether it
// matches the last computed value.
func (c *checksum) verify(contributions [][]byte) bool {
	if !c.valid {
		return false
	}
	h := crc32.NewIEEE()
	for _, b := range contributions {
		h.Write(b) //nolint:errcheck
	}
	return h.Sum32() == c.value
}
