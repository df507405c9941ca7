package granular

import (
	"encoding/binary"
	"fmt"
)

// persistentHeaderSize is the serialized header length: two write heads,
// the quality code, the spectral flag and two bytes of padding keeping
// payloads word aligned.
const persistentHeaderSize = 12

var (
	tagState  = [4]byte{'S', 't', 'a', 't'}
	tagBuffer = [4]byte{'b', 'u', 'f', 'f'}
)

// PersistentState is the save header. It precedes the buffer blocks in
// both directions because it decides how their bytes are reinterpreted.
type PersistentState struct {
	WriteHead [2]uint32
	Quality   uint8
	Spectral  uint8
}

// PersistentBlock describes one serialization unit: the state header or
// one channel's recording buffer. Data aliases processor-owned memory;
// blocks are constructed fresh on every persistence call.
type PersistentBlock struct {
	Tag  [4]byte
	Data []byte
}

// PreparePersistentData snapshots the write heads, the quality code and
// whether the active mode is spectral into the save header.
func (p *Processor) PreparePersistentData() {
	for i := 0; i < 2; i++ {
		if p.lowFidelity {
			p.persistent.WriteHead[i] = uint32(p.buffer8[i].Head())
		} else {
			p.persistent.WriteHead[i] = uint32(p.buffer16[i].Head())
		}
	}
	p.persistent.Quality = p.Quality()
	if p.mode == ModeSpectral || p.mode == ModeSpectralCloud {
		p.persistent.Spectral = uint8(p.mode)
	} else {
		p.persistent.Spectral = 0
	}
	p.marshalHeader()
}

func (p *Processor) marshalHeader() {
	binary.LittleEndian.PutUint32(p.headerBytes[0:], p.persistent.WriteHead[0])
	binary.LittleEndian.PutUint32(p.headerBytes[4:], p.persistent.WriteHead[1])
	p.headerBytes[8] = p.persistent.Quality
	p.headerBytes[9] = p.persistent.Spectral
	p.headerBytes[10] = 0
	p.headerBytes[11] = 0
}

func (p *Processor) unmarshalHeader() {
	p.persistent.WriteHead[0] = binary.LittleEndian.Uint32(p.headerBytes[0:])
	p.persistent.WriteHead[1] = binary.LittleEndian.Uint32(p.headerBytes[4:])
	p.persistent.Quality = p.headerBytes[8]
	p.persistent.Spectral = p.headerBytes[9]
}

// GetPersistentData describes the header plus one block per active
// channel, pointing at the region memory without copying it.
func (p *Processor) GetPersistentData() []PersistentBlock {
	blocks := make([]PersistentBlock, 0, 3)
	blocks = append(blocks, PersistentBlock{Tag: tagState, Data: p.headerBytes[:]})

	if p.channels == 1 {
		blocks = append(blocks, PersistentBlock{Tag: tagBuffer, Data: p.large})
	} else {
		n := len(p.small)
		blocks = append(blocks, PersistentBlock{Tag: tagBuffer, Data: p.large[:n]})
		blocks = append(blocks, PersistentBlock{Tag: tagBuffer, Data: p.small})
	}
	return blocks
}

// SavePersistentData serializes the current block description into one
// byte stream of (tag, size, payload) records. Call PreparePersistentData
// first so the header is current.
func (p *Processor) SavePersistentData(dst []byte) []byte {
	for _, blk := range p.GetPersistentData() {
		dst = append(dst, blk.Tag[:]...)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(blk.Data)))
		dst = append(dst, blk.Data...)
	}
	return dst
}

// LoadPersistentData restores a stream produced by SavePersistentData.
// Output is forced silent while buffers are overwritten. The load is
// two-phase: once the header block is in, the spectral flag and quality
// code are reconciled against the current mode, which may force a mode
// switch and a full Prepare before the buffer blocks are copied into the
// re-partitioned regions. A tag or size mismatch aborts the load;
// already-copied blocks are not rolled back.
func (p *Processor) LoadPersistentData(data []byte) error {
	p.silence = true

	blocks := p.GetPersistentData()
	for i := 0; i < len(blocks); i++ {
		blk := blocks[i]
		if len(data) < 8 {
			p.silence = false
			return fmt.Errorf("persistent block %d: truncated stream (%d bytes left)", i, len(data))
		}
		var tag [4]byte
		copy(tag[:], data[:4])
		size := binary.LittleEndian.Uint32(data[4:8])
		if tag != blk.Tag || int(size) != len(blk.Data) {
			p.silence = false
			return fmt.Errorf("persistent block %d: got tag %q size %d, want tag %q size %d",
				i, tag[:], size, blk.Tag[:], len(blk.Data))
		}
		data = data[8:]
		if len(data) < int(size) {
			p.silence = false
			return fmt.Errorf("persistent block %d: payload truncated (%d of %d bytes)", i, len(data), size)
		}
		copy(blk.Data, data[:size])
		data = data[size:]

		if i == 0 {
			p.unmarshalHeader()

			currently := uint8(0)
			if p.mode == ModeSpectral || p.mode == ModeSpectralCloud {
				currently = uint8(p.mode)
			}
			if required := p.persistent.Spectral; currently != required {
				if required != 0 {
					p.SetPlaybackMode(PlaybackMode(required))
				} else {
					p.SetPlaybackMode(ModeGranular)
				}
			}
			p.SetQuality(p.persistent.Quality)

			// The mode is now right for the saved data; rebuild the
			// partitioning so the buffer blocks land in correctly sized
			// memory, then re-derive the block layout.
			p.Prepare()
			blocks = p.GetPersistentData()
		}
	}

	for i := 0; i < p.channels; i++ {
		if p.lowFidelity {
			p.buffer8[i].Resync(int(p.persistent.WriteHead[i]))
		} else {
			p.buffer16[i].Resync(int(p.persistent.WriteHead[i]))
		}
	}

	// A loaded snapshot is inherently frozen material.
	p.params.Freeze = true
	p.silence = false
	return nil
}
