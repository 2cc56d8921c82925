package fb

import (
	flatbuffers "github.com/google/flatbuffers/go"
)

type Entry struct {
	_tab flatbuffers.Table
}

func GetRootAsEntry(buf []byte, offset flatbuffers.UOffsetT) *Entry {
	n := flatbuffers.GetUOffsetT(buf[offset:])
	x := &Entry{}
	x.Init(buf, n+offset)
	return x
}

func (rcv *Entry) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *Entry) Table() flatbuffers.Table {
	return rcv._tab
}

func (rcv *Entry) Hash() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(4))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Entry) Offset() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(6))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Entry) CompressedSize() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(8))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Entry) Size() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(10))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Entry) Compression() Compression {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(12))
	if o != 0 {
		return Compression(rcv._tab.GetByte(o + rcv._tab.Pos))
	}
	return 0
}

func (rcv *Entry) Attr() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(14))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Entry) Checksum() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(16))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func EntryStart(builder *flatbuffers.Builder) {
	builder.StartObject(7)
}
func EntryAddHash(builder *flatbuffers.Builder, hash uint64) {
	builder.PrependUint64Slot(0, hash, 0)
}
func EntryAddOffset(builder *flatbuffers.Builder, offset uint64) {
	builder.PrependUint64Slot(1, offset, 0)
}
func EntryAddCompressedSize(builder *flatbuffers.Builder, compressedSize uint64) {
	builder.PrependUint64Slot(2, compressedSize, 0)
}
func EntryAddSize(builder *flatbuffers.Builder, size uint64) {
	builder.PrependUint64Slot(3, size, 0)
}
func EntryAddCompression(builder *flatbuffers.Builder, compression Compression) {
	builder.PrependByteSlot(4, byte(compression), 0)
}
func EntryAddAttr(builder *flatbuffers.Builder, attr uint64) {
	builder.PrependUint64Slot(5, attr, 0)
}
func EntryAddChecksum(builder *flatbuffers.Builder, checksum uint64) {
	builder.PrependUint64Slot(6, checksum, 0)
}
func EntryEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}
