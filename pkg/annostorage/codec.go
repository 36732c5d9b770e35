package annostorage

import (
	"github.com/korpling/graphannis-go/internal/keycodec"
	"github.com/korpling/graphannis-go/pkg/gmodel"
)

// NodeItemCodec encodes gmodel.NodeID as 8 fixed big-endian bytes, so
// byte order on the encoded form equals numeric order on the id.
type NodeItemCodec struct{}

func (NodeItemCodec) Encode(id gmodel.NodeID) []byte {
	return keycodec.EncodeUint64(uint64(id))
}

func (NodeItemCodec) Decode(b []byte) gmodel.NodeID {
	return gmodel.NodeID(keycodec.DecodeUint64(b))
}

func (NodeItemCodec) Len() int { return 8 }

// EdgeItemCodec encodes a gmodel.Edge as two fixed big-endian uint64s
// (source then target), so byte order on the encoded form equals
// lexicographic (source, target) order.
type EdgeItemCodec struct{}

func (EdgeItemCodec) Encode(e gmodel.Edge) []byte {
	return keycodec.Concat(keycodec.EncodeUint64(uint64(e.Source)), keycodec.EncodeUint64(uint64(e.Target)))
}

func (EdgeItemCodec) Decode(b []byte) gmodel.Edge {
	return gmodel.Edge{
		Source: gmodel.NodeID(keycodec.DecodeUint64(b[:8])),
		Target: gmodel.NodeID(keycodec.DecodeUint64(b[8:16])),
	}
}

func (EdgeItemCodec) Len() int { return 16 }
