package probe

import (
	"errors"
	"fmt"
	"time"

	"Go2NetTop/internal/model"

	"github.com/google/gopacket/layers"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the frame envelope, equivalent to:
//
//	message Frame {
//	  uint64 timestamp_ns = 1;
//	  uint64 wire_length  = 2;
//	  uint64 iface_index  = 3;
//	  uint64 link_type    = 4;
//	  bytes  data         = 5;
//	}
const (
	fieldTimestamp protowire.Number = 1
	fieldWireLen   protowire.Number = 2
	fieldIfIndex   protowire.Number = 3
	fieldLinkType  protowire.Number = 4
	fieldData      protowire.Number = 5
)

var ErrMalformedEnvelope = errors.New("malformed frame envelope")

// EncodeFrame serializes a captured frame into a protobuf envelope.
func EncodeFrame(f *model.Frame) []byte {
	ci := f.CaptureInfo
	b := make([]byte, 0, len(f.Data)+32)
	b = protowire.AppendTag(b, fieldTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ci.Timestamp.UnixNano()))
	b = protowire.AppendTag(b, fieldWireLen, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ci.Length))
	b = protowire.AppendTag(b, fieldIfIndex, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ci.InterfaceIndex))
	b = protowire.AppendTag(b, fieldLinkType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.LinkType))
	b = protowire.AppendTag(b, fieldData, protowire.BytesType)
	b = protowire.AppendBytes(b, f.Data)
	return b
}

// DecodeFrame parses an envelope produced by EncodeFrame. Unknown fields are
// skipped. The returned frame owns a copy of the payload.
func DecodeFrame(b []byte) (*model.Frame, error) {
	var (
		f       model.Frame
		sawData bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, protowire.ParseError(n))
			}
			f.Data = append([]byte(nil), v...)
			sawData = true
			b = b[n:]
		case typ == protowire.VarintType && num >= fieldTimestamp && num <= fieldLinkType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, protowire.ParseError(n))
			}
			switch num {
			case fieldTimestamp:
				f.CaptureInfo.Timestamp = time.Unix(0, int64(v))
			case fieldWireLen:
				f.CaptureInfo.Length = int(v)
			case fieldIfIndex:
				f.CaptureInfo.InterfaceIndex = int(v)
			case fieldLinkType:
				f.LinkType = layers.LinkType(v)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if !sawData {
		return nil, fmt.Errorf("%w: no frame data", ErrMalformedEnvelope)
	}
	f.CaptureInfo.CaptureLength = len(f.Data)
	if f.CaptureInfo.Length < f.CaptureInfo.CaptureLength {
		f.CaptureInfo.Length = f.CaptureInfo.CaptureLength
	}
	return &f, nil
}

