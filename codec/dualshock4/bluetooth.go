package dualshock4

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/padmux/padmux/codec"
	"github.com/padmux/padmux/hid"
	"github.com/padmux/padmux/pad"
)

type btCodec struct{}

func (btCodec) Decode(raw []byte) (pad.State, error) {
	if len(raw) < ReportSizeBt {
		return pad.State{}, &codec.DecodeError{Kind: codec.TooShort, Got: uint32(len(raw)), Want: ReportSizeBt}
	}
	if raw[0] != ReportIDBt {
		return pad.State{}, &codec.DecodeError{Kind: codec.UnexpectedReportID, Got: uint32(raw[0]), Want: ReportIDBt}
	}
	got := binary.LittleEndian.Uint32(raw[crcOffsetBt:ReportSizeBt])
	want := frameCRC(hid.TransactionDataInput, raw[:crcOffsetBt])
	if got != want {
		return pad.State{}, &codec.DecodeError{Kind: codec.ChecksumMismatch, Got: got, Want: want}
	}
	return decodePayload(raw[payloadOffsetBt:]), nil
}

func (btCodec) Encode(fb pad.Feedback) []byte {
	b := make([]byte, ReportSizeBt)
	b[0] = ReportIDBt
	b[1] = btOutputFlags
	encodePayload(b[payloadOffsetBt:], fb)
	binary.LittleEndian.PutUint32(b[crcOffsetBt:], frameCRC(hid.TransactionDataOutput, b[:crcOffsetBt]))
	return b
}

var crcTable = crc32.MakeTable(crc32.IEEE)

// frameCRC computes the report CRC: CRC32 over the HIDP transaction byte
// followed by the frame content, stored little-endian in the trailer.
func frameCRC(transaction byte, frame []byte) uint32 {
	sum := crc32.Update(0, crcTable, []byte{transaction})
	return crc32.Update(sum, crcTable, frame)
}
