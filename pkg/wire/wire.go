// Package wire implements the on-wire framing for GBN/SR data and ack
// packets: a 3-byte data header followed by payload, and a 2-byte ack.
package wire

import (
	"fmt"

	"github.com/aaronli/rdt/pkg/checksum"
	"github.com/aaronli/rdt/pkg/ringbuffer"
)

// SeqSpace is the modular sequence-number space. It must be at least twice
// WindowSize so the sender and receiver can always disambiguate a fresh
// sequence number from a stale one across a window shift.
const SeqSpace = ringbuffer.DefaultCapacity

// WindowSize is the default sliding-window size for both protocols.
const WindowSize = 10

// ackConst is the fixed second byte of every ack packet.
const ackConst = 1

// DataHeaderSize is the number of header bytes preceding the payload in a
// data packet: seq_num, end_flag, checksum.
const DataHeaderSize = 3

// AckSize is the fixed size of an ack packet in bytes.
const AckSize = 2

// DataPacket is a GBN/SR data packet: a sequence number, an end-of-stream
// flag, a payload checksum, and the payload itself.
type DataPacket struct {
	SeqNum   byte
	EndFlag  bool
	Checksum byte
	Payload  []byte
}

// NewDataPacket builds a data packet carrying payload at seqNum, computing
// its checksum.
func NewDataPacket(seqNum byte, payload []byte) *DataPacket {
	return &DataPacket{
		SeqNum:   seqNum,
		Checksum: checksum.Sum(payload),
		Payload:  payload,
	}
}

// EndOfStreamPacket builds the distinguished end-of-stream packet:
// seq_num=0, end_flag=1, checksum=0, empty payload.
func EndOfStreamPacket() *DataPacket {
	return &DataPacket{EndFlag: true}
}

// Marshal encodes the packet to its wire form.
func (p *DataPacket) Marshal() []byte {
	buf := make([]byte, DataHeaderSize+len(p.Payload))
	buf[0] = p.SeqNum
	if p.EndFlag {
		buf[1] = 1
	}
	buf[2] = p.Checksum
	copy(buf[DataHeaderSize:], p.Payload)
	return buf
}

// UnmarshalDataPacket decodes a data packet from its wire form.
func UnmarshalDataPacket(data []byte) (*DataPacket, error) {
	if len(data) < DataHeaderSize {
		return nil, fmt.Errorf("wire: data packet too short: got %d bytes, need at least %d", len(data), DataHeaderSize)
	}

	p := &DataPacket{
		SeqNum:   data[0],
		EndFlag:  data[1] != 0,
		Checksum: data[2],
	}
	if len(data) > DataHeaderSize {
		p.Payload = append([]byte(nil), data[DataHeaderSize:]...)
	}
	return p, nil
}

// VerifyChecksum reports whether the packet's payload matches its checksum.
func (p *DataPacket) VerifyChecksum() bool {
	return checksum.Verify(p.Payload, p.Checksum)
}

// AckPacket is a GBN/SR acknowledgement: an acked sequence number and the
// constant trailing byte.
type AckPacket struct {
	AckSeq byte
}

// Marshal encodes the ack to its 2-byte wire form.
func (a *AckPacket) Marshal() []byte {
	return []byte{a.AckSeq, ackConst}
}

// UnmarshalAckPacket decodes an ack packet from its wire form.
func UnmarshalAckPacket(data []byte) (*AckPacket, error) {
	if len(data) != AckSize {
		return nil, fmt.Errorf("wire: ack packet must be %d bytes, got %d", AckSize, len(data))
	}
	return &AckPacket{AckSeq: data[0]}, nil
}
