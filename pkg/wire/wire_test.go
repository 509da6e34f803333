package wire

import "testing"

func TestDataPacketRoundTrip(t *testing.T) {
	original := NewDataPacket(7, []byte{1, 2, 3, 4})

	data := original.Marshal()
	parsed, err := UnmarshalDataPacket(data)
	if err != nil {
		t.Fatalf("UnmarshalDataPacket failed: %v", err)
	}

	if parsed.SeqNum != original.SeqNum {
		t.Errorf("SeqNum mismatch: got %d, want %d", parsed.SeqNum, original.SeqNum)
	}
	if parsed.EndFlag != original.EndFlag {
		t.Errorf("EndFlag mismatch: got %v, want %v", parsed.EndFlag, original.EndFlag)
	}
	if parsed.Checksum != original.Checksum {
		t.Errorf("Checksum mismatch: got %d, want %d", parsed.Checksum, original.Checksum)
	}
	if !parsed.VerifyChecksum() {
		t.Error("parsed packet should verify against its own checksum")
	}
}

func TestEndOfStreamPacket(t *testing.T) {
	p := EndOfStreamPacket()
	data := p.Marshal()

	if len(data) != DataHeaderSize {
		t.Fatalf("end-of-stream packet should have no payload, got %d bytes", len(data))
	}

	parsed, err := UnmarshalDataPacket(data)
	if err != nil {
		t.Fatalf("UnmarshalDataPacket failed: %v", err)
	}
	if !parsed.EndFlag {
		t.Error("end-of-stream packet should have EndFlag set")
	}
	if parsed.SeqNum != 0 || parsed.Checksum != 0 || len(parsed.Payload) != 0 {
		t.Errorf("end-of-stream packet should be all-zero besides the flag, got %+v", parsed)
	}
}

func TestCorruptChecksumDetected(t *testing.T) {
	p := NewDataPacket(1, []byte{5, 5, 5})
	data := p.Marshal()
	data[len(data)-1] ^= 0xFF // corrupt the last payload byte

	parsed, err := UnmarshalDataPacket(data)
	if err != nil {
		t.Fatalf("UnmarshalDataPacket failed: %v", err)
	}
	if parsed.VerifyChecksum() {
		t.Error("corrupted payload should fail checksum verification")
	}
}

func TestAckPacketRoundTrip(t *testing.T) {
	a := &AckPacket{AckSeq: 17}
	data := a.Marshal()

	if len(data) != AckSize {
		t.Fatalf("ack packet should be %d bytes, got %d", AckSize, len(data))
	}
	if data[1] != ackConst {
		t.Errorf("ack packet's second byte should be %d, got %d", ackConst, data[1])
	}

	parsed, err := UnmarshalAckPacket(data)
	if err != nil {
		t.Fatalf("UnmarshalAckPacket failed: %v", err)
	}
	if parsed.AckSeq != a.AckSeq {
		t.Errorf("AckSeq mismatch: got %d, want %d", parsed.AckSeq, a.AckSeq)
	}
}

func TestUnmarshalAckPacketRejectsBadSize(t *testing.T) {
	if _, err := UnmarshalAckPacket([]byte{1}); err == nil {
		t.Error("expected an error for a 1-byte ack packet")
	}
}
