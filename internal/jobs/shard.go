package jobs

import (
	"bytes"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// manifestDataShards and manifestParityShards size the Reed-Solomon code
// EtcdStore uses to spread one job manifest across multiple etcd keys: the
// loss of any manifestParityShards of them still lets the record be
// reconstructed. This is separate from, and does not touch, the data/ack
// wire format the protocol engines speak.
const (
	manifestDataShards   = 4
	manifestParityShards = 2
)

// splitManifest Reed-Solomon encodes data into manifestDataShards+
// manifestParityShards shards.
func splitManifest(data []byte) ([][]byte, error) {
	enc, err := reedsolomon.New(manifestDataShards, manifestParityShards)
	if err != nil {
		return nil, fmt.Errorf("jobs: building reed-solomon encoder: %w", err)
	}

	shards, err := enc.Split(data)
	if err != nil {
		return nil, fmt.Errorf("jobs: splitting manifest: %w", err)
	}
	if err := enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("jobs: encoding manifest parity: %w", err)
	}
	return shards, nil
}

// joinManifest reconstructs the original payload from shards, some of which
// may be nil where the corresponding etcd key was missing or unreadable.
// size is the original payload length, stored alongside the shards since
// Reed-Solomon shards are padded to equal length.
func joinManifest(shards [][]byte, size int) ([]byte, error) {
	enc, err := reedsolomon.New(manifestDataShards, manifestParityShards)
	if err != nil {
		return nil, fmt.Errorf("jobs: building reed-solomon encoder: %w", err)
	}

	complete := true
	for _, shard := range shards {
		if shard == nil {
			complete = false
			break
		}
	}
	if !complete {
		if err := enc.Reconstruct(shards); err != nil {
			return nil, fmt.Errorf("jobs: reconstructing manifest: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := enc.Join(&buf, shards, size); err != nil {
		return nil, fmt.Errorf("jobs: joining manifest shards: %w", err)
	}
	return buf.Bytes(), nil
}
