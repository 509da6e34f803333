package jobs

import "testing"

func TestSplitJoinManifestRoundTrip(t *testing.T) {
	payload := []byte(`{"job_id":"abc","protocol":"gbn","state":0}`)

	shards, err := splitManifest(payload)
	if err != nil {
		t.Fatalf("splitManifest failed: %v", err)
	}
	if len(shards) != manifestDataShards+manifestParityShards {
		t.Fatalf("len(shards) = %d, want %d", len(shards), manifestDataShards+manifestParityShards)
	}

	joined, err := joinManifest(shards, len(payload))
	if err != nil {
		t.Fatalf("joinManifest failed: %v", err)
	}
	if string(joined) != string(payload) {
		t.Errorf("joinManifest = %q, want %q", joined, payload)
	}
}

func TestJoinManifestReconstructsMissingShards(t *testing.T) {
	payload := []byte(`{"job_id":"abc-def-123456789012","protocol":"sr","state":1,"peer_addr":"127.0.0.1:9790"}`)

	shards, err := splitManifest(payload)
	if err != nil {
		t.Fatalf("splitManifest failed: %v", err)
	}

	// Drop manifestParityShards worth of shards: still reconstructible.
	lossy := make([][]byte, len(shards))
	copy(lossy, shards)
	lossy[0] = nil
	lossy[len(lossy)-1] = nil

	joined, err := joinManifest(lossy, len(payload))
	if err != nil {
		t.Fatalf("joinManifest with losses failed: %v", err)
	}
	if string(joined) != string(payload) {
		t.Errorf("joinManifest = %q, want %q", joined, payload)
	}
}
