package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash returns the hex SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashInput returns the digest of a layout stage input: the nested stage
// graph, or the node and edge lists of the tree stage. The input is hashed
// through its JSON encoding, so two structurally equal inputs share a digest
// whatever their map iteration order. Labels, sizes and hints all take part,
// since each of them moves the engine's output.
func HashInput(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash layout input: %w", err)
	}
	return Hash(data), nil
}

// hashKey builds "<namespace>:<digest>" from an input digest and the options
// that change what is stored for it. The digest and the encoded options are
// separated so ("ab", {..}) and ("a", "b"+...) cannot collide.
func hashKey(namespace, digest string, opts any) string {
	h := sha256.New()
	h.Write([]byte(digest))
	h.Write([]byte{0})
	if err := json.NewEncoder(h).Encode(opts); err != nil {
		fmt.Fprintf(h, "%#v", opts)
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))
}
