package trie

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/meshguard/epigenetic-policy-engine/internal/policyerr"
)

// #region format

// magic identifies the store export format, per §6: header magic "EPE1",
// u32 version, u64 node count, then pre-order node records.
var magic = [4]byte{'E', 'P', 'E', '1'}

const formatVersion uint32 = 1

const (
	flagAllowed    = 1 << 0
	flagSuppressed = 1 << 1
)

// #endregion format

// #region export

// Export serializes the store to the EPE1 binary format: magic, u32
// version, u64 node count, then pre-order records of
// (segment_len u16, segment bytes, flags u8, child_count u32). The root
// record uses an empty segment. Little-endian throughout.
func (s *Store) Export() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	if err := binary.Write(&buf, binary.LittleEndian, formatVersion); err != nil {
		return nil, policyerr.Wrap(policyerr.SerializationError, "write version", err)
	}
	nodeCount := uint64(s.NodeCount())
	if err := binary.Write(&buf, binary.LittleEndian, nodeCount); err != nil {
		return nil, policyerr.Wrap(policyerr.SerializationError, "write node count", err)
	}
	if err := writeNodeRecord(&buf, "", s.root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNodeRecord(buf *bytes.Buffer, segment string, n *Node) error {
	segBytes := []byte(segment)
	if len(segBytes) > 0xFFFF {
		return policyerr.New(policyerr.SerializationError, "segment too long to serialize")
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(segBytes))); err != nil {
		return policyerr.Wrap(policyerr.SerializationError, "write segment length", err)
	}
	buf.Write(segBytes)

	var flags uint8
	if n.allowed {
		flags |= flagAllowed
	}
	if n.suppressed {
		flags |= flagSuppressed
	}
	buf.WriteByte(flags)

	children := n.orderedChildren()
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(children))); err != nil {
		return policyerr.Wrap(policyerr.SerializationError, "write child count", err)
	}
	for _, pair := range children {
		if err := writeNodeRecord(buf, pair.segment, pair.node); err != nil {
			return err
		}
	}
	return nil
}

// #endregion export

// #region import

// Import decodes the EPE1 format into a fresh store for serviceID.
// Malformed bytes (bad magic, truncated, inconsistent child counts)
// surface as SerializationError with no partial side effects — the
// caller's existing store, if any, is left untouched since Import
// always builds into a new Store.
func Import(serviceID string, data []byte) (*Store, error) {
	r := bytes.NewReader(data)

	var got [4]byte
	if _, err := r.Read(got[:]); err != nil || got != magic {
		return nil, policyerr.New(policyerr.SerializationError, "bad magic header")
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, policyerr.Wrap(policyerr.SerializationError, "read version", err)
	}
	if version != formatVersion {
		return nil, policyerr.New(policyerr.SerializationError, fmt.Sprintf("unsupported format version %d", version))
	}

	var nodeCount uint64
	if err := binary.Read(r, binary.LittleEndian, &nodeCount); err != nil {
		return nil, policyerr.Wrap(policyerr.SerializationError, "read node count", err)
	}

	counted := uint64(0)
	rootSeg, root, err := readNodeRecord(r, &counted)
	if err != nil {
		return nil, err
	}
	if rootSeg != "" {
		return nil, policyerr.New(policyerr.SerializationError, "root record has non-empty segment")
	}
	if counted != nodeCount {
		return nil, policyerr.New(policyerr.SerializationError, "node count mismatch")
	}
	if r.Len() != 0 {
		return nil, policyerr.New(policyerr.SerializationError, "trailing bytes after store body")
	}

	return &Store{ServiceID: serviceID, root: root, limits: DefaultLimits()}, nil
}

// readNodeRecord reads one (segment_len, segment, flags, child_count)
// record followed recursively by its children, returning the segment
// name alongside the decoded node.
func readNodeRecord(r *bytes.Reader, counted *uint64) (string, *Node, error) {
	var segLen uint16
	if err := binary.Read(r, binary.LittleEndian, &segLen); err != nil {
		return "", nil, policyerr.Wrap(policyerr.SerializationError, "read segment length", err)
	}
	segBytes := make([]byte, segLen)
	if _, err := r.Read(segBytes); err != nil {
		return "", nil, policyerr.Wrap(policyerr.SerializationError, "read segment bytes", err)
	}

	flags, err := r.ReadByte()
	if err != nil {
		return "", nil, policyerr.Wrap(policyerr.SerializationError, "read flags", err)
	}

	var childCount uint32
	if err := binary.Read(r, binary.LittleEndian, &childCount); err != nil {
		return "", nil, policyerr.Wrap(policyerr.SerializationError, "read child count", err)
	}

	n := newNode()
	n.allowed = flags&flagAllowed != 0
	n.suppressed = flags&flagSuppressed != 0
	*counted++

	for i := uint32(0); i < childCount; i++ {
		childSeg, child, err := readNodeRecord(r, counted)
		if err != nil {
			return "", nil, err
		}
		if childSeg == "" {
			return "", nil, policyerr.New(policyerr.SerializationError, "non-root record with empty segment")
		}
		if _, exists := n.children[childSeg]; exists {
			return "", nil, policyerr.New(policyerr.SerializationError, "duplicate child segment in record")
		}
		n.children[childSeg] = child
		n.order = append(n.order, childSeg)
	}

	return string(segBytes), n, nil
}

// #endregion import
