package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/tessera/core"
)

// Key prefixes for graph records
const (
	chunkRecordPrefix    = "chkrec"
	chunkDocumentPrefix  = "chkdoc"
	entityRecordPrefix   = "entrec"
	entityKeyPrefix      = "entkey"
	entityCreatorPrefix  = "entcre"
	relationRecordPrefix = "relrec"
	relationEntityPrefix = "relent"
	mentionChunkPrefix   = "mntchk"
	mentionEntityPrefix  = "mntent"
	communityPrefix      = "cmncre"
)

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeChunkDocumentKey generates a composite key for the document-chunk
// index. Format: prefix:documentID:index, BigEndian so iteration yields
// chunks in index order.
func makeChunkDocumentKey(documentID core.ID, index int) []byte {
	prefix := chunkDocumentPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(index))
	return buf
}

// makePartialChunkDocumentKey generates the scan prefix for a document's
// chunks.
func makePartialChunkDocumentKey(documentID core.ID) []byte {
	prefix := chunkDocumentPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makeEntityKey generates a key for an entity by ID.
func makeEntityKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", entityRecordPrefix, id))
}

// makeEntityLookupKey generates a composite key for the (creator, type, text)
// lookup index. Format: prefix:creator:key\x00entityID. The NUL byte
// terminates the variable-length key so one key can never prefix another.
func makeEntityLookupKey(creator core.ID, entityKey string, id core.ID) []byte {
	head := entityKeyPrefix + ":"
	buf := make([]byte, len(head)+8+len(entityKey)+1+8)
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], uint64(creator))
	offset += 8
	offset += copy(buf[offset:], entityKey)
	buf[offset] = 0
	offset++
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialEntityLookupKey generates the scan prefix for all canonical
// entities sharing a (creator, type, text) key.
func makePartialEntityLookupKey(creator core.ID, entityKey string) []byte {
	head := entityKeyPrefix + ":"
	buf := make([]byte, len(head)+8+len(entityKey)+1)
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], uint64(creator))
	offset += 8
	offset += copy(buf[offset:], entityKey)
	buf[offset] = 0
	return buf
}

// makeEntityCreatorKey generates a composite key for the creator index.
func makeEntityCreatorKey(creator, id core.ID) []byte {
	head := entityCreatorPrefix + ":"
	buf := make([]byte, len(head)+16)
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], uint64(creator))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialEntityCreatorKey generates the scan prefix for a creator's
// entities.
func makePartialEntityCreatorKey(creator core.ID) []byte {
	head := entityCreatorPrefix + ":"
	buf := make([]byte, len(head)+8)
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], uint64(creator))
	return buf
}

// makeRelationKey generates a key for a relation from its
// endpoint-order-insensitive dedup key.
func makeRelationKey(relation core.Relation) []byte {
	return []byte(relationRecordPrefix + ":" + relation.DedupKey())
}

// makeRelationEntityKey generates a composite key indexing a relation under
// one of its endpoints. Format: prefix:entityID:dedupKey
func makeRelationEntityKey(entityID core.ID, relation core.Relation) []byte {
	head := relationEntityPrefix + ":"
	dedup := relation.DedupKey()
	buf := make([]byte, len(head)+8+len(dedup))
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], uint64(entityID))
	copy(buf[offset+8:], dedup)
	return buf
}

// makePartialRelationEntityKey generates the scan prefix for an entity's
// relations.
func makePartialRelationEntityKey(entityID core.ID) []byte {
	head := relationEntityPrefix + ":"
	buf := make([]byte, len(head)+8)
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], uint64(entityID))
	return buf
}

// makeMentionChunkKey generates a composite key for the chunk-to-entity
// mention index. Format: prefix:chunkID:entityID
func makeMentionChunkKey(chunkID, entityID core.ID) []byte {
	head := mentionChunkPrefix + ":"
	buf := make([]byte, len(head)+16)
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(entityID))
	return buf
}

// makePartialMentionChunkKey generates the scan prefix for a chunk's
// mentions.
func makePartialMentionChunkKey(chunkID core.ID) []byte {
	head := mentionChunkPrefix + ":"
	buf := make([]byte, len(head)+8)
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makeMentionEntityKey generates the reverse mention index key.
// Format: prefix:entityID:chunkID
func makeMentionEntityKey(entityID, chunkID core.ID) []byte {
	head := mentionEntityPrefix + ":"
	buf := make([]byte, len(head)+16)
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], uint64(entityID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makeCommunityKey generates a composite key for a stored community.
// Format: prefix:creatorID:label, BigEndian so a creator's communities
// iterate in label order.
func makeCommunityKey(creator, label core.ID) []byte {
	head := communityPrefix + ":"
	buf := make([]byte, len(head)+16)
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], uint64(creator))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(label))
	return buf
}

// makePartialCommunityKey generates the scan prefix for a creator's
// communities.
func makePartialCommunityKey(creator core.ID) []byte {
	head := communityPrefix + ":"
	buf := make([]byte, len(head)+8)
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], uint64(creator))
	return buf
}

// lastEightBytesID decodes the trailing BigEndian ID of a composite key.
func lastEightBytesID(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}
