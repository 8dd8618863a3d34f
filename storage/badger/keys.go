package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/tessera/core"
)

// Key prefixes for different data types
const (
	documentRecordPrefix  = "docrec"
	documentCreatorPrefix = "doccre"
	sectionRecordPrefix   = "secrec"
	sectionCreatorPrefix  = "seccre"
	sectionTiePrefix      = "sectie"
	taskRecordPrefix      = "tskrec"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentRecordPrefix, id))
}

// makeDocumentCreatorKey generates a composite key for the creator index.
// Format: prefix:creator:timestamp:id
func makeDocumentCreatorKey(creator core.ID, insertedAt time.Time, id core.ID) []byte {
	return makeCreatorKey(documentCreatorPrefix, creator, insertedAt, id)
}

// makePartialDocumentCreatorKey generates a prefix for scanning a creator's
// documents.
func makePartialDocumentCreatorKey(creator core.ID) []byte {
	return makePartialCreatorKey(documentCreatorPrefix, creator)
}

// makeTaskKey generates a key for a stage task by ID.
func makeTaskKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", taskRecordPrefix, id))
}

// makeSectionKey generates a key for a section by ID.
func makeSectionKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", sectionRecordPrefix, id))
}

// makeSectionCreatorKey generates a composite key for the section creator
// index. Format: prefix:creator:timestamp:id
func makeSectionCreatorKey(creator core.ID, insertedAt time.Time, id core.ID) []byte {
	return makeCreatorKey(sectionCreatorPrefix, creator, insertedAt, id)
}

// makePartialSectionCreatorKey generates a prefix for scanning a creator's
// sections.
func makePartialSectionCreatorKey(creator core.ID) []byte {
	return makePartialCreatorKey(sectionCreatorPrefix, creator)
}

// makeSectionTieKey generates a composite key for a section-document tie.
// Format: prefix:sectionID:documentID
func makeSectionTieKey(sectionID, documentID core.ID) []byte {
	prefix := sectionTiePrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(sectionID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makePartialSectionTieKey generates a prefix for scanning a section's ties.
func makePartialSectionTieKey(sectionID core.ID) []byte {
	prefix := sectionTiePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(sectionID))
	return buf
}

// makeCreatorKey builds a composite index key prefix:creator:timestamp:id.
// Creator, timestamp and ID are BigEndian so lexicographic order matches
// insertion order within one creator.
func makeCreatorKey(prefix string, creator core.ID, insertedAt time.Time, id core.ID) []byte {
	head := prefix + ":"
	buf := make([]byte, len(head)+24)
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], uint64(creator))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(insertedAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialCreatorKey builds the scan prefix for a creator index.
func makePartialCreatorKey(prefix string, creator core.ID) []byte {
	head := prefix + ":"
	buf := make([]byte, len(head)+8)
	offset := copy(buf, head)
	binary.BigEndian.PutUint64(buf[offset:], uint64(creator))
	return buf
}
