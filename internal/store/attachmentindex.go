package store

import "sort"

// attachmentKey identifies a part row's on-disk payload. Both halves
// are 64-bit signed, matching spec's AttachmentIndex key shape.
type attachmentKey struct {
	RowID        int64
	AttachmentID int64
}

// AttachmentIndex is an ordered mapping (rowid, attachmentId) →
// FileRef, populated once during replay and read-only afterward. It
// keeps an explicit slice of keys so iteration order can be the
// ascending (rowid, attachmentId) order spec.md requires, independent
// of Go's unordered map iteration.
type AttachmentIndex struct {
	entries map[attachmentKey]FileRef
	order   []attachmentKey
}

// NewAttachmentIndex returns an empty index.
func NewAttachmentIndex() *AttachmentIndex {
	return &AttachmentIndex{entries: make(map[attachmentKey]FileRef)}
}

// Record adds or overwrites the FileRef for (rowID, attachmentID).
func (idx *AttachmentIndex) Record(rowID, attachmentID int64, ref FileRef) {
	key := attachmentKey{RowID: rowID, AttachmentID: attachmentID}
	if _, exists := idx.entries[key]; !exists {
		i := sort.Search(len(idx.order), func(i int) bool {
			o := idx.order[i]
			return o.RowID > rowID || (o.RowID == rowID && o.AttachmentID > attachmentID)
		})
		idx.order = append(idx.order, attachmentKey{})
		copy(idx.order[i+1:], idx.order[i:])
		idx.order[i] = key
	}
	idx.entries[key] = ref
}

// Lookup returns the FileRef recorded for (rowID, attachmentID), if
// any.
func (idx *AttachmentIndex) Lookup(rowID, attachmentID int64) (FileRef, bool) {
	ref, ok := idx.entries[attachmentKey{RowID: rowID, AttachmentID: attachmentID}]
	return ref, ok
}

// Len returns the number of recorded file references.
func (idx *AttachmentIndex) Len() int {
	return len(idx.order)
}
