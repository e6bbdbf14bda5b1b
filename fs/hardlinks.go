// Traverses MFT entries to discover every path an entry is known by. A
// file (MFT entry) can exist in more than one directory - a hard link -
// because NTFS lets a $FILE_NAME attribute point at any parent directory
// regardless of how many other $FILE_NAME attributes the entry already
// carries.

package fs

import "fmt"

type linkVisitor struct {
	paths [][]string
	max   int
}

func (v *linkVisitor) add(idx int, depth int) int {
	v.paths = append(v.paths, append([]string{}, v.paths[idx][:depth]...))
	return len(v.paths) - 1
}

func (v *linkVisitor) addComponent(idx int, component string) {
	v.paths[idx] = append(v.paths[idx], component)
}

func (v *linkVisitor) components() [][]string {
	for _, p := range v.paths {
		for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
			p[i], p[j] = p[j], p[i]
		}
	}
	return v.paths
}

// isNamedLink reports whether a $FILE_NAME's naming convention
// represents a real hard-link path rather than the auxiliary short DOS
// alias that shadows a Win32 name.
func isNamedLink(nameType string) bool {
	switch nameType {
	case "Win32", "DOS+Win32", "POSIX":
		return true
	default:
		return false
	}
}

// GetHardLinks walks every $FILE_NAME parent chain for mftID, up to max
// distinct paths, and returns each as an ordered slice of path
// components (root first). Entries whose parent chain cycles or exceeds
// maxDepth terminate with a synthetic "<Err>" component rather than
// looping or panicking; since the chain is walked towards the root, that
// component is the first element of the returned path.
func GetHardLinks(resolver *MFTVector, mftID uint64, maxDepth int, max int) [][]string {
	visitor := &linkVisitor{paths: [][]string{{}}, max: max}

	summary, err := resolver.GetMFTSummary(mftID, 0)
	if err != nil {
		return nil
	}
	collectLinkNames(resolver, summary, visitor, 0, 0, maxDepth)

	return visitor.components()
}

func collectLinkNames(resolver *MFTVector, entry *MFTEntrySummary, visitor *linkVisitor, idx, depth, maxDepth int) {
	if depth > maxDepth {
		visitor.addComponent(idx, "<DirTooDeep>")
		visitor.addComponent(idx, "<Err>")
		return
	}

	var filenames []FNSummary
	for _, fn := range entry.Filenames {
		if isNamedLink(fn.NameType) {
			filenames = append(filenames, fn)
		}
	}

	for i, fn := range filenames {
		visitorIdx := idx
		if i > 0 {
			if len(visitor.paths) >= visitor.max {
				continue
			}
			visitorIdx = visitor.add(idx, depth)
		}

		visitor.addComponent(visitorIdx, fn.Name)

		// MFT entries 0 and 5 are $MFT and the volume root; the root
		// has no parent of its own to chase.
		if fn.ParentEntryNumber == 5 || fn.ParentEntryNumber == 0 {
			continue
		}

		parentEntry, err := resolver.GetMFTSummary(fn.ParentEntryNumber, fn.ParentSequenceNumber)
		if err != nil {
			visitor.addComponent(visitorIdx, err.Error())
			visitor.addComponent(visitorIdx, "<Err>")
			continue
		}

		if fn.ParentSequenceNumber != parentEntry.Sequence {
			visitor.addComponent(visitorIdx, fmt.Sprintf(
				"<Parent %v-%v need %v>", fn.ParentEntryNumber,
				parentEntry.Sequence, fn.ParentSequenceNumber))
			visitor.addComponent(visitorIdx, "<Err>")
			continue
		}

		collectLinkNames(resolver, parentEntry, visitor, visitorIdx, depth+1, maxDepth)
	}
}
