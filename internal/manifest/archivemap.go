package manifest

// ArchiveMap groups every ManifestInfo discovered in a scan by archive id,
// the shape the orchestrator and work queue seed from.
type ArchiveMap struct {
	byID map[string][]ManifestInfo
	// order preserves first-seen archive id order for deterministic
	// iteration (e.g. queue seeding, progress logging).
	order []string
}

// NewArchiveMap groups a flat scan result by ArchiveID.
func NewArchiveMap(infos []ManifestInfo) *ArchiveMap {
	m := &ArchiveMap{byID: make(map[string][]ManifestInfo)}
	for _, info := range infos {
		if _, ok := m.byID[info.ArchiveID]; !ok {
			m.order = append(m.order, info.ArchiveID)
		}
		m.byID[info.ArchiveID] = append(m.byID[info.ArchiveID], info)
	}
	return m
}

// ArchiveIDs returns archive ids in first-seen order.
func (m *ArchiveMap) ArchiveIDs() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Manifests returns every ManifestInfo recorded for an archive id.
func (m *ArchiveMap) Manifests(archiveID string) []ManifestInfo {
	return m.byID[archiveID]
}

// Len reports the number of distinct archives.
func (m *ArchiveMap) Len() int {
	return len(m.order)
}
