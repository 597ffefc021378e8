package pack

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/gowebpki/jcs"
)

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashEntries computes a deterministic content hash over the archive's
// non-manifest entries so package_metadata.json's content_hash (and its
// optional signature) attest to everything else in the archive.
func hashEntries(catalog, correlation []byte, analyses map[string][]byte, report []byte) (string, error) {
	names := make([]string, 0, len(analyses))
	for name := range analyses {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make([]string, 0, len(names)+3)
	ordered = append(ordered, "evidence_catalog.json:"+hashBytes(catalog))
	for _, name := range names {
		ordered = append(ordered, "analyses/"+name+":"+hashBytes(analyses[name]))
	}
	if correlation != nil {
		ordered = append(ordered, "correlation_analysis.json:"+hashBytes(correlation))
	}
	ordered = append(ordered, "executive_summary.txt:"+hashBytes(report))

	raw, err := json.Marshal(ordered)
	if err != nil {
		return "", err
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	return hashBytes(canon), nil
}
