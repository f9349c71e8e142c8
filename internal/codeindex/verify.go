package codeindex

import (
	"fmt"
	"os"
)

// Verify checks an index's on-disk consistency: manifest chunk count must
// match meta.jsonl's record count, and both HNSW files must be present.
func Verify(projectRoot string) (VerifyResult, error) {
	paths := NewIndexPaths(projectRoot)

	manifest, err := loadManifest(paths)
	if err != nil {
		return VerifyResult{}, err
	}
	records, err := loadMeta(paths)
	if err != nil {
		return VerifyResult{}, err
	}

	res := VerifyResult{
		ManifestChunks: manifest.TotalChunks,
		MetaChunks:     len(records),
		GraphPresent:   fileExists(paths.GraphFile()),
		DataPresent:    fileExists(paths.DataFile()),
	}
	res.OK = res.ManifestChunks == res.MetaChunks && res.GraphPresent && res.DataPresent
	return res, nil
}

// Clean removes a project's index directory. The caller must have already
// obtained explicit confirmation (requires --yes on the CLI);
// this function performs no further confirmation itself.
func Clean(projectRoot string, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("codeindex: clean requires explicit confirmation")
	}
	return os.RemoveAll(NewIndexPaths(projectRoot).Root)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
