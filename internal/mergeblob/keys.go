package mergeblob

import "path"

func FileKey(runID, rel string) string {
	return path.Join(runID, "files", rel)
}

func DigestsKey(runID string) string {
	return path.Join(runID, "digests.yaml")
}
