package decorator

import "github.com/temirov/reviewsync/internal/gerrit"

// MatchKind records which rule paired a local path with a remote one.
type MatchKind string

const (
	MatchKindExact            MatchKind = "exact"
	MatchKindNormalizedLocal  MatchKind = "normalized_local"
	MatchKindNormalizedRemote MatchKind = "normalized_remote"
	MatchKindNone             MatchKind = "none"
)

// PathNormalizer rewrites a path into its comparable form.
type PathNormalizer func(path string) string

// MatchPath finds the remote path that localPath should be commented on.
// Rules are tried in a fixed order: the local path itself, the normalized
// local path, then the first remote path whose normalized form equals the
// local path. The empty string and MatchKindNone mean the file is not part of
// the revision.
func MatchPath(localPath string, changedFiles gerrit.ChangedFiles, normalize PathNormalizer) (string, MatchKind) {
	if changedFiles.Contains(localPath) {
		return localPath, MatchKindExact
	}

	normalizedLocalPath := normalize(localPath)
	if changedFiles.Contains(normalizedLocalPath) {
		return normalizedLocalPath, MatchKindNormalizedLocal
	}

	for _, remotePath := range changedFiles.Paths() {
		if normalize(remotePath) == localPath {
			return remotePath, MatchKindNormalizedRemote
		}
	}

	return "", MatchKindNone
}
