package gerrit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ChangeStatus describes how a file changed in the revision.
type ChangeStatus string

const (
	ChangeStatusAdded    ChangeStatus = "ADDED"
	ChangeStatusModified ChangeStatus = "MODIFIED"
	ChangeStatusDeleted  ChangeStatus = "DELETED"
	ChangeStatusRenamed  ChangeStatus = "RENAMED"
)

const (
	commitMessagePathConstant           = "/COMMIT_MSG"
	mergeListPathConstant               = "/MERGE_LIST"
	responseGuardPrefixConstant         = ")]}'"
	restStatusAddedConstant             = "A"
	restStatusDeletedConstant           = "D"
	restStatusRenamedConstant           = "R"
	restStatusCopiedConstant            = "C"
	queryTypeCopiedConstant             = "COPIED"
	queryRowTypeStatsConstant           = "stats"
	queryRowTypeErrorConstant           = "error"
	unexpectedTokenTemplateConstant     = "unexpected token %v, expected %s"
	queryErrorRowTemplateConstant       = "query returned an error: %s"
	objectStartDescriptionConstant      = "object start"
	fileKeyDescriptionConstant          = "file path key"
	leadingWhitespaceCharactersConstant = " \t\r\n"
)

// RemoteFile is one file touched by the revision under review.
type RemoteFile struct {
	Path   string
	Status ChangeStatus
}

// IsSentinel reports whether the path is a backend pseudo-file rather than repository content.
func IsSentinel(path string) bool {
	return path == commitMessagePathConstant || path == mergeListPathConstant
}

// ChangedFiles is an immutable view over the reviewable files of a revision, in listing order.
type ChangedFiles struct {
	paths []string
	index map[string]struct{}
}

// NewChangedFiles builds the reviewable view of a listing: deleted files and
// pseudo-files are dropped and repeated paths keep their first position.
func NewChangedFiles(remoteFiles []RemoteFile) ChangedFiles {
	changedFiles := ChangedFiles{index: make(map[string]struct{}, len(remoteFiles))}
	for _, remoteFile := range remoteFiles {
		if remoteFile.Status == ChangeStatusDeleted || IsSentinel(remoteFile.Path) {
			continue
		}
		if _, duplicate := changedFiles.index[remoteFile.Path]; duplicate {
			continue
		}
		changedFiles.index[remoteFile.Path] = struct{}{}
		changedFiles.paths = append(changedFiles.paths, remoteFile.Path)
	}
	return changedFiles
}

// Contains reports whether path is a reviewable changed file.
func (changedFiles ChangedFiles) Contains(path string) bool {
	_, found := changedFiles.index[path]
	return found
}

// Paths returns a copy of the changed paths in listing order.
func (changedFiles ChangedFiles) Paths() []string {
	return append([]string(nil), changedFiles.paths...)
}

// Len returns the number of changed paths.
func (changedFiles ChangedFiles) Len() int {
	return len(changedFiles.paths)
}

type restFileInfo struct {
	Status string `json:"status"`
}

// DecodeRESTFiles parses the REST files listing. A leading ")]}'" guard is
// stripped when present. Entries keep their document order.
func DecodeRESTFiles(body []byte) ([]RemoteFile, error) {
	decoder := json.NewDecoder(bytes.NewReader(stripResponseGuard(body)))

	openingToken, tokenError := decoder.Token()
	if tokenError != nil {
		return nil, SerializationError{Operation: OperationListFiles, Cause: tokenError}
	}
	if delimiter, isDelimiter := openingToken.(json.Delim); !isDelimiter || delimiter != '{' {
		return nil, SerializationError{Operation: OperationListFiles, Cause: fmt.Errorf(unexpectedTokenTemplateConstant, openingToken, objectStartDescriptionConstant)}
	}

	var remoteFiles []RemoteFile
	for decoder.More() {
		keyToken, keyError := decoder.Token()
		if keyError != nil {
			return nil, SerializationError{Operation: OperationListFiles, Cause: keyError}
		}
		path, isString := keyToken.(string)
		if !isString {
			return nil, SerializationError{Operation: OperationListFiles, Cause: fmt.Errorf(unexpectedTokenTemplateConstant, keyToken, fileKeyDescriptionConstant)}
		}
		var fileInfo restFileInfo
		if decodeError := decoder.Decode(&fileInfo); decodeError != nil {
			return nil, SerializationError{Operation: OperationListFiles, Cause: decodeError}
		}
		remoteFiles = append(remoteFiles, RemoteFile{Path: path, Status: restChangeStatus(fileInfo.Status)})
	}

	if _, closingError := decoder.Token(); closingError != nil {
		return nil, SerializationError{Operation: OperationListFiles, Cause: closingError}
	}
	return remoteFiles, nil
}

type queryFile struct {
	File string `json:"file"`
	Type string `json:"type"`
}

type queryPatchSet struct {
	Files []queryFile `json:"files"`
}

type queryRow struct {
	Type            string         `json:"type"`
	Message         string         `json:"message"`
	CurrentPatchSet *queryPatchSet `json:"currentPatchSet"`
}

// DecodeQueryStream parses newline-delimited JSON from the query command. Files
// come from the change row's current patch set; the trailing stats row is skipped.
func DecodeQueryStream(body []byte) ([]RemoteFile, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	var remoteFiles []RemoteFile
	for {
		var row queryRow
		decodeError := decoder.Decode(&row)
		if errors.Is(decodeError, io.EOF) {
			return remoteFiles, nil
		}
		if decodeError != nil {
			return nil, SerializationError{Operation: OperationListFiles, Cause: decodeError}
		}

		switch row.Type {
		case queryRowTypeStatsConstant:
			continue
		case queryRowTypeErrorConstant:
			return nil, SerializationError{Operation: OperationListFiles, Cause: fmt.Errorf(queryErrorRowTemplateConstant, row.Message)}
		}
		if row.CurrentPatchSet == nil {
			continue
		}
		for _, file := range row.CurrentPatchSet.Files {
			remoteFiles = append(remoteFiles, RemoteFile{Path: file.File, Status: queryChangeStatus(file.Type)})
		}
	}
}

func decodeChangedFiles(format ResponseFormat, body []byte) ([]RemoteFile, error) {
	if format == ResponseFormatQueryStream {
		return DecodeQueryStream(body)
	}
	return DecodeRESTFiles(body)
}

func stripResponseGuard(body []byte) []byte {
	return bytes.TrimPrefix(bytes.TrimLeft(body, leadingWhitespaceCharactersConstant), []byte(responseGuardPrefixConstant))
}

func restChangeStatus(raw string) ChangeStatus {
	switch strings.TrimSpace(raw) {
	case restStatusDeletedConstant:
		return ChangeStatusDeleted
	case restStatusAddedConstant:
		return ChangeStatusAdded
	case restStatusRenamedConstant, restStatusCopiedConstant:
		return ChangeStatusRenamed
	default:
		return ChangeStatusModified
	}
}

func queryChangeStatus(raw string) ChangeStatus {
	switch ChangeStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case ChangeStatusDeleted:
		return ChangeStatusDeleted
	case ChangeStatusAdded:
		return ChangeStatusAdded
	case ChangeStatusRenamed, ChangeStatus(queryTypeCopiedConstant):
		return ChangeStatusRenamed
	default:
		return ChangeStatusModified
	}
}
