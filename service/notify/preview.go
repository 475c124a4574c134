package notify

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	godiff "github.com/sourcegraph/go-diff/diff"
	"github.com/viant/toolbox"
)

const previewContextLines = 3

// Preview renders a human-readable preview of a tool input so an operator
// can judge the action without digging through raw JSON. File edits render
// as a unified diff; patches render as per-file change statistics; shell
// commands render as the command line. Unknown shapes yield an empty
// preview rather than a misleading one.
func Preview(toolName string, input map[string]interface{}) string {
	if len(input) == 0 {
		return ""
	}
	if patch, ok := input["patch"]; ok {
		return patchPreview(toolbox.AsString(patch))
	}
	oldContent, hasOld := input["oldContent"]
	newContent, hasNew := input["newContent"]
	if hasOld && hasNew {
		filePath := toolbox.AsString(input["path"])
		return editPreview(toolbox.AsString(oldContent), toolbox.AsString(newContent), filePath)
	}
	if command, ok := input["command"]; ok {
		return fmt.Sprintf("$ %s", toolbox.AsString(command))
	}
	return ""
}

// editPreview produces a GNU unified diff between the original and the
// proposed file content. Identical contents yield an empty preview.
func editPreview(oldContent, newContent, filePath string) string {
	if oldContent == newContent {
		return ""
	}
	if filePath == "" {
		filePath = "file"
	}
	unified := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: filePath + " (original)",
		ToFile:   filePath + " (proposed)",
		Context:  previewContextLines,
	}
	rendered, err := difflib.GetUnifiedDiffString(unified)
	if err != nil {
		return ""
	}
	return rendered
}

// patchPreview summarises a multi-file unified diff as per-file statistics.
func patchPreview(patch string) string {
	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(patch))
	if err != nil || len(fileDiffs) == 0 {
		return ""
	}
	var builder strings.Builder
	for _, fileDiff := range fileDiffs {
		stat := fileDiff.Stat()
		name := fileDiff.NewName
		if name == "" || name == "/dev/null" {
			name = fileDiff.OrigName
		}
		fmt.Fprintf(&builder, "%s: +%d -%d (~%d)\n", name, stat.Added, stat.Deleted, stat.Changed)
	}
	return builder.String()
}
